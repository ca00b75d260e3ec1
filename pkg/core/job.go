// Package core provides the domain models and interfaces for the jobs package.
package core

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// JobStatus represents the current state of a job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed" // Terminal
	StatusFailed     JobStatus = "failed"    // Terminal
)

// IsTerminal reports whether a job in this status will never be processed again.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsActive reports whether a job in this status is eligible for the queue cursor.
func (s JobStatus) IsActive() bool {
	return s == StatusQueued || s == StatusProcessing
}

// DefaultDataKey is the attribute holding a job's dataset unless configured otherwise.
const DefaultDataKey = "data"

// JSON field names of the core schema.
const (
	FieldID                  = "id"
	FieldStatus              = "status"
	FieldCreatedAt           = "created_at"
	FieldCreatedBy           = "created_by"
	FieldStartedProcessingAt = "started_processing_at"
	FieldCompletedAt         = "completed_at"
	FieldFailedAt            = "failed_at"
	FieldUpdatedAt           = "updated_at"
	FieldProgress            = "progress"
	FieldTotal               = "total"
	FieldFailureReason       = "failure_reason"
)

// IsCoreField reports whether key names a field owned by the core schema
// rather than a caller-supplied attribute.
func IsCoreField(key string) bool {
	switch key {
	case FieldID, FieldStatus, FieldCreatedAt, FieldCreatedBy,
		FieldStartedProcessingAt, FieldCompletedAt, FieldFailedAt,
		FieldUpdatedAt, FieldProgress, FieldTotal, FieldFailureReason:
		return true
	}
	return false
}

// Job is a unit of deferred, resumable work. The dataset it iterates over is
// held in Attrs under the handler's data key.
//
// A Job serializes to a single flat JSON object: caller attributes with the
// core fields laid over them.
type Job struct {
	ID                  string
	Status              JobStatus
	CreatedAt           time.Time
	CreatedBy           string
	StartedProcessingAt *time.Time
	CompletedAt         *time.Time
	FailedAt            *time.Time
	UpdatedAt           *time.Time
	Progress            int
	Total               int
	FailureReason       string

	// Attrs holds caller-supplied attributes, including the dataset.
	Attrs map[string]any
}

// Attr returns a caller-supplied attribute.
func (j *Job) Attr(key string) (any, bool) {
	if j.Attrs == nil {
		return nil, false
	}
	v, ok := j.Attrs[key]
	return v, ok
}

// SetAttr sets a caller-supplied attribute. Core field names are rejected.
func (j *Job) SetAttr(key string, value any) error {
	if IsCoreField(key) {
		return fmt.Errorf("jobs: %q is a reserved job field", key)
	}
	if j.Attrs == nil {
		j.Attrs = make(map[string]any)
	}
	j.Attrs[key] = value
	return nil
}

// Clone returns a copy of the job. Attribute values are shared.
func (j *Job) Clone() *Job {
	c := *j
	c.Attrs = maps.Clone(j.Attrs)
	return &c
}

// MarshalJSON flattens attributes and core fields into one object.
func (j Job) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(j.Attrs)+11)
	for k, v := range j.Attrs {
		if !IsCoreField(k) {
			out[k] = v
		}
	}

	out[FieldID] = j.ID
	out[FieldStatus] = j.Status
	out[FieldCreatedAt] = j.CreatedAt
	out[FieldCreatedBy] = j.CreatedBy
	out[FieldProgress] = j.Progress
	out[FieldTotal] = j.Total
	if j.StartedProcessingAt != nil {
		out[FieldStartedProcessingAt] = j.StartedProcessingAt
	}
	if j.CompletedAt != nil {
		out[FieldCompletedAt] = j.CompletedAt
	}
	if j.FailedAt != nil {
		out[FieldFailedAt] = j.FailedAt
	}
	if j.UpdatedAt != nil {
		out[FieldUpdatedAt] = j.UpdatedAt
	}
	if j.FailureReason != "" {
		out[FieldFailureReason] = j.FailureReason
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits a flat object back into core fields and attributes.
func (j *Job) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*j = Job{}
	for k, v := range raw {
		var err error
		switch k {
		case FieldID:
			err = json.Unmarshal(v, &j.ID)
		case FieldStatus:
			err = json.Unmarshal(v, &j.Status)
		case FieldCreatedAt:
			err = json.Unmarshal(v, &j.CreatedAt)
		case FieldCreatedBy:
			err = json.Unmarshal(v, &j.CreatedBy)
		case FieldStartedProcessingAt:
			j.StartedProcessingAt, err = unmarshalTime(v)
		case FieldCompletedAt:
			j.CompletedAt, err = unmarshalTime(v)
		case FieldFailedAt:
			j.FailedAt, err = unmarshalTime(v)
		case FieldUpdatedAt:
			j.UpdatedAt, err = unmarshalTime(v)
		case FieldProgress:
			err = json.Unmarshal(v, &j.Progress)
		case FieldTotal:
			err = json.Unmarshal(v, &j.Total)
		case FieldFailureReason:
			err = json.Unmarshal(v, &j.FailureReason)
		default:
			var attr any
			if err = json.Unmarshal(v, &attr); err == nil {
				if j.Attrs == nil {
					j.Attrs = make(map[string]any)
				}
				j.Attrs[k] = attr
			}
		}
		if err != nil {
			return fmt.Errorf("jobs: decode field %q: %w", k, err)
		}
	}
	return nil
}

func unmarshalTime(v json.RawMessage) (*time.Time, error) {
	if string(v) == "null" {
		return nil, nil
	}
	var t time.Time
	if err := json.Unmarshal(v, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
