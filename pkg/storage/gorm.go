// Package storage provides storage implementations for the jobs package.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jdziat/resumable-jobs/pkg/core"
)

// JobRecord is the persisted row for a job. The full job, including caller
// attributes and dataset, lives in Payload; Status is a projection kept in
// sync on every write so the queue cursor can use an index.
type JobRecord struct {
	Seq        uint64         `gorm:"primaryKey;autoIncrement"`
	JobID      string         `gorm:"uniqueIndex;size:64;not null"`
	Identifier string         `gorm:"index:idx_background_jobs_cursor,priority:1;size:128;not null"`
	Status     core.JobStatus `gorm:"index:idx_background_jobs_cursor,priority:2;size:20;not null"`
	Payload    datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
}

// TableName overrides the default table name.
func (JobRecord) TableName() string { return "background_jobs" }

// orderColumns maps the public order fields to their columns.
var orderColumns = map[string]string{
	core.OrderBySeq: "seq",
	"id":            "job_id",
	"status":        "status",
	"created_at":    "created_at",
	"updated_at":    "updated_at",
}

var activeStatuses = []core.JobStatus{core.StatusQueued, core.StatusProcessing}

// GormStorage implements core.Store using GORM.
type GormStorage struct {
	db *gorm.DB
}

var _ core.Store = (*GormStorage)(nil)

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{db: db}
}

// DB returns the underlying database handle.
func (s *GormStorage) DB() *gorm.DB {
	return s.db
}

// IsSQLite reports whether the storage runs on SQLite.
func (s *GormStorage) IsSQLite() bool {
	return s.db != nil && s.db.Dialector.Name() == "sqlite"
}

// Migrate creates the necessary tables.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&JobRecord{})
}

// Insert persists a new job.
func (s *GormStorage) Insert(ctx context.Context, identifier string, job *core.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("jobs: encode job: %w", err)
	}
	rec := &JobRecord{
		JobID:      job.ID,
		Identifier: identifier,
		Status:     job.Status,
		Payload:    datatypes.JSON(payload),
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

// Get retrieves a job by ID.
func (s *GormStorage) Get(ctx context.Context, identifier, id string) (*core.Job, error) {
	var rec JobRecord
	err := s.db.WithContext(ctx).
		Where("identifier = ? AND job_id = ?", identifier, id).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(&rec)
}

// Next returns the oldest queued or processing job.
func (s *GormStorage) Next(ctx context.Context, identifier string) (*core.Job, error) {
	var rec JobRecord
	err := s.db.WithContext(ctx).
		Where("identifier = ?", identifier).
		Where("status IN ?", activeStatuses).
		Order("seq ASC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(&rec)
}

// List retrieves jobs matching filter.
func (s *GormStorage) List(ctx context.Context, identifier string, filter core.JobFilter) ([]*core.Job, error) {
	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = core.OrderBySeq
	}
	column, ok := orderColumns[strings.ToLower(orderBy)]
	if !ok {
		return nil, fmt.Errorf("%w: order by %q", core.ErrInvalidOrder, orderBy)
	}

	var desc bool
	switch strings.ToUpper(filter.Order) {
	case "", core.OrderDesc:
		desc = true
	case core.OrderAsc:
	default:
		return nil, fmt.Errorf("%w: order %q", core.ErrInvalidOrder, filter.Order)
	}

	q := s.db.WithContext(ctx).Where("identifier = ?", identifier)
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}

	var recs []JobRecord
	err := q.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	jobList := make([]*core.Job, 0, len(recs))
	for i := range recs {
		job, err := decodeRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		jobList = append(jobList, job)
	}
	return jobList, nil
}

// Update rewrites the payload and status of an existing job.
func (s *GormStorage) Update(ctx context.Context, identifier string, job *core.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("jobs: encode job: %w", err)
	}

	result := s.db.WithContext(ctx).
		Model(&JobRecord{}).
		Where("identifier = ? AND job_id = ?", identifier, job.ID).
		Updates(map[string]any{
			"status":  job.Status,
			"payload": datatypes.JSON(payload),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrJobNotFound
	}
	return nil
}

// CountActive counts queued and processing jobs.
func (s *GormStorage) CountActive(ctx context.Context, identifier string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&JobRecord{}).
		Where("identifier = ?", identifier).
		Where("status IN ?", activeStatuses).
		Count(&count).Error
	return count, err
}

func decodeRecord(rec *JobRecord) (*core.Job, error) {
	var job core.Job
	if err := json.Unmarshal(rec.Payload, &job); err != nil {
		return nil, fmt.Errorf("jobs: decode job %s: %w", rec.JobID, err)
	}
	return &job, nil
}
