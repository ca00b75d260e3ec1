package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jdziat/resumable-jobs/pkg/core"
)

// Typed adapts a processor of concrete item type T. Stored datasets come
// back from the store as generic JSON values, so items that are not already
// a T are converted through JSON. A conversion failure is an item fault.
//
//	handler.Typed(func(ctx context.Context, p Product, job *core.Job) error {
//		return sync(ctx, p.SKU)
//	})
func Typed[T any](fn func(ctx context.Context, item T, job *core.Job) error) ItemProcessor {
	return func(ctx context.Context, item any, job *core.Job) error {
		if v, ok := item.(T); ok {
			return fn(ctx, v, job)
		}

		raw, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("jobs: marshal item: %w", err)
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("jobs: decode item as %T: %w", v, err)
		}
		return fn(ctx, v, job)
	}
}
