// ABOUTME: Key-by-key copy between two stores
// ABOUTME: Used to move a CRM from one backend to another
package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// CopyResult reports what Copy did or, for a dry run, would do.
type CopyResult struct {
	Copied      []string
	Skipped     []string
	Overwritten []string
}

// Copy writes every key of src into dst. Keys already in dst are skipped
// unless overwrite is set. With dryRun nothing is written.
func Copy(ctx context.Context, dst, src Store, overwrite, dryRun bool) (CopyResult, error) {
	var res CopyResult

	keys, err := src.Keys(ctx)
	if err != nil {
		return res, fmt.Errorf("list source keys: %w", err)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value, err := src.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return res, fmt.Errorf("read %s: %w", key, err)
		}

		_, err = dst.Get(ctx, key)
		switch {
		case err == nil && !overwrite:
			res.Skipped = append(res.Skipped, key)
			continue
		case err == nil:
			res.Overwritten = append(res.Overwritten, key)
		case errors.Is(err, ErrNotFound):
			res.Copied = append(res.Copied, key)
		default:
			return res, fmt.Errorf("check %s: %w", key, err)
		}

		if dryRun {
			continue
		}
		if err := dst.Set(ctx, key, value); err != nil {
			return res, fmt.Errorf("write %s: %w", key, err)
		}
	}
	return res, nil
}
