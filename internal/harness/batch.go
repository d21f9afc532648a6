package harness

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchFile names the i-th document of a batch.
func BatchFile(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("doc-%03d.json", i))
}

// Batch runs count roundtrips into dir with seeds plan.Seed+i, at most jobs
// at a time. The first failure cancels the jobs that have not finished.
// Results are returned in index order; entries that never ran have an empty
// RunID.
func (r *Runner) Batch(ctx context.Context, plan Plan, dir string, count, jobs int) ([]Result, error) {
	if count < 0 {
		return nil, fmt.Errorf("batch count must be >= 0, got %d", count)
	}
	if jobs < 1 {
		jobs = 1
	}

	results := make([]Result, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	r.logger.Debug("batch starting",
		zap.Int("count", count),
		zap.Int("jobs", jobs),
		zap.String("dir", dir))

	for i := 0; i < count; i++ {
		p := plan
		p.Seed = plan.Seed + uint64(i)
		p.Path = BatchFile(dir, i)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.roundtrip(gctx, p, "batch")
			results[i] = res
			if err != nil {
				return fmt.Errorf("document %d: %w", i, err)
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}
