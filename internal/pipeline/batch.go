package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"jsomr2mei/internal/crawler"
)

type PageFailure struct {
	Key string
	Err error
}

type BatchReport struct {
	Converted []string
	Unchanged []string
	Failed    []PageFailure
}

// Batch converts jobs concurrently into outDir/<key>.mei. A failing page is
// reported and does not stop the others; only cancellation aborts the batch.
func (c *Converter) Batch(ctx context.Context, jobs []crawler.Job, outDir string, workers int, force bool) (*BatchReport, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	fmt.Fprintf(c.Out, "📂 Converting %d pages with %d workers...\n", len(jobs), workers)

	report := &BatchReport{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, job := range jobs {
		job := job // per-iteration copy; go directive is below 1.22
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := c.ConvertJob(gctx, job, filepath.Join(outDir, job.Key+".mei"), force)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil && gctx.Err() != nil:
				return gctx.Err()
			case err != nil:
				log.Printf("❌ %s: %v", job.Key, err)
				report.Failed = append(report.Failed, PageFailure{Key: job.Key, Err: err})
			case out.Unchanged:
				report.Unchanged = append(report.Unchanged, job.Key)
			default:
				report.Converted = append(report.Converted, job.Key)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	fmt.Fprintf(c.Out, "✅ %d converted, %d unchanged, %d failed.\n", len(report.Converted), len(report.Unchanged), len(report.Failed))
	return report, nil
}
