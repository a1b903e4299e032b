package experiment

import (
	"context"
	"errors"
	"io"
	"log"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/chaosnet/internal/dynamo"
)

// Runner executes independent runs on a bounded worker pool. A run that
// diverges is logged and skipped; any other error cancels the batch.
type Runner struct {
	Workers int
	Logger  *log.Logger
	// OnResult is called from worker goroutines as each run completes,
	// including skipped ones. It must be safe for concurrent use.
	OnResult func(*RunResult)
	// DropTrajectories releases observation data after OnResult returns.
	DropTrajectories bool
}

func NewRunner(workers int, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Runner{Workers: workers, Logger: logger}
}

// Recoverable reports whether err only invalidates the run that produced it.
// Non-finite exponents are not errors; they arrive as RunResult.Overflow.
func Recoverable(err error) bool {
	return errors.Is(err, dynamo.ErrIntegrationDivergence)
}

// RunAll returns one result per params entry, in input order.
func (r *Runner) RunAll(ctx context.Context, params []RunParams) ([]*RunResult, error) {
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := r.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	results := make([]*RunResult, len(params))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range params {
		p := params[i]
		idx := i
		g.Go(func() error {
			res, err := Simulate(ctx, p)
			results[idx] = res
			switch {
			case err == nil:
				logger.Printf("sigma=%g run=%d done in %s (tau=%.4g, rms=%.4g)",
					p.Coupling, p.RunIndex, res.Elapsed, res.CorrelationTime, res.Metrics["rms_activity"])
				if res.Overflow != nil {
					logger.Printf("warning: sigma=%g run=%d: %v", p.Coupling, p.RunIndex, res.Overflow)
				}
			case Recoverable(err):
				logger.Printf("skipping: %v", err)
			default:
				return err
			}
			if r.OnResult != nil {
				r.OnResult(res)
			}
			if r.DropTrajectories {
				res.Trajectory = nil
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}
