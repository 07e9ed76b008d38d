package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"marketplace/internal/services"
)

// Reconciler is the work a ReconcileJob runs on every tick
type Reconciler interface {
	Run(ctx context.Context) (*services.ReconcileReport, error)
}

// ReconcileJob periodically repairs denormalized counters
type ReconcileJob struct {
	reconciler Reconciler
	interval   time.Duration
	log        *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewReconcileJob creates a job that runs every interval
func NewReconcileJob(reconciler Reconciler, interval time.Duration, log *zap.Logger) *ReconcileJob {
	return &ReconcileJob{
		reconciler: reconciler,
		interval:   interval,
		log:        log.With(zap.String("job", "reconcile")),
		done:       make(chan struct{}),
	}
}

// Start begins the reconciliation loop in a goroutine. The first run happens
// immediately.
func (j *ReconcileJob) Start(ctx context.Context) {
	ctx, j.cancel = context.WithCancel(ctx)
	j.log.Info("starting counter reconciliation", zap.Duration("interval", j.interval))

	go func() {
		defer close(j.done)

		j.runOnce(ctx)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.runOnce(ctx)
			case <-ctx.Done():
				j.log.Info("stopping counter reconciliation")
				return
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight run to finish
func (j *ReconcileJob) Stop() {
	j.once.Do(func() {
		if j.cancel == nil {
			close(j.done)
			return
		}
		j.cancel()
	})
	<-j.done
}

func (j *ReconcileJob) runOnce(ctx context.Context) {
	report, err := j.reconciler.Run(ctx)
	if err != nil {
		if ctx.Err() == nil {
			j.log.Error("reconciliation failed", zap.Error(err))
		}
		return
	}
	if report.FavoriteCounts > 0 || report.UnreadCounts > 0 {
		j.log.Warn("counter drift corrected",
			zap.Int64("favorite_counts", report.FavoriteCounts),
			zap.Int64("unread_counts", report.UnreadCounts))
	}
}
