// Package retention periodically removes conversations that were created but
// never received a message.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/sensei/internal/logger"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// DefaultMaxAge is how long an empty conversation is kept.
const DefaultMaxAge = 30 * 24 * time.Hour

// EmptyConversationPruner deletes message-less conversations last updated
// before cutoff. chat.GormStore implements it.
type EmptyConversationPruner interface {
	PruneEmptyConversations(ctx context.Context, cutoff time.Time) (int64, error)
}

// Pruner runs an EmptyConversationPruner on a cron schedule.
type Pruner struct {
	store    EmptyConversationPruner
	schedule cron.Schedule
	maxAge   time.Duration
	now      func() time.Time
}

// Opts holds parameters for creating a Pruner.
type Opts struct {
	Store    EmptyConversationPruner
	Schedule string        // 5-field cron expression
	MaxAge   time.Duration // defaults to DefaultMaxAge
	Now      func() time.Time
}

// New creates a Pruner.
func New(opts Opts) (*Pruner, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("retention: store is required")
	}
	sched, err := cronParser.Parse(opts.Schedule)
	if err != nil {
		return nil, fmt.Errorf("retention: schedule %q: %w", opts.Schedule, err)
	}
	p := &Pruner{
		store:    opts.Store,
		schedule: sched,
		maxAge:   opts.MaxAge,
		now:      opts.Now,
	}
	if p.maxAge <= 0 {
		p.maxAge = DefaultMaxAge
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// Next returns the duration until the next scheduled run.
func (p *Pruner) Next() time.Duration {
	now := p.now()
	d := p.schedule.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// RunOnce prunes immediately and returns the number of conversations removed.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.maxAge)
	n, err := p.store.PruneEmptyConversations(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention: prune: %w", err)
	}
	return n, nil
}

// Run blocks until ctx is cancelled, pruning at every scheduled time.
// Failures are logged and retried at the next run.
func (p *Pruner) Run(ctx context.Context) {
	timer := time.NewTimer(p.Next())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			n, err := p.RunOnce(ctx)
			if err != nil {
				logger.Error("retention run failed", "err", err)
			} else if n > 0 {
				logger.Info("pruned empty conversations", "count", n)
			}
			timer.Reset(p.Next())
		}
	}
}
