// Package scheduler polls for games whose phase deadline has passed and
// hands them to a callback. Deadline handling itself stays with the caller;
// the store only reports which games expired.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/tsukino/jinro/internal/services/game/domain/game"
)

// TimedOutGamesFinder is the slice of the store the poller needs.
type TimedOutGamesFinder interface {
	FindTimedOutGames(ctx context.Context) ([]game.Game, error)
}

// Handler receives one timed-out game per call.
type Handler func(ctx context.Context, g game.Game)

// Poller periodically sweeps for timed-out games.
type Poller struct {
	finder   TimedOutGamesFinder
	handler  Handler
	interval time.Duration
	sched    gocron.Scheduler
}

// New builds a poller. A non-positive interval defaults to 10 seconds.
func New(finder TimedOutGamesFinder, handler Handler, interval time.Duration) (*Poller, error) {
	if finder == nil {
		return nil, fmt.Errorf("finder is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}

	return &Poller{
		finder:   finder,
		handler:  handler,
		interval: interval,
		sched:    sched,
	}, nil
}

// Start registers the sweep job and begins polling. The provided context is
// passed through to the finder and handler on every sweep.
func (p *Poller) Start(ctx context.Context) error {
	_, err := p.sched.NewJob(
		gocron.DurationJob(p.interval),
		gocron.NewTask(func() {
			p.sweep(ctx)
		}),
	)
	if err != nil {
		return fmt.Errorf("register sweep job: %w", err)
	}

	p.sched.Start()
	return nil
}

func (p *Poller) sweep(ctx context.Context) {
	games, err := p.finder.FindTimedOutGames(ctx)
	if err != nil {
		log.Printf("[SCHEDULER] find timed out games: %v", err)
		return
	}

	for _, g := range games {
		p.handler(ctx, g)
	}
}

// Stop shuts the scheduler down and waits for running sweeps to finish.
func (p *Poller) Stop() error {
	if err := p.sched.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	return nil
}
