package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"github.com/dkeye/tempvoice/internal/clock"
	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store"
)

const (
	DefaultSweepInterval = 5 * time.Minute
	DefaultSweepWorkers  = 4
)

// Reaper destroys rooms that stayed empty for their guild's timeout. A
// scheduled task per empty room gives the prompt path; the periodic sweep
// catches rooms whose task was lost, for instance across a restart.
type Reaper struct {
	Configs   *ConfigService
	Store     store.RoomRepository
	Platform  core.Platform
	Registry  *Registry
	Scheduler *Scheduler
	Teardown  *Teardown
	Ledger    IdleLedger
	Policy    EvictionPolicy
	Clock     clock.Clock
	Metrics   *Metrics

	SweepInterval time.Duration
	SweepWorkers  int

	sweepMu sync.Mutex
}

// OnEmptied handles the last occupant leaving a tracked room.
func (r *Reaper) OnEmptied(ctx context.Context, guild domain.GuildID, room domain.ChannelID) error {
	return r.OnEmptiedSince(ctx, guild, room, r.Clock.Now())
}

// OnEmptiedSince is OnEmptied with a known idle-since, used when restoring
// state after a restart.
func (r *Reaper) OnEmptiedSince(ctx context.Context, guild domain.GuildID, room domain.ChannelID, since time.Time) error {
	if !r.Registry.Has(room) {
		return nil
	}
	l := log.With().Str("module", "app.reaper").Str("guild", string(guild)).Str("room", string(room)).Logger()

	row, err := r.Store.GetRoom(ctx, guild, room)
	if errors.Is(err, store.ErrNotFound) {
		r.Teardown.Forget(ctx, guild, room)
		return nil
	}
	if err != nil {
		return err
	}
	cfg, err := r.Configs.GetOrCreate(ctx, guild)
	if err != nil {
		return err
	}

	action, timeout := r.Policy.OnEmpty(cfg, row)
	if action == KeepRoom {
		r.untrack(ctx, guild, room)
		l.Debug().Bool("keep_alive", row.KeepAlive).Msg("empty room kept")
		return nil
	}
	since, ok := r.Registry.MarkIdle(room, since)
	if !ok {
		return nil
	}
	if err := r.Ledger.Record(ctx, guild, room, since); err != nil {
		l.Warn().Err(err).Msg("idle ledger record failed")
	}

	if action == EvictNow {
		l.Debug().Msg("room empty, evicting now")
		r.expire(ctx, guild, room, since)
		return nil
	}
	deadline := since.Add(timeout)
	r.schedule(guild, room, since, deadline)
	l.Debug().Time("deadline", deadline).Msg("room empty, eviction scheduled")
	return nil
}

// OnOccupied handles someone joining a tracked room.
func (r *Reaper) OnOccupied(ctx context.Context, guild domain.GuildID, room domain.ChannelID) {
	if r.untrack(ctx, guild, room) {
		log.Debug().Str("module", "app.reaper").Str("guild", string(guild)).Str("room", string(room)).Msg("room reoccupied")
	}
}

func (r *Reaper) untrack(ctx context.Context, guild domain.GuildID, room domain.ChannelID) bool {
	cancelled := r.Scheduler.Cancel(room)
	cleared := r.Registry.ClearIdle(room)
	if !cancelled && !cleared {
		return false
	}
	if err := r.Ledger.Clear(ctx, guild, room); err != nil {
		log.Warn().Str("module", "app.reaper").Err(err).Str("room", string(room)).Msg("idle ledger clear failed")
	}
	return true
}

func (r *Reaper) schedule(guild domain.GuildID, room domain.ChannelID, since, deadline time.Time) {
	r.Scheduler.Schedule(room, deadline, func(ctx context.Context) {
		r.expire(ctx, guild, room, since)
	})
}

// expire destroys an idle room after checking that it is still the same
// idle period and that nobody is connected. It reports whether the room was
// destroyed.
func (r *Reaper) expire(ctx context.Context, guild domain.GuildID, room domain.ChannelID, since time.Time) bool {
	l := log.With().Str("module", "app.reaper").Str("guild", string(guild)).Str("room", string(room)).Logger()

	current, idle := r.Registry.IdleSince(room)
	if !idle || !current.Equal(since) {
		l.Debug().Msg("eviction no longer applies")
		return false
	}
	occupants, err := r.Platform.Occupants(ctx, guild, room)
	if errors.Is(err, core.ErrChannelNotFound) {
		destroyed, err := r.Teardown.Destroy(ctx, guild, room, ReasonStale)
		if err != nil {
			l.Error().Err(err).Msg("stale room cleanup failed")
		}
		return destroyed
	}
	if err != nil {
		l.Warn().Err(err).Msg("occupancy check failed, leaving room for the sweep")
		return false
	}
	if len(occupants) > 0 {
		l.Debug().Int("occupants", len(occupants)).Msg("room occupied at expiry")
		r.OnOccupied(ctx, guild, room)
		return false
	}

	destroyed, err := r.Teardown.Destroy(ctx, guild, room, ReasonIdle)
	if err != nil {
		l.Error().Err(err).Msg("idle room destroy failed")
	}
	return destroyed
}

// Sweep re-evaluates every idle room and expires the overdue ones. It
// returns the number destroyed, and false when another sweep was running.
func (r *Reaper) Sweep(ctx context.Context) (int, bool) {
	if !r.sweepMu.TryLock() {
		if r.Metrics != nil {
			r.Metrics.SweepsSkipped.Inc()
		}
		log.Debug().Str("module", "app.reaper").Msg("sweep already running, tick skipped")
		return 0, false
	}
	defer r.sweepMu.Unlock()

	started := time.Now()
	now := r.Clock.Now()
	l := log.With().Str("module", "app.reaper").Str("sweep", uuid.NewString()).Logger()

	idle := r.Registry.IdleRooms()
	var destroyed atomic.Int64
	p := pool.New().WithMaxGoroutines(r.workers())
	for _, ir := range idle {
		p.Go(func() {
			if r.sweepOne(ctx, ir, now) {
				destroyed.Add(1)
			}
		})
	}
	p.Wait()

	if r.Metrics != nil {
		r.Metrics.SweepDuration.Observe(time.Since(started).Seconds())
	}
	n := int(destroyed.Load())
	l.Debug().Int("idle", len(idle)).Int("destroyed", n).Msg("sweep finished")
	return n, true
}

func (r *Reaper) sweepOne(ctx context.Context, ir IdleRoom, now time.Time) bool {
	row, err := r.Store.GetRoom(ctx, ir.Guild, ir.Room)
	if errors.Is(err, store.ErrNotFound) {
		r.Teardown.Forget(ctx, ir.Guild, ir.Room)
		return false
	}
	if err != nil {
		log.Warn().Str("module", "app.reaper").Err(err).Str("room", string(ir.Room)).Msg("sweep could not load room")
		return false
	}
	cfg, err := r.Configs.GetOrCreate(ctx, ir.Guild)
	if err != nil {
		log.Warn().Str("module", "app.reaper").Err(err).Str("guild", string(ir.Guild)).Msg("sweep could not load config")
		return false
	}

	action, timeout := r.Policy.OnEmpty(cfg, row)
	switch action {
	case KeepRoom:
		r.untrack(ctx, ir.Guild, ir.Room)
		return false
	case EvictLater:
		if deadline := ir.Since.Add(timeout); now.Before(deadline) {
			if _, ok := r.Scheduler.Pending(ir.Room); !ok {
				r.schedule(ir.Guild, ir.Room, ir.Since, deadline)
			}
			return false
		}
	}
	return r.expire(ctx, ir.Guild, ir.Room, ir.Since)
}

// Run sweeps every SweepInterval until ctx is done. A tick that lands while
// a sweep is still running is skipped.
func (r *Reaper) Run(ctx context.Context) {
	interval := r.SweepInterval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	log.Info().Str("module", "app.reaper").Dur("interval", interval).Msg("reaper started")

	var wg conc.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.reaper").Msg("reaper stopped")
			return
		case <-r.Clock.After(interval):
			wg.Go(func() { r.Sweep(ctx) })
		}
	}
}

func (r *Reaper) workers() int {
	if r.SweepWorkers <= 0 {
		return DefaultSweepWorkers
	}
	return r.SweepWorkers
}
