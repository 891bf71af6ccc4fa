package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/dkeye/tempvoice/internal/clock"
	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store"
)

// Reconciler rebuilds a guild's slice of the registry from stored rows and
// the live platform state.
type Reconciler struct {
	Store     store.RoomRepository
	Platform  core.Platform
	Registry  *Registry
	Teardown  *Teardown
	Reaper    *Reaper
	Ledger    IdleLedger
	Configs   *ConfigService
	Clock     clock.Clock
	Workers   int
}

type RebuildReport struct {
	Rooms  int
	Purged int
	Idle   int
}

type roomState struct {
	row       *domain.ActiveRoom
	occupants int
}

// Rebuild loads the guild's rows, purges those whose channel is gone,
// registers the rest and resumes eviction for the empty ones. Idle marks
// found in the ledger keep their original time.
func (rc *Reconciler) Rebuild(ctx context.Context, guild domain.GuildID) (RebuildReport, error) {
	var rep RebuildReport
	if guild.IsZero() {
		return rep, domain.ErrInvalidID
	}
	l := log.With().Str("module", "app.reconcile").Str("guild", string(guild)).Logger()

	rows, err := rc.Store.ListRooms(ctx, guild)
	if err != nil {
		return rep, fmt.Errorf("list rooms: %w", err)
	}
	marks, err := rc.Ledger.Load(ctx, guild)
	if err != nil {
		l.Warn().Err(err).Msg("idle ledger unavailable, empty rooms restart their timeout")
		marks = nil
	}

	var (
		mu    sync.Mutex
		live  []roomState
		stale []domain.ChannelID
	)
	p := pool.New().WithMaxGoroutines(rc.workers())
	for _, row := range rows {
		p.Go(func() {
			occupants, err := rc.Platform.Occupants(ctx, guild, row.ChannelID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, core.ErrChannelNotFound):
				stale = append(stale, row.ChannelID)
			case err != nil:
				l.Warn().Err(err).Str("room", string(row.ChannelID)).Msg("occupancy unknown, keeping room")
				live = append(live, roomState{row: row, occupants: 1})
			default:
				live = append(live, roomState{row: row, occupants: len(occupants)})
			}
		})
	}
	p.Wait()

	ids := make([]domain.ChannelID, 0, len(live))
	for _, s := range live {
		ids = append(ids, s.row.ChannelID)
	}
	for _, id := range rc.Registry.ReplaceTenant(guild, ids) {
		rc.Reaper.Scheduler.Cancel(id)
	}

	for _, id := range stale {
		// Register first so Destroy can find and forget it.
		rc.Registry.Add(guild, id)
		if _, err := rc.Teardown.Destroy(ctx, guild, id, ReasonStale); err != nil {
			l.Warn().Err(err).Str("room", string(id)).Msg("stale room purge failed")
			continue
		}
		rep.Purged++
	}

	now := rc.Clock.Now()
	for _, s := range live {
		id := s.row.ChannelID
		if s.occupants > 0 {
			rc.Reaper.OnOccupied(ctx, guild, id)
			continue
		}
		since, ok := marks[id]
		if !ok || since.After(now) {
			since = now
		}
		if err := rc.Reaper.OnEmptiedSince(ctx, guild, id, since); err != nil {
			l.Warn().Err(err).Str("room", string(id)).Msg("could not resume eviction")
			continue
		}
		if _, idle := rc.Registry.IdleSince(id); idle {
			rep.Idle++
		}
	}
	rep.Rooms = len(live)
	l.Info().Int("rooms", rep.Rooms).Int("purged", rep.Purged).Int("idle", rep.Idle).Msg("guild reconciled")
	return rep, nil
}

// Drop forgets a guild the bot left. Its rows stay in the store and are
// reconciled if the bot joins again.
func (rc *Reconciler) Drop(ctx context.Context, guild domain.GuildID) int {
	rooms := rc.Registry.DropTenant(guild)
	for _, id := range rooms {
		rc.Reaper.Scheduler.Cancel(id)
	}
	if err := rc.Ledger.Drop(ctx, guild); err != nil {
		log.Warn().Str("module", "app.reconcile").Err(err).Str("guild", string(guild)).Msg("idle ledger drop failed")
	}
	rc.Configs.Invalidate(guild)
	return len(rooms)
}

func (rc *Reconciler) workers() int {
	if rc.Workers <= 0 {
		return DefaultSweepWorkers
	}
	return rc.Workers
}
