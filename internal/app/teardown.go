package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store"
)

// Teardown destroys rooms. Every destruction path goes through Destroy, so
// the timer, the sweep, the owner and platform-side deletion cannot remove
// the same room twice.
type Teardown struct {
	Store     store.RoomRepository
	Platform  core.Platform
	Registry  *Registry
	Scheduler *Scheduler
	Ledger    IdleLedger
	Metrics   *Metrics
}

// Destroy deletes the room's channels and row and forgets it. It reports
// whether this call removed the room; a room that is already gone, or is
// being destroyed by someone else, yields false and no error. When the
// platform refuses to delete the room channel the room stays tracked so a
// later sweep can retry.
func (t *Teardown) Destroy(ctx context.Context, guild domain.GuildID, room domain.ChannelID, reason string) (bool, error) {
	l := log.With().Str("module", "app.teardown").Str("guild", string(guild)).
		Str("room", string(room)).Str("reason", reason).Logger()

	if !t.Registry.Claim(room) {
		l.Debug().Msg("destroy already in progress")
		return false, nil
	}
	defer t.Registry.Release(room)

	row, err := t.Store.GetRoom(ctx, guild, room)
	if errors.Is(err, store.ErrNotFound) {
		t.Forget(ctx, guild, room)
		l.Debug().Msg("room already gone")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load room: %w", err)
	}

	t.Scheduler.Cancel(room)
	if !row.TextChannelID.IsZero() {
		if err := t.deleteChannel(ctx, row.TextChannelID); err != nil {
			l.Warn().Err(err).Str("text", string(row.TextChannelID)).Msg("text surface delete failed")
		}
	}
	if err := t.deleteChannel(ctx, room); err != nil {
		return false, fmt.Errorf("delete room channel: %w", err)
	}

	removed, err := t.Store.DeleteRoom(ctx, guild, room)
	if err != nil {
		return false, fmt.Errorf("delete room row: %w", err)
	}
	t.Forget(ctx, guild, room)
	if !removed {
		l.Debug().Msg("room row removed concurrently")
		return false, nil
	}
	if t.Metrics != nil {
		t.Metrics.RoomsDestroyed.WithLabelValues(reason).Inc()
	}
	l.Info().Str("owner", string(row.OwnerID)).Msg("room destroyed")
	return true, nil
}

// Forget drops every piece of in-memory and ledger state about a room.
func (t *Teardown) Forget(ctx context.Context, guild domain.GuildID, room domain.ChannelID) {
	t.Scheduler.Cancel(room)
	t.Registry.Remove(room)
	if err := t.Ledger.Clear(ctx, guild, room); err != nil {
		log.Warn().Str("module", "app.teardown").Err(err).Str("guild", string(guild)).
			Str("room", string(room)).Msg("idle ledger clear failed")
	}
}

func (t *Teardown) deleteChannel(ctx context.Context, id domain.ChannelID) error {
	err := t.Platform.DeleteChannel(ctx, id)
	if errors.Is(err, core.ErrChannelNotFound) {
		return nil
	}
	return err
}
