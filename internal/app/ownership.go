package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store"
)

// OwnershipTransfer hands a room's privileged access to another member.
type OwnershipTransfer struct {
	Store    store.RoomRepository
	Platform core.Platform
	Registry *Registry
	Metrics  *Metrics
}

// Transfer demotes the current owner to member access, promotes newOwner,
// and records the new owner. Lock state and lists are left alone. It
// returns false when newOwner already owns the room.
func (o *OwnershipTransfer) Transfer(ctx context.Context, guild domain.GuildID, room domain.ChannelID, newOwner domain.UserID) (bool, Decoration, error) {
	var dec Decoration
	if newOwner.IsZero() {
		return false, dec, fmt.Errorf("new owner: %w", domain.ErrInvalidID)
	}
	unlock := o.Registry.LockRoom(room)
	defer unlock()

	row, err := loadRoom(ctx, o.Store, guild, room)
	if err != nil {
		return false, dec, err
	}
	if row.OwnerID == newOwner {
		return false, dec, nil
	}
	member, err := o.Platform.Member(ctx, guild, newOwner)
	if err != nil {
		return false, dec, fmt.Errorf("new owner: %w", err)
	}
	if member.Bot {
		return false, dec, fmt.Errorf("new owner is a bot: %w", domain.ErrInvalidID)
	}

	previous := row.OwnerID
	for _, s := range row.Surfaces() {
		demote := domain.MemberOverwrite(previous, domain.MemberAccess, 0)
		dec.Record(step("demote", row, s), o.Platform.SetOverwrite(ctx, s, demote))
		promote := domain.MemberOverwrite(newOwner, domain.OwnerAccess, 0)
		dec.Record(step("promote", row, s), o.Platform.SetOverwrite(ctx, s, promote))
	}

	row.OwnerID = newOwner
	if err := saveRoom(ctx, o.Store, row); err != nil {
		return false, dec, err
	}

	l := log.With().Str("module", "app.ownership").Str("guild", string(guild)).Str("room", string(room)).Logger()
	dec.Report(l, o.Metrics)
	l.Info().Str("from", string(previous)).Str("to", string(newOwner)).Msg("ownership transferred")
	return true, dec, nil
}
