package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store"
)

// AccessController keeps a room's lock state and allow/deny lists, and the
// permission overwrites on both of its surfaces, in step.
type AccessController struct {
	Store    store.RoomRepository
	Platform core.Platform
	Registry *Registry
	Metrics  *Metrics
	// BotID is never stripped of its grants.
	BotID domain.UserID
}

// SetLocked locks or unlocks a room. Locking hides the room from the
// guild's default role and grants access to the allow-list only.
func (a *AccessController) SetLocked(ctx context.Context, guild domain.GuildID, room domain.ChannelID, locked bool) (*domain.ActiveRoom, Decoration, error) {
	var dec Decoration
	unlock := a.Registry.LockRoom(room)
	defer unlock()

	row, err := loadRoom(ctx, a.Store, guild, room)
	if err != nil {
		return nil, dec, err
	}
	if row.Locked != locked {
		row.Locked = locked
		if err := saveRoom(ctx, a.Store, row); err != nil {
			return nil, dec, err
		}
	}
	if locked {
		a.ApplyLock(ctx, row, &dec)
	} else {
		a.applyUnlock(ctx, row, &dec)
	}
	a.report(row, "lock", &dec)
	return row, dec, nil
}

// Allow puts user on the allow-list and off the deny-list. On a locked room
// they get access right away.
func (a *AccessController) Allow(ctx context.Context, guild domain.GuildID, room domain.ChannelID, user domain.UserID) (*domain.ActiveRoom, Decoration, error) {
	var dec Decoration
	if user.IsZero() {
		return nil, dec, fmt.Errorf("user: %w", domain.ErrInvalidID)
	}
	unlock := a.Registry.LockRoom(room)
	defer unlock()

	row, err := loadRoom(ctx, a.Store, guild, room)
	if err != nil {
		return nil, dec, err
	}
	var added, undenied bool
	row.Allowed, added = row.Allowed.With(user)
	row.Denied, undenied = row.Denied.Without(user)
	if added || undenied {
		if err := saveRoom(ctx, a.Store, row); err != nil {
			return nil, dec, err
		}
	}

	for _, s := range row.Surfaces() {
		if undenied {
			dec.Record(step("undeny", row, s), a.Platform.RemoveOverwrite(ctx, s, string(user)))
		}
		if row.Locked && user != row.OwnerID {
			ow := domain.MemberOverwrite(user, domain.GuestAccess, 0)
			dec.Record(step("allow", row, s), a.Platform.SetOverwrite(ctx, s, ow))
		}
	}
	a.report(row, "allow", &dec)
	return row, dec, nil
}

// Deny puts user on the deny-list, revokes their access and disconnects
// them if they are in the room. The owner cannot be denied.
func (a *AccessController) Deny(ctx context.Context, guild domain.GuildID, room domain.ChannelID, user domain.UserID) (*domain.ActiveRoom, Decoration, error) {
	var dec Decoration
	if user.IsZero() {
		return nil, dec, fmt.Errorf("user: %w", domain.ErrInvalidID)
	}
	unlock := a.Registry.LockRoom(room)
	defer unlock()

	row, err := loadRoom(ctx, a.Store, guild, room)
	if err != nil {
		return nil, dec, err
	}
	if user == row.OwnerID {
		return nil, dec, domain.ErrCannotDenyOwner
	}
	var added, unallowed bool
	row.Denied, added = row.Denied.With(user)
	row.Allowed, unallowed = row.Allowed.Without(user)
	if added || unallowed {
		if err := saveRoom(ctx, a.Store, row); err != nil {
			return nil, dec, err
		}
	}

	ow := domain.MemberOverwrite(user, 0, domain.DeniedAccess)
	for _, s := range row.Surfaces() {
		dec.Record(step("deny", row, s), a.Platform.SetOverwrite(ctx, s, ow))
	}
	occupants, err := a.Platform.Occupants(ctx, guild, room)
	switch {
	case err != nil:
		dec.Record("occupants", err)
	case slices.Contains(occupants, user):
		dec.Record("disconnect", a.Platform.MoveMember(ctx, guild, user, ""))
	}
	a.report(row, "deny", &dec)
	return row, dec, nil
}

// ApplyLock hides both surfaces from the default role, grants access to
// every allow-listed member and removes member grants nobody holds any
// more. The owner and the bot keep theirs.
func (a *AccessController) ApplyLock(ctx context.Context, row *domain.ActiveRoom, dec *Decoration) {
	deny := domain.RoleOverwrite(row.GuildID.DefaultRole(), 0, domain.LockedDeny)
	for _, s := range row.Surfaces() {
		dec.Record(step("lock", row, s), a.Platform.SetOverwrite(ctx, s, deny))
		for _, id := range row.Allowed {
			if id == row.OwnerID {
				continue
			}
			ow := domain.MemberOverwrite(id, domain.GuestAccess, 0)
			dec.Record(step("allow", row, s), a.Platform.SetOverwrite(ctx, s, ow))
		}

		current, err := a.Platform.Overwrites(ctx, s)
		if err != nil {
			dec.Record(step("overwrites", row, s), err)
			continue
		}
		for _, ow := range current {
			id := domain.UserID(ow.TargetID)
			if ow.Kind != domain.OverwriteMember || ow.Allow&domain.GuestAccess == 0 {
				continue
			}
			if id == row.OwnerID || id == a.BotID || row.Allowed.Contains(id) {
				continue
			}
			dec.Record(step("revoke", row, s), a.Platform.RemoveOverwrite(ctx, s, ow.TargetID))
		}
	}
}

// ApplyDenies writes the deny overwrites of every deny-listed member.
func (a *AccessController) ApplyDenies(ctx context.Context, row *domain.ActiveRoom, dec *Decoration) {
	for _, id := range row.Denied {
		if id == row.OwnerID {
			continue
		}
		ow := domain.MemberOverwrite(id, 0, domain.DeniedAccess)
		for _, s := range row.Surfaces() {
			dec.Record(step("deny", row, s), a.Platform.SetOverwrite(ctx, s, ow))
		}
	}
}

// applyUnlock removes the default role overwrite where it carries a deny.
func (a *AccessController) applyUnlock(ctx context.Context, row *domain.ActiveRoom, dec *Decoration) {
	role := string(row.GuildID.DefaultRole())
	for _, s := range row.Surfaces() {
		current, err := a.Platform.Overwrites(ctx, s)
		if err != nil {
			dec.Record(step("overwrites", row, s), err)
			continue
		}
		for _, ow := range current {
			if ow.Kind == domain.OverwriteRole && ow.TargetID == role && ow.Deny&domain.LockedDeny != 0 {
				dec.Record(step("unlock", row, s), a.Platform.RemoveOverwrite(ctx, s, role))
			}
		}
	}
}

func (a *AccessController) report(row *domain.ActiveRoom, op string, dec *Decoration) {
	l := log.With().Str("module", "app.access").Str("op", op).Str("guild", string(row.GuildID)).
		Str("room", string(row.ChannelID)).Logger()
	dec.Report(l, a.Metrics)
	l.Debug().Bool("locked", row.Locked).Int("allowed", len(row.Allowed)).Int("denied", len(row.Denied)).Msg("access updated")
}

// step names a decoration step after the surface it touched.
func step(name string, row *domain.ActiveRoom, surface domain.ChannelID) string {
	if surface == row.ChannelID {
		return name + ".voice"
	}
	return name + ".text"
}

func loadRoom(ctx context.Context, s store.RoomRepository, guild domain.GuildID, room domain.ChannelID) (*domain.ActiveRoom, error) {
	if guild.IsZero() || room.IsZero() {
		return nil, domain.ErrInvalidID
	}
	row, err := s.GetRoom(ctx, guild, room)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load room: %w", err)
	}
	return row, nil
}

func saveRoom(ctx context.Context, s store.RoomRepository, row *domain.ActiveRoom) error {
	err := s.UpdateRoom(ctx, row)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ErrRoomNotFound
	}
	if err != nil {
		return fmt.Errorf("save room: %w", err)
	}
	return nil
}
