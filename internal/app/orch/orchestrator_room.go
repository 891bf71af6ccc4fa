package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/tempvoice/internal/app"
	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store"
)

// RoomUpdate carries an operator's room edit; nil fields are left alone.
type RoomUpdate struct {
	Name    *string `json:"name,omitempty"`
	Limit   *int    `json:"limit,omitempty"`
	Bitrate *int    `json:"bitrate,omitempty"`
	Locked  *bool   `json:"locked,omitempty"`
}

func (o *Orchestrator) CreateRoom(ctx context.Context, guild domain.GuildID, user domain.UserID) (*app.CreateResult, error) {
	return o.Factory.CreateRoom(ctx, guild, user)
}

// DeleteRoom destroys a room on behalf of its owner or an admin.
func (o *Orchestrator) DeleteRoom(ctx context.Context, guild domain.GuildID, room domain.ChannelID) error {
	if _, err := o.room(ctx, guild, room); err != nil {
		return err
	}
	if _, err := o.Teardown.Destroy(ctx, guild, room, app.ReasonDeleted); err != nil {
		return err
	}
	return nil
}

// UpdateRoom renames, resizes, changes the bitrate of, or locks a room.
// Each change needs the guild's matching toggle. Name, limit and bitrate
// are remembered as the owner's preference.
func (o *Orchestrator) UpdateRoom(ctx context.Context, guild domain.GuildID, room domain.ChannelID, u RoomUpdate) (*domain.ActiveRoom, error) {
	cfg, err := o.Configs.GetOrCreate(ctx, guild)
	if err != nil {
		return nil, err
	}
	switch {
	case u.Name != nil && !cfg.AllowNameChange:
		return nil, fmt.Errorf("name: %w", domain.ErrCustomizationDisabled)
	case u.Limit != nil && !cfg.AllowLimitChange:
		return nil, fmt.Errorf("limit: %w", domain.ErrCustomizationDisabled)
	case u.Bitrate != nil && !cfg.AllowBitrateChange:
		return nil, fmt.Errorf("bitrate: %w", domain.ErrCustomizationDisabled)
	case u.Locked != nil && !cfg.AllowLock:
		return nil, fmt.Errorf("lock: %w", domain.ErrCustomizationDisabled)
	}
	row, err := o.room(ctx, guild, room)
	if err != nil {
		return nil, err
	}

	var edit core.RoomEdit
	if u.Name != nil {
		name := domain.SanitizeName(*u.Name)
		edit.Name = &name
	}
	if u.Limit != nil {
		limit := domain.ClampLimit(*u.Limit, cfg.MaxLimit)
		edit.Limit = &limit
	}
	if u.Bitrate != nil {
		g, err := o.Platform.Guild(ctx, guild)
		if err != nil {
			return nil, fmt.Errorf("load guild: %w", err)
		}
		bitrate := domain.ClampBitrate(*u.Bitrate, cfg.MaxBitrate, g.Tier)
		edit.Bitrate = &bitrate
	}
	if edit.Name != nil || edit.Limit != nil || edit.Bitrate != nil {
		if err := o.Platform.EditRoom(ctx, room, edit); err != nil {
			if errors.Is(err, core.ErrChannelNotFound) {
				o.RoomDestroyedExternally(ctx, guild, room)
				return nil, domain.ErrRoomNotFound
			}
			return nil, fmt.Errorf("edit room: %w", err)
		}
		if _, err := o.Preferences.Remember(ctx, guild, row.OwnerID, edit); err != nil {
			log.Warn().Str("module", "app.orch").Err(err).Str("room", string(room)).Msg("room edit not remembered")
		}
	}
	if u.Locked != nil {
		if row, _, err = o.Access.SetLocked(ctx, guild, room, *u.Locked); err != nil {
			return nil, err
		}
	}
	return row, nil
}

// SetKeepAlive exempts a room from, or returns it to, idle eviction.
func (o *Orchestrator) SetKeepAlive(ctx context.Context, guild domain.GuildID, room domain.ChannelID, keep bool) (*domain.ActiveRoom, error) {
	unlock := o.Registry.LockRoom(room)
	row, err := o.room(ctx, guild, room)
	if err == nil && row.KeepAlive != keep {
		row.KeepAlive = keep
		err = o.Store.UpdateRoom(ctx, row)
		if errors.Is(err, store.ErrNotFound) {
			err = domain.ErrRoomNotFound
		}
	}
	unlock()
	if err != nil {
		return nil, err
	}

	if keep {
		o.Reaper.OnOccupied(ctx, guild, room)
		return row, nil
	}
	occupants, err := o.Platform.Occupants(ctx, guild, room)
	if err != nil {
		log.Warn().Str("module", "app.orch").Err(err).Str("room", string(room)).Msg("occupancy check failed")
		return row, nil
	}
	if len(occupants) == 0 {
		if err := o.Reaper.OnEmptied(ctx, guild, room); err != nil {
			return nil, err
		}
	}
	return row, nil
}

func (o *Orchestrator) SetLocked(ctx context.Context, guild domain.GuildID, room domain.ChannelID, locked bool) (*domain.ActiveRoom, error) {
	row, _, err := o.Access.SetLocked(ctx, guild, room, locked)
	return row, err
}

func (o *Orchestrator) Allow(ctx context.Context, guild domain.GuildID, room domain.ChannelID, user domain.UserID) (*domain.ActiveRoom, error) {
	row, _, err := o.Access.Allow(ctx, guild, room, user)
	return row, err
}

func (o *Orchestrator) Deny(ctx context.Context, guild domain.GuildID, room domain.ChannelID, user domain.UserID) (*domain.ActiveRoom, error) {
	row, _, err := o.Access.Deny(ctx, guild, room, user)
	return row, err
}

func (o *Orchestrator) TransferOwnership(ctx context.Context, guild domain.GuildID, room domain.ChannelID, user domain.UserID) (bool, error) {
	ok, _, err := o.Ownership.Transfer(ctx, guild, room, user)
	return ok, err
}

// SavePreferenceFromRoom stores the room's current access state as its
// owner's preference.
func (o *Orchestrator) SavePreferenceFromRoom(ctx context.Context, guild domain.GuildID, room domain.ChannelID) (*domain.UserPreference, error) {
	row, err := o.room(ctx, guild, room)
	if err != nil {
		return nil, err
	}
	return o.Preferences.SaveFromRoom(ctx, row)
}

func (o *Orchestrator) ResetPreference(ctx context.Context, guild domain.GuildID, user domain.UserID) error {
	return o.Preferences.Reset(ctx, guild, user)
}

func (o *Orchestrator) ListActiveRooms(ctx context.Context, guild domain.GuildID) ([]*domain.ActiveRoom, error) {
	if guild.IsZero() {
		return nil, domain.ErrInvalidID
	}
	return o.Store.ListRooms(ctx, guild)
}

func (o *Orchestrator) ListUserRooms(ctx context.Context, guild domain.GuildID, user domain.UserID) ([]*domain.ActiveRoom, error) {
	if guild.IsZero() || user.IsZero() {
		return nil, domain.ErrInvalidID
	}
	return o.Store.ListRoomsByOwner(ctx, guild, user)
}

// Sweep runs a reaper sweep now.
func (o *Orchestrator) Sweep(ctx context.Context) (int, bool) {
	return o.Reaper.Sweep(ctx)
}

func (o *Orchestrator) room(ctx context.Context, guild domain.GuildID, room domain.ChannelID) (*domain.ActiveRoom, error) {
	if guild.IsZero() || room.IsZero() {
		return nil, domain.ErrInvalidID
	}
	row, err := o.Store.GetRoom(ctx, guild, room)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load room: %w", err)
	}
	return row, nil
}
