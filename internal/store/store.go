// Package store defines persistence for voice configs, active rooms and
// member preferences. Backends live in subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/tempvoice/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

type ConfigRepository interface {
	GetConfig(ctx context.Context, guild domain.GuildID) (*domain.TenantVoiceConfig, error)
	SaveConfig(ctx context.Context, cfg *domain.TenantVoiceConfig) error
}

type RoomRepository interface {
	CreateRoom(ctx context.Context, room *domain.ActiveRoom) error
	GetRoom(ctx context.Context, guild domain.GuildID, channel domain.ChannelID) (*domain.ActiveRoom, error)
	// UpdateRoom overwrites an existing row. It returns ErrNotFound when the
	// row was deleted in the meantime.
	UpdateRoom(ctx context.Context, room *domain.ActiveRoom) error
	// DeleteRoom reports whether this call removed the row. Only one of
	// several concurrent callers sees true.
	DeleteRoom(ctx context.Context, guild domain.GuildID, channel domain.ChannelID) (bool, error)
	TouchRoom(ctx context.Context, guild domain.GuildID, channel domain.ChannelID, at time.Time) error
	ListRooms(ctx context.Context, guild domain.GuildID) ([]*domain.ActiveRoom, error)
	ListRoomsByOwner(ctx context.Context, guild domain.GuildID, owner domain.UserID) ([]*domain.ActiveRoom, error)
}

type PreferenceRepository interface {
	GetPreference(ctx context.Context, guild domain.GuildID, user domain.UserID) (*domain.UserPreference, error)
	SavePreference(ctx context.Context, pref *domain.UserPreference) error
	DeletePreference(ctx context.Context, guild domain.GuildID, user domain.UserID) error
}

type Store interface {
	ConfigRepository
	RoomRepository
	PreferenceRepository
}
