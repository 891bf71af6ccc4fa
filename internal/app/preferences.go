package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store"
)

// PreferenceService reads and writes what members saved for their rooms.
type PreferenceService struct {
	Store store.PreferenceRepository

	mu sync.Mutex
}

// Get returns the member's preference, or nil when they saved none.
func (s *PreferenceService) Get(ctx context.Context, guild domain.GuildID, user domain.UserID) (*domain.UserPreference, error) {
	pref, err := s.Store.GetPreference(ctx, guild, user)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load preference: %w", err)
	}
	return pref, nil
}

func (s *PreferenceService) Save(ctx context.Context, pref *domain.UserPreference) error {
	if pref.GuildID.IsZero() || pref.UserID.IsZero() {
		return domain.ErrInvalidID
	}
	if err := s.Store.SavePreference(ctx, pref); err != nil {
		return fmt.Errorf("save preference: %w", err)
	}
	return nil
}

// SaveFromRoom stores the room's lock state, keep-alive flag and lists as
// its owner's preference. A saved name, limit and bitrate are kept.
func (s *PreferenceService) SaveFromRoom(ctx context.Context, room *domain.ActiveRoom) (*domain.UserPreference, error) {
	return s.modify(ctx, room.GuildID, room.OwnerID, func(p *domain.UserPreference) {
		p.Locked = room.Locked
		p.KeepAlive = room.KeepAlive
		p.Allowed = slices.Clone(room.Allowed)
		p.Denied = slices.Clone(room.Denied)
	})
}

// Remember records the fields of a room edit as the member's preferred
// name, limit and bitrate.
func (s *PreferenceService) Remember(ctx context.Context, guild domain.GuildID, user domain.UserID, edit core.RoomEdit) (*domain.UserPreference, error) {
	return s.modify(ctx, guild, user, func(p *domain.UserPreference) {
		if edit.Name != nil {
			p.NameTemplate = *edit.Name
		}
		if edit.Limit != nil {
			v := *edit.Limit
			p.Limit = &v
		}
		if edit.Bitrate != nil {
			v := *edit.Bitrate
			p.Bitrate = &v
		}
	})
}

// Reset deletes the member's preference. Deleting a missing one succeeds.
func (s *PreferenceService) Reset(ctx context.Context, guild domain.GuildID, user domain.UserID) error {
	if guild.IsZero() || user.IsZero() {
		return domain.ErrInvalidID
	}
	err := s.Store.DeletePreference(ctx, guild, user)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete preference: %w", err)
	}
	log.Info().Str("module", "app.preferences").Str("guild", string(guild)).Str("user", string(user)).Msg("preference reset")
	return nil
}

func (s *PreferenceService) modify(ctx context.Context, guild domain.GuildID, user domain.UserID, fn func(*domain.UserPreference)) (*domain.UserPreference, error) {
	if guild.IsZero() || user.IsZero() {
		return nil, domain.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	pref, err := s.Get(ctx, guild, user)
	if err != nil {
		return nil, err
	}
	if pref == nil {
		pref = &domain.UserPreference{GuildID: guild, UserID: user}
	}
	fn(pref)
	if err := s.Save(ctx, pref); err != nil {
		return nil, err
	}
	log.Debug().Str("module", "app.preferences").Str("guild", string(guild)).Str("user", string(user)).Msg("preference saved")
	return pref, nil
}
