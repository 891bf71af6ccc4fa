// Package memstore is an in-memory store.Store for development and tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store"
)

type roomKey struct {
	guild   domain.GuildID
	channel domain.ChannelID
}

type prefKey struct {
	guild domain.GuildID
	user  domain.UserID
}

type Store struct {
	mu      sync.RWMutex
	configs map[domain.GuildID]domain.TenantVoiceConfig
	rooms   map[roomKey]*domain.ActiveRoom
	prefs   map[prefKey]*domain.UserPreference
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		configs: make(map[domain.GuildID]domain.TenantVoiceConfig),
		rooms:   make(map[roomKey]*domain.ActiveRoom),
		prefs:   make(map[prefKey]*domain.UserPreference),
	}
}

func (s *Store) GetConfig(_ context.Context, guild domain.GuildID) (*domain.TenantVoiceConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[guild]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &cfg, nil
}

func (s *Store) SaveConfig(_ context.Context, cfg *domain.TenantVoiceConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.GuildID] = *cfg
	return nil
}

func (s *Store) CreateRoom(_ context.Context, room *domain.ActiveRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := roomKey{room.GuildID, room.ChannelID}
	if _, ok := s.rooms[k]; ok {
		return store.ErrExists
	}
	s.rooms[k] = room.Clone()
	return nil
}

func (s *Store) GetRoom(_ context.Context, guild domain.GuildID, channel domain.ChannelID) (*domain.ActiveRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[roomKey{guild, channel}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *Store) UpdateRoom(_ context.Context, room *domain.ActiveRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := roomKey{room.GuildID, room.ChannelID}
	if _, ok := s.rooms[k]; !ok {
		return store.ErrNotFound
	}
	s.rooms[k] = room.Clone()
	return nil
}

func (s *Store) DeleteRoom(_ context.Context, guild domain.GuildID, channel domain.ChannelID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := roomKey{guild, channel}
	if _, ok := s.rooms[k]; !ok {
		return false, nil
	}
	delete(s.rooms, k)
	return true, nil
}

func (s *Store) TouchRoom(_ context.Context, guild domain.GuildID, channel domain.ChannelID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomKey{guild, channel}]
	if !ok {
		return store.ErrNotFound
	}
	r.LastActiveAt = at
	return nil
}

func (s *Store) ListRooms(_ context.Context, guild domain.GuildID) ([]*domain.ActiveRoom, error) {
	return s.list(func(r *domain.ActiveRoom) bool { return r.GuildID == guild }), nil
}

func (s *Store) ListRoomsByOwner(_ context.Context, guild domain.GuildID, owner domain.UserID) ([]*domain.ActiveRoom, error) {
	return s.list(func(r *domain.ActiveRoom) bool { return r.GuildID == guild && r.OwnerID == owner }), nil
}

func (s *Store) list(match func(*domain.ActiveRoom) bool) []*domain.ActiveRoom {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.ActiveRoom, 0)
	for _, r := range s.rooms {
		if match(r) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) GetPreference(_ context.Context, guild domain.GuildID, user domain.UserID) (*domain.UserPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prefs[prefKey{guild, user}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *Store) SavePreference(_ context.Context, pref *domain.UserPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[prefKey{pref.GuildID, pref.UserID}] = pref.Clone()
	return nil
}

func (s *Store) DeletePreference(_ context.Context, guild domain.GuildID, user domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prefs, prefKey{guild, user})
	return nil
}
