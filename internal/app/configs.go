package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/dkeye/tempvoice/internal/clock"
	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store"
)

const DefaultConfigTTL = time.Minute

type cachedConfig struct {
	cfg     *domain.TenantVoiceConfig
	expires time.Time
}

// ConfigService hands out per-guild voice configs. Configs are created on
// first access, repaired against the platform's limits on every load, and
// cached for a short while.
type ConfigService struct {
	store    store.ConfigRepository
	platform core.Platform
	clock    clock.Clock
	ttl      time.Duration

	group   singleflight.Group
	mu      sync.RWMutex
	cache   map[domain.GuildID]cachedConfig
	writeMu sync.Mutex
}

func NewConfigService(s store.ConfigRepository, p core.Platform, c clock.Clock, ttl time.Duration) *ConfigService {
	if ttl <= 0 {
		ttl = DefaultConfigTTL
	}
	return &ConfigService{
		store:    s,
		platform: p,
		clock:    c,
		ttl:      ttl,
		cache:    make(map[domain.GuildID]cachedConfig),
	}
}

// GetOrCreate returns a copy of the guild's config, creating it with
// defaults when the guild has none yet.
func (s *ConfigService) GetOrCreate(ctx context.Context, guild domain.GuildID) (*domain.TenantVoiceConfig, error) {
	if guild.IsZero() {
		return nil, fmt.Errorf("guild: %w", domain.ErrInvalidID)
	}
	if cfg, ok := s.cached(guild); ok {
		return cfg, nil
	}
	v, err, _ := s.group.Do(string(guild), func() (any, error) {
		if cfg, ok := s.cached(guild); ok {
			return cfg, nil
		}
		return s.load(ctx, guild)
	})
	if err != nil {
		return nil, err
	}
	c := *v.(*domain.TenantVoiceConfig)
	return &c, nil
}

func (s *ConfigService) load(ctx context.Context, guild domain.GuildID) (*domain.TenantVoiceConfig, error) {
	created := false
	cfg, err := s.store.GetConfig(ctx, guild)
	switch {
	case errors.Is(err, store.ErrNotFound):
		cfg = domain.DefaultTenantConfig(guild)
		created = true
	case err != nil:
		return nil, fmt.Errorf("load voice config: %w", err)
	}

	if changed := cfg.Normalize(s.tier(ctx, guild)); created || changed {
		cfg.UpdatedAt = s.clock.Now()
		if err := s.store.SaveConfig(ctx, cfg); err != nil {
			return nil, fmt.Errorf("save voice config: %w", err)
		}
		if created {
			log.Info().Str("module", "app.config").Str("guild", string(guild)).Msg("voice config created")
		} else {
			log.Info().Str("module", "app.config").Str("guild", string(guild)).
				Int("max_bitrate", cfg.MaxBitrate).Int("max_limit", cfg.MaxLimit).Msg("voice config repaired")
		}
	}
	s.put(cfg)
	return cfg, nil
}

// Update applies an admin change. Hub and category must be channels of the
// right kind in the guild.
func (s *ConfigService) Update(ctx context.Context, guild domain.GuildID, u domain.ConfigUpdate) (*domain.TenantVoiceConfig, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.Invalidate(guild)
	cfg, err := s.GetOrCreate(ctx, guild)
	if err != nil {
		return nil, err
	}
	u.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if u.HubChannelID != nil && !u.HubChannelID.IsZero() {
		if err := s.checkChannel(ctx, guild, *u.HubChannelID, core.ChannelVoice, domain.ErrUnknownChannel); err != nil {
			return nil, fmt.Errorf("hub channel: %w", err)
		}
	}
	if u.CategoryID != nil && !u.CategoryID.IsZero() {
		if err := s.checkChannel(ctx, guild, *u.CategoryID, core.ChannelCategory, domain.ErrUnknownCategory); err != nil {
			return nil, fmt.Errorf("category: %w", err)
		}
	}
	cfg.Normalize(s.tier(ctx, guild))
	cfg.UpdatedAt = s.clock.Now()
	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save voice config: %w", err)
	}
	s.put(cfg)
	log.Info().Str("module", "app.config").Str("guild", string(guild)).Msg("voice config updated")

	out := *cfg
	return &out, nil
}

// Invalidate drops the cached config of a guild.
func (s *ConfigService) Invalidate(guild domain.GuildID) {
	s.mu.Lock()
	delete(s.cache, guild)
	s.mu.Unlock()
}

// CheckCategory verifies that id is a category of guild.
func (s *ConfigService) CheckCategory(ctx context.Context, guild domain.GuildID, id domain.ChannelID) error {
	return s.checkChannel(ctx, guild, id, core.ChannelCategory, domain.ErrUnknownCategory)
}

func (s *ConfigService) checkChannel(ctx context.Context, guild domain.GuildID, id domain.ChannelID, kind core.ChannelKind, unknown error) error {
	ch, err := s.platform.Channel(ctx, id)
	if errors.Is(err, core.ErrChannelNotFound) {
		return unknown
	}
	if err != nil {
		return err
	}
	if ch.GuildID != guild || ch.Kind != kind {
		return unknown
	}
	return nil
}

// tier falls back to the highest tier when the guild cannot be read, so a
// platform hiccup never lowers a stored maximum.
func (s *ConfigService) tier(ctx context.Context, guild domain.GuildID) domain.Tier {
	g, err := s.platform.Guild(ctx, guild)
	if err != nil {
		log.Warn().Str("module", "app.config").Err(err).Str("guild", string(guild)).Msg("guild tier unavailable")
		return domain.Tier3
	}
	return g.Tier
}

func (s *ConfigService) cached(guild domain.GuildID) (*domain.TenantVoiceConfig, bool) {
	s.mu.RLock()
	e, ok := s.cache[guild]
	s.mu.RUnlock()
	if !ok || !s.clock.Now().Before(e.expires) {
		return nil, false
	}
	c := *e.cfg
	return &c, true
}

func (s *ConfigService) put(cfg *domain.TenantVoiceConfig) {
	c := *cfg
	s.mu.Lock()
	s.cache[cfg.GuildID] = cachedConfig{cfg: &c, expires: s.clock.Now().Add(s.ttl)}
	s.mu.Unlock()
}
