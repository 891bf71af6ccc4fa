// Package gormstore persists voice state in PostgreSQL through gorm.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store"
)

type Options struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to PostgreSQL and migrates the voice tables.
func Open(opts Options) (*Store, error) {
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  opts.DSN,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:         logger.Default.LogMode(opts.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	s := New(db)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "store.gorm").Msg("database connected")
	return s, nil
}

// New wraps an already opened connection.
func New(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&tenantConfigModel{}, &activeRoomModel{}, &userPreferenceModel{}); err != nil {
		return fmt.Errorf("migrate voice tables: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

func (s *Store) GetConfig(ctx context.Context, guild domain.GuildID) (*domain.TenantVoiceConfig, error) {
	var m tenantConfigModel
	if err := s.db.WithContext(ctx).First(&m, "guild_id = ?", string(guild)).Error; err != nil {
		return nil, notFound(err)
	}
	return m.toDomain(), nil
}

func (s *Store) SaveConfig(ctx context.Context, cfg *domain.TenantVoiceConfig) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(configToModel(cfg)).Error
}

func (s *Store) CreateRoom(ctx context.Context, room *domain.ActiveRoom) error {
	err := s.db.WithContext(ctx).Create(roomToModel(room)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return store.ErrExists
	}
	return err
}

func (s *Store) GetRoom(ctx context.Context, guild domain.GuildID, channel domain.ChannelID) (*domain.ActiveRoom, error) {
	var m activeRoomModel
	err := s.db.WithContext(ctx).
		First(&m, "guild_id = ? AND channel_id = ?", string(guild), string(channel)).Error
	if err != nil {
		return nil, notFound(err)
	}
	return decodeRoom(&m), nil
}

// decodeRoom keeps rows with corrupt id lists, logging the damage.
func decodeRoom(m *activeRoomModel) *domain.ActiveRoom {
	r, err := m.toDomain()
	if err != nil {
		log.Warn().Err(err).Str("module", "store.gorm").
			Str("guild", m.GuildID).Str("room", m.ChannelID).
			Msg("room has corrupt id lists, treating them as empty")
	}
	return r
}

func (s *Store) UpdateRoom(ctx context.Context, room *domain.ActiveRoom) error {
	res := s.db.WithContext(ctx).
		Model(&activeRoomModel{}).
		Where("guild_id = ? AND channel_id = ?", string(room.GuildID), string(room.ChannelID)).
		Select("*").
		Updates(roomToModel(room))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteRoom(ctx context.Context, guild domain.GuildID, channel domain.ChannelID) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("guild_id = ? AND channel_id = ?", string(guild), string(channel)).
		Delete(&activeRoomModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) TouchRoom(ctx context.Context, guild domain.GuildID, channel domain.ChannelID, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&activeRoomModel{}).
		Where("guild_id = ? AND channel_id = ?", string(guild), string(channel)).
		Update("last_active_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListRooms(ctx context.Context, guild domain.GuildID) ([]*domain.ActiveRoom, error) {
	return s.findRooms(ctx, "guild_id = ?", string(guild))
}

func (s *Store) ListRoomsByOwner(ctx context.Context, guild domain.GuildID, owner domain.UserID) ([]*domain.ActiveRoom, error) {
	return s.findRooms(ctx, "guild_id = ? AND owner_id = ?", string(guild), string(owner))
}

func (s *Store) findRooms(ctx context.Context, query string, args ...any) ([]*domain.ActiveRoom, error) {
	var rows []activeRoomModel
	if err := s.db.WithContext(ctx).Where(query, args...).Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.ActiveRoom, 0, len(rows))
	for i := range rows {
		out = append(out, decodeRoom(&rows[i]))
	}
	return out, nil
}

func (s *Store) GetPreference(ctx context.Context, guild domain.GuildID, user domain.UserID) (*domain.UserPreference, error) {
	var m userPreferenceModel
	err := s.db.WithContext(ctx).
		First(&m, "guild_id = ? AND user_id = ?", string(guild), string(user)).Error
	if err != nil {
		return nil, notFound(err)
	}
	return m.toDomain()
}

func (s *Store) SavePreference(ctx context.Context, pref *domain.UserPreference) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(prefToModel(pref)).Error
}

func (s *Store) DeletePreference(ctx context.Context, guild domain.GuildID, user domain.UserID) error {
	return s.db.WithContext(ctx).
		Where("guild_id = ? AND user_id = ?", string(guild), string(user)).
		Delete(&userPreferenceModel{}).Error
}
