package gormstore

import (
	"errors"
	"time"

	"github.com/dkeye/tempvoice/internal/domain"
)

type tenantConfigModel struct {
	GuildID             string `gorm:"primaryKey;type:varchar(32)"`
	HubChannelID        string `gorm:"type:varchar(32)"`
	CategoryID          string `gorm:"type:varchar(32)"`
	NameTemplate        string `gorm:"type:varchar(200)"`
	DefaultLimit        int
	MaxLimit            int
	DefaultBitrate      int
	MaxBitrate          int
	DeleteWhenEmpty     bool
	EmptyTimeoutMinutes int
	AllowMultipleRooms  bool
	AllowNameChange     bool
	AllowLimitChange    bool
	AllowBitrateChange  bool
	AllowLock           bool
	AutoPermission      bool
	AdminRoleID         string `gorm:"type:varchar(32)"`
	UpdatedAt           time.Time
}

func (tenantConfigModel) TableName() string { return "tenant_voice_configs" }

func configToModel(c *domain.TenantVoiceConfig) *tenantConfigModel {
	return &tenantConfigModel{
		GuildID:             string(c.GuildID),
		HubChannelID:        string(c.HubChannelID),
		CategoryID:          string(c.CategoryID),
		NameTemplate:        c.NameTemplate,
		DefaultLimit:        c.DefaultLimit,
		MaxLimit:            c.MaxLimit,
		DefaultBitrate:      c.DefaultBitrate,
		MaxBitrate:          c.MaxBitrate,
		DeleteWhenEmpty:     c.DeleteWhenEmpty,
		EmptyTimeoutMinutes: c.EmptyTimeoutMinutes,
		AllowMultipleRooms:  c.AllowMultipleRooms,
		AllowNameChange:     c.AllowNameChange,
		AllowLimitChange:    c.AllowLimitChange,
		AllowBitrateChange:  c.AllowBitrateChange,
		AllowLock:           c.AllowLock,
		AutoPermission:      c.AutoPermission,
		AdminRoleID:         string(c.AdminRoleID),
		UpdatedAt:           c.UpdatedAt,
	}
}

func (m *tenantConfigModel) toDomain() *domain.TenantVoiceConfig {
	return &domain.TenantVoiceConfig{
		GuildID:             domain.GuildID(m.GuildID),
		HubChannelID:        domain.ChannelID(m.HubChannelID),
		CategoryID:          domain.ChannelID(m.CategoryID),
		NameTemplate:        m.NameTemplate,
		DefaultLimit:        m.DefaultLimit,
		MaxLimit:            m.MaxLimit,
		DefaultBitrate:      m.DefaultBitrate,
		MaxBitrate:          m.MaxBitrate,
		DeleteWhenEmpty:     m.DeleteWhenEmpty,
		EmptyTimeoutMinutes: m.EmptyTimeoutMinutes,
		AllowMultipleRooms:  m.AllowMultipleRooms,
		AllowNameChange:     m.AllowNameChange,
		AllowLimitChange:    m.AllowLimitChange,
		AllowBitrateChange:  m.AllowBitrateChange,
		AllowLock:           m.AllowLock,
		AutoPermission:      m.AutoPermission,
		AdminRoleID:         domain.RoleID(m.AdminRoleID),
		UpdatedAt:           m.UpdatedAt,
	}
}

type activeRoomModel struct {
	GuildID       string `gorm:"primaryKey;type:varchar(32)"`
	ChannelID     string `gorm:"primaryKey;type:varchar(32)"`
	TextChannelID string `gorm:"type:varchar(32)"`
	OwnerID       string `gorm:"type:varchar(32);index:idx_active_rooms_owner"`
	CreatedAt     time.Time
	LastActiveAt  time.Time
	Locked        bool
	KeepAlive     bool
	Allowed       string `gorm:"type:text"`
	Denied        string `gorm:"type:text"`
}

func (activeRoomModel) TableName() string { return "active_rooms" }

func roomToModel(r *domain.ActiveRoom) *activeRoomModel {
	return &activeRoomModel{
		GuildID:       string(r.GuildID),
		ChannelID:     string(r.ChannelID),
		TextChannelID: string(r.TextChannelID),
		OwnerID:       string(r.OwnerID),
		CreatedAt:     r.CreatedAt,
		LastActiveAt:  r.LastActiveAt,
		Locked:        r.Locked,
		KeepAlive:     r.KeepAlive,
		Allowed:       r.Allowed.Encode(),
		Denied:        r.Denied.Encode(),
	}
}

// toDomain always returns the room. A corrupt id list decodes as empty and
// is reported in err, so the row stays visible to cleanup and replacement.
func (m *activeRoomModel) toDomain() (*domain.ActiveRoom, error) {
	allowed, errA := domain.ParseIDList(m.Allowed)
	if errA != nil {
		allowed = domain.IDList{}
	}
	denied, errD := domain.ParseIDList(m.Denied)
	if errD != nil {
		denied = domain.IDList{}
	}
	return &domain.ActiveRoom{
		GuildID:       domain.GuildID(m.GuildID),
		ChannelID:     domain.ChannelID(m.ChannelID),
		TextChannelID: domain.ChannelID(m.TextChannelID),
		OwnerID:       domain.UserID(m.OwnerID),
		CreatedAt:     m.CreatedAt,
		LastActiveAt:  m.LastActiveAt,
		Locked:        m.Locked,
		KeepAlive:     m.KeepAlive,
		Allowed:       allowed,
		Denied:        denied,
	}, errors.Join(errA, errD)
}

type userPreferenceModel struct {
	GuildID      string `gorm:"primaryKey;type:varchar(32)"`
	UserID       string `gorm:"primaryKey;type:varchar(32)"`
	NameTemplate string `gorm:"type:varchar(200)"`
	Limit        *int   `gorm:"column:occupant_limit"`
	Bitrate      *int
	Locked       bool
	KeepAlive    bool
	Allowed      string `gorm:"type:text"`
	Denied       string `gorm:"type:text"`
	UpdatedAt    time.Time
}

func (userPreferenceModel) TableName() string { return "user_preferences" }

func prefToModel(p *domain.UserPreference) *userPreferenceModel {
	return &userPreferenceModel{
		GuildID:      string(p.GuildID),
		UserID:       string(p.UserID),
		NameTemplate: p.NameTemplate,
		Limit:        p.Limit,
		Bitrate:      p.Bitrate,
		Locked:       p.Locked,
		KeepAlive:    p.KeepAlive,
		Allowed:      p.Allowed.Encode(),
		Denied:       p.Denied.Encode(),
	}
}

func (m *userPreferenceModel) toDomain() (*domain.UserPreference, error) {
	allowed, err := domain.ParseIDList(m.Allowed)
	if err != nil {
		return nil, err
	}
	denied, err := domain.ParseIDList(m.Denied)
	if err != nil {
		return nil, err
	}
	return &domain.UserPreference{
		GuildID:      domain.GuildID(m.GuildID),
		UserID:       domain.UserID(m.UserID),
		NameTemplate: m.NameTemplate,
		Limit:        m.Limit,
		Bitrate:      m.Bitrate,
		Locked:       m.Locked,
		KeepAlive:    m.KeepAlive,
		Allowed:      allowed,
		Denied:       denied,
	}, nil
}
