package domain

import (
	"fmt"
	"time"
)

const DefaultNameTemplate = "{username} room"

// TenantVoiceConfig is the per-guild voice configuration. There is one per
// guild, created lazily and never deleted.
type TenantVoiceConfig struct {
	GuildID      GuildID
	HubChannelID ChannelID
	CategoryID   ChannelID
	NameTemplate string

	DefaultLimit   int
	MaxLimit       int
	DefaultBitrate int
	MaxBitrate     int

	DeleteWhenEmpty     bool
	EmptyTimeoutMinutes int
	AllowMultipleRooms  bool

	AllowNameChange    bool
	AllowLimitChange   bool
	AllowBitrateChange bool
	AllowLock          bool

	AutoPermission bool
	AdminRoleID    RoleID

	UpdatedAt time.Time
}

// DefaultTenantConfig is what a guild gets on first access.
func DefaultTenantConfig(guild GuildID) *TenantVoiceConfig {
	return &TenantVoiceConfig{
		GuildID:             guild,
		NameTemplate:        DefaultNameTemplate,
		DefaultBitrate:      DefaultBitrate,
		MaxBitrate:          BitrateCeiling(TierNone),
		DeleteWhenEmpty:     true,
		EmptyTimeoutMinutes: 1,
		AllowNameChange:     true,
		AllowLimitChange:    true,
		AllowBitrateChange:  true,
		AllowLock:           true,
	}
}

// EmptyTimeout is how long a room may stay empty before it is destroyed.
func (c *TenantVoiceConfig) EmptyTimeout() time.Duration {
	if c.EmptyTimeoutMinutes <= 0 {
		return 0
	}
	return time.Duration(c.EmptyTimeoutMinutes) * time.Minute
}

// Normalize repairs values that drifted away from the platform's rules:
// bitrates stored in kbps, bitrates above the tier ceiling, limits above the
// platform maximum. It reports whether anything changed.
func (c *TenantVoiceConfig) Normalize(tier Tier) bool {
	before := *c
	ceiling := BitrateCeiling(tier)

	c.MaxBitrate = NormalizeBitrate(c.MaxBitrate)
	if c.MaxBitrate <= 0 || c.MaxBitrate > ceiling {
		c.MaxBitrate = ceiling
	}
	c.DefaultBitrate = NormalizeBitrate(c.DefaultBitrate)
	if c.DefaultBitrate <= 0 {
		c.DefaultBitrate = DefaultBitrate
	}
	if c.DefaultBitrate > c.MaxBitrate {
		c.DefaultBitrate = c.MaxBitrate
	}
	if c.DefaultBitrate < MinBitrate {
		c.DefaultBitrate = MinBitrate
	}

	if c.MaxLimit < 0 || c.MaxLimit > MaxOccupantLimit {
		c.MaxLimit = MaxOccupantLimit
	}
	c.DefaultLimit = ClampLimit(c.DefaultLimit, c.MaxLimit)
	if c.EmptyTimeoutMinutes < 0 {
		c.EmptyTimeoutMinutes = 0
	}
	return before != *c
}

// Validate checks an admin-supplied config before it is stored.
func (c *TenantVoiceConfig) Validate() error {
	if c.GuildID.IsZero() {
		return fmt.Errorf("guild: %w", ErrInvalidID)
	}
	if c.DefaultLimit < 0 || c.DefaultLimit > MaxOccupantLimit || c.MaxLimit < 0 || c.MaxLimit > MaxOccupantLimit {
		return fmt.Errorf("occupant limit must be within 0..%d: %w", MaxOccupantLimit, ErrInvalidConfig)
	}
	if c.DefaultBitrate < 0 || c.MaxBitrate < 0 {
		return fmt.Errorf("bitrate must not be negative: %w", ErrInvalidConfig)
	}
	if c.EmptyTimeoutMinutes < 0 {
		return fmt.Errorf("empty timeout must not be negative: %w", ErrInvalidConfig)
	}
	return nil
}

// ConfigUpdate carries the fields an admin wants to change; nil fields are
// left alone.
type ConfigUpdate struct {
	HubChannelID        *ChannelID `json:"hub_channel_id,omitempty"`
	CategoryID          *ChannelID `json:"category_id,omitempty"`
	NameTemplate        *string    `json:"name_template,omitempty"`
	DefaultLimit        *int       `json:"default_limit,omitempty"`
	MaxLimit            *int       `json:"max_limit,omitempty"`
	DefaultBitrate      *int       `json:"default_bitrate,omitempty"`
	MaxBitrate          *int       `json:"max_bitrate,omitempty"`
	DeleteWhenEmpty     *bool      `json:"delete_when_empty,omitempty"`
	EmptyTimeoutMinutes *int       `json:"empty_timeout_minutes,omitempty"`
	AllowMultipleRooms  *bool      `json:"allow_multiple_rooms,omitempty"`
	AllowNameChange     *bool      `json:"allow_name_change,omitempty"`
	AllowLimitChange    *bool      `json:"allow_limit_change,omitempty"`
	AllowBitrateChange  *bool      `json:"allow_bitrate_change,omitempty"`
	AllowLock           *bool      `json:"allow_lock,omitempty"`
	AutoPermission      *bool      `json:"auto_permission,omitempty"`
	AdminRoleID         *RoleID    `json:"admin_role_id,omitempty"`
}

// Apply copies the set fields of u onto c.
func (u ConfigUpdate) Apply(c *TenantVoiceConfig) {
	setIf(&c.HubChannelID, u.HubChannelID)
	setIf(&c.CategoryID, u.CategoryID)
	setIf(&c.NameTemplate, u.NameTemplate)
	setIf(&c.DefaultLimit, u.DefaultLimit)
	setIf(&c.MaxLimit, u.MaxLimit)
	setIf(&c.DefaultBitrate, u.DefaultBitrate)
	setIf(&c.MaxBitrate, u.MaxBitrate)
	setIf(&c.DeleteWhenEmpty, u.DeleteWhenEmpty)
	setIf(&c.EmptyTimeoutMinutes, u.EmptyTimeoutMinutes)
	setIf(&c.AllowMultipleRooms, u.AllowMultipleRooms)
	setIf(&c.AllowNameChange, u.AllowNameChange)
	setIf(&c.AllowLimitChange, u.AllowLimitChange)
	setIf(&c.AllowBitrateChange, u.AllowBitrateChange)
	setIf(&c.AllowLock, u.AllowLock)
	setIf(&c.AutoPermission, u.AutoPermission)
	setIf(&c.AdminRoleID, u.AdminRoleID)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
