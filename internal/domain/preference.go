package domain

import "slices"

// UserPreference holds what a member saved for their rooms in one guild.
type UserPreference struct {
	GuildID      GuildID `json:"guild_id"`
	UserID       UserID  `json:"user_id"`
	NameTemplate string  `json:"name_template,omitempty"`
	Limit        *int    `json:"limit,omitempty"`
	Bitrate      *int    `json:"bitrate,omitempty"`
	Locked       bool    `json:"locked"`
	KeepAlive    bool    `json:"keep_alive"`
	Allowed      IDList  `json:"allowed"`
	Denied       IDList  `json:"denied"`
}

func (p *UserPreference) Clone() *UserPreference {
	c := *p
	if p.Limit != nil {
		v := *p.Limit
		c.Limit = &v
	}
	if p.Bitrate != nil {
		v := *p.Bitrate
		c.Bitrate = &v
	}
	c.Allowed = slices.Clone(p.Allowed)
	c.Denied = slices.Clone(p.Denied)
	return &c
}

// RoomSettings are the effective settings a new room is created with.
type RoomSettings struct {
	NameTemplate string
	Limit        int
	Bitrate      int
	Locked       bool
	KeepAlive    bool
	Allowed      IDList
	Denied       IDList
}

// ResolveSettings merges tenant defaults with a member's saved preference.
// A preference field only wins when the guild allows customizing it. Limit
// and bitrate are clamped to the tenant maximum and then the platform ceiling
// for tier. pref may be nil.
func ResolveSettings(cfg *TenantVoiceConfig, pref *UserPreference, tier Tier) RoomSettings {
	s := RoomSettings{
		NameTemplate: cfg.NameTemplate,
		Limit:        cfg.DefaultLimit,
		Bitrate:      cfg.DefaultBitrate,
	}
	if pref != nil {
		if cfg.AllowNameChange && pref.NameTemplate != "" {
			s.NameTemplate = pref.NameTemplate
		}
		if cfg.AllowLimitChange && pref.Limit != nil {
			s.Limit = *pref.Limit
		}
		if cfg.AllowBitrateChange && pref.Bitrate != nil {
			s.Bitrate = *pref.Bitrate
		}
		s.Locked = pref.Locked && cfg.AllowLock
		s.KeepAlive = pref.KeepAlive
		s.Allowed = slices.Clone(pref.Allowed)
		s.Denied = slices.Clone(pref.Denied)
	}
	if s.NameTemplate == "" {
		s.NameTemplate = DefaultNameTemplate
	}
	s.Limit = ClampLimit(s.Limit, cfg.MaxLimit)
	s.Bitrate = ClampBitrate(s.Bitrate, cfg.MaxBitrate, tier)
	return s
}
