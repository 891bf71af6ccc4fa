package app

import (
	"time"

	"github.com/dkeye/tempvoice/internal/domain"
)

type EvictionAction int

const (
	// KeepRoom leaves an empty room alone.
	KeepRoom EvictionAction = iota
	// EvictLater destroys the room once it stayed empty for the timeout.
	EvictLater
	// EvictNow destroys the room right away.
	EvictNow
)

func (a EvictionAction) String() string {
	switch a {
	case EvictLater:
		return "evict_later"
	case EvictNow:
		return "evict_now"
	default:
		return "keep"
	}
}

// EvictionPolicy decides what happens to a room that became empty.
type EvictionPolicy interface {
	OnEmpty(cfg *domain.TenantVoiceConfig, room *domain.ActiveRoom) (EvictionAction, time.Duration)
}

// DefaultPolicy evicts rooms that are not kept alive in guilds that delete
// empty rooms.
type DefaultPolicy struct{}

func (DefaultPolicy) OnEmpty(cfg *domain.TenantVoiceConfig, room *domain.ActiveRoom) (EvictionAction, time.Duration) {
	if room.KeepAlive || !cfg.DeleteWhenEmpty {
		return KeepRoom, 0
	}
	timeout := cfg.EmptyTimeout()
	if timeout <= 0 {
		return EvictNow, 0
	}
	return EvictLater, timeout
}
