package app

import (
	"context"
	"time"

	"github.com/dkeye/tempvoice/internal/domain"
)

// IdleLedger persists idle-since marks outside the process so a restart
// does not reset a room's eviction clock.
type IdleLedger interface {
	Record(ctx context.Context, guild domain.GuildID, room domain.ChannelID, since time.Time) error
	Clear(ctx context.Context, guild domain.GuildID, room domain.ChannelID) error
	Load(ctx context.Context, guild domain.GuildID) (map[domain.ChannelID]time.Time, error)
	Drop(ctx context.Context, guild domain.GuildID) error
}

// NopLedger forgets everything; rooms found empty after a restart start a
// fresh timeout.
type NopLedger struct{}

func (NopLedger) Record(context.Context, domain.GuildID, domain.ChannelID, time.Time) error {
	return nil
}
func (NopLedger) Clear(context.Context, domain.GuildID, domain.ChannelID) error { return nil }
func (NopLedger) Load(context.Context, domain.GuildID) (map[domain.ChannelID]time.Time, error) {
	return nil, nil
}
func (NopLedger) Drop(context.Context, domain.GuildID) error { return nil }
