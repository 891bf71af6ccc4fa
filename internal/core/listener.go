package core

import (
	"context"

	"github.com/dkeye/tempvoice/internal/domain"
)

// MembershipChange reports a member moving between voice channels. A zero
// Before means they connected, a zero After means they disconnected.
type MembershipChange struct {
	GuildID domain.GuildID
	UserID  domain.UserID
	Before  domain.ChannelID
	After   domain.ChannelID
	Bot     bool
}

// MembershipListener consumes platform events. An event source registers one
// listener and calls it from its own dispatch goroutines, so implementations
// must be safe for concurrent use.
type MembershipListener interface {
	MembershipChanged(ctx context.Context, change MembershipChange)
	RoomDestroyedExternally(ctx context.Context, guild domain.GuildID, channel domain.ChannelID)
	TenantJoined(ctx context.Context, guild domain.GuildID)
	TenantLeft(ctx context.Context, guild domain.GuildID)
}
