package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
)

const DefaultEventTimeout = 30 * time.Second

// Intents are the gateway intents the bridge relies on.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

// Bridge forwards gateway events to a listener. discordgo runs each handler
// on its own goroutine, so the listener sees events concurrently.
type Bridge struct {
	Listener core.MembershipListener
	Timeout  time.Duration
}

// Register adds the bridge's handlers to s and returns a func removing them.
func (b *Bridge) Register(s *discordgo.Session) func() {
	removers := []func(){
		s.AddHandler(b.onVoiceState),
		s.AddHandler(b.onChannelDelete),
		s.AddHandler(b.onGuildCreate),
		s.AddHandler(b.onGuildDelete),
	}
	return func() {
		for _, rm := range removers {
			rm()
		}
	}
}

func (b *Bridge) eventContext() (context.Context, context.CancelFunc) {
	t := b.Timeout
	if t <= 0 {
		t = DefaultEventTimeout
	}
	return context.WithTimeout(context.Background(), t)
}

// membershipChange converts a voice state update. Updates that do not move
// the member between channels (mute, deafen, stream) are dropped.
func membershipChange(e *discordgo.VoiceStateUpdate) (core.MembershipChange, bool) {
	if e == nil || e.VoiceState == nil {
		return core.MembershipChange{}, false
	}
	ch := core.MembershipChange{
		GuildID: domain.GuildID(e.GuildID),
		UserID:  domain.UserID(e.UserID),
		After:   domain.ChannelID(e.ChannelID),
	}
	if e.BeforeUpdate != nil {
		ch.Before = domain.ChannelID(e.BeforeUpdate.ChannelID)
	}
	if e.Member != nil && e.Member.User != nil {
		ch.Bot = e.Member.User.Bot
	}
	if ch.Before == ch.After || ch.GuildID.IsZero() || ch.UserID.IsZero() {
		return core.MembershipChange{}, false
	}
	return ch, true
}

func (b *Bridge) onVoiceState(_ *discordgo.Session, e *discordgo.VoiceStateUpdate) {
	ch, ok := membershipChange(e)
	if !ok {
		return
	}
	ctx, cancel := b.eventContext()
	defer cancel()
	b.Listener.MembershipChanged(ctx, ch)
}

func (b *Bridge) onChannelDelete(_ *discordgo.Session, e *discordgo.ChannelDelete) {
	if e.Channel == nil || e.Type != discordgo.ChannelTypeGuildVoice {
		return
	}
	ctx, cancel := b.eventContext()
	defer cancel()
	b.Listener.RoomDestroyedExternally(ctx, domain.GuildID(e.GuildID), domain.ChannelID(e.ID))
}

func (b *Bridge) onGuildCreate(_ *discordgo.Session, e *discordgo.GuildCreate) {
	if e.Guild == nil || e.Unavailable {
		return
	}
	log.Info().Str("module", "adapters.discord").Str("guild", e.ID).Str("name", e.Name).Msg("guild available")
	ctx, cancel := b.eventContext()
	defer cancel()
	b.Listener.TenantJoined(ctx, domain.GuildID(e.ID))
}

// onGuildDelete ignores outages; only a real removal drops the tenant.
func (b *Bridge) onGuildDelete(_ *discordgo.Session, e *discordgo.GuildDelete) {
	if e.Guild == nil || e.Unavailable {
		return
	}
	log.Info().Str("module", "adapters.discord").Str("guild", e.ID).Msg("guild removed")
	ctx, cancel := b.eventContext()
	defer cancel()
	b.Listener.TenantLeft(ctx, domain.GuildID(e.ID))
}
