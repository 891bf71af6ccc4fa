// Package discord drives rooms on Discord through discordgo and feeds gateway
// events to a core.MembershipListener.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
)

// Platform implements core.Platform on a discordgo session. Reads go to the
// session state cache first and fall back to REST.
type Platform struct {
	Session *discordgo.Session
}

var _ core.Platform = (*Platform)(nil)

func NewPlatform(s *discordgo.Session) *Platform {
	return &Platform{Session: s}
}

// translate maps Discord's "unknown channel" answers onto
// core.ErrChannelNotFound.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		if rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownChannel {
			return fmt.Errorf("%w: %v", core.ErrChannelNotFound, err)
		}
		if rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %v", core.ErrChannelNotFound, err)
		}
	}
	return err
}

func (p *Platform) Guild(ctx context.Context, guild domain.GuildID) (domain.Guild, error) {
	g, err := p.Session.State.Guild(string(guild))
	if err != nil {
		g, err = p.Session.Guild(string(guild), discordgo.WithContext(ctx))
		if err != nil {
			return domain.Guild{}, err
		}
	}
	return domain.Guild{ID: domain.GuildID(g.ID), Name: g.Name, Tier: domain.Tier(g.PremiumTier)}, nil
}

func (p *Platform) Member(ctx context.Context, guild domain.GuildID, user domain.UserID) (domain.Member, error) {
	m, err := p.Session.State.Member(string(guild), string(user))
	if err != nil {
		m, err = p.Session.GuildMember(string(guild), string(user), discordgo.WithContext(ctx))
		if err != nil {
			return domain.Member{}, err
		}
	}
	return toMember(m), nil
}

func toMember(m *discordgo.Member) domain.Member {
	if m == nil || m.User == nil {
		return domain.Member{}
	}
	name := m.User.Username
	if m.Nick != "" {
		name = m.Nick
	} else if m.User.GlobalName != "" {
		name = m.User.GlobalName
	}
	return domain.Member{
		ID:            domain.UserID(m.User.ID),
		Username:      name,
		Discriminator: m.User.Discriminator,
		Bot:           m.User.Bot,
	}
}

func (p *Platform) channel(ctx context.Context, id domain.ChannelID) (*discordgo.Channel, error) {
	if id.IsZero() {
		return nil, core.ErrChannelNotFound
	}
	ch, err := p.Session.State.Channel(string(id))
	if err == nil {
		return ch, nil
	}
	ch, err = p.Session.Channel(string(id), discordgo.WithContext(ctx))
	return ch, translate(err)
}

func channelKind(t discordgo.ChannelType) core.ChannelKind {
	switch t {
	case discordgo.ChannelTypeGuildVoice:
		return core.ChannelVoice
	case discordgo.ChannelTypeGuildText:
		return core.ChannelText
	case discordgo.ChannelTypeGuildCategory:
		return core.ChannelCategory
	default:
		return core.ChannelOther
	}
}

func (p *Platform) Channel(ctx context.Context, id domain.ChannelID) (core.Channel, error) {
	ch, err := p.channel(ctx, id)
	if err != nil {
		return core.Channel{}, err
	}
	return core.Channel{
		ID:       domain.ChannelID(ch.ID),
		GuildID:  domain.GuildID(ch.GuildID),
		ParentID: domain.ChannelID(ch.ParentID),
		Kind:     channelKind(ch.Type),
		Name:     ch.Name,
	}, nil
}

// Occupants reads voice states from the gateway cache; the REST API has no
// endpoint for them.
func (p *Platform) Occupants(ctx context.Context, guild domain.GuildID, id domain.ChannelID) ([]domain.UserID, error) {
	if _, err := p.channel(ctx, id); err != nil {
		return nil, err
	}
	st := p.Session.State
	g, err := st.Guild(string(guild))
	if err != nil {
		return nil, fmt.Errorf("guild %s not cached: %w", guild, err)
	}

	st.RLock()
	defer st.RUnlock()
	var out []domain.UserID
	for _, vs := range g.VoiceStates {
		if vs.ChannelID == string(id) {
			out = append(out, domain.UserID(vs.UserID))
		}
	}
	return out, nil
}

func (p *Platform) CreateRoom(ctx context.Context, spec core.RoomSpec) (core.PlatformRoom, error) {
	overwrites := make([]*discordgo.PermissionOverwrite, 0, len(spec.Overwrites))
	for _, ow := range spec.Overwrites {
		overwrites = append(overwrites, toDiscordOverwrite(ow))
	}

	voice, err := p.Session.GuildChannelCreateComplex(string(spec.GuildID), discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildVoice,
		Bitrate:              spec.Bitrate,
		UserLimit:            spec.Limit,
		ParentID:             string(spec.CategoryID),
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return core.PlatformRoom{}, err
	}
	out := core.PlatformRoom{VoiceID: domain.ChannelID(voice.ID)}

	text, err := p.Session.GuildChannelCreateComplex(string(spec.GuildID), discordgo.GuildChannelCreateData{
		Name:                 textName(spec.Name),
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             string(spec.CategoryID),
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		log.Warn().Str("module", "adapters.discord").Str("guild", string(spec.GuildID)).
			Str("room", voice.ID).Err(err).Msg("text surface not created")
		return out, nil
	}
	out.TextID = domain.ChannelID(text.ID)
	return out, nil
}

// channelPatch is the PATCH body for a room edit. discordgo.ChannelEdit omits
// zero limits, which would make "unlimited" unreachable.
type channelPatch struct {
	Name      *string `json:"name,omitempty"`
	Bitrate   *int    `json:"bitrate,omitempty"`
	UserLimit *int    `json:"user_limit,omitempty"`
}

func editPatch(edit core.RoomEdit) channelPatch {
	return channelPatch{Name: edit.Name, Bitrate: edit.Bitrate, UserLimit: edit.Limit}
}

func (p *Platform) EditRoom(ctx context.Context, id domain.ChannelID, edit core.RoomEdit) error {
	endpoint := discordgo.EndpointChannel(string(id))
	_, err := p.Session.RequestWithBucketID(http.MethodPatch, endpoint, editPatch(edit), endpoint, discordgo.WithContext(ctx))
	return translate(err)
}

func (p *Platform) DeleteChannel(ctx context.Context, id domain.ChannelID) error {
	_, err := p.Session.ChannelDelete(string(id), discordgo.WithContext(ctx))
	return translate(err)
}

func (p *Platform) Overwrites(ctx context.Context, id domain.ChannelID) ([]domain.Overwrite, error) {
	ch, err := p.channel(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Overwrite, 0, len(ch.PermissionOverwrites))
	for _, ow := range ch.PermissionOverwrites {
		out = append(out, fromDiscordOverwrite(ow))
	}
	return out, nil
}

func (p *Platform) SetOverwrite(ctx context.Context, id domain.ChannelID, ow domain.Overwrite) error {
	err := p.Session.ChannelPermissionSet(string(id), ow.TargetID, overwriteType(ow.Kind),
		toDiscordPerms(ow.Allow), toDiscordPerms(ow.Deny), discordgo.WithContext(ctx))
	return translate(err)
}

func (p *Platform) RemoveOverwrite(ctx context.Context, id domain.ChannelID, targetID string) error {
	return translate(p.Session.ChannelPermissionDelete(string(id), targetID, discordgo.WithContext(ctx)))
}

func (p *Platform) MoveMember(ctx context.Context, guild domain.GuildID, user domain.UserID, id domain.ChannelID) error {
	var target *string
	if !id.IsZero() {
		s := string(id)
		target = &s
	}
	return translate(p.Session.GuildMemberMove(string(guild), string(user), target, discordgo.WithContext(ctx)))
}

func (p *Platform) PostControlPanel(ctx context.Context, id domain.ChannelID, panel core.ControlPanel) error {
	_, err := p.Session.ChannelMessageSendComplex(string(id), panelMessage(panel), discordgo.WithContext(ctx))
	return translate(err)
}
