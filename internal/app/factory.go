package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/tempvoice/internal/clock"
	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store"
)

// CreateResult describes a created room. Decoration holds the outcome of
// the best-effort setup that followed; the room is usable either way.
type CreateResult struct {
	Room       *domain.ActiveRoom
	Name       string
	Settings   domain.RoomSettings
	Replaced   []domain.ChannelID
	Decoration Decoration
}

// Factory creates rooms for members.
type Factory struct {
	Configs     *ConfigService
	Preferences *PreferenceService
	Store       store.RoomRepository
	Platform    core.Platform
	Registry    *Registry
	Teardown    *Teardown
	Reaper      *Reaper
	Access      *AccessController
	Clock       clock.Clock
	Metrics     *Metrics
	BotID       domain.UserID
}

// CreateRoom creates a room owned by requester and moves them into it. The
// row and registry entry exist before any permission or UI setup, so a
// crash halfway still leaves the room discoverable for cleanup.
func (f *Factory) CreateRoom(ctx context.Context, guild domain.GuildID, requester domain.UserID) (*CreateResult, error) {
	if guild.IsZero() || requester.IsZero() {
		return nil, domain.ErrInvalidID
	}
	l := log.With().Str("module", "app.factory").Str("guild", string(guild)).Str("user", string(requester)).Logger()

	cfg, err := f.Configs.GetOrCreate(ctx, guild)
	if err != nil {
		return nil, err
	}
	if cfg.HubChannelID.IsZero() {
		return nil, domain.ErrHubNotConfigured
	}
	if !cfg.CategoryID.IsZero() {
		if err := f.Configs.CheckCategory(ctx, guild, cfg.CategoryID); err != nil {
			return nil, fmt.Errorf("category %s: %w", cfg.CategoryID, err)
		}
	}
	g, err := f.Platform.Guild(ctx, guild)
	if err != nil {
		return nil, fmt.Errorf("load guild: %w", err)
	}
	member, err := f.Platform.Member(ctx, guild, requester)
	if err != nil {
		return nil, fmt.Errorf("load member: %w", err)
	}

	res := &CreateResult{}
	if !cfg.AllowMultipleRooms {
		// Concurrent creates for the same member must see each other's rows.
		unlock := f.Registry.LockOwner(guild, requester)
		defer unlock()
		if res.Replaced, err = f.replaceExisting(ctx, guild, requester); err != nil {
			return nil, err
		}
	}

	pref, err := f.Preferences.Get(ctx, guild, requester)
	if err != nil {
		return nil, err
	}
	res.Settings = domain.ResolveSettings(cfg, pref, g.Tier)
	res.Name = domain.RenderName(res.Settings.NameTemplate, domain.NameVars{
		Username:      member.Username,
		Discriminator: member.Discriminator,
		Guild:         g.Name,
	})

	created, err := f.Platform.CreateRoom(ctx, core.RoomSpec{
		GuildID:    guild,
		CategoryID: cfg.CategoryID,
		Name:       res.Name,
		Limit:      res.Settings.Limit,
		Bitrate:    res.Settings.Bitrate,
		Overwrites: f.initialOverwrites(cfg, requester),
	})
	if err != nil {
		return nil, fmt.Errorf("create room channel: %w", err)
	}

	now := f.Clock.Now()
	row := &domain.ActiveRoom{
		GuildID:       guild,
		ChannelID:     created.VoiceID,
		TextChannelID: created.TextID,
		OwnerID:       requester,
		CreatedAt:     now,
		LastActiveAt:  now,
		Locked:        res.Settings.Locked,
		KeepAlive:     res.Settings.KeepAlive,
		Allowed:       res.Settings.Allowed,
		Denied:        res.Settings.Denied,
	}
	if row.Allowed == nil {
		row.Allowed = domain.IDList{}
	}
	if row.Denied == nil {
		row.Denied = domain.IDList{}
	}
	if err := f.Store.CreateRoom(ctx, row); err != nil {
		f.abandon(ctx, created)
		return nil, fmt.Errorf("persist room: %w", err)
	}
	f.Registry.Add(guild, row.ChannelID)
	res.Room = row
	if f.Metrics != nil {
		f.Metrics.RoomsCreated.Inc()
	}
	l = l.With().Str("room", string(row.ChannelID)).Logger()
	l.Info().Str("name", res.Name).Int("limit", res.Settings.Limit).Int("bitrate", res.Settings.Bitrate).
		Bool("locked", row.Locked).Msg("room created")

	f.decorate(ctx, row, res)
	res.Decoration.Report(l, f.Metrics)
	return res, nil
}

// replaceExisting destroys every room requester already owns.
func (f *Factory) replaceExisting(ctx context.Context, guild domain.GuildID, requester domain.UserID) ([]domain.ChannelID, error) {
	owned, err := f.Store.ListRoomsByOwner(ctx, guild, requester)
	if err != nil {
		return nil, fmt.Errorf("list owned rooms: %w", err)
	}
	var replaced []domain.ChannelID
	for _, r := range owned {
		if _, err := f.Teardown.Destroy(ctx, guild, r.ChannelID, ReasonReplaced); err != nil {
			return replaced, fmt.Errorf("replace room %s: %w", r.ChannelID, err)
		}
		replaced = append(replaced, r.ChannelID)
	}
	return replaced, nil
}

func (f *Factory) initialOverwrites(cfg *domain.TenantVoiceConfig, owner domain.UserID) []domain.Overwrite {
	ows := []domain.Overwrite{domain.MemberOverwrite(owner, domain.OwnerAccess, 0)}
	if !f.BotID.IsZero() && f.BotID != owner {
		ows = append(ows, domain.MemberOverwrite(f.BotID, domain.OwnerAccess, 0))
	}
	if cfg.AutoPermission && !cfg.AdminRoleID.IsZero() {
		ows = append(ows, domain.RoleOverwrite(cfg.AdminRoleID, domain.OwnerAccess, 0))
	}
	return ows
}

// decorate applies lock and deny overwrites, posts the control panel and
// moves the owner in. A failed move leaves the room empty, so it is handed
// to the reaper right away.
func (f *Factory) decorate(ctx context.Context, row *domain.ActiveRoom, res *CreateResult) {
	dec := &res.Decoration
	unlock := f.Registry.LockRoom(row.ChannelID)
	if row.Locked {
		f.Access.ApplyLock(ctx, row, dec)
	}
	f.Access.ApplyDenies(ctx, row, dec)
	unlock()

	if !row.TextChannelID.IsZero() {
		dec.Record("panel", f.Platform.PostControlPanel(ctx, row.TextChannelID, core.ControlPanel{
			Room:    row.Clone(),
			Name:    res.Name,
			Limit:   res.Settings.Limit,
			Bitrate: res.Settings.Bitrate,
		}))
	}

	if err := f.Platform.MoveMember(ctx, row.GuildID, row.OwnerID, row.ChannelID); err != nil {
		dec.Record("move", err)
		if err := f.Reaper.OnEmptied(ctx, row.GuildID, row.ChannelID); err != nil {
			log.Warn().Str("module", "app.factory").Err(err).Str("room", string(row.ChannelID)).Msg("could not hand unused room to the reaper")
		}
		return
	}
	dec.Record("move", nil)
}

// abandon removes channels whose row could not be stored.
func (f *Factory) abandon(ctx context.Context, created core.PlatformRoom) {
	for _, id := range []domain.ChannelID{created.TextID, created.VoiceID} {
		if id.IsZero() {
			continue
		}
		if err := f.Platform.DeleteChannel(ctx, id); err != nil && !errors.Is(err, core.ErrChannelNotFound) {
			log.Error().Str("module", "app.factory").Err(err).Str("channel", string(id)).Msg("orphaned channel left behind")
		}
	}
}
