// Package orch wires the lifecycle components together. The Orchestrator
// consumes platform events and exposes the operator API.
package orch

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/tempvoice/internal/app"
	"github.com/dkeye/tempvoice/internal/clock"
	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store"
)

type Options struct {
	SweepInterval  time.Duration
	SweepWorkers   int
	CreateLimit    int
	CreateInterval time.Duration
	ConfigTTL      time.Duration
}

type Deps struct {
	Store      store.Store
	Platform   core.Platform
	Clock      clock.Clock
	Ledger     app.IdleLedger
	Registerer prometheus.Registerer
	// BotID is the bot's own user id on the platform.
	BotID   domain.UserID
	Options Options
}

type Orchestrator struct {
	Store    store.Store
	Platform core.Platform
	Clock    clock.Clock

	Registry    *app.Registry
	Scheduler   *app.Scheduler
	Metrics     *app.Metrics
	Configs     *app.ConfigService
	Preferences *app.PreferenceService
	Teardown    *app.Teardown
	Reaper      *app.Reaper
	Access      *app.AccessController
	Ownership   *app.OwnershipTransfer
	Factory     *app.Factory
	Reconciler  *app.Reconciler
	Limiter     *app.CreateRateLimiter
}

var _ core.MembershipListener = (*Orchestrator)(nil)

func New(d Deps) *Orchestrator {
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Ledger == nil {
		d.Ledger = app.NopLedger{}
	}
	if d.Registerer == nil {
		d.Registerer = prometheus.NewRegistry()
	}

	registry := app.NewRegistry()
	scheduler := app.NewScheduler(d.Clock)
	metrics := app.NewMetrics(d.Registerer, registry)
	configs := app.NewConfigService(d.Store, d.Platform, d.Clock, d.Options.ConfigTTL)
	prefs := &app.PreferenceService{Store: d.Store}
	teardown := &app.Teardown{
		Store:     d.Store,
		Platform:  d.Platform,
		Registry:  registry,
		Scheduler: scheduler,
		Ledger:    d.Ledger,
		Metrics:   metrics,
	}
	reaper := &app.Reaper{
		Configs:       configs,
		Store:         d.Store,
		Platform:      d.Platform,
		Registry:      registry,
		Scheduler:     scheduler,
		Teardown:      teardown,
		Ledger:        d.Ledger,
		Policy:        app.DefaultPolicy{},
		Clock:         d.Clock,
		Metrics:       metrics,
		SweepInterval: d.Options.SweepInterval,
		SweepWorkers:  d.Options.SweepWorkers,
	}
	access := &app.AccessController{
		Store:    d.Store,
		Platform: d.Platform,
		Registry: registry,
		Metrics:  metrics,
		BotID:    d.BotID,
	}

	return &Orchestrator{
		Store:       d.Store,
		Platform:    d.Platform,
		Clock:       d.Clock,
		Registry:    registry,
		Scheduler:   scheduler,
		Metrics:     metrics,
		Configs:     configs,
		Preferences: prefs,
		Teardown:    teardown,
		Reaper:      reaper,
		Access:      access,
		Ownership: &app.OwnershipTransfer{
			Store:    d.Store,
			Platform: d.Platform,
			Registry: registry,
			Metrics:  metrics,
		},
		Factory: &app.Factory{
			Configs:     configs,
			Preferences: prefs,
			Store:       d.Store,
			Platform:    d.Platform,
			Registry:    registry,
			Teardown:    teardown,
			Reaper:      reaper,
			Access:      access,
			Clock:       d.Clock,
			Metrics:     metrics,
			BotID:       d.BotID,
		},
		Reconciler: &app.Reconciler{
			Store:    d.Store,
			Platform: d.Platform,
			Registry: registry,
			Teardown: teardown,
			Reaper:   reaper,
			Ledger:   d.Ledger,
			Configs:  configs,
			Clock:    d.Clock,
			Workers:  d.Options.SweepWorkers,
		},
		Limiter: app.NewCreateRateLimiter(d.Clock, d.Options.CreateLimit, d.Options.CreateInterval),
	}
}

// Run drives the scheduler and the reaper until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) {
	var wg conc.WaitGroup
	wg.Go(func() { o.Scheduler.Run(ctx) })
	wg.Go(func() { o.Reaper.Run(ctx) })
	wg.Go(func() { o.pruneLimiter(ctx) })
	wg.Wait()
}

func (o *Orchestrator) pruneLimiter(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.Clock.After(app.DefaultCreateInterval):
			o.Limiter.Prune()
		}
	}
}

// MembershipChanged handles a member moving between voice channels: the
// room they left may become empty, the room they joined is occupied, and
// joining the hub creates a room.
func (o *Orchestrator) MembershipChanged(ctx context.Context, ch core.MembershipChange) {
	if ch.Before == ch.After || ch.GuildID.IsZero() {
		return
	}
	if !ch.Before.IsZero() && o.Registry.Has(ch.Before) {
		o.left(ctx, ch.GuildID, ch.Before)
	}
	if ch.After.IsZero() {
		return
	}
	if o.Registry.Has(ch.After) {
		o.Reaper.OnOccupied(ctx, ch.GuildID, ch.After)
		if err := o.Store.TouchRoom(ctx, ch.GuildID, ch.After, o.Clock.Now()); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Warn().Str("module", "app.orch").Err(err).Str("room", string(ch.After)).Msg("activity touch failed")
		}
		return
	}
	if ch.Bot {
		return
	}
	cfg, err := o.Configs.GetOrCreate(ctx, ch.GuildID)
	if err != nil {
		log.Error().Str("module", "app.orch").Err(err).Str("guild", string(ch.GuildID)).Msg("voice config unavailable")
		return
	}
	if cfg.HubChannelID.IsZero() || ch.After != cfg.HubChannelID {
		return
	}
	o.hubJoined(ctx, ch.GuildID, ch.UserID)
}

func (o *Orchestrator) left(ctx context.Context, guild domain.GuildID, room domain.ChannelID) {
	l := log.With().Str("module", "app.orch").Str("guild", string(guild)).Str("room", string(room)).Logger()
	occupants, err := o.Platform.Occupants(ctx, guild, room)
	if errors.Is(err, core.ErrChannelNotFound) {
		o.RoomDestroyedExternally(ctx, guild, room)
		return
	}
	if err != nil {
		l.Warn().Err(err).Msg("occupancy check failed")
		return
	}
	if len(occupants) > 0 {
		return
	}
	if err := o.Reaper.OnEmptied(ctx, guild, room); err != nil {
		l.Error().Err(err).Msg("could not track empty room")
	}
}

func (o *Orchestrator) hubJoined(ctx context.Context, guild domain.GuildID, user domain.UserID) {
	l := log.With().Str("module", "app.orch").Str("guild", string(guild)).Str("user", string(user)).Logger()
	if !o.Limiter.Allow(guild, user) {
		o.Metrics.HubJoinsLimited.Inc()
		l.Info().Msg("hub join ignored, creation rate limited")
		return
	}
	res, err := o.Factory.CreateRoom(ctx, guild, user)
	if err != nil {
		l.Error().Err(err).Msg("room creation failed")
		return
	}
	l.Debug().Str("room", string(res.Room.ChannelID)).Bool("decorated", res.Decoration.OK()).Msg("hub join served")
}

// RoomDestroyedExternally forgets a room someone deleted on the platform.
// Rooms of a guild that has not been rebuilt yet are only known to the
// store, so an unregistered channel is looked up there.
func (o *Orchestrator) RoomDestroyedExternally(ctx context.Context, guild domain.GuildID, channel domain.ChannelID) {
	if !o.Registry.Has(channel) {
		_, err := o.Store.GetRoom(ctx, guild, channel)
		if errors.Is(err, store.ErrNotFound) {
			return
		}
		if err != nil {
			log.Warn().Str("module", "app.orch").Err(err).Str("guild", string(guild)).
				Str("room", string(channel)).Msg("room lookup failed")
			return
		}
	}
	if _, err := o.Teardown.Destroy(ctx, guild, channel, app.ReasonExternal); err != nil {
		log.Error().Str("module", "app.orch").Err(err).Str("guild", string(guild)).
			Str("room", string(channel)).Msg("external deletion cleanup failed")
	}
}

func (o *Orchestrator) TenantJoined(ctx context.Context, guild domain.GuildID) {
	if _, err := o.Configs.GetOrCreate(ctx, guild); err != nil {
		log.Error().Str("module", "app.orch").Err(err).Str("guild", string(guild)).Msg("voice config unavailable")
	}
	if _, err := o.Reconciler.Rebuild(ctx, guild); err != nil {
		log.Error().Str("module", "app.orch").Err(err).Str("guild", string(guild)).Msg("guild rebuild failed")
	}
}

func (o *Orchestrator) TenantLeft(ctx context.Context, guild domain.GuildID) {
	n := o.Reconciler.Drop(ctx, guild)
	log.Info().Str("module", "app.orch").Str("guild", string(guild)).Int("rooms", n).Msg("guild left")
}
