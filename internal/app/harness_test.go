package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dkeye/tempvoice/internal/clock"
	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/core/coretest"
	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store/memstore"
)

const (
	testGuild    domain.GuildID   = "100"
	testHub      domain.ChannelID = "200"
	testCategory domain.ChannelID = "300"
	testBot      domain.UserID    = "1"
	userA        domain.UserID    = "501"
	userB        domain.UserID    = "502"
	userC        domain.UserID    = "503"
)

var t0 = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type memLedger struct {
	mu    sync.Mutex
	marks map[domain.GuildID]map[domain.ChannelID]time.Time
}

func newMemLedger() *memLedger {
	return &memLedger{marks: make(map[domain.GuildID]map[domain.ChannelID]time.Time)}
}

func (l *memLedger) Record(_ context.Context, guild domain.GuildID, room domain.ChannelID, since time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.marks[guild] == nil {
		l.marks[guild] = make(map[domain.ChannelID]time.Time)
	}
	l.marks[guild][room] = since
	return nil
}

func (l *memLedger) Clear(_ context.Context, guild domain.GuildID, room domain.ChannelID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.marks[guild], room)
	return nil
}

func (l *memLedger) Load(_ context.Context, guild domain.GuildID) (map[domain.ChannelID]time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[domain.ChannelID]time.Time, len(l.marks[guild]))
	for k, v := range l.marks[guild] {
		out[k] = v
	}
	return out, nil
}

func (l *memLedger) Drop(_ context.Context, guild domain.GuildID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.marks, guild)
	return nil
}

func (l *memLedger) mark(guild domain.GuildID, room domain.ChannelID) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.marks[guild][room]
	return v, ok
}

type harness struct {
	t   *testing.T
	ctx context.Context

	clock    *clock.FakeClock
	platform *coretest.Platform
	store    *memstore.Store
	ledger   *memLedger

	registry   *Registry
	scheduler  *Scheduler
	metrics    *Metrics
	configs    *ConfigService
	prefs      *PreferenceService
	teardown   *Teardown
	reaper     *Reaper
	access     *AccessController
	ownership  *OwnershipTransfer
	factory    *Factory
	reconciler *Reconciler
}

// newHarness wires every component against the fake platform and the
// in-memory store. The guild has a hub and a category configured.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		ctx:      context.Background(),
		clock:    clock.Fake(t0),
		platform: coretest.NewPlatform(),
		store:    memstore.New(),
		ledger:   newMemLedger(),
	}

	h.platform.AddGuild(domain.Guild{ID: testGuild, Name: "Test Guild", Tier: domain.TierNone})
	h.platform.AddMember(testGuild, domain.Member{ID: userA, Username: "alice", Discriminator: "0001"})
	h.platform.AddMember(testGuild, domain.Member{ID: userB, Username: "bob", Discriminator: "0002"})
	h.platform.AddMember(testGuild, domain.Member{ID: userC, Username: "carol", Discriminator: "0003"})
	h.platform.AddMember(testGuild, domain.Member{ID: testBot, Username: "tempvoice", Bot: true})
	h.platform.AddChannel(core.Channel{ID: testHub, GuildID: testGuild, Kind: core.ChannelVoice, Name: "Join to create"})
	h.platform.AddChannel(core.Channel{ID: testCategory, GuildID: testGuild, Kind: core.ChannelCategory, Name: "Rooms"})

	h.registry = NewRegistry()
	h.scheduler = NewScheduler(h.clock)
	h.metrics = NewMetrics(prometheus.NewRegistry(), h.registry)
	h.configs = NewConfigService(h.store, h.platform, h.clock, time.Hour)
	h.prefs = &PreferenceService{Store: h.store}
	h.teardown = &Teardown{
		Store:     h.store,
		Platform:  h.platform,
		Registry:  h.registry,
		Scheduler: h.scheduler,
		Ledger:    h.ledger,
		Metrics:   h.metrics,
	}
	h.reaper = &Reaper{
		Configs:   h.configs,
		Store:     h.store,
		Platform:  h.platform,
		Registry:  h.registry,
		Scheduler: h.scheduler,
		Teardown:  h.teardown,
		Ledger:    h.ledger,
		Policy:    DefaultPolicy{},
		Clock:     h.clock,
		Metrics:   h.metrics,
	}
	h.access = &AccessController{
		Store:    h.store,
		Platform: h.platform,
		Registry: h.registry,
		Metrics:  h.metrics,
		BotID:    testBot,
	}
	h.ownership = &OwnershipTransfer{
		Store:    h.store,
		Platform: h.platform,
		Registry: h.registry,
		Metrics:  h.metrics,
	}
	h.factory = &Factory{
		Configs:     h.configs,
		Preferences: h.prefs,
		Store:       h.store,
		Platform:    h.platform,
		Registry:    h.registry,
		Teardown:    h.teardown,
		Reaper:      h.reaper,
		Access:      h.access,
		Clock:       h.clock,
		Metrics:     h.metrics,
		BotID:       testBot,
	}
	h.reconciler = &Reconciler{
		Store:    h.store,
		Platform: h.platform,
		Registry: h.registry,
		Teardown: h.teardown,
		Reaper:   h.reaper,
		Ledger:   h.ledger,
		Configs:  h.configs,
		Clock:    h.clock,
	}

	h.setConfig(func(c *domain.TenantVoiceConfig) {
		c.HubChannelID = testHub
		c.CategoryID = testCategory
	})
	return h
}

// setConfig edits the stored config directly and drops the cached copy.
func (h *harness) setConfig(fn func(*domain.TenantVoiceConfig)) {
	h.t.Helper()
	cfg, err := h.store.GetConfig(h.ctx, testGuild)
	if err != nil {
		cfg = domain.DefaultTenantConfig(testGuild)
	}
	fn(cfg)
	if err := h.store.SaveConfig(h.ctx, cfg); err != nil {
		h.t.Fatal(err)
	}
	h.configs.Invalidate(testGuild)
}

func (h *harness) setPreference(p *domain.UserPreference) {
	h.t.Helper()
	p.GuildID = testGuild
	if err := h.store.SavePreference(h.ctx, p); err != nil {
		h.t.Fatal(err)
	}
}

// createRoom connects user to the hub and creates their room.
func (h *harness) createRoom(user domain.UserID) *CreateResult {
	h.t.Helper()
	h.platform.Connect(testGuild, user, testHub)
	res, err := h.factory.CreateRoom(h.ctx, testGuild, user)
	if err != nil {
		h.t.Fatalf("CreateRoom(%s): %v", user, err)
	}
	return res
}

// advance moves the clock and runs every task that became due.
func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.scheduler.fireDue(h.ctx, h.clock.Now())
	h.scheduler.running.Wait()
}

func (h *harness) roomExists(room domain.ChannelID) bool {
	_, err := h.store.GetRoom(h.ctx, testGuild, room)
	return err == nil
}

func (h *harness) row(room domain.ChannelID) *domain.ActiveRoom {
	h.t.Helper()
	row, err := h.store.GetRoom(h.ctx, testGuild, room)
	if err != nil {
		h.t.Fatalf("GetRoom(%s): %v", room, err)
	}
	return row
}

func intp(v int) *int { return &v }
