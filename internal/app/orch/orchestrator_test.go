package orch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/tempvoice/internal/clock"
	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/core/coretest"
	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store/memstore"
)

const (
	guild domain.GuildID   = "100"
	hub   domain.ChannelID = "200"
	bot   domain.UserID    = "1"
	alice domain.UserID    = "501"
	bob   domain.UserID    = "502"
)

var start = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fixture struct {
	t        *testing.T
	ctx      context.Context
	clock    *clock.FakeClock
	platform *coretest.Platform
	store    *memstore.Store
	o        *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		clock:    clock.Fake(start),
		platform: coretest.NewPlatform(),
		store:    memstore.New(),
	}
	f.platform.AddGuild(domain.Guild{ID: guild, Name: "Test Guild"})
	f.platform.AddMember(guild, domain.Member{ID: alice, Username: "alice"})
	f.platform.AddMember(guild, domain.Member{ID: bob, Username: "bob"})
	f.platform.AddChannel(core.Channel{ID: hub, GuildID: guild, Kind: core.ChannelVoice, Name: "Join to create"})

	f.o = New(Deps{
		Store:    f.store,
		Platform: f.platform,
		Clock:    f.clock,
		BotID:    bot,
	})
	h := hub
	if _, err := f.o.UpdateConfig(f.ctx, guild, domain.ConfigUpdate{HubChannelID: &h}); err != nil {
		t.Fatal(err)
	}
	return f
}

// join moves user from wherever they are into ch and reports it.
func (f *fixture) join(user domain.UserID, ch domain.ChannelID) {
	before := f.platform.Location(guild, user)
	f.platform.Connect(guild, user, ch)
	f.o.MembershipChanged(f.ctx, core.MembershipChange{GuildID: guild, UserID: user, Before: before, After: ch})
	// A hub join moves the member again; report that hop too.
	if after := f.platform.Location(guild, user); after != ch {
		f.o.MembershipChanged(f.ctx, core.MembershipChange{GuildID: guild, UserID: user, Before: ch, After: after})
	}
}

func (f *fixture) leave(user domain.UserID) {
	before := f.platform.Location(guild, user)
	f.platform.Disconnect(guild, user)
	f.o.MembershipChanged(f.ctx, core.MembershipChange{GuildID: guild, UserID: user, Before: before})
}

func (f *fixture) onlyRoomOf(user domain.UserID) *domain.ActiveRoom {
	f.t.Helper()
	rooms, err := f.o.ListUserRooms(f.ctx, guild, user)
	if err != nil {
		f.t.Fatal(err)
	}
	if len(rooms) != 1 {
		f.t.Fatalf("%s owns %d rooms, want 1", user, len(rooms))
	}
	return rooms[0]
}

func (f *fixture) exists(room domain.ChannelID) bool {
	_, err := f.store.GetRoom(f.ctx, guild, room)
	return err == nil
}

func TestHubJoinLifecycle(t *testing.T) {
	f := newFixture(t)
	kbps, limit, timeout := 96, 0, 1
	cfg, err := f.o.UpdateConfig(f.ctx, guild, domain.ConfigUpdate{
		MaxBitrate:          &kbps,
		DefaultLimit:        &limit,
		EmptyTimeoutMinutes: &timeout,
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxBitrate != 96000 {
		t.Fatalf("max bitrate = %d, want 96000", cfg.MaxBitrate)
	}

	f.join(alice, hub)
	room := f.onlyRoomOf(alice).ChannelID
	if f.platform.Location(guild, alice) != room {
		t.Fatal("alice was not moved into her room")
	}

	f.leave(alice) // empty at t0
	f.clock.Advance(30 * time.Second)
	f.join(bob, room)
	f.clock.Advance(20 * time.Second)
	f.leave(bob) // empty at t1

	f.clock.Advance(59 * time.Second)
	if n, _ := f.o.Sweep(f.ctx); n != 0 || !f.exists(room) {
		t.Fatal("room destroyed before t1+60s")
	}
	f.clock.Advance(time.Second)
	if n, _ := f.o.Sweep(f.ctx); n != 1 {
		t.Fatalf("sweep destroyed %d rooms, want 1", n)
	}
	if f.exists(room) || f.platform.Exists(room) || f.o.Registry.Has(room) {
		t.Fatal("room not destroyed at t1+60s")
	}
}

func TestJoinTouchesActivity(t *testing.T) {
	f := newFixture(t)
	f.join(alice, hub)
	room := f.onlyRoomOf(alice).ChannelID

	f.clock.Advance(time.Minute)
	f.join(bob, room)
	if got := f.onlyRoomOf(alice).LastActiveAt; !got.Equal(start.Add(time.Minute)) {
		t.Fatalf("last active = %v", got)
	}
}

func TestHubJoinsAreRateLimited(t *testing.T) {
	f := newFixture(t)
	for range 5 {
		f.join(alice, hub)
	}
	if n := f.platform.Calls("CreateRoom"); n != 3 {
		t.Fatalf("rooms created = %d, want 3", n)
	}
	f.onlyRoomOf(alice)
}

func TestBotsDoNotCreateRooms(t *testing.T) {
	f := newFixture(t)
	f.platform.Connect(guild, bot, hub)
	f.o.MembershipChanged(f.ctx, core.MembershipChange{GuildID: guild, UserID: bot, After: hub, Bot: true})
	if n := f.platform.Calls("CreateRoom"); n != 0 {
		t.Fatalf("bot created %d rooms", n)
	}
}

func TestRoomDestroyedExternally(t *testing.T) {
	f := newFixture(t)
	f.join(alice, hub)
	row := f.onlyRoomOf(alice)

	f.platform.RemoveChannel(row.ChannelID)
	f.o.RoomDestroyedExternally(f.ctx, guild, row.ChannelID)

	if f.exists(row.ChannelID) || f.o.Registry.Has(row.ChannelID) {
		t.Fatal("row or registry entry left behind")
	}
	if f.platform.Exists(row.TextChannelID) {
		t.Fatal("text surface left behind")
	}
}

func TestRoomDestroyedBeforeRebuild(t *testing.T) {
	f := newFixture(t)
	f.join(alice, hub)
	row := f.onlyRoomOf(alice)

	// Registry empty for the guild, row still stored.
	f.o.TenantLeft(f.ctx, guild)
	f.platform.RemoveChannel(row.ChannelID)
	f.o.RoomDestroyedExternally(f.ctx, guild, row.ChannelID)

	if f.exists(row.ChannelID) {
		t.Fatal("row of an unregistered room survived its deletion")
	}
	if f.platform.Exists(row.TextChannelID) {
		t.Fatal("text surface left behind")
	}

	f.o.RoomDestroyedExternally(f.ctx, guild, hub)
	if !f.platform.Exists(hub) {
		t.Fatal("unrelated channel touched")
	}
}

func TestTenantJoinAndLeave(t *testing.T) {
	f := newFixture(t)
	f.join(alice, hub)
	room := f.onlyRoomOf(alice).ChannelID

	f.o.TenantLeft(f.ctx, guild)
	if f.o.Registry.Has(room) {
		t.Fatal("room tracked after leaving the guild")
	}
	f.o.TenantJoined(f.ctx, guild)
	if !f.o.Registry.Has(room) {
		t.Fatal("room not restored on rejoin")
	}
}

func TestUpdateRoom(t *testing.T) {
	f := newFixture(t)
	f.join(alice, hub)
	room := f.onlyRoomOf(alice).ChannelID

	name, limit, bitrate, locked := "  Late  night!! ", 120, 500000, true
	row, err := f.o.UpdateRoom(f.ctx, guild, room, RoomUpdate{Name: &name, Limit: &limit, Bitrate: &bitrate, Locked: &locked})
	if err != nil {
		t.Fatal(err)
	}
	if !row.Locked {
		t.Fatal("room not locked")
	}
	gotName, gotLimit, gotBitrate, _ := f.platform.ChannelState(room)
	if gotName != "Late night" || gotLimit != domain.MaxOccupantLimit || gotBitrate != domain.BitrateCeiling(domain.TierNone) {
		t.Fatalf("channel = (%q, %d, %d)", gotName, gotLimit, gotBitrate)
	}
	pref, err := f.o.Preferences.Get(f.ctx, guild, alice)
	if err != nil || pref == nil || pref.NameTemplate != "Late night" {
		t.Fatalf("edit not remembered: %+v, %v", pref, err)
	}

	off := false
	if _, err := f.o.UpdateConfig(f.ctx, guild, domain.ConfigUpdate{AllowBitrateChange: &off}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.o.UpdateRoom(f.ctx, guild, room, RoomUpdate{Bitrate: &bitrate}); !errors.Is(err, domain.ErrCustomizationDisabled) {
		t.Fatalf("err = %v, want ErrCustomizationDisabled", err)
	}
}

func TestSetKeepAlive(t *testing.T) {
	f := newFixture(t)
	f.join(alice, hub)
	room := f.onlyRoomOf(alice).ChannelID

	if _, err := f.o.SetKeepAlive(f.ctx, guild, room, true); err != nil {
		t.Fatal(err)
	}
	f.leave(alice)
	if _, idle := f.o.Registry.IdleSince(room); idle {
		t.Fatal("kept-alive room marked idle")
	}

	if _, err := f.o.SetKeepAlive(f.ctx, guild, room, false); err != nil {
		t.Fatal(err)
	}
	if _, idle := f.o.Registry.IdleSince(room); !idle {
		t.Fatal("empty room not tracked after keep-alive was lifted")
	}
}

func TestOperatorCalls(t *testing.T) {
	f := newFixture(t)
	f.join(alice, hub)
	room := f.onlyRoomOf(alice).ChannelID

	if _, err := f.o.Deny(f.ctx, guild, room, alice); !errors.Is(err, domain.ErrCannotDenyOwner) {
		t.Fatalf("deny owner: err = %v", err)
	}
	if ok, err := f.o.TransferOwnership(f.ctx, guild, room, bob); err != nil || !ok {
		t.Fatalf("transfer = (%v, %v)", ok, err)
	}
	if _, err := f.o.SavePreferenceFromRoom(f.ctx, guild, room); err != nil {
		t.Fatal(err)
	}
	if err := f.o.ResetPreference(f.ctx, guild, bob); err != nil {
		t.Fatal(err)
	}
	rooms, err := f.o.ListActiveRooms(f.ctx, guild)
	if err != nil || len(rooms) != 1 {
		t.Fatalf("active rooms = %d, %v", len(rooms), err)
	}
	if err := f.o.DeleteRoom(f.ctx, guild, room); err != nil {
		t.Fatal(err)
	}
	if err := f.o.DeleteRoom(f.ctx, guild, room); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("second delete: err = %v", err)
	}
}
