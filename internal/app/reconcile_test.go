package app

import (
	"testing"
	"time"

	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
)

func (h *harness) seedRoom(id domain.ChannelID, owner domain.UserID, onPlatform bool) {
	h.t.Helper()
	if onPlatform {
		h.platform.AddChannel(core.Channel{ID: id, GuildID: testGuild, ParentID: testCategory, Kind: core.ChannelVoice})
	}
	err := h.store.CreateRoom(h.ctx, &domain.ActiveRoom{
		GuildID:   testGuild,
		ChannelID: id,
		OwnerID:   owner,
		CreatedAt: t0.Add(-time.Hour),
		Allowed:   domain.IDList{},
		Denied:    domain.IDList{},
	})
	if err != nil {
		h.t.Fatal(err)
	}
}

func TestRebuildRestoresGuildState(t *testing.T) {
	h := newHarness(t)
	h.seedRoom("801", userA, true)  // occupied
	h.seedRoom("802", userB, true)  // empty for two minutes already
	h.seedRoom("803", userC, false) // gone while the bot was down
	h.seedRoom("804", userA, true)  // empty, no ledger mark
	h.platform.Connect(testGuild, userA, "801")
	_ = h.ledger.Record(h.ctx, testGuild, "802", t0.Add(-2*time.Minute))

	rep, err := h.reconciler.Rebuild(h.ctx, testGuild)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Rooms != 3 || rep.Purged != 1 || rep.Idle != 2 {
		t.Fatalf("report = %+v", rep)
	}
	if h.roomExists("803") || h.registry.Has("803") {
		t.Fatal("stale row not purged")
	}
	if _, idle := h.registry.IdleSince("801"); idle {
		t.Fatal("occupied room marked idle")
	}
	if since, _ := h.registry.IdleSince("802"); !since.Equal(t0.Add(-2 * time.Minute)) {
		t.Fatalf("802 idle since %v, want the ledger mark", since)
	}
	if since, _ := h.registry.IdleSince("804"); !since.Equal(t0) {
		t.Fatalf("804 idle since %v, want now", since)
	}

	// 802 is overdue and goes on the next scheduler pass; 804 waits.
	h.advance(0)
	if h.roomExists("802") {
		t.Fatal("overdue room survived")
	}
	if !h.roomExists("804") {
		t.Fatal("fresh idle room destroyed early")
	}
	h.advance(time.Minute)
	if h.roomExists("804") {
		t.Fatal("idle room survived its timeout")
	}
}

func TestDropLeavesOtherGuilds(t *testing.T) {
	h := newHarness(t)
	h.seedRoom("801", userA, true)
	if _, err := h.reconciler.Rebuild(h.ctx, testGuild); err != nil {
		t.Fatal(err)
	}
	h.registry.Add("other", "901")

	if n := h.reconciler.Drop(h.ctx, testGuild); n != 1 {
		t.Fatalf("dropped %d rooms, want 1", n)
	}
	if h.registry.Has("801") || !h.registry.Has("901") {
		t.Fatal("drop touched the wrong guild")
	}
	if _, ok := h.scheduler.Pending("801"); ok {
		t.Fatal("eviction left scheduled for a dropped guild")
	}
	if !h.roomExists("801") {
		t.Fatal("rows must survive leaving a guild")
	}
}
