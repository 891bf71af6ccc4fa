package app

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store"
)

func TestIdleRoomLifecycle(t *testing.T) {
	h := newHarness(t)
	h.setConfig(func(c *domain.TenantVoiceConfig) {
		c.MaxBitrate = 96
		c.DefaultLimit = 0
		c.EmptyTimeoutMinutes = 1
	})
	cfg, err := h.configs.GetOrCreate(h.ctx, testGuild)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxBitrate != 96000 {
		t.Fatalf("max bitrate = %d, want 96000", cfg.MaxBitrate)
	}
	if stored, _ := h.store.GetConfig(h.ctx, testGuild); stored.MaxBitrate != 96000 {
		t.Fatalf("repaired bitrate not persisted: %d", stored.MaxBitrate)
	}

	room := h.createRoom(userA).Room.ChannelID

	// A leaves: empty at t0.
	h.platform.Disconnect(testGuild, userA)
	if err := h.reaper.OnEmptied(h.ctx, testGuild, room); err != nil {
		t.Fatal(err)
	}
	if deadline, ok := h.scheduler.Pending(room); !ok || !deadline.Equal(t0.Add(time.Minute)) {
		t.Fatalf("deadline = %v, %v", deadline, ok)
	}
	if since, ok := h.ledger.mark(testGuild, room); !ok || !since.Equal(t0) {
		t.Fatalf("ledger mark = %v, %v", since, ok)
	}

	// B joins at t0+30s.
	h.advance(30 * time.Second)
	h.platform.Connect(testGuild, userB, room)
	h.reaper.OnOccupied(h.ctx, testGuild, room)
	if _, ok := h.scheduler.Pending(room); ok {
		t.Fatal("eviction still scheduled after reoccupation")
	}
	if _, ok := h.ledger.mark(testGuild, room); ok {
		t.Fatal("ledger mark kept after reoccupation")
	}

	// The cancelled deadline passes.
	h.advance(45 * time.Second)
	if !h.roomExists(room) {
		t.Fatal("room destroyed by a cancelled timer")
	}

	// B leaves at t1.
	h.platform.Disconnect(testGuild, userB)
	if err := h.reaper.OnEmptied(h.ctx, testGuild, room); err != nil {
		t.Fatal(err)
	}
	h.advance(59 * time.Second)
	if !h.roomExists(room) {
		t.Fatal("room destroyed before its timeout")
	}
	h.advance(time.Second)
	if h.roomExists(room) {
		t.Fatal("row still present at t1+60s")
	}
	if h.platform.Exists(room) || h.registry.Has(room) {
		t.Fatal("room not fully destroyed")
	}
}

func TestZeroTimeoutDestroysImmediately(t *testing.T) {
	h := newHarness(t)
	h.setConfig(func(c *domain.TenantVoiceConfig) { c.EmptyTimeoutMinutes = 0 })
	room := h.createRoom(userA).Room.ChannelID

	h.platform.Disconnect(testGuild, userA)
	if err := h.reaper.OnEmptied(h.ctx, testGuild, room); err != nil {
		t.Fatal(err)
	}
	if h.roomExists(room) {
		t.Fatal("room survived a zero timeout")
	}
}

func TestEmptyRoomIsKept(t *testing.T) {
	tests := []struct {
		name      string
		cfg       func(*domain.TenantVoiceConfig)
		keepAlive bool
	}{
		{name: "keep alive", keepAlive: true},
		{name: "delete when empty off", cfg: func(c *domain.TenantVoiceConfig) { c.DeleteWhenEmpty = false }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.cfg != nil {
				h.setConfig(tt.cfg)
			}
			room := h.createRoom(userA).Room.ChannelID
			if tt.keepAlive {
				row := h.row(room)
				row.KeepAlive = true
				if err := h.store.UpdateRoom(h.ctx, row); err != nil {
					t.Fatal(err)
				}
			}

			h.platform.Disconnect(testGuild, userA)
			if err := h.reaper.OnEmptied(h.ctx, testGuild, room); err != nil {
				t.Fatal(err)
			}
			if _, idle := h.registry.IdleSince(room); idle {
				t.Fatal("kept room marked idle")
			}
			h.advance(time.Hour)
			if _, ok := h.reaper.Sweep(h.ctx); !ok {
				t.Fatal("sweep skipped")
			}
			if !h.roomExists(room) {
				t.Fatal("kept room destroyed")
			}
		})
	}
}

func TestExpiryRechecksOccupancy(t *testing.T) {
	h := newHarness(t)
	room := h.createRoom(userA).Room.ChannelID
	h.platform.Disconnect(testGuild, userA)
	if err := h.reaper.OnEmptied(h.ctx, testGuild, room); err != nil {
		t.Fatal(err)
	}

	// B joins but the event has not been processed yet.
	h.platform.Connect(testGuild, userB, room)
	h.advance(time.Minute)

	if !h.roomExists(room) {
		t.Fatal("occupied room destroyed")
	}
	if _, idle := h.registry.IdleSince(room); idle {
		t.Fatal("idle mark kept for an occupied room")
	}
}

func TestSweepDestroysRoomWhoseTimerWasLost(t *testing.T) {
	h := newHarness(t)
	room := h.createRoom(userA).Room.ChannelID
	h.platform.Disconnect(testGuild, userA)
	if err := h.reaper.OnEmptied(h.ctx, testGuild, room); err != nil {
		t.Fatal(err)
	}
	h.scheduler.Cancel(room)

	h.clock.Advance(2 * time.Minute)
	n, ok := h.reaper.Sweep(h.ctx)
	if !ok || n != 1 {
		t.Fatalf("Sweep = (%d, %v), want (1, true)", n, ok)
	}
	if h.roomExists(room) {
		t.Fatal("overdue room survived the sweep")
	}
}

func TestSweepReschedulesLostTimer(t *testing.T) {
	h := newHarness(t)
	room := h.createRoom(userA).Room.ChannelID
	h.platform.Disconnect(testGuild, userA)
	if err := h.reaper.OnEmptied(h.ctx, testGuild, room); err != nil {
		t.Fatal(err)
	}
	h.scheduler.Cancel(room)

	h.clock.Advance(30 * time.Second)
	if n, _ := h.reaper.Sweep(h.ctx); n != 0 {
		t.Fatalf("destroyed %d rooms before their deadline", n)
	}
	if deadline, ok := h.scheduler.Pending(room); !ok || !deadline.Equal(t0.Add(time.Minute)) {
		t.Fatalf("deadline = %v, %v, want the original one", deadline, ok)
	}
}

func TestSweepIsSkippedWhileRunning(t *testing.T) {
	h := newHarness(t)
	h.reaper.sweepMu.Lock()
	defer h.reaper.sweepMu.Unlock()

	if n, ok := h.reaper.Sweep(h.ctx); ok || n != 0 {
		t.Fatalf("Sweep = (%d, %v), want skipped", n, ok)
	}
}

func TestConcurrentDestroyRemovesRoomOnce(t *testing.T) {
	h := newHarness(t)
	res := h.createRoom(userA)
	room := res.Room.ChannelID

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reason := ReasonIdle
			if i%2 == 0 {
				reason = ReasonDeleted
			}
			removed, err := h.teardown.Destroy(h.ctx, testGuild, room, reason)
			if err != nil {
				t.Error(err)
			}
			if removed {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("destroy succeeded %d times, want 1", wins.Load())
	}
	if n := h.platform.Calls("DeleteChannel"); n != 2 {
		t.Fatalf("DeleteChannel calls = %d, want 2", n)
	}
	if h.roomExists(room) || h.registry.Has(room) {
		t.Fatal("room not destroyed")
	}
}

func TestDestroyOfMissingRoomIsNoop(t *testing.T) {
	h := newHarness(t)
	removed, err := h.teardown.Destroy(h.ctx, testGuild, "424242", ReasonDeleted)
	if err != nil || removed {
		t.Fatalf("Destroy = (%v, %v), want (false, nil)", removed, err)
	}
	if h.platform.Calls("DeleteChannel") != 0 {
		t.Fatal("platform delete attempted for an unknown room")
	}
}

func TestDestroyKeepsTrackingWhenPlatformRefuses(t *testing.T) {
	h := newHarness(t)
	room := h.createRoom(userA).Room.ChannelID
	h.platform.Disconnect(testGuild, userA)
	if err := h.reaper.OnEmptied(h.ctx, testGuild, room); err != nil {
		t.Fatal(err)
	}
	h.platform.FailOn("DeleteChannel", errors.New("rate limited"))

	h.advance(time.Minute)
	if !h.roomExists(room) || !h.registry.Has(room) {
		t.Fatal("room forgotten although its channel still exists")
	}
	if _, idle := h.registry.IdleSince(room); !idle {
		t.Fatal("idle mark lost")
	}

	h.platform.FailOn("DeleteChannel", nil)
	if n, _ := h.reaper.Sweep(h.ctx); n != 1 {
		t.Fatalf("sweep destroyed %d rooms, want 1", n)
	}
}

func TestExpiryPurgesRoomDeletedOnPlatform(t *testing.T) {
	h := newHarness(t)
	res := h.createRoom(userA)
	room := res.Room.ChannelID
	h.platform.Disconnect(testGuild, userA)
	if err := h.reaper.OnEmptied(h.ctx, testGuild, room); err != nil {
		t.Fatal(err)
	}
	h.platform.RemoveChannel(room)

	h.advance(time.Minute)
	if _, err := h.store.GetRoom(h.ctx, testGuild, room); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetRoom err = %v, want not found", err)
	}
	if h.platform.Exists(res.Room.TextChannelID) {
		t.Fatal("text surface left behind")
	}
}
