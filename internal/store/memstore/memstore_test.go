package memstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store"
)

func TestDeleteRoomIsCompareAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.CreateRoom(ctx, &domain.ActiveRoom{GuildID: "1", ChannelID: "10", OwnerID: "5"}); err != nil {
		t.Fatal(err)
	}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.DeleteRoom(ctx, "1", "10"); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("%d callers deleted the row, want exactly 1", wins.Load())
	}
	if _, err := s.GetRoom(ctx, "1", "10"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestRoomsAreCopied(t *testing.T) {
	ctx := context.Background()
	s := New()
	room := &domain.ActiveRoom{GuildID: "1", ChannelID: "10", Allowed: domain.IDList{"2"}}
	_ = s.CreateRoom(ctx, room)
	room.Allowed[0] = "99"

	got, err := s.GetRoom(ctx, "1", "10")
	if err != nil {
		t.Fatal(err)
	}
	if got.Allowed[0] != "2" {
		t.Fatal("store shares id lists with the caller")
	}
}

func TestUpdateAndListByOwner(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	_ = s.CreateRoom(ctx, &domain.ActiveRoom{GuildID: "1", ChannelID: "10", OwnerID: "5", CreatedAt: now})
	_ = s.CreateRoom(ctx, &domain.ActiveRoom{GuildID: "1", ChannelID: "11", OwnerID: "6", CreatedAt: now.Add(time.Second)})
	_ = s.CreateRoom(ctx, &domain.ActiveRoom{GuildID: "2", ChannelID: "12", OwnerID: "5", CreatedAt: now})

	rooms, _ := s.ListRoomsByOwner(ctx, "1", "5")
	if len(rooms) != 1 || rooms[0].ChannelID != "10" {
		t.Fatalf("ListRoomsByOwner = %+v", rooms)
	}
	if err := s.UpdateRoom(ctx, &domain.ActiveRoom{GuildID: "1", ChannelID: "404"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("update of missing row: %v", err)
	}
	if err := s.CreateRoom(ctx, &domain.ActiveRoom{GuildID: "1", ChannelID: "10"}); !errors.Is(err, store.ErrExists) {
		t.Fatalf("duplicate create: %v", err)
	}
}
