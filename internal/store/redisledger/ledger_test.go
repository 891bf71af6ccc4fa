package redisledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLedger(t *testing.T) (*Ledger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client), mr
}

func TestRecordLoadClear(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)
	since := time.UnixMilli(1_760_000_000_000)

	if err := l.Record(ctx, "1", "10", since); err != nil {
		t.Fatal(err)
	}
	if err := l.Record(ctx, "1", "11", since.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	got, err := l.Load(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || !got["10"].Equal(since) {
		t.Fatalf("Load = %v", got)
	}

	if err := l.Clear(ctx, "1", "10"); err != nil {
		t.Fatal(err)
	}
	got, _ = l.Load(ctx, "1")
	if _, ok := got["10"]; ok || len(got) != 1 {
		t.Fatalf("after Clear: %v", got)
	}

	if err := l.Drop(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	got, _ = l.Load(ctx, "1")
	if len(got) != 0 {
		t.Fatalf("after Drop: %v", got)
	}
}

func TestLoadSkipsGarbage(t *testing.T) {
	ctx := context.Background()
	l, mr := newLedger(t)
	mr.HSet(idleKey("1"), "10", "yesterday")
	mr.HSet(idleKey("1"), "11", "1760000000000")

	got, err := l.Load(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got["10"]; ok || len(got) != 1 {
		t.Fatalf("Load = %v", got)
	}
}

func TestDialFailsFast(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := Dial(ctx, Options{Addr: "127.0.0.1:1"}); err == nil {
		t.Fatal("expected dial to an unused port to fail")
	}
}
