package gormstore

import (
	"testing"

	"github.com/dkeye/tempvoice/internal/domain"
)

func TestRoomModelKeepsIDLists(t *testing.T) {
	room := &domain.ActiveRoom{
		GuildID:   "1",
		ChannelID: "10",
		OwnerID:   "5",
		Allowed:   domain.IDList{"7", "8"},
	}
	m := roomToModel(room)
	if m.Allowed != `["7","8"]` || m.Denied != "[]" {
		t.Fatalf("encoded lists: %q %q", m.Allowed, m.Denied)
	}
	back, err := m.toDomain()
	if err != nil {
		t.Fatal(err)
	}
	if !back.Allowed.Contains("8") || len(back.Denied) != 0 {
		t.Fatalf("decoded room: %+v", back)
	}
}

func TestCorruptIDListDecodesEmpty(t *testing.T) {
	m := &activeRoomModel{GuildID: "1", ChannelID: "10", OwnerID: "5", Allowed: "{not json", Denied: `["9"]`}
	r, err := m.toDomain()
	if err == nil {
		t.Fatal("expected an error for a corrupt allow-list")
	}
	if r == nil || r.OwnerID != "5" || len(r.Allowed) != 0 || !r.Denied.Contains("9") {
		t.Fatalf("decoded room: %+v", r)
	}
}
