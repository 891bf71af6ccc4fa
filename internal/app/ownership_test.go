package app

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store/memstore"
)

func newTransfer(t *testing.T) (*OwnershipTransfer, *core.MockPlatform, *memstore.Store, *domain.ActiveRoom) {
	t.Helper()
	ctrl := gomock.NewController(t)
	platform := core.NewMockPlatform(ctrl)
	s := memstore.New()
	row := &domain.ActiveRoom{
		GuildID:       testGuild,
		ChannelID:     "700",
		TextChannelID: "701",
		OwnerID:       userA,
		Locked:        true,
		Allowed:       domain.IDList{userC},
		Denied:        domain.IDList{},
	}
	if err := s.CreateRoom(context.Background(), row); err != nil {
		t.Fatal(err)
	}
	return &OwnershipTransfer{Store: s, Platform: platform, Registry: NewRegistry()}, platform, s, row
}

func TestTransferSwapsPrivileges(t *testing.T) {
	o, platform, s, row := newTransfer(t)
	ctx := context.Background()

	platform.EXPECT().Member(gomock.Any(), testGuild, userB).Return(domain.Member{ID: userB, Username: "bob"}, nil)
	for _, ch := range row.Surfaces() {
		gomock.InOrder(
			platform.EXPECT().SetOverwrite(gomock.Any(), ch, domain.MemberOverwrite(userA, domain.MemberAccess, 0)).Return(nil),
			platform.EXPECT().SetOverwrite(gomock.Any(), ch, domain.MemberOverwrite(userB, domain.OwnerAccess, 0)).Return(nil),
		)
	}

	ok, dec, err := o.Transfer(ctx, testGuild, row.ChannelID, userB)
	if err != nil || !ok {
		t.Fatalf("Transfer = (%v, %v)", ok, err)
	}
	if !dec.OK() {
		t.Fatalf("decoration failed: %v", dec.Err())
	}
	got, err := s.GetRoom(ctx, testGuild, row.ChannelID)
	if err != nil {
		t.Fatal(err)
	}
	if got.OwnerID != userB {
		t.Fatalf("owner = %s, want %s", got.OwnerID, userB)
	}
	if !got.Locked || len(got.Allowed) != 1 || got.Allowed[0] != userC {
		t.Fatalf("lock or lists changed: %+v", got)
	}
}

func TestTransferToCurrentOwner(t *testing.T) {
	o, _, _, row := newTransfer(t)
	ok, _, err := o.Transfer(context.Background(), testGuild, row.ChannelID, userA)
	if err != nil || ok {
		t.Fatalf("Transfer = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestTransferRejects(t *testing.T) {
	o, platform, _, row := newTransfer(t)
	ctx := context.Background()

	if _, _, err := o.Transfer(ctx, testGuild, row.ChannelID, ""); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("zero owner: err = %v", err)
	}
	if _, _, err := o.Transfer(ctx, testGuild, "404", userB); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("unknown room: err = %v", err)
	}

	platform.EXPECT().Member(gomock.Any(), testGuild, testBot).Return(domain.Member{ID: testBot, Bot: true}, nil)
	if _, _, err := o.Transfer(ctx, testGuild, row.ChannelID, testBot); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("bot owner: err = %v", err)
	}
}
