package discord

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
)

func TestPermissionTranslation(t *testing.T) {
	got := toDiscordPerms(domain.LockedDeny)
	want := int64(discordgo.PermissionViewChannel | discordgo.PermissionVoiceConnect)
	if got != want {
		t.Fatalf("LockedDeny = %b, want %b", got, want)
	}
	if back := fromDiscordPerms(toDiscordPerms(domain.OwnerAccess)); back != domain.OwnerAccess {
		t.Fatalf("OwnerAccess round trip = %b", back)
	}
	extra := toDiscordPerms(domain.MemberAccess) | discordgo.PermissionAdministrator
	if got := fromDiscordPerms(extra); got != domain.MemberAccess {
		t.Fatalf("unmodelled bits leaked: %b", got)
	}
}

func TestOverwriteTranslation(t *testing.T) {
	ow := domain.MemberOverwrite("501", domain.GuestAccess, 0)
	d := toDiscordOverwrite(ow)
	if d.ID != "501" || d.Type != discordgo.PermissionOverwriteTypeMember || d.Deny != 0 {
		t.Fatalf("discord overwrite = %+v", d)
	}
	if back := fromDiscordOverwrite(d); back != ow {
		t.Fatalf("round trip = %+v, want %+v", back, ow)
	}

	role := toDiscordOverwrite(domain.RoleOverwrite("100", 0, domain.LockedDeny))
	if role.Type != discordgo.PermissionOverwriteTypeRole {
		t.Fatalf("role type = %v", role.Type)
	}
}

func TestTranslateUnknownChannel(t *testing.T) {
	unknown := &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownChannel}}
	if err := translate(unknown); !errors.Is(err, core.ErrChannelNotFound) {
		t.Fatalf("unknown channel = %v", err)
	}
	gone := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	if err := translate(gone); !errors.Is(err, core.ErrChannelNotFound) {
		t.Fatalf("404 = %v", err)
	}
	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}
	if err := translate(forbidden); errors.Is(err, core.ErrChannelNotFound) {
		t.Fatal("403 treated as missing channel")
	}
	if translate(nil) != nil {
		t.Fatal("nil error translated")
	}
}

func TestMembershipChange(t *testing.T) {
	vs := func(channel string) *discordgo.VoiceState {
		return &discordgo.VoiceState{GuildID: "100", UserID: "501", ChannelID: channel}
	}

	join := &discordgo.VoiceStateUpdate{VoiceState: vs("200")}
	ch, ok := membershipChange(join)
	if !ok || ch.Before != "" || ch.After != "200" || ch.UserID != "501" {
		t.Fatalf("join = %+v %v", ch, ok)
	}

	move := &discordgo.VoiceStateUpdate{VoiceState: vs("300"), BeforeUpdate: vs("200")}
	ch, ok = membershipChange(move)
	if !ok || ch.Before != "200" || ch.After != "300" {
		t.Fatalf("move = %+v %v", ch, ok)
	}

	mute := &discordgo.VoiceStateUpdate{VoiceState: vs("200"), BeforeUpdate: vs("200")}
	if _, ok := membershipChange(mute); ok {
		t.Fatal("mute reported as a move")
	}

	bot := &discordgo.VoiceStateUpdate{VoiceState: vs("200")}
	bot.Member = &discordgo.Member{User: &discordgo.User{ID: "501", Bot: true}}
	if ch, _ := membershipChange(bot); !ch.Bot {
		t.Fatal("bot flag lost")
	}
}

func TestTextName(t *testing.T) {
	cases := map[string]string{
		"Late night":   "late-night",
		"  ??  ":       "room-chat",
		"Dave's Room!": "dave-s-room",
	}
	for in, want := range cases {
		if got := textName(in); got != want {
			t.Errorf("textName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPanelMessage(t *testing.T) {
	msg := panelMessage(core.ControlPanel{
		Room:    &domain.ActiveRoom{OwnerID: "501", Locked: true},
		Name:    "Late night",
		Limit:   0,
		Bitrate: 64000,
	})
	if msg.Content != "<@501>" || len(msg.Embeds) != 1 {
		t.Fatalf("message = %+v", msg)
	}
	e := msg.Embeds[0]
	if e.Title != "Late night" || e.Fields[0].Value != "unlimited" || e.Fields[1].Value != "64 kbps" || e.Fields[2].Value != "on" {
		t.Fatalf("embed = %+v", e)
	}
}

func TestEditPatchSendsZeroLimit(t *testing.T) {
	zero := 0
	b, err := json.Marshal(editPatch(core.RoomEdit{Limit: &zero}))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"user_limit":0}` {
		t.Fatalf("patch = %s", b)
	}

	name := "Late night"
	b, _ = json.Marshal(editPatch(core.RoomEdit{Name: &name}))
	if string(b) != `{"name":"Late night"}` {
		t.Fatalf("patch = %s", b)
	}
}
