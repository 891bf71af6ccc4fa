// Package core holds the ports between the lifecycle and the outside world:
// the chat platform it drives and the events it consumes.
package core

//go:generate mockgen -destination=mock_platform.go -package=core . Platform

import (
	"context"
	"errors"

	"github.com/dkeye/tempvoice/internal/domain"
)

// ErrChannelNotFound is returned by a Platform when the channel no longer
// exists. Callers that wanted it gone treat it as success.
var ErrChannelNotFound = errors.New("channel not found")

type ChannelKind int

const (
	ChannelOther ChannelKind = iota
	ChannelVoice
	ChannelText
	ChannelCategory
)

type Channel struct {
	ID       domain.ChannelID
	GuildID  domain.GuildID
	ParentID domain.ChannelID
	Kind     ChannelKind
	Name     string
}

// RoomSpec describes a room to create. Overwrites are applied to both the
// room and its text surface.
type RoomSpec struct {
	GuildID    domain.GuildID
	CategoryID domain.ChannelID
	Name       string
	Limit      int
	Bitrate    int
	Overwrites []domain.Overwrite
}

// PlatformRoom is a created room and its paired text surface. TextID is zero
// when the platform could not create the text surface.
type PlatformRoom struct {
	VoiceID domain.ChannelID
	TextID  domain.ChannelID
}

// RoomEdit changes the set fields of a room.
type RoomEdit struct {
	Name    *string
	Limit   *int
	Bitrate *int
}

// ControlPanel is what gets posted to a room's text surface.
type ControlPanel struct {
	Room    *domain.ActiveRoom
	Name    string
	Limit   int
	Bitrate int
}

// Platform is the chat platform as the lifecycle sees it.
type Platform interface {
	Guild(ctx context.Context, guild domain.GuildID) (domain.Guild, error)
	Member(ctx context.Context, guild domain.GuildID, user domain.UserID) (domain.Member, error)
	Channel(ctx context.Context, channel domain.ChannelID) (Channel, error)
	// Occupants lists the members currently connected to a voice room.
	Occupants(ctx context.Context, guild domain.GuildID, channel domain.ChannelID) ([]domain.UserID, error)

	CreateRoom(ctx context.Context, spec RoomSpec) (PlatformRoom, error)
	EditRoom(ctx context.Context, channel domain.ChannelID, edit RoomEdit) error
	DeleteChannel(ctx context.Context, channel domain.ChannelID) error

	Overwrites(ctx context.Context, channel domain.ChannelID) ([]domain.Overwrite, error)
	SetOverwrite(ctx context.Context, channel domain.ChannelID, ow domain.Overwrite) error
	RemoveOverwrite(ctx context.Context, channel domain.ChannelID, targetID string) error

	// MoveMember moves a connected member to channel. A zero channel
	// disconnects them.
	MoveMember(ctx context.Context, guild domain.GuildID, user domain.UserID, channel domain.ChannelID) error
	PostControlPanel(ctx context.Context, textChannel domain.ChannelID, panel ControlPanel) error
}
