// Package coretest provides an in-memory Platform for lifecycle tests.
package coretest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
)

var ErrNotConnected = errors.New("member not connected to voice")

type channel struct {
	info       core.Channel
	limit      int
	bitrate    int
	overwrites map[string]domain.Overwrite
}

// Platform is a stateful fake of core.Platform. Failures can be injected
// per operation name (the method name, e.g. "MoveMember").
type Platform struct {
	mu       sync.Mutex
	guilds   map[domain.GuildID]domain.Guild
	members  map[domain.GuildID]map[domain.UserID]domain.Member
	channels map[domain.ChannelID]*channel
	voice    map[domain.GuildID]map[domain.UserID]domain.ChannelID
	panels   map[domain.ChannelID][]core.ControlPanel
	fail     map[string]error
	calls    map[string]int
	next     int
}

var _ core.Platform = (*Platform)(nil)

func NewPlatform() *Platform {
	return &Platform{
		guilds:   make(map[domain.GuildID]domain.Guild),
		members:  make(map[domain.GuildID]map[domain.UserID]domain.Member),
		channels: make(map[domain.ChannelID]*channel),
		voice:    make(map[domain.GuildID]map[domain.UserID]domain.ChannelID),
		panels:   make(map[domain.ChannelID][]core.ControlPanel),
		fail:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (p *Platform) AddGuild(g domain.Guild) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.guilds[g.ID] = g
}

func (p *Platform) AddMember(guild domain.GuildID, m domain.Member) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.members[guild] == nil {
		p.members[guild] = make(map[domain.UserID]domain.Member)
	}
	p.members[guild][m.ID] = m
}

func (p *Platform) AddChannel(ch core.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels[ch.ID] = &channel{info: ch, overwrites: make(map[string]domain.Overwrite)}
}

// Connect puts a member into a voice channel without going through
// MoveMember, the way a member joining on their own would.
func (p *Platform) Connect(guild domain.GuildID, user domain.UserID, ch domain.ChannelID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.voice[guild] == nil {
		p.voice[guild] = make(map[domain.UserID]domain.ChannelID)
	}
	p.voice[guild][user] = ch
}

func (p *Platform) Disconnect(guild domain.GuildID, user domain.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.voice[guild], user)
}

// RemoveChannel deletes a channel behind the lifecycle's back.
func (p *Platform) RemoveChannel(id domain.ChannelID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(id)
}

// FailOn makes every later call of op return err. A nil err clears it.
func (p *Platform) FailOn(op string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.fail, op)
		return
	}
	p.fail[op] = err
}

func (p *Platform) Calls(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

func (p *Platform) Exists(id domain.ChannelID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.channels[id]
	return ok
}

func (p *Platform) ChannelState(id domain.ChannelID) (name string, limit, bitrate int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.channels[id]
	if !ok {
		return "", 0, 0, false
	}
	return c.info.Name, c.limit, c.bitrate, true
}

// OverwriteOf returns the overwrite for target on a channel.
func (p *Platform) OverwriteOf(id domain.ChannelID, target string) (domain.Overwrite, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.channels[id]
	if !ok {
		return domain.Overwrite{}, false
	}
	ow, ok := c.overwrites[target]
	return ow, ok
}

func (p *Platform) Location(guild domain.GuildID, user domain.UserID) domain.ChannelID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.voice[guild][user]
}

func (p *Platform) Panels(id domain.ChannelID) []core.ControlPanel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.ControlPanel(nil), p.panels[id]...)
}

// enter counts a call and returns the injected failure, if any. Callers
// hold p.mu.
func (p *Platform) enter(op string) error {
	p.calls[op]++
	return p.fail[op]
}

func (p *Platform) Guild(_ context.Context, guild domain.GuildID) (domain.Guild, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("Guild"); err != nil {
		return domain.Guild{}, err
	}
	g, ok := p.guilds[guild]
	if !ok {
		return domain.Guild{}, fmt.Errorf("unknown guild %s", guild)
	}
	return g, nil
}

func (p *Platform) Member(_ context.Context, guild domain.GuildID, user domain.UserID) (domain.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("Member"); err != nil {
		return domain.Member{}, err
	}
	m, ok := p.members[guild][user]
	if !ok {
		return domain.Member{}, fmt.Errorf("unknown member %s", user)
	}
	return m, nil
}

func (p *Platform) Channel(_ context.Context, id domain.ChannelID) (core.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("Channel"); err != nil {
		return core.Channel{}, err
	}
	c, ok := p.channels[id]
	if !ok {
		return core.Channel{}, core.ErrChannelNotFound
	}
	return c.info, nil
}

func (p *Platform) Occupants(_ context.Context, guild domain.GuildID, id domain.ChannelID) ([]domain.UserID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("Occupants"); err != nil {
		return nil, err
	}
	if _, ok := p.channels[id]; !ok {
		return nil, core.ErrChannelNotFound
	}
	var out []domain.UserID
	for user, at := range p.voice[guild] {
		if at == id {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (p *Platform) CreateRoom(_ context.Context, spec core.RoomSpec) (core.PlatformRoom, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("CreateRoom"); err != nil {
		return core.PlatformRoom{}, err
	}
	voice := p.newChannelLocked(spec.GuildID, spec.CategoryID, core.ChannelVoice, spec.Name, spec.Overwrites)
	voice.limit = spec.Limit
	voice.bitrate = spec.Bitrate
	text := p.newChannelLocked(spec.GuildID, spec.CategoryID, core.ChannelText, spec.Name, spec.Overwrites)
	return core.PlatformRoom{VoiceID: voice.info.ID, TextID: text.info.ID}, nil
}

func (p *Platform) newChannelLocked(guild domain.GuildID, parent domain.ChannelID, kind core.ChannelKind, name string, ows []domain.Overwrite) *channel {
	p.next++
	c := &channel{
		info: core.Channel{
			ID:       domain.ChannelID(fmt.Sprintf("9%04d", p.next)),
			GuildID:  guild,
			ParentID: parent,
			Kind:     kind,
			Name:     name,
		},
		overwrites: make(map[string]domain.Overwrite),
	}
	for _, ow := range ows {
		c.overwrites[ow.TargetID] = ow
	}
	p.channels[c.info.ID] = c
	return c
}

func (p *Platform) EditRoom(_ context.Context, id domain.ChannelID, edit core.RoomEdit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("EditRoom"); err != nil {
		return err
	}
	c, ok := p.channels[id]
	if !ok {
		return core.ErrChannelNotFound
	}
	if edit.Name != nil {
		c.info.Name = *edit.Name
	}
	if edit.Limit != nil {
		c.limit = *edit.Limit
	}
	if edit.Bitrate != nil {
		c.bitrate = *edit.Bitrate
	}
	return nil
}

func (p *Platform) DeleteChannel(_ context.Context, id domain.ChannelID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("DeleteChannel"); err != nil {
		return err
	}
	if _, ok := p.channels[id]; !ok {
		return core.ErrChannelNotFound
	}
	p.removeLocked(id)
	return nil
}

func (p *Platform) removeLocked(id domain.ChannelID) {
	delete(p.channels, id)
	for _, members := range p.voice {
		for user, at := range members {
			if at == id {
				delete(members, user)
			}
		}
	}
}

func (p *Platform) Overwrites(_ context.Context, id domain.ChannelID) ([]domain.Overwrite, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("Overwrites"); err != nil {
		return nil, err
	}
	c, ok := p.channels[id]
	if !ok {
		return nil, core.ErrChannelNotFound
	}
	out := make([]domain.Overwrite, 0, len(c.overwrites))
	for _, ow := range c.overwrites {
		out = append(out, ow)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	return out, nil
}

func (p *Platform) SetOverwrite(_ context.Context, id domain.ChannelID, ow domain.Overwrite) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("SetOverwrite"); err != nil {
		return err
	}
	c, ok := p.channels[id]
	if !ok {
		return core.ErrChannelNotFound
	}
	c.overwrites[ow.TargetID] = ow
	return nil
}

func (p *Platform) RemoveOverwrite(_ context.Context, id domain.ChannelID, target string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("RemoveOverwrite"); err != nil {
		return err
	}
	c, ok := p.channels[id]
	if !ok {
		return core.ErrChannelNotFound
	}
	delete(c.overwrites, target)
	return nil
}

func (p *Platform) MoveMember(_ context.Context, guild domain.GuildID, user domain.UserID, to domain.ChannelID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("MoveMember"); err != nil {
		return err
	}
	if _, connected := p.voice[guild][user]; !connected {
		return ErrNotConnected
	}
	if to.IsZero() {
		delete(p.voice[guild], user)
		return nil
	}
	if _, ok := p.channels[to]; !ok {
		return core.ErrChannelNotFound
	}
	p.voice[guild][user] = to
	return nil
}

func (p *Platform) PostControlPanel(_ context.Context, id domain.ChannelID, panel core.ControlPanel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("PostControlPanel"); err != nil {
		return err
	}
	if _, ok := p.channels[id]; !ok {
		return core.ErrChannelNotFound
	}
	p.panels[id] = append(p.panels[id], panel)
	return nil
}
