package app

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/tempvoice/internal/domain"
)

type roomEntry struct {
	guild     domain.GuildID
	idleSince time.Time
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

// Registry is the in-memory index of live rooms per guild, plus the
// idle-since mark of rooms that are currently empty. The store is the source
// of truth; the registry is rebuilt from it per guild.
type Registry struct {
	mu      sync.RWMutex
	tenants map[domain.GuildID]map[domain.ChannelID]struct{}
	rooms   map[domain.ChannelID]*roomEntry
	claims  map[domain.ChannelID]struct{}

	lockMu sync.Mutex
	locks  map[lockKey]*roomLock
}

func NewRegistry() *Registry {
	return &Registry{
		tenants: make(map[domain.GuildID]map[domain.ChannelID]struct{}),
		rooms:   make(map[domain.ChannelID]*roomEntry),
		claims:  make(map[domain.ChannelID]struct{}),
		locks:   make(map[lockKey]*roomLock),
	}
}

func (r *Registry) Add(guild domain.GuildID, room domain.ChannelID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addLocked(guild, room)
	log.Debug().Str("module", "app.registry").Str("guild", string(guild)).Str("room", string(room)).Msg("room registered")
}

func (r *Registry) addLocked(guild domain.GuildID, room domain.ChannelID) {
	set, ok := r.tenants[guild]
	if !ok {
		set = make(map[domain.ChannelID]struct{})
		r.tenants[guild] = set
	}
	set[room] = struct{}{}
	if _, ok := r.rooms[room]; !ok {
		r.rooms[room] = &roomEntry{guild: guild}
	}
}

// Remove forgets a room. It reports whether the room was registered.
func (r *Registry) Remove(room domain.ChannelID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rooms[room]
	if !ok {
		return false
	}
	delete(r.rooms, room)
	if set := r.tenants[e.guild]; set != nil {
		delete(set, room)
	}
	log.Debug().Str("module", "app.registry").Str("guild", string(e.guild)).Str("room", string(room)).Msg("room removed")
	return true
}

func (r *Registry) Has(room domain.ChannelID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[room]
	return ok
}

func (r *Registry) GuildOf(room domain.ChannelID) (domain.GuildID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.rooms[room]
	if !ok {
		return "", false
	}
	return e.guild, true
}

// Rooms returns the registered rooms of a guild, sorted by id.
func (r *Registry) Rooms(guild domain.GuildID) []domain.ChannelID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ChannelID, 0, len(r.tenants[guild]))
	for id := range r.tenants[guild] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// MarkIdle records that a registered room became empty. A room that is
// already idle keeps its earlier mark. It returns the effective idle-since
// and false if the room is not registered.
func (r *Registry) MarkIdle(room domain.ChannelID, since time.Time) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rooms[room]
	if !ok {
		return time.Time{}, false
	}
	if e.idleSince.IsZero() || since.Before(e.idleSince) {
		e.idleSince = since
	}
	return e.idleSince, true
}

// ClearIdle removes the idle mark and reports whether there was one.
func (r *Registry) ClearIdle(room domain.ChannelID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rooms[room]
	if !ok || e.idleSince.IsZero() {
		return false
	}
	e.idleSince = time.Time{}
	return true
}

func (r *Registry) IdleSince(room domain.ChannelID) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.rooms[room]
	if !ok || e.idleSince.IsZero() {
		return time.Time{}, false
	}
	return e.idleSince, true
}

type IdleRoom struct {
	Guild domain.GuildID
	Room  domain.ChannelID
	Since time.Time
}

// IdleRooms snapshots every room currently marked idle, oldest first.
func (r *Registry) IdleRooms() []IdleRoom {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []IdleRoom
	for id, e := range r.rooms {
		if !e.idleSince.IsZero() {
			out = append(out, IdleRoom{Guild: e.guild, Room: id, Since: e.idleSince})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Since.Before(out[j].Since) })
	return out
}

func (r *Registry) IdleCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.rooms {
		if !e.idleSince.IsZero() {
			n++
		}
	}
	return n
}

// ReplaceTenant swaps a guild's slice of the registry for rooms. Idle marks
// of rooms that stay are kept. It returns the rooms that were dropped.
func (r *Registry) ReplaceTenant(guild domain.GuildID, rooms []domain.ChannelID) []domain.ChannelID {
	r.mu.Lock()
	defer r.mu.Unlock()
	keep := make(map[domain.ChannelID]struct{}, len(rooms))
	for _, id := range rooms {
		keep[id] = struct{}{}
	}
	var dropped []domain.ChannelID
	for id := range r.tenants[guild] {
		if _, ok := keep[id]; !ok {
			dropped = append(dropped, id)
			delete(r.rooms, id)
		}
	}
	r.tenants[guild] = make(map[domain.ChannelID]struct{}, len(rooms))
	for _, id := range rooms {
		r.addLocked(guild, id)
	}
	log.Info().Str("module", "app.registry").Str("guild", string(guild)).
		Int("rooms", len(rooms)).Int("dropped", len(dropped)).Msg("tenant rebuilt")
	return dropped
}

// DropTenant removes a guild's slice and returns the rooms it held.
func (r *Registry) DropTenant(guild domain.GuildID) []domain.ChannelID {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.tenants[guild]
	out := make([]domain.ChannelID, 0, len(set))
	for id := range set {
		out = append(out, id)
		delete(r.rooms, id)
	}
	delete(r.tenants, guild)
	log.Info().Str("module", "app.registry").Str("guild", string(guild)).Int("rooms", len(out)).Msg("tenant dropped")
	return out
}

// Claim marks a room as being destroyed. Only the first caller gets true;
// the claim holds until Release.
func (r *Registry) Claim(room domain.ChannelID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.claims[room]; busy {
		return false
	}
	r.claims[room] = struct{}{}
	return true
}

func (r *Registry) Release(room domain.ChannelID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.claims, room)
}

type lockKey struct {
	guild domain.GuildID
	room  domain.ChannelID
	owner domain.UserID
}

// LockRoom serializes read-modify-write cycles on one room's row. It never
// blocks operations on other rooms.
func (r *Registry) LockRoom(room domain.ChannelID) (unlock func()) {
	return r.lock(lockKey{room: room})
}

// LockOwner serializes room creation for one member of a guild, so a
// replace-then-create cycle cannot interleave with another.
func (r *Registry) LockOwner(guild domain.GuildID, owner domain.UserID) (unlock func()) {
	return r.lock(lockKey{guild: guild, owner: owner})
}

func (r *Registry) lock(k lockKey) func() {
	r.lockMu.Lock()
	l, ok := r.locks[k]
	if !ok {
		l = &roomLock{}
		r.locks[k] = l
	}
	l.refs++
	r.lockMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.lockMu.Lock()
		if l.refs--; l.refs == 0 {
			delete(r.locks, k)
		}
		r.lockMu.Unlock()
	}
}
