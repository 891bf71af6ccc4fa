package domain

import (
	"encoding/json"
	"slices"
	"time"
)

// ActiveRoom is the persisted record of a live ephemeral room.
type ActiveRoom struct {
	GuildID       GuildID   `json:"guild_id"`
	ChannelID     ChannelID `json:"channel_id"`
	TextChannelID ChannelID `json:"text_channel_id,omitempty"`
	OwnerID       UserID    `json:"owner_id"`
	CreatedAt     time.Time `json:"created_at"`
	LastActiveAt  time.Time `json:"last_active_at"`
	Locked        bool      `json:"locked"`
	KeepAlive     bool      `json:"keep_alive"`
	Allowed       IDList    `json:"allowed"`
	Denied        IDList    `json:"denied"`
}

// Surfaces returns the room channel followed by its text surface, if any.
func (r *ActiveRoom) Surfaces() []ChannelID {
	if r.TextChannelID.IsZero() {
		return []ChannelID{r.ChannelID}
	}
	return []ChannelID{r.ChannelID, r.TextChannelID}
}

// Clone returns a deep copy, so stores can hand out rows without sharing the
// id lists.
func (r *ActiveRoom) Clone() *ActiveRoom {
	c := *r
	c.Allowed = slices.Clone(r.Allowed)
	c.Denied = slices.Clone(r.Denied)
	return &c
}

// IDList is an ordered set of user ids, stored as a JSON array.
type IDList []UserID

func (l IDList) Contains(id UserID) bool { return slices.Contains(l, id) }

// With returns the list with id appended, and whether it was added.
func (l IDList) With(id UserID) (IDList, bool) {
	if l.Contains(id) {
		return l, false
	}
	return append(l, id), true
}

// Without returns the list with id removed, and whether it was present.
func (l IDList) Without(id UserID) (IDList, bool) {
	i := slices.Index(l, id)
	if i < 0 {
		return l, false
	}
	return slices.Delete(slices.Clone(l), i, i+1), true
}

// Encode renders the list for storage. A nil list encodes as "[]".
func (l IDList) Encode() string {
	if len(l) == 0 {
		return "[]"
	}
	b, _ := json.Marshal([]UserID(l))
	return string(b)
}

// ParseIDList decodes a stored list. An empty string is an empty list.
func ParseIDList(s string) (IDList, error) {
	if s == "" {
		return IDList{}, nil
	}
	var out IDList
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}
