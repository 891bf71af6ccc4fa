// Package domain contains the entities and pure rules of the voice room
// lifecycle. Nothing here performs I/O.
package domain

type (
	GuildID   string
	ChannelID string
	UserID    string
	RoleID    string
)

// Platform ids are snowflakes; "0" is what an unset numeric column decodes to.
func (id GuildID) IsZero() bool   { return id == "" || id == "0" }
func (id ChannelID) IsZero() bool { return id == "" || id == "0" }
func (id UserID) IsZero() bool    { return id == "" || id == "0" }
func (id RoleID) IsZero() bool    { return id == "" || id == "0" }

// DefaultRole is the role every member of the guild holds. On the platform
// it shares the guild's id.
func (id GuildID) DefaultRole() RoleID { return RoleID(id) }
