package domain

// Member is the slice of a guild member the lifecycle needs: enough to
// render a room name and to recognise bots.
type Member struct {
	ID            UserID
	Username      string
	Discriminator string
	Bot           bool
}

// Guild describes a tenant as seen on the platform.
type Guild struct {
	ID   GuildID
	Name string
	Tier Tier
}
