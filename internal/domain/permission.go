package domain

// Permission is a platform-neutral permission bit set. Adapters translate it
// to the platform's own bits.
type Permission uint32

const (
	PermView Permission = 1 << iota
	PermConnect
	PermSpeak
	PermSendMessages
	PermManage
	PermMoveMembers
	PermMuteMembers
	PermDeafenMembers
)

const (
	// LockedDeny is what the default role loses on a locked room.
	LockedDeny = PermView | PermConnect
	// GuestAccess is granted to allow-listed members of a locked room.
	GuestAccess = PermView | PermConnect
	// MemberAccess is what a former owner keeps.
	MemberAccess = PermView | PermConnect | PermSpeak | PermSendMessages
	// OwnerAccess is the privileged set held by the room owner.
	OwnerAccess = MemberAccess | PermManage | PermMoveMembers | PermMuteMembers | PermDeafenMembers
	// DeniedAccess is what a deny-listed member loses.
	DeniedAccess = PermView | PermConnect
)

func (p Permission) Has(q Permission) bool { return p&q == q }

type OverwriteKind int

const (
	OverwriteRole OverwriteKind = iota
	OverwriteMember
)

// Overwrite is a per-channel permission override for one role or member.
type Overwrite struct {
	TargetID string
	Kind     OverwriteKind
	Allow    Permission
	Deny     Permission
}

func MemberOverwrite(id UserID, allow, deny Permission) Overwrite {
	return Overwrite{TargetID: string(id), Kind: OverwriteMember, Allow: allow, Deny: deny}
}

func RoleOverwrite(id RoleID, allow, deny Permission) Overwrite {
	return Overwrite{TargetID: string(id), Kind: OverwriteRole, Allow: allow, Deny: deny}
}
