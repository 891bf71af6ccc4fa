package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/dkeye/tempvoice/internal/domain"
)

var permissionBits = []struct {
	local  domain.Permission
	remote int64
}{
	{domain.PermView, discordgo.PermissionViewChannel},
	{domain.PermConnect, discordgo.PermissionVoiceConnect},
	{domain.PermSpeak, discordgo.PermissionVoiceSpeak},
	{domain.PermSendMessages, discordgo.PermissionSendMessages},
	{domain.PermManage, discordgo.PermissionManageChannels},
	{domain.PermMoveMembers, discordgo.PermissionVoiceMoveMembers},
	{domain.PermMuteMembers, discordgo.PermissionVoiceMuteMembers},
	{domain.PermDeafenMembers, discordgo.PermissionVoiceDeafenMembers},
}

func toDiscordPerms(p domain.Permission) int64 {
	var out int64
	for _, b := range permissionBits {
		if p.Has(b.local) {
			out |= b.remote
		}
	}
	return out
}

// fromDiscordPerms drops bits the lifecycle does not model.
func fromDiscordPerms(p int64) domain.Permission {
	var out domain.Permission
	for _, b := range permissionBits {
		if p&b.remote == b.remote {
			out |= b.local
		}
	}
	return out
}

func overwriteType(k domain.OverwriteKind) discordgo.PermissionOverwriteType {
	if k == domain.OverwriteMember {
		return discordgo.PermissionOverwriteTypeMember
	}
	return discordgo.PermissionOverwriteTypeRole
}

func toDiscordOverwrite(ow domain.Overwrite) *discordgo.PermissionOverwrite {
	return &discordgo.PermissionOverwrite{
		ID:    ow.TargetID,
		Type:  overwriteType(ow.Kind),
		Allow: toDiscordPerms(ow.Allow),
		Deny:  toDiscordPerms(ow.Deny),
	}
}

func fromDiscordOverwrite(ow *discordgo.PermissionOverwrite) domain.Overwrite {
	kind := domain.OverwriteRole
	if ow.Type == discordgo.PermissionOverwriteTypeMember {
		kind = domain.OverwriteMember
	}
	return domain.Overwrite{
		TargetID: ow.ID,
		Kind:     kind,
		Allow:    fromDiscordPerms(ow.Allow),
		Deny:     fromDiscordPerms(ow.Deny),
	}
}
