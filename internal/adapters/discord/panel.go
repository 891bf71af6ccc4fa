package discord

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/bwmarrin/discordgo"

	"github.com/dkeye/tempvoice/internal/core"
)

const panelColor = 0x5865F2

// textName turns a room name into a valid text channel name: lowercase,
// spaces to dashes, no other punctuation.
func textName(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "room-chat"
	}
	return out
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func panelMessage(p core.ControlPanel) *discordgo.MessageSend {
	limit := "unlimited"
	if p.Limit > 0 {
		limit = fmt.Sprintf("%d", p.Limit)
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Limit", Value: limit, Inline: true},
		{Name: "Bitrate", Value: fmt.Sprintf("%d kbps", p.Bitrate/1000), Inline: true},
	}
	content := ""
	if p.Room != nil {
		content = fmt.Sprintf("<@%s>", p.Room.OwnerID)
		fields = append(fields,
			&discordgo.MessageEmbedField{Name: "Locked", Value: onOff(p.Room.Locked), Inline: true},
			&discordgo.MessageEmbedField{Name: "Keep alive", Value: onOff(p.Room.KeepAlive), Inline: true},
		)
	}
	return &discordgo.MessageSend{
		Content: content,
		Embeds: []*discordgo.MessageEmbed{{
			Title:  p.Name,
			Color:  panelColor,
			Fields: fields,
		}},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
}
