package domain

import (
	"strings"
	"unicode"
)

const FallbackRoomName = "Voice Room"

// NameVars are the values substituted into a room name template.
type NameVars struct {
	Username      string
	Discriminator string
	Guild         string
}

// RenderName expands {username}, {discriminator} and {guild} in template and
// sanitizes the result.
func RenderName(template string, vars NameVars) string {
	r := strings.NewReplacer(
		"{username}", vars.Username,
		"{discriminator}", vars.Discriminator,
		"{guild}", vars.Guild,
	)
	return SanitizeName(r.Replace(template))
}

// SanitizeName keeps letters, digits, whitespace, '-' and '_', collapses
// whitespace runs, and truncates to the platform's label length. An empty
// result becomes FallbackRoomName.
func SanitizeName(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			b.WriteRune(r)
			space = false
		case unicode.IsSpace(r):
			if !space {
				b.WriteRune(' ')
			}
			space = true
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return FallbackRoomName
	}
	if runes := []rune(out); len(runes) > MaxChannelNameLen {
		out = strings.TrimSpace(string(runes[:MaxChannelNameLen]))
	}
	return out
}
