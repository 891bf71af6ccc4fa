package domain

// Platform limits. Bitrates are in bits per second.
const (
	MinBitrate        = 8000
	DefaultBitrate    = 64000
	MaxOccupantLimit  = 99
	MaxChannelNameLen = 100
)

// Tier is the guild's premium tier, which decides the bitrate ceiling.
type Tier int

const (
	TierNone Tier = iota
	Tier1
	Tier2
	Tier3
)

var tierCeilings = [...]int{96000, 128000, 256000, 384000}

// BitrateCeiling is the highest bitrate the platform accepts for a room in a
// guild of the given tier.
func BitrateCeiling(t Tier) int {
	if t < TierNone {
		t = TierNone
	}
	if int(t) >= len(tierCeilings) {
		t = Tier3
	}
	return tierCeilings[t]
}

// NormalizeBitrate converts a value stored in kbps to bps. Anything below the
// platform floor cannot be a bps value, so it is read as kbps.
func NormalizeBitrate(v int) int {
	if v > 0 && v < MinBitrate {
		return v * 1000
	}
	return v
}

// ClampBitrate applies the tenant maximum and then the platform ceiling. A
// tenantMax of zero means "no tenant limit". The ceiling is applied even when
// the tenant maximum is above it.
func ClampBitrate(v, tenantMax int, tier Tier) int {
	v = NormalizeBitrate(v)
	if v <= 0 {
		v = DefaultBitrate
	}
	if tenantMax = NormalizeBitrate(tenantMax); tenantMax > 0 && v > tenantMax {
		v = tenantMax
	}
	if ceiling := BitrateCeiling(tier); v > ceiling {
		v = ceiling
	}
	if v < MinBitrate {
		v = MinBitrate
	}
	return v
}

// ClampLimit applies the tenant maximum and the platform ceiling to an
// occupant limit. Zero means unlimited, so a tenant maximum replaces it.
func ClampLimit(v, tenantMax int) int {
	if v < 0 {
		v = 0
	}
	if tenantMax > 0 && (v == 0 || v > tenantMax) {
		v = tenantMax
	}
	if v > MaxOccupantLimit {
		v = MaxOccupantLimit
	}
	return v
}
