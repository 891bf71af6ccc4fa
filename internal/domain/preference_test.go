package domain

import "testing"

func intp(v int) *int { return &v }

func TestResolveSettingsRespectsToggles(t *testing.T) {
	cfg := DefaultTenantConfig("1")
	cfg.MaxBitrate = 96000
	cfg.MaxLimit = 10
	cfg.AllowNameChange = false
	cfg.AllowLock = false

	pref := &UserPreference{
		NameTemplate: "my place",
		Limit:        intp(25),
		Bitrate:      intp(256000),
		Locked:       true,
		KeepAlive:    true,
		Allowed:      IDList{"7"},
	}
	s := ResolveSettings(cfg, pref, Tier3)

	if s.NameTemplate != DefaultNameTemplate {
		t.Errorf("name template = %q, want tenant default", s.NameTemplate)
	}
	if s.Limit != 10 {
		t.Errorf("limit = %d, want 10", s.Limit)
	}
	if s.Bitrate != 96000 {
		t.Errorf("bitrate = %d, want 96000", s.Bitrate)
	}
	if s.Locked {
		t.Error("locked must be false when the guild disallows locking")
	}
	if !s.KeepAlive || !s.Allowed.Contains("7") {
		t.Errorf("keep-alive and lists should carry over: %+v", s)
	}
}

func TestResolveSettingsPlatformCeiling(t *testing.T) {
	cfg := DefaultTenantConfig("1")
	cfg.MaxBitrate = 384000
	s := ResolveSettings(cfg, &UserPreference{Bitrate: intp(384000)}, TierNone)
	if s.Bitrate != 96000 {
		t.Fatalf("bitrate = %d, want tier ceiling 96000", s.Bitrate)
	}
}

func TestIDList(t *testing.T) {
	var l IDList
	l, added := l.With("1")
	if !added {
		t.Fatal("expected add")
	}
	if _, added = l.With("1"); added {
		t.Fatal("duplicate add")
	}
	l2, removed := l.Without("1")
	if !removed || len(l2) != 0 || len(l) != 1 {
		t.Fatalf("Without must not mutate the receiver: %v %v", l, l2)
	}
	parsed, err := ParseIDList(IDList{"1", "2"}.Encode())
	if err != nil || len(parsed) != 2 {
		t.Fatalf("parse: %v %v", parsed, err)
	}
	if IDList(nil).Encode() != "[]" {
		t.Fatal("nil list must encode as []")
	}
}
