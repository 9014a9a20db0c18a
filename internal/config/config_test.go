package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/simp-lee/comicrepack"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Profile != "kindle2022" {
		t.Errorf("Profile = %q, want %q", cfg.Profile, "kindle2022")
	}
	if cfg.Compression != 1 {
		t.Errorf("Compression = %d, want 1", cfg.Compression)
	}
	if cfg.Workers != 1 {
		t.Errorf("Workers = %d, want 1", cfg.Workers)
	}
	if cfg.Suffix != "_repacked" {
		t.Errorf("Suffix = %q, want %q", cfg.Suffix, "_repacked")
	}
	if cfg.IncludeCover {
		t.Error("IncludeCover = true, want false")
	}
	if cfg.RightToLeft != nil {
		t.Errorf("RightToLeft = %v, want unset", *cfg.RightToLeft)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("COMICREPACK_PROFILE", "oasis")
	t.Setenv("COMICREPACK_WORKERS", "4")
	t.Setenv("COMICREPACK_RTL", "yes")
	t.Setenv("COMICREPACK_QUALITY", "not-a-number")
	t.Setenv("COMICREPACK_LOG_LEVEL", " debug ")

	cfg := FromEnv()
	if cfg.Profile != "oasis" {
		t.Errorf("Profile = %q, want %q", cfg.Profile, "oasis")
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.RightToLeft == nil || !*cfg.RightToLeft {
		t.Errorf("RightToLeft = %v, want true", cfg.RightToLeft)
	}
	if cfg.Quality != 0 {
		t.Errorf("Quality = %d, want fallback 0", cfg.Quality)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"true", true},
		{"1", true},
		{"ON", true},
		{"false", false},
		{"", false},
		{"nope", false},
	}
	for _, tt := range tests {
		if got := parseBool(tt.in); got != tt.want {
			t.Errorf("parseBool(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func writeProfiles(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadProfiles(t *testing.T) {
	path := writeProfiles(t, `
profiles:
  MyTablet:
    width: 1200
    height: 1600
    right_to_left: true
    blank:
      white_ratio: 0.85
`)
	profiles, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	p, ok := profiles["mytablet"]
	if !ok {
		t.Fatalf("profiles = %v, want key mytablet", profiles)
	}
	if p.Width != 1200 || p.Height != 1600 {
		t.Errorf("viewport = %dx%d, want 1200x1600", p.Width, p.Height)
	}
	if !p.RightToLeft {
		t.Error("RightToLeft = false, want true")
	}
	if p.Blank.WhiteRatio != 0.85 {
		t.Errorf("WhiteRatio = %v, want 0.85", p.Blank.WhiteRatio)
	}
	def := comicrepack.DefaultBlankThresholds()
	if p.Blank.CenterStdDev != def.CenterStdDev || p.Blank.ThumbnailSize != def.ThumbnailSize {
		t.Errorf("unset thresholds not defaulted: %+v", p.Blank)
	}
	if p.Quality != 90 {
		t.Errorf("Quality = %d, want 90", p.Quality)
	}
}

func TestLoadProfilesExplicitZeroThresholds(t *testing.T) {
	path := writeProfiles(t, `
profiles:
  nofilter:
    width: 1200
    height: 1600
    blank:
      center_stddev: 0
      ink_level: 0
      min_dimension: 0
`)
	profiles, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	got := profiles["nofilter"].Blank
	want := comicrepack.DefaultBlankThresholds()
	want.CenterStdDev = 0
	want.InkLevel = 0
	want.MinDimension = 0
	if got != want {
		t.Errorf("Blank = %+v, want %+v", got, want)
	}
}

func TestLoadProfilesInvalid(t *testing.T) {
	path := writeProfiles(t, "profiles:\n  broken:\n    width: 0\n    height: 100\n")
	_, err := LoadProfiles(path)
	if !errors.Is(err, comicrepack.ErrInvalidProfile) {
		t.Errorf("err = %v, want ErrInvalidProfile", err)
	}
}

func TestLoadProfilesMissingFile(t *testing.T) {
	if _, err := LoadProfiles(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestResolveProfile(t *testing.T) {
	custom := map[string]comicrepack.Profile{
		"oasis": {Name: "oasis", Width: 1, Height: 2, Quality: 50},
	}

	p, err := ResolveProfile("Oasis", custom)
	if err != nil {
		t.Fatalf("ResolveProfile: %v", err)
	}
	if p.Width != 1 {
		t.Errorf("custom profile did not shadow built-in: %+v", p)
	}

	p, err = ResolveProfile("scribe", nil)
	if err != nil {
		t.Fatalf("ResolveProfile: %v", err)
	}
	if p.Width != 1860 || p.Height != 2480 {
		t.Errorf("scribe = %dx%d, want 1860x2480", p.Width, p.Height)
	}

	p, err = ResolveProfile("", nil)
	if err != nil || p.Name != comicrepack.DefaultProfileName {
		t.Errorf("ResolveProfile(\"\") = %+v, %v; want default", p, err)
	}

	if _, err := ResolveProfile("etch-a-sketch", nil); !errors.Is(err, comicrepack.ErrInvalidProfile) {
		t.Errorf("err = %v, want ErrInvalidProfile", err)
	}
}

func TestApply(t *testing.T) {
	rtl := true
	base := comicrepack.DefaultProfile()
	got := Config{Width: 800, Quality: 70, RightToLeft: &rtl}.Apply(base)
	if got.Width != 800 || got.Height != base.Height {
		t.Errorf("viewport = %dx%d, want 800x%d", got.Width, got.Height, base.Height)
	}
	if got.Quality != 70 || !got.RightToLeft {
		t.Errorf("got %+v, want quality 70 and rtl", got)
	}
}

func TestApplyRightToLeft(t *testing.T) {
	yes, no := true, false
	manga := comicrepack.DefaultProfile()
	manga.RightToLeft = true

	tests := []struct {
		name string
		base comicrepack.Profile
		rtl  *bool
		want bool
	}{
		{"unset keeps profile rtl", manga, nil, true},
		{"unset keeps profile ltr", comicrepack.DefaultProfile(), nil, false},
		{"false clears profile rtl", manga, &no, false},
		{"true sets rtl", comicrepack.DefaultProfile(), &yes, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Config{RightToLeft: tt.rtl}).Apply(tt.base).RightToLeft; got != tt.want {
				t.Errorf("RightToLeft = %v, want %v", got, tt.want)
			}
		})
	}
}
