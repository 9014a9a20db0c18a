package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/simp-lee/comicrepack"
)

// profilesFile is the YAML layout of a device profile file:
//
//	profiles:
//	  mydevice:
//	    width: 1236
//	    height: 1648
//	    quality: 85
//	    right_to_left: true
//	    blank:
//	      white_ratio: 0.8
type profilesFile struct {
	Profiles map[string]comicrepack.Profile `yaml:"profiles"`
}

// LoadProfiles reads device profiles from the YAML file at path. Unset
// thresholds inherit the classifier defaults. Every profile is validated.
func LoadProfiles(path string) (map[string]comicrepack.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	var f profilesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}

	out := make(map[string]comicrepack.Profile, len(f.Profiles))
	for name, p := range f.Profiles {
		key := strings.ToLower(strings.TrimSpace(name))
		p.Name = key
		p = p.WithDefaults()
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		out[key] = p
	}
	return out, nil
}

// ResolveProfile looks name up in custom first, then among the built-in
// profiles. An empty name selects the default profile.
func ResolveProfile(name string, custom map[string]comicrepack.Profile) (comicrepack.Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return comicrepack.DefaultProfile(), nil
	}
	if p, ok := custom[key]; ok {
		return p, nil
	}
	if p, ok := comicrepack.BuiltinProfile(key); ok {
		return p, nil
	}
	return comicrepack.Profile{}, fmt.Errorf("unknown profile %q (built-in: %s): %w",
		name, strings.Join(comicrepack.BuiltinProfileNames(), ", "), comicrepack.ErrInvalidProfile)
}

// Apply overrides the profile fields cfg sets explicitly.
func (c Config) Apply(p comicrepack.Profile) comicrepack.Profile {
	if c.Width > 0 {
		p.Width = c.Width
	}
	if c.Height > 0 {
		p.Height = c.Height
	}
	if c.Quality > 0 {
		p.Quality = c.Quality
	}
	if c.RightToLeft != nil {
		p.RightToLeft = *c.RightToLeft
	}
	return p
}
