package comicrepack

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// BlankThresholds configures the blank-page classifier. The defaults are the
// empirically chosen values of the original tool and are kept for parity.
//
// A zero CenterStdDev, InkLevel or MinDimension turns that check off.
type BlankThresholds struct {
	// MinDimension rejects images narrower or shorter than this many pixels.
	MinDimension int `yaml:"min_dimension"`

	// WhiteLevel is the intensity at or above which a pixel counts as white.
	WhiteLevel uint8 `yaml:"white_level"`

	// WhiteRatio is the fraction of white pixels at or above which a page is blank.
	WhiteRatio float64 `yaml:"white_ratio"`

	// CenterMargin is the fraction cut from each side before measuring the
	// centre patch (0.20 keeps the central 60%×60%).
	CenterMargin float64 `yaml:"center_margin"`

	// CenterStdDev is the standard deviation below which the centre patch is flat.
	CenterStdDev float64 `yaml:"center_stddev"`

	// ThumbnailSize is the side of the square grid used for ink-blob detection.
	ThumbnailSize int `yaml:"thumbnail_size"`

	// InkLevel is the intensity below which a thumbnail cell counts as ink.
	InkLevel uint8 `yaml:"ink_level"`

	// BlobRatio is the share of the thumbnail covered by the largest ink blob
	// at or above which a page is blank.
	BlobRatio float64 `yaml:"blob_ratio"`
}

// Profile describes a target reading device.
type Profile struct {
	Name   string `yaml:"name"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`

	// Quality is the JPEG quality used for encoded pages (1-100).
	Quality int `yaml:"quality"`

	// RightToLeft declares right-to-left page progression (manga).
	RightToLeft bool `yaml:"right_to_left"`

	Blank BlankThresholds `yaml:"blank"`
}

// DefaultBlankThresholds returns the classifier defaults.
func DefaultBlankThresholds() BlankThresholds {
	return BlankThresholds{
		MinDimension:  10,
		WhiteLevel:    245,
		WhiteRatio:    0.70,
		CenterMargin:  0.20,
		CenterStdDev:  8.0,
		ThumbnailSize: 50,
		InkLevel:      64,
		BlobRatio:     0.40,
	}
}

// UnmarshalYAML decodes the keys present in value over the defaults, so a
// key set to 0 stays 0 and a missing key keeps its default.
func (b *BlankThresholds) UnmarshalYAML(value *yaml.Node) error {
	type plain BlankThresholds
	t := plain(DefaultBlankThresholds())
	if err := value.Decode(&t); err != nil {
		return err
	}
	*b = BlankThresholds(t)
	return nil
}

// DefaultProfileName is the profile used when none is requested.
const DefaultProfileName = "kindle2022"

var builtinProfiles = map[string][2]int{
	"kindle2022":  {1072, 1448},
	"paperwhite5": {1236, 1648},
	"paperwhite3": {1072, 1448},
	"oasis":       {1264, 1680},
	"scribe":      {1860, 2480},
	"colorsoft":   {1264, 1680},
}

// DefaultProfile returns the entry-level Kindle (2022) profile.
func DefaultProfile() Profile {
	p, _ := BuiltinProfile(DefaultProfileName)
	return p
}

// BuiltinProfile returns a named built-in device profile.
func BuiltinProfile(name string) (Profile, bool) {
	dims, ok := builtinProfiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Profile{}, false
	}
	return Profile{
		Name:    strings.ToLower(strings.TrimSpace(name)),
		Width:   dims[0],
		Height:  dims[1],
		Quality: 90,
		Blank:   DefaultBlankThresholds(),
	}, true
}

// BuiltinProfileNames returns the sorted names of the built-in profiles.
func BuiltinProfileNames() []string {
	names := make([]string, 0, len(builtinProfiles))
	for n := range builtinProfiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// WithDefaults fills what the profile leaves unset: a zero BlankThresholds
// becomes DefaultBlankThresholds and a zero Quality becomes 90. Thresholds
// that are set at all are kept as given, zeros included.
func (p Profile) WithDefaults() Profile {
	if p.Blank == (BlankThresholds{}) {
		p.Blank = DefaultBlankThresholds()
	}
	if p.Quality == 0 {
		p.Quality = 90
	}
	return p
}

// Validate reports whether the profile can drive the classifier and compositor.
func (p Profile) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("comicrepack: viewport %dx%d: %w", p.Width, p.Height, ErrInvalidProfile)
	}
	if p.Quality < 1 || p.Quality > 100 {
		return fmt.Errorf("comicrepack: jpeg quality %d: %w", p.Quality, ErrInvalidProfile)
	}
	b := p.Blank
	if b.WhiteLevel == 0 {
		return fmt.Errorf("comicrepack: white level 0 counts every pixel as white: %w", ErrInvalidProfile)
	}
	if b.WhiteRatio <= 0 || b.BlobRatio <= 0 {
		return fmt.Errorf("comicrepack: white ratio %.2f, blob ratio %.2f: %w", b.WhiteRatio, b.BlobRatio, ErrInvalidProfile)
	}
	if b.CenterMargin < 0 || b.CenterMargin >= 0.5 {
		return fmt.Errorf("comicrepack: center margin %.2f: %w", b.CenterMargin, ErrInvalidProfile)
	}
	if b.ThumbnailSize <= 0 {
		return fmt.Errorf("comicrepack: thumbnail size %d: %w", b.ThumbnailSize, ErrInvalidProfile)
	}
	return nil
}
