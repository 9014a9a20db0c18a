package comicrepack

import "errors"

// Sentinel errors returned by the comicrepack package.
var (
	// ErrMissingManifest indicates no package description (.opf) could be
	// found in the extracted document tree, or the named file does not exist.
	ErrMissingManifest = errors.New("comicrepack: package description not found")

	// ErrEmptySpine indicates spine resolution produced no image references,
	// or every referenced image was dropped.
	ErrEmptySpine = errors.New("comicrepack: no page images in reading order")

	// ErrPageFailure wraps a failure to decode, composite or encode a single
	// page. Page failures are recovered by dropping the page and never abort
	// a document.
	ErrPageFailure = errors.New("comicrepack: page failed")

	// ErrCompilationFailed indicates the device-format compiler did not
	// produce the expected output file.
	ErrCompilationFailed = errors.New("comicrepack: compiler produced no output")

	// ErrExtraction indicates the input container could not be extracted.
	ErrExtraction = errors.New("comicrepack: extraction failed")

	// ErrDRMProtected indicates the input container is protected by DRM
	// (e.g., Adobe ADEPT, Apple FairPlay, Readium LCP) and cannot be read.
	ErrDRMProtected = errors.New("comicrepack: file is DRM protected")

	// ErrInvalidProfile indicates a device profile has unusable dimensions
	// or thresholds.
	ErrInvalidProfile = errors.New("comicrepack: invalid device profile")

	// ErrOutputConflict indicates two inputs of one batch would be written
	// to the same output file.
	ErrOutputConflict = errors.New("comicrepack: output path already claimed")

	// ErrNoCover indicates no cover image could be detected using any of
	// the supported strategies.
	ErrNoCover = errors.New("comicrepack: no cover image found")
)
