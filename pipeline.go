package comicrepack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Output naming defaults.
const (
	DefaultOutputSubdir = "repacked"
	DefaultSuffix       = "_repacked"
)

// Options configures a Pipeline. Zero values select the defaults.
type Options struct {
	// Profile is the target device. The zero value means DefaultProfile.
	Profile Profile

	// Extractor unpacks input containers. Defaults to AutoExtractor{}.
	Extractor Extractor

	// Compiler builds the device-format book. Defaults to KindleGen at
	// compression level 1.
	Compiler Compiler

	// Logger receives progress and per-page drop lines. Nil discards them.
	Logger *zerolog.Logger

	// Metrics, when non-nil, is updated for every document and page.
	Metrics *Metrics

	// OutputDir, when set, receives every output file. Otherwise outputs go
	// to OutputSubdir beneath each input's directory.
	OutputDir    string
	OutputSubdir string
	Suffix       string

	// IncludeCover prepends the source cover image when the spine does not
	// already reference it.
	IncludeCover bool

	// Workers is the number of documents RunBatch processes concurrently.
	// Values below 2 process documents one at a time.
	Workers int

	// WorkDir is the parent of the per-document working directories.
	// Empty means os.TempDir().
	WorkDir string
}

// Pipeline repacks documents: extract, resolve the page order, drop blank
// pages, letterbox the rest onto the device viewport, rebuild the package
// and compile it.
//
// A Pipeline holds no per-document state and is safe for concurrent use.
type Pipeline struct {
	opts       Options
	profile    Profile
	classifier *Classifier
	compositor *Compositor
	extractor  Extractor
	compiler   Compiler
	log        zerolog.Logger
}

// New returns a Pipeline for opts, or an error wrapping ErrInvalidProfile
// when the profile cannot be used.
func New(opts Options) (*Pipeline, error) {
	prof := opts.Profile
	if prof.Width == 0 && prof.Height == 0 {
		def := DefaultProfile()
		def.RightToLeft = prof.RightToLeft
		prof = def
	}
	prof = prof.WithDefaults()
	if err := prof.Validate(); err != nil {
		return nil, err
	}

	if opts.OutputSubdir == "" {
		opts.OutputSubdir = DefaultOutputSubdir
	}
	if opts.Suffix == "" {
		opts.Suffix = DefaultSuffix
	}

	p := &Pipeline{
		opts:       opts,
		profile:    prof,
		classifier: NewClassifier(prof.Blank),
		compositor: NewCompositor(prof.Width, prof.Height),
		extractor:  opts.Extractor,
		compiler:   opts.Compiler,
		log:        zerolog.Nop(),
	}
	if p.extractor == nil {
		p.extractor = AutoExtractor{}
	}
	if p.compiler == nil {
		p.compiler = KindleGen{CompressionLevel: 1}
	}
	if opts.Logger != nil {
		p.log = *opts.Logger
	}
	return p, nil
}

// Profile returns the effective device profile.
func (p *Pipeline) Profile() Profile { return p.profile }

// OutputPath returns where the compiled document for input is placed.
func (p *Pipeline) OutputPath(input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name := base + p.opts.Suffix + ".mobi"
	if p.opts.OutputDir != "" {
		return filepath.Join(p.opts.OutputDir, name)
	}
	return filepath.Join(filepath.Dir(input), p.opts.OutputSubdir, name)
}

// ProcessDocument repacks one input container. The returned result is never
// nil; its Err field repeats the returned error.
//
// All intermediate files live in a private working directory that is
// removed on every exit path. The output is only moved into place once
// compilation succeeded.
func (p *Pipeline) ProcessDocument(ctx context.Context, input string) (*DocumentResult, error) {
	start := time.Now()
	res := &DocumentResult{Input: input}
	log := p.log.With().Str("input", filepath.Base(input)).Logger()

	err := p.processDocumentSafe(log.WithContext(ctx), log, input, res)
	res.Err = err
	res.Duration = time.Since(start)
	p.opts.Metrics.observeDocument(res)

	if err != nil {
		log.Error().Err(err).Dur("elapsed", res.Duration).Msg("document failed")
		return res, err
	}
	log.Info().
		Str("output", res.Output).
		Int("pages", res.Stats.Kept).
		Int("dropped", res.Stats.Dropped()).
		Dur("elapsed", res.Duration).
		Msg("document repacked")
	return res, nil
}

// processDocumentSafe runs processDocument and converts a panic into an
// error for this document alone. The working directory is still removed.
func (p *Pipeline) processDocumentSafe(ctx context.Context, log zerolog.Logger, input string, res *DocumentResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("comicrepack: %s: panic: %v", filepath.Base(input), r)
		}
	}()
	return p.processDocument(ctx, log, input, res)
}

func (p *Pipeline) processDocument(ctx context.Context, log zerolog.Logger, input string, res *DocumentResult) error {
	work, err := os.MkdirTemp(p.opts.WorkDir, "comicrepack-*")
	if err != nil {
		return fmt.Errorf("comicrepack: create working directory: %w", err)
	}
	defer os.RemoveAll(work)

	srcDir := filepath.Join(work, "source")
	buildDir := filepath.Join(work, "build")
	for _, d := range []string{srcDir, buildDir} {
		if err := os.Mkdir(d, 0o755); err != nil {
			return fmt.Errorf("comicrepack: create working directory: %w", err)
		}
	}

	log.Debug().Str("workdir", work).Msg("extracting")
	if err := p.extractor.Extract(ctx, input, srcDir); err != nil {
		return err
	}

	opfPath, err := FindPackageDescription(srcDir)
	if err != nil {
		return err
	}
	pkg, err := OpenPackage(opfPath)
	if err != nil {
		return err
	}

	images := pkg.Images()
	for _, w := range pkg.Warnings() {
		log.Warn().Msg(w)
	}
	if p.opts.IncludeCover {
		images = p.withCover(log, pkg, images)
	}
	if len(images) == 0 {
		return fmt.Errorf("comicrepack: %s: %w", filepath.Base(input), ErrEmptySpine)
	}
	log.Info().Int("images", len(images)).Msg("resolved reading order")

	md := pkg.Metadata()
	md.Title = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	res.Metadata = md

	pages, stats := p.processPages(ctx, log, images, buildDir)
	res.Stats = stats
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(pages) == 0 {
		return fmt.Errorf("comicrepack: %s: all %d pages dropped: %w", filepath.Base(input), len(images), ErrEmptySpine)
	}

	opf, err := writeBook(buildDir, pages, md, p.profile)
	if err != nil {
		return err
	}

	outPath := p.OutputPath(input)
	log.Info().Int("pages", len(pages)).Msg("compiling")
	built, err := p.compiler.Compile(ctx, opf, filepath.Base(outPath))
	if err != nil {
		return err
	}
	if err := moveIntoPlace(built, outPath); err != nil {
		return err
	}

	res.Pages = pages
	res.Output = outPath
	if info, err := os.Stat(outPath); err == nil {
		res.OutputSize = info.Size()
	}
	return nil
}

// withCover prepends the source cover to images unless it is already there.
func (p *Pipeline) withCover(log zerolog.Logger, pkg *Package, images []string) []string {
	cover, err := pkg.Cover()
	if err != nil {
		log.Debug().Err(err).Msg("no cover to prepend")
		return images
	}
	if slices.Contains(images, cover) {
		return images
	}
	log.Debug().Str("cover", filepath.Base(cover)).Msg("prepending cover")
	return append([]string{cover}, images...)
}

// ProcessPages decodes, classifies, composites and encodes images in order
// into dir. Surviving pages are numbered contiguously from zero. A page that
// is blank or fails at any step is dropped with a log line and never stops
// the loop; cancellation of ctx does, between pages.
func (p *Pipeline) ProcessPages(ctx context.Context, images []string, dir string) ([]PageRecord, PageStats) {
	return p.processPages(ctx, p.log, images, dir)
}

func (p *Pipeline) processPages(ctx context.Context, log zerolog.Logger, images []string, dir string) ([]PageRecord, PageStats) {
	var (
		pages []PageRecord
		stats PageStats
	)
	for _, src := range images {
		if ctx.Err() != nil {
			break
		}
		rec, verdict, err := p.processPage(src, len(pages), dir)
		switch {
		case err != nil:
			stats.Failed++
			log.Warn().Err(err).Str("page", filepath.Base(src)).Msg("dropped unreadable page")
		case verdict.Blank():
			stats.Blank++
			log.Info().Str("page", filepath.Base(src)).Stringer("reason", verdict).Msg("dropped blank page")
		default:
			stats.Kept++
			pages = append(pages, rec)
		}
	}
	p.opts.Metrics.observePages(stats)
	return pages, stats
}

// processPage turns src into page index in dir. A panic in a decoder or in
// the scaler is reported as ErrPageFailure so that only this page is lost.
func (p *Pipeline) processPage(src string, index int, dir string) (rec PageRecord, v Verdict, err error) {
	image, markup := pageNames(index)
	out := filepath.Join(dir, image)
	defer func() {
		if r := recover(); r != nil {
			os.Remove(out)
			rec, v = PageRecord{}, VerdictContent
			err = fmt.Errorf("comicrepack: %s: %w: panic: %v", filepath.Base(src), ErrPageFailure, r)
		}
	}()

	gray, err := DecodeGray(src)
	if err != nil {
		return PageRecord{}, VerdictContent, err
	}
	if v := p.classifier.Classify(gray); v.Blank() {
		return PageRecord{}, v, nil
	}

	canvas, err := p.compositor.Compose(gray)
	if err != nil {
		return PageRecord{}, VerdictContent, fmt.Errorf("comicrepack: compose %s: %w: %w", filepath.Base(src), ErrPageFailure, err)
	}

	if err := writeJPEG(out, canvas, p.profile.Quality); err != nil {
		os.Remove(out)
		return PageRecord{}, VerdictContent, fmt.Errorf("%w: %w", ErrPageFailure, err)
	}

	return PageRecord{
		Index:  index,
		Source: src,
		Image:  image,
		Markup: markup,
		Width:  p.profile.Width,
		Height: p.profile.Height,
	}, VerdictContent, nil
}
