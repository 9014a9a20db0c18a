// Command comicrepack repairs fixed-layout comic e-books: it restores the
// reading order from the spine, drops blank filler pages and letterboxes
// every page onto the viewport of a target reading device.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/simp-lee/comicrepack"
	"github.com/simp-lee/comicrepack/internal/config"
	"github.com/simp-lee/comicrepack/internal/logging"
)

func main() {
	_ = godotenv.Load()
	if err := newApp(config.FromEnv(), os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func env(key string) []string { return []string{config.EnvPrefix + key} }

func newApp(cfg config.Config, stdout io.Writer) *cli.App {
	return &cli.App{
		Name:      "comicrepack",
		Usage:     "repack comic e-books for a fixed device viewport",
		ArgsUsage: "<file-or-dir>...",
		Writer:    stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "profile", Aliases: []string{"p"}, Value: cfg.Profile, EnvVars: env("PROFILE"), Usage: "device profile name"},
			&cli.StringFlag{Name: "profiles", Value: cfg.ProfilesFile, EnvVars: env("PROFILES"), Usage: "YAML file with additional device profiles"},
			&cli.IntFlag{Name: "width", Value: cfg.Width, EnvVars: env("WIDTH"), Usage: "override viewport width"},
			&cli.IntFlag{Name: "height", Value: cfg.Height, EnvVars: env("HEIGHT"), Usage: "override viewport height"},
			&cli.IntFlag{Name: "quality", Value: cfg.Quality, EnvVars: env("QUALITY"), Usage: "override JPEG quality (1-100)"},
			&cli.BoolFlag{Name: "rtl", Value: cfg.RightToLeft != nil && *cfg.RightToLeft, EnvVars: env("RTL"), Usage: "right-to-left page progression (default: the profile's)"},
			&cli.StringFlag{Name: "kindlegen", Value: cfg.KindleGen, EnvVars: env("KINDLEGEN"), Usage: "path of the kindlegen binary"},
			&cli.IntFlag{Name: "compression", Value: cfg.Compression, EnvVars: env("COMPRESSION"), Usage: "kindlegen compression level (0-2)"},
			&cli.StringFlag{Name: "unpacker", Value: cfg.Unpacker, EnvVars: env("UNPACKER"), Usage: "unpacker for .mobi/.azw3 inputs"},
			&cli.StringFlag{Name: "suffix", Value: cfg.Suffix, EnvVars: env("SUFFIX"), Usage: "suffix added to output file names"},
			&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Value: cfg.OutputDir, EnvVars: env("OUTPUT_DIR"), Usage: "write all outputs here instead of <input dir>/repacked"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Value: cfg.Workers, EnvVars: env("WORKERS"), Usage: "documents processed concurrently"},
			&cli.BoolFlag{Name: "include-cover", Value: cfg.IncludeCover, EnvVars: env("INCLUDE_COVER"), Usage: "prepend the source cover when the spine omits it"},
			&cli.StringFlag{Name: "log-level", Value: cfg.Logging.Level, EnvVars: env("LOG_LEVEL")},
			&cli.BoolFlag{Name: "log-pretty", Value: cfg.Logging.Pretty, EnvVars: env("LOG_PRETTY")},
			&cli.StringFlag{Name: "log-file", Value: cfg.Logging.File, EnvVars: env("LOG_FILE")},
			&cli.StringFlag{Name: "metrics-file", Value: cfg.MetricsFile, EnvVars: env("METRICS_FILE"), Usage: "write Prometheus metrics to this textfile"},
		},
		Action: func(c *cli.Context) error {
			return run(c, cfg, stdout)
		},
	}
}

func run(c *cli.Context, cfg config.Config, stdout io.Writer) error {
	if c.NArg() == 0 {
		return cli.Exit("no input files given", 2)
	}

	logOpts := cfg.Logging
	logger, closer, err := logging.New(logging.Options{
		Level:      c.String("log-level"),
		Pretty:     c.Bool("log-pretty"),
		File:       c.String("log-file"),
		MaxSizeMB:  logOpts.MaxSizeMB,
		MaxBackups: logOpts.MaxBackups,
		MaxAgeDays: logOpts.MaxAgeDays,
		Compress:   logOpts.Compress,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	var custom map[string]comicrepack.Profile
	if path := c.String("profiles"); path != "" {
		if custom, err = config.LoadProfiles(path); err != nil {
			return err
		}
	}
	profile, err := config.ResolveProfile(c.String("profile"), custom)
	if err != nil {
		return err
	}
	overrides := config.Config{
		Width:   c.Int("width"),
		Height:  c.Int("height"),
		Quality: c.Int("quality"),
	}
	if c.IsSet("rtl") {
		rtl := c.Bool("rtl")
		overrides.RightToLeft = &rtl
	}
	profile = overrides.Apply(profile)

	reg := prometheus.NewRegistry()
	pipe, err := comicrepack.New(comicrepack.Options{
		Profile: profile,
		Extractor: comicrepack.AutoExtractor{
			Command: comicrepack.CommandExtractor{Path: c.String("unpacker")},
		},
		Compiler: comicrepack.KindleGen{
			Path:             c.String("kindlegen"),
			CompressionLevel: c.Int("compression"),
		},
		Logger:       &logger,
		Metrics:      comicrepack.NewMetrics(reg),
		OutputDir:    c.String("output-dir"),
		Suffix:       c.String("suffix"),
		IncludeCover: c.Bool("include-cover"),
		Workers:      c.Int("workers"),
	})
	if err != nil {
		return err
	}

	inputs, err := comicrepack.CollectInputs(c.Args().Slice(), nil)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return cli.Exit("no .mobi, .azw3 or .epub files found", 2)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("profile", profile.Name).
		Int("width", profile.Width).
		Int("height", profile.Height).
		Msg("repacking")
	sum := pipe.RunBatch(ctx, inputs)
	printSummary(stdout, sum)

	if path := c.String("metrics-file"); path != "" {
		if err := prometheus.WriteToTextfile(path, reg); err != nil {
			logger.Error().Err(err).Str("path", path).Msg("write metrics")
		}
	}

	if sum.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d documents failed", sum.Failed, len(sum.Results)), 1)
	}
	return nil
}

func printSummary(w io.Writer, sum comicrepack.Summary) {
	for _, r := range sum.Results {
		if r.Err != nil {
			fmt.Fprintf(w, "FAIL  %s: %v\n", r.Input, r.Err)
			continue
		}
		fmt.Fprintf(w, "OK    %s -> %s (%d pages, %d dropped, %s)\n",
			r.Input, r.Output, r.Stats.Kept, r.Stats.Dropped(), humanize.Bytes(uint64(r.OutputSize)))
	}
	kept, dropped := sum.Pages()
	fmt.Fprintf(w, "%d succeeded, %d failed, %s pages kept, %s dropped in %s\n",
		sum.Succeeded, sum.Failed, humanize.Comma(int64(kept)), humanize.Comma(int64(dropped)), sum.Duration.Round(time.Millisecond))
}
