package comicrepack

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultExtensions are the input extensions CollectInputs accepts when none
// are given.
var DefaultExtensions = []string{".mobi", ".azw3", ".epub"}

// CollectInputs expands paths into the list of input containers. Files are
// kept when their extension matches one of exts (case-insensitive);
// directories are walked recursively, skipping the DefaultOutputSubdir
// directories earlier runs wrote into. The result is sorted and free of
// duplicates. A path that does not exist is an error.
func CollectInputs(paths []string, exts []string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	match := func(name string) bool {
		ext := filepath.Ext(name)
		for _, e := range exts {
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			if strings.EqualFold(ext, e) {
				return true
			}
		}
		return false
	}

	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("comicrepack: input %s: %w", root, err)
		}
		if !info.IsDir() {
			if match(root) {
				add(root)
			}
			continue
		}
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && p != root && d.Name() == DefaultOutputSubdir {
				return fs.SkipDir
			}
			if d.Type().IsRegular() && match(d.Name()) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("comicrepack: walk %s: %w", root, err)
		}
	}

	sort.Strings(out)
	return out, nil
}

// Summary totals a batch run.
type Summary struct {
	// Results holds one entry per input, in input order.
	Results   []*DocumentResult
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// Pages returns the kept and dropped page counts over all documents.
func (s Summary) Pages() (kept, dropped int) {
	for _, r := range s.Results {
		kept += r.Stats.Kept
		dropped += r.Stats.Dropped()
	}
	return kept, dropped
}

type batchJob struct {
	index int
	input string
}

// RunBatch processes inputs independently. A failing document is recorded
// and never stops the batch. With Options.Workers above 1, documents are
// processed concurrently, each in its own working directory. Inputs not
// started before ctx is cancelled are reported as failed with ctx's error.
// An input whose output path matches an earlier input's fails with
// ErrOutputConflict without being processed.
func (p *Pipeline) RunBatch(ctx context.Context, inputs []string) Summary {
	start := time.Now()
	results := make([]*DocumentResult, len(inputs))

	workers := p.opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}
	p.log.Info().Int("documents", len(inputs)).Int("workers", workers).Msg("starting batch")

	var wg sync.WaitGroup
	jobs := make(chan batchJob, len(inputs))
	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go p.batchWorker(ctx, &wg, jobs, results)
	}
	claimed := make(map[string]string, len(inputs))
	for i, in := range inputs {
		out := p.OutputPath(in)
		if first, ok := claimed[out]; ok {
			err := fmt.Errorf("comicrepack: %s and %s both write %s: %w", first, in, out, ErrOutputConflict)
			p.log.Error().Err(err).Str("input", filepath.Base(in)).Msg("document skipped")
			results[i] = &DocumentResult{Input: in, Err: err}
			p.opts.Metrics.observeDocument(results[i])
			continue
		}
		claimed[out] = in
		jobs <- batchJob{index: i, input: in}
	}
	close(jobs)
	wg.Wait()

	sum := Summary{Results: results}
	for _, r := range results {
		if r.Err != nil {
			sum.Failed++
		} else {
			sum.Succeeded++
		}
	}
	sum.Duration = time.Since(start)
	p.log.Info().
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Dur("elapsed", sum.Duration).
		Msg("batch finished")
	return sum
}

func (p *Pipeline) batchWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan batchJob, results []*DocumentResult) {
	defer wg.Done()
	for job := range jobs {
		if err := ctx.Err(); err != nil {
			results[job.index] = &DocumentResult{Input: job.input, Err: err}
			continue
		}
		results[job.index] = p.runJob(ctx, job.input)
	}
}

// runJob processes one batch input and always returns a result, recording a
// panic that escaped ProcessDocument as a failure of that input.
func (p *Pipeline) runJob(ctx context.Context, input string) (res *DocumentResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("comicrepack: %s: panic: %v", filepath.Base(input), r)
			p.log.Error().Err(err).Str("input", filepath.Base(input)).Msg("document failed")
			res = &DocumentResult{Input: input, Err: err}
		}
	}()
	res, _ = p.ProcessDocument(ctx, input)
	return res
}
