// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package batch runs the file transformer over every target of a manifest and
// aggregates the outcomes into a report.
package batch

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/patchrc/pkg/rule"
	"github.com/walteh/patchrc/pkg/transform"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// Target is a file to patch with its template parameters
type Target = transform.Target

// 📢 Reporter receives progress as files complete
type Reporter interface {
	StartBatch(ctx context.Context, total int)
	FileDone(ctx context.Context, res *transform.Result)
	FinishBatch(ctx context.Context, rep *Report)
}

// NopReporter discards all progress
type NopReporter struct{}

func (NopReporter) StartBatch(context.Context, int)             {}
func (NopReporter) FileDone(context.Context, *transform.Result) {}
func (NopReporter) FinishBatch(context.Context, *Report)        {}

// 🔧 Options configures a Runner
type Options struct {
	Transformer *transform.Transformer
	Reporter    Reporter
	Jobs        int  // files processed at once, values below 2 run sequentially
	Strict      bool // see Report.Strict
}

// 🏃 Runner executes a batch
type Runner struct {
	transformer *transform.Transformer
	reporter    Reporter
	jobs        int
	strict      bool
}

// 🏗️ NewRunner creates a new runner
func NewRunner(opts Options) (*Runner, error) {
	if opts.Transformer == nil {
		return nil, errors.Errorf("transformer is required")
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Runner{
		transformer: opts.Transformer,
		reporter:    reporter,
		jobs:        opts.Jobs,
		strict:      opts.Strict,
	}, nil
}

// 🏃 Run transforms every target and returns the report. File failures are
// recorded in the report; the error is only for unusable input.
func (r *Runner) Run(ctx context.Context, targets []Target) (*Report, error) {
	seen := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		if t.Path == "" {
			return nil, errors.Errorf("target path is required")
		}
		if _, ok := seen[t.Path]; ok {
			return nil, errors.Errorf("duplicate target %q", t.Path)
		}
		seen[t.Path] = struct{}{}
	}

	logger := zerolog.Ctx(ctx)
	logger.Debug().Int("targets", len(targets)).Int("jobs", r.jobs).Msg("starting batch")

	rep := &Report{
		Files:  make([]*transform.Result, len(targets)),
		Strict: r.strict,
	}

	r.reporter.StartBatch(ctx, len(targets))
	if r.jobs > 1 {
		r.runAsync(ctx, targets, rep)
	} else {
		r.runSync(ctx, targets, rep)
	}
	r.reporter.FinishBatch(ctx, rep)

	consistent, total := rep.Tally()
	logger.Debug().Int("consistent", consistent).Int("total", total).Bool("success", rep.Success()).Msg("batch complete")

	return rep, nil
}

// 🔄 runSync processes files one at a time in manifest order
func (r *Runner) runSync(ctx context.Context, targets []Target, rep *Report) {
	for i, t := range targets {
		rep.Files[i] = r.runOne(ctx, t)
	}
}

// ⚡ runAsync processes up to r.jobs files at once. Each worker owns its
// report slot, so ordering stays manifest order.
func (r *Runner) runAsync(ctx context.Context, targets []Target, rep *Report) {
	var g errgroup.Group
	g.SetLimit(r.jobs)
	for i, t := range targets {
		g.Go(func() error {
			rep.Files[i] = r.runOne(ctx, t)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Runner) runOne(ctx context.Context, t Target) *transform.Result {
	var res *transform.Result
	if ctx.Err() != nil {
		res = &transform.Result{
			Path:     t.Path,
			Outcomes: []rule.Outcome{rule.Failed(rule.ReasonCancelled)},
		}
	} else {
		res = r.transformer.Transform(ctx, t)
	}
	r.reporter.FileDone(ctx, res)
	return res
}
