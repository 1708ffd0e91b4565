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

// Package transform applies an ordered rule list to a single target file.
package transform

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog"
	"github.com/walteh/patchrc/pkg/rule"
	"github.com/walteh/patchrc/pkg/workspace"
	"gitlab.com/tozd/go/errors"
)

// 🎯 Target identifies a file to patch and the parameters its templates use
type Target struct {
	Path   string            `json:"path" yaml:"path"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// ⚖️ Policy decides what happens to earlier edits when a later rule fails
type Policy int

const (
	// Partial keeps the edits of every rule that succeeded
	Partial Policy = iota
	// Transactional discards all edits of a file if any rule failed
	Transactional
)

// String returns the policy name
func (p Policy) String() string {
	if p == Transactional {
		return "transactional"
	}
	return "partial"
}

// 🔧 Options configures a Transformer
type Options struct {
	Files  workspace.FileManager
	Rules  []*rule.Rule
	Policy Policy
	DryRun bool // compute results but never write
}

// 🔄 Transformer runs the rule list against one file at a time
type Transformer struct {
	files  workspace.FileManager
	rules  []*rule.Rule
	policy Policy
	dryRun bool
}

// 🏭 New creates a transformer
func New(opts Options) (*Transformer, error) {
	if opts.Files == nil {
		return nil, errors.Errorf("file manager is required")
	}
	for i, r := range opts.Rules {
		if r == nil {
			return nil, errors.Errorf("rule %d is nil", i)
		}
		if err := r.Validate(); err != nil {
			return nil, errors.Errorf("validating rule %d: %w", i, err)
		}
	}
	return &Transformer{
		files:  opts.Files,
		rules:  opts.Rules,
		policy: opts.Policy,
		dryRun: opts.DryRun,
	}, nil
}

// Rules returns the ordered rule list
func (t *Transformer) Rules() []*rule.Rule {
	return t.rules
}

// 📄 Result is the end state of one file
type Result struct {
	Path       string
	Original   string
	Final      string
	Outcomes   []rule.Outcome
	Written    bool // final content was flushed to disk
	RolledBack bool // edits were discarded by the transactional policy
}

// Changed reports whether the final content differs from what was read
func (r *Result) Changed() bool {
	return r.Final != r.Original
}

// Failed reports whether any outcome failed
func (r *Result) Failed() bool {
	for _, o := range r.Outcomes {
		if o.Status == rule.StatusFailed {
			return true
		}
	}
	return false
}

// Consistent reports whether every rule reached its intended end state
func (r *Result) Consistent() bool {
	for _, o := range r.Outcomes {
		if !o.Consistent() {
			return false
		}
	}
	return true
}

// Count returns how many outcomes have the given status
func (r *Result) Count(s rule.Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Diff returns a unified diff from the original to the final content
func (r *Result) Diff() (string, error) {
	if !r.Changed() {
		return "", nil
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(r.Original),
		B:        difflib.SplitLines(r.Final),
		FromFile: "a/" + r.Path,
		ToFile:   "b/" + r.Path,
		Context:  3,
	})
	if err != nil {
		return "", errors.Errorf("building diff: %w", err)
	}
	return diff, nil
}

// 🏃 Transform reads the target once, threads its content through every rule
// in order and writes it back only if it changed.
func (t *Transformer) Transform(ctx context.Context, target Target) *Result {
	logger := zerolog.Ctx(ctx).With().Str("file", target.Path).Logger()
	res := &Result{Path: target.Path}

	raw, err := t.files.ReadFile(ctx, target.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug().Msg("target file not found")
			res.Outcomes = []rule.Outcome{rule.Failed(rule.ReasonFileNotFound)}
			return res
		}
		logger.Debug().Err(err).Msg("reading target file")
		res.Outcomes = []rule.Outcome{rule.Failed(fmt.Sprintf("%s: %s", rule.ReasonReadError, err))}
		return res
	}

	res.Original = string(raw)
	content := res.Original

	for _, r := range t.rules {
		if !r.InScope(target.Path) {
			res.Outcomes = append(res.Outcomes, rule.Outcome{
				Rule:     r.Name,
				Status:   rule.StatusNotFound,
				Reason:   rule.ReasonOutOfScope,
				Optional: r.Optional,
			})
			continue
		}

		var out rule.Outcome
		content, out = rule.Apply(content, r, target.Params)
		res.Outcomes = append(res.Outcomes, out)

		logger.Debug().
			Str("rule", r.Name).
			Str("status", out.Status.String()).
			Str("reason", out.Reason).
			Int("matches", out.Matches).
			Msg("rule evaluated")
	}

	res.Final = content
	if t.policy == Transactional && res.Failed() && res.Changed() {
		logger.Debug().Msg("discarding edits after rule failure")
		res.Final = res.Original
		res.RolledBack = true
	}

	if !res.Changed() || t.dryRun {
		return res
	}

	if err := t.files.WriteFile(ctx, target.Path, []byte(res.Final)); err != nil {
		logger.Error().Err(err).Msg("writing target file")
		res.Outcomes = append(res.Outcomes, rule.Failed(fmt.Sprintf("%s: %s", rule.ReasonWriteError, err)))
		return res
	}
	res.Written = true

	return res
}
