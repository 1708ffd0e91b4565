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

package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/patchrc/pkg/match"
	"github.com/walteh/patchrc/pkg/rule"
	"github.com/walteh/patchrc/pkg/transform"
	"github.com/walteh/patchrc/pkg/workspace"
)

func phoneRule() *rule.Rule {
	return &rule.Rule{
		Name:    "phone-href",
		Pattern: match.MustCompile(match.KindLiteral, "tel:+16045551234"),
		Replace: rule.MustParseTemplate("{{phoneHref}}"),
		Guard:   rule.Guard{Marker: rule.MustParseTemplate("{{phoneHref}}")},
	}
}

func newRunner(t *testing.T, dir string, opts Options, rules ...*rule.Rule) *Runner {
	t.Helper()
	tr, err := transform.New(transform.Options{Files: workspace.New(dir), Rules: rules})
	require.NoError(t, err)
	opts.Transformer = tr
	r, err := NewRunner(opts)
	require.NoError(t, err)
	return r
}

// 📝 recordingReporter keeps the order of completed files
type recordingReporter struct {
	mu       sync.Mutex
	started  int
	done     []string
	finished *Report
}

func (r *recordingReporter) StartBatch(ctx context.Context, total int) { r.started = total }

func (r *recordingReporter) FileDone(ctx context.Context, res *transform.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = append(r.done, res.Path)
}

func (r *recordingReporter) FinishBatch(ctx context.Context, rep *Report) { r.finished = rep }

func TestRun_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		files      map[string]string
		targets    []Target
		wantStatus map[string][]string
		wantExit   int
	}{
		{
			name:  "applied",
			files: map[string]string{"a.tsx": "tel:+16045551234"},
			targets: []Target{
				{Path: "a.tsx", Params: map[string]string{"phoneHref": "tel:+17785559999"}},
			},
			wantStatus: map[string][]string{"a.tsx": {"applied"}},
			wantExit:   0,
		},
		{
			name:  "already_present",
			files: map[string]string{"a.tsx": "tel:+17785559999"},
			targets: []Target{
				{Path: "a.tsx", Params: map[string]string{"phoneHref": "tel:+17785559999"}},
			},
			wantStatus: map[string][]string{"a.tsx": {"skipped-already-present"}},
			wantExit:   0,
		},
		{
			name:  "file_not_found",
			files: map[string]string{},
			targets: []Target{
				{Path: "gone.tsx", Params: map[string]string{"phoneHref": "tel:+17785559999"}},
			},
			wantStatus: map[string][]string{"gone.tsx": {"failed:file-not-found"}},
			wantExit:   1,
		},
		{
			name:  "pattern_not_found",
			files: map[string]string{"a.tsx": "<p>no phone</p>"},
			targets: []Target{
				{Path: "a.tsx", Params: map[string]string{"phoneHref": "tel:+17785559999"}},
			},
			wantStatus: map[string][]string{"a.tsx": {"skipped-not-found"}},
			wantExit:   0,
		},
		{
			name: "one_failure_does_not_stop_batch",
			files: map[string]string{
				"b.tsx": "tel:+16045551234",
			},
			targets: []Target{
				{Path: "a.tsx", Params: map[string]string{"phoneHref": "tel:+17785559999"}},
				{Path: "b.tsx", Params: map[string]string{"phoneHref": "tel:+17785550000"}},
			},
			wantStatus: map[string][]string{
				"a.tsx": {"failed:file-not-found"},
				"b.tsx": {"applied"},
			},
			wantExit: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
			}

			rep, err := newRunner(t, dir, Options{}, phoneRule()).Run(context.Background(), tt.targets)
			require.NoError(t, err)

			for path, want := range tt.wantStatus {
				res := rep.Result(path)
				require.NotNil(t, res, "result for %s should exist", path)
				got := make([]string, len(res.Outcomes))
				for i, o := range res.Outcomes {
					got[i] = o.String()
				}
				assert.Equal(t, want, got, "outcomes for %s", path)
			}
			assert.Equal(t, tt.wantExit, rep.ExitCode(), "exit code should match")
		})
	}
}

func TestRun_Isolation(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.tsx"), []byte("tel:+16045551234"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.tsx"), []byte("tel:+16045551234"), 0644))

	targets := []Target{
		{Path: "a.tsx", Params: map[string]string{"phoneHref": "tel:+11111111111"}},
		{Path: "b.tsx", Params: map[string]string{}},
	}
	rep, err := newRunner(t, dir, Options{}, phoneRule()).Run(context.Background(), targets)
	require.NoError(t, err)

	a, err := os.ReadFile(filepath.Join(dir, "a.tsx"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, "b.tsx"))
	require.NoError(t, err)

	assert.Equal(t, "tel:+11111111111", string(a))
	assert.Equal(t, "tel:+16045551234", string(b), "failure in b must not depend on a")
	assert.False(t, rep.FileFailed(rep.Result("a.tsx")))
	assert.True(t, rep.FileFailed(rep.Result("b.tsx")))

	consistent, total := rep.Tally()
	assert.Equal(t, 1, consistent)
	assert.Equal(t, 2, total)
}

func TestRun_ParallelKeepsManifestOrder(t *testing.T) {
	dir := t.TempDir()
	var targets []Target
	for i := 0; i < 40; i++ {
		name := fmt.Sprintf("page-%02d.tsx", i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("call tel:+16045551234"), 0644))
		targets = append(targets, Target{Path: name, Params: map[string]string{"phoneHref": fmt.Sprintf("tel:+1778555%04d", i)}})
	}

	reporter := &recordingReporter{}
	rep, err := newRunner(t, dir, Options{Jobs: 8, Reporter: reporter}, phoneRule()).Run(context.Background(), targets)
	require.NoError(t, err)

	require.Len(t, rep.Files, len(targets))
	for i, res := range rep.Files {
		assert.Equal(t, targets[i].Path, res.Path, "report order should follow the manifest")
		content, err := os.ReadFile(filepath.Join(dir, res.Path))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("call tel:+1778555%04d", i), string(content))
	}
	assert.Equal(t, 0, rep.ExitCode())
	assert.Equal(t, len(targets), reporter.started)
	assert.Len(t, reporter.done, len(targets))
	assert.Same(t, rep, reporter.finished)
}

func TestRun_Strict(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.tsx"), []byte("nothing"), 0644))
	targets := []Target{{Path: "a.tsx", Params: map[string]string{"phoneHref": "x"}}}

	rep, err := newRunner(t, dir, Options{Strict: true}, phoneRule()).Run(context.Background(), targets)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.ExitCode(), "strict mode fails on a required rule that found nothing")

	optional := phoneRule()
	optional.Optional = true
	rep, err = newRunner(t, dir, Options{Strict: true}, optional).Run(context.Background(), targets)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.ExitCode(), "optional rules may find nothing")
}

func TestRun_Cancelled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.tsx"), []byte("tel:+16045551234"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := newRunner(t, dir, Options{}, phoneRule()).Run(ctx, []Target{{Path: "a.tsx"}})
	require.NoError(t, err)
	assert.Equal(t, "failed:cancelled", rep.Files[0].Outcomes[0].String())

	content, err := os.ReadFile(filepath.Join(dir, "a.tsx"))
	require.NoError(t, err)
	assert.Equal(t, "tel:+16045551234", string(content))
}

func TestRun_InvalidTargets(t *testing.T) {
	r := newRunner(t, t.TempDir(), Options{}, phoneRule())

	_, err := r.Run(context.Background(), []Target{{Path: "a"}, {Path: "a"}})
	assert.ErrorContains(t, err, "duplicate target")

	_, err = r.Run(context.Background(), []Target{{}})
	assert.ErrorContains(t, err, "target path is required")

	_, err = NewRunner(Options{})
	assert.ErrorContains(t, err, "transformer is required")
}

func TestReport_Counts(t *testing.T) {
	rep := &Report{Files: []*transform.Result{
		{Path: "a", Original: "x", Final: "y", Outcomes: []rule.Outcome{{Status: rule.StatusApplied}, {Status: rule.StatusNotFound, Optional: true}}},
		{Path: "b", Outcomes: []rule.Outcome{rule.Failed(rule.ReasonFileNotFound)}},
	}}

	counts := rep.Counts()
	assert.Equal(t, 1, counts[rule.StatusApplied])
	assert.Equal(t, 1, counts[rule.StatusNotFound])
	assert.Equal(t, 1, counts[rule.StatusFailed])
	assert.Len(t, rep.Changed(), 1)
	assert.Nil(t, rep.Result("c"))
	assert.False(t, rep.Success())
}
