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

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/walteh/patchrc/cmd/patchrc/opts"
	"github.com/walteh/patchrc/pkg/batch"
	"github.com/walteh/patchrc/pkg/config"
	"github.com/walteh/patchrc/pkg/log"
	"github.com/walteh/patchrc/pkg/transform"
	"gitlab.com/tozd/go/errors"
)

// ExitError carries a non-zero exit status for a command whose output has
// already been reported
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// batchFlags override the manifest settings when set on the command line
type batchFlags struct {
	jobs          int
	transactional bool
	strict        bool
}

func (f *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", 0, "files to process at once (default from manifest)")
	cmd.Flags().BoolVar(&f.transactional, "transactional", false, "leave a file untouched when any of its rules fails")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "treat a non-optional rule that matches nothing as a failure")
}

func (f *batchFlags) override(cmd *cobra.Command, m *config.Manifest) error {
	if cmd.Flags().Changed("jobs") {
		if f.jobs < 0 {
			return errors.Errorf("invalid --jobs %d", f.jobs)
		}
		m.Settings.Jobs = f.jobs
	}
	if cmd.Flags().Changed("transactional") {
		m.Settings.Transactional = f.transactional
	}
	if cmd.Flags().Changed("strict") {
		m.Settings.Strict = f.strict
	}
	return nil
}

// runBatch runs the manifest, reporting to the logger carried by ctx
func runBatch(ctx context.Context, o *opts.RootOpts, m *config.Manifest, dryRun bool) (*batch.Report, error) {
	tr, err := transform.New(transform.Options{
		Files:  o.Workspace(m),
		Rules:  m.CompiledRules(),
		Policy: m.Policy(),
		DryRun: dryRun,
	})
	if err != nil {
		return nil, errors.Errorf("creating transformer: %w", err)
	}

	runner, err := batch.NewRunner(batch.Options{
		Transformer: tr,
		Reporter:    log.FromContext(ctx),
		Jobs:        m.Settings.Jobs,
		Strict:      m.Settings.Strict,
	})
	if err != nil {
		return nil, errors.Errorf("creating runner: %w", err)
	}

	rep, err := runner.Run(ctx, m.BatchTargets())
	if err != nil {
		return nil, errors.Errorf("running batch: %w", err)
	}
	return rep, nil
}
