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
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/patchrc/cmd/patchrc/opts"
	"github.com/walteh/patchrc/pkg/log"
	"gitlab.com/tozd/go/errors"
)

func NewCheckCmd(o *opts.RootOpts) *cobra.Command {
	var (
		flags    batchFlags
		showDiff bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report what apply would change without writing",
		Long: `Check runs the batch as a dry run. Nothing is written.

Exits 1 when any file would change or fails, which makes it usable as a CI
gate that the patches are already in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "check").Logger().WithContext(cmd.Context())

			m, err := o.Manifest(ctx)
			if err != nil {
				return errors.Errorf("loading manifest: %w", err)
			}
			if err := flags.override(cmd, m); err != nil {
				return err
			}

			ui := o.Logger(ctx)
			ui.Header("checking " + m.Location())

			ctx = log.NewContext(ctx, ui)
			rep, err := runBatch(ctx, o, m, true)
			if err != nil {
				return err
			}

			changed := rep.Changed()
			if showDiff {
				for _, res := range changed {
					diff, err := res.Diff()
					if err != nil {
						return errors.Errorf("diffing %s: %w", res.Path, err)
					}
					ui.Diff(diff)
				}
			}

			if len(changed) > 0 {
				ui.Warningf("%d file(s) would change", len(changed))
			}
			if len(changed) > 0 || !rep.Success() {
				return &ExitError{Code: 1}
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&showDiff, "diff", false, "print a unified diff for every file that would change")
	return cmd
}
