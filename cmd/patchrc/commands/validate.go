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
	"gitlab.com/tozd/go/errors"
)

func NewValidateCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the manifest and check that every target exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "validate").Logger().WithContext(cmd.Context())

			m, err := o.Manifest(ctx)
			if err != nil {
				return errors.Errorf("loading manifest: %w", err)
			}

			ui := o.Logger(ctx)
			ui.Header("validating " + m.Location())

			for _, r := range m.CompiledRules() {
				ui.Infof("rule %s: %s %q", r.Name, r.Pattern.Kind(), r.Pattern.String())
			}

			ws := o.Workspace(m)
			missing := 0
			for _, t := range m.BatchTargets() {
				ok, err := ws.FileExists(ctx, t.Path)
				if err != nil {
					return errors.Errorf("checking target %s: %w", t.Path, err)
				}
				if !ok {
					missing++
					ui.Errorf("target not found: %s", t.Path)
				}
			}

			if missing > 0 {
				ui.Warningf("%d of %d target(s) missing", missing, len(m.Targets))
				return &ExitError{Code: 1}
			}

			ui.Successf("%d target(s), %d rule(s) ok", len(m.Targets), len(m.Rules))
			return nil
		},
	}

	return cmd
}
