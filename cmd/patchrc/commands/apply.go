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

func NewApplyCmd(o *opts.RootOpts) *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the manifest's rules to every target file",
		Long: `Apply runs every rule, in order, against every target file and writes the
files whose content changed. Rules whose edit is already present are skipped,
so running apply twice leaves the files as the first run did.

Exits 1 when any file fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "apply").Logger().WithContext(cmd.Context())

			m, err := o.Manifest(ctx)
			if err != nil {
				return errors.Errorf("loading manifest: %w", err)
			}
			if err := flags.override(cmd, m); err != nil {
				return err
			}

			ui := o.Logger(ctx)
			ui.Header("applying " + m.Location())

			ctx = log.NewContext(ctx, ui)
			rep, err := runBatch(ctx, o, m, false)
			if err != nil {
				return err
			}
			if code := rep.ExitCode(); code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
