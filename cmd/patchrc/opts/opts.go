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

package opts

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/walteh/patchrc/pkg/config"
	"github.com/walteh/patchrc/pkg/log"
	"github.com/walteh/patchrc/pkg/workspace"
)

// RootOpts holds the persistent flags shared by every command
type RootOpts struct {
	ConfigFile string
	Root       string // directory target paths resolve against, defaults to the manifest's
	EnvFiles   []string
	Debug      bool
	Out        io.Writer
}

// Manifest loads the manifest named by --config
func (o *RootOpts) Manifest(ctx context.Context) (*config.Manifest, error) {
	return config.Load(ctx, o.ConfigFile, o.EnvFiles...)
}

// Workspace returns the file manager for the manifest's targets
func (o *RootOpts) Workspace(m *config.Manifest) *workspace.Manager {
	root := o.Root
	if root == "" {
		root = m.Dir()
	}
	return workspace.New(root)
}

// Logger returns the user-facing logger, mirroring to the context's zerolog logger
func (o *RootOpts) Logger(ctx context.Context) *log.Logger {
	return log.New(o.Out, *zerolog.Ctx(ctx))
}
