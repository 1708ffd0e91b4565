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

package config

import (
	"context"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files.
//
// Expressions can read the environment through the env object, e.g.
// params = { phoneHref = env.PHONE_HREF }. A literal "${" must be written "$${".
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".hcl")
}

// 📝 Parse parses the manifest from HCL
func (p *HCLParser) Parse(ctx context.Context, filename string, data []byte, env map[string]string) (*Manifest, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envObject(env),
		},
	}

	// Define HCL schema
	type hclConfig struct {
		Vars     map[string]string `hcl:"vars,optional"`
		Settings *struct {
			Transactional bool `hcl:"transactional,optional"`
			Strict        bool `hcl:"strict,optional"`
			Jobs          int  `hcl:"jobs,optional"`
		} `hcl:"settings,block"`
		Targets []struct {
			Path   string            `hcl:"path,label"`
			Params map[string]string `hcl:"params,optional"`
		} `hcl:"target,block"`
		Rules []struct {
			Name     string   `hcl:"name,label"`
			Literal  string   `hcl:"literal,optional"`
			Regex    string   `hcl:"regex,optional"`
			Loose    string   `hcl:"loose,optional"`
			Replace  string   `hcl:"replace"`
			Marker   string   `hcl:"marker,optional"`
			Present  string   `hcl:"present,optional"`
			Optional bool     `hcl:"optional,optional"`
			Files    []string `hcl:"files,optional"`
		} `hcl:"rule,block"`
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	// Convert to model
	m := &Manifest{Vars: hclCfg.Vars}
	if hclCfg.Settings != nil {
		m.Settings = Settings{
			Transactional: hclCfg.Settings.Transactional,
			Strict:        hclCfg.Settings.Strict,
			Jobs:          hclCfg.Settings.Jobs,
		}
	}
	for _, t := range hclCfg.Targets {
		m.Targets = append(m.Targets, TargetDef{Path: t.Path, Params: t.Params})
	}
	for _, r := range hclCfg.Rules {
		m.Rules = append(m.Rules, RuleDef{
			Name:     r.Name,
			Literal:  r.Literal,
			Regex:    r.Regex,
			Loose:    r.Loose,
			Replace:  r.Replace,
			Marker:   r.Marker,
			Present:  r.Present,
			Optional: r.Optional,
			Files:    r.Files,
		})
	}

	return m, nil
}

func envObject(env map[string]string) cty.Value {
	if len(env) == 0 {
		return cty.EmptyObjectVal
	}
	vals := make(map[string]cty.Value, len(env))
	for k, v := range env {
		vals[k] = cty.StringVal(v)
	}
	return cty.ObjectVal(vals)
}
