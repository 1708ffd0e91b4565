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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/walteh/patchrc/pkg/match"
	"github.com/walteh/patchrc/pkg/rule"
	"github.com/walteh/patchrc/pkg/transform"
	"gitlab.com/tozd/go/errors"
)

// envPrefix marks template references resolved from the environment
const envPrefix = "env."

// 🔌 Parser is the interface for manifest parsers
type Parser interface {
	// 📝 Parse parses the manifest from bytes
	Parse(ctx context.Context, filename string, data []byte, env map[string]string) (*Manifest, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🎯 TargetDef declares one file to patch
type TargetDef struct {
	Path   string            `json:"path" yaml:"path"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// 🔄 RuleDef declares one transform rule. Exactly one of Literal, Regex and
// Loose is set.
type RuleDef struct {
	Name     string   `json:"name" yaml:"name"`
	Literal  string   `json:"literal,omitempty" yaml:"literal,omitempty"`
	Regex    string   `json:"regex,omitempty" yaml:"regex,omitempty"`
	Loose    string   `json:"loose,omitempty" yaml:"loose,omitempty"`
	Replace  string   `json:"replace" yaml:"replace"`
	Marker   string   `json:"marker,omitempty" yaml:"marker,omitempty"`
	Present  string   `json:"present,omitempty" yaml:"present,omitempty"` // regex guard
	Optional bool     `json:"optional,omitempty" yaml:"optional,omitempty"`
	Files    []string `json:"files,omitempty" yaml:"files,omitempty"`
}

// ⚙️ Settings tunes how a batch runs
type Settings struct {
	Transactional bool `json:"transactional,omitempty" yaml:"transactional,omitempty"`
	Strict        bool `json:"strict,omitempty" yaml:"strict,omitempty"`
	Jobs          int  `json:"jobs,omitempty" yaml:"jobs,omitempty"`
}

// 📚 Manifest is the complete set of targets and rules for a batch
type Manifest struct {
	Vars     map[string]string `json:"vars,omitempty" yaml:"vars,omitempty"`
	Settings Settings          `json:"settings,omitempty" yaml:"settings,omitempty"`
	Targets  []TargetDef       `json:"targets" yaml:"targets"`
	Rules    []RuleDef         `json:"rules" yaml:"rules"`

	location string
	env      map[string]string
	compiled []*rule.Rule
}

// 🎯 Load reads, parses and validates a manifest. Dotenv files are merged
// under the process environment, which wins on conflicts.
func Load(ctx context.Context, path string, envFiles ...string) (*Manifest, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Strs("env_files", envFiles).Msg("loading manifest")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading manifest: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	env, err := loadEnv(envFiles)
	if err != nil {
		return nil, err
	}

	m, err := p.Parse(ctx, path, data, env)
	if err != nil {
		return nil, errors.Errorf("parsing manifest: %w", err)
	}
	m.location = path
	m.env = env

	if err := Validate(ctx, m); err != nil {
		return nil, errors.Errorf("validating manifest: %w", err)
	}

	logger.Debug().Int("targets", len(m.Targets)).Int("rules", len(m.Rules)).Msg("manifest loaded")
	return m, nil
}

func loadEnv(envFiles []string) (map[string]string, error) {
	env := map[string]string{}
	if len(envFiles) > 0 {
		fromFiles, err := godotenv.Read(envFiles...)
		if err != nil {
			return nil, errors.Errorf("reading env files: %w", err)
		}
		for k, v := range fromFiles {
			env[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env, nil
}

// 🔍 Validate checks the manifest and compiles its rules. Bad patterns and
// templates are reported here, before any file is touched.
func Validate(ctx context.Context, m *Manifest) error {
	if len(m.Targets) == 0 {
		return errors.Errorf("at least one target is required")
	}
	if len(m.Rules) == 0 {
		return errors.Errorf("at least one rule is required")
	}
	if m.Settings.Jobs < 0 {
		return errors.Errorf("settings.jobs must not be negative")
	}

	paths := make(map[string]struct{}, len(m.Targets))
	for i := range m.Targets {
		t := &m.Targets[i]
		if strings.TrimSpace(t.Path) == "" {
			return errors.Errorf("target %d: path is required", i)
		}
		t.Path = filepath.Clean(t.Path)
		if _, ok := paths[t.Path]; ok {
			return errors.Errorf("target %d: duplicate path %q", i, t.Path)
		}
		paths[t.Path] = struct{}{}
	}

	names := make(map[string]struct{}, len(m.Rules))
	compiled := make([]*rule.Rule, 0, len(m.Rules))
	for i, def := range m.Rules {
		r, err := def.compile()
		if err != nil {
			return errors.Errorf("rule %d: %w", i, err)
		}
		if _, ok := names[r.Name]; ok {
			return errors.Errorf("rule %d: duplicate name %q", i, r.Name)
		}
		names[r.Name] = struct{}{}
		compiled = append(compiled, r)
	}
	m.compiled = compiled

	return nil
}

func (d RuleDef) compile() (*rule.Rule, error) {
	var (
		kind   match.Kind
		source string
		set    int
	)
	if d.Literal != "" {
		kind, source = match.KindLiteral, d.Literal
		set++
	}
	if d.Regex != "" {
		kind, source = match.KindRegexp, d.Regex
		set++
	}
	if d.Loose != "" {
		kind, source = match.KindLoose, d.Loose
		set++
	}
	if set != 1 {
		return nil, errors.Errorf("rule %q: exactly one of literal, regex or loose is required", d.Name)
	}

	pattern, err := match.Compile(kind, source)
	if err != nil {
		return nil, errors.Errorf("rule %q: %w", d.Name, err)
	}

	replace, err := rule.ParseTemplate(d.Replace)
	if err != nil {
		return nil, errors.Errorf("rule %q: parsing replace: %w", d.Name, err)
	}

	r := &rule.Rule{
		Name:     d.Name,
		Pattern:  pattern,
		Replace:  replace,
		Optional: d.Optional,
		Files:    d.Files,
	}

	if d.Marker != "" {
		marker, err := rule.ParseTemplate(d.Marker)
		if err != nil {
			return nil, errors.Errorf("rule %q: parsing marker: %w", d.Name, err)
		}
		r.Guard.Marker = marker
	}
	if d.Present != "" {
		present, err := match.Compile(match.KindRegexp, d.Present)
		if err != nil {
			return nil, errors.Errorf("rule %q: present: %w", d.Name, err)
		}
		r.Guard.Present = present
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Location returns the path the manifest was loaded from
func (m *Manifest) Location() string {
	return m.location
}

// Dir returns the directory relative target paths resolve against
func (m *Manifest) Dir() string {
	if m.location == "" {
		return "."
	}
	return filepath.Dir(m.location)
}

// CompiledRules returns the rules compiled by Validate, in declared order
func (m *Manifest) CompiledRules() []*rule.Rule {
	return m.compiled
}

// Policy returns the failure policy selected by the settings
func (m *Manifest) Policy() transform.Policy {
	if m.Settings.Transactional {
		return transform.Transactional
	}
	return transform.Partial
}

// 🎯 BatchTargets returns the targets with vars merged under their params and
// any env.NAME references used by the rules filled in.
func (m *Manifest) BatchTargets() []transform.Target {
	envRefs := m.envRefs()

	targets := make([]transform.Target, 0, len(m.Targets))
	for _, def := range m.Targets {
		params := make(map[string]string, len(m.Vars)+len(def.Params)+len(envRefs))
		for _, ref := range envRefs {
			if v, ok := m.env[strings.TrimPrefix(ref, envPrefix)]; ok {
				params[ref] = v
			}
		}
		for k, v := range m.Vars {
			params[k] = v
		}
		for k, v := range def.Params {
			params[k] = v
		}
		targets = append(targets, transform.Target{Path: def.Path, Params: params})
	}
	return targets
}

func (m *Manifest) envRefs() []string {
	seen := map[string]struct{}{}
	var refs []string
	add := func(t *rule.Template) {
		if t == nil {
			return
		}
		for _, ref := range t.Refs() {
			if !strings.HasPrefix(ref, envPrefix) {
				continue
			}
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			refs = append(refs, ref)
		}
	}
	for _, r := range m.compiled {
		add(r.Replace)
		add(r.Guard.Marker)
	}
	return refs
}

// 📝 String returns a short description of the manifest
func (m *Manifest) String() string {
	return fmt.Sprintf("%s: %d targets, %d rules", m.location, len(m.Targets), len(m.Rules))
}
