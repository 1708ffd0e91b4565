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

package rule

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/walteh/patchrc/pkg/match"
	"gitlab.com/tozd/go/errors"
)

// 📊 Status is the result of applying one rule to one file
type Status int

const (
	StatusApplied        Status = iota // replacement spliced in
	StatusAlreadyPresent               // guard proved the effect is already there
	StatusNotFound                     // pattern absent, nothing to do
	StatusFailed                       // rule could not be applied
)

// String returns the report spelling of the status
func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusAlreadyPresent:
		return "skipped-already-present"
	case StatusNotFound:
		return "skipped-not-found"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Reasons attached to synthetic or failed outcomes
const (
	ReasonFileNotFound  = "file-not-found"
	ReasonReadError     = "read-error"
	ReasonWriteError    = "write-error"
	ReasonNonIdempotent = "non-idempotent"
	ReasonOutOfScope    = "out-of-scope"
	ReasonCancelled     = "cancelled"
	ReasonNoChange      = "replacement-unchanged"
)

// 🧾 Outcome records what happened to one (file, rule) pair
type Outcome struct {
	Rule     string // rule name, empty for file-level outcomes
	Status   Status
	Reason   string // detail for failures and synthetic skips
	Matches  int    // number of sites replaced
	Optional bool   // the rule is allowed to find nothing
}

// Failed builds a file-level failure outcome
func Failed(reason string) Outcome {
	return Outcome{Status: StatusFailed, Reason: reason}
}

// Consistent reports whether the outcome leaves the file in its intended end
// state: applied, already present, or an allowed miss.
func (o Outcome) Consistent() bool {
	switch o.Status {
	case StatusApplied, StatusAlreadyPresent:
		return true
	case StatusNotFound:
		return o.Optional || o.Reason == ReasonOutOfScope
	default:
		return false
	}
}

// String formats the outcome as status:reason
func (o Outcome) String() string {
	if o.Reason == "" {
		return o.Status.String()
	}
	return fmt.Sprintf("%s:%s", o.Status, o.Reason)
}

// 🛡️ Guard proves a rule's effect is already present. Either check holding is
// enough; a zero Guard relies on the pattern no longer matching.
type Guard struct {
	Marker  *Template      // content contains the rendered marker
	Present *match.Pattern // content matches a structural pattern
}

// IsZero reports whether no check is configured
func (g Guard) IsZero() bool {
	return g.Marker == nil && g.Present == nil
}

// Satisfied evaluates the guard against content
func (g Guard) Satisfied(content string, params map[string]string) (bool, error) {
	if g.Marker != nil {
		marker, err := g.Marker.Render(nil, nil, params)
		if err != nil {
			return false, errors.Errorf("rendering marker: %w", err)
		}
		if marker != "" && strings.Contains(content, marker) {
			return true, nil
		}
	}
	if g.Present != nil && g.Present.Matches(content) {
		return true, nil
	}
	return false, nil
}

// 🔧 Rule is a pattern-guarded transformation
type Rule struct {
	Name     string
	Pattern  *match.Pattern
	Replace  *Template
	Guard    Guard
	Optional bool     // a miss is expected for some targets
	Files    []string // doublestar globs limiting the targets, empty for all
}

// Validate checks that the rule can be applied
func (r *Rule) Validate() error {
	if r.Name == "" {
		return errors.Errorf("name is required")
	}
	if r.Pattern == nil {
		return errors.Errorf("rule %q: pattern is required", r.Name)
	}
	if r.Replace == nil {
		return errors.Errorf("rule %q: replacement is required", r.Name)
	}
	if err := r.Replace.CheckCaptures(r.Pattern); err != nil {
		return errors.Errorf("rule %q: %w", r.Name, err)
	}
	if r.Guard.Marker != nil {
		for _, ref := range r.Guard.Marker.Refs() {
			if r.Pattern.HasGroup(ref) || isNumeric(ref) {
				return errors.Errorf("rule %q: marker cannot reference capture %q", r.Name, ref)
			}
		}
	}
	for _, glob := range r.Files {
		if !doublestar.ValidatePattern(glob) {
			return errors.Errorf("rule %q: invalid files glob %q", r.Name, glob)
		}
	}
	return nil
}

// InScope reports whether the rule targets the given path
func (r *Rule) InScope(path string) bool {
	if len(r.Files) == 0 {
		return true
	}
	slashed := filepath.ToSlash(path)
	for _, glob := range r.Files {
		if ok, err := doublestar.Match(glob, slashed); err == nil && ok {
			return true
		}
	}
	return false
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

// 🔄 Apply runs one rule against content. The returned content is the input
// unchanged unless the outcome is StatusApplied.
func Apply(content string, r *Rule, params map[string]string) (string, Outcome) {
	out := Outcome{Rule: r.Name, Optional: r.Optional}

	present, err := r.Guard.Satisfied(content, params)
	if err != nil {
		out.Status = StatusFailed
		out.Reason = err.Error()
		return content, out
	}
	if present {
		out.Status = StatusAlreadyPresent
		return content, out
	}

	matches := r.Pattern.Find(content)
	if len(matches) == 0 {
		out.Status = StatusNotFound
		return content, out
	}

	var b strings.Builder
	b.Grow(len(content))
	last := 0
	for i := range matches {
		rendered, err := r.Replace.Render(&matches[i], r.Pattern, params)
		if err != nil {
			out.Status = StatusFailed
			out.Reason = fmt.Sprintf("template: %s", err)
			return content, out
		}
		b.WriteString(content[last:matches[i].Start])
		b.WriteString(rendered)
		last = matches[i].End
	}
	b.WriteString(content[last:])
	next := b.String()

	if next == content {
		out.Status = StatusAlreadyPresent
		out.Reason = ReasonNoChange
		return content, out
	}

	// a second application must be a no-op
	settled, err := r.Guard.Satisfied(next, params)
	if err != nil || (!settled && r.Pattern.Matches(next)) {
		out.Status = StatusFailed
		out.Reason = ReasonNonIdempotent
		return content, out
	}

	out.Status = StatusApplied
	out.Matches = len(matches)
	return next, out
}
