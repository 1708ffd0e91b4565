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
	"strconv"
	"strings"

	"github.com/walteh/patchrc/pkg/match"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrMissingParam is returned when a placeholder names no capture and no parameter
	ErrMissingParam = errors.Base("missing parameter")
	// ErrUnknownCapture is returned when a placeholder names a capture group the match does not have
	ErrUnknownCapture = errors.Base("unknown capture group")
)

// 🧩 segment is either literal text or a placeholder reference
type segment struct {
	text  string
	ref   string
	isRef bool
}

// 📝 Template is a replacement text with {{name}} placeholders.
//
// A numeric name is a positional capture, a name declared as a named group by
// the rule's pattern is a named capture and anything else is looked up in the
// target parameters. "{{{{" produces a literal "{{".
type Template struct {
	source   string
	segments []segment
}

// ParseTemplate parses a replacement template
func ParseTemplate(source string) (*Template, error) {
	t := &Template{source: source}

	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(source); {
		if strings.HasPrefix(source[i:], "{{{{") {
			lit.WriteString("{{")
			i += 4
			continue
		}
		if !strings.HasPrefix(source[i:], "{{") {
			lit.WriteByte(source[i])
			i++
			continue
		}

		end := strings.Index(source[i+2:], "}}")
		if end < 0 {
			return nil, errors.Errorf("unterminated placeholder at offset %d", i)
		}
		name := strings.TrimSpace(source[i+2 : i+2+end])
		if !validRef(name) {
			return nil, errors.Errorf("invalid placeholder %q at offset %d", name, i)
		}
		flush()
		t.segments = append(t.segments, segment{ref: name, isRef: true})
		i += 2 + end + 2
	}
	flush()

	return t, nil
}

// MustParseTemplate is like ParseTemplate but panics on error
func MustParseTemplate(source string) *Template {
	t, err := ParseTemplate(source)
	if err != nil {
		panic(err)
	}
	return t
}

func validRef(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return false
		}
	}
	return true
}

// String returns the template source
func (t *Template) String() string {
	return t.source
}

// Refs returns the placeholder names in order of appearance
func (t *Template) Refs() []string {
	var refs []string
	for _, s := range t.segments {
		if s.isRef {
			refs = append(refs, s.ref)
		}
	}
	return refs
}

// CheckCaptures verifies that every positional placeholder exists in the pattern
func (t *Template) CheckCaptures(p *match.Pattern) error {
	for _, ref := range t.Refs() {
		idx, err := strconv.Atoi(ref)
		if err != nil {
			continue
		}
		if idx > p.NumGroups() {
			return errors.Errorf("%w: {{%d}} but pattern has %d groups", ErrUnknownCapture, idx, p.NumGroups())
		}
	}
	return nil
}

// 🎨 Render expands the template for one match. m and p may be nil when there
// is no match to draw captures from, as for guard markers.
func (t *Template) Render(m *match.Match, p *match.Pattern, params map[string]string) (string, error) {
	var b strings.Builder
	for _, s := range t.segments {
		if !s.isRef {
			b.WriteString(s.text)
			continue
		}
		v, err := resolve(s.ref, m, p, params)
		if err != nil {
			return "", err
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

func resolve(ref string, m *match.Match, p *match.Pattern, params map[string]string) (string, error) {
	if idx, err := strconv.Atoi(ref); err == nil {
		if m == nil || idx < 0 || idx >= len(m.Groups) {
			return "", errors.Errorf("%w: {{%s}}", ErrUnknownCapture, ref)
		}
		return m.Groups[idx], nil
	}

	if m != nil && p != nil && p.HasGroup(ref) {
		return m.Named[ref], nil
	}

	if v, ok := params[ref]; ok {
		return v, nil
	}

	return "", errors.Errorf("%w %q", ErrMissingParam, ref)
}
