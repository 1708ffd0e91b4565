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

// Package match locates the sites a transform rule rewrites.
//
// Patterns never understand the syntax of the file they scan: a literal is an
// exact, case-sensitive substring, a loose literal tolerates reformatted
// whitespace and a regular expression brings anchors, wildcards and capture
// groups. Matching is non-overlapping and left-to-right.
package match

import (
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ErrEmptyPattern is returned when a pattern has nothing to match
var ErrEmptyPattern = errors.Base("empty pattern")

// 🔤 Kind identifies how a Pattern interprets its source text
type Kind int

const (
	KindLiteral Kind = iota // exact substring
	KindRegexp              // RE2 regular expression
	KindLoose               // substring with flexible whitespace
)

// String returns the manifest spelling of the kind
func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindRegexp:
		return "regex"
	case KindLoose:
		return "loose"
	default:
		return "unknown"
	}
}

// ParseKind maps a manifest spelling back to a Kind
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "literal", "":
		return KindLiteral, nil
	case "regex", "regexp":
		return KindRegexp, nil
	case "loose":
		return KindLoose, nil
	default:
		return KindLiteral, errors.Errorf("unknown pattern kind %q", s)
	}
}

// 📍 Match is one site found in the content
type Match struct {
	Start int // byte offset of the first matched byte
	End   int // byte offset just past the match

	// Groups holds positional captures; Groups[0] is the whole match.
	// Groups that did not participate are empty.
	Groups []string

	// Named holds the captures of named groups.
	Named map[string]string
}

// Text returns the whole matched text
func (m Match) Text() string {
	return m.Groups[0]
}

// 🎯 Pattern is a compiled search pattern
type Pattern struct {
	kind   Kind
	source string
	re     *regexp.Regexp // nil for plain literals
}

// Compile validates and compiles a pattern. A malformed pattern is a
// configuration error and is reported here rather than at match time.
func Compile(kind Kind, source string) (*Pattern, error) {
	p := &Pattern{kind: kind, source: source}

	switch kind {
	case KindLiteral:
		if source == "" {
			return nil, ErrEmptyPattern
		}
	case KindRegexp:
		if source == "" {
			return nil, ErrEmptyPattern
		}
		re, err := regexp.Compile(source)
		if err != nil {
			return nil, errors.Errorf("compiling regex %q: %w", source, err)
		}
		p.re = re
	case KindLoose:
		fields := strings.Fields(source)
		if len(fields) == 0 {
			return nil, ErrEmptyPattern
		}
		quoted := make([]string, len(fields))
		for i, f := range fields {
			quoted[i] = regexp.QuoteMeta(f)
		}
		p.re = regexp.MustCompile(strings.Join(quoted, `\s*`))
	default:
		return nil, errors.Errorf("unknown pattern kind %d", kind)
	}

	return p, nil
}

// MustCompile is like Compile but panics on error
func MustCompile(kind Kind, source string) *Pattern {
	p, err := Compile(kind, source)
	if err != nil {
		panic(err)
	}
	return p
}

// Kind returns how the pattern interprets its source
func (p *Pattern) Kind() Kind {
	return p.kind
}

// String returns the source text of the pattern
func (p *Pattern) String() string {
	return p.source
}

// NumGroups returns the number of capture groups, excluding the whole match
func (p *Pattern) NumGroups() int {
	if p.re == nil || p.kind != KindRegexp {
		return 0
	}
	return p.re.NumSubexp()
}

// HasGroup reports whether the pattern declares a named capture group
func (p *Pattern) HasGroup(name string) bool {
	if p.re == nil || p.kind != KindRegexp || name == "" {
		return false
	}
	return p.re.SubexpIndex(name) >= 0
}

// Matches reports whether the pattern occurs anywhere in content
func (p *Pattern) Matches(content string) bool {
	if p.re == nil {
		return strings.Contains(content, p.source)
	}
	return p.re.MatchString(content)
}

// 🔍 Find returns every non-overlapping match in content, left to right
func (p *Pattern) Find(content string) []Match {
	if p.re == nil {
		return p.findLiteral(content)
	}

	locs := p.re.FindAllStringSubmatchIndex(content, -1)
	if len(locs) == 0 {
		return nil
	}

	names := p.re.SubexpNames()
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		m := Match{
			Start:  loc[0],
			End:    loc[1],
			Groups: make([]string, len(loc)/2),
		}
		for g := 0; g < len(loc)/2; g++ {
			if loc[2*g] < 0 {
				continue
			}
			m.Groups[g] = content[loc[2*g]:loc[2*g+1]]
			if names[g] != "" {
				if m.Named == nil {
					m.Named = make(map[string]string)
				}
				m.Named[names[g]] = m.Groups[g]
			}
		}
		matches = append(matches, m)
	}
	return matches
}

func (p *Pattern) findLiteral(content string) []Match {
	var matches []Match
	for pos := 0; pos <= len(content); {
		idx := strings.Index(content[pos:], p.source)
		if idx < 0 {
			break
		}
		start := pos + idx
		end := start + len(p.source)
		matches = append(matches, Match{
			Start:  start,
			End:    end,
			Groups: []string{content[start:end]},
		})
		pos = end
	}
	return matches
}
