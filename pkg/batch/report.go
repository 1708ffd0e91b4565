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

package batch

import (
	"github.com/walteh/patchrc/pkg/rule"
	"github.com/walteh/patchrc/pkg/transform"
)

// 📊 Report aggregates the results of one batch in manifest order
type Report struct {
	Files  []*transform.Result
	Strict bool // a non-optional rule that found nothing counts as a failure
}

// Result returns the result for a target path, or nil
func (r *Report) Result(path string) *transform.Result {
	for _, f := range r.Files {
		if f.Path == path {
			return f
		}
	}
	return nil
}

// FileFailed reports whether a file's outcomes make the batch fail
func (r *Report) FileFailed(res *transform.Result) bool {
	for _, o := range res.Outcomes {
		if o.Status == rule.StatusFailed {
			return true
		}
		if r.Strict && !o.Consistent() {
			return true
		}
	}
	return false
}

// Success reports whether no file has a failing outcome
func (r *Report) Success() bool {
	for _, f := range r.Files {
		if r.FileFailed(f) {
			return false
		}
	}
	return true
}

// ExitCode returns the process exit status for the batch
func (r *Report) ExitCode() int {
	if r.Success() {
		return 0
	}
	return 1
}

// Tally returns how many files reached a fully consistent end state
func (r *Report) Tally() (consistent, total int) {
	for _, f := range r.Files {
		if f.Consistent() {
			consistent++
		}
	}
	return consistent, len(r.Files)
}

// Counts returns the number of outcomes per status across all files
func (r *Report) Counts() map[rule.Status]int {
	counts := make(map[rule.Status]int)
	for _, f := range r.Files {
		for _, o := range f.Outcomes {
			counts[o.Status]++
		}
	}
	return counts
}

// Changed returns the results whose content changed, written or not
func (r *Report) Changed() []*transform.Result {
	var changed []*transform.Result
	for _, f := range r.Files {
		if f.Changed() {
			changed = append(changed, f)
		}
	}
	return changed
}
