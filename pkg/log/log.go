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

package log

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/walteh/patchrc/pkg/batch"
	"github.com/walteh/patchrc/pkg/rule"
	"github.com/walteh/patchrc/pkg/transform"
)

// 🎨 Display configuration
const (
	ruleIndent  = 4  // spaces to indent rule entries
	nameWidth   = 35 // Base width for rule name
	statusWidth = 24 // Width for status text
)

// 🎯 Logger writes batch progress to the console and mirrors it to zerolog
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
}

var _ batch.Reporter = (*Logger)(nil)

// 🏭 New creates a new logger
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

func statusStyle(o rule.Outcome) (rune, color.Attribute) {
	switch o.Status {
	case rule.StatusApplied:
		return '✓', color.FgGreen
	case rule.StatusAlreadyPresent:
		return '•', color.FgCyan
	case rule.StatusNotFound:
		if o.Consistent() {
			return '-', color.Faint
		}
		return '-', color.FgYellow
	default:
		return '✗', color.FgRed
	}
}

// 📝 formatOutcome formats a rule outcome for display
func (l *Logger) formatOutcome(o rule.Outcome) string {
	symbol, symbolColor := statusStyle(o)

	name := o.Rule
	if name == "" {
		name = "(file)"
	}

	line := fmt.Sprintf("%s%s %s %s",
		strings.Repeat(" ", ruleIndent),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, name),
		color.New(symbolColor).Sprint(fmt.Sprintf("%-*s", statusWidth, o.Status)))

	switch {
	case o.Status == rule.StatusApplied:
		line += fmt.Sprintf(" %d match(es)", o.Matches)
	case o.Reason != "":
		line += " " + color.New(color.Faint).Sprint(o.Reason)
	}
	return strings.TrimRight(line, " ")
}

func fileState(res *transform.Result) string {
	switch {
	case res.RolledBack:
		return "rolled back"
	case res.Written:
		return "written"
	case res.Changed():
		return "would change"
	default:
		return "unchanged"
	}
}

// 📝 StartBatch prints the batch header
func (l *Logger) StartBatch(ctx context.Context, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.console, "[patching %s]\n", color.New(color.FgCyan).Sprintf("%d file(s)", total))
	l.zlog.Info().Int("total", total).Msg("starting batch")
}

// 📝 FileDone prints a file and the outcome of every rule
func (l *Logger) FileDone(ctx context.Context, res *transform.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()

	marker := color.New(color.FgMagenta).Sprint("◆")
	if res.Failed() {
		marker = color.New(color.FgRed).Sprint("◆")
	}
	fmt.Fprintf(l.console, "%s %s %s %s\n",
		marker,
		color.New(color.Bold).Sprint(res.Path),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprint(fileState(res)))

	for _, o := range res.Outcomes {
		fmt.Fprintln(l.console, l.formatOutcome(o))

		ev := l.zlog.Info()
		if o.Status == rule.StatusFailed {
			ev = l.zlog.Warn()
		}
		ev.Str("file", res.Path).
			Str("rule", o.Rule).
			Str("status", o.Status.String()).
			Str("reason", o.Reason).
			Int("matches", o.Matches).
			Msg("rule outcome")
	}

	l.zlog.Info().
		Str("file", res.Path).
		Bool("changed", res.Changed()).
		Bool("written", res.Written).
		Bool("rolled_back", res.RolledBack).
		Bool("consistent", res.Consistent()).
		Msg("file complete")
}

// 📝 FinishBatch prints the summary table and the final tally
func (l *Logger) FinishBatch(ctx context.Context, rep *batch.Report) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data := pterm.TableData{{"File", "Applied", "Present", "Not found", "Failed", "State"}}
	for _, res := range rep.Files {
		state := "consistent"
		switch {
		case rep.FileFailed(res):
			state = "failed"
		case !res.Consistent():
			state = "incomplete"
		}
		data = append(data, []string{
			res.Path,
			fmt.Sprint(res.Count(rule.StatusApplied)),
			fmt.Sprint(res.Count(rule.StatusAlreadyPresent)),
			fmt.Sprint(res.Count(rule.StatusNotFound)),
			fmt.Sprint(res.Count(rule.StatusFailed)),
			state,
		})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		l.zlog.Warn().Err(err).Msg("rendering summary table")
	} else {
		fmt.Fprintf(l.console, "\n%s\n", table)
	}

	consistent, total := rep.Tally()
	msg := fmt.Sprintf("%d/%d files fully consistent", consistent, total)
	if rep.Success() && consistent == total {
		fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	} else if rep.Success() {
		fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	} else {
		fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	}

	l.zlog.Info().
		Int("consistent", consistent).
		Int("total", total).
		Bool("success", rep.Success()).
		Msg("batch summary")
}

// 📝 Diff prints a unified diff
func (l *Logger) Diff(diff string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fmt.Fprint(l.console, color.New(color.Bold).Sprint(line))
		case strings.HasPrefix(line, "+"):
			fmt.Fprint(l.console, color.New(color.FgGreen).Sprint(line))
		case strings.HasPrefix(line, "-"):
			fmt.Fprint(l.console, color.New(color.FgRed).Sprint(line))
		case strings.HasPrefix(line, "@@"):
			fmt.Fprint(l.console, color.New(color.FgCyan).Sprint(line))
		default:
			fmt.Fprint(l.console, line)
		}
	}
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("patchrc")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
