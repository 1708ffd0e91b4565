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

package main

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const repairDir = "src/pages/repair"

func TestMain(m *testing.M) {
	color.NoColor = true
	pterm.DisableStyling()
	os.Exit(m.Run())
}

// setupCatalog copies the phone-number catalog into a temp dir and returns
// the manifest path
func setupCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join("testdata", "phone-numbers")

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(dir, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(dst, data, 0644)
	})
	require.NoError(t, err, "copying catalog")

	return filepath.Join(dir, ".patchrc.yaml")
}

func readPage(t *testing.T, manifest, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(filepath.Dir(manifest), repairDir, name))
	require.NoError(t, err, "reading %s", name)
	return string(data)
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Apply(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "sequential"},
		{name: "parallel", args: []string{"--jobs", "4"}},
		{name: "transactional", args: []string{"--transactional"}},
		{name: "strict", args: []string{"--strict"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manifest := setupCatalog(t)
			northBefore := readPage(t, manifest, "north-vancouver.tsx")

			code, out, _ := runCLI(t, append([]string{"apply", "-c", manifest}, tt.args...)...)
			require.Equal(t, 0, code, "apply output:\n%s", out)
			assert.Contains(t, out, "4/4 files fully consistent")

			chilliwack := readPage(t, manifest, "chilliwack.tsx")
			assert.Contains(t, chilliwack, "import { useSimplePhoneNumber } from '@/hooks/useSimplePhoneNumber';")
			assert.Contains(t, chilliwack, "export default function ChilliwackRepairPage() {\n  const { display: phoneDisplay, href: phoneHref, loading: phoneLoading } = useSimplePhoneNumber('chilliwack');")
			assert.Contains(t, chilliwack, `"telephone": phoneLoading ? "(604) 555-1234" : phoneDisplay,`)
			assert.Contains(t, chilliwack, `Call {phoneLoading ? "(604) 555-1234" : phoneDisplay}`)
			assert.NotContains(t, chilliwack, "tel:+16045551234")

			west := readPage(t, manifest, "west-vancouver.tsx")
			assert.Contains(t, west, "useSimplePhoneNumber('west-vancouver')")
			assert.NotContains(t, west, "tel:+16045551234")

			assert.Equal(t, northBefore, readPage(t, manifest, "north-vancouver.tsx"), "already migrated page should be untouched")
		})
	}
}

func TestRun_ApplyTwice(t *testing.T) {
	manifest := setupCatalog(t)

	code, _, _ := runCLI(t, "apply", "-c", manifest)
	require.Equal(t, 0, code)

	pages := []string{"north-vancouver.tsx", "west-vancouver.tsx", "new-westminster.tsx", "chilliwack.tsx"}
	first := map[string]string{}
	for _, p := range pages {
		first[p] = readPage(t, manifest, p)
	}

	code, out, _ := runCLI(t, "apply", "-c", manifest)
	require.Equal(t, 0, code)
	assert.NotContains(t, out, "written")
	assert.Contains(t, out, "4/4 files fully consistent")

	for _, p := range pages {
		assert.Equal(t, first[p], readPage(t, manifest, p), "second apply changed %s", p)
	}

	code, out, _ = runCLI(t, "check", "-c", manifest)
	assert.Equal(t, 0, code, "check after apply should pass:\n%s", out)
}

func TestRun_Check(t *testing.T) {
	manifest := setupCatalog(t)
	before := readPage(t, manifest, "new-westminster.tsx")

	code, out, _ := runCLI(t, "check", "--diff", "-c", manifest)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "3 file(s) would change")
	assert.Contains(t, out, "+++ b/"+repairDir+"/new-westminster.tsx")
	assert.Contains(t, out, "+import { useSimplePhoneNumber } from '@/hooks/useSimplePhoneNumber';")
	assert.Contains(t, out, "would change")

	assert.Equal(t, before, readPage(t, manifest, "new-westminster.tsx"), "check must not write")
}

func TestRun_MissingTarget(t *testing.T) {
	manifest := setupCatalog(t)
	require.NoError(t, os.Remove(filepath.Join(filepath.Dir(manifest), repairDir, "north-vancouver.tsx")))

	code, out, _ := runCLI(t, "validate", "-c", manifest)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "target not found: "+repairDir+"/north-vancouver.tsx")

	code, out, _ = runCLI(t, "apply", "-c", manifest)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "file-not-found")
	assert.Contains(t, out, "3/4 files fully consistent")

	// the other files are still patched
	assert.Contains(t, readPage(t, manifest, "chilliwack.tsx"), "useSimplePhoneNumber('chilliwack')")
}

func TestRun_Validate(t *testing.T) {
	manifest := setupCatalog(t)

	code, out, _ := runCLI(t, "validate", "-c", manifest)
	assert.Equal(t, 0, code, out)
	assert.Contains(t, out, "4 target(s), 5 rule(s) ok")
	assert.Contains(t, out, "rule hook-call: regex")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name        string
		manifest    string
		args        []string
		errContains string
	}{
		{
			name:        "missing_manifest",
			errContains: "loading manifest",
		},
		{
			name: "invalid_manifest",
			manifest: `
targets:
  - path: a.txt
rules:
  - name: broken
    regex: "("
    replace: x
`,
			errContains: "broken",
		},
		{
			name: "negative_jobs",
			manifest: `
targets:
  - path: a.txt
rules:
  - name: r
    literal: a
    replace: b
`,
			args:        []string{"--jobs=-1"},
			errContains: "invalid --jobs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".patchrc.yaml")
			if tt.manifest != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.manifest), 0644))
			}

			code, _, stderr := runCLI(t, append([]string{"apply", "-c", path}, tt.args...)...)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tt.errContains)
		})
	}
}

func TestRun_EnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.txt"), []byte("call PHONE now\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.env"), []byte("PATCHRC_CLI_PHONE=555-0100\n"), 0644))

	manifest := filepath.Join(dir, ".patchrc.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
targets:
  - path: page.txt
rules:
  - name: phone
    literal: PHONE
    replace: "{{env.PATCHRC_CLI_PHONE}}"
`), 0644))

	code, out, _ := runCLI(t, "apply", "-c", manifest, "--env-file", filepath.Join(dir, "site.env"))
	require.Equal(t, 0, code, out)

	data, err := os.ReadFile(filepath.Join(dir, "page.txt"))
	require.NoError(t, err)
	assert.Equal(t, "call 555-0100 now\n", string(data))
}

func TestRun_Root(t *testing.T) {
	manifestDir := t.TempDir()
	siteDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(siteDir, "page.txt"), []byte("old\n"), 0644))

	manifest := filepath.Join(manifestDir, "patches.json")
	require.NoError(t, os.WriteFile(manifest, []byte(`{
  "targets": [{"path": "page.txt"}],
  "rules": [{"name": "swap", "literal": "old", "replace": "new"}]
}`), 0644))

	code, out, _ := runCLI(t, "apply", "-c", manifest, "--root", siteDir)
	require.Equal(t, 0, code, out)

	data, err := os.ReadFile(filepath.Join(siteDir, "page.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(data))
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "🚀 patchrc version info:")

	code, out, _ = runCLI(t, "version", "--json")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, `"go_version"`)
}
