package config_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/walteh/patchrc/pkg/config"
)

func ExampleLoad() {
	ctx := context.Background()

	manifest := `
targets:
  - path: src/pages/repair/chilliwack.tsx
    params:
      phoneHref: tel:+17785559999
rules:
  - name: phone-href
    literal: tel:+16045551234
    replace: "{{phoneHref}}"
    marker: "{{phoneHref}}"
`

	dir, err := os.MkdirTemp("", "patchrc-example")
	if err != nil {
		fmt.Printf("Error creating dir: %v\n", err)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, ".patchrc.yaml")
	if err := os.WriteFile(path, []byte(manifest), 0644); err != nil {
		fmt.Printf("Error writing manifest: %v\n", err)
		return
	}

	m, err := config.Load(ctx, path)
	if err != nil {
		fmt.Printf("Error loading manifest: %v\n", err)
		return
	}

	target := m.BatchTargets()[0]
	r := m.CompiledRules()[0]
	fmt.Printf("Target: %s\n", target.Path)
	fmt.Printf("Rule: %s (%s) -> %s\n", r.Name, r.Pattern.Kind(), r.Replace)
	fmt.Printf("Policy: %s\n", m.Policy())

	// Output:
	// Target: src/pages/repair/chilliwack.tsx
	// Rule: phone-href (literal) -> {{phoneHref}}
	// Policy: partial
}
