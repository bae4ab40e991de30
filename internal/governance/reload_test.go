package governance

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPolicyDirParsesYAMLBundles(t *testing.T) {
	dir := t.TempDir()
	bundle := `
policies:
  - id: p1
    name: "No forbidden deps"
    layer: project
    mode: mandatory
    rules:
      - id: r1
        ruletype: allow
        target: dependency
        operator: must_exist
        severity: error
        message: "dependencies must be declared"
`
	if err := os.WriteFile(filepath.Join(dir, "bundle.yaml"), []byte(bundle), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	policies, err := LoadPolicyDir(dir)
	if err != nil {
		t.Fatalf("LoadPolicyDir: %v", err)
	}
	if len(policies) != 1 || policies[0].ID != "p1" {
		t.Fatalf("expected one policy p1, got %+v", policies)
	}
	if len(policies[0].Rules) != 1 || policies[0].Rules[0].ID != "r1" {
		t.Fatalf("expected rule r1, got %+v", policies[0].Rules)
	}
}

func TestLoadPolicyDirMissingDirReturnsEmpty(t *testing.T) {
	policies, err := LoadPolicyDir(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("expected no error for missing dir, got %v", err)
	}
	if len(policies) != 0 {
		t.Fatalf("expected no policies, got %+v", policies)
	}
}
