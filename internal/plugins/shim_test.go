package plugins

import (
	"strings"
	"testing"

	"bvm/internal/bvmenv"
)

func TestRecreateShimsWritesOneShimPerCommand(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	m := NewManifest()
	id, item := itemFor(t, "hashicorp", "terraform", "1.0.0", "terraform")
	m.Binaries[id] = item

	if err := RecreateShims(env, m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	binDir, err := ShimDir(env)
	if err != nil {
		t.Fatalf("ShimDir: %v", err)
	}
	body, err := env.ReadFile(binDir + "/terraform")
	if err != nil {
		t.Fatalf("expected a shim file for terraform: %v", err)
	}
	if !strings.Contains(string(body), "bvm hidden resolve-command terraform") {
		t.Fatalf("expected the shim body to call resolve-command, got:\n%s", body)
	}
}

func TestRecreateShimsRemovesStaleShims(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	m := NewManifest()
	id, item := itemFor(t, "hashicorp", "terraform", "1.0.0", "terraform")
	m.Binaries[id] = item
	if err := RecreateShims(env, m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	delete(m.Binaries, id)
	if err := RecreateShims(env, m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	binDir, err := ShimDir(env)
	if err != nil {
		t.Fatalf("ShimDir: %v", err)
	}
	if env.PathExists(binDir + "/terraform") {
		t.Fatal("expected the stale terraform shim to be removed")
	}
}
