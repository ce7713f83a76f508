package plugins

import (
	"strings"
	"testing"

	"bvm/internal/bvmenv"
)

func TestResolveCommandUsesGlobalSelectionWhenNoConfigMatches(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	m := NewManifest()
	id, item := itemFor(t, "hashicorp", "terraform", "1.0.0", "terraform")
	m.Binaries[id] = item
	m.GlobalVersions["terraform"] = BvmLocation(id)

	out, err := ResolveCommand(env, m, "terraform")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	binDir, err := InstalledDir(env, item.Name, item.Version)
	if err != nil {
		t.Fatalf("InstalledDir: %v", err)
	}
	if !strings.Contains(out, "EXEC\n"+binDir+"/terraform\n") {
		t.Fatalf("expected an EXEC line for the global selection, got:\n%s", out)
	}
}

func TestResolveCommandFallsBackToOSPath(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	env.Path = []string{"/usr/bin"}
	env.Files["/usr/bin/jq"] = []byte("binary")

	m := NewManifest()
	out, err := ResolveCommand(env, m, "jq")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "EXEC\n/usr/bin/jq\n") {
		t.Fatalf("expected an EXEC line for the OS PATH binary, got:\n%s", out)
	}
}

func TestResolveCommandErrorsWhenNothingResolves(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	m := NewManifest()
	if _, err := ResolveCommand(env, m, "nonexistent"); err == nil {
		t.Fatal("expected an error when a command resolves nowhere")
	}
}

func TestFindOnPathSkipsShimDirectory(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	shims, err := ShimDir(env)
	if err != nil {
		t.Fatalf("ShimDir: %v", err)
	}
	env.Path = []string{shims, "/usr/bin"}
	env.Files[shims+"/jq"] = []byte("shim")
	env.Files["/usr/bin/jq"] = []byte("real")

	got, ok := FindOnPath(env, "jq")
	if !ok {
		t.Fatal("expected to find jq on PATH")
	}
	if got != "/usr/bin/jq" {
		t.Fatalf("expected the shim directory to be skipped, got %q", got)
	}
}

func TestGetExecEnvChangesDoesNotMutateOriginalManifest(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	m := NewManifest()
	id, item := itemWithEnv(t, "dsherret", "ts", "1.0.0", map[string]string{"TS_HOME": "x"}, nil)
	m.Binaries[id] = item

	lines, err := GetExecEnvChanges(env, m, item, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(lines, "TS_HOME") {
		t.Fatalf("expected TS_HOME in the simulated output, got %q", lines)
	}
	if m.PendingEnvChanges.Any() {
		t.Fatal("expected the simulated use not to leak into the original manifest")
	}
	if _, ok := m.GetGlobalBinaryLocation("ts"); ok {
		t.Fatal("expected the simulated use not to persist a global selection")
	}
}

func TestGetExecCommandPathAndHasCommand(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	_, item := itemFor(t, "hashicorp", "terraform", "1.0.0", "terraform")

	if !HasCommand(item, "terraform") {
		t.Fatal("expected HasCommand to find terraform")
	}
	if HasCommand(item, "packer") {
		t.Fatal("expected HasCommand to reject an unrelated command")
	}

	path, err := GetExecCommandPath(env, item, "terraform")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	binDir, err := InstalledDir(env, item.Name, item.Version)
	if err != nil {
		t.Fatalf("InstalledDir: %v", err)
	}
	if path != binDir+"/terraform" {
		t.Fatalf("unexpected path %q", path)
	}

	if _, err := GetExecCommandPath(env, item, "nope"); err == nil {
		t.Fatal("expected an error for a command the binary doesn't expose")
	}
}
