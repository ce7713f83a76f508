package plugins

import (
	"strings"
	"testing"

	"bvm/internal/bvmenv"
	"bvm/internal/bvmtypes"
)

func itemWithEnv(t *testing.T, owner, name, version string, vars map[string]string, paths []string) (BinaryIdentifier, BinaryManifestItem) {
	t.Helper()
	bn := bvmtypes.BinaryName{Owner: owner, Name: name}
	v := mustVersion(t, version)
	item := BinaryManifestItem{
		Name:        bn,
		Version:     v,
		Commands:    []Command{{Name: bvmtypes.CommandName(name), Path: name}},
		Environment: &BinaryEnvironment{Variables: vars, Paths: paths},
	}
	return item.GetIdentifier(), item
}

func TestGetPendingEnvChangeLinesEmitsAddLines(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	m := NewManifest()
	id, item := itemWithEnv(t, "dsherret", "ts", "1.0.0", map[string]string{"TS_HOME": "$BVM_CURRENT_BINARY_DIR"}, []string{"$BVM_CURRENT_BINARY_DIR/bin"})
	m.Binaries[id] = item
	m.PendingEnvChanges.MarkForAdding(id)

	lines, err := GetPendingEnvChangeLines(env, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(lines, "ADD\nTS_HOME\n") {
		t.Fatalf("expected an ADD line for TS_HOME, got:\n%s", lines)
	}
	if !strings.Contains(lines, "ADD\nPATH\n") {
		t.Fatalf("expected an ADD line for PATH, got:\n%s", lines)
	}
}

func TestGetPendingEnvChangeLinesEmitsRemoval(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	m := NewManifest()
	id, item := itemWithEnv(t, "dsherret", "ts", "1.0.0", map[string]string{"TS_HOME": "x"}, nil)
	m.Binaries[id] = item
	m.PendingEnvChanges.MarkForRemoval(id)

	lines, err := GetPendingEnvChangeLines(env, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(lines, "REMOVE\nTS_HOME\n") {
		t.Fatalf("expected a REMOVE line for TS_HOME, got:\n%s", lines)
	}
}

func TestGetGlobalPathLinesJoinsGloballySelectedPaths(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	m := NewManifest()
	id, item := itemWithEnv(t, "dsherret", "ts", "1.0.0", nil, []string{"$BVM_CURRENT_BINARY_DIR/bin"})
	m.Binaries[id] = item
	m.GlobalVersions["ts"] = BvmLocation(id)

	out, err := GetGlobalPathLines(env, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	binDir, err := InstalledDir(env, item.Name, item.Version)
	if err != nil {
		t.Fatalf("InstalledDir: %v", err)
	}
	if !strings.Contains(out, binDir+"/bin") {
		t.Fatalf("expected the resolved path in output, got %q", out)
	}
}

func TestGetGlobalEnvVarLinesOnlyIncludesSelected(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	m := NewManifest()
	selectedID, selectedItem := itemWithEnv(t, "dsherret", "ts", "1.0.0", map[string]string{"TS_HOME": "x"}, nil)
	otherID, otherItem := itemWithEnv(t, "dsherret", "other", "1.0.0", map[string]string{"OTHER_HOME": "y"}, nil)
	m.Binaries[selectedID] = selectedItem
	m.Binaries[otherID] = otherItem
	m.GlobalVersions["ts"] = BvmLocation(selectedID)

	out, err := GetGlobalEnvVarLines(env, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "TS_HOME") {
		t.Fatalf("expected TS_HOME in output, got %q", out)
	}
	if strings.Contains(out, "OTHER_HOME") {
		t.Fatalf("expected OTHER_HOME to be excluded (not globally selected), got %q", out)
	}
}
