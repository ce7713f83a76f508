package plugins

import (
	"testing"

	"bvm/internal/bvmenv"
	"bvm/internal/bvmtypes"
)

func mustVersion(t *testing.T, text string) bvmtypes.Version {
	t.Helper()
	v, err := bvmtypes.ParseVersion(text)
	if err != nil {
		t.Fatalf("ParseVersion(%q): %v", text, err)
	}
	return v
}

func TestBinaryIdentifierRoundTrips(t *testing.T) {
	name := bvmtypes.BinaryName{Owner: "hashicorp", Name: "terraform"}
	version := mustVersion(t, "1.2.3")
	id := NewBinaryIdentifier(name, version)

	if got := id.BinaryName(); got != name {
		t.Fatalf("BinaryName() = %+v, want %+v", got, name)
	}
	gotVersion, err := id.Version()
	if err != nil {
		t.Fatalf("Version(): %v", err)
	}
	if gotVersion.Text != version.Text {
		t.Fatalf("Version() = %q, want %q", gotVersion.Text, version.Text)
	}
}

func TestGetResolvedEnvPathsExpandsToken(t *testing.T) {
	item := BinaryManifestItem{
		Environment: &BinaryEnvironment{
			Paths: []string{"$BVM_CURRENT_BINARY_DIR/bin", "/already/absolute"},
		},
	}
	paths := item.GetResolvedEnvPaths("/install/dir")
	if paths[0] != "/install/dir/bin" {
		t.Errorf("expected token expansion, got %q", paths[0])
	}
	if paths[1] != "/already/absolute" {
		t.Errorf("expected absolute path untouched, got %q", paths[1])
	}
}

func TestGlobalBinaryLocationMarshalUnmarshal(t *testing.T) {
	path := PathLocation()
	data, err := path.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(data) != "path" {
		t.Fatalf("expected %q, got %q", "path", data)
	}
	var roundTripped GlobalBinaryLocation
	if err := roundTripped.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if !roundTripped.IsPath {
		t.Fatal("expected IsPath to round-trip true")
	}

	id := NewBinaryIdentifier(bvmtypes.BinaryName{Name: "jq"}, mustVersion(t, "1.0.0"))
	bvm := BvmLocation(id)
	data, err = bvm.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var roundTrippedBvm GlobalBinaryLocation
	if err := roundTrippedBvm.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	gotID, ok := roundTrippedBvm.ToIdentifierOption()
	if !ok || gotID != id {
		t.Fatalf("expected identifier %q to round-trip, got %q (ok=%v)", id, gotID, ok)
	}
}

func TestPendingEnvironmentChangesMarkForRemovalClearsAdded(t *testing.T) {
	p := newPendingEnvironmentChanges()
	id := NewBinaryIdentifier(bvmtypes.BinaryName{Name: "jq"}, mustVersion(t, "1.0.0"))
	p.MarkForAdding(id)
	p.MarkForRemoval(id)

	if p.Added[id] {
		t.Fatal("expected MarkForRemoval to clear a pending add")
	}
	if !p.Removed[id] {
		t.Fatal("expected id to be marked removed")
	}
}

func TestLoadManifestReturnsEmptyWhenMissing(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	m, err := LoadManifest(env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Binaries) != 0 {
		t.Fatalf("expected an empty manifest, got %+v", m.Binaries)
	}
}

func TestManifestCloneIsolatesGlobalVersionsAndPending(t *testing.T) {
	m := NewManifest()
	id := NewBinaryIdentifier(bvmtypes.BinaryName{Name: "jq"}, mustVersion(t, "1.0.0"))
	m.Binaries[id] = BinaryManifestItem{Name: bvmtypes.BinaryName{Name: "jq"}, Version: mustVersion(t, "1.0.0")}
	m.GlobalVersions["jq"] = BvmLocation(id)

	clone := m.Clone()
	clone.GlobalVersions["jq"] = PathLocation()
	clone.PendingEnvChanges.MarkForAdding(id)

	if loc := m.GlobalVersions["jq"]; loc.IsPath {
		t.Fatal("expected mutating the clone's GlobalVersions not to affect the original manifest")
	}
	if m.PendingEnvChanges.Any() {
		t.Fatal("expected mutating the clone's pending changes not to affect the original manifest")
	}
	if !clone.HasBinary(id) {
		t.Fatal("expected the clone to share installed binaries with the original")
	}
}

func TestGetLatestBinaryWithNamePicksGreatestVersion(t *testing.T) {
	m := NewManifest()
	older := NewBinaryIdentifier(bvmtypes.BinaryName{Name: "jq"}, mustVersion(t, "1.0.0"))
	newer := NewBinaryIdentifier(bvmtypes.BinaryName{Name: "jq"}, mustVersion(t, "1.5.0"))
	m.Binaries[older] = BinaryManifestItem{Name: bvmtypes.BinaryName{Name: "jq"}, Version: mustVersion(t, "1.0.0")}
	m.Binaries[newer] = BinaryManifestItem{Name: bvmtypes.BinaryName{Name: "jq"}, Version: mustVersion(t, "1.5.0")}

	latest, ok := m.GetLatestBinaryWithName(bvmtypes.NameSelector{Name: "jq"})
	if !ok {
		t.Fatal("expected to find a match")
	}
	if latest.Version.Text != "1.5.0" {
		t.Fatalf("expected 1.5.0, got %s", latest.Version.Text)
	}
}

func TestBinaryNameHasSameOwner(t *testing.T) {
	m := NewManifest()
	a := NewBinaryIdentifier(bvmtypes.BinaryName{Owner: "hashicorp", Name: "terraform"}, mustVersion(t, "1.0.0"))
	m.Binaries[a] = BinaryManifestItem{Name: bvmtypes.BinaryName{Owner: "hashicorp", Name: "terraform"}, Version: mustVersion(t, "1.0.0")}

	owner, ok := m.BinaryNameHasSameOwner("terraform")
	if !ok || owner != "hashicorp" {
		t.Fatalf("expected a single owner %q, got %q (ok=%v)", "hashicorp", owner, ok)
	}

	b := NewBinaryIdentifier(bvmtypes.BinaryName{Owner: "other", Name: "terraform"}, mustVersion(t, "2.0.0"))
	m.Binaries[b] = BinaryManifestItem{Name: bvmtypes.BinaryName{Owner: "other", Name: "terraform"}, Version: mustVersion(t, "2.0.0")}

	if _, ok := m.BinaryNameHasSameOwner("terraform"); ok {
		t.Fatal("expected ambiguous ownership once a second owner appears")
	}
}
