package plugins

import (
	"testing"

	"bvm/internal/bvmenv"
	"bvm/internal/bvmtypes"
	"bvm/internal/registry"
)

func addInstalled(m *PluginsManifest, t *testing.T, owner, name, version string) BinaryIdentifier {
	t.Helper()
	bn := bvmtypes.BinaryName{Owner: owner, Name: name}
	v := mustVersion(t, version)
	id := NewBinaryIdentifier(bn, v)
	m.Binaries[id] = BinaryManifestItem{Name: bn, Version: v}
	return id
}

func TestResolveInstalledPicksGreatestMatch(t *testing.T) {
	m := NewManifest()
	addInstalled(m, t, "hashicorp", "terraform", "1.0.0")
	addInstalled(m, t, "hashicorp", "terraform", "1.2.0")

	item, err := ResolveInstalled(m, bvmtypes.NameSelector{Name: "terraform"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Version.Text != "1.2.0" {
		t.Fatalf("expected 1.2.0, got %s", item.Version.Text)
	}
}

func TestResolveInstalledFiltersByVersionSelector(t *testing.T) {
	m := NewManifest()
	addInstalled(m, t, "hashicorp", "terraform", "1.0.0")
	addInstalled(m, t, "hashicorp", "terraform", "1.2.0")

	sel, err := bvmtypes.ParseVersionSelector("1.0")
	if err != nil {
		t.Fatalf("ParseVersionSelector: %v", err)
	}
	item, err := ResolveInstalled(m, bvmtypes.NameSelector{Name: "terraform"}, &sel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Version.Text != "1.0.0" {
		t.Fatalf("expected 1.0.0, got %s", item.Version.Text)
	}
}

func TestResolveInstalledRejectsAmbiguousOwner(t *testing.T) {
	m := NewManifest()
	addInstalled(m, t, "hashicorp", "terraform", "1.0.0")
	addInstalled(m, t, "other", "terraform", "1.0.0")

	if _, err := ResolveInstalled(m, bvmtypes.NameSelector{Name: "terraform"}, nil); err == nil {
		t.Fatal("expected an ambiguous-owner error")
	}
}

func TestResolveInstalledReturnsNoInstalledBinaryError(t *testing.T) {
	m := NewManifest()
	if _, err := ResolveInstalled(m, bvmtypes.NameSelector{Name: "terraform"}, nil); err == nil {
		t.Fatal("expected an error for a name with no installed binaries")
	}
}

const registryFileTemplate = `{
  "schemaVersion": 1,
  "binaries": [
    {
      "name": "terraform",
      "owner": "hashicorp",
      "description": "",
      "versions": [
        {"version": "1.0.0", "path": "terraform-1.0.0.json", "checksum": "aa"},
        {"version": "1.2.0", "path": "terraform-1.2.0.json", "checksum": "bb"},
        {"version": "2.0.0-beta.1", "path": "terraform-2.0.0-beta.1.json", "checksum": "cc"}
      ]
    }
  ]
}`

func setupRegistryEnv(t *testing.T) (*bvmenv.TestEnvironment, *registry.Registry) {
	t.Helper()
	env := bvmenv.NewTestEnvironment()
	env.SeedDownload("https://example.com/registry.json", []byte(registryFileTemplate))
	reg := &registry.Registry{NameToURLs: map[string][]string{}}
	reg.AddURL("terraform", "https://example.com/registry.json")
	return env, reg
}

func TestResolveAcrossRegistriesPicksGreatestRelease(t *testing.T) {
	env, reg := setupRegistryEnv(t)
	name, cu, err := ResolveAcrossRegistries(env, reg, bvmtypes.NameSelector{Name: "terraform"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name.Owner != "hashicorp" || name.Name != "terraform" {
		t.Fatalf("unexpected name %+v", name)
	}
	if cu.Checksum != "bb" {
		t.Fatalf("expected the greatest release's checksum, got %q", cu.Checksum)
	}
}

func TestResolveAcrossRegistriesFallsBackToPrerelease(t *testing.T) {
	data := `{
  "schemaVersion": 1,
  "binaries": [
    {"name": "terraform", "owner": "hashicorp", "versions": [
      {"version": "2.0.0-beta.1", "path": "b.json", "checksum": "cc"}
    ]}
  ]
}`
	env := bvmenv.NewTestEnvironment()
	env.SeedDownload("https://example.com/registry.json", []byte(data))
	reg := &registry.Registry{NameToURLs: map[string][]string{}}
	reg.AddURL("terraform", "https://example.com/registry.json")

	_, cu, err := ResolveAcrossRegistries(env, reg, bvmtypes.NameSelector{Name: "terraform"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cu.Checksum != "cc" {
		t.Fatalf("expected the only (prerelease) candidate, got %q", cu.Checksum)
	}
}

func TestResolveAcrossRegistriesHonorsVersionSelector(t *testing.T) {
	env, reg := setupRegistryEnv(t)
	sel, err := bvmtypes.ParseVersionSelector("1.0")
	if err != nil {
		t.Fatalf("ParseVersionSelector: %v", err)
	}
	_, cu, err := ResolveAcrossRegistries(env, reg, bvmtypes.NameSelector{Name: "terraform"}, &sel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cu.Checksum != "aa" {
		t.Fatalf("expected version 1.0.0's checksum, got %q", cu.Checksum)
	}
}

func TestResolveAcrossRegistriesErrorsWhenNoRegistryKnowsName(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	reg := &registry.Registry{NameToURLs: map[string][]string{}}
	if _, _, err := ResolveAcrossRegistries(env, reg, bvmtypes.NameSelector{Name: "terraform"}, nil); err == nil {
		t.Fatal("expected an error when no registry URL is associated with the name")
	}
}

func TestResolveAcrossRegistriesRejectsAmbiguousOwner(t *testing.T) {
	dataA := `{
  "schemaVersion": 1,
  "binaries": [
    {"name": "ts", "owner": "dsherret", "versions": [
      {"version": "1.0.0", "path": "a.json", "checksum": "aa"}
    ]}
  ]
}`
	dataB := `{
  "schemaVersion": 1,
  "binaries": [
    {"name": "ts", "owner": "microsoft", "versions": [
      {"version": "1.0.0", "path": "b.json", "checksum": "bb"}
    ]}
  ]
}`
	env := bvmenv.NewTestEnvironment()
	env.SeedDownload("https://example.com/a.json", []byte(dataA))
	env.SeedDownload("https://example.com/b.json", []byte(dataB))
	reg := &registry.Registry{NameToURLs: map[string][]string{}}
	reg.AddURL("ts", "https://example.com/a.json")
	reg.AddURL("ts", "https://example.com/b.json")

	if _, _, err := ResolveAcrossRegistries(env, reg, bvmtypes.NameSelector{Name: "ts"}, nil); err == nil {
		t.Fatal("expected an ambiguous-owner error when registries disagree on owner")
	}
}

func TestResolveAcrossRegistriesHonorsExplicitOwner(t *testing.T) {
	dataA := `{
  "schemaVersion": 1,
  "binaries": [
    {"name": "ts", "owner": "dsherret", "versions": [
      {"version": "1.0.0", "path": "a.json", "checksum": "aa"}
    ]}
  ]
}`
	dataB := `{
  "schemaVersion": 1,
  "binaries": [
    {"name": "ts", "owner": "microsoft", "versions": [
      {"version": "1.0.0", "path": "b.json", "checksum": "bb"}
    ]}
  ]
}`
	env := bvmenv.NewTestEnvironment()
	env.SeedDownload("https://example.com/a.json", []byte(dataA))
	env.SeedDownload("https://example.com/b.json", []byte(dataB))
	reg := &registry.Registry{NameToURLs: map[string][]string{}}
	reg.AddURL("ts", "https://example.com/a.json")
	reg.AddURL("ts", "https://example.com/b.json")

	name, cu, err := ResolveAcrossRegistries(env, reg, bvmtypes.NameSelector{Owner: "microsoft", Name: "ts"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name.Owner != "microsoft" {
		t.Fatalf("expected microsoft, got %+v", name)
	}
	if cu.Checksum != "bb" {
		t.Fatalf("expected microsoft's checksum, got %q", cu.Checksum)
	}
}
