package plugins

import (
	"testing"

	"bvm/internal/bvmenv"
	"bvm/internal/bvmtypes"
)

func itemFor(t *testing.T, owner, name, version string, commands ...string) (BinaryIdentifier, BinaryManifestItem) {
	t.Helper()
	bn := bvmtypes.BinaryName{Owner: owner, Name: name}
	v := mustVersion(t, version)
	cmds := make([]Command, len(commands))
	for i, c := range commands {
		cmds[i] = Command{Name: bvmtypes.CommandName(c), Path: c}
	}
	item := BinaryManifestItem{Name: bn, Version: v, Commands: cmds}
	return item.GetIdentifier(), item
}

func TestUseGlobalVersionSelectsEveryCommand(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	m := NewManifest()
	id, item := itemFor(t, "hashicorp", "terraform", "1.0.0", "terraform")
	m.Binaries[id] = item

	mut := NewPluginsMut(env, m, true)
	if err := mut.UseGlobalVersion(item, false); err != nil {
		t.Fatalf("UseGlobalVersion: %v", err)
	}

	loc, ok := m.GetGlobalBinaryLocation("terraform")
	if !ok {
		t.Fatal("expected a global selection for terraform")
	}
	gotID, isBvm := loc.ToIdentifierOption()
	if !isBvm || gotID != id {
		t.Fatalf("expected global selection %q, got %q (isBvm=%v)", id, gotID, isBvm)
	}
	if !m.PendingEnvChanges.Added[id] {
		t.Fatal("expected the newly selected identifier to be marked for environment addition")
	}
}

func TestUseGlobalVersionDisplacesPriorSelection(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	m := NewManifest()
	oldID, oldItem := itemFor(t, "hashicorp", "terraform", "1.0.0", "terraform")
	newID, newItem := itemFor(t, "hashicorp", "terraform", "1.2.0", "terraform")
	m.Binaries[oldID] = oldItem
	m.Binaries[newID] = newItem

	mut := NewPluginsMut(env, m, true)
	if err := mut.UseGlobalVersion(oldItem, false); err != nil {
		t.Fatalf("UseGlobalVersion (old): %v", err)
	}
	if err := mut.UseGlobalVersion(newItem, false); err != nil {
		t.Fatalf("UseGlobalVersion (new): %v", err)
	}

	if m.IsGlobalVersion(oldID) {
		t.Fatal("expected the old identifier to lose its global selection")
	}
	if !m.PendingEnvChanges.Removed[oldID] {
		t.Fatal("expected the displaced identifier to be marked for environment removal")
	}
	if !m.PendingEnvChanges.Added[newID] {
		t.Fatal("expected the new identifier to be marked for environment addition")
	}
}

func TestUseGlobalVersionToPathMarksForRemoval(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	m := NewManifest()
	id, item := itemFor(t, "hashicorp", "terraform", "1.0.0", "terraform")
	m.Binaries[id] = item

	mut := NewPluginsMut(env, m, true)
	if err := mut.UseGlobalVersion(item, true); err != nil {
		t.Fatalf("UseGlobalVersion: %v", err)
	}

	loc, ok := m.GetGlobalBinaryLocation("terraform")
	if !ok || !loc.IsPath {
		t.Fatalf("expected a Path global selection, got %+v (ok=%v)", loc, ok)
	}
	if !m.PendingEnvChanges.Removed[id] {
		t.Fatal("expected a path selection to mark the identifier for environment removal")
	}
}

func TestSetGlobalBinaryIfNotSetNoOpsWhenAlreadySet(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	m := NewManifest()
	firstID, firstItem := itemFor(t, "hashicorp", "terraform", "1.0.0", "terraform")
	secondID, _ := itemFor(t, "other", "terraform", "1.0.0", "terraform")
	m.Binaries[firstID] = firstItem

	mut := NewPluginsMut(env, m, true)
	mut.SetGlobalBinaryIfNotSet("terraform", firstID)
	mut.SetGlobalBinaryIfNotSet("terraform", secondID)

	loc, _ := m.GetGlobalBinaryLocation("terraform")
	gotID, _ := loc.ToIdentifierOption()
	if gotID != firstID {
		t.Fatalf("expected the first selection to stick, got %q", gotID)
	}
}

func TestRemoveBinaryFallsBackToNextLatest(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	m := NewManifest()
	oldID, oldItem := itemFor(t, "hashicorp", "terraform", "1.0.0", "terraform")
	newID, newItem := itemFor(t, "hashicorp", "terraform", "1.2.0", "terraform")
	m.Binaries[oldID] = oldItem
	m.Binaries[newID] = newItem

	mut := NewPluginsMut(env, m, true)
	if err := mut.UseGlobalVersion(newItem, false); err != nil {
		t.Fatalf("UseGlobalVersion: %v", err)
	}
	if err := mut.RemoveBinary(newID); err != nil {
		t.Fatalf("RemoveBinary: %v", err)
	}

	loc, ok := m.GetGlobalBinaryLocation("terraform")
	if !ok {
		t.Fatal("expected terraform to still have a global selection")
	}
	gotID, isBvm := loc.ToIdentifierOption()
	if !isBvm || gotID != oldID {
		t.Fatalf("expected fallback to the remaining 1.0.0, got %q (isBvm=%v)", gotID, isBvm)
	}
	if m.HasBinary(newID) {
		t.Fatal("expected the removed binary to be gone from the manifest")
	}
}

func TestRemoveBinaryFallsBackToPathWhenNoneRemain(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	m := NewManifest()
	id, item := itemFor(t, "hashicorp", "terraform", "1.0.0", "terraform")
	m.Binaries[id] = item

	mut := NewPluginsMut(env, m, true)
	if err := mut.UseGlobalVersion(item, false); err != nil {
		t.Fatalf("UseGlobalVersion: %v", err)
	}
	if err := mut.RemoveBinary(id); err != nil {
		t.Fatalf("RemoveBinary: %v", err)
	}

	loc, ok := m.GetGlobalBinaryLocation("terraform")
	if !ok || !loc.IsPath {
		t.Fatalf("expected a Path fallback, got %+v (ok=%v)", loc, ok)
	}
}

func TestSaveRefusesWhenNotAllowed(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	mut := NewPluginsMut(env, NewManifest(), false)
	if err := mut.Save(); err == nil {
		t.Fatal("expected Save to refuse on a read-only PluginsMut")
	}
}
