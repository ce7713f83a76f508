package registry

import "testing"

const sampleRegistryFile = `{
  "schemaVersion": 1,
  "binaries": [
    {
      "name": "terraform",
      "owner": "hashicorp",
      "description": "Infrastructure as code",
      "versions": [
        {"version": "1.2.3", "path": "https://example.com/terraform-1.2.3.json", "checksum": "deadbeef"}
      ]
    }
  ]
}`

func TestReadRegistryFileParsesBinaries(t *testing.T) {
	file, err := ReadRegistryFile([]byte(sampleRegistryFile))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(file.Binaries) != 1 {
		t.Fatalf("expected 1 binary, got %d", len(file.Binaries))
	}
	name, err := file.Binaries[0].BinaryName()
	if err != nil {
		t.Fatalf("BinaryName: %v", err)
	}
	if name.Owner != "hashicorp" || name.Name != "terraform" {
		t.Fatalf("unexpected binary name %+v", name)
	}
}

func TestReadRegistryFileRejectsWrongSchemaVersion(t *testing.T) {
	data := `{"schemaVersion": 99, "binaries": []}`
	if _, err := ReadRegistryFile([]byte(data)); err == nil {
		t.Fatal("expected an error for an unsupported schema version")
	}
}

func TestReadRegistryFileRejectsSlashInName(t *testing.T) {
	data := `{"schemaVersion": 1, "binaries": [{"name": "a/b", "owner": "x", "versions": []}]}`
	if _, err := ReadRegistryFile([]byte(data)); err == nil {
		t.Fatal("expected an error for a '/' in a binary name")
	}
}

func TestBinariesWithName(t *testing.T) {
	file, err := ReadRegistryFile([]byte(sampleRegistryFile))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := file.BinariesWithName("hashicorp", "terraform"); len(got) != 1 {
		t.Fatal("expected to find hashicorp/terraform")
	}
	if got := file.BinariesWithName("other", "terraform"); len(got) != 0 {
		t.Fatal("expected owner mismatch to fail")
	}
	if got := file.BinariesWithName("", "terraform"); len(got) != 1 {
		t.Fatal("expected an empty owner to match any owner")
	}
}

func TestBinariesWithNameReturnsAllOwners(t *testing.T) {
	data := `{
	  "schemaVersion": 1,
	  "binaries": [
	    {"name": "ts", "owner": "dsherret", "description": "", "versions": []},
	    {"name": "ts", "owner": "microsoft", "description": "", "versions": []}
	  ]
	}`
	file, err := ReadRegistryFile([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := file.BinariesWithName("", "ts")
	if len(got) != 2 {
		t.Fatalf("expected both owners, got %d", len(got))
	}
}
