package configuration

import (
	"net/url"
	"testing"
)

func mustBase(t *testing.T) *url.URL {
	t.Helper()
	base, err := url.Parse("file:///project/")
	if err != nil {
		t.Fatalf("bad base url: %v", err)
	}
	return base
}

func TestReadConfigFileParsesStringAndObjectBinaries(t *testing.T) {
	text := `{
  // a comment
  "binaries": [
    "http://h/a.json",
    { "path": "http://h/b.json", "checksum": "deadbeef", "version": "1.2" }
  ],
  "onPreInstall": "echo hi"
}`
	cfg, err := ReadConfigFile(text, mustBase(t), "/project/bvm.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Binaries) != 2 {
		t.Fatalf("expected 2 binaries, got %d", len(cfg.Binaries))
	}
	if cfg.OnPreInstall != "echo hi" {
		t.Fatalf("expected onPreInstall to be read, got %q", cfg.OnPreInstall)
	}
	if cfg.Binaries[1].Version == nil {
		t.Fatal("expected a version selector on the second binary")
	}
}

func TestReadConfigFileRejectsUnknownKey(t *testing.T) {
	text := `{"binaries": [], "bogus": true}`
	_, err := ReadConfigFile(text, mustBase(t), "/project/bvm.json")
	if err == nil {
		t.Fatal("expected an error for an unknown root key")
	}
}

func TestReadConfigFileRequiresBinariesArray(t *testing.T) {
	text := `{"onPreInstall": "echo hi"}`
	_, err := ReadConfigFile(text, mustBase(t), "/project/bvm.json")
	if err == nil {
		t.Fatal("expected an error for a missing binaries array")
	}
}
