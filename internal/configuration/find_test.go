package configuration

import (
	"testing"

	"bvm/internal/bvmenv"
)

func TestFindConfigFilePrefersBvmJSONOverHidden(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	env.WriteFileText("/project/bvm.json", `{"binaries":[]}`)
	env.WriteFileText("/project/.bvm.json", `{"binaries":[]}`)

	path, ok := FindConfigFile(env)
	if !ok {
		t.Fatal("expected to find a config file")
	}
	if path != "/project/bvm.json" {
		t.Fatalf("expected /project/bvm.json, got %s", path)
	}
}

func TestFindConfigFileWalksAncestors(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	env.WriteFileText("/.bvm.json", `{"binaries":[]}`)

	path, ok := FindConfigFile(env)
	if !ok {
		t.Fatal("expected to find a config file")
	}
	if path != "/.bvm.json" {
		t.Fatalf("expected /.bvm.json, got %s", path)
	}
}

func TestFindConfigFileReturnsFalseWhenAbsent(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	if _, ok := FindConfigFile(env); ok {
		t.Fatal("expected no config file to be found")
	}
}
