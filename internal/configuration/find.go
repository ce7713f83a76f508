package configuration

import (
	"path/filepath"

	"bvm/internal/bvmenv"
)

// FindConfigFile walks the current directory and then each ancestor,
// preferring bvm.json over .bvm.json within any one directory, and returns
// the first match's absolute path. Returns "", false if none is found.
func FindConfigFile(env bvmenv.Environment) (string, bool) {
	dir, err := env.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if path, ok := configFileInDir(env, dir); ok {
			return path, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func configFileInDir(env bvmenv.Environment, dir string) (string, bool) {
	primary := filepath.Join(dir, ConfigFileName)
	if env.PathExists(primary) {
		return primary, true
	}
	hidden := filepath.Join(dir, HiddenConfigFileName)
	if env.PathExists(hidden) {
		return hidden, true
	}
	return "", false
}
