// Package configuration implements the project config file (C8): locating
// bvm.json/.bvm.json by walking ancestor directories, reading its
// JSON-with-comments body, and editing it in place while preserving the
// author's indentation and newline style (§4.7, §9 "JSON-edit fidelity").
package configuration

import (
	"bvm/internal/bvmtypes"
	"bvm/internal/checksumurl"
)

// ConfigFileName is preferred over HiddenConfigFileName within a directory.
const ConfigFileName = "bvm.json"

// HiddenConfigFileName is used when ConfigFileName is absent.
const HiddenConfigFileName = ".bvm.json"

// ConfigFileBinary is one entry of the "binaries" array.
type ConfigFileBinary struct {
	URL      checksumurl.ChecksumUrl
	Version  *bvmtypes.VersionSelector // nil means "no constraint"
	// raw fields retained for re-emitting this entry during an "add" edit
	RawPath     string
	RawChecksum string
	RawVersion  string
}

// ConfigFile is the parsed contents of a bvm.json/.bvm.json file.
type ConfigFile struct {
	Path          string // absolute path this was read from
	OnPreInstall  string
	OnPostInstall string
	Binaries      []ConfigFileBinary
}
