package registry

import (
	"fmt"
	neturl "net/url"
	"strings"

	"bvm/internal/bvmenv"
	"bvm/internal/bvmtypes"
	"bvm/internal/checksumurl"
)

const registrySchemaVersion = 1

// RegistryFile is the document a registry URL resolves to: a catalog of
// versions for one or more binaries.
type RegistryFile struct {
	SchemaVersion int              `json:"schemaVersion"`
	Binaries      []RegistryBinary `json:"binaries"`
}

// RegistryBinary describes every known version of one owner/name pair.
type RegistryBinary struct {
	Name        string               `json:"name"`
	Owner       string                `json:"owner"`
	Description string               `json:"description"`
	Versions    []RegistryVersionInfo `json:"versions"`
}

// BinaryName returns the validated BinaryName this entry describes.
func (b RegistryBinary) BinaryName() (bvmtypes.BinaryName, error) {
	return bvmtypes.BinaryName{Owner: b.Owner, Name: b.Name}, verifyBinaryName(b.Owner, b.Name)
}

// RegistryVersionInfo is one version row: where to fetch its plugin file and
// the expected checksum of that plugin file.
type RegistryVersionInfo struct {
	Version  string `json:"version"`
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}

// URL resolves this row's plugin-file location against base, attaching its checksum.
func (v RegistryVersionInfo) URL(base *neturl.URL) (checksumurl.ChecksumUrl, error) {
	cu, err := checksumurl.Parse(v.Path, base)
	if err != nil {
		return checksumurl.ChecksumUrl{}, err
	}
	return cu.WithChecksum(v.Checksum), nil
}

func verifyBinaryName(owner, name string) error {
	if strings.Contains(owner, "/") || strings.Contains(name, "/") {
		return fmt.Errorf("registry binary name %q/%q must not contain '/'", owner, name)
	}
	return nil
}

// DownloadRegistryFile fetches and parses the document at url.
func DownloadRegistryFile(env bvmenv.Environment, url string) (*RegistryFile, error) {
	data, err := bvmenv.FetchURL(env, url, bvmenv.NopProgress)
	if err != nil {
		return nil, fmt.Errorf("downloading registry file %s: %w", url, err)
	}
	return ReadRegistryFile(data)
}

// ReadRegistryFile deserializes and validates a registry document's bytes.
func ReadRegistryFile(data []byte) (*RegistryFile, error) {
	var file RegistryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing registry file: %w", err)
	}
	if file.SchemaVersion != registrySchemaVersion {
		return nil, fmt.Errorf("unsupported registry schema version %d", file.SchemaVersion)
	}
	for _, b := range file.Binaries {
		if err := verifyBinaryName(b.Owner, b.Name); err != nil {
			return nil, err
		}
	}
	return &file, nil
}

// BinariesWithName returns every RegistryBinary matching name, constrained to
// owner when owner is non-empty. A bare name can match entries from more than
// one owner within a single file; the caller is responsible for the
// multi-owner disambiguation check (§4.6, "multi-owner disambiguation").
func (f *RegistryFile) BinariesWithName(owner, name string) []RegistryBinary {
	var out []RegistryBinary
	for _, b := range f.Binaries {
		if b.Name == name && (owner == "" || b.Owner == owner) {
			out = append(out, b)
		}
	}
	return out
}
