package plugins

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"runtime"

	"bvm/internal/bvmenv"
	"bvm/internal/bvmtypes"
	"bvm/internal/checksumurl"
)

const pluginFileSchemaVersion = 1

// PlatformInfo is the per-OS installation recipe inside a plugin file.
type PlatformInfo struct {
	Path         string    `json:"path"`
	Checksum     string    `json:"checksum"`
	Type         string    `json:"type"` // "zip", "tar.gz", "binary"
	Commands     []Command `json:"commands"`
	PreInstall   string    `json:"preInstall,omitempty"`
	PostInstall  string    `json:"postInstall,omitempty"`
	Environment  *BinaryEnvironment `json:"environment,omitempty"`
	OutputDir    string    `json:"outputDir,omitempty"`
}

// SerializedPluginFile is the on-the-wire shape of a plugin description.
type SerializedPluginFile struct {
	SchemaVersion int           `json:"schemaVersion"`
	Owner         string        `json:"owner"`
	Name          string        `json:"name"`
	Version       string        `json:"version"`
	Description   string        `json:"description"`
	LinuxX8664    *PlatformInfo `json:"linux-x86_64,omitempty"`
	DarwinX8664   *PlatformInfo `json:"darwin-x86_64,omitempty"`
	WindowsX8664  *PlatformInfo `json:"windows-x86_64,omitempty"`
}

// PluginFile pairs the deserialized document with the URL/checksum it was fetched with.
type PluginFile struct {
	URL      checksumurl.ChecksumUrl
	File     SerializedPluginFile
}

// currentPlatformKey matches the plugin file's OS-keyed block to this process's GOOS.
func currentPlatformKey() string {
	switch runtime.GOOS {
	case "linux":
		return "linux-x86_64"
	case "darwin":
		return "darwin-x86_64"
	case "windows":
		return "windows-x86_64"
	default:
		return ""
	}
}

// Platform returns the PlatformInfo block matching the current OS, or an
// UnsupportedPlatform error if the plugin file declares no such block.
func (f SerializedPluginFile) Platform() (PlatformInfo, error) {
	var info *PlatformInfo
	switch currentPlatformKey() {
	case "linux-x86_64":
		info = f.LinuxX8664
	case "darwin-x86_64":
		info = f.DarwinX8664
	case "windows-x86_64":
		info = f.WindowsX8664
	}
	if info == nil {
		return PlatformInfo{}, fmt.Errorf("plugin %s/%s %s has no installation recipe for %s", f.Owner, f.Name, f.Version, runtime.GOOS)
	}
	return *info, nil
}

// BinaryName validates and returns the plugin's declared name.
func (f SerializedPluginFile) BinaryName() (bvmtypes.BinaryName, error) {
	return bvmtypes.BinaryName{Owner: f.Owner, Name: f.Name}, (bvmtypes.BinaryName{Owner: f.Owner, Name: f.Name}).Validate()
}

// GetPluginFile fetches url's bytes, verifies or records its checksum, and
// deserializes the document (C4).
func GetPluginFile(env bvmenv.Environment, url checksumurl.ChecksumUrl) (PluginFile, error) {
	data, err := bvmenv.FetchURL(env, url.URL.String(), bvmenv.NopProgress)
	if err != nil {
		return PluginFile{}, fmt.Errorf("fetching plugin file %s: %w", url.URL, err)
	}
	actual := sha256Hex(data)
	if url.Checksum != "" {
		if !equalFoldHex(url.Checksum, actual) {
			return PluginFile{}, fmt.Errorf("checksum mismatch for %s: expected %s, got %s", url.URL, url.Checksum, actual)
		}
	} else {
		url = url.WithChecksum(actual)
	}
	parsed, err := ReadPluginFile(data)
	if err != nil {
		return PluginFile{}, err
	}
	return PluginFile{URL: url, File: parsed}, nil
}

// ReadPluginFile deserializes and validates a plugin document's bytes (the
// BinaryName rule set from §3, reconstructed here since the original
// read_plugin_file.rs body was not present in the retrieval pack).
func ReadPluginFile(data []byte) (SerializedPluginFile, error) {
	var file SerializedPluginFile
	if err := json.Unmarshal(data, &file); err != nil {
		return SerializedPluginFile{}, fmt.Errorf("parsing plugin file: %w", err)
	}
	if file.SchemaVersion != pluginFileSchemaVersion {
		return SerializedPluginFile{}, fmt.Errorf("unsupported plugin schema version %d", file.SchemaVersion)
	}
	if _, err := file.BinaryName(); err != nil {
		return SerializedPluginFile{}, err
	}
	return file, nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func equalFoldHex(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	ab, err1 := hex.DecodeString(a)
	bb, err2 := hex.DecodeString(b)
	if err1 != nil || err2 != nil {
		return a == b
	}
	return hex.EncodeToString(ab) == hex.EncodeToString(bb)
}
