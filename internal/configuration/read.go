package configuration

import (
	"fmt"
	"net/url"

	jsoniter "github.com/json-iterator/go"

	"bvm/internal/bvmtypes"
	"bvm/internal/checksumurl"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ReadConfigFile parses a bvm.json/.bvm.json document's text. base resolves
// any relative binary paths declared in the file (ordinarily the file's own
// parent directory, via checksumurl.FromDirectory).
func ReadConfigFile(text string, base *url.URL, path string) (*ConfigFile, error) {
	stripped := stripJSONComments(text)

	var root map[string]jsoniter.RawMessage
	if err := json.Unmarshal([]byte(stripped), &root); err != nil {
		return nil, fmt.Errorf("%s: root must be a JSON object: %w", path, err)
	}

	cfg := &ConfigFile{Path: path}

	if raw, ok := root["binaries"]; ok {
		var rawBinaries []jsoniter.RawMessage
		if err := json.Unmarshal(raw, &rawBinaries); err != nil {
			return nil, fmt.Errorf("%s: \"binaries\" must be an array: %w", path, err)
		}
		for i, rb := range rawBinaries {
			binary, err := parseConfigFileBinary(rb, base)
			if err != nil {
				return nil, fmt.Errorf("%s: binaries[%d]: %w", path, i, err)
			}
			cfg.Binaries = append(cfg.Binaries, binary)
		}
		delete(root, "binaries")
	} else {
		return nil, fmt.Errorf("%s: missing required \"binaries\" array", path)
	}

	if raw, ok := root["onPreInstall"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%s: \"onPreInstall\" must be a string: %w", path, err)
		}
		cfg.OnPreInstall = s
		delete(root, "onPreInstall")
	}
	if raw, ok := root["onPostInstall"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%s: \"onPostInstall\" must be a string: %w", path, err)
		}
		cfg.OnPostInstall = s
		delete(root, "onPostInstall")
	}

	for key := range root {
		return nil, fmt.Errorf("%s: unknown key %q", path, key)
	}

	return cfg, nil
}

func parseConfigFileBinary(raw jsoniter.RawMessage, base *url.URL) (ConfigFileBinary, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		cu, err := checksumurl.Parse(asString, base)
		if err != nil {
			return ConfigFileBinary{}, err
		}
		return ConfigFileBinary{URL: cu, RawPath: cu.UnresolvedPath, RawChecksum: cu.Checksum}, nil
	}

	var obj struct {
		Path     string `json:"path"`
		Checksum string `json:"checksum"`
		Version  string `json:"version"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ConfigFileBinary{}, fmt.Errorf("must be a string or an object with a \"path\" field: %w", err)
	}
	if obj.Path == "" {
		return ConfigFileBinary{}, fmt.Errorf("missing required \"path\" field")
	}
	cu, err := checksumurl.Parse(obj.Path, base)
	if err != nil {
		return ConfigFileBinary{}, err
	}
	if obj.Checksum != "" {
		cu = cu.WithChecksum(obj.Checksum)
	}
	binary := ConfigFileBinary{URL: cu, RawPath: obj.Path, RawChecksum: obj.Checksum, RawVersion: obj.Version}
	if obj.Version != "" {
		sel, err := bvmtypes.ParseVersionSelectorForConfig(obj.Version)
		if err != nil {
			return ConfigFileBinary{}, fmt.Errorf("invalid \"version\": %w", err)
		}
		binary.Version = &sel
	}
	return binary, nil
}

// stripJSONComments removes // line comments and /* */ block comments that
// fall outside string literals, leaving a strict-JSON document behind. This
// is BVM's entire JSONC dependency: no ecosystem crate for it appears
// anywhere in the corpus this was grounded on, and the grammar is simple
// enough that hand-rolling it does not sacrifice correctness.
func stripJSONComments(text string) string {
	out := make([]byte, 0, len(text))
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			out = append(out, c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
			out = append(out, c)
		case c == '/' && i+1 < len(text) && text[i+1] == '/':
			for i < len(text) && text[i] != '\n' {
				i++
			}
			if i < len(text) {
				out = append(out, '\n')
			}
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			i += 2
			for i+1 < len(text) && !(text[i] == '*' && text[i+1] == '/') {
				i++
			}
			i++
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
