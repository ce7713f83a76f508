package bvmenv

import (
	"fmt"
	"sort"
	"strings"
)

// TestEnvironment is an in-memory Environment fake for unit tests: no real
// filesystem, network, clock, or registry access. Construct with
// NewTestEnvironment and inspect Logs/Files/EnvVars/Downloads directly.
type TestEnvironment struct {
	Files    map[string][]byte
	EnvVars  map[string]string
	Path     []string
	Clock    uint64
	Verbose  bool
	Logs     []string
	ErrorLogs []string
	Downloads map[string][]byte // url -> bytes, pre-seeded by the test

	localUserDataDir string
	userDataDir      string
	homeDir          string

	persistentPath []string
	persistentVars map[string]string
}

// NewTestEnvironment builds an empty fake rooted at conventional test paths.
func NewTestEnvironment() *TestEnvironment {
	return &TestEnvironment{
		Files:            map[string][]byte{},
		EnvVars:          map[string]string{},
		Downloads:        map[string][]byte{},
		localUserDataDir: "/local-data",
		userDataDir:      "/data",
		homeDir:          "/home/user",
		persistentVars:   map[string]string{},
	}
}

// SeedDownload registers the bytes a later DownloadFile call for url should return.
func (e *TestEnvironment) SeedDownload(url string, data []byte) { e.Downloads[url] = data }

// WriteFileText is a convenience for seeding text files from tests.
func (e *TestEnvironment) WriteFileText(pathStr, text string) { e.Files[pathStr] = []byte(text) }

func (e *TestEnvironment) ReadFile(p string) ([]byte, error) {
	data, ok := e.Files[p]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", p)
	}
	return data, nil
}

func (e *TestEnvironment) WriteFile(p string, data []byte) error {
	e.Files[p] = data
	return nil
}

func (e *TestEnvironment) RemoveFile(p string) error {
	delete(e.Files, p)
	return nil
}

func (e *TestEnvironment) RemoveDirAll(p string) error {
	prefix := strings.TrimSuffix(p, "/") + "/"
	for k := range e.Files {
		if k == p || strings.HasPrefix(k, prefix) {
			delete(e.Files, k)
		}
	}
	return nil
}

func (e *TestEnvironment) Mkdir(string) error    { return nil }
func (e *TestEnvironment) MkdirAll(string) error { return nil }

func (e *TestEnvironment) PathExists(p string) bool {
	if _, ok := e.Files[p]; ok {
		return true
	}
	prefix := strings.TrimSuffix(p, "/") + "/"
	for k := range e.Files {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

func (e *TestEnvironment) IsDirEmpty(p string) (bool, error) {
	prefix := strings.TrimSuffix(p, "/") + "/"
	for k := range e.Files {
		if strings.HasPrefix(k, prefix) {
			return false, nil
		}
	}
	return true, nil
}

func (e *TestEnvironment) Rename(oldPath, newPath string) error {
	data, ok := e.Files[oldPath]
	if !ok {
		return fmt.Errorf("file not found: %s", oldPath)
	}
	delete(e.Files, oldPath)
	e.Files[newPath] = data
	return nil
}

func (e *TestEnvironment) Chmod(string, bool) error { return nil }

func (e *TestEnvironment) Getwd() (string, error) { return "/project", nil }

func (e *TestEnvironment) ReadDir(p string) ([]string, error) {
	prefix := strings.TrimSuffix(p, "/") + "/"
	seen := map[string]bool{}
	for k := range e.Files {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok || rest == "" {
			continue
		}
		if idx := strings.Index(rest, "/"); idx >= 0 {
			rest = rest[:idx]
		}
		seen[rest] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (e *TestEnvironment) LocalUserDataDir() (string, error) { return e.localUserDataDir, nil }
func (e *TestEnvironment) UserDataDir() (string, error)      { return e.userDataDir, nil }
func (e *TestEnvironment) HomeDir() (string, error)          { return e.homeDir, nil }

func (e *TestEnvironment) NowSeconds() uint64 { return e.Clock }

func (e *TestEnvironment) GetEnvVar(name string) (string, bool) {
	v, ok := e.EnvVars[name]
	return v, ok
}

func (e *TestEnvironment) SetEnvVar(name, value string) error {
	e.EnvVars[name] = value
	return nil
}

func (e *TestEnvironment) GetEnvPath() string { return strings.Join(e.Path, ":") }

func (e *TestEnvironment) PathSeparator() string { return ":" }

func (e *TestEnvironment) RunShellCommand(dir, command string) error {
	e.Logs = append(e.Logs, fmt.Sprintf("run: %s (in %s)", command, dir))
	return nil
}

func (e *TestEnvironment) DownloadFile(url string, progress ProgressReporter) ([]byte, error) {
	data, ok := e.Downloads[url]
	if !ok {
		return nil, fmt.Errorf("no seeded download for url: %s", url)
	}
	if progress != nil {
		progress.UpdateSize(int64(len(data)))
		progress.Finish()
	}
	return data, nil
}

func (e *TestEnvironment) IsRealNetwork() bool { return false }

func (e *TestEnvironment) Log(line string) { e.Logs = append(e.Logs, line) }

func (e *TestEnvironment) LogError(line string) { e.ErrorLogs = append(e.ErrorLogs, line) }

func (e *TestEnvironment) LogAction(message string, totalSize int64, fn func(progress ProgressReporter) error) error {
	e.Logs = append(e.Logs, message)
	return fn(NopProgress)
}

func (e *TestEnvironment) IsVerbose() bool { return e.Verbose }

func (e *TestEnvironment) EnsureSystemPath(dir string) error {
	for _, existing := range e.persistentPath {
		if existing == dir {
			return nil
		}
	}
	e.persistentPath = append(e.persistentPath, dir)
	return nil
}

func (e *TestEnvironment) EnsureSystemPathHead(dir string) error {
	filtered := []string{dir}
	for _, existing := range e.persistentPath {
		if existing != dir {
			filtered = append(filtered, existing)
		}
	}
	e.persistentPath = filtered
	return nil
}

func (e *TestEnvironment) RemoveSystemPath(dir string) error {
	filtered := e.persistentPath[:0]
	for _, existing := range e.persistentPath {
		if existing != dir {
			filtered = append(filtered, existing)
		}
	}
	e.persistentPath = filtered
	return nil
}

// PersistentPath returns a copy of the simulated Windows-registry PATH
// entries, in their stored order.
func (e *TestEnvironment) PersistentPath() []string {
	out := append([]string(nil), e.persistentPath...)
	return out
}

func (e *TestEnvironment) SetPersistentEnvVar(name, value string) error {
	e.persistentVars[name] = value
	return nil
}

func (e *TestEnvironment) RemovePersistentEnvVar(name string) error {
	delete(e.persistentVars, name)
	return nil
}

// PersistentEnvVars returns a copy of the simulated persistent env vars for assertions.
func (e *TestEnvironment) PersistentEnvVars() map[string]string {
	out := make(map[string]string, len(e.persistentVars))
	for k, v := range e.persistentVars {
		out[k] = v
	}
	return out
}

// FileNames returns a sorted list of every path currently written, for
// assertions that want deterministic ordering.
func (e *TestEnvironment) FileNames() []string {
	names := make([]string, 0, len(e.Files))
	for k := range e.Files {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
