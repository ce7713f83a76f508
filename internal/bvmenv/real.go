package bvmenv

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hashicorp/go-getter"
	"github.com/hashicorp/go-hclog"
	homedir "github.com/mitchellh/go-homedir"
)

const (
	localUserDataDirEnvVar = "BVM_LOCAL_USER_DATA_DIR"
	userDataDirEnvVar      = "BVM_USER_DATA_DIR"
	homeDirEnvVar          = "BVM_HOME_DIR"
)

// RealEnvironment is the OS-backed Environment implementation used by the
// bvm binary itself; every other environment in this codebase is a test fake.
type RealEnvironment struct {
	Logger  hclog.Logger
	Verbose bool
}

// NewRealEnvironment builds a RealEnvironment with a logger at the requested verbosity.
func NewRealEnvironment(verbose bool) *RealEnvironment {
	level := hclog.Info
	if verbose {
		level = hclog.Debug
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "bvm",
		Level: level,
	})
	return &RealEnvironment{Logger: logger, Verbose: verbose}
}

func (e *RealEnvironment) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func (e *RealEnvironment) WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (e *RealEnvironment) RemoveFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

func (e *RealEnvironment) RemoveDirAll(path string) error {
	if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing directory %s: %w", path, err)
	}
	return nil
}

func (e *RealEnvironment) Mkdir(path string) error {
	if err := os.Mkdir(path, 0755); err != nil && !os.IsExist(err) {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	return nil
}

func (e *RealEnvironment) MkdirAll(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	return nil
}

func (e *RealEnvironment) PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (e *RealEnvironment) IsDirEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, fmt.Errorf("reading directory %s: %w", path, err)
	}
	return len(entries) == 0, nil
}

func (e *RealEnvironment) Rename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", oldPath, newPath, err)
	}
	return nil
}

func (e *RealEnvironment) Chmod(path string, executable bool) error {
	mode := os.FileMode(0644)
	if executable {
		mode = 0755
	}
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	return nil
}

func (e *RealEnvironment) Getwd() (string, error) { return os.Getwd() }

func (e *RealEnvironment) ReadDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading directory %s: %w", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

func (e *RealEnvironment) LocalUserDataDir() (string, error) {
	if dir, ok := os.LookupEnv(localUserDataDirEnvVar); ok {
		return dir, nil
	}
	return e.platformLocalDataDir()
}

func (e *RealEnvironment) UserDataDir() (string, error) {
	if dir, ok := os.LookupEnv(userDataDirEnvVar); ok {
		return dir, nil
	}
	return e.platformDataDir()
}

func (e *RealEnvironment) HomeDir() (string, error) {
	if dir, ok := os.LookupEnv(homeDirEnvVar); ok {
		return dir, nil
	}
	return homedir.Dir()
}

func (e *RealEnvironment) platformDataDir() (string, error) {
	if runtime.GOOS == "windows" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(base, "bvm"), nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".bvm"), nil
}

func (e *RealEnvironment) platformLocalDataDir() (string, error) {
	if runtime.GOOS == "windows" {
		base, err := os.UserCacheDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(base, "bvm"), nil
	}
	return e.platformDataDir()
}

func (e *RealEnvironment) NowSeconds() uint64 { return uint64(time.Now().Unix()) }

func (e *RealEnvironment) GetEnvVar(name string) (string, bool) { return os.LookupEnv(name) }

func (e *RealEnvironment) SetEnvVar(name, value string) error { return os.Setenv(name, value) }

func (e *RealEnvironment) GetEnvPath() string { return os.Getenv("PATH") }

func (e *RealEnvironment) PathSeparator() string { return string(os.PathListSeparator) }

func (e *RealEnvironment) RunShellCommand(dir, command string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/C", command)
	} else {
		cmd = exec.Command("/bin/sh", "-c", command)
	}
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %q exited with error: %w", command, err)
	}
	return nil
}

func (e *RealEnvironment) DownloadFile(url string, progress ProgressReporter) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "bvm-download")
	if err != nil {
		return nil, fmt.Errorf("creating temp download directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	dest := filepath.Join(tmpDir, "download")

	client := &getter.Client{
		Src:  url,
		Dst:  dest,
		Mode: getter.ClientModeFile,
	}
	e.logVerbose("downloading", "url", url)
	if err := client.Get(); err != nil {
		return nil, fmt.Errorf("downloading %s: %w", url, err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		return nil, fmt.Errorf("reading downloaded file from %s: %w", url, err)
	}
	if progress != nil {
		progress.UpdateSize(int64(len(data)))
		progress.Finish()
	}
	return data, nil
}

func (e *RealEnvironment) IsRealNetwork() bool { return true }

func (e *RealEnvironment) Log(line string) { fmt.Println(line) }

func (e *RealEnvironment) LogError(line string) { fmt.Fprintln(os.Stderr, line) }

func (e *RealEnvironment) LogAction(message string, totalSize int64, fn func(progress ProgressReporter) error) error {
	reporter := newSpinnerProgress(message, totalSize)
	defer reporter.Finish()
	return fn(reporter)
}

func (e *RealEnvironment) IsVerbose() bool { return e.Verbose }

func (e *RealEnvironment) logVerbose(msg string, args ...interface{}) {
	if e.Verbose {
		e.Logger.Debug(msg, args...)
	}
}
