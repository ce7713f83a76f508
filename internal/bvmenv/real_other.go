//go:build !windows

package bvmenv

// EnsureSystemPath is a no-op outside Windows: Unix shell-integration scripts
// own PATH mutation via the pending-environment-change protocol instead.
func (e *RealEnvironment) EnsureSystemPath(dir string) error { return nil }

// EnsureSystemPathHead is a no-op outside Windows.
func (e *RealEnvironment) EnsureSystemPathHead(dir string) error { return nil }

// RemoveSystemPath is a no-op outside Windows.
func (e *RealEnvironment) RemoveSystemPath(dir string) error { return nil }

// SetPersistentEnvVar is a no-op outside Windows.
func (e *RealEnvironment) SetPersistentEnvVar(name, value string) error { return nil }

// RemovePersistentEnvVar is a no-op outside Windows.
func (e *RealEnvironment) RemovePersistentEnvVar(name string) error { return nil }
