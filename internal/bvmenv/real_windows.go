//go:build windows

package bvmenv

import (
	"strings"

	"golang.org/x/sys/windows/registry"
)

// EnsureSystemPath appends dir to the user's persistent PATH if not already present.
func (e *RealEnvironment) EnsureSystemPath(dir string) error {
	return e.mutatePath(func(entries []string) []string {
		for _, existing := range entries {
			if strings.EqualFold(existing, dir) {
				return entries
			}
		}
		return append(entries, dir)
	})
}

// EnsureSystemPathHead puts dir at the front of the user's persistent PATH,
// de-duplicating any prior occurrence.
func (e *RealEnvironment) EnsureSystemPathHead(dir string) error {
	return e.mutatePath(func(entries []string) []string {
		filtered := make([]string, 0, len(entries)+1)
		filtered = append(filtered, dir)
		for _, existing := range entries {
			if existing != "" && !strings.EqualFold(existing, dir) {
				filtered = append(filtered, existing)
			}
		}
		return filtered
	})
}

// RemoveSystemPath strips every occurrence of dir from the user's persistent PATH.
func (e *RealEnvironment) RemoveSystemPath(dir string) error {
	return e.mutatePath(func(entries []string) []string {
		filtered := entries[:0]
		for _, existing := range entries {
			if !strings.EqualFold(existing, dir) {
				filtered = append(filtered, existing)
			}
		}
		return filtered
	})
}

func (e *RealEnvironment) mutatePath(mutate func([]string) []string) error {
	key, err := registry.OpenKey(registry.CURRENT_USER, `Environment`, registry.ALL_ACCESS)
	if err != nil {
		return err
	}
	defer key.Close()

	current, _, err := key.GetStringValue("Path")
	if err != nil && err != registry.ErrNotExist {
		return err
	}
	var entries []string
	if current != "" {
		entries = strings.Split(current, ";")
	}
	updated := mutate(entries)
	joined := strings.Join(updated, ";")
	if joined == current {
		return nil
	}
	return key.SetStringValue("Path", joined)
}

// SetPersistentEnvVar writes a value directly into the user Environment registry key.
func (e *RealEnvironment) SetPersistentEnvVar(name, value string) error {
	key, err := registry.OpenKey(registry.CURRENT_USER, `Environment`, registry.ALL_ACCESS)
	if err != nil {
		return err
	}
	defer key.Close()
	return key.SetStringValue(name, value)
}

// RemovePersistentEnvVar deletes a value from the user Environment registry key.
func (e *RealEnvironment) RemovePersistentEnvVar(name string) error {
	key, err := registry.OpenKey(registry.CURRENT_USER, `Environment`, registry.ALL_ACCESS)
	if err != nil {
		return err
	}
	defer key.Close()
	if err := key.DeleteValue(name); err != nil && err != registry.ErrNotExist {
		return err
	}
	return nil
}
