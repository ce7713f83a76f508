// Package archive implements the installer's black-box decoders (§4.4 step
// 5): zip, tar.gz, and raw-binary extraction, reporting progress as each
// entry is written. These formats are explicitly named in the specification
// as external collaborators with a declared interface, so this package
// leans entirely on the standard library rather than an ecosystem archiver.
package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"bvm/internal/bvmenv"
)

// ArchiveType enumerates the supported plugin artifact types.
type ArchiveType string

const (
	TypeZip    ArchiveType = "zip"
	TypeTarGz  ArchiveType = "tar.gz"
	TypeBinary ArchiveType = "binary"
)

// Extract writes the archive's entries beneath destDir using env, reporting
// cumulative bytes processed via progress. For TypeBinary, data is written
// verbatim to destDir/binaryPath.
func Extract(env bvmenv.Environment, archiveType ArchiveType, data []byte, destDir, binaryPath string, progress bvmenv.ProgressReporter) error {
	switch archiveType {
	case TypeZip:
		return extractZip(env, data, destDir, progress)
	case TypeTarGz:
		return extractTarGz(env, data, destDir, progress)
	case TypeBinary:
		return env.WriteFile(filepath.Join(destDir, binaryPath), data)
	default:
		return fmt.Errorf("unsupported archive type %q", archiveType)
	}
}

func extractZip(env bvmenv.Environment, data []byte, destDir string, progress bvmenv.ProgressReporter) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("reading zip archive: %w", err)
	}
	var position int64
	for _, f := range r.File {
		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := env.MkdirAll(target); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("reading zip entry %s: %w", f.Name, err)
		}
		contents, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("reading zip entry %s: %w", f.Name, err)
		}
		if err := env.MkdirAll(filepath.Dir(target)); err != nil {
			return err
		}
		if err := env.WriteFile(target, contents); err != nil {
			return err
		}
		if f.Mode()&0111 != 0 {
			if err := env.Chmod(target, true); err != nil {
				return err
			}
		}
		position += int64(len(contents))
		if progress != nil {
			progress.UpdateSize(position)
		}
	}
	return nil
}

func extractTarGz(env bvmenv.Environment, data []byte, destDir string, progress bvmenv.ProgressReporter) error {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("reading gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	var position int64
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}
		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := env.MkdirAll(target); err != nil {
				return err
			}
		case tar.TypeReg:
			contents, err := io.ReadAll(tr)
			if err != nil {
				return fmt.Errorf("reading tar entry %s: %w", hdr.Name, err)
			}
			if err := env.MkdirAll(filepath.Dir(target)); err != nil {
				return err
			}
			if err := env.WriteFile(target, contents); err != nil {
				return err
			}
			if hdr.Mode&0111 != 0 {
				if err := env.Chmod(target, true); err != nil {
					return err
				}
			}
			position += int64(len(contents))
			if progress != nil {
				progress.UpdateSize(position)
			}
		}
	}
	return nil
}

// safeJoin joins destDir with an archive-relative entry name, refusing any
// entry that would escape destDir via "..", mirroring the path-traversal
// rejection the installer already applies to declared command paths.
func safeJoin(destDir, name string) (string, error) {
	clean := filepath.Clean(strings.ReplaceAll(name, "\\", "/"))
	if clean == ".." || strings.HasPrefix(clean, "../") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("archive entry %q escapes the destination directory", name)
	}
	return filepath.Join(destDir, clean), nil
}
