// Package checksumurl implements the "path@sha256" notation BVM uses to refer
// to a remote document together with its expected checksum (C3).
package checksumurl

import (
	"fmt"
	"net/url"
	"strings"
)

// ChecksumUrl is a resolved URL paired with the text it was written as and an
// optional expected SHA-256 checksum.
type ChecksumUrl struct {
	UnresolvedPath string // the original text, minus any "@checksum" suffix
	URL            *url.URL
	Checksum       string // hex, empty if not declared
}

// Parse splits "path@hex" (only the final '@' in the text delimits the
// checksum, so earlier '@' characters inside a path component survive) and
// resolves the remaining path against base, which may be nil for an
// already-absolute URL.
func Parse(text string, base *url.URL) (ChecksumUrl, error) {
	unresolved, checksum := splitChecksum(text)
	resolved, err := resolveURL(unresolved, base)
	if err != nil {
		return ChecksumUrl{}, err
	}
	return ChecksumUrl{UnresolvedPath: unresolved, URL: resolved, Checksum: checksum}, nil
}

// WithChecksum returns a copy carrying an explicitly supplied checksum,
// overriding whatever (if anything) was parsed from the text.
func (c ChecksumUrl) WithChecksum(checksum string) ChecksumUrl {
	c.Checksum = checksum
	return c
}

func splitChecksum(text string) (path, checksum string) {
	idx := strings.LastIndexByte(text, '@')
	if idx < 0 {
		return text, ""
	}
	candidate := text[idx+1:]
	if !isHex(candidate) || len(candidate) != 64 {
		return text, ""
	}
	return text[:idx], candidate
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9') && !(r >= 'a' && r <= 'f') && !(r >= 'A' && r <= 'F') {
			return false
		}
	}
	return true
}

func resolveURL(text string, base *url.URL) (*url.URL, error) {
	if parsed, err := url.Parse(text); err == nil && parsed.IsAbs() {
		return parsed, nil
	}
	if base == nil {
		return nil, fmt.Errorf("%q is not an absolute URL and no base was supplied", text)
	}
	ref, err := url.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve %q against %s: %w", text, base, err)
	}
	return base.ResolveReference(ref), nil
}

// FromDirectory builds a base URL for a local directory, used to resolve
// relative paths found in a config file against that file's own location.
func FromDirectory(dir string) (*url.URL, error) {
	clean := strings.ReplaceAll(dir, "\\", "/")
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	return url.Parse("file://" + clean)
}
