// Copyright © 2019 Brian Shumate <brian@brianshumate.com>
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
//
// 1. Redistributions of source code must retain the above copyright notice,
//    this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright notice,
//    this list of conditions and the following disclaimer in the documentation
//    and/or other materials provided with the distribution.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package bvmtypes

import (
	"fmt"
	"strings"
)

// reservedNameChars are forbidden anywhere in a binary name or owner.
const reservedNameChars = "|| ~()'!*"

const maxBinaryNameLength = 224

// BinaryName identifies a plugin by its owner and short name, e.g. "dsherret/ts".
type BinaryName struct {
	Owner string
	Name  string
}

// ParseBinaryName validates and builds a BinaryName from "owner/name" or a bare name.
func ParseBinaryName(text string) (BinaryName, error) {
	owner, name := "", text
	if idx := strings.IndexByte(text, '/'); idx >= 0 {
		owner, name = text[:idx], text[idx+1:]
	}
	bn := BinaryName{Owner: owner, Name: name}
	if err := bn.Validate(); err != nil {
		return BinaryName{}, err
	}
	return bn, nil
}

// Validate enforces the naming invariants: no path-unsafe or manifest-delimiter
// characters, no leading dot or underscore, bounded length, and never "bvm" itself.
func (b BinaryName) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("binary name cannot be empty")
	}
	for _, part := range []string{b.Owner, b.Name} {
		if strings.ContainsAny(part, reservedNameChars) || strings.Contains(part, "/") {
			return fmt.Errorf("binary name %q contains a reserved character", b.String())
		}
	}
	if strings.HasPrefix(b.Name, ".") || strings.HasPrefix(b.Name, "_") {
		return fmt.Errorf("binary name %q cannot start with '.' or '_'", b.String())
	}
	if len(b.String()) > maxBinaryNameLength {
		return fmt.Errorf("binary name %q exceeds %d characters", b.String(), maxBinaryNameLength)
	}
	if b.Name == "bvm" {
		return fmt.Errorf("binary name cannot be \"bvm\"")
	}
	return nil
}

// String renders the canonical "owner/name" or bare "name" form.
func (b BinaryName) String() string {
	if b.Owner == "" {
		return b.Name
	}
	return b.Owner + "/" + b.Name
}

// MarshalText implements encoding.TextMarshaler for JSON "owner/name" serialization.
func (b BinaryName) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *BinaryName) UnmarshalText(text []byte) error {
	parsed, err := ParseBinaryName(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// CommandName is the name under which a binary exposes an entry point, e.g. "ts".
type CommandName string

// NameSelector matches a BinaryName, optionally constrained to a specific owner.
type NameSelector struct {
	Owner string // empty means "any owner"
	Name  string
}

// ParseNameSelector accepts "owner/name" or a bare "name".
func ParseNameSelector(text string) NameSelector {
	if idx := strings.IndexByte(text, '/'); idx >= 0 {
		return NameSelector{Owner: text[:idx], Name: text[idx+1:]}
	}
	return NameSelector{Name: text}
}

// Matches reports whether a BinaryName satisfies the selector.
func (s NameSelector) Matches(name BinaryName) bool {
	if s.Name != name.Name {
		return false
	}
	return s.Owner == "" || s.Owner == name.Owner
}

func (s NameSelector) String() string {
	if s.Owner == "" {
		return s.Name
	}
	return s.Owner + "/" + s.Name
}
