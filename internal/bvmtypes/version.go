package bvmtypes

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	hcversion "github.com/hashicorp/go-version"
)

var (
	fullVersionRe  = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)
	minorVersionRe = regexp.MustCompile(`^[0-9]+\.[0-9]+$`)
	majorOnlyRe    = regexp.MustCompile(`^[0-9]+$`)
)

// Version carries both the text the user or plugin file wrote and its parsed
// semantic value. Ordering is semver ordering; prereleases sort below releases.
type Version struct {
	Text  string
	SemVer *semver.Version
}

// ParseVersion parses a concrete version string, e.g. "1.2.3" or "1.2.3-alpha.1".
func ParseVersion(text string) (Version, error) {
	sv, err := semver.NewVersion(text)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", text, err)
	}
	// Sanity-check against go-version too; catches the rare string semver
	// accepts loosely but that isn't a well-formed release identifier.
	if _, err := hcversion.NewVersion(text); err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", text, err)
	}
	return Version{Text: text, SemVer: sv}, nil
}

func (v Version) String() string { return v.Text }

// IsPrerelease reports whether the version carries a prerelease component.
func (v Version) IsPrerelease() bool { return v.SemVer.Prerelease() != "" }

// Compare orders two versions using semver precedence.
func (v Version) Compare(other Version) int { return v.SemVer.Compare(other.SemVer) }

// ToSelector produces an exact-match selector for this version.
func (v Version) ToSelector() VersionSelector {
	sel, _ := parseSelectorText("=" + v.Text)
	return sel
}

// MarshalText serializes as the plain version string, matching the manifest's
// on-disk representation.
func (v Version) MarshalText() ([]byte, error) { return []byte(v.Text), nil }

// UnmarshalText parses the plain version string form.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// VersionSelector is a semver range requirement, built from either CLI/plugin
// text (narrow rewriting rules) or config-file text (broader rewriting rules).
type VersionSelector struct {
	Text        string
	constraints *semver.Constraints
}

func parseSelectorText(rangeText string) (VersionSelector, error) {
	c, err := semver.NewConstraint(rangeText)
	if err != nil {
		return VersionSelector{}, fmt.Errorf("invalid version selector %q: %w", rangeText, err)
	}
	return VersionSelector{Text: rangeText, constraints: c}, nil
}

// ParseVersionSelector parses a selector as written on the command line or in
// a plugin's declared version: a bare "x.y.z" means exactly that version, a
// bare "x.y" means the patch range "~x.y.0". Anything already carrying an
// operator (^, ~, =, >, etc.) passes through unchanged.
func ParseVersionSelector(text string) (VersionSelector, error) {
	switch {
	case fullVersionRe.MatchString(text):
		return parseSelectorText("=" + text)
	case minorVersionRe.MatchString(text):
		return parseSelectorText("~" + text + ".0")
	default:
		return parseSelectorText(text)
	}
}

// ParseVersionSelectorForConfig parses a selector as written in a bvm.json
// config file: unlike ParseVersionSelector, a bare "x.y.z" is NOT rewritten
// to an exact-equality match — it means the caret range "^x.y.z", same as a
// bare "x.y" or bare "x" widening to "^x.y"/"^x".
func ParseVersionSelectorForConfig(text string) (VersionSelector, error) {
	switch {
	case fullVersionRe.MatchString(text), minorVersionRe.MatchString(text), majorOnlyRe.MatchString(text):
		return parseSelectorText("^" + text)
	default:
		return parseSelectorText(text)
	}
}

func (s VersionSelector) String() string { return s.Text }

// Matches reports whether a concrete version satisfies this selector.
func (s VersionSelector) Matches(v Version) bool {
	return s.constraints.Check(v.SemVer)
}

// MarshalText serializes as the plain selector string.
func (s VersionSelector) MarshalText() ([]byte, error) { return []byte(s.Text), nil }

// UnmarshalText parses using the broader, config-file rewriting rules, since
// selectors only ever round-trip through the config file on disk.
func (s *VersionSelector) UnmarshalText(text []byte) error {
	parsed, err := ParseVersionSelectorForConfig(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// PathOrVersionSelector is the argument shape accepted by "use" and the
// hidden exec-resolution commands: either the literal keyword "path" (defer
// to the OS PATH) or a concrete VersionSelector.
type PathOrVersionSelector struct {
	IsPath   bool
	Selector VersionSelector
}

// ParsePathOrVersionSelector parses "path" or a version selector string.
func ParsePathOrVersionSelector(text string) (PathOrVersionSelector, error) {
	if text == "path" {
		return PathOrVersionSelector{IsPath: true}, nil
	}
	sel, err := ParseVersionSelector(text)
	if err != nil {
		return PathOrVersionSelector{}, err
	}
	return PathOrVersionSelector{Selector: sel}, nil
}

func (p PathOrVersionSelector) String() string {
	if p.IsPath {
		return "path"
	}
	return p.Selector.String()
}
