package bvmtypes

import "testing"

func TestParseVersionSelectorRewritesBareText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1.2.3", "=1.2.3"},
		{"1.2", "~1.2.0"},
		{"^1.2", "^1.2"},
	}
	for _, c := range cases {
		sel, err := ParseVersionSelector(c.in)
		if err != nil {
			t.Fatalf("ParseVersionSelector(%q): %v", c.in, err)
		}
		if sel.Text != c.want {
			t.Errorf("ParseVersionSelector(%q) = %q, want %q", c.in, sel.Text, c.want)
		}
	}
}

func TestParseVersionSelectorForConfigUsesCaretRange(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1.2.3", "^1.2.3"},
		{"1.2", "^1.2"},
		{"1", "^1"},
	}
	for _, c := range cases {
		sel, err := ParseVersionSelectorForConfig(c.in)
		if err != nil {
			t.Fatalf("ParseVersionSelectorForConfig(%q): %v", c.in, err)
		}
		if sel.Text != c.want {
			t.Errorf("ParseVersionSelectorForConfig(%q) = %q, want %q", c.in, sel.Text, c.want)
		}
	}
}

func TestVersionSelectorMatches(t *testing.T) {
	sel, err := ParseVersionSelector("1.2")
	if err != nil {
		t.Fatalf("ParseVersionSelector: %v", err)
	}
	in, err := ParseVersion("1.2.5")
	if err != nil {
		t.Fatalf("ParseVersion: %v", err)
	}
	if !sel.Matches(in) {
		t.Errorf("expected ~1.2.0 to match 1.2.5")
	}
	out, err := ParseVersion("1.3.0")
	if err != nil {
		t.Fatalf("ParseVersion: %v", err)
	}
	if sel.Matches(out) {
		t.Errorf("expected ~1.2.0 not to match 1.3.0")
	}
}

func TestVersionCompareOrdersSemver(t *testing.T) {
	a, _ := ParseVersion("1.0.0")
	b, _ := ParseVersion("1.1.0")
	if a.Compare(b) >= 0 {
		t.Errorf("expected 1.0.0 < 1.1.0")
	}
	pre, _ := ParseVersion("2.0.0-alpha.1")
	if !pre.IsPrerelease() {
		t.Errorf("expected 2.0.0-alpha.1 to be a prerelease")
	}
}

func TestParseVersionRejectsGarbage(t *testing.T) {
	if _, err := ParseVersion("not-a-version"); err == nil {
		t.Fatal("expected an error for an invalid version string")
	}
}

func TestParsePathOrVersionSelector(t *testing.T) {
	p, err := ParsePathOrVersionSelector("path")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.IsPath {
		t.Fatal("expected IsPath to be true for \"path\"")
	}

	p, err = ParsePathOrVersionSelector("1.2.3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.IsPath {
		t.Fatal("expected IsPath to be false for a version string")
	}
	if p.Selector.Text != "=1.2.3" {
		t.Errorf("expected selector text =1.2.3, got %q", p.Selector.Text)
	}
}
