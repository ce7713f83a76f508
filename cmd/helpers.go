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

package cmd

import (
	"fmt"
	"os"
	"strings"

	"bvm/internal/bvmenv"
	"bvm/internal/bvmtypes"
	"bvm/internal/plugins"
)

// verbose is set by the root command's persistent --verbose flag.
var verbose bool

// newEnvironment builds the Environment every subcommand runs against.
func newEnvironment() bvmenv.Environment {
	return bvmenv.NewRealEnvironment(verbose)
}

// fatal prints err and exits 1, matching the CLI surface's exit-code contract (§6).
func fatal(err error) {
	fmt.Fprintln(os.Stderr, "bvm:", err)
	os.Exit(1)
}

// loadManifest opens the plugins manifest or exits with an error; every
// command that reads or mutates installed binaries starts here.
func loadManifest(env bvmenv.Environment) *plugins.PluginsManifest {
	m, err := plugins.LoadManifest(env)
	if err != nil {
		fatal(err)
	}
	return m
}

// parseNameArg splits a CLI "name" argument, accepting "owner/name" or a bare name.
func parseNameArg(text string) bvmtypes.NameSelector {
	return bvmtypes.ParseNameSelector(text)
}

// parseOptionalVersionArg parses the CLI version argument when one was
// supplied, applying the narrower CLI rewriting rules (§4.6), or returns nil
// when no argument was given.
func parseOptionalVersionArg(args []string, index int) (*bvmtypes.VersionSelector, error) {
	if len(args) <= index {
		return nil, nil
	}
	sel, err := bvmtypes.ParseVersionSelector(args[index])
	if err != nil {
		return nil, err
	}
	return &sel, nil
}

// looksLikeURL reports whether text should be treated as a ChecksumUrl
// argument (install/add's "url|name" first positional) rather than a bare
// registry name selector. A registry selector may itself contain a single
// "/" (the "owner/name" form), so the only reliable signals are a scheme
// separator or an explicit filesystem-style path.
func looksLikeURL(text string) bool {
	if strings.Contains(text, "://") {
		return true
	}
	return strings.HasPrefix(text, "/") || strings.HasPrefix(text, "./") || strings.HasPrefix(text, "../")
}

// saveManifestOrFatal persists mut's underlying manifest or exits with an error.
func saveManifestOrFatal(mut *plugins.PluginsMut) {
	if err := mut.Save(); err != nil {
		fatal(err)
	}
}

// sentenceJoin renders items as "a", "a and b", or "a, b, and c" — used by
// the post-install warning that lists commands a new binary shadows.
func sentenceJoin(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}

// containsString reports whether needle is present in haystack.
func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
