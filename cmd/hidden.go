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
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bvm/internal/bvmenv"
	"bvm/internal/bvmtypes"
	"bvm/internal/plugins"
)

// hiddenCmd groups the shell-integration-only subcommands (§6): never meant
// to be typed by a person, only called by the generated shims and install
// hooks, so it carries no help text worth showing in `bvm --help`.
var hiddenCmd = &cobra.Command{
	Use:    "hidden",
	Hidden: true,
}

var hiddenResolveCommandCmd = &cobra.Command{
	Use:  "resolve-command <c>",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		manifest := loadManifest(env)
		out, err := plugins.ResolveCommand(env, manifest, bvmtypes.CommandName(args[0]))
		if err != nil {
			fatal(err)
		}
		fmt.Print(out)
	},
}

var hiddenGetPendingEnvChangesCmd = &cobra.Command{
	Use:  "get-pending-env-changes",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		manifest := loadManifest(env)
		out, err := plugins.GetPendingEnvChangeLines(env, manifest)
		if err != nil {
			fatal(err)
		}
		fmt.Print(out)
	},
}

var hiddenClearPendingEnvChangesCmd = &cobra.Command{
	Use:  "clear-pending-env-changes",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		manifest := loadManifest(env)
		manifest.PendingEnvChanges.Clear()
		mut := plugins.NewPluginsMut(env, manifest, true)
		saveManifestOrFatal(mut)
	},
}

var hiddenGetPathsCmd = &cobra.Command{
	Use:  "get-paths",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		manifest := loadManifest(env)
		out, err := plugins.GetGlobalPathLines(env, manifest)
		if err != nil {
			fatal(err)
		}
		fmt.Print(out)
	},
}

var hiddenGetEnvVarsCmd = &cobra.Command{
	Use:  "get-env-vars",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		manifest := loadManifest(env)
		out, err := plugins.GetGlobalEnvVarLines(env, manifest)
		if err != nil {
			fatal(err)
		}
		fmt.Print(out)
	},
}

var hiddenGetExecEnvChangesCmd = &cobra.Command{
	Use:  "get-exec-env-changes <name> <version|path>",
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		manifest := loadManifest(env)
		item, isPath := resolveItemForSelector(manifest, args[0], args[1])
		out, err := plugins.GetExecEnvChanges(env, manifest, item, isPath)
		if err != nil {
			fatal(err)
		}
		fmt.Print(out)
	},
}

var hiddenGetExecCommandPathCmd = &cobra.Command{
	Use:  "get-exec-command-path <name> <version|path> <command>",
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		manifest := loadManifest(env)
		item, _ := resolveItemForSelector(manifest, args[0], args[1])
		out, err := plugins.GetExecCommandPath(env, item, bvmtypes.CommandName(args[2]))
		if err != nil {
			fatal(err)
		}
		fmt.Print(out)
	},
}

var hiddenHasCommandCmd = &cobra.Command{
	Use:  "has-command <name> <version|path> <command>",
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		manifest := loadManifest(env)
		item, _ := resolveItemForSelector(manifest, args[0], args[1])
		fmt.Print(plugins.HasCommand(item, bvmtypes.CommandName(args[2])))
	},
}

var hiddenUnixInstallCmd = &cobra.Command{
	Use:  "unix-install",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		manifest := loadManifest(env)
		if err := plugins.RecreateShims(env, manifest); err != nil {
			fatal(err)
		}
	},
}

var hiddenWindowsInstallCmd = &cobra.Command{
	Use:  "windows-install",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		manifest := loadManifest(env)
		if err := plugins.RecreateShims(env, manifest); err != nil {
			fatal(err)
		}
		if err := ensureWindowsPathHeads(env); err != nil {
			fatal(err)
		}
	},
}

var hiddenWindowsUninstallCmd = &cobra.Command{
	Use:  "windows-uninstall",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		if err := removeWindowsPathHeads(env); err != nil {
			fatal(err)
		}
	},
}

var hiddenSliceArgsCmd = &cobra.Command{
	Use:  "slice-args <count> <raw>",
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		count, err := strconv.Atoi(args[0])
		if err != nil {
			fatal(fmt.Errorf("slice-args: %q is not a count: %w", args[0], err))
		}
		for _, a := range sliceArgs(args[1], count) {
			fmt.Println(a)
		}
	},
}

func init() {
	hiddenCmd.AddCommand(
		hiddenResolveCommandCmd,
		hiddenGetPendingEnvChangesCmd,
		hiddenClearPendingEnvChangesCmd,
		hiddenGetPathsCmd,
		hiddenGetEnvVarsCmd,
		hiddenGetExecEnvChangesCmd,
		hiddenGetExecCommandPathCmd,
		hiddenHasCommandCmd,
		hiddenUnixInstallCmd,
		hiddenWindowsInstallCmd,
		hiddenWindowsUninstallCmd,
		hiddenSliceArgsCmd,
	)
	rootCmd.AddCommand(hiddenCmd)
}

// resolveItemForSelector resolves the <name> <version|path> pair shared by
// several hidden subcommands. When versionOrPath is "path", the returned
// item is only used for its set of command names (every installed version of
// a name is assumed to expose the same commands); the caller is responsible
// for treating isPath=true as "defer to the OS PATH" rather than running
// this particular item.
func resolveItemForSelector(manifest *plugins.PluginsManifest, name, versionOrPath string) (plugins.BinaryManifestItem, bool) {
	selector := parseNameArg(name)
	target, err := bvmtypes.ParsePathOrVersionSelector(versionOrPath)
	if err != nil {
		fatal(err)
	}
	var version *bvmtypes.VersionSelector
	if !target.IsPath {
		version = &target.Selector
	}
	item, err := plugins.ResolveInstalled(manifest, selector, version)
	if err != nil {
		fatal(err)
	}
	return item, target.IsPath
}

// ensureWindowsPathHeads puts bvm's shim directory and the user's ~/bin at
// the head of the persistent user PATH (feature: Windows install hook).
func ensureWindowsPathHeads(env bvmenv.Environment) error {
	shimDir, err := plugins.ShimDir(env)
	if err != nil {
		return err
	}
	if err := env.EnsureSystemPathHead(shimDir); err != nil {
		return err
	}
	home, err := env.HomeDir()
	if err != nil {
		return err
	}
	return env.EnsureSystemPathHead(home + "/bin")
}

// removeWindowsPathHeads undoes ensureWindowsPathHeads (Windows uninstall hook).
func removeWindowsPathHeads(env bvmenv.Environment) error {
	shimDir, err := plugins.ShimDir(env)
	if err != nil {
		return err
	}
	if err := env.RemoveSystemPath(shimDir); err != nil {
		return err
	}
	home, err := env.HomeDir()
	if err != nil {
		return err
	}
	return env.RemoveSystemPath(home + "/bin")
}

// sliceArgs re-splits a single forwarded argument string into individual
// tokens, honoring double-quoted substrings, for the Windows batch shim
// (which receives %* as one opaque string). A non-positive count returns
// every token; otherwise at most count tokens are returned.
func sliceArgs(raw string, count int) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false
	hasToken := false
	flush := func() {
		if hasToken {
			tokens = append(tokens, current.String())
			current.Reset()
			hasToken = false
		}
	}
	for _, r := range raw {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			hasToken = true
		case r == ' ' && !inQuotes:
			flush()
		default:
			current.WriteRune(r)
			hasToken = true
		}
	}
	flush()
	if count > 0 && count < len(tokens) {
		tokens = tokens[:count]
	}
	return tokens
}
