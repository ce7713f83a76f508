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
	"path/filepath"

	"github.com/spf13/cobra"

	"bvm/internal/bvmenv"
	"bvm/internal/bvmtypes"
	"bvm/internal/plugins"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <name> <version>",
	Short: "Remove an installed binary",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		name, err := bvmtypes.ParseBinaryName(args[0])
		if err != nil {
			fatal(err)
		}
		version, err := bvmtypes.ParseVersion(args[1])
		if err != nil {
			fatal(err)
		}

		manifest := loadManifest(env)
		id := plugins.NewBinaryIdentifier(name, version)
		if !manifest.HasBinary(id) {
			fatal(fmt.Errorf("%s %s is not installed", name, version.Text))
		}

		installedDir, err := plugins.InstalledDir(env, name, version)
		if err != nil {
			fatal(err)
		}

		mut := plugins.NewPluginsMut(env, manifest, true)
		if err := mut.RemoveBinary(id); err != nil {
			fatal(err)
		}
		saveManifestOrFatal(mut)

		if err := removeInstalledDirAndEmptyParents(env, installedDir); err != nil {
			fatal(err)
		}
	},
}

// removeInstalledDirAndEmptyParents deletes the binary's content-addressed
// install directory, then prunes its name and owner parent directories if
// uninstalling left them empty.
func removeInstalledDirAndEmptyParents(env bvmenv.Environment, installedDir string) error {
	if err := env.RemoveDirAll(installedDir); err != nil {
		return err
	}
	nameDir := filepath.Dir(installedDir)
	empty, err := env.IsDirEmpty(nameDir)
	if err != nil || !empty {
		return nil
	}
	if err := env.RemoveDirAll(nameDir); err != nil {
		return err
	}
	ownerDir := filepath.Dir(nameDir)
	if empty, err := env.IsDirEmpty(ownerDir); err == nil && empty {
		return env.RemoveDirAll(ownerDir)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
