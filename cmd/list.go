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
	"strings"

	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"

	"bvm/internal/plugins"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed binaries",
	Long:  "Lists every installed binary, its commands, and whether it is the current global selection for any of them.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()
		manifest := loadManifest(env)
		printInstalledBinaries(manifest)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func printInstalledBinaries(manifest *plugins.PluginsManifest) {
	items := manifest.BinariesList()
	if len(items) == 0 {
		fmt.Println("No binaries installed.")
		return
	}

	rows := []string{"OWNER/NAME | VERSION | COMMANDS | GLOBAL"}
	for _, item := range items {
		id := item.GetIdentifier()
		var commandNames []string
		for _, c := range item.GetCommandNames() {
			commandNames = append(commandNames, string(c))
		}
		global := "no"
		if manifest.IsGlobalVersion(id) {
			global = "yes"
		}
		rows = append(rows, fmt.Sprintf("%s | %s | %s | %s", item.Name, item.Version.Text, strings.Join(commandNames, ", "), global))
	}
	fmt.Println(columnize.SimpleFormat(rows))
}
