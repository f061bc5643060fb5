// spankinit scaffolds a new SPANK plugin project: a main package with the
// static descriptors Slurm reads at load time, a go.mod depending on the
// SDK, and a Makefile with the c-shared build line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/gospank/internal/scaffold"
)

var (
	module     string
	dir        string
	sdkVersion string
)

var rootCmd = &cobra.Command{
	Use:   "spankinit <name>",
	Short: "Scaffold a Slurm SPANK plugin project",
	Long: `spankinit generates a ready-to-build SPANK plugin project.

The generated main package carries the plugin_name, plugin_type and
plugin_version descriptors Slurm reads at load time; build the plugin with
"make" and list the resulting .so in plugstack.conf.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := scaffold.NewProject(args[0], module, sdkVersion)
		if err != nil {
			return err
		}
		if err := project.Write(dir); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s/%s\n", dir, project.Name)
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&module, "module", "m", "", "Go module path for the generated project (default: the plugin name)")
	rootCmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to create the project under")
	rootCmd.Flags().StringVar(&sdkVersion, "sdk-version", "", "SDK version to require in go.mod (default: latest)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
