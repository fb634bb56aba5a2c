// Command nfsdo drives an NFSv4.1 server from the command line: resolve a
// path, list a directory, read a file, or create/remove one, mirroring the
// original pinfish nfsdo example's subcommand set.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "nfsdo:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nfsdo",
		Short:         "nfsdo drives an NFSv4.1 server: ls, read, mkdir, rm",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	bindConfigFlags(root.PersistentFlags())

	root.AddCommand(newLsCmd(), newReadCmd(), newMkdirCmd(), newRmCmd(), newConfigCmd())
	return root
}
