package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/nfs4c/internal/config"
)

func newConfigCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "config",
		Short: "inspect or persist the effective configuration",
	}
	root.AddCommand(newConfigSaveCmd())
	return root
}

func newConfigSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <path>",
		Short: "resolve the effective configuration (flags, env, file, defaults) and write it to path as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			if err := config.Save(cfg, args[0]); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
}
