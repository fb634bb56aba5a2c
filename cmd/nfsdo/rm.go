package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "remove a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := connect(cmd.Flags())
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := context.Background()
			parent, name := splitLast(args[0])
			parentFh, err := c.ResolvePath(ctx, parent)
			if err != nil {
				return err
			}
			return c.Remove(ctx, parentFh, name)
		},
	}
}
