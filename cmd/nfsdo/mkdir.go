package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "create a directory",
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

			fh, err := c.Mkdir(ctx, parentFh, name)
			if err != nil {
				return err
			}
			fmt.Printf("created %x\n", []byte(fh))
			return nil
		},
	}
}
