package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/nfs4c/internal/nfs4/ops"
	"github.com/marmos91/nfs4c/pkg/bufpool"
)

// readChunkSize is the byte count requested per READ call.
const readChunkSize = 32 * 1024

func newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <path>",
		Short: "read a file to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := connect(cmd.Flags())
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := context.Background()
			fh, err := c.ResolvePath(ctx, args[0])
			if err != nil {
				return err
			}

			open, err := c.OpenByID(ctx, fh, ops.ShareAccessRead, ops.ShareDenyNone)
			if err != nil {
				return err
			}

			var offset uint64
			for {
				res, err := c.Read(ctx, fh, open.StateID, offset, readChunkSize)
				if err != nil {
					return err
				}
				if _, err := os.Stdout.Write(res.Data); err != nil {
					bufpool.Put(res.Data)
					return err
				}
				offset += uint64(len(res.Data))
				eof := res.EOF
				bufpool.Put(res.Data)
				if eof {
					break
				}
			}
			return nil
		},
	}
}
