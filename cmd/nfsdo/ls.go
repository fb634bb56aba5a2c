package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/marmos91/nfs4c/internal/nfs4/attrs"
	"github.com/marmos91/nfs4c/internal/nfs4/ops"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <path>",
		Short: "list a directory",
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

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer w.Flush()

			var cookie ops.Cookie4
			var cookieVerf ops.Verifier4
			for {
				res, err := c.ReadDir(ctx, fh, cookie, cookieVerf)
				if err != nil {
					return err
				}
				for _, entry := range res.Reply.Entries {
					fmt.Fprintf(w, "%s\t%s\n", entryMode(entry.Attrs), entry.Name)
					cookie = entry.Cookie
				}
				cookieVerf = res.CookieVerf
				if res.Reply.EOF {
					break
				}
			}
			return nil
		},
	}
}

// entryMode renders a directory entry's type and permission bits as a
// ten-character "ls -l"-style string, e.g. "drwxr-xr-x".
func entryMode(a *attrs.FileAttributes) string {
	if a == nil {
		return "??????????"
	}

	typeChar := byte('?')
	if a.ObjType != nil {
		switch *a.ObjType {
		case attrs.Nf4Reg:
			typeChar = '-'
		case attrs.Nf4Dir:
			typeChar = 'd'
		case attrs.Nf4Blk:
			typeChar = 'b'
		case attrs.Nf4Chr:
			typeChar = 'c'
		case attrs.Nf4Lnk:
			typeChar = 'l'
		case attrs.Nf4Sock:
			typeChar = 's'
		case attrs.Nf4Fifo:
			typeChar = 'p'
		}
	}

	var mode uint32
	if a.Mode != nil {
		mode = *a.Mode
	}

	bits := []byte{typeChar, '-', '-', '-', '-', '-', '-', '-', '-', '-'}
	flags := []uint32{0o400, 0o200, 0o100, 0o040, 0o020, 0o010, 0o004, 0o002, 0o001}
	chars := []byte{'r', 'w', 'x', 'r', 'w', 'x', 'r', 'w', 'x'}
	for i, bit := range flags {
		if mode&bit != 0 {
			bits[i+1] = chars[i]
		}
	}
	return string(bits)
}
