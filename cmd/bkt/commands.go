package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rowjay/bucket-browser/internal/app"
	"github.com/rowjay/bucket-browser/internal/storage"
)

func newConnectCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Check that the bucket is reachable with the configured credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, overrides, func(ctx context.Context, a *app.App) error {
				res := a.Connect(ctx)
				if !res.OK {
					return fmt.Errorf("connection failed: %s", res.Error)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "connected")
				return nil
			})
		},
	}
}

func newListCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:     "ls [prefix]",
		Aliases: []string{"list"},
		Short:   "List a folder, or every object under a prefix with --recursive",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			return withApp(root, overrides, func(ctx context.Context, a *app.App) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				defer w.Flush()
				if recursive {
					objects, err := a.ListAll(ctx, prefix)
					if err != nil {
						return err
					}
					for _, obj := range objects {
						printObject(w, obj)
					}
					return nil
				}
				listing, err := a.List(ctx, prefix)
				if err != nil {
					return err
				}
				for _, folder := range listing.Folders {
					fmt.Fprintf(w, "%s\t%s\t%s\n", folder, "-", "DIR")
				}
				for _, obj := range listing.Objects {
					printObject(w, obj)
				}
				if listing.Truncated {
					fmt.Fprintf(cmd.ErrOrStderr(), "listing truncated after %d entries; use --recursive for everything\n", len(listing.Folders)+len(listing.Objects))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "List every object under the prefix")
	return cmd
}

func printObject(w *tabwriter.Writer, obj storage.Object) {
	fmt.Fprintf(w, "%s\t%s\t%s\n", obj.Key, humanize.Bytes(uint64(obj.Size)), obj.LastModified)
}

func newStatCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <key>",
		Short: "Show size and modification time of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, overrides, func(ctx context.Context, a *app.App) error {
				obj, err := a.Stat(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "key:           %s\n", obj.Key)
				fmt.Fprintf(out, "size:          %s (%s bytes)\n", humanize.Bytes(uint64(obj.Size)), humanize.Comma(obj.Size))
				fmt.Fprintf(out, "last modified: %s\n", obj.LastModified)
				return nil
			})
		},
	}
}

func newUploadCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <local-file> <key>",
		Short: "Upload a local file; a key ending in / keeps the file name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, overrides, func(ctx context.Context, a *app.App) error {
				bar := attachBar(a)
				defer bar.Finish()
				return a.Upload(ctx, args[0], args[1])
			})
		},
	}
}

func newDownloadCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "download <key> <destination>",
		Short: "Download an object to a file or directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, overrides, func(ctx context.Context, a *app.App) error {
				bar := attachBar(a)
				defer bar.Finish()
				return a.Download(ctx, args[0], args[1])
			})
		},
	}
}

func newDeleteCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <key>",
		Aliases: []string{"delete"},
		Short:   "Delete an object, or a whole folder when the key ends in /",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, overrides, func(ctx context.Context, a *app.App) error {
				return a.Delete(ctx, args[0])
			})
		},
	}
}

func newMoveCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "mv <src> <dst>",
		Aliases: []string{"move"},
		Short:   "Move an object or folder",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, overrides, func(ctx context.Context, a *app.App) error {
				return a.Move(ctx, args[0], args[1])
			})
		},
	}
}

func newCopyCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "cp <src> <dst>",
		Aliases: []string{"copy"},
		Short:   "Copy an object or folder on the provider side",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, overrides, func(ctx context.Context, a *app.App) error {
				return a.Copy(ctx, args[0], args[1])
			})
		},
	}
}

func newExistsCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <key>",
		Short: "Print true when the object exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, overrides, func(ctx context.Context, a *app.App) error {
				fmt.Fprintln(cmd.OutOrStdout(), a.Exists(ctx, args[0]))
				return nil
			})
		},
	}
}

func newMkdirCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "mkdir <key/>",
		Aliases: []string{"create-folder"},
		Short:   "Create an empty folder marker",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, overrides, func(ctx context.Context, a *app.App) error {
				return a.CreateFolder(ctx, args[0])
			})
		},
	}
}
