package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blogdesk/mdxmanager/internal/tree"
)

// newTreeCmd creates the 'tree' command.
func newTreeCmd() *cobra.Command {
	var (
		all     bool
		details bool
		filter  string
		expand  []string
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the bucket as a folder tree",
		Long: `Show the bucket as a folder tree.

Folders are collapsed unless listed with --expand or --all is given.
With --filter only files and folders whose name or path contains the
query are shown, together with their parent folders.

Examples:
  mdxmanager tree --all
  mdxmanager tree --expand posts --expand posts/2024
  mdxmanager tree --filter draft -l`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			for _, p := range expand {
				s.ctrl.Expand(p)
			}
			if err := s.refresh(); err != nil {
				return err
			}
			s.logger.Debug().Strs("expanded", s.ctrl.Expansion().Snapshot()).Msg("Tree built")
			s.ctrl.SetFilter(filter)

			view := s.ctrl.View()
			out := cmd.OutOrStdout()
			if view.Len() == 0 {
				if filter != "" {
					fmt.Fprintf(out, "No files match %q\n", filter)
				} else {
					fmt.Fprintln(out, "Bucket is empty")
				}
				return nil
			}
			if err := tree.Render(out, view, tree.RenderOptions{All: all || filter != "", Details: details}); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d folders, %d files\n", len(view.Folders()), len(view.Files()))
			if n := len(s.ctrl.Forest().Skipped); n > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d keys could not be placed in the tree (see --verbose)\n", n)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Expand every folder")
	cmd.Flags().BoolVarP(&details, "long", "l", false, "Show size and modification date")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Only show entries matching the query")
	cmd.Flags().StringSliceVarP(&expand, "expand", "e", nil, "Expand a folder (repeatable)")

	return cmd
}

// newLsCmd creates the 'ls' command.
func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls [folder]",
		Short: "List the contents of a folder",
		Long: `List the direct children of a folder, or of the bucket root when no
folder is given. Folders are listed first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.refresh(); err != nil {
				return err
			}

			forest := s.ctrl.Forest()
			folder := ""
			if len(args) == 1 {
				folder = pathArg(args[0])
				if _, ok := forest.Folder(folder); !ok {
					return fmt.Errorf("no folder named '%s'", args[0])
				}
			}

			out := cmd.OutOrStdout()
			for _, n := range forest.Children(folder) {
				switch v := n.(type) {
				case *tree.Folder:
					fmt.Fprintf(out, "%s %s/\n", tree.MarkerFolderClosed, v.Name)
				case *tree.File:
					fmt.Fprintf(out, "%s %-40s %10s  %s\n", tree.MarkerFile, v.Name, tree.FormatFileSize(v.Size), tree.FormatDate(v.UpdatedAt))
				}
			}
			return nil
		},
	}
	return cmd
}
