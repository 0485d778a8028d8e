package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blogdesk/mdxmanager/internal/validation"
)

// newRmCmd creates the 'rm' command.
func newRmCmd() *cobra.Command {
	var folder bool

	cmd := &cobra.Command{
		Use:   "rm <key> [key...]",
		Short: "Delete files or folders",
		Long: `Delete files from the bucket. Each deletion is confirmed unless --yes
is given.

With --folder the arguments name folders, and every object under each
folder is deleted, empty-folder markers included.`,
		Args: cobra.MinimumNArgs(1),
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
			for _, arg := range args {
				if folder {
					if _, ok := forest.Folder(pathArg(arg)); !ok {
						return fmt.Errorf("no folder named '%s'", arg)
					}
					continue
				}
				if _, err := resolveFile(s, arg); err != nil {
					if _, ok := forest.Folder(pathArg(arg)); ok {
						return fmt.Errorf("%w (use --folder to delete it with its contents)", err)
					}
					return err
				}
			}

			for _, arg := range args {
				if folder {
					s.ctrl.DeleteFolder(arg)
					continue
				}
				f, _ := resolveFile(s, arg)
				s.ctrl.Delete(f.Key)
			}
			return s.wait()
		},
	}

	cmd.Flags().BoolVarP(&folder, "folder", "r", false, "Delete folders and everything under them")
	return cmd
}

// newMvCmd creates the 'mv' command.
func newMvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mv <key> <new-name>",
		Short: "Rename a file within its folder",
		Long: `Rename a file within its folder. The content is copied to the new
name and the original is removed. Folders cannot be renamed, and an
existing file is never overwritten.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			newName := strings.TrimSpace(args[1])
			if err := validation.ValidateName(newName); err != nil {
				return fmt.Errorf("invalid new name: %w", err)
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			if err := s.refresh(); err != nil {
				return err
			}
			if _, ok := s.ctrl.Forest().Folder(pathArg(args[0])); ok {
				return fmt.Errorf("renaming folders is not supported")
			}
			f, err := resolveFile(s, args[0])
			if err != nil {
				return err
			}
			if newName == f.Name {
				fmt.Fprintln(cmd.OutOrStdout(), "Name unchanged")
				return nil
			}

			s.ctrl.Rename(f.Key, newName)
			return s.wait()
		},
	}
	return cmd
}

// newMkdirCmd creates the 'mkdir' command.
func newMkdirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create an empty folder",
		Long: `Create an empty folder. Object storage has no folders, so a small
marker object named .emptyFolderPlaceholder is stored inside it. Creating
a folder that already exists succeeds.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			s.ctrl.CreateFolder(args[0])
			return s.wait()
		},
	}
	return cmd
}

// newURLCmd creates the 'url' command.
func newURLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "url <key>",
		Short: "Print the public URL of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			if err := s.refresh(); err != nil {
				return err
			}
			f, err := resolveFile(s, args[0])
			if err != nil {
				return err
			}

			url, err := s.ctrl.PublicURL(f.Key)
			if err != nil {
				return fmt.Errorf("failed to get public URL: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
	return cmd
}
