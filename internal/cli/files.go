package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blogdesk/mdxmanager/internal/app"
	"github.com/blogdesk/mdxmanager/internal/cloud/storage"
	"github.com/blogdesk/mdxmanager/internal/events"
	"github.com/blogdesk/mdxmanager/internal/pathutil"
	"github.com/blogdesk/mdxmanager/internal/progress"
	"github.com/blogdesk/mdxmanager/internal/tree"
	"github.com/blogdesk/mdxmanager/internal/validation"
)

var errSkipped = errors.New("skipped")

// pathArg normalizes a user-supplied key or folder path.
func pathArg(arg string) string {
	return storage.Join(strings.Split(arg, "/")...)
}

// resolveFile finds the file a user-supplied key names in the last
// listing. It returns the key exactly as stored.
func resolveFile(s *session, arg string) (*tree.File, error) {
	forest := s.ctrl.Forest()
	p := pathArg(arg)
	if f, ok := forest.File(p); ok {
		return f, nil
	}
	if _, ok := forest.Folder(p); ok {
		return nil, fmt.Errorf("'%s' is a folder", arg)
	}
	return nil, fmt.Errorf("no file named '%s'", arg)
}

// trackBars completes the bars of ui from the operation events of ops.
// The returned stop function unsubscribes, applies the events already
// delivered and waits for the tracker.
func trackBars(bus *events.EventBus, ui *progress.BatchUI, ops ...string) (stop func()) {
	watched := make(map[string]bool, len(ops))
	for _, op := range ops {
		watched[op] = true
	}
	apply := func(ev events.Event) {
		oe, ok := ev.(*events.OperationEvent)
		if !ok || !watched[oe.Op] {
			return
		}
		bar, ok := ui.Bar(oe.Key)
		if !ok {
			return
		}
		switch oe.Type() {
		case events.EventOperationCompleted:
			bar.Complete(nil)
		case events.EventOperationFailed:
			bar.Complete(oe.Error)
		}
	}

	ch := bus.SubscribeAll()
	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				apply(ev)
			case <-quit:
				for {
					select {
					case ev, ok := <-ch:
						if !ok {
							return
						}
						apply(ev)
					default:
						return
					}
				}
			}
		}
	}()
	return func() {
		bus.UnsubscribeAll(ch)
		close(quit)
		<-done
	}
}

// newUploadCmd creates the 'upload' command.
func newUploadCmd() *cobra.Command {
	var (
		folder    string
		as        string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "upload <file> [file...]",
		Short: "Upload local files",
		Long: `Upload local files to the bucket.

Files land in posts/ under their own name unless --to names another
folder, or --as gives the full key of a single file. When a key is
already taken you are asked whether to update it; --overwrite (or --yes)
updates without asking.

Examples:
  mdxmanager upload draft.mdx
  mdxmanager upload *.md --to posts/2024
  mdxmanager upload notes.md --as guides/setup.md --overwrite`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if as != "" && len(args) > 1 {
				return fmt.Errorf("--as can only be used with a single file")
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			if overwrite {
				s.notifier.assumeYes = true
			}

			ui := progress.NewBatchUI("Uploading", len(args), cmd.ErrOrStderr())
			s.notifier.quiet = true
			s.notifier.setOutput(ui.Writer(), ui.Writer())
			stop := trackBars(s.bus, ui, "upload", "update")

			var bars []*progress.FileBar
			var localErrs int
			for _, local := range args {
				key := as
				switch {
				case key != "":
				case folder != "":
					key = storage.Join(folder, filepath.Base(local))
				default:
					key = app.DefaultRemotePath(local)
				}
				info, err := os.Stat(local)
				if err == nil && info.IsDir() {
					err = fmt.Errorf("%s is a directory", local)
				}
				bar := ui.AddFileBar(key, local, key, sizeOf(info))
				if err != nil {
					bar.Complete(err)
					localErrs++
					continue
				}
				bars = append(bars, bar)
				s.ctrl.Upload(local, key)
			}

			waitErr := s.wait()
			stop()
			for _, bar := range bars {
				bar.Complete(errSkipped)
			}
			ui.Wait()

			if waitErr != nil {
				return waitErr
			}
			if localErrs > 0 {
				return fmt.Errorf("%d file(s) could not be read", localErrs)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&folder, "to", "t", "", "Destination folder (default posts)")
	cmd.Flags().StringVar(&as, "as", "", "Destination key for a single file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Update existing files without asking")

	return cmd
}

func sizeOf(info os.FileInfo) int64 {
	if info == nil {
		return 0
	}
	return info.Size()
}

// newDownloadCmd creates the 'download' command.
func newDownloadCmd() *cobra.Command {
	var (
		outDir    string
		output    string
		keepPaths bool
	)

	cmd := &cobra.Command{
		Use:   "download <key> [key...]",
		Short: "Download files",
		Long: `Download files from the bucket.

Each file is written to the output directory under its own name, or under
its full key with --keep-paths. A single file can be written to any path
with --output.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" && len(args) > 1 {
				return fmt.Errorf("--output can only be used with a single key")
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			if err := s.refresh(); err != nil {
				return err
			}

			files := make([]*tree.File, 0, len(args))
			for _, arg := range args {
				f, err := resolveFile(s, arg)
				if err != nil {
					return err
				}
				files = append(files, f)
			}
			dir, err := pathutil.ResolveAbsolutePath(outDir)
			if err != nil {
				return fmt.Errorf("invalid output directory: %w", err)
			}
			dests := make([]pathutil.Download, len(files))
			for i, f := range files {
				dests[i].Key = f.Key
				switch {
				case output != "":
					if dests[i].LocalPath, err = pathutil.ResolveAbsolutePath(output); err != nil {
						return fmt.Errorf("invalid output path: %w", err)
					}
				case keepPaths:
					dests[i].LocalPath = filepath.Join(dir, filepath.FromSlash(f.FullPath))
					if err := validation.ValidatePathInDirectory(dests[i].LocalPath, dir); err != nil {
						return err
					}
				default:
					dests[i].LocalPath = filepath.Join(dir, f.Name)
				}
			}
			if _, n := pathutil.ResolveCollisions(dests); n > 0 {
				GetLogger().Info().Int("files", n).Msg("Files with the same name were renamed after their folder")
			}

			if len(files) == 1 {
				f := files[0]
				bar := progress.NewCLIProgress(cmd.ErrOrStderr())
				bar.Start(-1, "Downloading "+f.Name)
				s.ctrl.Download(f.Key, dests[0].LocalPath)
				err := s.wait()
				if err == nil {
					bar.Update(f.Size)
				}
				bar.Finish()
				return err
			}

			ui := progress.NewBatchUI("Downloading", len(files), cmd.ErrOrStderr())
			s.notifier.quiet = true
			s.notifier.setOutput(ui.Writer(), ui.Writer())
			stop := trackBars(s.bus, ui, "download")
			for i, f := range files {
				dest := dests[i].LocalPath
				ui.AddFileBar(f.Key, f.FullPath, dest, f.Size)
				s.ctrl.Download(f.Key, dest)
			}
			err = s.wait()
			stop()
			ui.Wait()
			return err
		},
	}

	cmd.Flags().StringVarP(&outDir, "outdir", "d", ".", "Output directory")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file for a single key")
	cmd.Flags().BoolVar(&keepPaths, "keep-paths", false, "Recreate the folder structure under the output directory")

	return cmd
}

// newCatCmd creates the 'cat' command.
func newCatCmd() *cobra.Command {
	var titleOnly bool

	cmd := &cobra.Command{
		Use:   "cat <key>",
		Short: "Print a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			doc, err := openDocument(s, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if titleOnly {
				fmt.Fprintln(out, doc.DisplayName())
				return nil
			}
			_, err = io.WriteString(out, doc.Content)
			return err
		},
	}

	cmd.Flags().BoolVar(&titleOnly, "title", false, "Print only the document title")
	return cmd
}

// newInfoCmd creates the 'info' command.
func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <key>",
		Short: "Show file details, front matter and outline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			doc, err := openDocument(s, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Key:        %s\n", doc.Key)
			fmt.Fprintf(out, "Size:       %s\n", tree.FormatFileSize(doc.Size))
			fmt.Fprintf(out, "Modified:   %s\n", tree.FormatDate(doc.UpdatedAt))
			if doc.PublicURL != "" {
				fmt.Fprintf(out, "Public URL: %s\n", doc.PublicURL)
			}
			if doc.Title != "" {
				fmt.Fprintf(out, "Title:      %s\n", doc.Title)
			}
			if doc.ParseError != nil {
				fmt.Fprintf(out, "Front matter could not be parsed: %v\n", doc.ParseError)
			}

			if len(doc.FrontMatter) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Front matter:")
				keys := make([]string, 0, len(doc.FrontMatter))
				for k := range doc.FrontMatter {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(out, "  %s: %v\n", k, doc.FrontMatter[k])
				}
			}

			if len(doc.Headings) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Outline:")
				for _, h := range doc.Headings {
					fmt.Fprintf(out, "  %s%s\n", strings.Repeat("  ", h.Level-1), h.Text)
				}
			}
			return nil
		},
	}
	return cmd
}

// newEditCmd creates the 'edit' command.
func newEditCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "edit <key>",
		Short: "Replace the content of a file",
		Long: `Replace the content of a file.

With --from the new content is read from a local file, or from stdin
when the value is "-". Without it the file is opened in $EDITOR and
saved back when the editor exits with changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			doc, err := openDocument(s, args[0])
			if err != nil {
				return err
			}

			var content []byte
			switch from {
			case "":
				content, err = editInEditor(doc.Name, []byte(doc.Content))
			case "-":
				content, err = io.ReadAll(cmd.InOrStdin())
			default:
				content, err = os.ReadFile(from)
			}
			if err != nil {
				return err
			}
			if string(content) == doc.Content {
				fmt.Fprintln(cmd.OutOrStdout(), "No changes")
				return nil
			}

			s.ctrl.Save(string(content))
			return s.wait()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Read the new content from a file (- for stdin)")
	return cmd
}

// openDocument refreshes, resolves arg and loads it into the controller.
func openDocument(s *session, arg string) (*app.Document, error) {
	if err := s.refresh(); err != nil {
		return nil, err
	}
	f, err := resolveFile(s, arg)
	if err != nil {
		return nil, err
	}
	s.ctrl.Open(f.Key)
	if err := s.wait(); err != nil {
		return nil, err
	}
	doc := s.ctrl.Document()
	if doc == nil {
		return nil, fmt.Errorf("failed to load %s", arg)
	}
	return doc, nil
}

// editInEditor opens content in $VISUAL or $EDITOR and returns the result.
func editInEditor(name string, content []byte) ([]byte, error) {
	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
		if runtime.GOOS == "windows" {
			editor = "notepad"
		}
	}

	tmp, err := os.CreateTemp("", "mdxmanager-*-"+name)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	parts := strings.Fields(editor)
	c := exec.Command(parts[0], append(parts[1:], tmp.Name())...)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		return nil, fmt.Errorf("editor %s failed: %w", parts[0], err)
	}
	return os.ReadFile(tmp.Name())
}
