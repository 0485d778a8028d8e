package cli

import (
	"github.com/spf13/cobra"

	"github.com/blogdesk/mdxmanager/internal/constants"
	"github.com/blogdesk/mdxmanager/internal/events"
	"github.com/blogdesk/mdxmanager/internal/gui"
	"github.com/blogdesk/mdxmanager/internal/logging"
)

// newGUICmd creates the 'gui' command.
func newGUICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gui",
		Short: "Open the desktop window",
		Long: `Open the desktop window: the folder tree of the bucket, a Markdown
editor and the file actions. Uses the same settings and secrets as the CLI.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bus := events.NewEventBus(constants.EventBusDefaultBuffer)
			log := logging.NewLogger("gui", bus)
			defer log.Close()

			settings, _, backend, err := connect(GetContext(), log)
			if err != nil {
				bus.Close()
				return err
			}
			return gui.Run(gui.Options{
				Backend: backend,
				Bus:     bus,
				Logger:  log,
				Bucket:  settings.Storage.Bucket,
			})
		},
	}
	return cmd
}
