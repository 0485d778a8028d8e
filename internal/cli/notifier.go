package cli

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/blogdesk/mdxmanager/internal/app"
	"github.com/blogdesk/mdxmanager/internal/logging"
)

// cliNotifier implements app.Notifier on the terminal. Confirmations are
// asked on stdin unless --yes was given or stdin is not interactive, in
// which case they are declined with a hint.
type cliNotifier struct {
	mu          sync.Mutex
	in          *bufio.Reader
	out         io.Writer
	errOut      io.Writer
	assumeYes   bool
	interactive bool
	quiet       bool
	logger      *logging.Logger
	errors      []string
}

func newCLINotifier(in io.Reader, out, errOut io.Writer, assumeYes bool, logger *logging.Logger) *cliNotifier {
	return &cliNotifier{
		in:          bufio.NewReader(in),
		out:         out,
		errOut:      errOut,
		assumeYes:   assumeYes,
		interactive: isInteractive(in),
		logger:      logging.OrNop(logger),
	}
}

// setOutput redirects output, e.g. above progress bars.
func (n *cliNotifier) setOutput(out, errOut io.Writer) {
	n.mu.Lock()
	n.out, n.errOut = out, errOut
	n.mu.Unlock()
}

func (n *cliNotifier) Status(msg string, busy bool) {
	n.logger.Debug().Bool("busy", busy).Msg(msg)
}

func (n *cliNotifier) Info(title, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.quiet {
		fmt.Fprintf(n.out, "✓ %s\n", msg)
	}
}

func (n *cliNotifier) Error(title, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
	fmt.Fprintf(n.errOut, "✗ %s: %s\n", title, msg)
}

func (n *cliNotifier) Confirm(title, msg string, fn func(ok bool)) {
	if n.assumeYes {
		fn(true)
		return
	}
	if !n.interactive {
		fmt.Fprintf(n.errOut, "%s\n  (skipped: re-run with --yes to confirm)\n", msg)
		fn(false)
		return
	}
	ok, err := promptYesNo(n.in, n.errOut, msg)
	if err != nil {
		n.logger.Debug().Err(err).Msg("confirmation prompt failed")
	}
	fn(ok)
}

func (n *cliNotifier) TreeChanged()     {}
func (n *cliNotifier) DocumentChanged() {}

// err summarizes the failures reported so far.
func (n *cliNotifier) err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch len(n.errors) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("operation failed")
	default:
		return fmt.Errorf("%d operations failed", len(n.errors))
	}
}

var _ app.Notifier = (*cliNotifier)(nil)
