// mdxmanager - Markdown/MDX file manager for object storage buckets.
//
// Mode selection:
// - No args + display available → GUI mode
// - No args + no display → CLI help
// - --gui → GUI mode
// - --cli → CLI mode (force)
// - CLI subcommands/flags → CLI mode
package main

import (
	"os"
	"runtime"
	"slices"

	"github.com/blogdesk/mdxmanager/internal/cli"
	"github.com/blogdesk/mdxmanager/internal/constants"
)

func main() {
	// Enable per-call storage timings (works with both GUI and CLI)
	if slices.Contains(os.Args, "--timing") {
		os.Setenv(constants.TimingEnvVar, "1")
	}

	cliMode := isCLIMode(os.Args)
	os.Args = append(os.Args[:1], stripModeFlags(os.Args[1:])...)

	if cliMode {
		if err := cli.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := cli.ExecuteGUI(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// stripModeFlags removes the flags handled here before cobra sees them.
func stripModeFlags(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--gui" || a == "--cli" || a == "--timing" {
			continue
		}
		out = append(out, a)
	}
	return out
}

// isCLIMode determines whether to run in CLI mode based on arguments and
// environment.
//
// CLI mode when:
// - --cli flag is present (force CLI mode)
// - CLI subcommands are present (tree, upload, config, etc.)
// - CLI flags are present (--help, --version, -h)
// - No display available (DISPLAY/WAYLAND_DISPLAY not set on Linux)
//
// GUI mode when:
// - --gui flag is present (force GUI mode)
// - No arguments (besides global flags) and display is available
func isCLIMode(argv []string) bool {
	if slices.Contains(argv, "--cli") {
		return true
	}
	if slices.Contains(argv, "--gui") {
		return false
	}

	cliPatterns := []string{
		// Subcommands
		"tree", "ls", "upload", "download", "cat", "info", "edit", "rm",
		"mv", "mkdir", "url", "config", "gui", "completion", "help",
		// Flags
		"--help", "-h", "--version",
	}
	for _, arg := range argv[1:] {
		if slices.Contains(cliPatterns, arg) {
			return true
		}
	}

	if len(stripModeFlags(argv[1:])) == 0 {
		if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return true
		}
		return false
	}

	// Unknown arguments: let cobra report them rather than opening a window.
	return true
}
