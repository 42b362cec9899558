package main

import (
	"os"
	"strings"

	"threadlist/internal/cli"
)

func isThreadID(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "thr-") && len(s) > len("thr-")
}

// rewriteDirectLookupArgs makes `threadlist <thread-id>` behave like
// `threadlist show <thread-id>`. Cobra treats the first positional token as
// a subcommand, so argv is rewritten before parsing.
func rewriteDirectLookupArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--dir":           true,
		"--mode":          true,
		"--poll-interval": true,
		"--log-level":     true,
		"--log-file":      true,
		"--format":        true,
	}

	insertShow := func(at int) []string {
		out := make([]string, 0, len(argv)+1)
		out = append(out, argv[:at]...)
		out = append(out, "show")
		return append(out, argv[at:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		switch {
		case a == "":
			continue
		case a == "--":
			if i+1 < len(argv) && isThreadID(argv[i+1]) {
				return insertShow(i)
			}
			return argv
		case strings.HasPrefix(a, "-"):
			// Unknown flags are assumed to be boolean so a thread id is never
			// consumed as a flag value.
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}

		// First positional token.
		if isThreadID(a) {
			return insertShow(i)
		}
		return argv
	}
	return argv
}

func main() {
	os.Args = rewriteDirectLookupArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
