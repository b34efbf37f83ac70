package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// ExitUsage and ExitRuntime are the process exit codes spec.md §6 assigns
// to usage errors and runtime failures; success is the implicit 0.
const (
	ExitUsage   = 2
	ExitRuntime = 1
)

// CLIArgs is the parsed flag/positional surface of spec.md §6's
// `browser-use` command.
type CLIArgs struct {
	Provider         string
	Model            string
	Headless         bool
	WindowWidth      int
	WindowHeight     int
	UserDataDir      string
	ProfileDirectory string
	AllowedDomains   []string
	ProxyURL         string
	NoProxy          []string
	ProxyUsername    string
	ProxyPassword    string
	AllowInsecure    bool
	CDPURL           string
	Task             string
	MCP              bool
	DebugAddr        string
}

// ParseArgs parses argv (excluding the program name) per spec.md §6: flag
// parsing, tilde expansion on path flags, comma-separated trimming on
// --allowed-domains/--no-proxy, and -p/positional mutual exclusion. usage is
// written to out on a parse error or -h.
func ParseArgs(argv []string, out io.Writer) (*CLIArgs, error) {
	fs := flag.NewFlagSet("browser-use", flag.ContinueOnError)
	fs.SetOutput(out)

	a := &CLIArgs{}
	var prompt string
	var allowedDomains, noProxy string

	fs.StringVar(&a.Provider, "provider", "", "LLM provider")
	fs.StringVar(&a.Model, "model", "", "LLM model")
	fs.BoolVar(&a.Headless, "headless", false, "run the browser headless")
	fs.IntVar(&a.WindowWidth, "window-width", 1280, "browser window width")
	fs.IntVar(&a.WindowHeight, "window-height", 1100, "browser window height")
	fs.StringVar(&a.UserDataDir, "user-data-dir", "", "browser profile directory")
	fs.StringVar(&a.ProfileDirectory, "profile-directory", "", "Chrome profile subdirectory")
	fs.StringVar(&allowedDomains, "allowed-domains", "", "comma-separated list of navigable domains")
	fs.StringVar(&a.ProxyURL, "proxy-url", "", "HTTP/SOCKS proxy URL")
	fs.StringVar(&noProxy, "no-proxy", "", "comma-separated list of proxy bypass hosts")
	fs.StringVar(&a.ProxyUsername, "proxy-username", "", "proxy auth username")
	fs.StringVar(&a.ProxyPassword, "proxy-password", "", "proxy auth password")
	fs.BoolVar(&a.AllowInsecure, "allow-insecure", false, "ignore TLS certificate errors")
	fs.StringVar(&a.CDPURL, "cdp-url", "", "connect to an existing CDP endpoint instead of launching a browser")
	fs.StringVar(&prompt, "p", "", "task prompt (mutually exclusive with positional task words)")
	fs.BoolVar(&a.MCP, "mcp", false, "serve the action registry as MCP tools over stdio instead of running a task")
	fs.StringVar(&a.DebugAddr, "debug-addr", "", "address for an optional local debug HTTP server (/healthz, /state)")

	fs.Usage = func() {
		fmt.Fprintf(out, "usage: browser-use [flags] (-p \"task\" | task words...)\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(argv); err != nil {
		return nil, usageError{err}
	}

	positional := strings.Join(fs.Args(), " ")
	if prompt != "" && positional != "" {
		return nil, usageError{fmt.Errorf("-p and positional task words are mutually exclusive")}
	}
	a.Task = prompt
	if a.Task == "" {
		a.Task = positional
	}
	if a.Task == "" && !a.MCP {
		return nil, usageError{fmt.Errorf("no task given")}
	}

	a.UserDataDir = expandTilde(a.UserDataDir)
	a.CDPURL = a.CDPURL

	a.AllowedDomains = splitTrimmed(allowedDomains)
	a.NoProxy = splitTrimmed(noProxy)

	return a, nil
}

// usageError marks an error that should exit with ExitUsage rather than
// ExitRuntime.
type usageError struct{ err error }

func (u usageError) Error() string { return u.err.Error() }
func (u usageError) Unwrap() error { return u.err }

// IsUsageError reports whether err (as returned by ParseArgs) denotes a
// usage error, for selecting the process exit code.
func IsUsageError(err error) bool {
	_, ok := err.(usageError)
	return ok
}

func splitTrimmed(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func expandTilde(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return home + path[1:]
	}
	return path
}
