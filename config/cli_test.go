package config

import (
	"bytes"
	"os"
	"testing"
)

func TestParseArgs_PositionalTask(t *testing.T) {
	var out bytes.Buffer
	args, err := ParseArgs([]string{"find", "the", "top", "post"}, &out)
	if err != nil {
		t.Fatalf("ParseArgs: unexpected error %v", err)
	}
	if args.Task != "find the top post" {
		t.Errorf("Task = %q, want %q", args.Task, "find the top post")
	}
}

func TestParseArgs_PFlag(t *testing.T) {
	var out bytes.Buffer
	args, err := ParseArgs([]string{"-p", "search for go release notes"}, &out)
	if err != nil {
		t.Fatalf("ParseArgs: unexpected error %v", err)
	}
	if args.Task != "search for go release notes" {
		t.Errorf("Task = %q, want the -p value", args.Task)
	}
}

func TestParseArgs_PAndPositionalMutuallyExclusive(t *testing.T) {
	var out bytes.Buffer
	_, err := ParseArgs([]string{"-p", "do something", "also", "this"}, &out)
	if err == nil {
		t.Fatal("ParseArgs with -p and positional words: want error, got nil")
	}
	if !IsUsageError(err) {
		t.Errorf("error %v is not a usage error", err)
	}
}

func TestParseArgs_NoTaskIsUsageError(t *testing.T) {
	var out bytes.Buffer
	_, err := ParseArgs([]string{"--headless"}, &out)
	if err == nil || !IsUsageError(err) {
		t.Fatalf("ParseArgs with no task: err = %v, want a usage error", err)
	}
}

func TestParseArgs_UnknownFlagIsUsageError(t *testing.T) {
	var out bytes.Buffer
	_, err := ParseArgs([]string{"--not-a-flag", "task"}, &out)
	if err == nil || !IsUsageError(err) {
		t.Fatalf("ParseArgs with unknown flag: err = %v, want a usage error", err)
	}
}

func TestParseArgs_AllowedDomainsAndNoProxySplitTrimmed(t *testing.T) {
	var out bytes.Buffer
	args, err := ParseArgs([]string{
		"--allowed-domains", " example.com, sub.example.com ,",
		"--no-proxy", "localhost, 127.0.0.1",
		"task",
	}, &out)
	if err != nil {
		t.Fatalf("ParseArgs: unexpected error %v", err)
	}
	wantDomains := []string{"example.com", "sub.example.com"}
	if len(args.AllowedDomains) != len(wantDomains) {
		t.Fatalf("AllowedDomains = %v, want %v", args.AllowedDomains, wantDomains)
	}
	for i, d := range wantDomains {
		if args.AllowedDomains[i] != d {
			t.Errorf("AllowedDomains[%d] = %q, want %q", i, args.AllowedDomains[i], d)
		}
	}
	wantNoProxy := []string{"localhost", "127.0.0.1"}
	for i, d := range wantNoProxy {
		if args.NoProxy[i] != d {
			t.Errorf("NoProxy[%d] = %q, want %q", i, args.NoProxy[i], d)
		}
	}
}

func TestParseArgs_ExpandsTildeInUserDataDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	var out bytes.Buffer
	args, err := ParseArgs([]string{"--user-data-dir", "~/profiles/default", "task"}, &out)
	if err != nil {
		t.Fatalf("ParseArgs: unexpected error %v", err)
	}
	want := home + "/profiles/default"
	if args.UserDataDir != want {
		t.Errorf("UserDataDir = %q, want %q", args.UserDataDir, want)
	}
}

func TestParseArgs_WindowDefaults(t *testing.T) {
	var out bytes.Buffer
	args, err := ParseArgs([]string{"task"}, &out)
	if err != nil {
		t.Fatalf("ParseArgs: unexpected error %v", err)
	}
	if args.WindowWidth != 1280 || args.WindowHeight != 1100 {
		t.Errorf("window defaults = %dx%d, want 1280x1100", args.WindowWidth, args.WindowHeight)
	}
}

func TestParseArgs_MCPAllowsNoTask(t *testing.T) {
	var out bytes.Buffer
	args, err := ParseArgs([]string{"--mcp"}, &out)
	if err != nil {
		t.Fatalf("ParseArgs: unexpected error %v", err)
	}
	if !args.MCP {
		t.Error("MCP = false, want true")
	}
	if args.Task != "" {
		t.Errorf("Task = %q, want empty", args.Task)
	}
}

func TestParseArgs_DebugAddr(t *testing.T) {
	var out bytes.Buffer
	args, err := ParseArgs([]string{"--debug-addr", "localhost:9222", "task"}, &out)
	if err != nil {
		t.Fatalf("ParseArgs: unexpected error %v", err)
	}
	if args.DebugAddr != "localhost:9222" {
		t.Errorf("DebugAddr = %q, want %q", args.DebugAddr, "localhost:9222")
	}
}
