package config

import (
	"testing"
)

func TestHistoryStore_AppendAndReload(t *testing.T) {
	t.Setenv("BROWSER_USE_CONFIG_DIR", t.TempDir())

	h := LoadHistoryStore()
	if len(h.Entries()) != 0 {
		t.Fatalf("fresh store Entries() = %v, want empty", h.Entries())
	}

	if err := h.Append("find the top post"); err != nil {
		t.Fatalf("Append: unexpected error %v", err)
	}
	if err := h.Append("go to news.ycombinator.com"); err != nil {
		t.Fatalf("Append: unexpected error %v", err)
	}

	reloaded := LoadHistoryStore()
	if len(reloaded.Entries()) != 2 {
		t.Fatalf("reloaded Entries() = %v, want 2 entries", reloaded.Entries())
	}
	if reloaded.Entries()[0] != "find the top post" {
		t.Errorf("reloaded.Entries()[0] = %q, want %q", reloaded.Entries()[0], "find the top post")
	}
}

func TestHistoryStore_FIFOCap(t *testing.T) {
	t.Setenv("BROWSER_USE_CONFIG_DIR", t.TempDir())

	h := LoadHistoryStore()
	for i := 0; i < MaxHistoryEntries+10; i++ {
		if err := h.Append("cmd"); err != nil {
			t.Fatalf("Append #%d: unexpected error %v", i, err)
		}
	}
	if len(h.Entries()) != MaxHistoryEntries {
		t.Errorf("Entries() len = %d, want %d (FIFO cap)", len(h.Entries()), MaxHistoryEntries)
	}
}

func TestHistoryStore_AppendEmptyIsNoOp(t *testing.T) {
	t.Setenv("BROWSER_USE_CONFIG_DIR", t.TempDir())

	h := LoadHistoryStore()
	if err := h.Append(""); err != nil {
		t.Fatalf("Append(\"\"): unexpected error %v", err)
	}
	if len(h.Entries()) != 0 {
		t.Errorf("Entries() after Append(\"\") = %v, want empty", h.Entries())
	}
}

func TestIsExitCommand(t *testing.T) {
	for _, cmd := range []string{"exit", "quit", ":q"} {
		if !IsExitCommand(cmd) {
			t.Errorf("IsExitCommand(%q) = false, want true", cmd)
		}
	}
	if IsExitCommand("exit now") {
		t.Error(`IsExitCommand("exit now") = true, want false`)
	}
}

func TestIsHelpCommand(t *testing.T) {
	for _, cmd := range []string{"help", "?"} {
		if !IsHelpCommand(cmd) {
			t.Errorf("IsHelpCommand(%q) = false, want true", cmd)
		}
	}
	if IsHelpCommand("help me") {
		t.Error(`IsHelpCommand("help me") = true, want false`)
	}
}
