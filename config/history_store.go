package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// MaxHistoryEntries caps the persisted interactive-mode command history
// (spec.md §6 "capped (FIFO)").
const MaxHistoryEntries = 500

// HistoryStore persists interactive-mode command history to
// `<config_dir>/command_history.json`.
type HistoryStore struct {
	path    string
	entries []string
}

// LoadHistoryStore reads the existing history file, if any, tolerating a
// missing or corrupt file by starting empty.
func LoadHistoryStore() *HistoryStore {
	path := filepath.Join(Dir(), "command_history.json")
	h := &HistoryStore{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		return h
	}
	var entries []string
	if err := json.Unmarshal(data, &entries); err == nil {
		h.entries = entries
	}
	return h
}

// Entries returns the history in oldest-to-newest order.
func (h *HistoryStore) Entries() []string { return h.entries }

// Append records cmd, evicting the oldest entry once MaxHistoryEntries is
// exceeded (FIFO cap), and persists the result.
func (h *HistoryStore) Append(cmd string) error {
	if cmd == "" {
		return nil
	}
	h.entries = append(h.entries, cmd)
	if len(h.entries) > MaxHistoryEntries {
		h.entries = h.entries[len(h.entries)-MaxHistoryEntries:]
	}
	return h.save()
}

func (h *HistoryStore) save() error {
	dir := filepath.Dir(h.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(h.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(h.path, data, 0o644)
}

// IsExitCommand reports whether cmd (already trimmed) terminates
// interactive mode, per spec.md §6.
func IsExitCommand(cmd string) bool {
	switch cmd {
	case "exit", "quit", ":q":
		return true
	default:
		return false
	}
}

// IsHelpCommand reports whether cmd requests the help text.
func IsHelpCommand(cmd string) bool {
	switch cmd {
	case "help", "?":
		return true
	default:
		return false
	}
}
