package session

import "github.com/hahsanayub/browseragent/session/internal/dom"

// Node and SelectorMap are exported aliases of the internal/dom types so
// that packages outside session/ (agent, actions) can name them in
// function signatures without importing session/internal/dom directly —
// Go's internal-package import restriction only blocks the import
// statement itself, not use of values already typed by that package
// through session's public API (BrowserStateSummary.SelectorMap).
type Node = dom.Node
type SelectorMap = dom.SelectorMap
type AXProps = dom.AXProps

// StableHash re-resolves a historical element during replay by content
// rather than position (spec.md §9 glossary "Stable hash").
func StableHash(n *Node) string { return dom.StableHash(n) }
