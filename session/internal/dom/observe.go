package dom

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
)

//go:embed capture.js
var captureScript string

// ObserveConfig configures one DomObserver.Capture call (spec.md §4.1
// "profile toggles").
type ObserveConfig struct {
	HighlightElements bool
	ViewportExpansion int // pixels; 0 = viewport-only, -1 = no limit

	Timeout time.Duration // overall budget, default 45s per spec.md §4.1
	Logger  *slog.Logger
}

func (c *ObserveConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 45 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ViewportMetrics mirrors the JS walk's viewport/page/scroll block.
type ViewportMetrics struct {
	ViewportW, ViewportH float64
	PageW, PageH         float64
	ScrollX, ScrollY     float64
}

type jsNode struct {
	Kind      string            `json:"kind"`
	Tag       string            `json:"tag"`
	Attrs     map[string]string `json:"attrs"`
	Text      string            `json:"text"`
	XPath     string            `json:"xpath"`
	AX        jsAX              `json:"ax"`
	Bounds    jsRect            `json:"bounds"`
	HasBounds bool              `json:"has_bounds"`
	Visible   bool              `json:"visible"`
	Scrollable bool             `json:"scrollable"`
	Parent    int               `json:"parent"`
	Children  []int             `json:"children"`
}

type jsAX struct {
	Role         string `json:"role"`
	Focusable    bool   `json:"focusable"`
	Hidden       bool   `json:"hidden"`
	Disabled     bool   `json:"disabled"`
	Editable     bool   `json:"editable"`
	Settable     bool   `json:"settable"`
	Expanded     bool   `json:"expanded"`
	Checked      bool   `json:"checked"`
	Selected     bool   `json:"selected"`
	Pressed      bool   `json:"pressed"`
	Required     bool   `json:"required"`
	Autocomplete bool   `json:"autocomplete"`
	KeyShortcuts bool   `json:"key_shortcuts"`
	Name         string `json:"name"`
}

type jsRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type jsResult struct {
	Nodes    []jsNode `json:"nodes"`
	Viewport struct{ Width, Height float64 } `json:"viewport"`
	Page     struct{ Width, Height float64 } `json:"page"`
	Scroll   struct{ X, Y float64 } `json:"scroll"`
}

// Capture walks the live page once and returns the raw tree plus viewport
// metrics (spec.md §4.1). On script timeout/failure it degrades to a
// minimal body-only tree and reports degraded=true rather than an error —
// "failure semantics: script failure/timeout degrades to minimal tree;
// never throws to caller".
func Capture(page *rod.Page, cfg ObserveConfig) (*Tree, ViewportMetrics, bool, error) {
	cfg.defaults()

	type evalResult struct {
		val string
		err error
	}
	done := make(chan evalResult, 1)
	go func() {
		res, err := page.Timeout(cfg.Timeout).Eval(captureScript)
		if err != nil {
			done <- evalResult{err: err}
			return
		}
		done <- evalResult{val: res.Value.Str()}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			cfg.Logger.Warn("dom: capture script failed, degrading to minimal tree", "error", r.err)
			return minimalTree(), ViewportMetrics{}, true, nil
		}
		tree, vm, err := parseCapture(r.val)
		if err != nil {
			cfg.Logger.Warn("dom: capture decode failed, degrading to minimal tree", "error", err)
			return minimalTree(), ViewportMetrics{}, true, nil
		}
		return tree, vm, false, nil
	case <-time.After(cfg.Timeout):
		cfg.Logger.Warn("dom: capture timed out, degrading to minimal tree")
		return minimalTree(), ViewportMetrics{}, true, nil
	}
}

func parseCapture(raw string) (*Tree, ViewportMetrics, error) {
	var r jsResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, ViewportMetrics{}, fmt.Errorf("dom: unmarshal capture: %w", err)
	}
	tree := &Tree{Nodes: make([]*Node, 0, len(r.Nodes))}
	for i, jn := range r.Nodes {
		n := &Node{
			Index:      i,
			Attrs:      jn.Attrs,
			Text:       jn.Text,
			XPath:      jn.XPath,
			Bounds:     Rect{jn.Bounds.X, jn.Bounds.Y, jn.Bounds.W, jn.Bounds.H},
			HasBounds:  jn.HasBounds,
			Visible:    jn.Visible,
			Scrollable: jn.Scrollable,
			Parent:     jn.Parent,
			Children:   jn.Children,
			Tag:        strings.ToLower(jn.Tag),
			AX: AXProps{
				Role: jn.AX.Role, Focusable: jn.AX.Focusable, Hidden: jn.AX.Hidden,
				Disabled: jn.AX.Disabled, Editable: jn.AX.Editable, Settable: jn.AX.Settable,
				Expanded: jn.AX.Expanded, Checked: jn.AX.Checked, Selected: jn.AX.Selected,
				Pressed: jn.AX.Pressed, Required: jn.AX.Required, Autocomplete: jn.AX.Autocomplete,
				KeyShortcuts: jn.AX.KeyShortcuts, Name: jn.AX.Name,
			},
		}
		switch jn.Kind {
		case "element":
			n.Kind = KindElement
		case "text":
			n.Kind = KindText
		case "document":
			n.Kind = KindDocument
		default:
			n.Kind = KindFragment
		}
		tree.Nodes = append(tree.Nodes, n)
	}
	vm := ViewportMetrics{
		ViewportW: r.Viewport.Width, ViewportH: r.Viewport.Height,
		PageW: r.Page.Width, PageH: r.Page.Height,
		ScrollX: r.Scroll.X, ScrollY: r.Scroll.Y,
	}
	return tree, vm, nil
}

// minimalTree returns a body-only degraded tree per spec.md §4.1 step 2.
func minimalTree() *Tree {
	return &Tree{Nodes: []*Node{
		{Index: 0, Kind: KindDocument, Parent: -1, Children: []int{1}},
		{Index: 1, Kind: KindElement, Tag: "body", Parent: 0, XPath: "/html/body"},
	}}
}

// IsPDFViewer detects whether the current page renders a PDF, per spec.md
// §4.1 step 3: url ends .pdf, contains .pdf?, or an embed/object serves
// application/pdf.
func IsPDFViewer(pageURL string, tree *Tree) bool {
	lower := strings.ToLower(pageURL)
	if strings.HasSuffix(lower, ".pdf") || strings.Contains(lower, ".pdf?") {
		return true
	}
	for _, n := range tree.Nodes {
		if n.Kind != KindElement {
			continue
		}
		if n.Tag == "embed" || n.Tag == "object" {
			if strings.Contains(strings.ToLower(n.Attrs["type"]), "application/pdf") {
				return true
			}
		}
	}
	return false
}
