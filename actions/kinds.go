// Package actions implements ActionController (spec.md §4.4): a registry
// of named action kinds, each with a JSON schema and a thunk invoking the
// matching BrowserSession primitive, dispatched with termination-on-
// navigation guards. Grounded on mcprt.Registry/DynamicTool's
// name→category→description→input-schema→handler shape and
// Registry.ExecuteTool's required-param validation (SPEC_FULL.md §3.3),
// adapted to statically registered Go closures rather than a SQL-backed
// dynamic tool table.
package actions

// Kind is an action kind's unique registry name, matching spec.md §9's
// tagged-variant names (GoToUrl, Click, Type, Scroll, Wait, Extract, Done).
type Kind string

const (
	KindGoToURL       Kind = "go_to_url"
	KindClickElement  Kind = "click_element_by_index"
	KindTypeText      Kind = "type_text"
	KindScroll        Kind = "scroll"
	KindWait          Kind = "wait"
	KindExtract       Kind = "extract_structured_data"
	KindDone          Kind = "done"
	KindCreateNewTab  Kind = "create_new_tab"
	KindSwitchTab     Kind = "switch_to_tab"
	KindCloseTab      Kind = "close_tab"
	KindGoBack        Kind = "go_back"
	KindGoForward     Kind = "go_forward"
	KindRefresh       Kind = "refresh"
	KindScreenshot    Kind = "screenshot"
)

// terminatingKinds is spec.md §4.4's "terminating action" set: executing
// one of these stops multi_act early.
var terminatingKinds = map[Kind]bool{
	KindGoToURL:      true,
	KindCreateNewTab: true,
	KindSwitchTab:    true,
	KindGoBack:       true,
	KindGoForward:    true,
	KindRefresh:      true,
	KindDone:         true,
}

// IsTerminating reports whether kind is a terminating action (spec.md §9
// glossary "Terminating action").
func IsTerminating(kind Kind) bool { return terminatingKinds[kind] }

// Action is one model-emitted action instance: a kind plus raw parameters.
// Kept as a loosely-typed map (spec.md §9 "Dynamic typing... maps to tagged
// unions with a kind discriminator") validated against the registered
// schema at dispatch time, rather than a closed Go sum type, since the
// model output is untyped JSON at the boundary.
type Action struct {
	Kind   Kind
	Params map[string]any
}

// Param accessors used by dispatch.go's handlers; return zero value if the
// key is absent or of the wrong type.
func (a Action) Int(key string) int {
	if v, ok := a.Params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return 0
}

func (a Action) String(key string) string {
	if v, ok := a.Params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (a Action) Bool(key string) bool {
	if v, ok := a.Params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}
