package actions

import (
	"context"
	"testing"
)

func TestRegistry_ExecuteValidatesRequiredParams(t *testing.T) {
	r := NewRegistry()
	r.Register(Spec{
		Kind:     KindClickElement,
		Required: []string{"index"},
		Handler: func(ctx context.Context, a Action) (string, error) {
			return "ok", nil
		},
	})

	if _, err := r.Execute(context.Background(), Action{Kind: KindClickElement, Params: map[string]any{}}); err == nil {
		t.Fatal("Execute with missing required param: want error, got nil")
	}

	out, err := r.Execute(context.Background(), Action{Kind: KindClickElement, Params: map[string]any{"index": 0}})
	if err != nil {
		t.Fatalf("Execute with required param present: unexpected error %v", err)
	}
	if out != "ok" {
		t.Errorf("Execute result = %q, want ok", out)
	}
}

func TestRegistry_ExecuteUnknownKind(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Execute(context.Background(), Action{Kind: "nonexistent"}); err == nil {
		t.Fatal("Execute on unregistered kind: want error, got nil")
	}
}

func TestRegistry_Kinds(t *testing.T) {
	r := NewRegistry()
	r.Register(Spec{Kind: KindWait, Handler: func(ctx context.Context, a Action) (string, error) { return "", nil }})
	r.Register(Spec{Kind: KindDone, Handler: func(ctx context.Context, a Action) (string, error) { return "", nil }})

	kinds := r.Kinds()
	if len(kinds) != 2 {
		t.Fatalf("Kinds() returned %d entries, want 2", len(kinds))
	}
}
