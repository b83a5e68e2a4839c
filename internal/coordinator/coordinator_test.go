package coordinator

import (
	"testing"

	"github.com/zulandar/teller/internal/registry"
)

func TestRoute(t *testing.T) {
	r := NewRouter()
	cases := []struct {
		message string
		want    string
	}{
		{"What's my balance?", registry.SpecialistAccount},
		{"Transfer 200 to savings", registry.SpecialistAccount},
		{"How much have I spent on dining?", registry.SpecialistAccount},
		{"What are the overdraft fees?", registry.SpecialistSupport},
		{"How do I replace a lost card?", registry.SpecialistSupport},
		{"Show me a chart of monthly spending trends", registry.SpecialistAccount}, // "spending" precedes "chart"
		{"Make me a widget for dining", registry.SpecialistVisualization},
		{"Save $5000 for a vacation by 2025-12-31", registry.SpecialistVisualization},
		{"Set up a dining budget of 400", registry.SpecialistVisualization},
		{"I see a suspicious charge", registry.SpecialistFraud},
		{"There's an unauthorized purchase on my card", registry.SpecialistSupport}, // "card" precedes fraud terms
		{"I don't recognize this charge", registry.SpecialistFraud},
	}
	for _, tc := range cases {
		got := r.Route(nil, tc.message)
		if got.Target != tc.want {
			t.Errorf("Route(%q) = %s, want %s (%s)", tc.message, got.Target, tc.want, got.Reason)
		}
	}
}

func TestRoute_DefaultsToSupport(t *testing.T) {
	r := NewRouter()
	d := r.Route(nil, "hello there")
	if d.Target != registry.SpecialistSupport {
		t.Errorf("Target = %s, want support", d.Target)
	}
	if !d.Defaulted {
		t.Error("Defaulted should be true")
	}
}

func TestRoute_Deterministic(t *testing.T) {
	r := NewRouter()
	msg := "show me a chart of my fraud risk"
	first := r.Route(nil, msg)
	for i := 0; i < 5; i++ {
		if got := r.Route(nil, msg); got != first {
			t.Fatalf("routing not deterministic: %+v vs %+v", got, first)
		}
	}
	// Artifact language wins over fraud language by declaration order.
	if first.Target != registry.SpecialistVisualization {
		t.Errorf("Target = %s, want visualization", first.Target)
	}
}
