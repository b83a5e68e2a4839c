// Package coordinator selects the specialist for an inbound turn. Routing
// is a fixed keyword decision table evaluated in declaration order; it is
// deterministic, side-effect free, and never fails: a message matching no
// category degrades to the support specialist.
package coordinator

import (
	"strings"

	"github.com/zulandar/teller/internal/registry"
)

// Decision is the router's output for one turn.
type Decision struct {
	Target    string
	Reason    string
	Defaulted bool
}

type route struct {
	target   string
	keywords []string
}

// Categories in priority order. Account checks precede generic support
// checks; visualization precedes fraud so artifact requests ("chart of my
// fraud risk") build the artifact.
var routes = []route{
	{registry.SpecialistAccount, []string{
		"balance", "account", "transfer", "transaction", "deposit",
		"withdraw", "payment", "spent", "spending", "money", "statement",
	}},
	{registry.SpecialistSupport, []string{
		"policy", "fee", "fees", "hours", "contact", "support", "help",
		"how do", "how can", "card", "overdraft", "branch",
	}},
	{registry.SpecialistVisualization, []string{
		"chart", "graph", "widget", "visualize", "visualization", "plot",
		"dashboard", "goal", "budget", "simulation", "simulate", "trend",
		"track", "save ", "saving",
	}},
	{registry.SpecialistFraud, []string{
		"fraud", "suspicious", "unauthorized", "scam", "stolen", "dispute",
		"don't recognize", "do not recognize", "didn't make", "flag",
	}},
}

// Router classifies turns against the decision table.
type Router struct{}

// NewRouter creates a Router.
func NewRouter() *Router {
	return &Router{}
}

// Route picks the specialist for the latest user message. History is
// accepted for parity with re-entrant calls but the decision depends only
// on the latest message, keeping routing deterministic and cheap.
func (r *Router) Route(history []string, latest string) Decision {
	text := strings.ToLower(latest)
	for _, rt := range routes {
		for _, kw := range rt.keywords {
			if strings.Contains(text, kw) {
				return Decision{
					Target: rt.target,
					Reason: "matched keyword " + strings.TrimSpace(kw),
				}
			}
		}
	}
	return Decision{
		Target:    registry.SpecialistSupport,
		Reason:    "no category matched; defaulted",
		Defaulted: true,
	}
}
