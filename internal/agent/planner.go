package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tollgate-data/gantryflow/internal/monitoring"
)

// Endpoint describes one analytics route the planner may select.
type Endpoint struct {
	Path        string   `json:"path"`
	Description string   `json:"description"`
	Keywords    []string `json:"-"`
}

// Endpoints is the planner's registry. The keyword vocabularies drive the
// rule-based fallback; the descriptions drive the model prompt.
var Endpoints = []Endpoint{
	{
		Path:        "/api/statistics/traffic-flow",
		Description: "hourly traffic counts per section",
		Keywords:    []string{"traffic", "flow", "volume", "busy", "hourly"},
	},
	{
		Path:        "/api/statistics/revenue",
		Description: "toll revenue per section",
		Keywords:    []string{"revenue", "income", "fee", "money", "earn"},
	},
	{
		Path:        "/api/statistics/vehicle-distribution",
		Description: "share of traffic per vehicle class",
		Keywords:    []string{"distribution", "class", "mix", "share", "type"},
	},
	{
		Path:        "/api/analytics/truck/hourly-flow",
		Description: "noised truck traffic counts per hour",
		Keywords:    []string{"truck", "hourly", "flow"},
	},
	{
		Path:        "/api/analytics/truck/exit-hourly-flow-k-anonymized",
		Description: "k-anonymized truck exit records",
		Keywords:    []string{"anonymized", "anonymous", "privacy", "private", "k-anonymity"},
	},
	{
		Path:        "/api/analytics/truck/overweight-rate",
		Description: "share of overweight trucks per section",
		Keywords:    []string{"overweight", "weight", "overload", "heavy"},
	},
	{
		Path:        "/api/analytics/truck/discount-rate",
		Description: "share of discounted truck tolls per section",
		Keywords:    []string{"discount", "reduced", "rebate"},
	},
	{
		Path:        "/api/analytics/truck/avg-toll-fee",
		Description: "average truck toll fee per section",
		Keywords:    []string{"average", "toll", "fee", "cost"},
	},
	{
		Path:        "/api/analytics/truck/avg-travel-time",
		Description: "average truck travel time per section",
		Keywords:    []string{"travel", "time", "duration", "journey"},
	},
	{
		Path:        "/api/analytics/truck/peak-hours",
		Description: "three busiest hours per section",
		Keywords:    []string{"peak", "busiest", "rush"},
	},
	{
		Path:        "/api/analytics/truck/avg-axle-count",
		Description: "average truck axle count per section",
		Keywords:    []string{"axle", "axles"},
	},
}

// PlannedCall is one endpoint invocation chosen by the planner.
type PlannedCall struct {
	Path   string            `json:"path"`
	Params map[string]string `json:"params,omitempty"`
}

// Plan is the planner's answer to a question.
type Plan struct {
	Calls     []PlannedCall `json:"calls"`
	Reasoning string        `json:"reasoning,omitempty"`
	Source    string        `json:"source"` // "llm" or "rules"
}

// Planner maps natural-language questions to analytics endpoints.
type Planner struct {
	Client *Client
}

// NewPlanner returns a planner. client may be nil or key-less; the planner
// then always answers from the keyword rules.
func NewPlanner(client *Client) *Planner {
	return &Planner{Client: client}
}

// Plan picks endpoints for the question. When a model is configured it is
// asked first; invalid or failed model answers fall back to the rules so
// the endpoint always produces a usable plan.
func (p *Planner) Plan(ctx context.Context, question string) (*Plan, error) {
	if question == "" {
		return nil, fmt.Errorf("empty question")
	}

	if p.Client.Enabled() {
		plan, err := p.planWithModel(ctx, question)
		if err == nil {
			return plan, nil
		}
		monitoring.Logf("planner model call failed, using rules: %v", err)
	}

	return p.planByRules(question), nil
}

func (p *Planner) planWithModel(ctx context.Context, question string) (*Plan, error) {
	var catalog strings.Builder
	for _, e := range Endpoints {
		fmt.Fprintf(&catalog, "- %s: %s\n", e.Path, e.Description)
	}

	system := fmt.Sprintf(`You route analyst questions about a toll road
network to internal analytics endpoints. Available endpoints:

%s
All endpoints accept optional params start_date and end_date (YYYY-MM-DD);
the k-anonymized endpoint also accepts k (integer >= 2).

Respond with JSON only:
{"calls": [{"path": "...", "params": {"start_date": "..."}}], "reasoning": "..."}`,
		catalog.String())

	reply, err := p.Client.Complete(ctx, []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: question},
	})
	if err != nil {
		return nil, err
	}

	var plan Plan
	if err := json.Unmarshal([]byte(stripCodeFences(reply)), &plan); err != nil {
		return nil, fmt.Errorf("failed to parse model plan: %w", err)
	}
	if len(plan.Calls) == 0 {
		return nil, fmt.Errorf("model plan selects no endpoints")
	}
	for _, call := range plan.Calls {
		if !knownEndpoint(call.Path) {
			return nil, fmt.Errorf("model plan names unknown endpoint %q", call.Path)
		}
	}
	plan.Source = "llm"
	return &plan, nil
}

// planByRules scores each endpoint by keyword hits and returns the best
// matches (all endpoints tied at the top score).
func (p *Planner) planByRules(question string) *Plan {
	q := strings.ToLower(question)

	best := 0
	scores := make([]int, len(Endpoints))
	for i, e := range Endpoints {
		for _, kw := range e.Keywords {
			if strings.Contains(q, kw) {
				scores[i]++
			}
		}
		if scores[i] > best {
			best = scores[i]
		}
	}

	plan := &Plan{Source: "rules"}
	if best == 0 {
		// Nothing matched: default to the traffic overview.
		plan.Calls = []PlannedCall{{Path: Endpoints[0].Path}}
		plan.Reasoning = "no keyword match; defaulting to traffic flow overview"
		return plan
	}

	for i, e := range Endpoints {
		if scores[i] == best {
			plan.Calls = append(plan.Calls, PlannedCall{Path: e.Path})
		}
	}
	plan.Reasoning = fmt.Sprintf("keyword match score %d", best)
	return plan
}

func knownEndpoint(path string) bool {
	for _, e := range Endpoints {
		if e.Path == path {
			return true
		}
	}
	return false
}
