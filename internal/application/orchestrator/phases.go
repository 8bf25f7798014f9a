package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/home-hub/home-hub/internal/domain/agent"
)

// phase is one step of a task body's work plan.
type phase struct {
	name string
	pct  int
}

// planPhasePct is the phase at which an execution plan artifact is produced.
const planPhasePct = 50

// agentPhases defines the work plan per agent type.
var agentPhases = map[agent.Type][]phase{
	agent.TypeCode: {
		{"Analysing requirements", 10},
		{"Reading existing code", 25},
		{"Generating implementation plan", 50},
		{"Writing code", 70},
		{"Running tests", 85},
		{"Reviewing output", 95},
	},
	agent.TypeResearch: {
		{"Searching documentation", 15},
		{"Analysing sources", 35},
		{"Synthesising findings", 50},
		{"Generating report", 75},
		{"Finalising summary", 95},
	},
	agent.TypeTesting: {
		{"Identifying test cases", 15},
		{"Writing test stubs", 35},
		{"Running existing tests", 50},
		{"Analysing coverage", 70},
		{"Generating test report", 90},
	},
	agent.TypeDevOps: {
		{"Checking repository state", 15},
		{"Validating CI configuration", 35},
		{"Running deployment checks", 50},
		{"Executing git operations", 70},
		{"Verifying deployment", 90},
	},
	agent.TypeGeneral: {
		{"Analysing task", 20},
		{"Processing", 50},
		{"Generating output", 80},
		{"Finalising", 95},
	},
}

// PhaseExecutor walks an agent type's work plan, reporting progress per
// phase and emitting a plan artifact at the halfway phase. Each agent type
// would invoke its integrations (LLM, filesystem, git) inside the phase
// body; the orchestrator contract is the same either way.
type PhaseExecutor struct {
	agentType agent.Type
	phases    []phase
	artifacts ArtifactWriter
	stepDelay time.Duration
}

// NewExecutors builds the executor registry keyed by agent type.
func NewExecutors(artifacts ArtifactWriter, stepDelay time.Duration) map[agent.Type]Executor {
	out := make(map[agent.Type]Executor, len(agentPhases))
	for typ, phases := range agentPhases {
		out[typ] = &PhaseExecutor{
			agentType: typ,
			phases:    phases,
			artifacts: artifacts,
			stepDelay: stepDelay,
		}
	}
	return out
}

// Execute implements Executor.
func (e *PhaseExecutor) Execute(ctx context.Context, job Job, report Reporter) error {
	label := strings.ToUpper(string(e.agentType))
	for _, p := range e.phases {
		if err := sleepCtx(ctx, e.stepDelay); err != nil {
			return err
		}
		report.Progress(p.pct, fmt.Sprintf("[%s] %s", label, p.name))

		if p.pct == planPhasePct {
			id, err := e.artifacts.Save(job.AgentID.String(), "plan", map[string]interface{}{
				"goal":       job.Goal,
				"agent_type": string(e.agentType),
				"phase":      p.name,
				"content":    planMarkdown(job, e.agentType),
			})
			if err != nil {
				return fmt.Errorf("persist plan artifact: %w", err)
			}
			report.Artifact(id)
		}
	}
	return nil
}

func planMarkdown(job Job, agentType agent.Type) string {
	var b strings.Builder
	title := strings.ToUpper(string(agentType)[:1]) + string(agentType)[1:]
	fmt.Fprintf(&b, "# %s Agent Plan\n\n", title)
	fmt.Fprintf(&b, "**Goal:** %s\n\n", job.Goal)
	if job.Workspace != "" {
		fmt.Fprintf(&b, "**Workspace:** %s\n\n", job.Workspace)
	}
	if len(job.Skills) > 0 {
		b.WriteString("**Skills:**\n\n")
		for _, s := range job.Skills {
			fmt.Fprintf(&b, "- %s\n", s.Name)
		}
		b.WriteString("\n")
	}
	b.WriteString("## Steps\n\n")
	for _, step := range []string{
		"Analyse requirements",
		"Gather context",
		"Execute primary task",
		"Verify output",
		"Generate summary",
	} {
		fmt.Fprintf(&b, "- [ ] %s\n", step)
	}
	return b.String()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
