// Package report renders the per-rule outcome table of one build
// invocation.
package report

import (
	"fmt"
	"io"

	"go.trai.ch/buildrules/internal/core/domain"
)

// Renderer writes the outcome table.
type Renderer struct {
	out io.Writer
}

// NewRenderer creates a Renderer writing to out.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Render writes one line per rule plus an aggregate summary. Failed rules
// show their failure cause; succeeded and skipped rules show the artifact
// reference when one is known.
func (r *Renderer) Render(rep *domain.Report) error {
	ruleWidth := len("RULE")
	for _, res := range rep.Results {
		if n := len(res.Rule.String()); n > ruleWidth {
			ruleWidth = n
		}
	}

	if _, err := fmt.Fprintf(r.out, "%-*s  %-9s  %-8s  %s\n",
		ruleWidth, "RULE", "STATE", "ATTEMPTS", "DETAIL"); err != nil {
		return err
	}

	for _, res := range rep.Results {
		if _, err := fmt.Fprintf(r.out, "%-*s  %-9s  %-8s  %s\n",
			ruleWidth, res.Rule.String(),
			string(res.State),
			attempts(res),
			detail(res),
		); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(r.out, "\n%d succeeded, %d skipped, %d failed\n",
		rep.Succeeded, rep.Skipped, rep.Failed)
	return err
}

func attempts(res domain.ExecutionResult) string {
	if res.Attempts == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", res.Attempts)
}

func detail(res domain.ExecutionResult) string {
	switch res.State {
	case domain.StateFailed:
		return string(res.Cause)
	case domain.StateSucceeded, domain.StateSkipped:
		if res.ArtifactRef != "" {
			return res.ArtifactRef
		}
	}
	return "-"
}
