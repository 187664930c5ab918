// Package describe renders a resolved build plan for human inspection.
package describe

import (
	"fmt"
	"io"
	"strings"

	"go.trai.ch/buildrules/internal/engine/plan"
)

// Renderer writes the dependency-ordered plan listing. It is strictly
// read-only: it holds no cache or dispatcher handle at all.
type Renderer struct {
	out io.Writer
}

// NewRenderer creates a Renderer writing to out.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Render writes one line per rule, in plan order, with its position,
// skip/execute decision and resolved dependency set, followed by a
// summary line.
func (r *Renderer) Render(p *plan.Plan) error {
	width := len(fmt.Sprintf("%d", len(p.Rules)))

	for i, d := range p.Rules {
		action := "build"
		if d.Skip {
			action = "skip"
		}

		deps := "-"
		if len(d.Rule.Dependencies) > 0 {
			names := make([]string, len(d.Rule.Dependencies))
			for j, dep := range d.Rule.Dependencies {
				names[j] = dep.String()
			}
			deps = strings.Join(names, ", ")
		}

		_, err := fmt.Fprintf(r.out, "%*d. [%-5s] %s  (deps: %s)\n",
			width, i+1, action, d.Rule.ID().String(), deps)
		if err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(r.out, "\n%d rules: %d to build, %d satisfied by cache\n",
		len(p.Rules), p.ExecuteCount(), p.SkipCount())
	return err
}
