package domain

import "time"

// RuleState is the execution state of one rule.
//
// Transitions: Pending -> Scheduled -> Running -> {Succeeded, Failed,
// Skipped}. Failed transitions back to Scheduled while retry budget remains.
type RuleState string

const (
	// StatePending indicates the rule is waiting for its dependencies.
	StatePending RuleState = "Pending"
	// StateScheduled indicates the rule is eligible and queued for a slot.
	StateScheduled RuleState = "Scheduled"
	// StateRunning indicates the rule is executing on its target's worker.
	StateRunning RuleState = "Running"
	// StateSucceeded indicates the build tool completed the rule.
	StateSucceeded RuleState = "Succeeded"
	// StateFailed indicates the rule terminally failed.
	StateFailed RuleState = "Failed"
	// StateSkipped indicates the cache already satisfies the rule.
	StateSkipped RuleState = "Skipped"
)

// Terminal reports whether the state is final.
func (s RuleState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}

// FailureCause classifies why a rule reached StateFailed.
type FailureCause string

const (
	// CauseNone is the zero cause for non-failed rules.
	CauseNone FailureCause = ""
	// CauseBuildTool means the package-building tool reported failure.
	CauseBuildTool FailureCause = "build-tool"
	// CauseTargetUnavailable means the rule's target worker was unreachable.
	CauseTargetUnavailable FailureCause = "target-unavailable"
	// CauseUpstream means a dependency terminally failed; the rule was
	// never executed.
	CauseUpstream FailureCause = "upstream-failure"
	// CauseCancelled means the invocation was aborted before the rule
	// could finish.
	CauseCancelled FailureCause = "cancelled"
)

// ExecutionResult is the outcome of one rule within an invocation.
type ExecutionResult struct {
	Rule        RuleID       `json:"rule"`
	State       RuleState    `json:"state"`
	Cause       FailureCause `json:"cause,omitzero"`
	Err         error        `json:"-"`
	Attempts    int          `json:"attempts"`
	ArtifactRef string       `json:"artifact_ref,omitzero"`
}

// Report is the per-rule outcome table for one build invocation, ordered
// like the plan.
type Report struct {
	Invocation string            `json:"invocation"`
	Results    []ExecutionResult `json:"results"`
	Failed     int               `json:"failed"`
	Skipped    int               `json:"skipped"`
	Succeeded  int               `json:"succeeded"`
}

// ProgressEvent is emitted on every rule state transition. The engine holds
// no presentation logic; events feed external logging and the CI surface.
type ProgressEvent struct {
	Invocation string       `json:"invocation"`
	Rule       RuleID       `json:"rule"`
	From       RuleState    `json:"from"`
	To         RuleState    `json:"to"`
	Cause      FailureCause `json:"cause,omitzero"`
	Attempt    int          `json:"attempt,omitzero"`
	Time       time.Time    `json:"time"`
}
