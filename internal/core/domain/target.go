package domain

// Target is a named execution context (a hardware/software platform) bound
// to one build worker.
type Target struct {
	Name InternedString

	// Concurrency is the maximum number of rules the target executes
	// simultaneously. Defaults to 1.
	Concurrency int

	// Runner is an optional command prefix used to reach the target's
	// isolated execution context (e.g. ["ssh", "build-skylake"] or a
	// container exec). Empty means local execution.
	Runner []string
}
