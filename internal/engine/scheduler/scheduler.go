// Package scheduler implements the execution engine: it walks a build plan
// in dependency order, drives the target dispatcher, and applies the
// retry and failure-propagation policy.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/buildrules/internal/core/domain"
	"go.trai.ch/buildrules/internal/core/ports"
	"go.trai.ch/buildrules/internal/engine/dispatch"
	"go.trai.ch/buildrules/internal/engine/plan"
	"go.trai.ch/zerr"
)

// DefaultRetries is the per-rule attempt budget when none is configured.
const DefaultRetries = 2

// Options carries the operationally configured knobs.
type Options struct {
	// Retries is the per-rule attempt budget. Defaults to DefaultRetries.
	Retries int

	// StageRoot is where per-attempt working directories are created.
	StageRoot string
}

// Scheduler coordinates rule execution across targets via the shared
// dependency graph.
type Scheduler struct {
	dispatcher *dispatch.Dispatcher
	cache      ports.RuleCache
	artifacts  ports.ArtifactStore
	telemetry  ports.Telemetry
	logger     ports.Logger
	retries    int
	stageRoot  string

	mu     sync.RWMutex
	states map[domain.RuleID]domain.RuleState
}

// New creates a Scheduler.
func New(
	dispatcher *dispatch.Dispatcher,
	cache ports.RuleCache,
	artifacts ports.ArtifactStore,
	telemetry ports.Telemetry,
	logger ports.Logger,
	opts Options,
) *Scheduler {
	retries := opts.Retries
	if retries < 1 {
		retries = DefaultRetries
	}
	return &Scheduler{
		dispatcher: dispatcher,
		cache:      cache,
		artifacts:  artifacts,
		telemetry:  telemetry,
		logger:     logger,
		retries:    retries,
		stageRoot:  opts.StageRoot,
		states:     make(map[domain.RuleID]domain.RuleState),
	}
}

// Run executes the plan and drains it fully: a terminal failure never
// aborts running independent work, it only fails the rules transitively
// depending on it. The returned report covers every rule; the error is
// non-nil iff at least one rule terminally failed or the run was aborted.
func (s *Scheduler) Run(ctx context.Context, p *plan.Plan) (*domain.Report, error) {
	state := s.newRunState(ctx, p)
	state.init()

	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil && state.active == 0 {
			break
		}

		state.handleResult(<-state.resultsCh)
	}

	state.finish()
	return state.report()
}

func (s *Scheduler) getState(id domain.RuleID) domain.RuleState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[id]
}

func (s *Scheduler) setState(id domain.RuleID, state domain.RuleState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[id] = state
}

type result struct {
	rule        domain.RuleID
	attempts    int
	artifactRef string
	err         error
	cause       domain.FailureCause
	skipped     bool
}

type runState struct {
	s          *Scheduler
	ctx        context.Context
	plan       *plan.Plan
	invocation string

	decisions map[domain.RuleID]plan.Decision
	inDegree  map[domain.RuleID]int
	ready     []domain.RuleID
	active    int
	resultsCh chan result
	results   map[domain.RuleID]*domain.ExecutionResult
	errs      error
}

func (s *Scheduler) newRunState(ctx context.Context, p *plan.Plan) *runState {
	count := len(p.Rules)
	st := &runState{
		s:          s,
		ctx:        ctx,
		plan:       p,
		invocation: uuid.NewString(),
		decisions:  make(map[domain.RuleID]plan.Decision, count),
		inDegree:   make(map[domain.RuleID]int, count),
		resultsCh:  make(chan result, count),
		results:    make(map[domain.RuleID]*domain.ExecutionResult, count),
	}

	for _, d := range p.Rules {
		id := d.Rule.ID()
		st.decisions[id] = d
		st.inDegree[id] = len(d.Rule.Dependencies)
		if st.inDegree[id] == 0 {
			st.ready = append(st.ready, id)
		}
	}

	return st
}

// init marks every rule Pending before anything is scheduled.
func (st *runState) init() {
	for _, d := range st.plan.Rules {
		st.transition(d.Rule.ID(), domain.StatePending, domain.CauseNone, 0)
	}
	st.s.logger.Info("starting invocation",
		"invocation", st.invocation,
		"rules", len(st.plan.Rules),
		"skipped_by_cache", st.plan.SkipCount(),
	)
}

func (st *runState) isDone() bool {
	return st.active == 0 && len(st.ready) == 0
}

// schedule dispatches every eligible rule. There is no global parallelism
// cap: genuine constraints are the dependency graph and each target's slot
// pool, enforced cooperatively inside the dispatcher.
func (st *runState) schedule() {
	slices.SortFunc(st.ready, func(a, b domain.RuleID) int {
		return strings.Compare(a.String(), b.String())
	})

	for len(st.ready) > 0 && st.ctx.Err() == nil {
		id := st.ready[0]
		st.ready = st.ready[1:]
		st.active++

		decision := st.decisions[id]
		if decision.Skip {
			st.transition(id, domain.StateSkipped, domain.CauseNone, 0)
			go st.reportSkip(decision)
			continue
		}

		st.transition(id, domain.StateScheduled, domain.CauseNone, 1)
		go st.executeRule(decision.Rule)
	}
}

// reportSkip acknowledges a cache-elided rule. The plan builder has already
// verified the artifact reference resolves.
func (st *runState) reportSkip(decision plan.Decision) {
	id := decision.Rule.ID()
	_, vtx := st.s.telemetry.Record(st.ctx, id.String())
	vtx.Cached()
	vtx.Complete(nil)

	st.resultsCh <- result{
		rule:        id,
		skipped:     true,
		artifactRef: decision.Entry.ArtifactRef,
	}
}

// executeRule drives one rule through its attempt budget. Build-tool
// failures consume the budget; an unreachable target or an abort fails the
// rule immediately.
func (st *runState) executeRule(rule domain.BuildRule) {
	id := rule.ID()
	_, vtx := st.s.telemetry.Record(st.ctx, id.String())

	res := result{rule: id}
	for attempt := 1; attempt <= st.s.retries; attempt++ {
		res.attempts = attempt
		if attempt > 1 {
			st.transition(id, domain.StateScheduled, domain.CauseNone, attempt)
		}

		ref, err := st.runAttempt(&rule, attempt, vtx)
		if err == nil {
			res.artifactRef = ref
			res.err = nil
			res.cause = domain.CauseNone
			break
		}

		res.err = err
		res.cause = classifyCause(st.ctx, err)
		if res.cause != domain.CauseBuildTool {
			break
		}
		if attempt < st.s.retries {
			// Transient per the policy: back to Scheduled for another try.
			st.transition(id, domain.StateFailed, res.cause, attempt)
		}
	}

	if res.err == nil {
		if err := st.publishAndRecord(&rule, res.artifactRef); err != nil {
			// A cache write failure must not fail a genuinely built rule.
			st.s.logger.Warn("failed to record cache entry",
				"rule", id.String(),
				"error", err.Error(),
			)
		}
	}

	vtx.Complete(res.err)
	st.resultsCh <- res
}

func (st *runState) runAttempt(rule *domain.BuildRule, attempt int, vtx ports.Vertex) (string, error) {
	id := rule.ID()

	stageDir, err := st.prepareStage(id, attempt)
	if err != nil {
		return "", err
	}

	st.transition(id, domain.StateRunning, domain.CauseNone, attempt)
	handle := st.s.dispatcher.Submit(st.ctx, rule, stageDir, vtx.Stdout(), vtx.Stderr())
	return handle.Await(st.ctx)
}

// prepareStage creates a clean working directory for one attempt.
func (st *runState) prepareStage(id domain.RuleID, attempt int) (string, error) {
	dir := filepath.Join(
		st.s.stageRoot,
		strings.ReplaceAll(id.String(), "/", "_"),
		fmt.Sprintf("attempt-%d", attempt),
	)
	if err := os.RemoveAll(dir); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to clean stage directory"), "dir", dir)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to create stage directory"), "dir", dir)
	}
	return dir, nil
}

// manifest is the artifact-store record for one completed rule.
type manifest struct {
	Rule        string    `json:"rule"`
	Spec        string    `json:"spec"`
	Target      string    `json:"target"`
	Fingerprint string    `json:"fingerprint"`
	Invocation  string    `json:"invocation"`
	Timestamp   time.Time `json:"timestamp"`
}

// publishAndRecord publishes the artifact manifest, then records the cache
// entry. Ordering matters: an entry is only ever recorded for a resolvable
// artifact, keeping the cache consistent.
func (st *runState) publishAndRecord(rule *domain.BuildRule, ref string) error {
	id := rule.ID()
	data, err := json.Marshal(manifest{
		Rule:        id.String(),
		Spec:        rule.SpecString(),
		Target:      rule.Target.String(),
		Fingerprint: rule.Fingerprint,
		Invocation:  st.invocation,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		return zerr.Wrap(err, "failed to marshal artifact manifest")
	}

	if err := st.s.artifacts.Publish(st.ctx, ref, data); err != nil {
		return err
	}

	return st.s.cache.Record(domain.CacheEntry{
		Fingerprint: rule.Fingerprint,
		Target:      rule.Target.String(),
		Status:      domain.CacheSuccess,
		Timestamp:   time.Now().UTC(),
		ArtifactRef: ref,
	})
}

func (st *runState) handleResult(res result) {
	st.active--

	if res.skipped {
		st.results[res.rule] = &domain.ExecutionResult{
			Rule:        res.rule,
			State:       domain.StateSkipped,
			ArtifactRef: res.artifactRef,
		}
		st.unblockDependents(res.rule)
		return
	}

	if res.err != nil {
		st.transition(res.rule, domain.StateFailed, res.cause, res.attempts)
		st.results[res.rule] = &domain.ExecutionResult{
			Rule:     res.rule,
			State:    domain.StateFailed,
			Cause:    res.cause,
			Err:      res.err,
			Attempts: res.attempts,
		}
		st.errs = errors.Join(st.errs, zerr.With(zerr.Wrap(res.err, "rule execution failed"), "rule", res.rule.String()))
		// An abort fails dependents as cancelled (in finish), not upstream.
		if res.cause != domain.CauseCancelled {
			st.failDependents(res.rule)
		}
		return
	}

	st.transition(res.rule, domain.StateSucceeded, domain.CauseNone, res.attempts)
	st.results[res.rule] = &domain.ExecutionResult{
		Rule:        res.rule,
		State:       domain.StateSucceeded,
		Attempts:    res.attempts,
		ArtifactRef: res.artifactRef,
	}
	st.unblockDependents(res.rule)
}

func (st *runState) unblockDependents(id domain.RuleID) {
	for _, dep := range st.plan.Graph.Dependents(id) {
		if _, ok := st.decisions[dep]; !ok {
			continue
		}
		st.inDegree[dep]--
		if st.inDegree[dep] == 0 && !st.s.getState(dep).Terminal() {
			st.ready = append(st.ready, dep)
		}
	}
}

// failDependents marks every rule transitively depending on the failed one
// as failed upstream. They never become ready, so they are never executed.
func (st *runState) failDependents(id domain.RuleID) {
	for _, dep := range st.plan.Graph.TransitiveDependents(id) {
		if _, ok := st.decisions[dep]; !ok {
			continue
		}
		if st.s.getState(dep).Terminal() {
			continue
		}
		st.transition(dep, domain.StateFailed, domain.CauseUpstream, 0)
		st.results[dep] = &domain.ExecutionResult{
			Rule:  dep,
			State: domain.StateFailed,
			Cause: domain.CauseUpstream,
			Err:   zerr.With(zerr.Wrap(domain.ErrUpstreamFailure, id.String()), "failed_dependency", id.String()),
		}
	}
}

// finish resolves rules left non-terminal by an abort: Pending and
// Scheduled rules fail as cancelled; completed results stay recorded.
func (st *runState) finish() {
	for _, d := range st.plan.Rules {
		id := d.Rule.ID()
		if st.s.getState(id).Terminal() {
			continue
		}
		st.transition(id, domain.StateFailed, domain.CauseCancelled, 0)
		st.results[id] = &domain.ExecutionResult{
			Rule:  id,
			State: domain.StateFailed,
			Cause: domain.CauseCancelled,
			Err:   domain.ErrInvocationCancelled,
		}
	}
}

func (st *runState) report() (*domain.Report, error) {
	rep := &domain.Report{Invocation: st.invocation}

	for _, d := range st.plan.Rules {
		id := d.Rule.ID()
		res := st.results[id]
		if res == nil {
			res = &domain.ExecutionResult{Rule: id, State: st.s.getState(id)}
		}
		rep.Results = append(rep.Results, *res)

		switch res.State {
		case domain.StateSucceeded:
			rep.Succeeded++
		case domain.StateSkipped:
			rep.Skipped++
		case domain.StateFailed:
			rep.Failed++
		}
	}

	if rep.Failed > 0 {
		err := zerr.With(
			zerr.Wrap(domain.ErrBuildExecutionFailed, "invocation failed"),
			"failed_rules", rep.Failed,
		)
		return rep, errors.Join(err, st.errs)
	}
	if err := st.ctx.Err(); err != nil {
		return rep, errors.Join(domain.ErrInvocationCancelled, err)
	}
	return rep, nil
}

// transition records a state change and emits the structured progress
// event. The engine holds no presentation logic; the event stream is the
// observability surface.
func (st *runState) transition(id domain.RuleID, to domain.RuleState, cause domain.FailureCause, attempt int) {
	from := st.s.getState(id)
	st.s.setState(id, to)

	ev := domain.ProgressEvent{
		Invocation: st.invocation,
		Rule:       id,
		From:       from,
		To:         to,
		Cause:      cause,
		Attempt:    attempt,
		Time:       time.Now().UTC(),
	}
	st.s.logger.Info("rule state transition",
		"invocation", ev.Invocation,
		"rule", id.String(),
		"from", string(ev.From),
		"to", string(ev.To),
		"cause", string(ev.Cause),
		"attempt", ev.Attempt,
	)
}

// classifyCause maps an execution error onto the failure taxonomy.
func classifyCause(ctx context.Context, err error) domain.FailureCause {
	switch {
	case errors.Is(err, domain.ErrTargetUnavailable):
		return domain.CauseTargetUnavailable
	case errors.Is(err, domain.ErrInvocationCancelled) || ctx.Err() != nil:
		return domain.CauseCancelled
	default:
		return domain.CauseBuildTool
	}
}
