// Package burnin implements the outer loop that drives undecided tests
// through the SPRT engine to a stable/flaky decision, and the demotion
// handler that watches stable tests for regression.
package burnin

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/svdh2/burnin-orchestrator/internal/audit"
	"github.com/svdh2/burnin-orchestrator/internal/dag"
	"github.com/svdh2/burnin-orchestrator/internal/lifecycle"
	"github.com/svdh2/burnin-orchestrator/internal/publish"
	"github.com/svdh2/burnin-orchestrator/internal/sprt"
	"github.com/svdh2/burnin-orchestrator/internal/status"
)

const defaultMaxIterations = 1000

// Sweep drives the burn-in loop and the stable-failure demotion handler.
// It is single-threaded and cooperative by design: tests run sequentially,
// and the driver blocks on each child process and each store save.
type Sweep struct {
	Graph         *dag.Graph
	Store         *status.Store
	Executor      Executor
	Logger        *slog.Logger
	MaxIterations int

	// Publisher and AuditSink are best-effort side channels. A nil value
	// (or NoopPublisher/NoopSink) disables the corresponding side effect
	// without changing sweep semantics.
	Publisher publish.TransitionPublisher
	AuditSink audit.Sink

	// Throttle paces child-process spawns; nil means unlimited.
	Throttle *rate.Limiter
}

// Decision summarizes what happened to one test during a sweep.
type Decision struct {
	Label string
	From  status.State
	To    status.State
}

// Result is the outcome of one Run call.
type Result struct {
	Decided    []Decision
	Iterations int
}

// New builds a Sweep with the given required collaborators, applying
// defaults for everything optional.
func New(graph *dag.Graph, store *status.Store, executor Executor, logger *slog.Logger) *Sweep {
	return &Sweep{
		Graph:         graph,
		Store:         store,
		Executor:      executor,
		Logger:        logger,
		MaxIterations: defaultMaxIterations,
		Publisher:     publish.NoopPublisher{},
		AuditSink:     audit.NoopSink{},
	}
}

// Run drives every label in testNames (or, if empty, every store entry
// currently burning_in) through repeated execution and SPRT evaluation
// until each is decided, the DAG has no more candidates, or max_iterations
// is reached.
func (s *Sweep) Run(ctx context.Context, testNames []string) (*Result, error) {
	burningIn := s.initialSet(testNames)

	result := &Result{}

	for len(burningIn) > 0 && result.Iterations < s.maxIterations() {
		result.Iterations++

		snapshot := append([]string(nil), burningIn...)

		for _, label := range snapshot {
			node, ok := s.Graph.Get(label)
			if !ok {
				// Manifest/store drift: the label no longer exists in the DAG.
				continue
			}

			decided, err := s.runOne(ctx, label, node)
			if err != nil {
				return result, err
			}

			if decided != nil {
				result.Decided = append(result.Decided, *decided)
				burningIn = remove(burningIn, label)
			}
		}
	}

	return result, nil
}

// runOne executes label once, records the run, evaluates SPRT, and
// transitions state on accept/reject. It returns a non-nil Decision only
// when the test has just been decided.
func (s *Sweep) runOne(ctx context.Context, label string, node dag.Node) (*Decision, error) {
	if s.Throttle != nil {
		if err := s.Throttle.Wait(ctx); err != nil {
			return nil, err
		}
	}

	outcome := s.Executor.Execute(ctx, label, node)

	s.Store.RecordRun(label, outcome.Passed)

	if err := s.Store.Save(); err != nil {
		return nil, err
	}

	entry, _ := s.Store.GetTestEntry(label)
	cfg := s.Store.Config()

	decision := sprt.Evaluate(entry.Runs, entry.Passes, cfg.MinReliability, cfg.StatisticalSignificance)

	var to status.State

	switch decision {
	case sprt.Accept:
		to = status.StateStable
	case sprt.Reject:
		to = status.StateFlaky
	default:
		return nil, nil
	}

	return s.transition(ctx, label, entry.State, to, entry.Runs, entry.Passes)
}

// HandleStableFailure is the independent entry point that watches a
// currently-stable test for regression after it has failed unexpectedly
// (e.g. under CI). It reruns the test up to maxReruns times, evaluates the
// reverse-chronological demotion SPRT over the reruns only, and demotes to
// flaky on a clear regression signal.
func (s *Sweep) HandleStableFailure(ctx context.Context, label string, maxReruns int) (sprt.DemotionDecision, error) {
	node, ok := s.Graph.Get(label)
	if !ok {
		return sprt.Inconclusive, nil
	}

	cfg := s.Store.Config()

	var history []bool

	for i := 0; i < maxReruns; i++ {
		if s.Throttle != nil {
			if err := s.Throttle.Wait(ctx); err != nil {
				return sprt.Inconclusive, err
			}
		}

		outcome := s.Executor.Execute(ctx, label, node)

		s.Store.RecordRun(label, outcome.Passed)

		if err := s.Store.Save(); err != nil {
			return sprt.Inconclusive, err
		}

		// newest-first: prepend, reflecting "recent regression" rather than
		// the test's entire lifetime history.
		history = append([]bool{outcome.Passed}, history...)

		decision := sprt.EvaluateDemotion(history, cfg.MinReliability, cfg.StatisticalSignificance)

		switch decision {
		case sprt.Demote:
			entry, _ := s.Store.GetTestEntry(label)

			if _, err := s.transition(ctx, label, status.StateStable, status.StateFlaky, entry.Runs, entry.Passes); err != nil {
				return sprt.Inconclusive, err
			}

			return sprt.Demote, nil
		case sprt.Retain:
			return sprt.Retain, nil
		default:
			// continue rerunning
		}
	}

	return sprt.Inconclusive, nil
}

// FilterTestsByState lists DAG labels whose store state falls within
// includeStates. Labels absent from the store are treated as stable.
func FilterTestsByState(graph *dag.Graph, store *status.Store, includeStates map[status.State]bool) []string {
	var labels []string

	for _, label := range graph.Labels() {
		state, ok := store.GetTestState(label)
		if !ok {
			state = status.StateStable
		}

		if includeStates[state] {
			labels = append(labels, label)
		}
	}

	return labels
}

// initialSet narrows the sweep's candidates to those genuinely burning_in.
// When testNames is given explicitly, labels whose stored state isn't
// burning_in (never promoted, already decided, disabled) are dropped rather
// than driven through execution anyway — only the promote step may move a
// test into burning_in in the first place.
func (s *Sweep) initialSet(testNames []string) []string {
	if len(testNames) > 0 {
		var out []string

		for _, label := range testNames {
			if state, ok := s.Store.GetTestState(label); ok && state == status.StateBurningIn {
				out = append(out, label)
			}
		}

		return out
	}

	return FilterTestsByState(s.Graph, s.Store, map[status.State]bool{status.StateBurningIn: true})
}

func (s *Sweep) maxIterations() int {
	if s.MaxIterations <= 0 {
		return defaultMaxIterations
	}

	return s.MaxIterations
}

// transition validates and applies a state change, then fires the optional
// publish/audit side channels. Side-channel failures are logged and never
// returned to the caller.
func (s *Sweep) transition(ctx context.Context, label string, from, to status.State, runs, passes int) (*Decision, error) {
	if err := lifecycle.Validate(from, to); err != nil {
		return nil, err
	}

	if err := s.Store.SetTestState(label, to, &runs, &passes); err != nil {
		return nil, err
	}

	if err := s.Store.Save(); err != nil {
		return nil, err
	}

	s.Publisher.Publish(publish.TransitionEvent{
		Label:  label,
		From:   from,
		To:     to,
		Runs:   runs,
		Passes: passes,
		At:     time.Now(),
	})

	s.AuditSink.RecordTransition(ctx, label, from, to, runs, passes, nil)

	if s.Logger != nil {
		s.Logger.Info("test state transition",
			"label", label, "from", from, "to", to, "runs", runs, "passes", passes)
	}

	return &Decision{Label: label, From: from, To: to}, nil
}

func remove(labels []string, target string) []string {
	out := labels[:0]

	for _, l := range labels {
		if l != target {
			out = append(out, l)
		}
	}

	return out
}
