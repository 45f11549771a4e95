package barrier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vk/flowgridgo/internal/node"
)

// ErrMergeFailed is returned by Wait when the configured policy cannot be
// satisfied: a require_all branch cancelled or timed out, a quorum was
// missed, or the selected branch never arrived.
var ErrMergeFailed = errors.New("coalesce merge failed")

// Config carries the barrier-relevant fields of a coalesce node.
type Config struct {
	Branches []string
	Policy   node.MergePolicy
	Strategy node.MergeStrategy
	Quorum   int
	Select   string
	// Timeout of zero means no timeout: require_all then waits forever
	// for a branch that never reports.
	Timeout time.Duration
}

// Barrier hands out per-row waiters for one coalesce node.
type Barrier struct {
	cfg Config

	mu      sync.Mutex
	waiters map[string]*Waiter
}

// New validates the configuration and creates a barrier.
func New(cfg Config) (*Barrier, error) {
	if len(cfg.Branches) == 0 {
		return nil, fmt.Errorf("barrier: no branches configured")
	}
	if cfg.Policy == node.PolicyQuorum && (cfg.Quorum < 1 || cfg.Quorum > len(cfg.Branches)) {
		return nil, fmt.Errorf("barrier: quorum %d out of range for %d branches", cfg.Quorum, len(cfg.Branches))
	}
	if cfg.Strategy == node.StrategySelect {
		found := false
		for _, b := range cfg.Branches {
			if b == cfg.Select {
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("barrier: select branch %q not in branch set", cfg.Select)
		}
	}
	return &Barrier{cfg: cfg, waiters: make(map[string]*Waiter)}, nil
}

// Waiter returns the waiter for a row identity, creating it on first use.
func (b *Barrier) Waiter(rowID string) *Waiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w, ok := b.waiters[rowID]; ok {
		return w
	}
	w := newWaiter(b.cfg)
	b.waiters[rowID] = w
	return w
}

// Release drops the waiter for a row identity once its merge resolved.
func (b *Barrier) Release(rowID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.waiters, rowID)
}

// Waiter is the synchronization point for one forked row.
type Waiter struct {
	cfg Config

	mu        sync.Mutex
	arrived   map[string]map[string]any
	cancelled map[string]error
	done      chan struct{}
	result    map[string]any
	err       error
}

func newWaiter(cfg Config) *Waiter {
	w := &Waiter{
		cfg:       cfg,
		arrived:   make(map[string]map[string]any),
		cancelled: make(map[string]error),
		done:      make(chan struct{}),
	}
	if cfg.Timeout > 0 {
		time.AfterFunc(cfg.Timeout, w.onTimeout)
	}
	return w
}

// Deliver reports a branch's row to the waiter. Deliveries after the
// merge resolved are ignored (the "first" policy depends on this).
func (w *Waiter) Deliver(branchName string, row map[string]any) error {
	if !w.knownBranch(branchName) {
		return fmt.Errorf("barrier: delivery for unknown branch %q", branchName)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.resolved() {
		return nil
	}
	if _, dup := w.arrived[branchName]; dup {
		return fmt.Errorf("barrier: duplicate delivery for branch %q", branchName)
	}
	w.arrived[branchName] = row
	w.evaluate()
	return nil
}

// Cancel reports that a branch permanently failed. The policy decides
// what that means; it is never swallowed silently.
func (w *Waiter) Cancel(branchName string, cause error) error {
	if !w.knownBranch(branchName) {
		return fmt.Errorf("barrier: cancellation for unknown branch %q", branchName)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.resolved() {
		return nil
	}
	w.cancelled[branchName] = cause
	w.evaluate()
	return nil
}

// Wait blocks until the merge resolves or the context is cancelled, then
// returns the merged row.
func (w *Waiter) Wait(ctx context.Context) (map[string]any, error) {
	select {
	case <-w.done:
		return w.result, w.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *Waiter) knownBranch(branchName string) bool {
	for _, b := range w.cfg.Branches {
		if b == branchName {
			return true
		}
	}
	return false
}

// resolved must be called with the lock held.
func (w *Waiter) resolved() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// evaluate applies the merge policy after every event. Must be called with
// the lock held.
func (w *Waiter) evaluate() {
	total := len(w.cfg.Branches)
	reported := len(w.arrived) + len(w.cancelled)

	switch w.cfg.Policy {
	case node.PolicyFirst:
		if len(w.arrived) >= 1 {
			w.resolve()
			return
		}
		if len(w.cancelled) == total {
			w.fail(fmt.Errorf("%w: every branch cancelled", ErrMergeFailed))
		}

	case node.PolicyQuorum:
		if len(w.arrived) >= w.cfg.Quorum {
			w.resolve()
			return
		}
		if len(w.arrived)+(total-reported) < w.cfg.Quorum {
			w.fail(fmt.Errorf("%w: quorum of %d unreachable with %d cancellations", ErrMergeFailed, w.cfg.Quorum, len(w.cancelled)))
		}

	case node.PolicyRequireAll:
		if len(w.cancelled) > 0 {
			branchName, cause := firstCancellation(w.cfg.Branches, w.cancelled)
			w.fail(fmt.Errorf("%w: branch %q cancelled: %v", ErrMergeFailed, branchName, cause))
			return
		}
		if len(w.arrived) == total {
			w.resolve()
		}

	case node.PolicyBestEffort:
		if reported == total {
			w.resolve()
		}
	}
}

// onTimeout fires once when the configured timeout elapses.
func (w *Waiter) onTimeout() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.resolved() {
		return
	}
	switch w.cfg.Policy {
	case node.PolicyBestEffort:
		w.resolve()
	case node.PolicyFirst, node.PolicyQuorum, node.PolicyRequireAll:
		w.fail(fmt.Errorf("%w: timeout after %s with %d of %d branches arrived",
			ErrMergeFailed, w.cfg.Timeout, len(w.arrived), len(w.cfg.Branches)))
	}
}

// resolve merges the arrived branches per the strategy and wakes waiters.
// Must be called with the lock held.
func (w *Waiter) resolve() {
	switch w.cfg.Strategy {
	case node.StrategyUnion:
		merged := make(map[string]any)
		// Branch declaration order; first writer wins on overlap, which
		// keeps the union deterministic regardless of arrival order.
		for _, branchName := range w.cfg.Branches {
			row, ok := w.arrived[branchName]
			if !ok {
				continue
			}
			for k, v := range row {
				if _, exists := merged[k]; !exists {
					merged[k] = v
				}
			}
		}
		w.result = merged

	case node.StrategyNested:
		merged := make(map[string]any, len(w.arrived))
		for branchName, row := range w.arrived {
			merged[branchName] = row
		}
		w.result = merged

	case node.StrategySelect:
		row, ok := w.arrived[w.cfg.Select]
		if !ok {
			w.fail(fmt.Errorf("%w: selected branch %q did not arrive", ErrMergeFailed, w.cfg.Select))
			return
		}
		w.result = row
	}
	close(w.done)
}

// fail records the policy failure and wakes waiters. Must be called with
// the lock held.
func (w *Waiter) fail(err error) {
	w.err = err
	close(w.done)
}

func firstCancellation(order []string, cancelled map[string]error) (string, error) {
	for _, branchName := range order {
		if cause, ok := cancelled[branchName]; ok {
			return branchName, cause
		}
	}
	return "", nil
}
