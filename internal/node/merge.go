package node

import "fmt"

// MergePolicy is the completion rule a coalesce node uses to decide when,
// or whether, to proceed with a merge.
type MergePolicy int

const (
	// PolicyRequireAll succeeds only if every branch arrives before the
	// timeout.
	PolicyRequireAll MergePolicy = iota
	// PolicyQuorum succeeds once N of M branches arrive.
	PolicyQuorum
	// PolicyBestEffort proceeds with whatever arrived by the timeout.
	PolicyBestEffort
	// PolicyFirst acts on the earliest arrival and ignores the rest.
	PolicyFirst
)

var policyNames = map[MergePolicy]string{
	PolicyRequireAll: "require_all",
	PolicyQuorum:     "quorum",
	PolicyBestEffort: "best_effort",
	PolicyFirst:      "first",
}

func (p MergePolicy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("MergePolicy(%d)", int(p))
}

// ParseMergePolicy maps a policy tag from a definition file to its MergePolicy.
func ParseMergePolicy(tag string) (MergePolicy, error) {
	for p, name := range policyNames {
		if name == tag {
			return p, nil
		}
	}
	return PolicyRequireAll, fmt.Errorf("unrecognized merge policy %q", tag)
}

// MergeStrategy is the data-combination rule a coalesce node applies once
// its policy decides to proceed.
type MergeStrategy int

const (
	// StrategyUnion flattens all branch fields into one row; overlapping
	// fields must be type-compatible under the contract merge algebra.
	StrategyUnion MergeStrategy = iota
	// StrategyNested keeps each branch's data under its own branch-named
	// key, with no cross-branch type constraint.
	StrategyNested
	// StrategySelect keeps only one designated branch's data.
	StrategySelect
)

var strategyNames = map[MergeStrategy]string{
	StrategyUnion:  "union",
	StrategyNested: "nested",
	StrategySelect: "select",
}

func (s MergeStrategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("MergeStrategy(%d)", int(s))
}

// ParseMergeStrategy maps a strategy tag from a definition file to its
// MergeStrategy.
func ParseMergeStrategy(tag string) (MergeStrategy, error) {
	for s, name := range strategyNames {
		if name == tag {
			return s, nil
		}
	}
	return StrategyUnion, fmt.Errorf("unrecognized merge strategy %q", tag)
}
