package scoring

// ComputeFrontier returns the Pareto-optimal members of the set, in order.
// With non-negative weights a dominated alternative can never score strictly
// above its dominator, so pruning it leaves the minimax recommendation's
// regret bound intact. Exact duplicates do not dominate each other and are
// both kept. O(n^2) dominance check.
func ComputeFrontier(set *CandidateSet) (*CandidateSet, error) {
	if set.Len() <= 1 {
		return set, nil
	}

	var frontier []Alternative
	for i := range set.alts {
		dominated := false
		for j := range set.alts {
			if i == j {
				continue
			}
			if Dominates(set.alts[j], set.alts[i]) {
				dominated = true
				break
			}
		}
		if !dominated {
			frontier = append(frontier, set.alts[i])
		}
	}
	return NewCandidateSet(frontier)
}

// PruneDominated returns the frontier of set, or set itself when the frontier
// keeps fewer than two distinct alternatives. A single undominated point
// leaves nothing to compare, while on the full set it shows up with
// non-positive regret and is still recommended.
func PruneDominated(set *CandidateSet) (*CandidateSet, error) {
	front, err := ComputeFrontier(set)
	if err != nil {
		return nil, err
	}
	if front.Distinct() < 2 {
		return set, nil
	}
	return front, nil
}

// Dominates returns true if a is >= b on every criterion and strictly
// better on at least one. Vectors of different length never dominate.
func Dominates(a, b Alternative) bool {
	if len(a) != len(b) {
		return false
	}
	strict := false
	for i := range a {
		if a[i] < b[i] {
			return false
		}
		if a[i] > b[i] {
			strict = true
		}
	}
	return strict
}
