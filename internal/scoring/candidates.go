package scoring

import "fmt"

// CandidateSet is the ordered, immutable set X of alternatives under
// consideration. Every member has the same dimension.
type CandidateSet struct {
	alts []Alternative
	dim  int
}

// NewCandidateSet copies alts into a new set, rejecting empty or
// non-finite alternatives and any dimension disagreement with the first.
func NewCandidateSet(alts []Alternative) (*CandidateSet, error) {
	if len(alts) == 0 {
		return nil, fmt.Errorf("candidate set is empty")
	}
	dim := alts[0].Dim()
	out := make([]Alternative, len(alts))
	for i, a := range alts {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("alternative %d: %w", i, err)
		}
		if a.Dim() != dim {
			return nil, &DimensionError{Index: i, Want: dim, Got: a.Dim()}
		}
		out[i] = a.Clone()
	}
	return &CandidateSet{alts: out, dim: dim}, nil
}

// FromRows builds a set from raw score rows.
func FromRows(rows [][]float64) (*CandidateSet, error) {
	alts := make([]Alternative, len(rows))
	for i, r := range rows {
		alts[i] = Alternative(r)
	}
	return NewCandidateSet(alts)
}

// Len returns |X|.
func (c *CandidateSet) Len() int { return len(c.alts) }

// Dim returns the criterion count m.
func (c *CandidateSet) Dim() int { return c.dim }

// At returns the i-th alternative. Callers must not modify it.
func (c *CandidateSet) At(i int) Alternative { return c.alts[i] }

// Alternatives returns a deep copy of the members in order.
func (c *CandidateSet) Alternatives() []Alternative {
	out := make([]Alternative, len(c.alts))
	for i, a := range c.alts {
		out[i] = a.Clone()
	}
	return out
}

// IndexOf returns the position of the first member equal to a, or -1.
func (c *CandidateSet) IndexOf(a Alternative) int {
	for i, b := range c.alts {
		if b.Equal(a) {
			return i
		}
	}
	return -1
}

// Distinct counts value-distinct members.
func (c *CandidateSet) Distinct() int {
	n := 0
	for i := range c.alts {
		if c.IndexOf(c.alts[i]) == i {
			n++
		}
	}
	return n
}
