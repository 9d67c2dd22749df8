package scoring

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the
	// criterion count of the session it is used in.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrEmptyAlternative is returned for an alternative with no criteria.
	ErrEmptyAlternative = errors.New("alternative has no criteria")
	// ErrNonFinite is returned when a score or weight is NaN or infinite.
	ErrNonFinite = errors.New("non-finite value")
)

// DimensionError records which vector broke the dimension invariant.
type DimensionError struct {
	Index int // position in the input, -1 when not applicable
	Want  int
	Got   int
}

func (e *DimensionError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("dimension mismatch: want %d criteria, got %d", e.Want, e.Got)
	}
	return fmt.Sprintf("dimension mismatch at alternative %d: want %d criteria, got %d", e.Index, e.Want, e.Got)
}

func (e *DimensionError) Is(target error) bool { return target == ErrDimensionMismatch }

// CheckDim returns a *DimensionError when got != want.
func CheckDim(want, got int) error {
	if want != got {
		return &DimensionError{Index: -1, Want: want, Got: got}
	}
	return nil
}

// Alternative is a candidate option scored on m criteria. Treat it as
// immutable once it has been handed to a CandidateSet.
type Alternative []float64

// Dim returns the number of criteria.
func (a Alternative) Dim() int { return len(a) }

// Equal reports exact value-wise equality.
func (a Alternative) Equal(b Alternative) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy that does not share storage with a.
func (a Alternative) Clone() Alternative {
	if a == nil {
		return nil
	}
	out := make(Alternative, len(a))
	copy(out, a)
	return out
}

// Validate checks that the alternative has criteria and every score is finite.
func (a Alternative) Validate() error {
	if len(a) == 0 {
		return ErrEmptyAlternative
	}
	for i, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("criterion %d: %w", i, ErrNonFinite)
		}
	}
	return nil
}

func (a Alternative) String() string {
	parts := make([]string, len(a))
	for i, v := range a {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
