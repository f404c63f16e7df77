package validate

import (
	"fmt"
	"strings"
)

// LoanSet is the union of loan account numbers accepted in the current credit
// batch and those already committed to the warehouse partition. Only the keys
// are kept so memory stays independent of record payload size.
type LoanSet map[string]struct{}

// NewLoanSet builds a set from a slice of loan account numbers.
func NewLoanSet(ids []string) LoanSet {
	s := make(LoanSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts a loan account number, ignoring blanks.
func (s LoanSet) Add(id string) {
	id = strings.TrimSpace(id)
	if id != "" {
		s[id] = struct{}{}
	}
}

// Has reports membership.
func (s LoanSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Union folds other into s and returns s.
func (s LoanSet) Union(other LoanSet) LoanSet {
	for id := range other {
		s[id] = struct{}{}
	}
	return s
}

// CrossCheck flags a CROSS_REFERENCE error when the payment row references a
// loan account number outside the known set. Blank loan numbers are left to
// the REQUIRED rule.
func CrossCheck(rr *RowResult, row Row, known LoanSet) bool {
	loanNum := strings.TrimSpace(row["loan_account_number"])
	if loanNum == "" || known.Has(loanNum) {
		return true
	}
	rr.addError("loan_account_number", ErrCrossReference,
		fmt.Sprintf("Payment references non-existent credit: %s", loanNum), loanNum)
	return false
}
