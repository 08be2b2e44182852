package payroll

// RunStatus enum
type RunStatus string

const (
	RunStatusDraft     RunStatus = "draft"
	RunStatusValidated RunStatus = "validated"
	RunStatusApproved  RunStatus = "approved"
	RunStatusPaid      RunStatus = "paid"
)

// transitions lists every allowed move. Status only advances; validated -> validated
// is a recalculation that replaces the run's items.
var transitions = map[RunStatus][]RunStatus{
	RunStatusDraft:     {RunStatusValidated},
	RunStatusValidated: {RunStatusValidated, RunStatusApproved},
	RunStatusApproved:  {RunStatusPaid},
	RunStatusPaid:      {},
}

func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Exportable reports whether artifacts may be generated in this status
func (s RunStatus) Exportable() bool {
	return s == RunStatusApproved || s == RunStatusPaid
}
