// Package votes keeps the per-review vote ledger. Each voter holds at most
// one vote per review; casting the same direction twice retracts it and
// casting the opposite direction flips it.
package votes

const (
	Up   = 1
	Down = -1
	none = 0
)

type Action int

const (
	ActionInsert Action = iota + 1
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Transition returns the voter's next state and the storage action that
// gets there. current is 0 when the voter has no vote on the review.
func Transition(current, requested int) (next int, action Action) {
	switch current {
	case none:
		return requested, ActionInsert
	case requested:
		return none, ActionDelete
	default:
		return requested, ActionUpdate
	}
}

func validValue(v int) bool {
	return v == Up || v == Down
}
