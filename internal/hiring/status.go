package hiring

import "fmt"

type Status string

const (
	StatusNew          Status = "new"
	StatusScreening    Status = "screening"
	StatusInterviewing Status = "interviewing"
	StatusOffer        Status = "offer"
	StatusHired        Status = "hired"
	StatusRejected     Status = "rejected"
)

// pipeline lists the forward stages in order; rejected sits outside it.
var pipeline = []Status{StatusNew, StatusScreening, StatusInterviewing, StatusOffer, StatusHired}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if st == StatusRejected || stage(st) >= 0 {
		return st, nil
	}
	return "", fmt.Errorf("unknown candidate status %q", s)
}

func (s Status) Terminal() bool {
	return s == StatusHired || s == StatusRejected
}

// CanTransition reports whether a candidate may move from one status to another.
// Forward moves and a single step back are allowed; terminal states are final.
func CanTransition(from, to Status) bool {
	if from == to || from.Terminal() {
		return false
	}
	if to == StatusRejected {
		return true
	}

	f, t := stage(from), stage(to)
	if f < 0 || t < 0 {
		return false
	}
	return t > f || t == f-1
}

func stage(s Status) int {
	for i, st := range pipeline {
		if st == s {
			return i
		}
	}
	return -1
}
