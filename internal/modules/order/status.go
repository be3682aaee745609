package order

import "strings"

// Older documents carry the statuses the first release of the app wrote.
var legacyStatuses = map[string]Status{
	"pendiente":  StatusPending,
	"en_proceso": StatusInProgress,
	"listo":      StatusReady,
	"entregado":  StatusDelivered,
	"cancelado":  StatusCancelled,
}

// ParseStatus accepts canonical and legacy spellings, case-insensitively.
func ParseStatus(s string) (Status, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, st := range AllStatuses {
		if string(st) == v {
			return st, true
		}
	}
	if st, ok := legacyStatuses[v]; ok {
		return st, true
	}
	return "", false
}

// normalizeStatus maps a stored value to its canonical form and passes
// unknown values through untouched.
func normalizeStatus(raw string) Status {
	if st, ok := ParseStatus(raw); ok {
		return st
	}
	return Status(raw)
}

func (s Status) Known() bool {
	_, ok := ParseStatus(string(s))
	return ok
}

// Label is the human-readable name; unknown statuses are shown verbatim.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In progress"
	case StatusReady:
		return "Ready"
	case StatusDelivered:
		return "Delivered"
	case StatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// StockAction is the inventory side effect of a status change.
type StockAction string

const (
	StockNone    StockAction = "none"
	StockDeduct  StockAction = "deduct"
	StockRestore StockAction = "restore"
)

// stockActionFor decides the stock side effect of moving from previous to
// next. Transitions themselves are unrestricted, so toggling an order in and
// out of delivered deducts and restores every time.
func stockActionFor(previous, next Status) StockAction {
	switch {
	case next == StatusDelivered && previous != StatusDelivered:
		return StockDeduct
	case previous == StatusDelivered && next != StatusDelivered:
		return StockRestore
	default:
		return StockNone
	}
}
