package domain

// allowedTransitions applies only when strict transitions are enabled.
// Closed has no outgoing edges; reopening goes through the explicit reopen action.
var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:            {TicketStatusInProgress, TicketStatusPendingCustomer, TicketStatusResolved, TicketStatusClosed},
	TicketStatusInProgress:      {TicketStatusOpen, TicketStatusPendingCustomer, TicketStatusResolved, TicketStatusClosed},
	TicketStatusPendingCustomer: {TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed},
	TicketStatusResolved:        {TicketStatusInProgress, TicketStatusClosed},
	TicketStatusClosed:          {},
}

// IsValidTransition reports whether current may move to next under the
// strict table. Setting the same status is always allowed.
func IsValidTransition(current, next TicketStatus) bool {
	if current == next {
		return true
	}
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CanReopen reports whether the explicit reopen action applies.
func CanReopen(current TicketStatus) bool {
	return current.Finished()
}
