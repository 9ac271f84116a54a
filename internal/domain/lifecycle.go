package domain

// allowedTransitions defines the edges of the ticket status machine.
// The received edges out of open states cover follow-up merges, which
// re-open a ticket so the department queue re-surfaces it. Every open
// state also has a pending_adm edge: a department can ask for
// clarification at any point before the ticket is closed, even after
// it has responded.
var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusReceived:        {TicketStatusRouted, TicketStatusResponded, TicketStatusPendingAdm, TicketStatusClosed},
	TicketStatusRouted:          {TicketStatusResponded, TicketStatusPendingAdm, TicketStatusReceived, TicketStatusClosed},
	TicketStatusPendingAdm:      {TicketStatusRouted, TicketStatusReceived, TicketStatusResponded, TicketStatusClosed},
	TicketStatusResponded:       {TicketStatusScriptGenerated, TicketStatusPendingAdm, TicketStatusReceived, TicketStatusClosed},
	TicketStatusScriptGenerated: {TicketStatusScriptSent, TicketStatusPendingAdm, TicketStatusReceived, TicketStatusClosed},
	TicketStatusScriptSent:      {TicketStatusPendingAdm, TicketStatusReceived, TicketStatusClosed},
	TicketStatusClosed:          {TicketStatusRouted},
}

// CanTransition reports whether moving from current to next is a legal edge.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
