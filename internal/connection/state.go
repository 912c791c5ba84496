package connection

import (
	"slices"

	"skillswap/internal/domain"
)

// validTransitions defines allowed canonical state transitions. A rejected
// relationship is terminal but re-requestable; connected is final.
var validTransitions = map[domain.State][]domain.State{
	domain.StateNotConnected: {domain.StatePending},
	domain.StatePending:      {domain.StateConnected, domain.StateRejected, domain.StateNotConnected},
	domain.StateRejected:     {domain.StatePending},
	domain.StateConnected:    {},
}

// canTransition reports whether moving between two canonical states is legal.
func canTransition(from, to domain.State) bool {
	return slices.Contains(validTransitions[from], to)
}
