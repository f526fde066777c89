package server

import "github.com/fitduel-vn/fitduel/internal/domains/entities"

// Legal lifecycle transitions. Terminal states are final: nothing maps
// out of completed, cancelled or staking_timeout. Explicit cancellation
// is allowed from any non-terminal state and is handled by
// canTransition directly rather than enumerated here.
var transitions = map[entities.DuelStatus][]entities.DuelStatus{
	entities.DuelSearching: {
		entities.DuelWaitingForStakes,
	},
	entities.DuelWaitingForStakes: {
		entities.DuelAccepted,
		entities.DuelStakingTimeout,
	},
	entities.DuelAccepted: {
		entities.DuelActive,
	},
	entities.DuelActive: {
		entities.DuelMonitoringHealth,
		entities.DuelCompleted,
	},
	entities.DuelMonitoringHealth: {
		entities.DuelCompleted,
	},
}

func canTransition(from, to entities.DuelStatus) bool {
	if to == entities.DuelCancelled {
		return !from.Terminal()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// nonTerminalStatuses is the condition set for "cancel from anywhere"
// conditional writes.
var nonTerminalStatuses = []entities.DuelStatus{
	entities.DuelSearching,
	entities.DuelConfirming,
	entities.DuelWaitingForStakes,
	entities.DuelAccepted,
	entities.DuelActive,
	entities.DuelMonitoringHealth,
}
