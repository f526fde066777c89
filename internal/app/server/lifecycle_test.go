package server

import (
	"testing"

	"github.com/fitduel-vn/fitduel/internal/domains/entities"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name    string
		from    entities.DuelStatus
		to      entities.DuelStatus
		allowed bool
	}{
		{"pairing", entities.DuelSearching, entities.DuelWaitingForStakes, true},
		{"acceptance", entities.DuelWaitingForStakes, entities.DuelAccepted, true},
		{"staking expiry", entities.DuelWaitingForStakes, entities.DuelStakingTimeout, true},
		{"activation", entities.DuelAccepted, entities.DuelActive, true},
		{"monitoring", entities.DuelActive, entities.DuelMonitoringHealth, true},
		{"settle from active", entities.DuelActive, entities.DuelCompleted, true},
		{"settle from monitoring", entities.DuelMonitoringHealth, entities.DuelCompleted, true},

		{"skip pairing", entities.DuelSearching, entities.DuelActive, false},
		{"skip acceptance", entities.DuelWaitingForStakes, entities.DuelActive, false},
		{"settle unaccepted", entities.DuelWaitingForStakes, entities.DuelCompleted, false},
		{"expire accepted", entities.DuelAccepted, entities.DuelStakingTimeout, false},
		{"reopen completed", entities.DuelCompleted, entities.DuelActive, false},
		{"reopen cancelled", entities.DuelCancelled, entities.DuelSearching, false},

		{"cancel searching", entities.DuelSearching, entities.DuelCancelled, true},
		{"cancel active", entities.DuelActive, entities.DuelCancelled, true},
		{"cancel monitoring", entities.DuelMonitoringHealth, entities.DuelCancelled, true},
		{"cancel completed", entities.DuelCompleted, entities.DuelCancelled, false},
		{"cancel expired", entities.DuelStakingTimeout, entities.DuelCancelled, false},
		{"cancel cancelled", entities.DuelCancelled, entities.DuelCancelled, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.allowed, canTransition(tc.from, tc.to))
		})
	}
}

func TestTerminalStatuses(t *testing.T) {
	require.True(t, entities.DuelCompleted.Terminal())
	require.True(t, entities.DuelCancelled.Terminal())
	require.True(t, entities.DuelStakingTimeout.Terminal())
	require.False(t, entities.DuelActive.Terminal())
	require.False(t, entities.DuelWaitingForStakes.Terminal())

	require.True(t, entities.DuelActive.ScoringOpen())
	require.True(t, entities.DuelMonitoringHealth.ScoringOpen())
	require.False(t, entities.DuelAccepted.ScoringOpen())
	require.False(t, entities.DuelCompleted.ScoringOpen())
}
