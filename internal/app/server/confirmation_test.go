package server

import (
	"context"
	"testing"

	"github.com/fitduel-vn/fitduel/internal/domains/entities"
	"github.com/stretchr/testify/require"
)

// pairedDuel seeds a duel that just came out of pairing: both sides
// matched, confirmation open, staking window running.
func pairedDuel(fx *fixture) entities.Duel {
	duel := entities.Duel{
		Id:               "duel-1",
		User1:            "alice",
		User2:            "bob",
		ChallengeId:      stepsChallenge.Id,
		Status:           entities.DuelWaitingForStakes,
		User1StakeStatus: entities.StakeUnstaked,
		User2StakeStatus: entities.StakeUnstaked,
	}
	fx.seedChallenge(stepsChallenge)
	fx.seedDuel(duel)
	fx.cache.OpenConfirmation(context.Background(), duel.Id, duel.User1, duel.User2)
	return duel
}

func TestConfirmMatchFirstYesKeepsDuelOpen(t *testing.T) {
	fx := newFixture()
	duel := pairedDuel(fx)

	err := fx.coordinator.ConfirmMatch(context.Background(), duel.Id, "alice", entities.AnswerYes)
	require.NoError(t, err)

	require.Equal(t, entities.DuelWaitingForStakes, fx.duel(duel.Id).Status)
	require.Len(t, fx.channel.eventsOfType(EventParticipantConfirm), 1)
	require.Empty(t, fx.channel.eventsOfType(EventMatchConfirmed))

	confirms, err := fx.cache.GetConfirmations(context.Background(), duel.Id)
	require.NoError(t, err)
	require.Equal(t, entities.AnswerYes, confirms["alice"])
	require.Equal(t, entities.AnswerPending, confirms["bob"])
}

func TestConfirmMatchBothYesAcceptsOnce(t *testing.T) {
	fx := newFixture()
	duel := pairedDuel(fx)

	require.NoError(t, fx.coordinator.ConfirmMatch(context.Background(), duel.Id, "alice", entities.AnswerYes))
	require.NoError(t, fx.coordinator.ConfirmMatch(context.Background(), duel.Id, "bob", entities.AnswerYes))

	require.Equal(t, entities.DuelAccepted, fx.duel(duel.Id).Status)
	require.Len(t, fx.channel.eventsOfType(EventMatchConfirmed), 1)

	// The confirmation record is consumed with the acceptance.
	confirms, err := fx.cache.GetConfirmations(context.Background(), duel.Id)
	require.NoError(t, err)
	require.Empty(t, confirms)
}

func TestConfirmMatchNoCancelsImmediately(t *testing.T) {
	fx := newFixture()
	duel := pairedDuel(fx)

	require.NoError(t, fx.coordinator.ConfirmMatch(context.Background(), duel.Id, "alice", entities.AnswerYes))
	require.NoError(t, fx.coordinator.ConfirmMatch(context.Background(), duel.Id, "bob", entities.AnswerNo))

	require.Equal(t, entities.DuelCancelled, fx.duel(duel.Id).Status)

	cancelled := fx.channel.eventsOfType(EventDuelCancelled)
	require.Len(t, cancelled, 1)
	payload, ok := cancelled[0].Payload.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "participant_declined", payload["reason"])
	require.Equal(t, "bob", payload["declinedBy"])

	confirms, err := fx.cache.GetConfirmations(context.Background(), duel.Id)
	require.NoError(t, err)
	require.Empty(t, confirms)
}

// Stakes placed while the confirmation was still open are gated on
// acceptance; the second yes releases them and starts the duel.
func TestConfirmMatchSecondYesActivatesWhenBothStaked(t *testing.T) {
	fx := newFixture()
	duel := pairedDuel(fx)

	require.NoError(t, fx.coordinator.OnStakeObserved(context.Background(), duel.Id, "alice"))
	require.NoError(t, fx.coordinator.OnStakeObserved(context.Background(), duel.Id, "bob"))
	require.Equal(t, entities.DuelWaitingForStakes, fx.duel(duel.Id).Status)

	require.NoError(t, fx.coordinator.ConfirmMatch(context.Background(), duel.Id, "alice", entities.AnswerYes))
	require.NoError(t, fx.coordinator.ConfirmMatch(context.Background(), duel.Id, "bob", entities.AnswerYes))

	started := fx.duel(duel.Id)
	require.Equal(t, entities.DuelActive, started.Status)
	require.NotNil(t, started.DuelStartTime)
	require.NotNil(t, started.DuelEndTime)
	require.Len(t, fx.channel.eventsOfType(EventDuelStarted), 1)
}

func TestConfirmMatchRejections(t *testing.T) {
	fx := newFixture()
	duel := pairedDuel(fx)

	err := fx.coordinator.ConfirmMatch(context.Background(), duel.Id, "alice", "maybe")
	requireKind(t, err, KindValidation)

	err = fx.coordinator.ConfirmMatch(context.Background(), duel.Id, "mallory", entities.AnswerYes)
	requireKind(t, err, KindForbidden)

	err = fx.coordinator.ConfirmMatch(context.Background(), "no-such-duel", "alice", entities.AnswerYes)
	requireKind(t, err, KindNotFound)
}

// A late answer racing a cancellation must not resurrect the cleared
// confirmation record; the next read still sees it closed.
func TestLateAnswerDoesNotRecreateClearedRecord(t *testing.T) {
	fx := newFixture()
	duel := pairedDuel(fx)

	require.NoError(t, fx.coordinator.ConfirmMatch(context.Background(), duel.Id, "bob", entities.AnswerNo))
	require.Equal(t, entities.DuelCancelled, fx.duel(duel.Id).Status)

	// The in-flight answer write lands after the clear and is dropped.
	require.NoError(t, fx.cache.RecordAnswer(context.Background(), duel.Id, "alice", entities.AnswerYes))
	confirms, err := fx.cache.GetConfirmations(context.Background(), duel.Id)
	require.NoError(t, err)
	require.Empty(t, confirms)

	err = fx.coordinator.ConfirmMatch(context.Background(), duel.Id, "alice", entities.AnswerYes)
	requireKind(t, err, KindNotFound)
}

func TestConfirmationTimeoutCancelsUnanswered(t *testing.T) {
	fx := newFixture()
	duel := pairedDuel(fx)

	require.NoError(t, fx.coordinator.ConfirmMatch(context.Background(), duel.Id, "alice", entities.AnswerYes))
	fx.coordinator.handleConfirmationTimeout(context.Background(), duel.Id)

	require.Equal(t, entities.DuelCancelled, fx.duel(duel.Id).Status)

	cancelled := fx.channel.eventsOfType(EventDuelCancelled)
	require.Len(t, cancelled, 1)
	payload := cancelled[0].Payload.(map[string]interface{})
	require.Equal(t, "no response in time", payload["reason"])
}

func TestConfirmationTimeoutAfterBothAnsweredIsNoop(t *testing.T) {
	fx := newFixture()
	duel := pairedDuel(fx)

	require.NoError(t, fx.coordinator.ConfirmMatch(context.Background(), duel.Id, "alice", entities.AnswerYes))
	require.NoError(t, fx.coordinator.ConfirmMatch(context.Background(), duel.Id, "bob", entities.AnswerYes))

	fx.coordinator.handleConfirmationTimeout(context.Background(), duel.Id)

	require.Equal(t, entities.DuelAccepted, fx.duel(duel.Id).Status)
	require.Empty(t, fx.channel.eventsOfType(EventDuelCancelled))
}
