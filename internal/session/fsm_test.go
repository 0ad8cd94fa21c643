package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	steps := []struct {
		event Event
		want  Phase
	}{
		{EventLoaded, PhaseInstructions},
		{EventBegin, PhaseQuestioning},
		{EventComplete, PhaseCompleting},
		{EventCompleted, PhaseDone},
	}

	phase := PhaseLoading
	for _, step := range steps {
		next, err := Transition(phase, step.event)
		require.NoError(t, err, "event %s from %s", step.event, phase)
		require.Equal(t, step.want, next)
		phase = next
	}
}

func TestTransitionTerminateFromAnyLivePhase(t *testing.T) {
	for _, phase := range []Phase{PhaseLoading, PhaseInstructions, PhaseQuestioning, PhaseCompleting} {
		next, err := Transition(phase, EventTerminate)
		require.NoError(t, err, "terminate from %s", phase)
		require.Equal(t, PhaseTerminated, next)
	}
}

func TestTransitionTerminalPhasesAcceptNothing(t *testing.T) {
	events := []Event{EventLoaded, EventBegin, EventComplete, EventCompleted, EventTerminate}
	for _, phase := range []Phase{PhaseDone, PhaseTerminated} {
		for _, event := range events {
			next, err := Transition(phase, event)
			require.Error(t, err, "event %s from %s", event, phase)
			require.Equal(t, phase, next)
		}
	}
}

func TestTransitionRejectsSkips(t *testing.T) {
	cases := []struct {
		phase Phase
		event Event
	}{
		{PhaseLoading, EventBegin},
		{PhaseLoading, EventComplete},
		{PhaseInstructions, EventLoaded},
		{PhaseInstructions, EventComplete},
		{PhaseQuestioning, EventBegin},
		{PhaseQuestioning, EventCompleted},
		{PhaseCompleting, EventComplete},
	}
	for _, tc := range cases {
		next, err := Transition(tc.phase, tc.event)
		require.Error(t, err, "event %s from %s", tc.event, tc.phase)
		require.Equal(t, tc.phase, next, "failed transition must not move the phase")
	}
}

func TestTransitionUnknownPhase(t *testing.T) {
	_, err := Transition(Phase("bogus"), EventLoaded)
	require.Error(t, err)
}
