package models_test

import (
	"testing"

	"vibelink/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCallSessionOtherParticipant(t *testing.T) {
	session := models.CallSession{
		SessionID:    "s-1",
		ParticipantA: "alice",
		ParticipantB: "bob",
	}

	assert.Equal(t, "bob", session.OtherParticipant("alice"))
	assert.Equal(t, "alice", session.OtherParticipant("bob"))
	assert.Equal(t, "", session.OtherParticipant("mallory"))
}

func TestCallSessionIsActive(t *testing.T) {
	for state, want := range map[string]bool{
		models.SessionStateSignaling: true,
		models.SessionStateConnected: true,
		models.SessionStateFailed:    false,
		models.SessionStateEnded:     false,
	} {
		session := models.CallSession{State: state}
		assert.Equalf(t, want, session.IsActive(), "state %q", state)
	}
}
