package models

import "time"

// Call types carried by a MatchRequest and its resulting session.
const (
	CallTypeVideo = "video"
	CallTypeVoice = "voice"
)

// CallSession lifecycle: signaling -> connected -> ended, with
// signaling -> failed -> ended on error.
const (
	SessionStateSignaling = "signaling"
	SessionStateConnected = "connected"
	SessionStateFailed    = "failed"
	SessionStateEnded     = "ended"
)

// CallSession represents a 1-on-1 call between two matched users.
// It always references exactly two distinct participants and is the
// sole routing scope for their signaling messages.
type CallSession struct {
	// SessionID is the unique identifier for the session (UUID).
	SessionID string `gorm:"primaryKey" json:"session_id"`
	// ParticipantA is the anonymous ID of the requester side.
	ParticipantA string `gorm:"index" json:"participant_a"`
	// ParticipantB is the anonymous ID of the matched side.
	ParticipantB string `gorm:"index" json:"participant_b"`
	// CallType is "video" or "voice".
	CallType string `json:"call_type"`
	// State is one of the SessionState* constants.
	State string `json:"state"`
	// EndReason records why the session ended ("hangup", "peer_disconnected",
	// "signaling_timeout", ...). Empty while active.
	EndReason string `json:"end_reason,omitempty"`
	// StartedAt is the timestamp when the session was created.
	StartedAt time.Time `json:"started_at"`
	// EndedAt is the timestamp when the session reached its terminal state.
	EndedAt time.Time `json:"ended_at"`
}

// IsActive reports whether the session still owns signaling routing.
func (s *CallSession) IsActive() bool {
	return s.State == SessionStateSignaling || s.State == SessionStateConnected
}

// OtherParticipant returns the peer of the given user, or "" when the
// user is not part of the session.
func (s *CallSession) OtherParticipant(userID string) string {
	switch userID {
	case s.ParticipantA:
		return s.ParticipantB
	case s.ParticipantB:
		return s.ParticipantA
	default:
		return ""
	}
}
