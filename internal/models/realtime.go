package models

import (
	"encoding/json"
	"time"
)

// Event types multiplexed over one client socket.
const (
	EventMatchRequest = "match_request"
	EventMatchCancel  = "match_cancel"
	EventMatchFound   = "match_found"
	EventMatchFailed  = "match_failed"
	EventSignal       = "signal"
	EventStateReport  = "state_report"
	EventHangup       = "hangup"
	EventSessionEnded = "session_ended"
	EventHeartbeat    = "heartbeat"
	EventError        = "error"
)

// Signaling message kinds. Offer/answer/candidate sequencing is
// order-sensitive, so the hub never reorders or coalesces them.
const (
	SignalOffer        = "offer"
	SignalAnswer       = "answer"
	SignalICECandidate = "ice_candidate"
	SignalHangup       = "hangup"
)

// Match request lifecycle. A request's life ends at the handoff: once
// matched, the call itself is tracked by the session and by presence
// status, not by the request.
const (
	RequestWaiting = "waiting"
	RequestMatched = "matched"
	RequestEnded   = "ended"
)

// Event is the wire envelope for everything a client sends or receives.
type Event struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	SenderID  string          `json:"sender_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// SignalingMessage is relayed between the two participants of a session.
// Ephemeral: delivered, never persisted.
type SignalingMessage struct {
	SessionID  string          `json:"session_id"`
	FromUserID string          `json:"from_user_id"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// MatchRequestPayload is what a client sends with EventMatchRequest.
type MatchRequestPayload struct {
	PreferredGender string `json:"preferred_gender"`
	CallType        string `json:"call_type"`
}

// MatchFoundPayload is pushed to both sides when the matcher pairs them.
type MatchFoundPayload struct {
	SessionID string `json:"session_id"`
	PartnerID string `json:"partner_id"`
	CallType  string `json:"call_type"`
	// Initiator is true on the side expected to send the offer.
	Initiator bool   `json:"initiator"`
	Notice    string `json:"notice,omitempty"`
}

// StateReportPayload carries a participant's transport state
// ("connected", "failed", "disconnected") for EventStateReport.
type StateReportPayload struct {
	State string `json:"state"`
}

// SessionEndedPayload is pushed to both sides on teardown.
type SessionEndedPayload struct {
	Reason string `json:"reason"`
	Notice string `json:"notice,omitempty"`
}

// MatchOutcome is delivered exactly once on a MatchRequest's Result
// channel: either a session or a terminal error (timeout, cancel).
type MatchOutcome struct {
	SessionID string
	PartnerID string
	CallType  string
	Initiator bool
	Err       error
}

// MatchRequest is a user's place in the waiting pool. Owned and mutated
// exclusively by the matcher goroutine after admission.
type MatchRequest struct {
	RequestID       string
	UserID          string
	Gender          string
	PreferredGender string
	CallType        string
	IsPremium       bool
	Status          string
	CreatedAt       time.Time

	// Result receives the single terminal outcome. Buffered so the
	// matcher never blocks on a departed caller.
	Result chan MatchOutcome
}
