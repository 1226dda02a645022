package matchhub

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"vibelink/backend/internal/errs"
	"vibelink/backend/internal/models"
	"vibelink/backend/internal/presence"
	"vibelink/backend/internal/storage"

	"github.com/google/uuid"
)

// Notifier is what the coordinator needs from the hub: push an event to
// a locally connected user and resolve their language for notices.
type Notifier interface {
	SendToUser(userID string, ev models.Event) bool
	NoticeFor(userID, key string) string
}

// callSession is the coordinator-side runtime state of one session.
type callSession struct {
	model     *models.CallSession
	connected map[string]bool
	timer     *time.Timer
}

// Coordinator owns every active CallSession of this instance: it brokers
// signaling between the two participants and drives the state machine
// signaling -> connected -> ended (signaling -> failed -> ended on error).
type Coordinator struct {
	Hub      Notifier
	Storage  storage.Storage
	Registry *presence.Registry

	connectTimeout time.Duration

	// serialized under the matcher/hub goroutines plus timers
	ops chan func()

	sessions map[string]*callSession
	byUser   map[string]string
}

// NewCoordinator створює координатора сесій.
func NewCoordinator(hub Notifier, s storage.Storage, reg *presence.Registry, connectTimeout time.Duration) *Coordinator {
	return &Coordinator{
		Hub:            hub,
		Storage:        s,
		Registry:       reg,
		connectTimeout: connectTimeout,
		ops:            make(chan func()),
		sessions:       make(map[string]*callSession),
		byUser:         make(map[string]string),
	}
}

// Run executes all session mutations on one goroutine. Connect-timeout
// timers, relays, state reports and concurrent hangups all serialize
// here, which is what makes EndSession idempotent without locks.
func (c *Coordinator) Run() {
	log.Println("Session Coordinator started.")
	for op := range c.ops {
		op()
	}
}

// Stop shuts down the Run loop. Active sessions are left to the caller
// (main closes them through RecoverActiveSessions on next boot).
func (c *Coordinator) Stop() {
	close(c.ops)
}

// do runs fn on the coordinator goroutine and waits for it.
func (c *Coordinator) do(fn func()) {
	done := make(chan struct{})
	c.ops <- func() {
		fn()
		close(done)
	}
	<-done
}

// CreateSession records a new session in storage, starts the connect
// timer and registers both participants. A user may hold at most one
// active session; the matcher guarantees it, this guards it.
func (c *Coordinator) CreateSession(userA, userB, callType string) (*models.CallSession, error) {
	if userA == userB {
		return nil, fmt.Errorf("session cannot pair a user with themselves: %s", userA)
	}

	var (
		session *models.CallSession
		err     error
	)
	c.do(func() {
		if _, busy := c.byUser[userA]; busy {
			err = fmt.Errorf("participant %s already in a session", userA)
			return
		}
		if _, busy := c.byUser[userB]; busy {
			err = fmt.Errorf("participant %s already in a session", userB)
			return
		}

		model := &models.CallSession{
			SessionID:    uuid.New().String(),
			ParticipantA: userA,
			ParticipantB: userB,
			CallType:     callType,
			State:        models.SessionStateSignaling,
			StartedAt:    time.Now(),
		}
		if err = c.Storage.SaveSession(model); err != nil {
			log.Printf("Error saving new session: %v", err)
			return
		}

		cs := &callSession{
			model:     model,
			connected: make(map[string]bool),
		}
		cs.timer = time.AfterFunc(c.connectTimeout, func() {
			c.connectTimedOut(model.SessionID)
		})

		c.sessions[model.SessionID] = cs
		c.byUser[userA] = model.SessionID
		c.byUser[userB] = model.SessionID
		session = model
	})
	return session, err
}

// Relay forwards a signaling message to the sender's peer, preserving
// order through the recipient's send channel. A hangup kind tears the
// session down instead of being forwarded verbatim.
func (c *Coordinator) Relay(sessionID string, msg models.SignalingMessage) error {
	var err error
	c.do(func() {
		cs, ok := c.sessions[sessionID]
		if !ok {
			err = errs.ErrUnknownSession
			return
		}
		peer := cs.model.OtherParticipant(msg.FromUserID)
		if peer == "" {
			err = errs.ErrNotParticipant
			return
		}

		if msg.Kind == models.SignalHangup {
			c.finishLocked(cs, models.SessionStateEnded, "hangup")
			return
		}

		payload, merr := json.Marshal(msg)
		if merr != nil {
			err = merr
			return
		}
		ev := models.Event{
			Type:      models.EventSignal,
			SessionID: sessionID,
			SenderID:  msg.FromUserID,
			Payload:   payload,
		}
		if !c.Hub.SendToUser(peer, ev) {
			// Peer is connected to another instance; Redis carries it over.
			if perr := c.Storage.PublishEvent("session:"+sessionID, ev); perr != nil {
				log.Printf("Error publishing signal for session %s: %v", sessionID, perr)
			}
		}
	})
	return err
}

// ReportState records a participant's transport state. The session goes
// connected only after BOTH sides report connected; a failure report
// from either side fails the whole session.
func (c *Coordinator) ReportState(sessionID, userID, state string) error {
	var err error
	c.do(func() {
		cs, ok := c.sessions[sessionID]
		if !ok {
			err = errs.ErrUnknownSession
			return
		}
		if cs.model.OtherParticipant(userID) == "" {
			err = errs.ErrNotParticipant
			return
		}

		switch state {
		case "connected":
			cs.connected[userID] = true
			if len(cs.connected) == 2 && cs.model.State == models.SessionStateSignaling {
				cs.model.State = models.SessionStateConnected
				cs.timer.Stop()
				if uerr := c.Storage.UpdateSessionState(sessionID, models.SessionStateConnected); uerr != nil {
					log.Printf("Error updating session %s state: %v", sessionID, uerr)
				}
				log.Printf("Session %s connected.", sessionID)
			}
		case "failed", "disconnected":
			c.finishLocked(cs, models.SessionStateFailed, "transport_"+state)
		}
	})
	return err
}

// EndSession tears a session down. Idempotent: both participants may
// hang up concurrently, the second call is a no-op, not an error.
func (c *Coordinator) EndSession(sessionID, reason string) {
	c.do(func() {
		cs, ok := c.sessions[sessionID]
		if !ok {
			return
		}
		c.finishLocked(cs, models.SessionStateEnded, reason)
	})
}

// EndSessionForUser ends whatever session the user participates in.
// Used by the hub when a socket drops mid-call.
func (c *Coordinator) EndSessionForUser(userID, reason string) {
	c.do(func() {
		sessionID, ok := c.byUser[userID]
		if !ok {
			return
		}
		cs, ok := c.sessions[sessionID]
		if !ok {
			return
		}
		c.finishLocked(cs, models.SessionStateFailed, reason)
	})
}

// SessionFor returns the active session ID of a user, "" when none.
func (c *Coordinator) SessionFor(userID string) string {
	var id string
	c.do(func() { id = c.byUser[userID] })
	return id
}

// ParticipantsOf resolves the two participants of a session, using
// local state first and falling back to storage for sessions owned by
// another instance.
func (c *Coordinator) ParticipantsOf(sessionID string) (string, string, bool) {
	var a, b string
	c.do(func() {
		if cs, ok := c.sessions[sessionID]; ok {
			a, b = cs.model.ParticipantA, cs.model.ParticipantB
		}
	})
	if a != "" {
		return a, b, true
	}
	session, err := c.Storage.GetSessionByID(sessionID)
	if err != nil || session == nil {
		return "", "", false
	}
	return session.ParticipantA, session.ParticipantB, true
}

// connectTimedOut fires when no both-sides-connected report arrived in
// time: the session fails and both sides are told so they can re-enter
// matching.
func (c *Coordinator) connectTimedOut(sessionID string) {
	c.do(func() {
		cs, ok := c.sessions[sessionID]
		if !ok || cs.model.State != models.SessionStateSignaling {
			return
		}
		log.Printf("Session %s failed: %v", sessionID, errs.ErrSignalingTimeout)
		c.finishLocked(cs, models.SessionStateFailed, "signaling_timeout")
	})
}

// finishLocked moves a session to its terminal state, persists it,
// releases both participants and notifies them. Runs on the Run
// goroutine only.
func (c *Coordinator) finishLocked(cs *callSession, terminalState, reason string) {
	sessionID := cs.model.SessionID
	cs.timer.Stop()
	cs.model.State = terminalState
	cs.model.EndReason = reason
	cs.model.EndedAt = time.Now()

	delete(c.sessions, sessionID)
	delete(c.byUser, cs.model.ParticipantA)
	delete(c.byUser, cs.model.ParticipantB)

	if err := c.Storage.CloseSession(sessionID, terminalState, reason); err != nil {
		log.Printf("Error closing session %s: %v", sessionID, err)
	}

	for _, userID := range []string{cs.model.ParticipantA, cs.model.ParticipantB} {
		c.Registry.SetStatus(userID, presence.StatusIdle)

		noticeKey := "partner_left"
		if terminalState == models.SessionStateFailed {
			noticeKey = "call_failed"
		}
		payload, _ := json.Marshal(models.SessionEndedPayload{
			Reason: reason,
			Notice: c.Hub.NoticeFor(userID, noticeKey),
		})
		ev := models.Event{
			Type:      models.EventSessionEnded,
			SessionID: sessionID,
			SenderID:  "system",
			Payload:   payload,
		}
		if !c.Hub.SendToUser(userID, ev) {
			if perr := c.Storage.PublishEvent("session:"+sessionID, ev); perr != nil {
				log.Printf("Error publishing session end for %s: %v", sessionID, perr)
			}
		}
	}

	log.Printf("Session %s ended (%s, reason: %s)", sessionID, terminalState, reason)
}

// RecoverActiveSessions завантажує активні сесії з БД після рестарту та
// закриває їх: клієнтські сокети все одно втрачено.
func (c *Coordinator) RecoverActiveSessions() {
	log.Println("Starting active session recovery process...")

	activeIDs, err := c.Storage.GetActiveSessionIDs()
	if err != nil {
		log.Printf("ERROR: Failed to retrieve active sessions from storage: %v", err)
		return
	}

	for _, sessionID := range activeIDs {
		if err := c.Storage.CloseSession(sessionID, models.SessionStateEnded, "server_restart"); err != nil {
			log.Printf("WARNING: Failed to close stale session %s: %v", sessionID, err)
		}
	}

	log.Printf("Recovery complete. Closed %d stale sessions.", len(activeIDs))
}
