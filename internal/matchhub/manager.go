package matchhub

import (
	"encoding/json"
	"errors"
	"log"
	"sync"

	"vibelink/backend/internal/billing"
	"vibelink/backend/internal/errs"
	"vibelink/backend/internal/localization"
	"vibelink/backend/internal/models"
	"vibelink/backend/internal/presence"
	"vibelink/backend/internal/storage"
)

// Inbound pairs a decoded client event with the client that sent it.
type Inbound struct {
	Client Client
	Event  models.Event
}

// Manager is the hub: it owns the set of connected clients and
// dispatches their events to the matcher and the coordinator.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]Client

	// Channels
	RegisterCh   chan Client
	UnregisterCh chan Client
	IncomingCh   chan Inbound

	Storage  storage.Storage
	Registry *presence.Registry
	Billing  *billing.Service
	Loc      *localization.Localizer

	matcher     *Matcher
	coordinator *Coordinator

	pubSubCh chan models.Event
}

// NewManager створює хаб. Matcher і Coordinator під'єднуються через
// AttachServices після власної ініціалізації (вони посилаються на хаб).
func NewManager(s storage.Storage, reg *presence.Registry, b *billing.Service, loc *localization.Localizer) *Manager {
	return &Manager{
		clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		IncomingCh:   make(chan Inbound),
		Storage:      s,
		Registry:     reg,
		Billing:      b,
		Loc:          loc,
		pubSubCh:     make(chan models.Event, 64),
	}
}

// AttachServices wires the matcher and coordinator once they exist.
func (m *Manager) AttachServices(matcher *Matcher, coordinator *Coordinator) {
	m.matcher = matcher
	m.coordinator = coordinator
}

// Run is the hub dispatch loop.
func (m *Manager) Run() {
	m.StartPubSubListener()

	for {
		select {
		case client := <-m.RegisterCh:
			m.handleRegister(client)

		case client := <-m.UnregisterCh:
			m.handleUnregister(client)

		case in := <-m.IncomingCh:
			m.handleEvent(in)

		case ev := <-m.pubSubCh:
			m.handlePubSubEvent(ev)
		}
	}
}

// SendToUser delivers an event to a locally connected client. Returns
// false when the user is not connected to this instance. A client whose
// send buffer is full is dropped, like a slow websocket reader.
func (m *Manager) SendToUser(userID string, ev models.Event) bool {
	m.mu.RLock()
	client, ok := m.clients[userID]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case client.GetSendChannel() <- ev:
		return true
	default:
		log.Printf("Client %s send buffer full, disconnecting", userID)
		go func() { m.UnregisterCh <- client }()
		return false
	}
}

// NoticeFor returns the localized notice string for a connected user,
// falling back to the default language for unknown users.
func (m *Manager) NoticeFor(userID, key string) string {
	m.mu.RLock()
	client, ok := m.clients[userID]
	m.mu.RUnlock()

	lang := localization.DefaultLanguage
	if ok && client.GetLanguage() != "" {
		lang = client.GetLanguage()
	}
	return m.Loc.Get(lang, key)
}

func (m *Manager) handleRegister(client Client) {
	m.mu.Lock()
	m.clients[client.GetUserID()] = client
	m.mu.Unlock()
	log.Printf("Client registered: %s", client.GetUserID())
}

func (m *Manager) handleUnregister(client Client) {
	userID := client.GetUserID()

	m.mu.Lock()
	current, ok := m.clients[userID]
	if !ok || current != client {
		// Already replaced by a fresh connection; nothing to tear down.
		m.mu.Unlock()
		return
	}
	delete(m.clients, userID)
	m.mu.Unlock()

	// Абонент зник: знімаємо запит пошуку, закриваємо активну сесію,
	// прибираємо присутність.
	if m.matcher != nil {
		m.matcher.Cancel(userID)
	}
	if m.coordinator != nil {
		m.coordinator.EndSessionForUser(userID, "peer_disconnected")
	}
	m.Registry.Leave(userID)
	client.Close()
	log.Printf("Client unregistered: %s", userID)
}

func (m *Manager) handleEvent(in Inbound) {
	switch in.Event.Type {
	case models.EventMatchRequest:
		m.handleMatchRequest(in)

	case models.EventMatchCancel:
		m.matcher.Cancel(in.Client.GetUserID())

	case models.EventSignal:
		var msg models.SignalingMessage
		if err := json.Unmarshal(in.Event.Payload, &msg); err != nil {
			m.sendError(in.Client, "invalid signaling payload")
			return
		}
		msg.SessionID = in.Event.SessionID
		msg.FromUserID = in.Client.GetUserID()
		if err := m.coordinator.Relay(in.Event.SessionID, msg); err != nil {
			m.sendError(in.Client, err.Error())
		}

	case models.EventStateReport:
		var report models.StateReportPayload
		if err := json.Unmarshal(in.Event.Payload, &report); err != nil {
			m.sendError(in.Client, "invalid state report payload")
			return
		}
		if err := m.coordinator.ReportState(in.Event.SessionID, in.Client.GetUserID(), report.State); err != nil {
			m.sendError(in.Client, err.Error())
		}

	case models.EventHangup:
		sessionID := in.Event.SessionID
		if sessionID == "" {
			sessionID = m.coordinator.SessionFor(in.Client.GetUserID())
		}
		if sessionID != "" {
			m.coordinator.EndSession(sessionID, "hangup")
		}

	case models.EventHeartbeat:
		m.Registry.Heartbeat(in.Client.GetUserID())

	default:
		log.Printf("Unknown event type %q from %s", in.Event.Type, in.Client.GetUserID())
	}
}

// handleMatchRequest admits a match request, charging the gender filter
// price first for premium users who narrow their preference. The
// request's outcome is awaited on a separate goroutine so the hub loop
// never blocks on a 60-second wait.
func (m *Manager) handleMatchRequest(in Inbound) {
	client := in.Client
	userID := client.GetUserID()

	var payload models.MatchRequestPayload
	if err := json.Unmarshal(in.Event.Payload, &payload); err != nil {
		m.sendError(client, "invalid match request payload")
		return
	}
	if payload.CallType != models.CallTypeVideo && payload.CallType != models.CallTypeVoice {
		m.sendError(client, "call_type must be video or voice")
		return
	}

	entry, ok := m.Registry.Get(userID)
	if !ok {
		m.sendError(client, "not registered in presence")
		return
	}

	// Зайнятий користувач не входить у пошук: спершу локальні сесії,
	// потім БД (сесія може належати іншому інстансу).
	if m.coordinator.SessionFor(userID) != "" {
		m.sendError(client, errs.ErrAlreadyMatching.Error())
		return
	}
	if sessionID, err := m.Storage.GetActiveSessionForUser(userID); err == nil && sessionID != "" {
		m.sendError(client, errs.ErrAlreadyMatching.Error())
		return
	}

	// Платна можливість: звуження пошуку за статтю списує монети.
	charged := false
	if entry.IsPremium && payload.PreferredGender != "" && payload.PreferredGender != models.PrefAnyone {
		if err := m.Billing.ChargeGenderFilter(userID); err != nil {
			if errors.Is(err, errs.ErrInsufficientFunds) {
				m.sendError(client, errs.ErrInsufficientFunds.Error())
			} else {
				log.Printf("Error charging gender filter for %s: %v", userID, err)
				m.sendError(client, "could not process gender filter charge")
			}
			return
		}
		charged = true
	}

	req, err := m.matcher.RequestMatch(userID, entry.Gender, payload.PreferredGender, payload.CallType, entry.IsPremium)
	if err != nil {
		// Запит відхилено до входу в чергу: куплена можливість не
		// надана, тому списання повертається.
		if charged {
			if rerr := m.Billing.RefundGenderFilter(userID); rerr != nil {
				log.Printf("Error refunding gender filter for %s: %v", userID, rerr)
			}
		}
		m.sendError(client, err.Error())
		return
	}

	go m.awaitOutcome(client, req)
}

// awaitOutcome turns the matcher's terminal outcome into a wire event.
func (m *Manager) awaitOutcome(client Client, req *models.MatchRequest) {
	outcome := <-req.Result

	switch {
	case outcome.Err == nil:
		client.SetSessionID(outcome.SessionID)
		payload, _ := json.Marshal(models.MatchFoundPayload{
			SessionID: outcome.SessionID,
			PartnerID: outcome.PartnerID,
			CallType:  outcome.CallType,
			Initiator: outcome.Initiator,
			Notice:    m.NoticeFor(client.GetUserID(), "match_found"),
		})
		m.SendToUser(client.GetUserID(), models.Event{
			Type:      models.EventMatchFound,
			SessionID: outcome.SessionID,
			SenderID:  "system",
			Payload:   payload,
		})

	case errors.Is(outcome.Err, ErrMatchCancelled):
		// Owner asked for it; no failure event needed.

	default:
		payload, _ := json.Marshal(models.SessionEndedPayload{
			Reason: outcome.Err.Error(),
			Notice: m.NoticeFor(client.GetUserID(), "no_match"),
		})
		m.SendToUser(client.GetUserID(), models.Event{
			Type:     models.EventMatchFailed,
			SenderID: "system",
			Payload:  payload,
		})
	}
}

func (m *Manager) sendError(client Client, message string) {
	payload, _ := json.Marshal(map[string]string{"message": message})
	ev := models.Event{Type: models.EventError, SenderID: "system", Payload: payload}
	select {
	case client.GetSendChannel() <- ev:
	default:
	}
}
