package matchhub

import (
	"encoding/json"
	"log"

	"vibelink/backend/internal/models"
	"vibelink/backend/internal/storage"
)

// StartPubSubListener запускає Goroutine, яка слухає Redis Pub/Sub.
// Сигнальні події, опубліковані іншим інстансом сервісу, доставляються
// локально під'єднаним клієнтам. No-op коли сховище не має Redis
// (наприклад, mock у тестах).
func (m *Manager) StartPubSubListener() {
	svc, ok := m.Storage.(*storage.Service)
	if !ok || svc.Redis == nil {
		return
	}

	go func() {
		pubsub := svc.SubscribeSessions()
		defer pubsub.Close()

		for msg := range pubsub.Channel() {
			var ev models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("Error unmarshalling Redis event: %v", err)
				continue
			}
			m.pubSubCh <- ev
		}
	}()
}

// handlePubSubEvent доставляє подію з Redis відповідним учасникам,
// якщо вони під'єднані саме до цього інстанса. Системні події
// (session_ended) йдуть обом сторонам, сигнали — лише пірові відправника.
func (m *Manager) handlePubSubEvent(ev models.Event) {
	if ev.SessionID == "" {
		return
	}

	a, b, ok := m.coordinator.ParticipantsOf(ev.SessionID)
	if !ok {
		return
	}
	for _, userID := range []string{a, b} {
		if userID == ev.SenderID {
			continue
		}
		m.SendToUser(userID, ev)
	}
}
