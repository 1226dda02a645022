package handler

import (
	"net/http"
	"time"

	"vibelink/backend/internal/matchhub"
	"vibelink/backend/internal/models"
	"vibelink/backend/internal/presence"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Дозволяє з'єднання з будь-якого домену. У продакшені налаштувати!
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket оновлює HTTP-з'єднання до WebSocket та реєструє
// клієнта в хабі. Presence-запис створюється ДО upgrade, щоб дубль
// з'єднання було відхилено ще HTTP-статусом.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
		return
	}

	anonID, err := h.validateAndGetAnonID(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}

	banned, err := h.Storage.IsUserBanned(anonID)
	if err == nil && banned {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "User is banned"})
		return
	}

	user, err := h.Storage.EnsureUser(anonID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	entry := presence.Entry{
		UserID:          anonID,
		Gender:          user.Gender,
		PreferredGender: models.PrefAnyone,
		IsPremium:       user.IsPremiumAt(time.Now()),
	}
	if err := h.Hub.Registry.Join(entry); err != nil {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "User already connected"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Hub.Registry.Leave(anonID)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	client := &matchhub.WebSocketClient{
		Hub:      h.Hub,
		UserID:   anonID,
		Language: user.Language,
		Conn:     conn,
		Send:     make(chan models.Event, 256),
	}

	h.Hub.RegisterCh <- client
	client.Run()
}
