package handler

import (
	"net/http"

	"vibelink/backend/internal/billing"
	"vibelink/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// BillingWebhook приймає верифіковані події покупок. Перевірка підпису
// та зіставлення замовлень — відповідальність шлюзу оплати вище за
// течією; сюди доходять лише підтверджені платежі.
func (h *Handler) BillingWebhook(c *gin.Context) {
	var ev billing.PurchaseEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid purchase event"})
		return
	}

	if err := h.Billing.HandlePurchase(ev); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// FileReport дозволяє учаснику сесії поскаржитися на співрозмовника.
func (h *Handler) FileReport(c *gin.Context) {
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

	var body struct {
		SessionID string `json:"session_id"`
		Reason    string `json:"reason"`
		Severity  string `json:"severity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report payload"})
		return
	}
	switch body.Severity {
	case models.SeverityLow, models.SeverityMedium, models.SeverityCritical:
	default:
		body.Severity = models.SeverityLow
	}

	session, err := h.Storage.GetSessionByID(body.SessionID)
	if err != nil || session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	reported := session.OtherParticipant(anonID)
	if reported == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this session"})
		return
	}

	report := &models.Report{
		ReporterID:     anonID,
		ReportedUserID: reported,
		SessionID:      body.SessionID,
		Reason:         body.Reason,
		Severity:       body.Severity,
	}
	if err := h.Moderation.HandleReport(report); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Healthz is the liveness probe.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
