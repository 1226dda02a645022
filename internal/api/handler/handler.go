package handler

import (
	"vibelink/backend/internal/billing"
	"vibelink/backend/internal/config"
	"vibelink/backend/internal/matchhub"
	"vibelink/backend/internal/moderation"
	"vibelink/backend/internal/storage"
)

// Handler містить посилання на хаб та сервіси.
type Handler struct {
	Hub        *matchhub.Manager
	Storage    storage.Storage
	Billing    *billing.Service
	Moderation *moderation.Service
	Cfg        *config.Config
}

func NewHandler(hub *matchhub.Manager, s storage.Storage, b *billing.Service, mod *moderation.Service, cfg *config.Config) *Handler {
	return &Handler{
		Hub:        hub,
		Storage:    s,
		Billing:    b,
		Moderation: mod,
		Cfg:        cfg,
	}
}
