// Package billing owns every paid action of the matching core: coin
// debits for premium features and webhook-driven purchase fulfilment.
// Ledger consistency lives in the storage layer; this service only
// invokes it before a paid capability is granted.
package billing

import (
	"errors"
	"fmt"
	"log"
	"time"

	"vibelink/backend/internal/models"
	"vibelink/backend/internal/storage"
)

// Products the payment gateway can report.
const (
	ProductPremium = "premium"
	ProductCoins   = "coins"
)

// PurchaseEvent is a verified purchase delivered by the gateway webhook.
// Signature verification and order matching happen upstream; by the
// time this struct exists, the money is real.
type PurchaseEvent struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	Product string `json:"product"`
	Coins   int    `json:"coins,omitempty"`
}

// Service handles wallet and premium operations.
type Service struct {
	Storage           storage.Storage
	GenderFilterPrice int
	PremiumPeriod     time.Duration
}

// NewService creates a billing service.
func NewService(s storage.Storage, genderFilterPrice int, premiumPeriod time.Duration) *Service {
	return &Service{
		Storage:           s,
		GenderFilterPrice: genderFilterPrice,
		PremiumPeriod:     premiumPeriod,
	}
}

// ChargeGenderFilter debits the per-request price of premium gender
// filtering. Returns errs.ErrInsufficientFunds (via storage) when the
// balance does not cover it; the match request must then be rejected.
func (s *Service) ChargeGenderFilter(userID string) error {
	if s.GenderFilterPrice <= 0 {
		return nil
	}
	return s.Storage.Debit(userID, s.GenderFilterPrice, models.TxnGenderFilter)
}

// RefundGenderFilter credits the filter price back after a charged
// request was rejected before entering the waiting pool. The paid
// capability was never granted, so the debit must not stand.
func (s *Service) RefundGenderFilter(userID string) error {
	if s.GenderFilterPrice <= 0 {
		return nil
	}
	return s.Storage.Credit(userID, s.GenderFilterPrice, models.TxnRefund)
}

// HandlePurchase fulfils a verified purchase: premium extends the
// expiry by the configured period, coins top up the balance. Replayed
// webhooks are no-ops thanks to the ledger's unique order index.
func (s *Service) HandlePurchase(ev PurchaseEvent) error {
	if ev.OrderID == "" || ev.UserID == "" {
		return errors.New("purchase event missing order or user ID")
	}

	txn := &models.CoinTransaction{
		UserID:  ev.UserID,
		OrderID: &ev.OrderID,
	}
	switch ev.Product {
	case ProductPremium:
		txn.Kind = models.TxnPremium
	case ProductCoins:
		if ev.Coins <= 0 {
			return fmt.Errorf("coin purchase %s has non-positive amount %d", ev.OrderID, ev.Coins)
		}
		txn.Kind = models.TxnPurchase
		txn.Amount = ev.Coins
	default:
		return fmt.Errorf("unknown product %q in order %s", ev.Product, ev.OrderID)
	}

	fresh, err := s.Storage.RecordPurchase(txn)
	if err != nil {
		return err
	}
	if !fresh {
		log.Printf("Ignoring replayed purchase webhook for order %s", ev.OrderID)
		return nil
	}

	switch ev.Product {
	case ProductPremium:
		return s.Storage.ExtendPremium(ev.UserID, s.PremiumPeriod)
	default:
		return s.Storage.AdjustBalance(ev.UserID, ev.Coins)
	}
}
