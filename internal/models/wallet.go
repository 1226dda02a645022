package models

import "gorm.io/gorm"

// Transaction kinds recorded in the coin ledger.
const (
	TxnPurchase     = "purchase"
	TxnPremium      = "premium_purchase"
	TxnGenderFilter = "gender_filter"
	TxnRefund       = "refund"
	TxnReward       = "reward"
	TxnAdminGrant   = "admin_grant"
)

// CoinTransaction is one entry of the server-authoritative coin ledger.
// Client-side balances are presentation caches and are never trusted;
// every paid action debits through this table first.
type CoinTransaction struct {
	gorm.Model

	UserID string `gorm:"type:text;not null;index"`
	// Amount is positive for credits, negative for debits.
	Amount int `gorm:"not null"`
	Kind   string `gorm:"type:text;not null"`
	// OrderID is the payment gateway's order reference for purchases.
	// Unique so a replayed webhook cannot credit twice; nil for
	// internal debits/credits.
	OrderID *string `gorm:"uniqueIndex"`
}
