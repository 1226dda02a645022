package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq" // Необхідний для pq.StringArray
	"gorm.io/gorm"
)

// Genders a user can declare about themselves.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Match preferences. Gender filtering is a premium capability; for
// non-premium users the matcher treats any preference as PrefAnyone.
const (
	PrefAnyone = "anyone"
	PrefMen    = "men"
	PrefWomen  = "women"
)

// User представляє користувача в системі.
// Profile, wallet and moderation state live together in one row; the
// matching core reads it, the billing and moderation services mutate it.
type User struct {
	ID        string `gorm:"primaryKey" json:"id"` // Анонімний UUID
	Gender    string `json:"gender"`
	Language  string `json:"language"`
	Interests pq.StringArray `gorm:"type:text[]" json:"interests"` // Для зберігання тегів

	// Wallet / premium
	CoinBalance  int       `json:"coin_balance"`
	PremiumUntil time.Time `json:"premium_until"`

	// Moderation
	ReputationScore int   `json:"-"`
	IsBlocked       bool  `json:"-"`
	BlockEndTime    int64 `json:"-"`
	BlockLevel      int   `json:"-"`
	LastBanDate     int64 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// BeforeCreate — це хук GORM, який викликається перед створенням запису.
// Він генерує новий UUID для користувача, якщо ID ще не встановлено.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// IsPremiumAt reports whether the premium subscription is active at the
// given moment.
func (u *User) IsPremiumAt(now time.Time) bool {
	return u.PremiumUntil.After(now)
}

// PreferenceAccepts reports whether a preference admits the given gender.
// An empty preference behaves like PrefAnyone.
func PreferenceAccepts(pref, gender string) bool {
	switch pref {
	case PrefMen:
		return gender == GenderMale
	case PrefWomen:
		return gender == GenderFemale
	default:
		return true
	}
}
