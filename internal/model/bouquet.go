package model

import "time"

// Kind distinguishes a flower bouquet from a plain letter.
type Kind string

// Kinds.
const (
	KindBouquet Kind = "bouquet"
	KindLetter  Kind = "letter"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindBouquet || k == KindLetter
}

// Theme is the visual theme of a share page.
type Theme string

// Themes.
const (
	ThemeLove     Theme = "love"
	ThemeBirthday Theme = "birthday"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeLove || t == ThemeBirthday
}

// GiftType selects the interaction that unlocks a shared creation.
type GiftType string

// Gift types.
const (
	GiftNone     GiftType = "none"
	GiftEnvelope GiftType = "envelope"
	GiftScratch  GiftType = "scratch"
	GiftCode     GiftType = "code"
	GiftSurprise GiftType = "surprise"
)

// Valid reports whether g is a known gift type.
func (g GiftType) Valid() bool {
	switch g {
	case GiftNone, GiftEnvelope, GiftScratch, GiftCode, GiftSurprise:
		return true
	}
	return false
}

// PlacedItem is one flower placed on the bouquet canvas. X and Y are
// percentages of the canvas in [0, 100].
type PlacedItem struct {
	ID       string  `json:"id"`
	FlowerID string  `json:"flowerId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	Scale    float64 `json:"scale"`
}

// Bouquet is a persisted share record. Once created it is immutable except
// for IsSent.
type Bouquet struct {
	ID             string       `json:"id"`
	Kind           Kind         `json:"type"`
	Items          []PlacedItem `json:"items"`
	Letter         string       `json:"letter"`
	Theme          Theme        `json:"theme"`
	GiftType       GiftType     `json:"giftType"`
	ScratchMessage string       `json:"scratchMessage,omitempty"`
	HasSecret      bool         `json:"hasSecret"`
	SenderName     string       `json:"senderName,omitempty"`
	RecipientName  string       `json:"recipientName,omitempty"`
	RecipientEmail string       `json:"recipientEmail,omitempty"`
	ScheduledAt    *time.Time   `json:"scheduledAt,omitempty"`
	IsSent         bool         `json:"isSent"`
	CreatedBy      *int64       `json:"createdBy,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// NewBouquet is the input for creating a share record. SecretCode is only
// kept as a hash.
type NewBouquet struct {
	Kind           Kind
	Items          []PlacedItem
	Letter         string
	Theme          Theme
	GiftType       GiftType
	ScratchMessage string
	SecretCode     string
	SenderName     string
	RecipientName  string
	RecipientEmail string
	ScheduledAt    *time.Time
	CreatedBy      *int64
}

// BouquetPage is one page of a bouquet listing.
type BouquetPage struct {
	Bouquets   []Bouquet `json:"bouquets"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	TotalPages int       `json:"totalPages"`
	HasMore    bool      `json:"hasMore"`
}
