package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrItemNotFound      = errors.New("market item not found")
	ErrInsufficientFunds = errors.New("insufficient yams")
	ErrInvalidCatalog    = errors.New("invalid market catalog")
	ErrEngineNotStarted  = errors.New("game engine not started")
)

// Storage keys of the persisted game state.
const (
	KeyCount       = "count"
	KeyRate        = "rate"
	KeyMarketItems = "marketItems"
)

// MarketItem is one purchasable upgrade. ID doubles as its position in the catalog.
type MarketItem struct {
	ID           int     `json:"id" yaml:"id" validate:"gte=0"`
	Name         string  `json:"name" yaml:"name" validate:"required"`
	Cost         float64 `json:"cost" yaml:"cost" validate:"gte=0"`
	RateIncrease float64 `json:"rateIncrease" yaml:"rateIncrease" validate:"gte=0"`
	Amount       int     `json:"amount" yaml:"amount" validate:"gte=0"`
	Threshold    float64 `json:"threshold" yaml:"threshold" validate:"gte=0"`
	Visible      bool    `json:"visible" yaml:"visible"`
	Unlocked     bool    `json:"unlocked" yaml:"unlocked"`
}

// Affordable reports whether count covers the current cost.
func (m MarketItem) Affordable(count float64) bool {
	return count >= m.Cost
}

// DisplayName masks the name until the item is unlocked.
func (m MarketItem) DisplayName(mask string) string {
	if m.Unlocked {
		return m.Name
	}
	return mask
}

// Catalog is the ordered, fixed-length list of market items.
type Catalog []MarketItem

// Clone returns an independent copy of the catalog.
func (c Catalog) Clone() Catalog {
	if c == nil {
		return nil
	}
	out := make(Catalog, len(c))
	copy(out, c)
	return out
}

// Valid reports whether id addresses an item of the catalog.
func (c Catalog) Valid(id int) bool {
	return id >= 0 && id < len(c)
}

// State is a point-in-time view of the whole game.
type State struct {
	Count   float64 `json:"count"`
	Rate    float64 `json:"rate"`
	Catalog Catalog `json:"items"`
}

// EventType describes the kind of change emitted by the engine.
type EventType string

const (
	EventClicked        EventType = "clicked"
	EventCountChanged   EventType = "count_changed"
	EventRateChanged    EventType = "rate_changed"
	EventCatalogChanged EventType = "catalog_changed"
	EventItemVisible    EventType = "item_visible"
	EventItemUnlocked   EventType = "item_unlocked"
	EventItemPurchased  EventType = "item_purchased"
	EventStateReset     EventType = "state_reset"
)

// Event is a change notification for UI subscribers.
type Event struct {
	ID     uuid.UUID `json:"id"`
	At     time.Time `json:"at"`
	Type   EventType `json:"type"`
	ItemID *int      `json:"itemId,omitempty"`
	Count  float64   `json:"count"`
	Rate   float64   `json:"rate"`
}

// NewEvent constructs an event with a fresh id.
func NewEvent(at time.Time, eventType EventType) Event {
	return Event{
		ID:   uuid.New(),
		At:   at,
		Type: eventType,
	}
}

// NewItemEvent constructs an event about a single market item.
func NewItemEvent(at time.Time, eventType EventType, itemID int) Event {
	ev := NewEvent(at, eventType)
	ev.ItemID = &itemID
	return ev
}
