package http

import "github.com/yamclicker/core/internal/domain/entities"

// Request/Response types
type ClickRequest struct {
	Times int `json:"times" validate:"omitempty,gte=1,lte=1000"`
}

type ValueRequest struct {
	Value *float64 `json:"value" validate:"required,gte=0"`
}

type CountResponse struct {
	Count float64 `json:"count"`
	Rate  float64 `json:"rate"`
}

// ItemResponse carries an empty Name for locked items.
type ItemResponse struct {
	entities.MarketItem
	DisplayName string `json:"displayName"`
	Affordable  bool   `json:"affordable"`
}

type StateResponse struct {
	Count float64        `json:"count"`
	Rate  float64        `json:"rate"`
	Items []ItemResponse `json:"items"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
