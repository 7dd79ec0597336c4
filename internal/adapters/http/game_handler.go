package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/yamclicker/core/internal/domain/entities"
	"github.com/yamclicker/core/internal/infrastructure/logger"
	"github.com/yamclicker/core/internal/ports"
)

// GameHandler exposes the game engine over HTTP
type GameHandler struct {
	engine ports.GameEngine
	mask   string
	logger *logger.Logger
}

// NewGameHandler creates a new game handler. Locked item names are replaced
// with mask.
func NewGameHandler(engine ports.GameEngine, mask string, logger *logger.Logger) *GameHandler {
	return &GameHandler{
		engine: engine,
		mask:   mask,
		logger: logger.WithComponent("http"),
	}
}

// Register mounts the game routes on g.
func (h *GameHandler) Register(g *echo.Group) {
	g.GET("/state", h.GetState)
	g.POST("/click", h.Click)
	g.PUT("/count", h.SetCount)
	g.PUT("/rate", h.SetRate)
	g.POST("/reconcile", h.Reconcile)
	g.POST("/reset", h.Reset)
	g.GET("/events", h.Events)

	market := g.Group("/market")
	market.GET("", h.ListItems)
	market.POST("/reload", h.ReloadCatalog)
	market.POST("/:id/buy", h.Buy)
	market.POST("/:id/purchase", h.Purchase)
	market.POST("/:id/unlock", h.Unlock)
	market.POST("/:id/visible", h.MakeVisible)
}

// GetState godoc
// @Summary Get the game state
// @Tags game
// @Produce json
// @Success 200 {object} StateResponse
// @Router /state [get]
func (h *GameHandler) GetState(c echo.Context) error {
	return c.JSON(http.StatusOK, h.stateResponse(h.engine.State()))
}

// Click godoc
// @Summary Click the yam
// @Tags game
// @Accept json
// @Produce json
// @Param request body ClickRequest false "Number of clicks"
// @Success 200 {object} CountResponse
// @Failure 400 {object} ErrorResponse
// @Router /click [post]
func (h *GameHandler) Click(c echo.Context) error {
	var req ClickRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	times := req.Times
	if times == 0 {
		times = 1
	}

	ctx := c.Request().Context()
	var count float64
	for i := 0; i < times; i++ {
		var err error
		if count, err = h.engine.Click(ctx); err != nil {
			h.logger.Errorw("Click failed", "error", err)
			return h.engineError(err)
		}
	}

	return c.JSON(http.StatusOK, CountResponse{Count: count, Rate: h.engine.Rate()})
}

// SetCount godoc
// @Summary Overwrite the count
// @Tags game
// @Accept json
// @Produce json
// @Param request body ValueRequest true "New count"
// @Success 200 {object} CountResponse
// @Failure 400 {object} ErrorResponse
// @Router /count [put]
func (h *GameHandler) SetCount(c echo.Context) error {
	return h.setScalar(c, h.engine.SetCount)
}

// SetRate godoc
// @Summary Overwrite the rate
// @Tags game
// @Accept json
// @Produce json
// @Param request body ValueRequest true "New rate"
// @Success 200 {object} CountResponse
// @Failure 400 {object} ErrorResponse
// @Router /rate [put]
func (h *GameHandler) SetRate(c echo.Context) error {
	return h.setScalar(c, h.engine.SetRate)
}

func (h *GameHandler) setScalar(c echo.Context, set func(context.Context, float64) error) error {
	var req ValueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := set(c.Request().Context(), *req.Value); err != nil {
		h.logger.Errorw("Set value failed", "path", c.Path(), "error", err)
		return h.engineError(err)
	}

	return c.JSON(http.StatusOK, CountResponse{Count: h.engine.Count(), Rate: h.engine.Rate()})
}

// ListItems godoc
// @Summary List market items
// @Tags market
// @Produce json
// @Success 200 {array} ItemResponse
// @Router /market [get]
func (h *GameHandler) ListItems(c echo.Context) error {
	return c.JSON(http.StatusOK, h.itemResponses(h.engine.Catalog(), h.engine.Count()))
}

// ReloadCatalog godoc
// @Summary Reload the market catalog from storage
// @Tags market
// @Produce json
// @Success 200 {array} ItemResponse
// @Router /market/reload [post]
func (h *GameHandler) ReloadCatalog(c echo.Context) error {
	items := h.engine.LoadCatalog(c.Request().Context())
	return c.JSON(http.StatusOK, h.itemResponses(items, h.engine.Count()))
}

// Buy godoc
// @Summary Buy a market item
// @Description Checks affordability, debits the cost and raises the rate
// @Tags market
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} ItemResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /market/{id}/buy [post]
func (h *GameHandler) Buy(c echo.Context) error {
	id, err := itemID(c)
	if err != nil {
		return err
	}

	item, err := h.engine.Buy(c.Request().Context(), id)
	if err != nil {
		h.logger.Warnw("Buy failed", "item_id", id, "error", err)
		return h.engineError(err)
	}

	return c.JSON(http.StatusOK, h.itemResponse(item, h.engine.Count()))
}

// Purchase godoc
// @Summary Record a purchase without touching the counters
// @Tags market
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} ItemResponse
// @Failure 404 {object} ErrorResponse
// @Router /market/{id}/purchase [post]
func (h *GameHandler) Purchase(c echo.Context) error {
	id, err := itemID(c)
	if err != nil {
		return err
	}

	item, err := h.engine.Purchase(c.Request().Context(), id)
	if err != nil {
		h.logger.Warnw("Purchase failed", "item_id", id, "error", err)
		return h.engineError(err)
	}

	return c.JSON(http.StatusOK, h.itemResponse(item, h.engine.Count()))
}

// Unlock godoc
// @Summary Unlock a market item
// @Tags market
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} ItemResponse
// @Failure 404 {object} ErrorResponse
// @Router /market/{id}/unlock [post]
func (h *GameHandler) Unlock(c echo.Context) error {
	return h.latch(c, h.engine.Unlock)
}

// MakeVisible godoc
// @Summary Reveal a market item
// @Tags market
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} ItemResponse
// @Failure 404 {object} ErrorResponse
// @Router /market/{id}/visible [post]
func (h *GameHandler) MakeVisible(c echo.Context) error {
	return h.latch(c, h.engine.MakeVisible)
}

func (h *GameHandler) latch(c echo.Context, set func(context.Context, int) error) error {
	id, err := itemID(c)
	if err != nil {
		return err
	}

	if err := set(c.Request().Context(), id); err != nil {
		h.logger.Warnw("Latch failed", "path", c.Path(), "item_id", id, "error", err)
		return h.engineError(err)
	}

	return c.JSON(http.StatusOK, h.itemResponse(h.engine.Catalog()[id], h.engine.Count()))
}

// Reconcile godoc
// @Summary Re-evaluate visibility and unlock flags
// @Tags market
// @Produce json
// @Success 200 {object} StateResponse
// @Router /reconcile [post]
func (h *GameHandler) Reconcile(c echo.Context) error {
	if err := h.engine.Reconcile(c.Request().Context()); err != nil {
		h.logger.Errorw("Reconcile failed", "error", err)
		return h.engineError(err)
	}
	return c.JSON(http.StatusOK, h.stateResponse(h.engine.State()))
}

// Reset godoc
// @Summary Wipe the saved game
// @Tags game
// @Produce json
// @Success 200 {object} StateResponse
// @Router /reset [post]
func (h *GameHandler) Reset(c echo.Context) error {
	if err := h.engine.Reset(c.Request().Context()); err != nil {
		h.logger.Errorw("Reset failed", "error", err)
		return h.engineError(err)
	}
	return c.JSON(http.StatusOK, h.stateResponse(h.engine.State()))
}

// Events godoc
// @Summary Stream engine events
// @Description Server-sent events, one per engine change
// @Tags game
// @Produce text/event-stream
// @Router /events [get]
func (h *GameHandler) Events(c echo.Context) error {
	events, cancel := h.engine.Subscribe(64)
	defer cancel()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(res, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, data); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

// engineError maps engine errors onto HTTP status codes.
func (h *GameHandler) engineError(err error) error {
	switch {
	case errors.Is(err, entities.ErrItemNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, entities.ErrInsufficientFunds):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, entities.ErrEngineNotStarted):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Storage operation failed").SetInternal(err)
	}
}

func itemID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid item ID")
	}
	return id, nil
}

func (h *GameHandler) stateResponse(state entities.State) StateResponse {
	return StateResponse{
		Count: state.Count,
		Rate:  state.Rate,
		Items: h.itemResponses(state.Catalog, state.Count),
	}
}

func (h *GameHandler) itemResponses(items entities.Catalog, count float64) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, h.itemResponse(item, count))
	}
	return out
}

// itemResponse blanks the real name of locked items so only the mask is sent.
func (h *GameHandler) itemResponse(item entities.MarketItem, count float64) ItemResponse {
	display := item.DisplayName(h.mask)
	if !item.Unlocked {
		item.Name = ""
	}
	return ItemResponse{
		MarketItem:  item,
		DisplayName: display,
		Affordable:  item.Affordable(count),
	}
}
