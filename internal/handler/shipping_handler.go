package handler

import (
	"net/http"
	"strconv"
	"strings"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 配送料見積りと行政区検索のHTTP。ログイン必須（キー流用防止）。
type ShippingHandler struct {
	uc *usecase.ShippingUsecase
}

func NewShippingHandler(uc *usecase.ShippingUsecase) *ShippingHandler {
	return &ShippingHandler{uc: uc}
}

type RateQuoteRequest struct {
	DestinationID int64    `json:"destination_id"`
	Weight        int64    `json:"weight"`
	ItemValue     int64    `json:"item_value"`
	Couriers      []string `json:"couriers"`
}

func (h *ShippingHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	g := e.Group("/shipping")
	g.Use(auth)

	g.POST("/rates", h.rates)
	g.GET("/districts", h.districts)
}

func (h *ShippingHandler) rates(c echo.Context) error {
	var req RateQuoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body", Code: usecase.CodeInvalidInput})
	}

	out, err := h.uc.GetRates(c.Request().Context(), usecase.RateQuoteInput{
		DestinationID: req.DestinationID,
		Weight:        req.Weight,
		ItemValue:     req.ItemValue,
		Couriers:      req.Couriers,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ShippingHandler) districts(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	out, err := h.uc.SearchDistricts(c.Request().Context(), strings.TrimSpace(c.QueryParam("q")), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
