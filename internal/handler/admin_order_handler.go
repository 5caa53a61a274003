package handler

import (
	"net/http"
	"strconv"
	"time"

	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /admin/orders のHTTP（ADMIN専用）
type AdminOrderHandler struct {
	uc       *usecase.AdminOrderUsecase
	tracking *usecase.TrackingUsecase
	report   *usecase.ReportUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase, tracking *usecase.TrackingUsecase, report *usecase.ReportUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc, tracking: tracking, report: report}
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

type AssignShippingRequest struct {
	TrackingNumber string `json:"tracking_number"`
	Courier        string `json:"courier"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	g := e.Group("/admin")
	g.Use(auth)
	g.Use(middleware.AdminRoleGuard())

	g.GET("/orders", h.list)
	g.GET("/orders/:id", h.detail)
	g.PATCH("/orders/:id/status", h.updateStatus)
	g.PATCH("/orders/:id/status/force", h.forceUpdateStatus)
	g.PATCH("/orders/:id/shipping", h.assignShipping)
	g.POST("/orders/:id/tracking/refresh", h.refreshTracking)
	g.GET("/reports/sales", h.salesReport)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	userID, _ := strconv.ParseInt(c.QueryParam("user_id"), 10, 64)

	items, total, err := h.uc.List(c.Request().Context(), usecase.AdminOrderListInput{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
		UserID: userID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, OrderListResponse{Items: items, Total: total})
}

func (h *AdminOrderHandler) detail(c echo.Context) error {
	out, err := h.uc.GetDetail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: usecase.CodeUnauthorized})
	}

	var req UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body", Code: usecase.CodeInvalidInput})
	}

	out, err := h.uc.UpdateStatus(c.Request().Context(), adminID, c.Param("id"), req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) forceUpdateStatus(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: usecase.CodeUnauthorized})
	}

	var req UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body", Code: usecase.CodeInvalidInput})
	}

	out, err := h.uc.ForceUpdateStatus(c.Request().Context(), adminID, c.Param("id"), req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) assignShipping(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: usecase.CodeUnauthorized})
	}

	var req AssignShippingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body", Code: usecase.CodeInvalidInput})
	}

	out, err := h.uc.AssignShipping(c.Request().Context(), adminID, c.Param("id"), usecase.AssignShippingInput{
		TrackingNumber: req.TrackingNumber,
		Courier:        req.Courier,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) refreshTracking(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: usecase.CodeUnauthorized})
	}

	out, err := h.tracking.Refresh(c.Request().Context(), adminID, true, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) salesReport(c echo.Context) error {
	from, err := parseDateParam(c.QueryParam("from"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid from", Code: usecase.CodeInvalidInput})
	}
	to, err := parseDateParam(c.QueryParam("to"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid to", Code: usecase.CodeInvalidInput})
	}
	// toは当日を含める
	to = to.Add(24*time.Hour - time.Nanosecond)

	topN, _ := strconv.Atoi(c.QueryParam("top_n"))

	out, err := h.report.SalesReport(c.Request().Context(), usecase.SalesReportInput{
		From:             from,
		To:               to,
		GroupBy:          c.QueryParam("group_by"),
		TopN:             topN,
		IncludeCancelled: c.QueryParam("include_cancelled") == "true",
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func parseDateParam(v string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", v, time.Local)
}
