package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"app/internal/domain/model"
	"app/internal/infra/rajaongkir"
	repo "app/internal/repository"
	"app/internal/shipping"

	"go.uber.org/zap"
)

// TrackingProvider は送り状追跡の外部API。実体は rajaongkir.Client。
type TrackingProvider interface {
	TrackWaybill(ctx context.Context, waybill string, courier shipping.CourierCode) (rajaongkir.TrackResult, error)
}

type TrackingUsecase struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	provider   TrackingProvider
	log        *zap.Logger
}

func NewTrackingUsecase(orders repo.OrderRepository, orderItems repo.OrderItemRepository, provider TrackingProvider, log *zap.Logger) *TrackingUsecase {
	return &TrackingUsecase{orders: orders, orderItems: orderItems, provider: provider, log: log}
}

type TrackingOutput struct {
	OrderID        string                     `json:"order_id"`
	OrderStatus    string                     `json:"order_status"`
	TrackingStatus string                     `json:"tracking_status"`
	Receiver       string                     `json:"receiver"`
	PodDate        string                     `json:"pod_date"`
	PodTime        string                     `json:"pod_time"`
	Manifest       []rajaongkir.ManifestEntry `json:"manifest"`
}

// Refresh は外部追跡APIの最新状態を注文に反映する。
// 何度呼んでも結果は同じ（タイムスタンプは初回到達時のみ刻む）。
func (u *TrackingUsecase) Refresh(ctx context.Context, actorUserID int64, isAdmin bool, orderID string) (TrackingOutput, error) {
	o, err := u.orders.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return TrackingOutput{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "order not found")
	}
	if err != nil {
		return TrackingOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	// 本人以外は存在を教えない
	if !isAdmin && o.UserID != actorUserID {
		return TrackingOutput{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "order not found")
	}
	if o.TrackingNumber == nil || *o.TrackingNumber == "" || !shipping.IsKnownCourierCode(o.CourierCode) {
		return TrackingOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "order has no tracking number yet")
	}

	trackCtx, cancel := context.WithTimeout(ctx, rajaongkir.ProviderTimeout)
	defer cancel()

	res, err := u.provider.TrackWaybill(trackCtx, *o.TrackingNumber, shipping.CourierCode(o.CourierCode))
	if err != nil {
		var apiErr *rajaongkir.APIError
		switch {
		case errors.As(err, &apiErr):
			u.log.Warn("tracking provider error", zap.String("order_id", o.ID), zap.Error(err))
			return TrackingOutput{}, NewHTTPError(http.StatusBadGateway, CodeProviderError, apiErr.Message)
		default:
			// タイムアウト含め疎通不可。注文はそのまま
			u.log.Warn("tracking provider unavailable", zap.String("order_id", o.ID), zap.Error(err))
			return TrackingOutput{}, NewHTTPError(http.StatusGatewayTimeout, CodeProviderUnavailable, "tracking provider unavailable")
		}
	}

	normalized := shipping.NormalizeStatus(res.Status)

	updates := map[string]interface{}{}
	switch normalized {
	case shipping.ShipStatusDelivered:
		if o.DeliveredAt == nil {
			updates["delivered_at"] = podTimestamp(res.PodDate, res.PodTime)
		}
		if o.ShippedAt == nil {
			updates["shipped_at"] = podTimestamp(res.PodDate, res.PodTime)
		}
		// 配達完了の事実が最優先。done 以外（cancelled 含む）はすべて done に倒す
		if o.Status != model.OrderStatusDone {
			updates["status"] = model.OrderStatusDone
		}
	case shipping.ShipStatusShipped:
		if o.ShippedAt == nil {
			updates["shipped_at"] = time.Now()
		}
		if o.Status == model.OrderStatusPaid || o.Status == model.OrderStatusProcessing {
			updates["status"] = model.OrderStatusShipped
		}
	}
	// PACKED / PENDING は注文側を動かさない

	if len(updates) > 0 {
		if err := u.orders.UpdateFields(ctx, o.ID, updates); err != nil {
			return TrackingOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		o, err = u.orders.FindByID(ctx, o.ID)
		if err != nil {
			return TrackingOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
	}

	return TrackingOutput{
		OrderID:        o.ID,
		OrderStatus:    string(o.Status),
		TrackingStatus: string(normalized),
		Receiver:       res.Receiver,
		PodDate:        res.PodDate,
		PodTime:        res.PodTime,
		Manifest:       res.Manifest,
	}, nil
}

// 配達完了日時。プロバイダのPOD日付が読めなければ現在時刻で代用。
func podTimestamp(podDate, podTime string) time.Time {
	if podDate == "" {
		return time.Now()
	}
	if podTime == "" {
		podTime = "00:00:00"
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05", podDate+" "+podTime, time.Local)
	if err != nil {
		return time.Now()
	}
	return t
}
