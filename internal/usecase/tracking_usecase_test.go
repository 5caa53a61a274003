package usecase_test

import (
	"context"
	"testing"

	"app/internal/domain/model"
	"app/internal/infra/rajaongkir"
	"app/internal/shipping"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func waybill(s string) *string { return &s }

func newTrackingFixture() (*OrderRepoMock, *OrderItemRepoMock, *TrackingProviderMock, *usecase.TrackingUsecase) {
	orders := new(OrderRepoMock)
	orderItems := new(OrderItemRepoMock)
	provider := new(TrackingProviderMock)
	uc := usecase.NewTrackingUsecase(orders, orderItems, provider, zap.NewNop())
	return orders, orderItems, provider, uc
}

func TestTrackingUsecase_Refresh_DeliveredFoldsToDone(t *testing.T) {
	ctx := context.Background()
	orders, _, provider, uc := newTrackingFixture()

	orders.On("FindByID", mock.Anything, "ord-1").Return(model.Order{
		ID: "ord-1", UserID: 1, Status: model.OrderStatusShipped,
		TrackingNumber: waybill("JP123456789"), CourierCode: "jne",
	}, nil).Once()
	provider.On("TrackWaybill", mock.Anything, "JP123456789", shipping.CourierCode("jne")).Return(rajaongkir.TrackResult{
		Status:   "DELIVERED",
		PodDate:  "2026-08-20",
		PodTime:  "14:30:00",
		Receiver: "Budi",
	}, nil)
	orders.On("UpdateFields", mock.Anything, "ord-1", mock.MatchedBy(func(f map[string]interface{}) bool {
		_, hasDelivered := f["delivered_at"]
		return f["status"] == model.OrderStatusDone && hasDelivered
	})).Return(nil)
	orders.On("FindByID", mock.Anything, "ord-1").Return(model.Order{
		ID: "ord-1", UserID: 1, Status: model.OrderStatusDone,
		TrackingNumber: waybill("JP123456789"), CourierCode: "jne",
	}, nil)

	out, err := uc.Refresh(ctx, 1, false, "ord-1")

	assert.NoError(t, err)
	assert.Equal(t, "done", out.OrderStatus)
	assert.Equal(t, "DELIVERED", out.TrackingStatus)
	assert.Equal(t, "Budi", out.Receiver)
	orders.AssertExpectations(t)
}

// キャンセル済みでも配達完了の事実が勝つ。done に倒して delivered_at を刻む。
func TestTrackingUsecase_Refresh_DeliveredOverridesCancelled(t *testing.T) {
	ctx := context.Background()
	orders, _, provider, uc := newTrackingFixture()

	orders.On("FindByID", mock.Anything, "ord-7").Return(model.Order{
		ID: "ord-7", UserID: 1, Status: model.OrderStatusCancelled,
		TrackingNumber: waybill("JP777777777"), CourierCode: "jne",
	}, nil).Once()
	provider.On("TrackWaybill", mock.Anything, "JP777777777", shipping.CourierCode("jne")).Return(rajaongkir.TrackResult{
		Status:  "DELIVERED",
		PodDate: "2026-08-21",
		PodTime: "09:00:00",
	}, nil)
	orders.On("UpdateFields", mock.Anything, "ord-7", mock.MatchedBy(func(f map[string]interface{}) bool {
		_, hasDelivered := f["delivered_at"]
		return f["status"] == model.OrderStatusDone && hasDelivered
	})).Return(nil)
	orders.On("FindByID", mock.Anything, "ord-7").Return(model.Order{
		ID: "ord-7", UserID: 1, Status: model.OrderStatusDone,
		TrackingNumber: waybill("JP777777777"), CourierCode: "jne",
	}, nil)

	out, err := uc.Refresh(ctx, 1, false, "ord-7")

	assert.NoError(t, err)
	assert.Equal(t, "done", out.OrderStatus)
	orders.AssertExpectations(t)
}

func TestTrackingUsecase_Refresh_OnTransitFoldsToShipped(t *testing.T) {
	ctx := context.Background()
	orders, _, provider, uc := newTrackingFixture()

	orders.On("FindByID", mock.Anything, "ord-2").Return(model.Order{
		ID: "ord-2", UserID: 1, Status: model.OrderStatusProcessing,
		TrackingNumber: waybill("SC987654321"), CourierCode: "sicepat",
	}, nil).Once()
	provider.On("TrackWaybill", mock.Anything, "SC987654321", shipping.CourierCode("sicepat")).Return(rajaongkir.TrackResult{
		Status: "On Transit",
	}, nil)
	orders.On("UpdateFields", mock.Anything, "ord-2", mock.MatchedBy(func(f map[string]interface{}) bool {
		_, hasShipped := f["shipped_at"]
		return f["status"] == model.OrderStatusShipped && hasShipped
	})).Return(nil)
	orders.On("FindByID", mock.Anything, "ord-2").Return(model.Order{
		ID: "ord-2", UserID: 1, Status: model.OrderStatusShipped,
		TrackingNumber: waybill("SC987654321"), CourierCode: "sicepat",
	}, nil)

	out, err := uc.Refresh(ctx, 1, false, "ord-2")

	assert.NoError(t, err)
	assert.Equal(t, "shipped", out.OrderStatus)
	assert.Equal(t, "SHIPPED", out.TrackingStatus)
}

func TestTrackingUsecase_Refresh_Idempotent(t *testing.T) {
	ctx := context.Background()
	orders, _, provider, uc := newTrackingFixture()

	delivered := model.Order{
		ID: "ord-3", UserID: 1, Status: model.OrderStatusDone,
		TrackingNumber: waybill("JP123456789"), CourierCode: "jne",
	}
	now := delivered.CreatedAt
	delivered.DeliveredAt = &now
	delivered.ShippedAt = &now

	orders.On("FindByID", mock.Anything, "ord-3").Return(delivered, nil)
	provider.On("TrackWaybill", mock.Anything, "JP123456789", shipping.CourierCode("jne")).Return(rajaongkir.TrackResult{
		Status: "DELIVERED",
	}, nil)

	// 既に done かつタイムスタンプ済みなら更新は走らない
	out, err := uc.Refresh(ctx, 1, false, "ord-3")

	assert.NoError(t, err)
	assert.Equal(t, "done", out.OrderStatus)
	orders.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
}

func TestTrackingUsecase_Refresh_PendingDoesNotTouchOrder(t *testing.T) {
	ctx := context.Background()
	orders, _, provider, uc := newTrackingFixture()

	orders.On("FindByID", mock.Anything, "ord-4").Return(model.Order{
		ID: "ord-4", UserID: 1, Status: model.OrderStatusProcessing,
		TrackingNumber: waybill("AW555555555"), CourierCode: "anteraja",
	}, nil)
	provider.On("TrackWaybill", mock.Anything, "AW555555555", shipping.CourierCode("anteraja")).Return(rajaongkir.TrackResult{
		Status: "Belum ada data",
	}, nil)

	out, err := uc.Refresh(ctx, 1, false, "ord-4")

	assert.NoError(t, err)
	assert.Equal(t, "processing", out.OrderStatus)
	assert.Equal(t, "PENDING", out.TrackingStatus)
	orders.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
}

func TestTrackingUsecase_Refresh_ProviderUnavailable(t *testing.T) {
	ctx := context.Background()
	orders, _, provider, uc := newTrackingFixture()

	orders.On("FindByID", mock.Anything, "ord-5").Return(model.Order{
		ID: "ord-5", UserID: 1, Status: model.OrderStatusShipped,
		TrackingNumber: waybill("JP123456789"), CourierCode: "jne",
	}, nil)
	provider.On("TrackWaybill", mock.Anything, "JP123456789", shipping.CourierCode("jne")).Return(rajaongkir.TrackResult{}, rajaongkir.ErrUnavailable)

	_, err := uc.Refresh(ctx, 1, false, "ord-5")

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, usecase.CodeProviderUnavailable, he.Code)
	assert.Equal(t, 504, he.Status)
	// 注文は触らない
	orders.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
}

func TestTrackingUsecase_Refresh_ProviderError(t *testing.T) {
	ctx := context.Background()
	orders, _, provider, uc := newTrackingFixture()

	orders.On("FindByID", mock.Anything, "ord-6").Return(model.Order{
		ID: "ord-6", UserID: 1, Status: model.OrderStatusShipped,
		TrackingNumber: waybill("XX000"), CourierCode: "jne",
	}, nil)
	provider.On("TrackWaybill", mock.Anything, "XX000", shipping.CourierCode("jne")).Return(rajaongkir.TrackResult{}, &rajaongkir.APIError{HTTPStatus: 404, Message: "waybill not found"})

	_, err := uc.Refresh(ctx, 1, false, "ord-6")

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, usecase.CodeProviderError, he.Code)
	assert.Equal(t, 502, he.Status)
}

func TestTrackingUsecase_Refresh_NoWaybillYet(t *testing.T) {
	ctx := context.Background()
	orders, _, provider, uc := newTrackingFixture()

	orders.On("FindByID", mock.Anything, "ord-7").Return(model.Order{
		ID: "ord-7", UserID: 1, Status: model.OrderStatusPaid,
	}, nil)

	_, err := uc.Refresh(ctx, 1, false, "ord-7")

	assertErrContains(t, err, "no tracking number")
	provider.AssertNotCalled(t, "TrackWaybill", mock.Anything, mock.Anything, mock.Anything)
}

func TestTrackingUsecase_Refresh_OtherUsersOrderHidden(t *testing.T) {
	ctx := context.Background()
	orders, _, provider, uc := newTrackingFixture()

	orders.On("FindByID", mock.Anything, "ord-8").Return(model.Order{
		ID: "ord-8", UserID: 42, Status: model.OrderStatusShipped,
		TrackingNumber: waybill("JP123456789"), CourierCode: "jne",
	}, nil)

	_, err := uc.Refresh(ctx, 1, false, "ord-8")

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, usecase.CodeNotFound, he.Code)
	provider.AssertNotCalled(t, "TrackWaybill", mock.Anything, mock.Anything, mock.Anything)
}

func TestTrackingUsecase_Refresh_AdminCanAccessAnyOrder(t *testing.T) {
	ctx := context.Background()
	orders, _, provider, uc := newTrackingFixture()

	orders.On("FindByID", mock.Anything, "ord-9").Return(model.Order{
		ID: "ord-9", UserID: 42, Status: model.OrderStatusShipped,
		TrackingNumber: waybill("GK111111111"), CourierCode: "jne",
	}, nil)
	provider.On("TrackWaybill", mock.Anything, "GK111111111", shipping.CourierCode("jne")).Return(rajaongkir.TrackResult{
		Status: "MANIFESTED",
	}, nil)

	out, err := uc.Refresh(ctx, 10, true, "ord-9")

	assert.NoError(t, err)
	assert.Equal(t, "PACKED", out.TrackingStatus)
}
