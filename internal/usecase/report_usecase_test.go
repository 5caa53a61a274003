package usecase_test

import (
	"context"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func day(s string) time.Time {
	t, _ := time.ParseInLocation("2006-01-02", s, time.Local)
	return t
}

func TestReportUsecase_SalesReport_AggregatesByDay(t *testing.T) {
	ctx := context.Background()
	orders := new(OrderRepoMock)
	orderItems := new(OrderItemRepoMock)

	from := day("2026-08-01")
	to := day("2026-08-31")

	orders.On("ListCreatedBetween", mock.Anything, from, to, false).Return([]model.Order{
		{ID: "a", UserID: 1, Status: model.OrderStatusDone, TotalAmount: 100000, CreatedAt: day("2026-08-02")},
		{ID: "b", UserID: 2, Status: model.OrderStatusPaid, TotalAmount: 200000, CreatedAt: day("2026-08-02")},
		{ID: "c", UserID: 1, Status: model.OrderStatusShipped, TotalAmount: 50000, CreatedAt: day("2026-08-10")},
	}, nil)
	orderItems.On("ListByOrderIDs", mock.Anything, []string{"a", "b", "c"}).Return([]model.OrderItem{
		{OrderID: "a", ProductID: 100, ProductNameSnapshot: "Cincin Perak", Price: 50000, Quantity: 2},
		{OrderID: "b", ProductID: 200, ProductNameSnapshot: "Kalung Perak", Price: 200000, Quantity: 1},
		{OrderID: "c", ProductID: 100, ProductNameSnapshot: "Cincin Perak", Price: 50000, Quantity: 1},
	}, nil)

	uc := usecase.NewReportUsecase(orders, orderItems)
	out, err := uc.SalesReport(ctx, usecase.SalesReportInput{From: from, To: to, GroupBy: "day", TopN: 5})

	assert.NoError(t, err)
	assert.Equal(t, int64(3), out.TotalOrders)
	assert.Equal(t, int64(350000), out.TotalRevenue)
	assert.Equal(t, int64(2), out.UniqueCustomers)

	if assert.Len(t, out.Series, 2) {
		assert.Equal(t, "2026-08-02", out.Series[0].Period)
		assert.Equal(t, int64(300000), out.Series[0].Revenue)
		assert.Equal(t, "2026-08-10", out.Series[1].Period)
	}

	// 数量順：Cincin Perak 3 > Kalung Perak 1
	if assert.Len(t, out.TopProducts, 2) {
		assert.Equal(t, "Cincin Perak", out.TopProducts[0].Name)
		assert.Equal(t, int64(3), out.TopProducts[0].Quantity)
		assert.Equal(t, int64(150000), out.TopProducts[0].Revenue)
	}
}

func TestReportUsecase_SalesReport_CancelledExcludedFromRevenue(t *testing.T) {
	ctx := context.Background()
	orders := new(OrderRepoMock)
	orderItems := new(OrderItemRepoMock)

	from := day("2026-08-01")
	to := day("2026-08-31")

	orders.On("ListCreatedBetween", mock.Anything, from, to, true).Return([]model.Order{
		{ID: "a", UserID: 1, Status: model.OrderStatusDone, TotalAmount: 100000, CreatedAt: day("2026-08-05")},
		{ID: "b", UserID: 2, Status: model.OrderStatusCancelled, TotalAmount: 999999, CreatedAt: day("2026-08-05")},
	}, nil)
	orderItems.On("ListByOrderIDs", mock.Anything, []string{"a", "b"}).Return([]model.OrderItem{
		{OrderID: "a", ProductID: 100, ProductNameSnapshot: "Cincin Perak", Price: 100000, Quantity: 1},
		{OrderID: "b", ProductID: 200, ProductNameSnapshot: "Kalung Perak", Price: 999999, Quantity: 1},
	}, nil)

	uc := usecase.NewReportUsecase(orders, orderItems)
	out, err := uc.SalesReport(ctx, usecase.SalesReportInput{From: from, To: to, IncludeCancelled: true})

	assert.NoError(t, err)
	// キャンセルは件数の内訳にだけ現れ、売上・トップ商品には入らない
	assert.Equal(t, int64(1), out.TotalOrders)
	assert.Equal(t, int64(100000), out.TotalRevenue)
	assert.Equal(t, int64(1), out.ByStatus["cancelled"])
	if assert.Len(t, out.TopProducts, 1) {
		assert.Equal(t, "Cincin Perak", out.TopProducts[0].Name)
	}
}

func TestReportUsecase_SalesReport_InvalidRange(t *testing.T) {
	uc := usecase.NewReportUsecase(new(OrderRepoMock), new(OrderItemRepoMock))

	_, err := uc.SalesReport(context.Background(), usecase.SalesReportInput{
		From: day("2026-08-31"), To: day("2026-08-01"),
	})
	assertErrContains(t, err, "invalid date range")
}

func TestReportUsecase_SalesReport_GroupByMonth(t *testing.T) {
	ctx := context.Background()
	orders := new(OrderRepoMock)
	orderItems := new(OrderItemRepoMock)

	from := day("2026-01-01")
	to := day("2026-12-31")

	orders.On("ListCreatedBetween", mock.Anything, from, to, false).Return([]model.Order{
		{ID: "a", UserID: 1, Status: model.OrderStatusDone, TotalAmount: 100000, CreatedAt: day("2026-03-02")},
		{ID: "b", UserID: 1, Status: model.OrderStatusDone, TotalAmount: 150000, CreatedAt: day("2026-03-20")},
	}, nil)
	orderItems.On("ListByOrderIDs", mock.Anything, mock.Anything).Return([]model.OrderItem{}, nil)

	uc := usecase.NewReportUsecase(orders, orderItems)
	out, err := uc.SalesReport(ctx, usecase.SalesReportInput{From: from, To: to, GroupBy: "month"})

	assert.NoError(t, err)
	if assert.Len(t, out.Series, 1) {
		assert.Equal(t, "2026-03", out.Series[0].Period)
		assert.Equal(t, int64(2), out.Series[0].Orders)
		assert.Equal(t, int64(250000), out.Series[0].Revenue)
	}
}
