package usecase_test

import (
	"context"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newCheckoutFixture() (*TxManagerMock, *OrderRepoMock, *OrderItemRepoMock, *CartRepoMock, *CartItemRepoMock, *ProductRepoMock, *InventoryRepoMock) {
	tx := new(TxManagerMock)
	orders := new(OrderRepoMock)
	orderItems := new(OrderItemRepoMock)
	carts := new(CartRepoMock)
	cartItems := new(CartItemRepoMock)
	products := new(ProductRepoMock)
	inventory := new(InventoryRepoMock)

	tx.Repos = &TxReposMock{
		orders:     orders,
		orderItems: orderItems,
		carts:      carts,
		cartItems:  cartItems,
		products:   products,
		inventory:  inventory,
		auditLogs:  new(AuditRepoMock),
	}
	return tx, orders, orderItems, carts, cartItems, products, inventory
}

func validCheckoutInput(total int64) usecase.CheckoutInput {
	return usecase.CheckoutInput{
		RecipientName:   "Budi",
		RecipientPhone:  "081234567890",
		Address:         "Jl. Merdeka No.1",
		SubdistrictID:   6143,
		SubdistrictName: "Coblong",
		TotalAmount:     total,
	}
}

func shippedCart() model.Cart {
	return model.Cart{
		ID:           7,
		UserID:       1,
		CourierName:  "JNE",
		ServiceName:  "REG",
		CourierCode:  "jne",
		ShippingCost: 15000,
		Etd:          "2-3",
	}
}

func TestOrderUsecase_Checkout_Success(t *testing.T) {
	ctx := context.Background()
	tx, orders, orderItems, carts, cartItems, products, inventory := newCheckoutFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	carts.On("FindByUserID", mock.Anything, int64(1)).Return(shippedCart(), nil)
	cartItems.On("ListByCartID", mock.Anything, int64(7)).Return([]model.CartItem{
		{ID: 1, CartID: 7, ProductID: 100, Quantity: 2},
		{ID: 2, CartID: 7, ProductID: 200, Quantity: 1},
	}, nil)
	products.On("FindByIDs", mock.Anything, []int64{100, 200}).Return([]model.Product{
		{ID: 100, Name: "Cincin Perak", Price: 50000, Stock: 10, IsActive: true},
		{ID: 200, Name: "Kalung Perak", Price: 100000, Stock: 3, IsActive: true},
	}, nil)
	inventory.On("DecreaseStockIfEnough", mock.Anything, int64(100), int64(2)).Return(true, nil)
	inventory.On("DecreaseStockIfEnough", mock.Anything, int64(200), int64(1)).Return(true, nil)

	// 2*50000 + 1*100000 + 15000 = 215000
	orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.ID != "" &&
			o.UserID == 1 &&
			o.Status == model.OrderStatusPaid &&
			o.TotalAmount == 215000 &&
			o.CourierCode == "jne" &&
			o.ShippingCost == 15000
	})).Return(nil)
	orderItems.On("CreateBulk", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(items []model.OrderItem) bool {
		if len(items) != 2 {
			return false
		}
		// 確定時点の価格と名前がスナップショットされている
		return items[0].Price == 50000 && items[0].ProductNameSnapshot == "Cincin Perak" &&
			items[1].Price == 100000 && items[1].ProductNameSnapshot == "Kalung Perak"
	})).Return(nil)
	carts.On("Reset", mock.Anything, int64(7)).Return(nil)

	uc := usecase.NewOrderUsecase(tx)
	out, err := uc.Checkout(ctx, 1, validCheckoutInput(215000))

	assert.NoError(t, err)
	assert.Equal(t, "paid", out.Status)
	assert.Equal(t, int64(215000), out.TotalAmount)
	assert.Len(t, out.Items, 2)

	orders.AssertExpectations(t)
	orderItems.AssertExpectations(t)
	inventory.AssertExpectations(t)
	carts.AssertExpectations(t)
}

func TestOrderUsecase_Checkout_InsufficientStock(t *testing.T) {
	ctx := context.Background()
	tx, orders, orderItems, carts, cartItems, products, inventory := newCheckoutFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	carts.On("FindByUserID", mock.Anything, int64(1)).Return(shippedCart(), nil)
	cartItems.On("ListByCartID", mock.Anything, int64(7)).Return([]model.CartItem{
		{ID: 1, CartID: 7, ProductID: 100, Quantity: 5},
	}, nil)
	products.On("FindByIDs", mock.Anything, []int64{100}).Return([]model.Product{
		{ID: 100, Name: "Gelang Perak", Price: 80000, Stock: 2, IsActive: true},
	}, nil)

	uc := usecase.NewOrderUsecase(tx)
	_, err := uc.Checkout(ctx, 1, validCheckoutInput(415000))

	// 不足した商品名を含むエラーで、注文もカートクリアも走らない
	assertErrContains(t, err, "Gelang Perak")
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, usecase.CodeInsufficientStock, he.Code)

	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	orderItems.AssertNotCalled(t, "CreateBulk", mock.Anything, mock.Anything, mock.Anything)
	carts.AssertNotCalled(t, "Reset", mock.Anything, mock.Anything)
	inventory.AssertNotCalled(t, "DecreaseStockIfEnough", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderUsecase_Checkout_ConcurrentStockLoss(t *testing.T) {
	ctx := context.Background()
	tx, orders, _, carts, cartItems, products, inventory := newCheckoutFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	carts.On("FindByUserID", mock.Anything, int64(1)).Return(shippedCart(), nil)
	cartItems.On("ListByCartID", mock.Anything, int64(7)).Return([]model.CartItem{
		{ID: 1, CartID: 7, ProductID: 100, Quantity: 2},
	}, nil)
	// 読み取り時点では足りて見えるが、条件付きUPDATEで負ける
	products.On("FindByIDs", mock.Anything, []int64{100}).Return([]model.Product{
		{ID: 100, Name: "Anting Perak", Price: 60000, Stock: 2, IsActive: true},
	}, nil)
	inventory.On("DecreaseStockIfEnough", mock.Anything, int64(100), int64(2)).Return(false, nil)

	uc := usecase.NewOrderUsecase(tx)
	_, err := uc.Checkout(ctx, 1, validCheckoutInput(135000))

	assertErrContains(t, err, "Anting Perak")
	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderUsecase_Checkout_TotalMismatch(t *testing.T) {
	ctx := context.Background()
	tx, orders, _, carts, cartItems, products, inventory := newCheckoutFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	carts.On("FindByUserID", mock.Anything, int64(1)).Return(shippedCart(), nil)
	cartItems.On("ListByCartID", mock.Anything, int64(7)).Return([]model.CartItem{
		{ID: 1, CartID: 7, ProductID: 100, Quantity: 1},
	}, nil)
	products.On("FindByIDs", mock.Anything, []int64{100}).Return([]model.Product{
		{ID: 100, Name: "Liontin Perak", Price: 90000, Stock: 5, IsActive: true},
	}, nil)
	inventory.On("DecreaseStockIfEnough", mock.Anything, int64(100), int64(1)).Return(true, nil)

	uc := usecase.NewOrderUsecase(tx)
	// サーバー計算は 90000+15000=105000。申告とズレたら確定しない
	_, err := uc.Checkout(ctx, 1, validCheckoutInput(100000))

	assertErrContains(t, err, "total amount mismatch")
	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderUsecase_Checkout_EmptyCart(t *testing.T) {
	ctx := context.Background()
	tx, _, _, carts, cartItems, _, _ := newCheckoutFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	carts.On("FindByUserID", mock.Anything, int64(1)).Return(shippedCart(), nil)
	cartItems.On("ListByCartID", mock.Anything, int64(7)).Return([]model.CartItem{}, nil)

	uc := usecase.NewOrderUsecase(tx)
	_, err := uc.Checkout(ctx, 1, validCheckoutInput(15000))
	assertErrContains(t, err, "cart empty")
}

func TestOrderUsecase_Checkout_NoShippingSelected(t *testing.T) {
	ctx := context.Background()
	tx, _, _, carts, _, _, _ := newCheckoutFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	carts.On("FindByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7, UserID: 1}, nil)

	uc := usecase.NewOrderUsecase(tx)
	_, err := uc.Checkout(ctx, 1, validCheckoutInput(100000))
	assertErrContains(t, err, "shipping selection missing")
}

func TestOrderUsecase_Checkout_InactiveProduct(t *testing.T) {
	ctx := context.Background()
	tx, orders, _, carts, cartItems, products, _ := newCheckoutFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	carts.On("FindByUserID", mock.Anything, int64(1)).Return(shippedCart(), nil)
	cartItems.On("ListByCartID", mock.Anything, int64(7)).Return([]model.CartItem{
		{ID: 1, CartID: 7, ProductID: 100, Quantity: 1},
	}, nil)
	products.On("FindByIDs", mock.Anything, []int64{100}).Return([]model.Product{
		{ID: 100, Name: "Bros Perak", Price: 70000, Stock: 5, IsActive: false},
	}, nil)

	uc := usecase.NewOrderUsecase(tx)
	_, err := uc.Checkout(ctx, 1, validCheckoutInput(85000))
	assertErrContains(t, err, "no longer available")
	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderUsecase_Cancel_RestoresStock(t *testing.T) {
	ctx := context.Background()
	tx, orders, orderItems, _, _, _, inventory := newCheckoutFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	orders.On("FindByID", mock.Anything, "ord-1").Return(model.Order{
		ID: "ord-1", UserID: 1, Status: model.OrderStatusPaid, TotalAmount: 215000,
	}, nil)
	orders.On("UpdateFieldsIfStatus", mock.Anything, "ord-1", model.OrderStatusPaid,
		map[string]interface{}{"status": model.OrderStatusCancelled}).Return(true, nil)
	orderItems.On("ListByOrderID", mock.Anything, "ord-1").Return([]model.OrderItem{
		{OrderID: "ord-1", ProductID: 100, Quantity: 2},
		{OrderID: "ord-1", ProductID: 200, Quantity: 1},
	}, nil)
	inventory.On("IncreaseStock", mock.Anything, int64(100), int64(2)).Return(nil)
	inventory.On("IncreaseStock", mock.Anything, int64(200), int64(1)).Return(nil)

	uc := usecase.NewOrderUsecase(tx)
	out, err := uc.Cancel(ctx, 1, "ord-1")

	assert.NoError(t, err)
	assert.Equal(t, "cancelled", out.Status)
	inventory.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestOrderUsecase_Cancel_ShippedRejected(t *testing.T) {
	ctx := context.Background()
	tx, orders, _, _, _, _, inventory := newCheckoutFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	orders.On("FindByID", mock.Anything, "ord-2").Return(model.Order{
		ID: "ord-2", UserID: 1, Status: model.OrderStatusShipped,
	}, nil)

	uc := usecase.NewOrderUsecase(tx)
	_, err := uc.Cancel(ctx, 1, "ord-2")

	assertErrContains(t, err, "cannot be cancelled")
	he, _ := usecase.AsHTTPError(err)
	assert.Equal(t, usecase.CodeInvalidTransition, he.Code)
	inventory.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "UpdateFieldsIfStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// 並行キャンセル：読んだ時点では paid でも、条件付きUPDATEに負けた側は
// InvalidTransition になり在庫は戻さない。
func TestOrderUsecase_Cancel_ConcurrentLoserDoesNotRestoreStock(t *testing.T) {
	ctx := context.Background()
	tx, orders, _, _, _, _, inventory := newCheckoutFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	orders.On("FindByID", mock.Anything, "ord-9").Return(model.Order{
		ID: "ord-9", UserID: 1, Status: model.OrderStatusPaid,
	}, nil)
	// 先行したキャンセルが既にステータスを落としている
	orders.On("UpdateFieldsIfStatus", mock.Anything, "ord-9", model.OrderStatusPaid,
		map[string]interface{}{"status": model.OrderStatusCancelled}).Return(false, nil)

	uc := usecase.NewOrderUsecase(tx)
	_, err := uc.Cancel(ctx, 1, "ord-9")

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, usecase.CodeInvalidTransition, he.Code)
	inventory.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderUsecase_Cancel_OtherUsersOrderHidden(t *testing.T) {
	ctx := context.Background()
	tx, orders, _, _, _, _, _ := newCheckoutFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	orders.On("FindByID", mock.Anything, "ord-3").Return(model.Order{
		ID: "ord-3", UserID: 99, Status: model.OrderStatusPaid,
	}, nil)

	uc := usecase.NewOrderUsecase(tx)
	_, err := uc.Cancel(ctx, 1, "ord-3")

	// 他人の注文は404に見せる
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, usecase.CodeNotFound, he.Code)
}

func TestOrderUsecase_GetMyOrderDetail_NotFound(t *testing.T) {
	ctx := context.Background()
	tx, orders, _, _, _, _, _ := newCheckoutFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	orders.On("FindByID", mock.Anything, "missing").Return(model.Order{}, repo.ErrNotFound)

	uc := usecase.NewOrderUsecase(tx)
	_, err := uc.GetMyOrderDetail(ctx, 1, "missing")
	assertErrContains(t, err, "order not found")
}
