package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/shipping"

	"github.com/google/uuid"
)

type OrderUsecase struct {
	tx repo.TransactionManager
}

func NewOrderUsecase(tx repo.TransactionManager) *OrderUsecase {
	return &OrderUsecase{tx: tx}
}

type CheckoutInput struct {
	RecipientName   string
	RecipientPhone  string
	Address         string
	SubdistrictID   int64
	SubdistrictName string
	TotalAmount     int64
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type OrderOutput struct {
	ID              string            `json:"id"`
	UserID          int64             `json:"user_id"`
	Status          string            `json:"status"`
	CourierName     string            `json:"courier_name"`
	ServiceName     string            `json:"service_name"`
	CourierCode     string            `json:"courier_code"`
	ShippingCost    int64             `json:"shipping_cost"`
	Etd             string            `json:"etd"`
	IsCod           bool              `json:"is_cod"`
	TrackingNumber  *string           `json:"tracking_number"`
	RecipientName   string            `json:"recipient_name"`
	RecipientPhone  string            `json:"recipient_phone"`
	Address         string            `json:"address"`
	SubdistrictID   int64             `json:"subdistrict_id"`
	SubdistrictName string            `json:"subdistrict_name"`
	TotalAmount     int64             `json:"total_amount"`
	ShippedAt       *time.Time        `json:"shipped_at"`
	DeliveredAt     *time.Time        `json:"delivered_at"`
	CreatedAt       time.Time         `json:"created_at"`
	Items           []OrderItemOutput `json:"items"`
}

// Checkout は決済確認後の注文確定。在庫減算・注文作成・カートクリアを
// 1トランザクションで行い、どれかが失敗したら全部巻き戻す。
func (u *OrderUsecase) Checkout(ctx context.Context, userID int64, in CheckoutInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(in.RecipientName) == "" || strings.TrimSpace(in.RecipientPhone) == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "recipient name and phone are required")
	}
	if strings.TrimSpace(in.Address) == "" || in.SubdistrictID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "shipping address is required")
	}
	if in.TotalAmount <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid total_amount")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "cart empty")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		if !cart.HasShipping() || !shipping.IsKnownCourierCode(cart.CourierCode) {
			return NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "shipping selection missing")
		}

		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "cart empty")
		}

		// 商品はまとめて引き直す（カート投入時点の情報は信用しない）
		productIDs := make([]int64, 0, len(cartItems))
		for _, ci := range cartItems {
			productIDs = append(productIDs, ci.ProductID)
		}
		products, err := r.Products().FindByIDs(ctx, productIDs)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		productByID := make(map[int64]model.Product, len(products))
		for _, p := range products {
			productByID[p.ID] = p
		}

		orderItems := make([]model.OrderItem, 0, len(cartItems))
		var itemsTotal int64 = 0
		now := time.Now()

		for _, ci := range cartItems {
			p, ok := productByID[ci.ProductID]
			if !ok || !p.IsActive {
				return NewHTTPError(http.StatusBadRequest, CodeInvalidInput,
					fmt.Sprintf("product %d is no longer available", ci.ProductID))
			}
			if p.Stock < ci.Quantity {
				return NewHTTPError(http.StatusBadRequest, CodeInsufficientStock,
					fmt.Sprintf("insufficient stock for %s", p.Name))
			}

			// 条件付きUPDATEで減算。並行注文に負けたらここで false
			decOK, err := r.Inventory().DecreaseStockIfEnough(ctx, ci.ProductID, ci.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}
			if !decOK {
				return NewHTTPError(http.StatusBadRequest, CodeInsufficientStock,
					fmt.Sprintf("insufficient stock for %s", p.Name))
			}

			// 価格と名前は現時点のスナップショット
			orderItems = append(orderItems, model.OrderItem{
				ProductID:           ci.ProductID,
				ProductNameSnapshot: p.Name,
				Price:               p.Price,
				Quantity:            ci.Quantity,
				CreatedAt:           now,
			})
			itemsTotal += p.Price * ci.Quantity
		}

		total := itemsTotal + cart.ShippingCost
		if in.TotalAmount != total {
			// フロントの事前計算とズレたら確定させない
			return NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "total amount mismatch")
		}

		order := model.Order{
			ID:              uuid.NewString(),
			UserID:          userID,
			CourierName:     cart.CourierName,
			ServiceName:     cart.ServiceName,
			CourierCode:     cart.CourierCode,
			ShippingCost:    cart.ShippingCost,
			Etd:             cart.Etd,
			IsCod:           cart.IsCod,
			RecipientName:   in.RecipientName,
			RecipientPhone:  in.RecipientPhone,
			Address:         in.Address,
			SubdistrictID:   in.SubdistrictID,
			SubdistrictName: in.SubdistrictName,
			TotalAmount:     total,
			Status:          model.OrderStatusPaid,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := r.Orders().Create(ctx, order); err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		if err := r.OrderItems().CreateBulk(ctx, order.ID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		// カートを空にして配送選択もリセット
		if err := r.Carts().Reset(ctx, cart.ID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		out = toOrderOutput(order, orderItems)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// Cancel は本人によるキャンセル。paid / processing のみ許可し、在庫を戻す。
func (u *OrderUsecase) Cancel(ctx context.Context, userID int64, orderID string) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(orderID) == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid order id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, CodeNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		// 他人の注文は存在を教えない
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, CodeNotFound, "order not found")
		}
		if !o.Status.IsCancellable() {
			return NewHTTPError(http.StatusBadRequest, CodeInvalidTransition,
				fmt.Sprintf("order cannot be cancelled from status %s", o.Status))
		}

		// 先に条件付きUPDATEでステータスを落とす。
		// 並行キャンセルは片方だけが成功し、在庫の二重戻しは起きない。
		ok, err := r.Orders().UpdateFieldsIfStatus(ctx, o.ID, o.Status,
			map[string]interface{}{"status": model.OrderStatusCancelled})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		if !ok {
			return NewHTTPError(http.StatusBadRequest, CodeInvalidTransition,
				"order can no longer be cancelled")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		// 明細ぶんの在庫を戻す
		for _, it := range items {
			if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}
		}

		o.Status = model.OrderStatusCancelled
		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page, limit int) ([]OrderOutput, int64, error) {
	if userID <= 0 {
		return nil, 0, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var outs []OrderOutput
	var total int64

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, cnt, err := r.Orders().ListByUserID(ctx, userID, page, limit)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		total = cnt

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return nil, 0, err
	}
	return outs, total, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID string) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, CodeNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, CodeNotFound, "order not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	itemOuts := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		itemOuts = append(itemOuts, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Price:     it.Price,
			Quantity:  it.Quantity,
		})
	}
	return OrderOutput{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		CourierName:     o.CourierName,
		ServiceName:     o.ServiceName,
		CourierCode:     o.CourierCode,
		ShippingCost:    o.ShippingCost,
		Etd:             o.Etd,
		IsCod:           o.IsCod,
		TrackingNumber:  o.TrackingNumber,
		RecipientName:   o.RecipientName,
		RecipientPhone:  o.RecipientPhone,
		Address:         o.Address,
		SubdistrictID:   o.SubdistrictID,
		SubdistrictName: o.SubdistrictName,
		TotalAmount:     o.TotalAmount,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
		CreatedAt:       o.CreatedAt,
		Items:           itemOuts,
	}
}
