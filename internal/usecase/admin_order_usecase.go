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
)

type AdminOrderUsecase struct {
	tx repo.TransactionManager
}

func NewAdminOrderUsecase(tx repo.TransactionManager) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx}
}

type AdminOrderListInput struct {
	Page   int
	Limit  int
	Status string
	UserID int64
}

func (u *AdminOrderUsecase) List(ctx context.Context, in AdminOrderListInput) ([]OrderOutput, int64, error) {
	if in.Page <= 0 {
		in.Page = 1
	}
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = 20
	}
	if in.Status != "" && !model.OrderStatus(in.Status).IsValid() {
		return nil, 0, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid status")
	}

	var outs []OrderOutput
	var total int64

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		filter := repo.AdminOrderListFilter{
			Page:   in.Page,
			Limit:  in.Limit,
			Status: in.Status,
		}
		if in.UserID > 0 {
			filter.UserID = &in.UserID
		}
		orders, cnt, err := r.Orders().ListAdmin(ctx, filter)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		total = cnt

		// 明細は注文IDでまとめて引く
		ids := make([]string, 0, len(orders))
		for _, o := range orders {
			ids = append(ids, o.ID)
		}
		itemsByOrder := map[string][]model.OrderItem{}
		if len(ids) > 0 {
			items, err := r.OrderItems().ListByOrderIDs(ctx, ids)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}
			for _, it := range items {
				itemsByOrder[it.OrderID] = append(itemsByOrder[it.OrderID], it)
			}
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			outs = append(outs, toOrderOutput(o, itemsByOrder[o.ID]))
		}
		return nil
	})

	if err != nil {
		return nil, 0, err
	}
	return outs, total, nil
}

func (u *AdminOrderUsecase) GetDetail(ctx context.Context, orderID string) (OrderOutput, error) {
	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, CodeNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
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

// UpdateStatus は遷移表に従ったステータス変更。
// shipped / done への初回到達でタイムスタンプを刻み、cancelled なら在庫を戻す。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorUserID int64, orderID, status string) (OrderOutput, error) {
	return u.updateStatus(ctx, actorUserID, orderID, status, false)
}

// ForceUpdateStatus は遷移表を無視した手動訂正。監査ログは別アクションで残す。
func (u *AdminOrderUsecase) ForceUpdateStatus(ctx context.Context, actorUserID int64, orderID, status string) (OrderOutput, error) {
	return u.updateStatus(ctx, actorUserID, orderID, status, true)
}

func (u *AdminOrderUsecase) updateStatus(ctx context.Context, actorUserID int64, orderID, status string, force bool) (OrderOutput, error) {
	next := model.OrderStatus(status)
	if !next.IsValid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid status")
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

		// 同じステータスへの更新は何もしない
		if o.Status == next {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}
			out = toOrderOutput(o, items)
			return nil
		}

		if !force && !o.Status.CanTransitionTo(next) {
			return NewHTTPError(http.StatusBadRequest, CodeInvalidTransition,
				fmt.Sprintf("cannot change status from %s to %s", o.Status, next))
		}

		now := time.Now()
		updates := map[string]interface{}{"status": next}
		if next == model.OrderStatusShipped && o.ShippedAt == nil {
			updates["shipped_at"] = now
		}
		if next == model.OrderStatusDone && o.DeliveredAt == nil {
			updates["delivered_at"] = now
		}

		// 読んだときのステータスを条件にして更新する。
		// 並行する遷移（利用者のキャンセル含む）とは片方だけが成功する。
		ok, err := r.Orders().UpdateFieldsIfStatus(ctx, o.ID, o.Status, updates)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		if !ok {
			return NewHTTPError(http.StatusBadRequest, CodeInvalidTransition,
				fmt.Sprintf("order status changed concurrently, no longer %s", o.Status))
		}

		// キャンセルに落としたときだけ在庫を戻す。
		// 条件付きUPDATEが成功した側だけがここに来るので二重戻しはない。
		if next == model.OrderStatusCancelled {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}
			for _, it := range items {
				if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
					return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
				}
			}
		}

		action := model.AuditActionUpdateOrderStatus
		if force {
			action = model.AuditActionForceUpdateOrderStatus
		}
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       action,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   o.ID,
			BeforeJSON:   fmt.Sprintf(`{"status":%q}`, o.Status),
			AfterJSON:    fmt.Sprintf(`{"status":%q}`, next),
			CreatedAt:    now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		updated, err := r.Orders().FindByID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		out = toOrderOutput(updated, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

type AssignShippingInput struct {
	TrackingNumber string
	Courier        string
}

// AssignShipping は送り状番号とキャリアの割当。キャリア名は正規化してコードで保存する。
func (u *AdminOrderUsecase) AssignShipping(ctx context.Context, actorUserID int64, orderID string, in AssignShippingInput) (OrderOutput, error) {
	waybill := strings.TrimSpace(in.TrackingNumber)
	if len(waybill) < 5 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid tracking number")
	}
	code, ok := shipping.NormalizeCourier(in.Courier)
	if !ok {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput,
			fmt.Sprintf("unknown courier %q", in.Courier))
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

		before := ""
		if o.TrackingNumber != nil {
			before = *o.TrackingNumber
		}

		if err := r.Orders().AssignShipping(ctx, o.ID, waybill, string(code)); err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       model.AuditActionAssignShipping,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   o.ID,
			BeforeJSON:   fmt.Sprintf(`{"tracking_number":%q,"courier_code":%q}`, before, o.CourierCode),
			AfterJSON:    fmt.Sprintf(`{"tracking_number":%q,"courier_code":%q}`, waybill, code),
			CreatedAt:    time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		o.TrackingNumber = &waybill
		o.CourierCode = string(code)
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
