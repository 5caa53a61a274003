package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID string) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) error

	// 追跡の畳み込みなど、変更があったフィールドだけを部分更新する
	UpdateFields(ctx context.Context, orderID string, fields map[string]interface{}) error

	// 現在のステータスが expected のときだけ部分更新する。
	// 条件付きUPDATEなので、並行する遷移はどちらか一方だけが成功する。
	UpdateFieldsIfStatus(ctx context.Context, orderID string, expected model.OrderStatus, fields map[string]interface{}) (bool, error)

	// 送り状番号とキャリアコードの割当
	AssignShipping(ctx context.Context, orderID string, trackingNumber string, courierCode string) error

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)

	//レポート用：期間内の注文（古い順）
	ListCreatedBetween(ctx context.Context, from time.Time, to time.Time, includeCancelled bool) ([]model.Order, error)
}

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID string, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID string) ([]model.OrderItem, error)
	ListByOrderIDs(ctx context.Context, orderIDs []string) ([]model.OrderItem, error)
}
