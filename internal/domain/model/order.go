package model

import "time"

type OrderStatus string

const (
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDone       OrderStatus = "done"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// IsValid は既知の5値かどうか。
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPaid, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDone, OrderStatusCancelled:
		return true
	}
	return false
}

// 遷移表。
//
//	paid       → processing / shipped / cancelled
//	processing → shipped / cancelled
//	shipped    → done
//	done       → （終端）
//	cancelled  → （終端）
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPaid:
		return next == OrderStatusProcessing || next == OrderStatusShipped || next == OrderStatusCancelled
	case OrderStatusProcessing:
		return next == OrderStatusShipped || next == OrderStatusCancelled
	case OrderStatusShipped:
		return next == OrderStatusDone
	}
	return false
}

// IsCancellable はキャンセル可能か（paid / processing のみ）。
func (s OrderStatus) IsCancellable() bool {
	return s == OrderStatusPaid || s == OrderStatusProcessing
}

// 確定済みの注文。作成後、明細（スナップショット価格）は不変。
// 削除はしない。キャンセルはステータス遷移で表す。
type Order struct {
	ID     string `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID int64  `gorm:"not null;index" json:"user_id"`

	//確定時にカートのドラフトからコピーする配送情報
	CourierName  string `gorm:"type:varchar(100);not null" json:"courier_name"`
	ServiceName  string `gorm:"type:varchar(100);not null" json:"service_name"`
	ShippingCost int64  `gorm:"not null" json:"shipping_cost"`
	Etd          string `gorm:"type:varchar(50)" json:"etd"`
	IsCod        bool   `gorm:"not null;default:false" json:"is_cod"`

	//追跡用。trackingNumberは発送時に管理者が付与する
	CourierCode    string  `gorm:"type:varchar(20);not null" json:"courier_code"`
	TrackingNumber *string `gorm:"type:varchar(100)" json:"tracking_number"`

	//宛先
	RecipientName   string `gorm:"type:varchar(255);not null" json:"recipient_name"`
	RecipientPhone  string `gorm:"type:varchar(30);not null" json:"recipient_phone"`
	Address         string `gorm:"type:text;not null" json:"address"`
	SubdistrictID   int64  `gorm:"not null" json:"subdistrict_id"`
	SubdistrictName string `gorm:"type:varchar(255);not null" json:"subdistrict_name"`

	//明細合計 + 送料
	TotalAmount int64 `gorm:"not null" json:"total_amount"`

	Status      OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	ShippedAt   *time.Time  `json:"shipped_at"`
	DeliveredAt *time.Time  `json:"delivered_at"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
