package model

import "time"

// 1ユーザーにつきカートは1つ。
// 配送方法のドラフト（courier/service/cost/etd/cod）もカートが持つ。
// チェックアウト確定時に明細削除＋ドラフトをリセットする。
type Cart struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;uniqueIndex" json:"user_id"`

	//配送方法ドラフト（未確定）
	CourierName  string `gorm:"type:varchar(100)" json:"courier_name"`
	ServiceName  string `gorm:"type:varchar(100)" json:"service_name"`
	ShippingCost int64  `gorm:"not null;default:0" json:"shipping_cost"`
	Etd          string `gorm:"type:varchar(50)" json:"etd"`
	IsCod        bool   `gorm:"not null;default:false" json:"is_cod"`
	CourierCode  string `gorm:"type:varchar(20)" json:"courier_code"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// HasShipping は配送ドラフトが選択済みかどうか。
func (c Cart) HasShipping() bool {
	return c.CourierName != "" && c.ServiceName != "" && c.CourierCode != ""
}
