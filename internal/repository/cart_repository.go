package repository

import (
	"context"

	"app/internal/domain/model"
)

// 配送ドラフトの更新内容。
type ShippingDraft struct {
	CourierName  string
	ServiceName  string
	ShippingCost int64
	Etd          string
	IsCod        bool
	CourierCode  string
}

type CartRepository interface {
	// ユーザーのカートを取得し、無ければ作成
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)

	// 配送ドラフトの上書き
	UpdateShipping(ctx context.Context, cartID int64, draft ShippingDraft) error

	// チェックアウト確定後：明細全削除＋ドラフトリセット
	Reset(ctx context.Context, cartID int64) error
}

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// 同一商品は数量加算
	AddQuantity(ctx context.Context, cartID int64, productID int64, addQty int64) error
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error
	DeleteByID(ctx context.Context, cartItemID int64) error
	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
	IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error)
}
