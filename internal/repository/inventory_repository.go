package repository

import (
	"context"
)

// 在庫はすべてこの経路で変更する。
// 減算は条件付きUPDATE（stock >= qty のときだけ）で競合チェックと一体にする。
type InventoryRepository interface {
	// 在庫が足りるときだけ減算。足りなければ false。
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセルなど）
	IncreaseStock(ctx context.Context, productID int64, qty int64) error

	// 在庫を「現在値」に更新し、調整履歴も残す（管理者操作）
	SetStockWithAdjustment(ctx context.Context, adminUserID int64, productID int64, newStock int64, reason string) error
}
