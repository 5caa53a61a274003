package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	repo "app/internal/repository"
	"app/internal/shipping"
)

// CartUsecase は /cart の業務ロジック。
// カート本体（配送ドラフト持ち）と明細を分けて扱う。
type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
	}
}

// price は現在の商品価格。スナップショットは注文確定時に取る。
type CartItemResponse struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Weight    int64  `json:"weight"`
	Quantity  int64  `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

type CartShippingResponse struct {
	CourierName  string `json:"courier_name"`
	ServiceName  string `json:"service_name"`
	CourierCode  string `json:"courier_code"`
	ShippingCost int64  `json:"shipping_cost"`
	Etd          string `json:"etd"`
	IsCod        bool   `json:"is_cod"`
}

type CartResponse struct {
	Items       []CartItemResponse    `json:"items"`
	ItemsTotal  int64                 `json:"items_total"`
	TotalWeight int64                 `json:"total_weight"`
	Shipping    *CartShippingResponse `json:"shipping"`
	GrandTotal  int64                 `json:"grand_total"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
}

type UpdateCartItemInput struct {
	Quantity int64
}

type SetShippingInput struct {
	CourierName  string
	ServiceName  string
	Courier      string
	ShippingCost int64
	Etd          string
	IsCod        bool
}

// GetCart はカート取得（無ければ作って空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}

	if _, err := u.cartRepo.GetOrCreateByUserID(ctx, userID); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	return u.buildCartResponse(ctx, userID)
}

// AddToCart はカートに追加（同一商品は数量加算）。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid product_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid quantity")
	}

	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "product not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	if !p.IsActive {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "product not found")
	}

	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	// 追加後の数量が在庫を超えないか
	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	var current int64 = 0
	for _, it := range items {
		if it.ProductID == in.ProductID {
			current = it.Quantity
		}
	}
	if current+in.Quantity > p.Stock {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInsufficientStock,
			fmt.Sprintf("insufficient stock for %s", p.Name))
	}

	if err := u.cartItemRepo.AddQuantity(ctx, cart.ID, in.ProductID, in.Quantity); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	return u.buildCartResponse(ctx, userID)
}

// UpdateCartItem は数量変更。0以下なら削除扱い。
func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, cartItemID int64, in UpdateCartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid cart item id")
	}

	owned, err := u.cartItemRepo.IsOwnedByUser(ctx, cartItemID, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	if !owned {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "cart item not found")
	}

	if in.Quantity <= 0 {
		if err := u.cartItemRepo.DeleteByID(ctx, cartItemID); err != nil {
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		return u.buildCartResponse(ctx, userID)
	}

	it, err := u.cartItemRepo.FindByID(ctx, cartItemID)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "cart item not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	p, err := u.productRepo.FindByID(ctx, it.ProductID)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "product not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	if in.Quantity > p.Stock {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInsufficientStock,
			fmt.Sprintf("insufficient stock for %s", p.Name))
	}

	if err := u.cartItemRepo.UpdateQuantity(ctx, cartItemID, in.Quantity); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	return u.buildCartResponse(ctx, userID)
}

func (u *CartUsecase) DeleteCartItem(ctx context.Context, userID int64, cartItemID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid cart item id")
	}

	owned, err := u.cartItemRepo.IsOwnedByUser(ctx, cartItemID, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	if !owned {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "cart item not found")
	}

	if err := u.cartItemRepo.DeleteByID(ctx, cartItemID); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	return u.buildCartResponse(ctx, userID)
}

// SetShipping は見積り結果から選んだ配送方法をカートに保存する。
func (u *CartUsecase) SetShipping(ctx context.Context, userID int64, in SetShippingInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(in.CourierName) == "" || strings.TrimSpace(in.ServiceName) == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "courier and service are required")
	}
	if in.ShippingCost < 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid shipping cost")
	}
	code, ok := shipping.NormalizeCourier(in.Courier)
	if !ok {
		// courier_name 側でも引けるか試す
		code, ok = shipping.NormalizeCourier(in.CourierName)
	}
	if !ok {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput,
			fmt.Sprintf("unknown courier %q", in.Courier))
	}

	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	draft := repo.ShippingDraft{
		CourierName:  in.CourierName,
		ServiceName:  in.ServiceName,
		ShippingCost: in.ShippingCost,
		Etd:          in.Etd,
		IsCod:        in.IsCod,
		CourierCode:  string(code),
	}
	if err := u.cartRepo.UpdateShipping(ctx, cart.ID, draft); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	return u.buildCartResponse(ctx, userID)
}

// buildCartResponse は明細＋現在価格＋配送ドラフトでレスポンスを組み立てる。
func (u *CartUsecase) buildCartResponse(ctx context.Context, userID int64) (CartResponse, error) {
	cart, err := u.cartRepo.FindByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		return CartResponse{Items: []CartItemResponse{}}, nil
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	res := CartResponse{Items: make([]CartItemResponse, 0, len(items))}
	for _, it := range items {
		p, err := u.productRepo.FindByID(ctx, it.ProductID)
		if err == repo.ErrNotFound {
			// 削除済み商品は表示から落とす
			continue
		}
		if err != nil {
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		sub := p.Price * it.Quantity
		res.Items = append(res.Items, CartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      p.Name,
			Price:     p.Price,
			Weight:    p.Weight,
			Quantity:  it.Quantity,
			Subtotal:  sub,
		})
		res.ItemsTotal += sub
		res.TotalWeight += p.Weight * it.Quantity
	}

	res.GrandTotal = res.ItemsTotal
	if cart.HasShipping() {
		res.Shipping = &CartShippingResponse{
			CourierName:  cart.CourierName,
			ServiceName:  cart.ServiceName,
			CourierCode:  cart.CourierCode,
			ShippingCost: cart.ShippingCost,
			Etd:          cart.Etd,
			IsCod:        cart.IsCod,
		}
		res.GrandTotal += cart.ShippingCost
	}
	return res, nil
}
