package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"app/internal/infra/midtrans"
	repo "app/internal/repository"

	"go.uber.org/zap"
)

// PaymentGateway は決済トークン発行の外部API。実体は midtrans.Client。
type PaymentGateway interface {
	CreateToken(ctx context.Context, orderRef string, items []midtrans.ItemDetail) (midtrans.SnapToken, error)
}

// PaymentUsecase はカート内容からSnapトークンを発行する。
// 金額はサーバー側の現在価格で組み立て、クライアントの申告は使わない。
type PaymentUsecase struct {
	gateway      PaymentGateway
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
	log          *zap.Logger
}

func NewPaymentUsecase(
	gateway PaymentGateway,
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
	log *zap.Logger,
) *PaymentUsecase {
	return &PaymentUsecase{
		gateway:      gateway,
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
		log:          log,
	}
}

type PaymentTokenOutput struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
	GrossAmount int64  `json:"gross_amount"`
}

func (u *PaymentUsecase) CreateCartToken(ctx context.Context, userID int64) (PaymentTokenOutput, error) {
	if userID <= 0 {
		return PaymentTokenOutput{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}

	cart, err := u.cartRepo.FindByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		return PaymentTokenOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "cart empty")
	}
	if err != nil {
		return PaymentTokenOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	if !cart.HasShipping() {
		return PaymentTokenOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "shipping selection missing")
	}

	cartItems, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return PaymentTokenOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	if len(cartItems) == 0 {
		return PaymentTokenOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "cart empty")
	}

	details := make([]midtrans.ItemDetail, 0, len(cartItems)+1)
	var gross int64 = 0
	for _, ci := range cartItems {
		p, err := u.productRepo.FindByID(ctx, ci.ProductID)
		if err == repo.ErrNotFound {
			return PaymentTokenOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput,
				fmt.Sprintf("product %d is no longer available", ci.ProductID))
		}
		if err != nil {
			return PaymentTokenOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		details = append(details, midtrans.ItemDetail{
			ID:       strconv.FormatInt(p.ID, 10),
			Name:     p.Name,
			Price:    p.Price,
			Quantity: ci.Quantity,
		})
		gross += p.Price * ci.Quantity
	}
	// 送料も1明細として載せる
	details = append(details, midtrans.ItemDetail{
		ID:       "shipping",
		Name:     fmt.Sprintf("Shipping %s %s", cart.CourierName, cart.ServiceName),
		Price:    cart.ShippingCost,
		Quantity: 1,
	})
	gross += cart.ShippingCost

	orderRef := fmt.Sprintf("cart-%d-%d", userID, time.Now().UnixMilli())

	tok, err := u.gateway.CreateToken(ctx, orderRef, details)
	if err != nil {
		var apiErr *midtrans.APIError
		if errors.As(err, &apiErr) {
			u.log.Warn("payment gateway error", zap.Int64("user_id", userID), zap.Error(err))
			return PaymentTokenOutput{}, NewHTTPError(http.StatusBadGateway, CodeProviderError, apiErr.Message)
		}
		u.log.Warn("payment gateway unavailable", zap.Int64("user_id", userID), zap.Error(err))
		return PaymentTokenOutput{}, NewHTTPError(http.StatusGatewayTimeout, CodeProviderUnavailable, "payment gateway unavailable")
	}

	return PaymentTokenOutput{
		Token:       tok.Token,
		RedirectURL: tok.RedirectURL,
		GrossAmount: gross,
	}, nil
}
