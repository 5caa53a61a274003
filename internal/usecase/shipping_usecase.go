package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"app/internal/infra/rajaongkir"
	"app/internal/shipping"

	"go.uber.org/zap"
)

// RateProvider は配送料見積りと行政区検索の外部API。実体は rajaongkir.Client。
type RateProvider interface {
	Cost(ctx context.Context, req rajaongkir.CostRequest) ([]rajaongkir.RateOption, error)
	SearchDistricts(ctx context.Context, keyword string, limit int) ([]rajaongkir.District, error)
}

// 店舗発送元の行政区ID。環境変数で差し替える。
type ShippingUsecase struct {
	provider RateProvider
	originID int64
	log      *zap.Logger
}

func NewShippingUsecase(provider RateProvider, originID int64, log *zap.Logger) *ShippingUsecase {
	return &ShippingUsecase{provider: provider, originID: originID, log: log}
}

type RateQuoteInput struct {
	DestinationID int64
	Weight        int64 //グラム
	ItemValue     int64
	Couriers      []string
}

// GetRates は指定キャリア（省略時は全キャリア）の配送料を安い順で返す。
func (u *ShippingUsecase) GetRates(ctx context.Context, in RateQuoteInput) ([]rajaongkir.RateOption, error) {
	if in.DestinationID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "destination is required")
	}
	if in.Weight <= 0 {
		// 梱包込みの最低重量
		in.Weight = 500
	}

	couriers := make([]shipping.CourierCode, 0, len(in.Couriers))
	if len(in.Couriers) == 0 {
		couriers = append(couriers, shipping.CourierCodes...)
	} else {
		for _, raw := range in.Couriers {
			code, ok := shipping.NormalizeCourier(raw)
			if !ok {
				return nil, NewHTTPError(http.StatusBadRequest, CodeInvalidInput,
					fmt.Sprintf("unknown courier %q", raw))
			}
			couriers = append(couriers, code)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, rajaongkir.ProviderTimeout)
	defer cancel()

	options, err := u.provider.Cost(ctx, rajaongkir.CostRequest{
		OriginID:      u.originID,
		DestinationID: in.DestinationID,
		Weight:        in.Weight,
		ItemValue:     in.ItemValue,
		Couriers:      couriers,
	})
	if err != nil {
		return nil, translateProviderError(u.log, "rate quote", err)
	}
	return options, nil
}

func (u *ShippingUsecase) SearchDistricts(ctx context.Context, keyword string, limit int) ([]rajaongkir.District, error) {
	keyword = strings.TrimSpace(keyword)
	if len(keyword) < 3 {
		return nil, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "keyword must be at least 3 characters")
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(ctx, rajaongkir.ProviderTimeout)
	defer cancel()

	ds, err := u.provider.SearchDistricts(ctx, keyword, limit)
	if err != nil {
		return nil, translateProviderError(u.log, "district search", err)
	}
	return ds, nil
}

// 外部API失敗をHTTPエラーへ変換する。疎通不可は504、先方エラーは502。
func translateProviderError(log *zap.Logger, op string, err error) error {
	var apiErr *rajaongkir.APIError
	if errors.As(err, &apiErr) {
		log.Warn("shipping provider error", zap.String("op", op), zap.Error(err))
		return NewHTTPError(http.StatusBadGateway, CodeProviderError, apiErr.Message)
	}
	log.Warn("shipping provider unavailable", zap.String("op", op), zap.Error(err))
	return NewHTTPError(http.StatusGatewayTimeout, CodeProviderUnavailable, "shipping provider unavailable")
}
