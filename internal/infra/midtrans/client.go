package midtrans

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	sandboxBaseURL    = "https://app.sandbox.midtrans.com/snap/v1"
	productionBaseURL = "https://app.midtrans.com/snap/v1"

	requestTimeout = 15 * time.Second
)

var (
	//疎通不可・タイムアウト
	ErrUnavailable = errors.New("midtrans: gateway unavailable")
)

// ゲートウェイが応答したが失敗を返した。
type APIError struct {
	HTTPStatus int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("midtrans: gateway error (%d): %s", e.HTTPStatus, e.Message)
}

// 決済対象の明細1行。
type ItemDetail struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

// Snapトークンの発行結果。
type SnapToken struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// Client はMidtrans Snapのクライアント。
// サーバーキーはここにだけ持ち、ハンドラへは出さない。
type Client struct {
	baseURL   string
	serverKey string
	http      *http.Client
	log       *zap.Logger
}

func NewClient(serverKey string, isProduction bool, log *zap.Logger) *Client {
	base := sandboxBaseURL
	if isProduction {
		base = productionBaseURL
	}
	return &Client{
		baseURL:   base,
		serverKey: serverKey,
		http:      &http.Client{Timeout: requestTimeout},
		log:       log,
	}
}

type snapRequest struct {
	TransactionDetails struct {
		OrderID     string `json:"order_id"`
		GrossAmount int64  `json:"gross_amount"`
	} `json:"transaction_details"`
	ItemDetails []ItemDetail `json:"item_details"`
}

// CreateToken は明細からSnapトークンを発行する。
// gross_amountは明細から再計算する（クライアントの合計は信用しない）。
func (c *Client) CreateToken(ctx context.Context, orderRef string, items []ItemDetail) (SnapToken, error) {
	var gross int64
	for _, it := range items {
		gross += it.Price * it.Quantity
	}

	var body snapRequest
	body.TransactionDetails.OrderID = orderRef
	body.TransactionDetails.GrossAmount = gross
	body.ItemDetails = items

	buf, err := json.Marshal(body)
	if err != nil {
		return SnapToken{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transactions", bytes.NewReader(buf))
	if err != nil {
		return SnapToken{}, ErrUnavailable
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.serverKey, "")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("midtrans request failed", zap.String("order_ref", orderRef), zap.Error(err))
		return SnapToken{}, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			ErrorMessages []string `json:"error_messages"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)

		msg := "payment gateway rejected the request"
		if len(apiErr.ErrorMessages) > 0 {
			msg = apiErr.ErrorMessages[0]
		}
		c.log.Warn("midtrans error response",
			zap.String("order_ref", orderRef),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg))
		return SnapToken{}, &APIError{HTTPStatus: resp.StatusCode, Message: msg}
	}

	var tok SnapToken
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return SnapToken{}, &APIError{HTTPStatus: resp.StatusCode, Message: "failed to parse gateway response"}
	}
	if tok.Token == "" {
		return SnapToken{}, &APIError{HTTPStatus: resp.StatusCode, Message: "empty token from gateway"}
	}

	return tok, nil
}
