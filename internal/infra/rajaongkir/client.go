package rajaongkir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"app/internal/shipping"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// プロバイダ呼び出しの上限。超えたら ErrUnavailable。
const ProviderTimeout = 15 * time.Second

const (
	defaultBaseURL = "https://rajaongkir.komerce.id/api/v1"

	costPath     = "/calculate/domestic-cost"
	trackPath    = "/track/waybill"
	districtPath = "/destination/domestic-destination"
)

var (
	//タイムアウト・疎通不可 => 502/504
	ErrUnavailable = errors.New("rajaongkir: provider unavailable")
)

// プロバイダが応答したがエラーを返した（非JSON含む）。
type APIError struct {
	HTTPStatus int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rajaongkir: provider error (%d): %s", e.HTTPStatus, e.Message)
}

// 配送オプション1件。
type RateOption struct {
	CourierName string `json:"courier_name"`
	CourierCode string `json:"courier_code"`
	ServiceName string `json:"service_name"`
	Description string `json:"description"`
	Cost        int64  `json:"cost"`
	Etd         string `json:"etd"`
	IsCod       bool   `json:"is_cod"`
}

type CostRequest struct {
	OriginID      int64
	DestinationID int64
	Weight        int64 //グラム
	ItemValue     int64
	Couriers      []shipping.CourierCode
}

type District struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// 追跡マニフェストの1行。
type ManifestEntry struct {
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	City        string `json:"city"`
}

// プロバイダ応答から抜き出した型付きの中間結果。
// スキーマが揃っていないため、ステータスは複数フィールドから拾う。
type TrackResult struct {
	Status   string          `json:"status"`
	PodDate  string          `json:"pod_date"`
	PodTime  string          `json:"pod_time"`
	Receiver string          `json:"receiver"`
	Manifest []ManifestEntry `json:"manifest"`
}

// Client はKomerce（RajaOngkir）API のクライアント。
// mainで生成してusecaseに注入する。
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(baseURL string, apiKey string, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: ProviderTimeout},
		log:     log,
	}
}

// ---- 共通レスポンス ----

type metaEnvelope struct {
	Meta struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
		Status  string `json:"status"`
	} `json:"meta"`
	Data json.RawMessage `json:"data"`
}

// ---- ongkirの取得 ----

type costRow struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Service     string `json:"service"`
	Description string `json:"description"`
	Cost        int64  `json:"cost"`
	Etd         string `json:"etd"`
	IsCod       bool   `json:"is_cod"`
}

// Cost は指定キャリアの配送オプションを取得する。
// キャリアごとに1リクエストなので、errgroupで並行に叩いて束ねる。
func (c *Client) Cost(ctx context.Context, req CostRequest) ([]RateOption, error) {
	if len(req.Couriers) == 0 {
		return []RateOption{}, nil
	}

	var mu sync.Mutex
	options := make([]RateOption, 0, len(req.Couriers)*2)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, courier := range req.Couriers {
		courier := courier
		g.Go(func() error {
			rows, err := c.costForCourier(gctx, req, courier)
			if err != nil {
				return err
			}

			mu.Lock()
			options = append(options, rows...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	//安い順
	sort.Slice(options, func(i, j int) bool { return options[i].Cost < options[j].Cost })
	return options, nil
}

func (c *Client) costForCourier(ctx context.Context, req CostRequest, courier shipping.CourierCode) ([]RateOption, error) {
	form := url.Values{}
	form.Set("origin", fmt.Sprintf("%d", req.OriginID))
	form.Set("destination", fmt.Sprintf("%d", req.DestinationID))
	form.Set("weight", fmt.Sprintf("%d", req.Weight))
	form.Set("item_value", fmt.Sprintf("%d", req.ItemValue))
	form.Set("courier", string(courier))

	raw, err := c.postForm(ctx, costPath, form)
	if err != nil {
		return nil, err
	}

	var rows []costRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &APIError{HTTPStatus: http.StatusOK, Message: "unexpected cost payload"}
	}

	out := make([]RateOption, 0, len(rows))
	for _, row := range rows {
		code := row.Code
		if code == "" {
			code = string(courier)
		}
		out = append(out, RateOption{
			CourierName: row.Name,
			CourierCode: strings.ToLower(code),
			ServiceName: row.Service,
			Description: row.Description,
			Cost:        row.Cost,
			Etd:         row.Etd,
			IsCod:       row.IsCod,
		})
	}
	return out, nil
}

// ---- 行政区検索 ----

type districtRow struct {
	ID              int64  `json:"id"`
	Label           string `json:"label"`
	SubdistrictName string `json:"subdistrict_name"`
	DistrictName    string `json:"district_name"`
	CityName        string `json:"city_name"`
	ProvinceName    string `json:"province_name"`
}

// SearchDistricts はキーワードで配送先の行政区を検索する。
func (c *Client) SearchDistricts(ctx context.Context, keyword string, limit int) ([]District, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	q := url.Values{}
	q.Set("search", keyword)
	q.Set("limit", fmt.Sprintf("%d", limit))

	raw, err := c.get(ctx, districtPath+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var rows []districtRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &APIError{HTTPStatus: http.StatusOK, Message: "unexpected district payload"}
	}

	out := make([]District, 0, len(rows))
	for _, row := range rows {
		label := row.Label
		if label == "" {
			parts := make([]string, 0, 4)
			for _, p := range []string{row.SubdistrictName, row.DistrictName, row.CityName, row.ProvinceName} {
				if p != "" {
					parts = append(parts, p)
				}
			}
			label = strings.Join(parts, ", ")
		}
		out = append(out, District{ID: row.ID, Label: label})
	}
	return out, nil
}

// ---- 追跡 ----

type trackPayload struct {
	//トップレベルにstatusが来るプロバイダもある
	Status string `json:"status"`

	Summary struct {
		Status string `json:"status"`
	} `json:"summary"`

	DeliveryStatus struct {
		Status   string `json:"status"`
		Receiver string `json:"pod_receiver"`
		PodDate  string `json:"pod_date"`
		PodTime  string `json:"pod_time"`
	} `json:"delivery_status"`

	Manifest []struct {
		Description string `json:"manifest_description"`
		Date        string `json:"manifest_date"`
		Time        string `json:"manifest_time"`
		City        string `json:"city_name"`
	} `json:"manifest"`
}

// TrackWaybill は送り状番号の追跡情報を取得する。
// ステータスは delivery_status → summary → トップレベル の順で拾う（無ければ空）。
func (c *Client) TrackWaybill(ctx context.Context, waybill string, courier shipping.CourierCode) (TrackResult, error) {
	form := url.Values{}
	form.Set("awb", waybill)
	form.Set("courier", string(courier))

	raw, err := c.postForm(ctx, trackPath, form)
	if err != nil {
		return TrackResult{}, err
	}

	var payload trackPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return TrackResult{}, &APIError{HTTPStatus: http.StatusOK, Message: "unexpected tracking payload"}
	}

	status := payload.DeliveryStatus.Status
	if status == "" {
		status = payload.Summary.Status
	}
	if status == "" {
		status = payload.Status
	}

	result := TrackResult{
		Status:   status,
		PodDate:  payload.DeliveryStatus.PodDate,
		PodTime:  payload.DeliveryStatus.PodTime,
		Receiver: payload.DeliveryStatus.Receiver,
		Manifest: make([]ManifestEntry, 0, len(payload.Manifest)),
	}
	for _, m := range payload.Manifest {
		result.Manifest = append(result.Manifest, ManifestEntry{
			Description: m.Description,
			Date:        m.Date,
			Time:        m.Time,
			City:        m.City,
		})
	}

	return result, nil
}

// ---- HTTP ----

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, ErrUnavailable
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("key", c.apiKey)

	return c.do(req)
}

func (c *Client) get(ctx context.Context, pathWithQuery string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathWithQuery, nil)
	if err != nil {
		return nil, ErrUnavailable
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("key", c.apiKey)

	return c.do(req)
}

// do はリクエストを実行し、メタ情報を検査してdata部分を返す。
// タイムアウト・疎通不可は ErrUnavailable、プロバイダ側のエラーは APIError。
func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("rajaongkir request failed", zap.String("url", req.URL.Path), zap.Error(err))
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	ctype := resp.Header.Get("Content-Type")
	if !strings.Contains(ctype, "application/json") {
		c.log.Warn("rajaongkir returned non-JSON",
			zap.String("url", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("content_type", ctype))

		msg := "non-JSON response from provider"
		if resp.StatusCode == http.StatusNotFound {
			msg = "waybill not found"
		}
		return nil, &APIError{HTTPStatus: resp.StatusCode, Message: msg}
	}

	var env metaEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &APIError{HTTPStatus: resp.StatusCode, Message: "failed to parse provider response"}
	}

	if resp.StatusCode >= 400 || env.Meta.Code >= 400 {
		msg := env.Meta.Message
		if msg == "" {
			msg = "provider request failed"
		}
		c.log.Warn("rajaongkir error response",
			zap.String("url", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.Int("meta_code", env.Meta.Code),
			zap.String("message", msg))
		return nil, &APIError{HTTPStatus: resp.StatusCode, Message: msg}
	}

	if len(env.Data) == 0 {
		return nil, &APIError{HTTPStatus: resp.StatusCode, Message: "empty data from provider"}
	}

	return env.Data, nil
}
