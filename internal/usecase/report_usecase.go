package usecase

import (
	"context"
	"net/http"
	"sort"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// ReportUsecase は管理ダッシュボードの売上集計。
type ReportUsecase struct {
	orderRepo     repo.OrderRepository
	orderItemRepo repo.OrderItemRepository
}

func NewReportUsecase(orderRepo repo.OrderRepository, orderItemRepo repo.OrderItemRepository) *ReportUsecase {
	return &ReportUsecase{orderRepo: orderRepo, orderItemRepo: orderItemRepo}
}

type SalesReportInput struct {
	From             time.Time
	To               time.Time
	GroupBy          string // day / month / year
	TopN             int
	IncludeCancelled bool
}

type SalesPoint struct {
	Period  string `json:"period"`
	Orders  int64  `json:"orders"`
	Revenue int64  `json:"revenue"`
}

type TopProduct struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	Revenue   int64  `json:"revenue"`
}

type SalesReportOutput struct {
	From            time.Time        `json:"from"`
	To              time.Time        `json:"to"`
	GroupBy         string           `json:"group_by"`
	TotalOrders     int64            `json:"total_orders"`
	TotalRevenue    int64            `json:"total_revenue"`
	UniqueCustomers int64            `json:"unique_customers"`
	AvgOrderValue   int64            `json:"avg_order_value"`
	ByStatus        map[string]int64 `json:"by_status"`
	Series          []SalesPoint     `json:"series"`
	TopProducts     []TopProduct     `json:"top_products"`
}

func (u *ReportUsecase) SalesReport(ctx context.Context, in SalesReportInput) (SalesReportOutput, error) {
	if in.From.IsZero() || in.To.IsZero() || in.To.Before(in.From) {
		return SalesReportOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid date range")
	}
	switch in.GroupBy {
	case "":
		in.GroupBy = "day"
	case "day", "month", "year":
	default:
		return SalesReportOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid group_by")
	}
	if in.TopN <= 0 || in.TopN > 50 {
		in.TopN = 5
	}

	orders, err := u.orderRepo.ListCreatedBetween(ctx, in.From, in.To, in.IncludeCancelled)
	if err != nil {
		return SalesReportOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	out := SalesReportOutput{
		From:     in.From,
		To:       in.To,
		GroupBy:  in.GroupBy,
		ByStatus: map[string]int64{},
	}

	seriesByKey := map[string]*SalesPoint{}
	customers := map[int64]struct{}{}
	orderIDs := make([]string, 0, len(orders))
	revenueCounted := int64(0)

	for _, o := range orders {
		out.ByStatus[string(o.Status)]++
		orderIDs = append(orderIDs, o.ID)

		// キャンセル分は件数だけ数え、売上には入れない
		if o.Status == model.OrderStatusCancelled {
			continue
		}
		out.TotalOrders++
		out.TotalRevenue += o.TotalAmount
		revenueCounted++
		customers[o.UserID] = struct{}{}

		key := periodKey(o.CreatedAt, in.GroupBy)
		p, ok := seriesByKey[key]
		if !ok {
			p = &SalesPoint{Period: key}
			seriesByKey[key] = p
		}
		p.Orders++
		p.Revenue += o.TotalAmount
	}

	out.UniqueCustomers = int64(len(customers))
	if revenueCounted > 0 {
		out.AvgOrderValue = out.TotalRevenue / revenueCounted
	}

	out.Series = make([]SalesPoint, 0, len(seriesByKey))
	for _, p := range seriesByKey {
		out.Series = append(out.Series, *p)
	}
	sort.Slice(out.Series, func(i, j int) bool { return out.Series[i].Period < out.Series[j].Period })

	top, err := u.topProducts(ctx, orders, orderIDs, in.TopN)
	if err != nil {
		return SalesReportOutput{}, err
	}
	out.TopProducts = top

	return out, nil
}

func (u *ReportUsecase) topProducts(ctx context.Context, orders []model.Order, orderIDs []string, topN int) ([]TopProduct, error) {
	if len(orderIDs) == 0 {
		return []TopProduct{}, nil
	}

	// キャンセル済み注文の明細は除外する
	cancelled := map[string]bool{}
	for _, o := range orders {
		if o.Status == model.OrderStatusCancelled {
			cancelled[o.ID] = true
		}
	}

	items, err := u.orderItemRepo.ListByOrderIDs(ctx, orderIDs)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	byProduct := map[int64]*TopProduct{}
	for _, it := range items {
		if cancelled[it.OrderID] {
			continue
		}
		tp, ok := byProduct[it.ProductID]
		if !ok {
			tp = &TopProduct{ProductID: it.ProductID, Name: it.ProductNameSnapshot}
			byProduct[it.ProductID] = tp
		}
		tp.Quantity += it.Quantity
		tp.Revenue += it.Price * it.Quantity
	}

	tops := make([]TopProduct, 0, len(byProduct))
	for _, tp := range byProduct {
		tops = append(tops, *tp)
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Quantity != tops[j].Quantity {
			return tops[i].Quantity > tops[j].Quantity
		}
		return tops[i].Revenue > tops[j].Revenue
	})
	if len(tops) > topN {
		tops = tops[:topN]
	}
	return tops, nil
}

func periodKey(t time.Time, groupBy string) string {
	switch groupBy {
	case "year":
		return t.Format("2006")
	case "month":
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}
