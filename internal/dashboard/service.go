package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/papelisco/storefront/pkg/enums"
	pkgerrors "github.com/papelisco/storefront/pkg/errors"
	"github.com/papelisco/storefront/pkg/pricing"
)

const (
	recentOrdersLimit = 10
	topProductsLimit  = 5
	salesWindowDays   = 7
	dayLayout         = "2006-01-02"
)

type Service interface {
	Summary(ctx context.Context) (*Summary, error)
}

type service struct {
	repo *Repository
	now  func() time.Time
}

func NewService(repo *Repository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dashboard repository required")
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: repo, now: now}, nil
}

// Summary runs every aggregate concurrently and fails if any of them fails.
func (s *service) Summary(ctx context.Context) (*Summary, error) {
	var (
		out    Summary
		sales  int64
		points []orderPoint
		top    []productRevenue
	)
	today := startOfDay(s.now())
	windowStart := today.AddDate(0, 0, -(salesWindowDays - 1))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sales, err = s.repo.DeliveredSales(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.TotalOrders, err = s.repo.CountOrders(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.TotalCustomers, err = s.repo.CountCustomers(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.TotalProducts, err = s.repo.CountProducts(gctx)
		return err
	})
	g.Go(func() error {
		rows, err := s.repo.RecentOrders(gctx, recentOrdersLimit)
		if err != nil {
			return err
		}
		out.RecentOrders = make([]RecentOrder, 0, len(rows))
		for _, o := range rows {
			recent := RecentOrder{
				ID:          o.ID,
				OrderNumber: o.OrderNumber,
				Total:       pricing.Cents(o.TotalCents),
				Status:      o.Status,
				Date:        o.CreatedAt,
			}
			if o.User != nil {
				recent.Customer = strings.TrimSpace(o.User.FirstName + " " + o.User.LastName)
				recent.CustomerEmail = o.User.Email
			}
			out.RecentOrders = append(out.RecentOrders, recent)
		}
		return nil
	})
	g.Go(func() (err error) {
		points, err = s.repo.OrdersSince(gctx, windowStart)
		return err
	})
	g.Go(func() (err error) {
		top, err = s.repo.TopProducts(gctx, topProductsLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load dashboard")
	}

	out.TotalSales = pricing.Cents(sales)
	out.SalesData = bucketByDay(points, windowStart, salesWindowDays)
	out.TopProducts = make([]TopProduct, 0, len(top))
	for _, p := range top {
		out.TopProducts = append(out.TopProducts, TopProduct{
			ID:      p.ProductID,
			Name:    p.Name,
			Sales:   p.Quantity,
			Revenue: pricing.Cents(p.Revenue),
		})
	}
	return &out, nil
}

// bucketByDay emits one row per UTC day starting at start, including empty days.
// Sales count delivered orders only; the order count includes every status.
func bucketByDay(points []orderPoint, start time.Time, days int) []DailySales {
	out := make([]DailySales, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format(dayLayout)
		out[i] = DailySales{Date: day}
		index[day] = i
	}
	for _, p := range points {
		i, ok := index[p.CreatedAt.UTC().Format(dayLayout)]
		if !ok {
			continue
		}
		out[i].Orders++
		if p.Status == enums.OrderStatusDelivered {
			out[i].Sales += pricing.Cents(p.TotalCents)
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
