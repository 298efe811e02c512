package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"posbackend/internal/metrics"
	"posbackend/internal/model"
	"posbackend/internal/reportstore"
	"posbackend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	ReportTypeWeekly  = "weekly_sales"
	ReportTypeMonthly = "monthly_sales"
	PeriodWeekly      = "weekly"
	PeriodMonthly     = "monthly"

	topProductsLimit   = 10
	snapshotTimeLayout = "20060102_150405"
	dailyDateLayout    = "2006-01-02"
)

var reportNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// ReportService aggregates sales over time windows and keeps immutable snapshots of the
// periodic reports.
type ReportService interface {
	GenerateSalesReport(ctx context.Context, start, end time.Time) (*model.ReportData, error)
	GenerateWeeklyReport(ctx context.Context) (*model.ReportData, error)
	GenerateMonthlyReport(ctx context.Context) (*model.ReportData, error)
	// GetLatestReport returns nil, nil when no snapshot exists for the pair.
	GetLatestReport(ctx context.Context, reportType, period string) (*model.ReportData, error)
}

type reportService struct {
	repo  repository.ReportRepository
	store reportstore.Store
	now   func() time.Time
}

func NewReportService(repo repository.ReportRepository, store reportstore.Store) ReportService {
	return &reportService{repo: repo, store: store, now: time.Now}
}

func (s *reportService) GenerateSalesReport(ctx context.Context, start, end time.Time) (*model.ReportData, error) {
	if end.Before(start) {
		return nil, Validation("end_date must not be before start_date")
	}

	totals, err := s.repo.SaleTotals(ctx, start, end)
	if err != nil {
		return nil, fail("daily sales", err)
	}
	lines, err := s.repo.SoldLines(ctx, start, end)
	if err != nil {
		return nil, fail("top products", err)
	}

	total := decimal.Zero
	for _, t := range totals {
		total = total.Add(t.TotalAmount)
	}
	count := int64(len(totals))
	average := decimal.Zero
	if count > 0 {
		average = total.Div(decimal.NewFromInt(count))
	}

	return &model.ReportData{
		Period: model.ReportPeriod{
			Start: start.UTC().Format(time.RFC3339),
			End:   end.UTC().Format(time.RFC3339),
		},
		Summary: model.ReportSummary{
			TotalSales:         total,
			NumTransactions:    count,
			AverageTransaction: average,
		},
		TopProducts: rankProducts(lines, topProductsLimit),
		DailySales:  bucketDaily(totals),
	}, nil
}

// rankProducts folds sold lines per product and orders by quantity, then name.
func rankProducts(lines []repository.SoldLine, limit int) []model.TopProduct {
	index := make(map[uuid.UUID]int)
	ranked := make([]model.TopProduct, 0)
	for _, l := range lines {
		revenue := l.Price.Mul(decimal.NewFromInt(l.Quantity))
		if i, ok := index[l.ProductID]; ok {
			ranked[i].QuantitySold += l.Quantity
			ranked[i].Revenue = ranked[i].Revenue.Add(revenue)
			continue
		}
		index[l.ProductID] = len(ranked)
		ranked = append(ranked, model.TopProduct{Name: l.Name, QuantitySold: l.Quantity, Revenue: revenue})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].QuantitySold != ranked[j].QuantitySold {
			return ranked[i].QuantitySold > ranked[j].QuantitySold
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// bucketDaily sums totals per UTC calendar date. Input is ordered by created_at, so the
// output is chronological.
func bucketDaily(totals []repository.SaleTotal) []model.DailySales {
	daily := make([]model.DailySales, 0)
	for _, t := range totals {
		date := t.CreatedAt.UTC().Format(dailyDateLayout)
		if n := len(daily); n > 0 && daily[n-1].Date == date {
			daily[n-1].Total = daily[n-1].Total.Add(t.TotalAmount)
			continue
		}
		daily = append(daily, model.DailySales{Date: date, Total: t.TotalAmount})
	}
	return daily
}

func (s *reportService) GenerateWeeklyReport(ctx context.Context) (*model.ReportData, error) {
	return s.generatePeriodic(ctx, ReportTypeWeekly, PeriodWeekly, 7)
}

func (s *reportService) GenerateMonthlyReport(ctx context.Context) (*model.ReportData, error) {
	return s.generatePeriodic(ctx, ReportTypeMonthly, PeriodMonthly, 30)
}

func (s *reportService) generatePeriodic(ctx context.Context, reportType, period string, days int) (*model.ReportData, error) {
	now := s.now().UTC()
	data, err := s.GenerateSalesReport(ctx, now.AddDate(0, 0, -days), now)
	if err != nil {
		return nil, err
	}

	blob, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fail("encode report", err)
	}
	key := snapshotKey(reportType, period, now)
	if err := s.store.Put(ctx, key, blob); err != nil {
		if errors.Is(err, reportstore.ErrExists) {
			return nil, Conflict("a %s report was already saved at %s; retry in a second", period, now.Format(time.RFC3339))
		}
		return nil, fail("save report", err)
	}

	metrics.ReportsGenerated.WithLabelValues(period).Inc()
	logrus.WithFields(logrus.Fields{
		"key":          key,
		"transactions": data.Summary.NumTransactions,
	}).Info("Report snapshot saved")
	return data, nil
}

func snapshotKey(reportType, period string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s.json", reportType, period, at.Format(snapshotTimeLayout))
}

func (s *reportService) GetLatestReport(ctx context.Context, reportType, period string) (*model.ReportData, error) {
	if !reportNamePattern.MatchString(reportType) || !reportNamePattern.MatchString(period) {
		return nil, Validation("report type and period may only contain lowercase letters, digits and underscores")
	}

	prefix := reportType + "_" + period + "_"
	keys, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, fail("list reports", err)
	}

	// A bare prefix match would also pick up longer names such as "<type>_<period>_extra_...".
	exact := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `\d{8}_\d{6}\.json$`)
	for _, key := range keys {
		if !exact.MatchString(key) {
			continue
		}
		blob, err := s.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, reportstore.ErrNotFound) {
				continue
			}
			return nil, fail("read report", err)
		}
		var data model.ReportData
		if err := json.Unmarshal(blob, &data); err != nil {
			return nil, fail("decode report", err)
		}
		return &data, nil
	}
	return nil, nil
}
