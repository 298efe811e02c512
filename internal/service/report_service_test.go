package service

import (
	"testing"
	"time"

	"posbackend/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backdate(t *testing.T, env *testEnv, sale SaleResponse, at time.Time) {
	t.Helper()
	require.NoError(t, env.db.Model(&model.Sale{}).Where("id = ?", sale.ID).Update("created_at", at.UTC()).Error)
}

func TestGenerateSalesReportEmpty(t *testing.T) {
	env := newTestEnv(t)
	end := time.Now()

	report, err := env.reports.GenerateSalesReport(env.ctx, end.AddDate(0, 0, -7), end)
	require.NoError(t, err)

	assert.True(t, report.Summary.TotalSales.IsZero())
	assert.Zero(t, report.Summary.NumTransactions)
	assert.True(t, report.Summary.AverageTransaction.IsZero())
	assert.Empty(t, report.TopProducts)
	assert.Empty(t, report.DailySales)
}

func TestGenerateSalesReportAggregates(t *testing.T) {
	env := newTestEnv(t)
	widget := env.createProduct(t, "Widget", "10.00", 100)
	gadget := env.createProduct(t, "Gadget", "3.00", 100)

	day1 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	// Inserted newest first so the report has to order the days itself.
	backdate(t, env, env.sell(t, line(gadget, 5)), day2.Add(3*time.Hour))
	backdate(t, env, env.sell(t, line(widget, 1), line(gadget, 1)), day2)
	backdate(t, env, env.sell(t, line(widget, 2)), day1)
	backdate(t, env, env.sell(t, line(widget, 9)), day1.AddDate(0, 0, -10))

	report, err := env.reports.GenerateSalesReport(env.ctx, day1.Add(-time.Hour), day2.Add(24*time.Hour))
	require.NoError(t, err)

	// 15 + 13 + 20
	assert.Equal(t, "48.00", report.Summary.TotalSales.StringFixed(2))
	assert.EqualValues(t, 3, report.Summary.NumTransactions)
	assert.Equal(t, "16.00", report.Summary.AverageTransaction.StringFixed(2))

	require.Len(t, report.TopProducts, 2)
	assert.Equal(t, "Gadget", report.TopProducts[0].Name)
	assert.EqualValues(t, 6, report.TopProducts[0].QuantitySold)
	assert.Equal(t, "18.00", report.TopProducts[0].Revenue.StringFixed(2))
	assert.Equal(t, "Widget", report.TopProducts[1].Name)
	assert.EqualValues(t, 3, report.TopProducts[1].QuantitySold)
	assert.Equal(t, "30.00", report.TopProducts[1].Revenue.StringFixed(2))

	require.Len(t, report.DailySales, 2)
	assert.Equal(t, "2024-05-01", report.DailySales[0].Date)
	assert.Equal(t, "20.00", report.DailySales[0].Total.StringFixed(2))
	assert.Equal(t, "2024-05-02", report.DailySales[1].Date)
	assert.Equal(t, "28.00", report.DailySales[1].Total.StringFixed(2))
}

func TestGenerateSalesReportSumsExactly(t *testing.T) {
	env := newTestEnv(t)
	dime := env.createProduct(t, "Dime", "0.10", 100)
	twenty := env.createProduct(t, "Twenty", "0.20", 100)

	env.sell(t, line(dime, 1))
	env.sell(t, line(twenty, 1))
	env.sell(t, line(dime, 2))

	now := time.Now()
	report, err := env.reports.GenerateSalesReport(env.ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, "0.5", report.Summary.TotalSales.String())
	daily := decimal.Zero
	for _, d := range report.DailySales {
		daily = daily.Add(d.Total)
	}
	assert.True(t, daily.Equal(report.Summary.TotalSales), daily.String())

	require.Len(t, report.TopProducts, 2)
	assert.Equal(t, "Dime", report.TopProducts[0].Name)
	assert.EqualValues(t, 3, report.TopProducts[0].QuantitySold)
	assert.Equal(t, "0.3", report.TopProducts[0].Revenue.String())
	assert.Equal(t, "0.2", report.TopProducts[1].Revenue.String())
}

func TestAverageTransactionIsNotRounded(t *testing.T) {
	env := newTestEnv(t)
	for _, price := range []string{"1.00", "2.00", "7.00"} {
		env.sell(t, line(env.createProduct(t, "P"+price, price, 10), 1))
	}

	now := time.Now()
	report, err := env.reports.GenerateSalesReport(env.ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, "10", report.Summary.TotalSales.String())
	assert.EqualValues(t, 3, report.Summary.NumTransactions)
	assert.Equal(t, "3.3333333333333333", report.Summary.AverageTransaction.String())
}

func TestGenerateSalesReportBoundsAreInclusive(t *testing.T) {
	env := newTestEnv(t)
	widget := env.createProduct(t, "Widget", "10.00", 100)

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC)
	backdate(t, env, env.sell(t, line(widget, 1)), start)
	backdate(t, env, env.sell(t, line(widget, 1)), end)
	backdate(t, env, env.sell(t, line(widget, 1)), end.Add(time.Second))

	report, err := env.reports.GenerateSalesReport(env.ctx, start, end)
	require.NoError(t, err)
	assert.EqualValues(t, 2, report.Summary.NumTransactions)

	_, err = env.reports.GenerateSalesReport(env.ctx, end, start)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestTopProductsLimitedToTen(t *testing.T) {
	env := newTestEnv(t)
	lines := make([]SaleItemRequest, 0, 12)
	for i := 0; i < 12; i++ {
		p := env.createProduct(t, string(rune('A'+i)), "1.00", 100)
		lines = append(lines, line(p, i+1))
	}
	env.sell(t, lines...)

	now := time.Now()
	report, err := env.reports.GenerateSalesReport(env.ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, report.TopProducts, 10)
	assert.Equal(t, "L", report.TopProducts[0].Name)
	assert.EqualValues(t, 12, report.TopProducts[0].QuantitySold)
}

func TestWeeklyReportPersistsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	at := time.Now().UTC()
	env.reports.now = func() time.Time { return at }

	_, err := env.reports.GenerateWeeklyReport(env.ctx)
	require.NoError(t, err)

	keys, err := env.store.List(env.ctx, "weekly_sales_weekly_")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "weekly_sales_weekly_"+at.Format("20060102_150405")+".json", keys[0])
}

func TestGetLatestReportReturnsNewestSnapshot(t *testing.T) {
	env := newTestEnv(t)
	widget := env.createProduct(t, "Widget", "10.00", 100)

	at := time.Now().UTC()
	env.reports.now = func() time.Time { return at }
	first, err := env.reports.GenerateWeeklyReport(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, first.Summary.NumTransactions)

	env.sell(t, line(widget, 2))
	env.reports.now = func() time.Time { return at.Add(time.Minute) }
	second, err := env.reports.GenerateWeeklyReport(env.ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, second.Summary.NumTransactions)

	latest, err := env.reports.GetLatestReport(env.ctx, ReportTypeWeekly, PeriodWeekly)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.Period, latest.Period)
	assert.EqualValues(t, 1, latest.Summary.NumTransactions)
	assert.Equal(t, "20.00", latest.Summary.TotalSales.StringFixed(2))

	// Monthly snapshots are kept apart from weekly ones.
	monthly, err := env.reports.GetLatestReport(env.ctx, ReportTypeMonthly, PeriodMonthly)
	require.NoError(t, err)
	assert.Nil(t, monthly)
}

func TestPeriodicReportNeverReplacesSnapshot(t *testing.T) {
	env := newTestEnv(t)
	widget := env.createProduct(t, "Widget", "10.00", 100)

	at := time.Now().UTC()
	env.reports.now = func() time.Time { return at }
	_, err := env.reports.GenerateWeeklyReport(env.ctx)
	require.NoError(t, err)

	env.sell(t, line(widget, 1))
	_, err = env.reports.GenerateWeeklyReport(env.ctx)
	assert.Equal(t, KindConflict, KindOf(err))

	latest, err := env.reports.GetLatestReport(env.ctx, ReportTypeWeekly, PeriodWeekly)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Zero(t, latest.Summary.NumTransactions)
}

func TestGetLatestReportIgnoresLongerNames(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Put(env.ctx, "weekly_sales_weekly_extra_20991231_235959.json", []byte(`{}`)))

	latest, err := env.reports.GetLatestReport(env.ctx, ReportTypeWeekly, PeriodWeekly)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestGetLatestReportRejectsBadNames(t *testing.T) {
	env := newTestEnv(t)
	for _, name := range []string{"../etc", "Weekly", "weekly sales", ""} {
		_, err := env.reports.GetLatestReport(env.ctx, name, PeriodWeekly)
		assert.Equal(t, KindValidation, KindOf(err), name)
	}
}

func TestMonthlyReportCoversThirtyDays(t *testing.T) {
	env := newTestEnv(t)
	widget := env.createProduct(t, "Widget", "10.00", 100)
	now := time.Now().UTC()
	env.reports.now = func() time.Time { return now.Add(time.Second) }

	backdate(t, env, env.sell(t, line(widget, 1)), now.AddDate(0, 0, -20))
	backdate(t, env, env.sell(t, line(widget, 1)), now.AddDate(0, 0, -40))

	monthly, err := env.reports.GenerateMonthlyReport(env.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, monthly.Summary.NumTransactions)

	weekly, err := env.reports.GenerateWeeklyReport(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, weekly.Summary.NumTransactions)

	latest, err := env.reports.GetLatestReport(env.ctx, ReportTypeMonthly, PeriodMonthly)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.EqualValues(t, 1, latest.Summary.NumTransactions)
}
