package model

import "github.com/shopspring/decimal"

// ReportPeriod bounds a report, formatted as RFC3339 timestamps.
type ReportPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type ReportSummary struct {
	TotalSales         decimal.Decimal `json:"total_sales"`
	NumTransactions    int64           `json:"num_transactions"`
	AverageTransaction decimal.Decimal `json:"average_transaction"`
}

type TopProduct struct {
	Name         string          `json:"name"`
	QuantitySold int64           `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

type DailySales struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
}

// ReportData is the document persisted as a report snapshot.
type ReportData struct {
	Period      ReportPeriod  `json:"period"`
	Summary     ReportSummary `json:"summary"`
	TopProducts []TopProduct  `json:"top_products"`
	DailySales  []DailySales  `json:"daily_sales"`
}
