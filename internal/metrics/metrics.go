// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pos_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	SalesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_created_total",
		Help: "Sales committed.",
	})

	SalesRevenue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_revenue_total",
		Help: "Sum of committed sale totals.",
	})

	SalesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_deleted_total",
		Help: "Sales deleted with their stock restored.",
	})

	StockRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_stock_rejections_total",
		Help: "Sale attempts rejected for insufficient stock.",
	})

	InvoicesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_invoices_created_total",
		Help: "Invoices committed.",
	})

	InvoiceNumberRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_invoice_number_retries_total",
		Help: "Invoice creations retried after an invoice number collision.",
	})

	ReportsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_reports_generated_total",
		Help: "Report snapshots generated by period.",
	}, []string{"period"})
)
