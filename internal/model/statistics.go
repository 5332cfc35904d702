package model

import (
	"time"
)

// VerificationStatistics aggregates verification outcomes over a time range
type VerificationStatistics struct {
	Total              int                 `json:"total"`
	Clean              int                 `json:"clean"`
	WithFindings       int                 `json:"with_findings"`
	Failed             int                 `json:"failed"`
	TotalMismatches    int                 `json:"total_mismatches"`
	ByPattern          []PatternStatistics `json:"by_pattern"`
	TopMismatchOrders  []OrderRanking      `json:"top_mismatch_orders"`
	TimeRangeStartDate time.Time           `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time           `json:"time_range_end_date"`
}

// PatternStatistics counts verifications per discount pattern
type PatternStatistics struct {
	Pattern       string `json:"pattern"`
	Verifications int    `json:"verifications"`
	WithFindings  int    `json:"with_findings"`
}

// OrderRanking represents an order ranked by accumulated tax mismatches
type OrderRanking struct {
	OrderID       string `json:"order_id"`
	Verifications int    `json:"verifications"`
	Mismatches    int    `json:"mismatches"`
}
