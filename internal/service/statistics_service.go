package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/repository"
)

const topMismatchOrders = 5

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.VerificationStatistics, error)
}

type statisticsService struct {
	repo repository.StatisticsRepository
}

func NewStatisticsService(repo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{repo: repo}
}

// auditOutcome is the subset of the verification audit details the dashboard reads.
type auditOutcome struct {
	Status     string `json:"status"`
	Mismatches int    `json:"mismatches"`
	Error      string `json:"error"`
}

// GetStatistics aggregates the verification audit trail into outcome counts
// per pattern and the orders with the most tax mismatches.
func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.VerificationStatistics, error) {
	stats := model.VerificationStatistics{
		ByPattern:          []model.PatternStatistics{},
		TopMismatchOrders:  []model.OrderRanking{},
		TimeRangeStartDate: startDate,
		TimeRangeEndDate:   endDate,
	}
	if endDate.Before(startDate) {
		return stats, fmt.Errorf("end_date must not be before start_date")
	}

	events, err := s.repo.ListVerificationEvents(ctx, startDate, endDate)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch verification statistics: %w", err)
	}

	patterns := map[string]*model.PatternStatistics{}
	orders := map[string]*model.OrderRanking{}

	for _, e := range events {
		stats.Total++

		var out auditOutcome
		if err := json.Unmarshal([]byte(e.Details), &out); err != nil || out.Error != "" {
			stats.Failed++
			continue
		}

		p, ok := patterns[e.EntityName]
		if !ok {
			p = &model.PatternStatistics{Pattern: e.EntityName}
			patterns[e.EntityName] = p
		}
		p.Verifications++

		if out.Status == StatusFindings {
			stats.WithFindings++
			p.WithFindings++
		} else {
			stats.Clean++
		}
		stats.TotalMismatches += out.Mismatches

		if e.EntityID == "" {
			continue
		}
		o, ok := orders[e.EntityID]
		if !ok {
			o = &model.OrderRanking{OrderID: e.EntityID}
			orders[e.EntityID] = o
		}
		o.Verifications++
		o.Mismatches += out.Mismatches
	}

	for _, p := range patterns {
		stats.ByPattern = append(stats.ByPattern, *p)
	}
	sort.Slice(stats.ByPattern, func(i, j int) bool {
		return stats.ByPattern[i].Pattern < stats.ByPattern[j].Pattern
	})

	for _, o := range orders {
		if o.Mismatches > 0 {
			stats.TopMismatchOrders = append(stats.TopMismatchOrders, *o)
		}
	}
	sort.Slice(stats.TopMismatchOrders, func(i, j int) bool {
		a, b := stats.TopMismatchOrders[i], stats.TopMismatchOrders[j]
		if a.Mismatches != b.Mismatches {
			return a.Mismatches > b.Mismatches
		}
		return a.OrderID < b.OrderID
	})
	if len(stats.TopMismatchOrders) > topMismatchOrders {
		stats.TopMismatchOrders = stats.TopMismatchOrders[:topMismatchOrders]
	}

	return stats, nil
}
