package service

import (
	"context"
	"fmt"
	"math"

	"userSupplement/internal/dto"
	"userSupplement/repository"
)

type StatsService struct {
	stats repository.StatsRepositoryI
}

func NewStatsService(stats repository.StatsRepositoryI) *StatsService {
	return &StatsService{stats: stats}
}

// ComprehensiveStats returns totals, per-relation user counts and coverage
// percentages. Percentages are 0 when there are no users.
func (s *StatsService) ComprehensiveStats(ctx context.Context) (*dto.Stats, error) {
	c, err := s.stats.Coverage(ctx)
	if err != nil {
		return nil, fmt.Errorf("coverage: %w", err)
	}
	return &dto.Stats{
		TotalUsers:           c.TotalUsers,
		TotalAddresses:       c.TotalAddresses,
		TotalCreditCards:     c.TotalCreditCards,
		UsersWithAddresses:   c.UsersWithAddresses,
		UsersWithCreditCards: c.UsersWithCreditCards,
		UsersWithBoth:        c.UsersWithBoth,
		CoverageStats: dto.CoverageStats{
			AddressCoveragePercent:    percent(c.UsersWithAddresses, c.TotalUsers),
			CreditCardCoveragePercent: percent(c.UsersWithCreditCards, c.TotalUsers),
			FullCoveragePercent:       percent(c.UsersWithBoth, c.TotalUsers),
		},
	}, nil
}

// UserStats returns only the three table totals.
func (s *StatsService) UserStats(ctx context.Context) (*dto.UserStats, error) {
	c, err := s.stats.Coverage(ctx)
	if err != nil {
		return nil, fmt.Errorf("coverage: %w", err)
	}
	return &dto.UserStats{
		TotalUsers:       c.TotalUsers,
		TotalAddresses:   c.TotalAddresses,
		TotalCreditCards: c.TotalCreditCards,
	}, nil
}

// percent is part/total*100 rounded to two decimals.
func percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*100*100) / 100
}
