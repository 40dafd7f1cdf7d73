// Package leaderboard ranks every remote ledger record by monthly league
// score or lifetime total.
package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/aura-network/aura/internal/domain"
)

// Service builds leaderboards from the shared record store.
type Service struct {
	records domain.RecordLister
	clock   domain.Clock
	log     *zap.Logger
}

// New creates a leaderboard service.
func New(records domain.RecordLister, clock domain.Clock, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{records: records, clock: clock, log: log.Named("leaderboard")}
}

// ParseType maps a query value to a board type; "" means monthly.
func ParseType(s string) (domain.LeaderboardType, error) {
	switch domain.LeaderboardType(s) {
	case "", domain.LeaderboardMonthly:
		return domain.LeaderboardMonthly, nil
	case domain.LeaderboardAllTime:
		return domain.LeaderboardAllTime, nil
	}
	return "", fmt.Errorf("unknown leaderboard %q", s)
}

// Board ranks all users, then keeps those whose id contains filter
// (case-insensitive). Ranks are positions on the full board; ties share
// order by user id. limit <= 0 means no limit.
func (s *Service) Board(ctx context.Context, typ domain.LeaderboardType, filter string, limit int) ([]domain.LeaderboardEntry, error) {
	recs, err := s.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	today := s.clock.Today()
	month := s.clock.Month()

	entries := make([]domain.LeaderboardEntry, 0, len(recs))
	for _, rec := range recs {
		st := domain.NewLedgerState("")
		if _, err := st.MergeFields(rec.Fields); err != nil {
			s.log.Warn("skip unreadable record", zap.String("user", rec.UserID), zap.Error(err))
			continue
		}
		e := domain.LeaderboardEntry{
			UserID:        rec.UserID,
			TotalPoints:   st.TotalPoints,
			MonthlyPoints: st.RankedMonthly(month),
			StreakLength:  st.EffectiveStreak(today),
		}
		e.Score = e.MonthlyPoints
		if typ == domain.LeaderboardAllTime {
			e.Score = e.TotalPoints
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	if filter != "" {
		needle := strings.ToLower(filter)
		kept := entries[:0]
		for _, e := range entries {
			if strings.Contains(strings.ToLower(e.UserID), needle) {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
