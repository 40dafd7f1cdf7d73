// Package shop sells catalog items for points. Purchases are applied to the
// buyer's ledger as a single operation.
package shop

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aura-network/aura/internal/app/ledger"
	"github.com/aura-network/aura/internal/domain"
	"github.com/aura-network/aura/internal/infra/observability"
)

// DefaultCatalog returns the stock items.
func DefaultCatalog() []domain.ShopItem {
	return []domain.ShopItem{
		{ID: "badge_crown", Name: "Crown Badge", Kind: domain.ItemBadge, Cost: 1000, Icon: "crown", Description: "Profile badge for top performers"},
		{ID: "badge_star", Name: "Star Badge", Kind: domain.ItemBadge, Cost: 500, Icon: "star", Description: "A mark of consistency"},
		{ID: "badge_fire", Name: "Fire Badge", Kind: domain.ItemBadge, Cost: 300, Icon: "flame", Description: "For those on a hot streak"},
		{ID: "badge_zap", Name: "Zap Badge", Kind: domain.ItemBadge, Cost: 250, Icon: "zap", Description: "Speed and energy"},
		{ID: domain.ItemStreakFreeze, Name: "Streak Freeze", Kind: domain.ItemConsumable, Cost: 400, Icon: "snowflake", Description: "Covers missed days once"},
		{ID: domain.ItemRestoreStreak, Name: "Restore Streak", Kind: domain.ItemConsumable, Cost: 500, Icon: "history", Description: "Repair a broken streak now"},
		{ID: "theme_emerald", Name: "Emerald Theme", Kind: domain.ItemBadge, Cost: 2000, Icon: "palette", Description: "Unlock the emerald color theme"},
	}
}

// Validate checks item ids are unique, costs positive and kinds known.
func Validate(items []domain.ShopItem) error {
	seen := make(map[string]bool, len(items))
	for i, it := range items {
		if it.ID == "" {
			return fmt.Errorf("shop item %d: id required", i)
		}
		if seen[it.ID] {
			return fmt.Errorf("shop item %s: duplicate id", it.ID)
		}
		seen[it.ID] = true
		if it.Cost <= 0 {
			return fmt.Errorf("shop item %s: cost must be positive", it.ID)
		}
		if it.Kind != domain.ItemBadge && it.Kind != domain.ItemConsumable {
			return fmt.Errorf("shop item %s: unknown kind %q", it.ID, it.Kind)
		}
	}
	return nil
}

// Engines resolves a user's ledger.
type Engines interface {
	Get(ctx context.Context, userID string) (*ledger.Engine, error)
}

// Service is the shop.
type Service struct {
	engines Engines
	items   []domain.ShopItem
	log     *zap.Logger
}

// New creates a shop over a validated catalog.
func New(engines Engines, items []domain.ShopItem, log *zap.Logger) (*Service, error) {
	if err := Validate(items); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{engines: engines, items: items, log: log.Named("shop")}, nil
}

// Offer is a catalog item as seen by one user.
type Offer struct {
	domain.ShopItem
	Owned      int  `json:"owned"`
	Affordable bool `json:"affordable"`
	Available  bool `json:"available"` // false for owned badges or an intact streak
}

// Listing returns the catalog annotated for userID. With no user it returns
// the bare catalog.
func (s *Service) Listing(ctx context.Context, userID string) ([]Offer, error) {
	offers := make([]Offer, 0, len(s.items))
	if userID == "" {
		for _, it := range s.items {
			offers = append(offers, Offer{ShopItem: it, Available: true})
		}
		return offers, nil
	}

	e, err := s.engines.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	st := e.State()
	canRestore := e.CanRestoreStreak()

	for _, it := range s.items {
		o := Offer{
			ShopItem:   it,
			Owned:      st.Inventory.Count(it.ID),
			Affordable: st.TotalPoints >= it.Cost,
			Available:  true,
		}
		switch {
		case it.ID == domain.ItemRestoreStreak:
			o.Available = canRestore
		case it.Kind == domain.ItemBadge && o.Owned > 0:
			o.Available = false
		}
		offers = append(offers, o)
	}
	return offers, nil
}

// Receipt confirms a purchase.
type Receipt struct {
	UserID    string            `json:"user_id"`
	Item      domain.ShopItem   `json:"item"`
	Remaining int64             `json:"remaining_points"`
	Ledger    domain.LedgerView `json:"ledger"`
}

// Buy purchases itemID for userID.
func (s *Service) Buy(ctx context.Context, userID, itemID string) (Receipt, error) {
	item, ok := s.item(itemID)
	if !ok {
		return Receipt{}, domain.ErrUnknownItem
	}
	e, err := s.engines.Get(ctx, userID)
	if err != nil {
		return Receipt{}, err
	}

	err = e.Buy(ctx, ledger.Purchase{
		ItemID:    item.ID,
		Cost:      item.Cost,
		Reason:    "Shop: " + item.Name,
		Permanent: item.Kind == domain.ItemBadge,
	})
	if err != nil {
		s.log.Debug("purchase rejected", zap.String("user", userID), zap.String("item", itemID), zap.Error(err))
		return Receipt{}, err
	}

	observability.ShopPurchases.WithLabelValues(item.ID).Inc()
	s.log.Info("purchase", zap.String("user", userID), zap.String("item", item.ID), zap.Int64("cost", item.Cost))

	view := e.View()
	return Receipt{UserID: userID, Item: item, Remaining: view.TotalPoints, Ledger: view}, nil
}

func (s *Service) item(id string) (domain.ShopItem, bool) {
	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return domain.ShopItem{}, false
}
