package dashboard

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"moni/internal/core"
	"moni/internal/log"
)

type AssetPosition struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Value    decimal.Decimal `json:"value"`
	Cost     decimal.Decimal `json:"cost"`
	// ROI is (value - cost) / cost in percent; 0 when the cost is unknown.
	ROI float64 `json:"roi"`
}

type LiabilityPosition struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Balance  decimal.Decimal `json:"balance"`
}

type NetWorth struct {
	TotalAssets      decimal.Decimal     `json:"totalAssets"`
	TotalLiabilities decimal.Decimal     `json:"totalLiabilities"`
	NetWorth         decimal.Decimal     `json:"netWorth"`
	Assets           []AssetPosition     `json:"assets"`
	Liabilities      []LiabilityPosition `json:"liabilities"`
}

// NetWorth fetches assets and liabilities concurrently and combines them once
// both are loaded. Either failure fails the whole call.
func (s *Service) NetWorth(ctx context.Context, userID string) (NetWorth, error) {
	if err := core.RequireUserID(userID); err != nil {
		return NetWorth{}, err
	}

	var (
		assets      []core.Asset
		liabilities []core.Liability
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if assets, err = s.store.ListAssets(gctx, userID); err != nil {
			return fmt.Errorf("list assets: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if liabilities, err = s.store.ListLiabilities(gctx, userID); err != nil {
			return fmt.Errorf("list liabilities: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return NetWorth{}, err
	}

	nw := CombineNetWorth(assets, liabilities)
	s.logger.DebugContext(ctx, "Net worth computed",
		log.FieldUserID, userID,
		"assets", len(nw.Assets),
		"liabilities", len(nw.Liabilities))
	return nw, nil
}

func CombineNetWorth(assets []core.Asset, liabilities []core.Liability) NetWorth {
	nw := NetWorth{
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
		Assets:           make([]AssetPosition, 0, len(assets)),
		Liabilities:      make([]LiabilityPosition, 0, len(liabilities)),
	}
	for _, a := range assets {
		nw.TotalAssets = nw.TotalAssets.Add(a.Value)
		nw.Assets = append(nw.Assets, AssetPosition{
			ID:       a.ID,
			Name:     a.Name,
			Category: a.Category,
			Value:    a.Value,
			Cost:     a.Cost,
			ROI:      core.Percent(core.Float(a.Value.Sub(a.Cost)), core.Float(a.Cost)),
		})
	}
	for _, l := range liabilities {
		nw.TotalLiabilities = nw.TotalLiabilities.Add(l.Balance)
		nw.Liabilities = append(nw.Liabilities, LiabilityPosition{
			ID:       l.ID,
			Name:     l.Name,
			Category: l.Category,
			Balance:  l.Balance,
		})
	}
	nw.NetWorth = nw.TotalAssets.Sub(nw.TotalLiabilities)
	return nw
}
