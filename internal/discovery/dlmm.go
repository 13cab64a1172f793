package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"rateScope/internal/model"
)

// DLMMIndex queries a DLMM-style pool index. The upstream exposes a single
// unparameterized endpoint returning every pair, so filtering happens
// client-side.
type DLMMIndex struct {
	baseURL    string
	native     solana.PublicKey
	httpClient *http.Client
	logger     *zap.Logger
}

// NewDLMMIndex builds a DLMM index client.
func NewDLMMIndex(baseURL string, native solana.PublicKey, logger *zap.Logger) *DLMMIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DLMMIndex{
		baseURL:    baseURL,
		native:     native,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type dlmmRecord struct {
	Address        string      `json:"address"`
	Name           string      `json:"name"`
	MintX          string      `json:"mint_x"`
	MintY          string      `json:"mint_y"`
	ReserveXAmount json.Number `json:"reserve_x_amount"`
	ReserveYAmount json.Number `json:"reserve_y_amount"`
	Liquidity      json.Number `json:"liquidity"`
	BinStep        uint16      `json:"bin_step"`
	BaseFeePct     string      `json:"base_fee_percentage"`
}

// Discover fetches the full pair list and keeps pairs holding the target
// mint on one side and the native asset on the other.
func (c *DLMMIndex) Discover(ctx context.Context, target solana.PublicKey) []model.PoolSummary {
	records, err := c.fetchAll(ctx)
	if err != nil {
		c.logger.Warn("dlmm index fetch failed", zap.Error(err))
		return nil
	}

	nativeStr := c.native.String()
	targetStr := target.String()

	seen := make(map[string]struct{})
	pools := make([]model.PoolSummary, 0)
	for _, rec := range records {
		pairsNative := (rec.MintX == targetStr && rec.MintY == nativeStr) ||
			(rec.MintY == targetStr && rec.MintX == nativeStr)
		if !pairsNative {
			continue
		}
		if _, ok := seen[rec.Address]; ok {
			continue
		}
		seen[rec.Address] = struct{}{}
		pools = append(pools, model.PoolSummary{
			Address:    rec.Address,
			Source:     model.SourceDLMM,
			Name:       rec.Name,
			MintA:      rec.MintX,
			MintB:      rec.MintY,
			ReserveA:   rec.ReserveXAmount.String(),
			ReserveB:   rec.ReserveYAmount.String(),
			TVL:        rec.Liquidity.String(),
			BinStep:    rec.BinStep,
			BaseFeePct: rec.BaseFeePct,
		})
	}

	return pools
}

func (c *DLMMIndex) fetchAll(ctx context.Context) ([]dlmmRecord, error) {
	url := c.baseURL + "/pair/all"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var records []dlmmRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode pairs: %w", err)
	}
	return records, nil
}
