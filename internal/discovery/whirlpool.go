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

// mint query fields supported by the whirlpool index. The API requires a
// fixed side per query, so both sides are tried and merged.
var whirlpoolMintFields = []string{"mint_a", "mint_b"}

// WhirlpoolIndex queries a paginated whirlpool-style pool index ordered by
// TVL descending.
type WhirlpoolIndex struct {
	baseURL    string
	pageLimit  int
	native     solana.PublicKey
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWhirlpoolIndex builds a whirlpool index client.
func NewWhirlpoolIndex(baseURL string, pageLimit int, native solana.PublicKey, logger *zap.Logger) *WhirlpoolIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageLimit <= 0 {
		pageLimit = 50
	}
	return &WhirlpoolIndex{
		baseURL:    baseURL,
		pageLimit:  pageLimit,
		native:     native,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type whirlpoolRecord struct {
	Address  string      `json:"address"`
	MintA    string      `json:"mint_a"`
	MintB    string      `json:"mint_b"`
	ReserveA json.Number `json:"reserve_a"`
	ReserveB json.Number `json:"reserve_b"`
	TVL      json.Number `json:"tvl"`
	FeeRate  json.Number `json:"fee_rate"`
	SymbolA  string      `json:"symbol_a"`
	SymbolB  string      `json:"symbol_b"`
}

type whirlpoolPage struct {
	Data []whirlpoolRecord `json:"data"`
}

// Discover pages through the index once per mint field, filters to pools
// pairing the target with the native asset, and deduplicates by address.
// A failed page aborts only its own query strategy.
func (c *WhirlpoolIndex) Discover(ctx context.Context, target solana.PublicKey) []model.PoolSummary {
	nativeStr := c.native.String()
	targetStr := target.String()

	seen := make(map[string]struct{})
	pools := make([]model.PoolSummary, 0)

	for _, mintField := range whirlpoolMintFields {
		for offset := 0; ; offset += c.pageLimit {
			page, err := c.fetchPage(ctx, mintField, targetStr, offset)
			if err != nil {
				c.logger.Warn("whirlpool index page failed",
					zap.String("mint_field", mintField),
					zap.Int("offset", offset),
					zap.Error(err),
				)
				break
			}
			if len(page.Data) == 0 {
				break
			}

			for _, rec := range page.Data {
				if !matchesPair(rec, mintField, targetStr, nativeStr) {
					continue
				}
				if _, ok := seen[rec.Address]; ok {
					continue
				}
				seen[rec.Address] = struct{}{}
				pools = append(pools, model.PoolSummary{
					Address:  rec.Address,
					Source:   model.SourceWhirlpool,
					MintA:    rec.MintA,
					MintB:    rec.MintB,
					ReserveA: rec.ReserveA.String(),
					ReserveB: rec.ReserveB.String(),
					TVL:      rec.TVL.String(),
					FeeRate:  rec.FeeRate.String(),
					SymbolA:  rec.SymbolA,
					SymbolB:  rec.SymbolB,
				})
			}
		}
	}

	return pools
}

func (c *WhirlpoolIndex) fetchPage(ctx context.Context, mintField, target string, offset int) (whirlpoolPage, error) {
	url := fmt.Sprintf("%s?limit=%d&offset=%d&order_by=tvl&order=desc&%s=%s&timestamp=%d",
		c.baseURL, c.pageLimit, offset, mintField, target, time.Now().UnixMilli())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return whirlpoolPage{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return whirlpoolPage{}, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return whirlpoolPage{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	var page whirlpoolPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return whirlpoolPage{}, fmt.Errorf("decode page: %w", err)
	}
	return page, nil
}

// matchesPair verifies the record pairs the target (on the queried side)
// with the native asset. The index is not trusted to respect its own query
// parameters.
func matchesPair(rec whirlpoolRecord, mintField, target, native string) bool {
	switch mintField {
	case "mint_a":
		return rec.MintA == target && rec.MintB == native
	case "mint_b":
		return rec.MintB == target && rec.MintA == native
	default:
		return false
	}
}
