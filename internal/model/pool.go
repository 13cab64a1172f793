package model

// PoolSource identifies which venue family a pool belongs to.
type PoolSource string

const (
	SourceWhirlpool PoolSource = "whirlpool"
	SourceDLMM      PoolSource = "dlmm"
)

// PoolSummary is one pool as reported by a pool-index API.
// Summaries are rebuilt on every discovery cycle and never mutated.
type PoolSummary struct {
	Address    string     `json:"address"`
	Source     PoolSource `json:"source"`
	Name       string     `json:"name,omitempty"`
	MintA      string     `json:"mint_a"`
	MintB      string     `json:"mint_b"`
	ReserveA   string     `json:"reserve_a,omitempty"`
	ReserveB   string     `json:"reserve_b,omitempty"`
	TVL        string     `json:"tvl"`
	FeeRate    string     `json:"fee_rate,omitempty"`
	BinStep    uint16     `json:"bin_step,omitempty"`
	BaseFeePct string     `json:"base_fee_pct,omitempty"`
	SymbolA    string     `json:"symbol_a,omitempty"`
	SymbolB    string     `json:"symbol_b,omitempty"`
}

// MintInfo captures SPL mint metadata. Decimals never change for a given
// mint, so instances are cached for the process lifetime.
type MintInfo struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
}

// Quote is the raw result of pricing a fixed input against one pool.
// Amounts are integer base units of their respective mints.
type Quote struct {
	AmountOut      uint64 `json:"amount_out"`
	FeeAmount      uint64 `json:"fee_amount"`
	PriceImpactPct string `json:"price_impact_pct,omitempty"`
}
