package model

import (
	"encoding/json"
)

// PriceObservation is one polling cycle's output: a display-labeled
// projection of the selected pool's quote, or a structured error when the
// cycle could not produce one. This is the unit of persistence.
type PriceObservation struct {
	Pool            string     `json:"pool,omitempty"`
	Source          PoolSource `json:"source,omitempty"`
	TokenMint       string     `json:"token_mint,omitempty"`
	TokenSymbol     string     `json:"token_symbol,omitempty"`
	AmountOutPerSol string     `json:"amount_out_per_sol,omitempty"`
	SpotPrice       string     `json:"spot_price,omitempty"`
	FeePaid         string     `json:"fee_paid,omitempty"`
	TVL             string     `json:"tvl,omitempty"`
	Timestamp       string     `json:"timestamp"`
	Error           string     `json:"error,omitempty"`
}

// MarshalJSON ensures PriceObservation is encoded with stable field names.
func (o PriceObservation) MarshalJSON() ([]byte, error) {
	type Alias PriceObservation
	return json.Marshal(Alias(o))
}

// UnmarshalJSON decodes a PriceObservation from JSON.
func (o *PriceObservation) UnmarshalJSON(data []byte) error {
	type Alias PriceObservation
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*o = PriceObservation(a)
	return nil
}
