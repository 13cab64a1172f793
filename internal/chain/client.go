package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// splMintDecimalsOffset is the byte offset of the decimals field in the SPL
// token mint account layout (4-byte authority option + 32-byte authority +
// 8-byte supply).
const splMintDecimalsOffset = 44

// Client wraps the Solana JSON-RPC client and provides helper methods.
// Independent lookups are safe to issue concurrently.
type Client struct {
	rpcClient *rpc.Client

	mu       sync.RWMutex
	decimals map[solana.PublicKey]uint8
}

// NewClient creates a new chain client for the RPC endpoint.
func NewClient(endpoint string) *Client {
	return &Client{
		rpcClient: rpc.New(endpoint),
		decimals:  make(map[solana.PublicKey]uint8),
	}
}

// CurrentSlot returns the latest finalized slot.
func (c *Client) CurrentSlot(ctx context.Context) (uint64, error) {
	return c.rpcClient.GetSlot(ctx, rpc.CommitmentFinalized)
}

// CurrentEpoch returns the current epoch number.
func (c *Client) CurrentEpoch(ctx context.Context) (uint64, error) {
	info, err := c.rpcClient.GetEpochInfo(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return 0, err
	}
	return info.Epoch, nil
}

// AccountData returns the raw data of an account, or an empty slice when
// the account does not exist.
func (c *Client) AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	out, err := c.rpcClient.GetAccountInfo(ctx, address)
	if err != nil {
		if err == rpc.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get account %s: %w", address, err)
	}
	if out == nil || out.Value == nil {
		return nil, nil
	}
	return out.Value.Data.GetBinary(), nil
}

// MintDecimals returns the decimal count of an SPL mint, using an
// in-memory cache. Decimals are immutable for a given mint.
func (c *Client) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	c.mu.RLock()
	decimals, ok := c.decimals[mint]
	c.mu.RUnlock()
	if ok {
		return decimals, nil
	}

	data, err := c.AccountData(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("fetch mint %s: %w", mint, err)
	}
	if len(data) <= splMintDecimalsOffset {
		return 0, fmt.Errorf("mint account %s too short: %d bytes", mint, len(data))
	}

	decimals = data[splMintDecimalsOffset]
	c.mu.Lock()
	c.decimals[mint] = decimals
	c.mu.Unlock()

	return decimals, nil
}
