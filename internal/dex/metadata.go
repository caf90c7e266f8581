package dex

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolGraph/internal/model"
)

// ContractCaller performs read-only contract calls. *chain.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// TokenMetaFetcher resolves ERC20 metadata over RPC and caches successful lookups.
type TokenMetaFetcher struct {
	caller ContractCaller
	cache  *TokenMetaCache
	logger *zap.Logger
}

func NewTokenMetaFetcher(caller ContractCaller, logger *zap.Logger) *TokenMetaFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenMetaFetcher{caller: caller, cache: NewTokenMetaCache(), logger: logger}
}

// TokenMeta returns cached metadata or fetches it from chain.
func (f *TokenMetaFetcher) TokenMeta(ctx context.Context, address string) (model.TokenMeta, error) {
	if !common.IsHexAddress(address) {
		return model.TokenMeta{}, fmt.Errorf("invalid token address: %s", address)
	}
	token := common.HexToAddress(address)
	if meta, ok := f.cache.Get(token); ok {
		return meta, nil
	}
	meta, err := FetchTokenMeta(ctx, f.caller, token, f.logger)
	if err != nil {
		return meta, err
	}
	f.cache.Set(token, meta)
	return meta, nil
}

// FetchTokenMeta loads token metadata via ERC20 calls. Symbol and name fall
// back to bytes32 returns; only a failing decimals call is an error.
func FetchTokenMeta(ctx context.Context, caller ContractCaller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	if caller == nil {
		return meta, fmt.Errorf("contract caller is nil")
	}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		msg := ethereum.CallMsg{To: &token, Data: data}
		resp, err := caller.CallContract(ctx, msg, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("unpack %s: empty result", method)
		}
		return values, nil
	}

	values, err := call("decimals", stringABI)
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	textField := func(method string) string {
		if values, err := call(method, stringABI); err == nil {
			if text, ok := values[0].(string); ok {
				return text
			}
		}
		values, err := call(method, bytes32ABI)
		if err != nil {
			if logger != nil {
				logger.Debug(method+" call failed", zap.String("token", token.Hex()), zap.Error(err))
			}
			return ""
		}
		text, _ := bytes32ToString(values[0])
		return text
	}
	meta.Symbol = textField("symbol")
	meta.Name = textField("name")

	return meta.Sanitized(), nil
}
