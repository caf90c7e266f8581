package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"poolGraph/internal/model"
)

// maxGasEntries bounds the receipt cache; it is cleared when full.
const maxGasEntries = 4096

// Client is the RPC surface shared by the log runner and the token metadata
// fetcher.
type Client struct {
	rpc *rpc.Client
	eth *ethclient.Client

	mu         sync.RWMutex
	timestamps map[uint64]uint64
	gas        map[common.Hash]model.TxGas
}

// NewClient dials rpcURL (http, ws or ipc).
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return &Client{
		rpc:        rpcClient,
		eth:        ethclient.NewClient(rpcClient),
		timestamps: make(map[uint64]uint64),
		gas:        make(map[common.Hash]model.TxGas),
	}, nil
}

func (c *Client) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	return c.eth.ChainID(ctx)
}

func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// BlockTimestamp returns the header time of a block. Results are cached for
// the life of the client.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.timestamps[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	header, err := c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.timestamps[number] = header.Time
	c.mu.Unlock()
	return header.Time, nil
}

// FilterLogs runs eth_getLogs over [fromBlock, toBlock]. An empty topic0
// list matches every event of the given emitters.
func (c *Client) FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return c.eth.FilterLogs(ctx, query)
}

// CallContract performs a read-only eth_call at blockNumber, or latest when nil.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.eth.CallContract(ctx, msg, blockNumber)
}

// TxGas reads gas used and the effective gas price from the transaction
// receipt. Nodes that omit effectiveGasPrice fall back to the transaction's
// own gas price.
func (c *Client) TxGas(ctx context.Context, txHash string) (model.TxGas, error) {
	hash := common.HexToHash(txHash)

	c.mu.RLock()
	cached, ok := c.gas[hash]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	receipt, err := c.eth.TransactionReceipt(ctx, hash)
	if err != nil {
		return model.TxGas{}, fmt.Errorf("receipt %s: %w", hash.Hex(), err)
	}
	price := receipt.EffectiveGasPrice
	if price == nil {
		tx, _, err := c.eth.TransactionByHash(ctx, hash)
		if err != nil {
			return model.TxGas{}, fmt.Errorf("transaction %s: %w", hash.Hex(), err)
		}
		price = tx.GasPrice()
	}
	gas := model.TxGas{
		GasUsed:  new(big.Int).SetUint64(receipt.GasUsed),
		GasPrice: new(big.Int).Set(price),
	}

	c.mu.Lock()
	if len(c.gas) >= maxGasEntries {
		clear(c.gas)
	}
	c.gas[hash] = gas
	c.mu.Unlock()
	return gas, nil
}
