package indexer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseAddresses converts hex strings into emitter addresses, dropping blanks
// and repeats.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	seen := make(map[common.Address]struct{}, len(inputs))
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		addr := common.HexToAddress(input)
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}

// ParseTopic0 converts hex strings into event signature hashes. When no
// topic is given it returns fallback, so the filter defaults to the events
// the decoder understands.
func ParseTopic0(inputs []string, fallback []common.Hash) ([]common.Hash, error) {
	topics := make([]common.Hash, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		data, err := hexutil.Decode(input)
		if err != nil {
			return nil, fmt.Errorf("invalid topic0 %s: %w", input, err)
		}
		if len(data) != common.HashLength {
			return nil, fmt.Errorf("invalid topic0 %s: want %d bytes, got %d", input, common.HashLength, len(data))
		}
		topics = append(topics, common.BytesToHash(data))
	}
	if len(topics) == 0 {
		return append([]common.Hash(nil), fallback...), nil
	}
	return topics, nil
}
