package dex

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type fakeCaller struct {
	responses map[string][]byte
	calls     int
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	for selector, resp := range f.responses {
		if bytes.HasPrefix(msg.Data, []byte(selector)) {
			return resp, nil
		}
	}
	return nil, errors.New("execution reverted")
}

func packOutput(t *testing.T, bytes32 bool, method string, value interface{}) (string, []byte) {
	t.Helper()
	instance := erc20ABIStringInstance
	if bytes32 {
		instance = erc20ABIBytes32Instance
	}
	parsed, err := instance()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	out, err := parsed.Methods[method].Outputs.Pack(value)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	return string(parsed.Methods[method].ID), out
}

func TestFetchTokenMetaStringABI(t *testing.T) {
	caller := &fakeCaller{responses: map[string][]byte{}}
	for method, value := range map[string]interface{}{
		"decimals": uint8(6),
		"symbol":   "USDC",
		"name":     "USD Coin",
	} {
		selector, out := packOutput(t, false, method, value)
		caller.responses[selector] = out
	}

	token := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	meta, err := FetchTokenMeta(context.Background(), caller, token, zap.NewNop())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if meta.Decimals != 6 || meta.Symbol != "USDC" || meta.Name != "USD Coin" {
		t.Fatalf("meta mismatch: %+v", meta)
	}
	if meta.Address != token.Hex() {
		t.Fatalf("address mismatch: %s", meta.Address)
	}
}

func TestFetchTokenMetaBytes32Fallback(t *testing.T) {
	var symbol [32]byte
	copy(symbol[:], "MKR")
	var name [32]byte
	copy(name[:], "Maker")

	caller := &fakeCaller{responses: map[string][]byte{}}
	selector, out := packOutput(t, false, "decimals", uint8(18))
	caller.responses[selector] = out
	selector, out = packOutput(t, true, "symbol", symbol)
	caller.responses[selector] = out
	selector, out = packOutput(t, true, "name", name)
	caller.responses[selector] = out

	meta, err := FetchTokenMeta(context.Background(), caller, common.HexToAddress("0x9f8F72aA9304c8B593d555F12eF6589cC3A579A2"), nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if meta.Symbol != "MKR" || meta.Name != "Maker" || meta.Decimals != 18 {
		t.Fatalf("meta mismatch: %+v", meta)
	}
}

func TestTokenMetaFetcherCachesAndFails(t *testing.T) {
	caller := &fakeCaller{responses: map[string][]byte{}}
	selector, out := packOutput(t, false, "decimals", uint8(8))
	caller.responses[selector] = out

	fetcher := NewTokenMetaFetcher(caller, zap.NewNop())
	address := "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599"

	meta, err := fetcher.TokenMeta(context.Background(), address)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if meta.Decimals != 8 || meta.Symbol != "" {
		t.Fatalf("meta mismatch: %+v", meta)
	}
	calls := caller.calls
	if _, err := fetcher.TokenMeta(context.Background(), address); err != nil {
		t.Fatalf("cached fetch: %v", err)
	}
	if caller.calls != calls {
		t.Fatalf("expected cached lookup, calls %d -> %d", calls, caller.calls)
	}

	if _, err := fetcher.TokenMeta(context.Background(), "not-an-address"); err == nil {
		t.Fatalf("expected invalid address error")
	}

	broken := NewTokenMetaFetcher(&fakeCaller{}, nil)
	if _, err := broken.TokenMeta(context.Background(), address); err == nil {
		t.Fatalf("expected decimals failure")
	}
}

func TestFetchTokenMetaSanitizesStringABI(t *testing.T) {
	caller := &fakeCaller{responses: map[string][]byte{}}
	for method, value := range map[string]interface{}{
		"decimals": uint8(18),
		"symbol":   "M\xff\x00K",
		"name":     "Bad\x00 Token\xfe",
	} {
		selector, out := packOutput(t, false, method, value)
		caller.responses[selector] = out
	}

	meta, err := FetchTokenMeta(context.Background(), caller, common.HexToAddress("0x9f8F72aA9304c8B593d555F12eF6589cC3A579A2"), nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if meta.Symbol != "MK" || meta.Name != "Bad Token" {
		t.Fatalf("meta not sanitized: %q / %q", meta.Symbol, meta.Name)
	}
}

func TestFetchTokenMetaSanitizesBytes32(t *testing.T) {
	var symbol [32]byte
	copy(symbol[:], []byte{'M', 0xff, 0x00, 'K'})
	var name [32]byte
	copy(name[:], []byte{0x00, 'M', 'a', 'k', 0xc3, 'e', 'r'})

	caller := &fakeCaller{responses: map[string][]byte{}}
	selector, out := packOutput(t, false, "decimals", uint8(18))
	caller.responses[selector] = out
	selector, out = packOutput(t, true, "symbol", symbol)
	caller.responses[selector] = out
	selector, out = packOutput(t, true, "name", name)
	caller.responses[selector] = out

	meta, err := FetchTokenMeta(context.Background(), caller, common.HexToAddress("0x9f8F72aA9304c8B593d555F12eF6589cC3A579A2"), nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if meta.Symbol != "MK" || meta.Name != "Maker" {
		t.Fatalf("meta not sanitized: %q / %q", meta.Symbol, meta.Name)
	}
}
