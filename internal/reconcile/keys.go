package reconcile

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// positionKeySep never appears in a hex address, a hex pool id or a decimal tick.
const positionKeySep = ":"

var zeroAddress = normalizeHex(common.Address{}.Hex())

func normalizeHex(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// TokenKey is the entity key of a token contract.
func TokenKey(address string) string {
	return normalizeHex(address)
}

// UserKey is the entity key of a wallet.
func UserKey(address string) string {
	return normalizeHex(address)
}

// PoolKey is the entity key of a pool. Pool ids are assigned on chain and
// matched exactly, never derived from the token pair.
func PoolKey(poolID string) string {
	return normalizeHex(poolID)
}

// PositionKey joins owner, pool, lower tick and upper tick in that fixed order.
func PositionKey(owner, poolID string, tickLower, tickUpper int32) string {
	var b strings.Builder
	b.WriteString(UserKey(owner))
	b.WriteString(positionKeySep)
	b.WriteString(PoolKey(poolID))
	b.WriteString(positionKeySep)
	b.WriteString(strconv.FormatInt(int64(tickLower), 10))
	b.WriteString(positionKeySep)
	b.WriteString(strconv.FormatInt(int64(tickUpper), 10))
	return b.String()
}

// SwapKey is "<blockHash>-<logIndex>".
func SwapKey(blockHash string, logIndex uint64) string {
	return normalizeHex(blockHash) + "-" + strconv.FormatUint(logIndex, 10)
}

func isZeroAddress(address string) bool {
	return normalizeHex(address) == zeroAddress
}
