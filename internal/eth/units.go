package eth

import (
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of wei decimals in one ether
const EtherDecimals = 18

// TransferTopic is topic[0] of the ERC20 Transfer(address,address,uint256) event
var TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// WeiToEther converts a wei amount to ether without losing precision
func WeiToEther(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -EtherDecimals)
}
