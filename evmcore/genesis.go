package evmcore

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ApplyGenesis credits the given balances and flushes the state.
//
// It is the faucet used by development networks and tests: balances are
// minted out of nothing, so it must never be reachable from a production
// request path.
func (g *Gateway) ApplyGenesis(balances map[common.Address]*big.Int) (common.Hash, error) {
	for _, balance := range balances {
		if balance == nil || balance.Sign() < 0 {
			return g.Root(), ErrInvalidAmount
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for acc, balance := range balances {
		g.statedb.AddBalance(acc, balance)
	}
	if err := g.flush(); err != nil {
		return g.root, err
	}
	return g.root, nil
}

// FakeKey returns a deterministic secp256k1 key for index n.
// Same n, same key; never use these keys outside development networks.
func FakeKey(n int) *ecdsa.PrivateKey {
	seed := crypto.Keccak256([]byte("veledger-fakekey"), bigendian.Uint64ToBytes(uint64(n)))
	key, err := crypto.ToECDSA(seed)
	if err != nil {
		panic(err)
	}
	return key
}

// FakeAccount returns the address of FakeKey(n).
func FakeAccount(n int) common.Address {
	return crypto.PubkeyToAddress(FakeKey(n).PublicKey)
}
