package state

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	swapRecordPrefix        = []byte("htlc/swap/")
	participantRecordPrefix = []byte("htlc/participant/")
	secretHashPrefix        = []byte("htlc/secret-hash/")
	userStatsPrefix         = []byte("htlc/user-stats/")
	routeStatsPrefix        = []byte("htlc/route-stats/")
	protocolStateKeyRaw     = []byte("htlc/protocol-state")
	accountPrefix           = []byte("htlc/account/")
	vaultTag                = []byte("htlc/vault")
)

func swapStorageKey(id uint64) []byte {
	buf := make([]byte, len(swapRecordPrefix)+8)
	copy(buf, swapRecordPrefix)
	binary.BigEndian.PutUint64(buf[len(swapRecordPrefix):], id)
	return ethcrypto.Keccak256(buf)
}

func participantStorageKey(id uint64, role uint8) []byte {
	buf := make([]byte, len(participantRecordPrefix)+9)
	copy(buf, participantRecordPrefix)
	binary.BigEndian.PutUint64(buf[len(participantRecordPrefix):], id)
	buf[len(participantRecordPrefix)+8] = role
	return ethcrypto.Keccak256(buf)
}

func secretHashStorageKey(hash [32]byte) []byte {
	buf := make([]byte, len(secretHashPrefix)+len(hash))
	copy(buf, secretHashPrefix)
	copy(buf[len(secretHashPrefix):], hash[:])
	return ethcrypto.Keccak256(buf)
}

func userStatsStorageKey(addr [20]byte) []byte {
	buf := make([]byte, len(userStatsPrefix)+len(addr))
	copy(buf, userStatsPrefix)
	copy(buf[len(userStatsPrefix):], addr[:])
	return ethcrypto.Keccak256(buf)
}

func routeStatsStorageKey(from, to [20]byte) []byte {
	buf := make([]byte, len(routeStatsPrefix)+len(from)+len(to))
	copy(buf, routeStatsPrefix)
	copy(buf[len(routeStatsPrefix):], from[:])
	copy(buf[len(routeStatsPrefix)+len(from):], to[:])
	return ethcrypto.Keccak256(buf)
}

func protocolStateKey() []byte {
	return ethcrypto.Keccak256(protocolStateKeyRaw)
}

func accountStorageKey(addr [20]byte) []byte {
	buf := make([]byte, len(accountPrefix)+len(addr))
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr[:])
	return ethcrypto.Keccak256(buf)
}

// vaultAddress derives the escrow custody address from the module tag. No key
// exists for it; only the state manager's transfer primitive can move its
// balance.
func vaultAddress() [20]byte {
	hash := ethcrypto.Keccak256(vaultTag)
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}
