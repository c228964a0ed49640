package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"htlcnet/core/types"
	"htlcnet/native/htlc"
	"htlcnet/storage"
)

// Manager implements the swap engine's registry and ledger surface over a
// key-value database. Run against a storage.Overlay it gives each engine
// operation all-or-nothing visibility: the RPC layer commits the overlay on
// success and discards it on error.
type Manager struct {
	db    storage.Database
	vault [20]byte
}

// NewManager binds a manager to the given database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, vault: vaultAddress()}
}

// EnsureGenesis writes the default protocol state if none exists yet.
func (m *Manager) EnsureGenesis() error {
	if _, ok := m.ProtocolStateGet(); ok {
		return nil
	}
	return m.ProtocolStatePut(htlc.NewProtocolState())
}

// --- swap records ---

type storedSwap struct {
	ID                uint64
	Initiator         [20]byte
	Participant       [20]byte
	InitiatorAmount   *big.Int
	ParticipantAmount *big.Int
	SecretHash        [32]byte
	Secret            []byte
	Timelock          uint64
	CreatedAt         uint64
	ExecutedAt        uint64
	Status            uint8
}

func newStoredSwap(s *htlc.Swap) *storedSwap {
	clone := s.Clone()
	return &storedSwap{
		ID:                clone.ID,
		Initiator:         clone.Initiator,
		Participant:       clone.Participant,
		InitiatorAmount:   clone.InitiatorAmount,
		ParticipantAmount: clone.ParticipantAmount,
		SecretHash:        clone.SecretHash,
		Secret:            clone.Secret,
		Timelock:          clone.Timelock,
		CreatedAt:         clone.CreatedAt,
		ExecutedAt:        clone.ExecutedAt,
		Status:            uint8(clone.Status),
	}
}

func (s *storedSwap) toSwap() (*htlc.Swap, error) {
	if s == nil {
		return nil, fmt.Errorf("state: nil swap record")
	}
	out := &htlc.Swap{
		ID:                s.ID,
		Initiator:         s.Initiator,
		Participant:       s.Participant,
		InitiatorAmount:   big.NewInt(0),
		ParticipantAmount: big.NewInt(0),
		SecretHash:        s.SecretHash,
		Timelock:          s.Timelock,
		CreatedAt:         s.CreatedAt,
		ExecutedAt:        s.ExecutedAt,
		Status:            htlc.SwapStatus(s.Status),
	}
	if s.InitiatorAmount != nil {
		out.InitiatorAmount = new(big.Int).Set(s.InitiatorAmount)
	}
	if s.ParticipantAmount != nil {
		out.ParticipantAmount = new(big.Int).Set(s.ParticipantAmount)
	}
	if len(s.Secret) > 0 {
		out.Secret = append([]byte(nil), s.Secret...)
	}
	if !out.Status.Valid() {
		return nil, fmt.Errorf("state: invalid swap status %d", s.Status)
	}
	return out, nil
}

// SwapPut persists a swap record.
func (m *Manager) SwapPut(s *htlc.Swap) error {
	if s == nil {
		return fmt.Errorf("state: nil swap")
	}
	if !s.Status.Valid() {
		return fmt.Errorf("state: invalid swap status")
	}
	encoded, err := rlp.EncodeToBytes(newStoredSwap(s))
	if err != nil {
		return err
	}
	return m.db.Put(swapStorageKey(s.ID), encoded)
}

// SwapGet loads a swap record by id.
func (m *Manager) SwapGet(id uint64) (*htlc.Swap, bool) {
	data, err := m.db.Get(swapStorageKey(id))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	stored := new(storedSwap)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false
	}
	swap, err := stored.toSwap()
	if err != nil {
		return nil, false
	}
	return swap, true
}

// --- participant records ---

type storedParticipant struct {
	SwapID   uint64
	Role     uint8
	Amount   *big.Int
	Claimed  bool
	Refunded bool
}

// ParticipantPut persists the escrow leg record for one side of a swap.
func (m *Manager) ParticipantPut(p *htlc.ParticipantRecord) error {
	if p == nil {
		return fmt.Errorf("state: nil participant record")
	}
	if !p.Role.Valid() {
		return fmt.Errorf("state: invalid participant role")
	}
	clone := p.Clone()
	record := &storedParticipant{
		SwapID:   clone.SwapID,
		Role:     uint8(clone.Role),
		Amount:   clone.Amount,
		Claimed:  clone.Claimed,
		Refunded: clone.Refunded,
	}
	encoded, err := rlp.EncodeToBytes(record)
	if err != nil {
		return err
	}
	return m.db.Put(participantStorageKey(p.SwapID, uint8(p.Role)), encoded)
}

// ParticipantGet loads the escrow leg record for one side of a swap.
func (m *Manager) ParticipantGet(swapID uint64, role htlc.Role) (*htlc.ParticipantRecord, bool) {
	data, err := m.db.Get(participantStorageKey(swapID, uint8(role)))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	stored := new(storedParticipant)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false
	}
	out := &htlc.ParticipantRecord{
		SwapID:   stored.SwapID,
		Role:     htlc.Role(stored.Role),
		Amount:   big.NewInt(0),
		Claimed:  stored.Claimed,
		Refunded: stored.Refunded,
	}
	if stored.Amount != nil {
		out.Amount = new(big.Int).Set(stored.Amount)
	}
	return out, true
}

// --- secret hash index ---

type storedSecretHash struct {
	SwapID     uint64
	Used       bool
	RevealedAt uint64
}

// SecretHashPut binds a hash value to its owning swap.
func (m *Manager) SecretHashPut(hash [32]byte, rec *htlc.SecretHashRecord) error {
	if rec == nil {
		return fmt.Errorf("state: nil secret hash record")
	}
	encoded, err := rlp.EncodeToBytes(&storedSecretHash{
		SwapID:     rec.SwapID,
		Used:       rec.Used,
		RevealedAt: rec.RevealedAt,
	})
	if err != nil {
		return err
	}
	return m.db.Put(secretHashStorageKey(hash), encoded)
}

// SecretHashGet loads the index entry for a hash value.
func (m *Manager) SecretHashGet(hash [32]byte) (*htlc.SecretHashRecord, bool) {
	data, err := m.db.Get(secretHashStorageKey(hash))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	stored := new(storedSecretHash)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false
	}
	return &htlc.SecretHashRecord{
		SwapID:     stored.SwapID,
		Used:       stored.Used,
		RevealedAt: stored.RevealedAt,
	}, true
}

// --- user statistics ---

type storedUserStats struct {
	Initiated       []uint64
	Participated    []uint64
	TotalVolume     *big.Int
	SuccessfulSwaps uint64
}

// UserStatsPut persists the per-identity statistics record.
func (m *Manager) UserStatsPut(addr [20]byte, stats *htlc.UserStats) error {
	if stats == nil {
		return fmt.Errorf("state: nil user stats")
	}
	clone := stats.Clone()
	encoded, err := rlp.EncodeToBytes(&storedUserStats{
		Initiated:       clone.Initiated,
		Participated:    clone.Participated,
		TotalVolume:     clone.TotalVolume,
		SuccessfulSwaps: clone.SuccessfulSwaps,
	})
	if err != nil {
		return err
	}
	return m.db.Put(userStatsStorageKey(addr), encoded)
}

// UserStatsGet loads the per-identity statistics record.
func (m *Manager) UserStatsGet(addr [20]byte) (*htlc.UserStats, bool) {
	data, err := m.db.Get(userStatsStorageKey(addr))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	stored := new(storedUserStats)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false
	}
	out := htlc.NewUserStats()
	out.Initiated = append([]uint64(nil), stored.Initiated...)
	out.Participated = append([]uint64(nil), stored.Participated...)
	out.SuccessfulSwaps = stored.SuccessfulSwaps
	if stored.TotalVolume != nil {
		out.TotalVolume = new(big.Int).Set(stored.TotalVolume)
	}
	return out, true
}

// --- route statistics ---

type storedRouteStats struct {
	Swaps       uint64
	Volume      *big.Int
	SuccessRate uint64
}

// RouteStatsPut persists the ordered-pair statistics record.
func (m *Manager) RouteStatsPut(from, to [20]byte, stats *htlc.RouteStats) error {
	if stats == nil {
		return fmt.Errorf("state: nil route stats")
	}
	clone := stats.Clone()
	encoded, err := rlp.EncodeToBytes(&storedRouteStats{
		Swaps:       clone.Swaps,
		Volume:      clone.Volume,
		SuccessRate: clone.SuccessRate,
	})
	if err != nil {
		return err
	}
	return m.db.Put(routeStatsStorageKey(from, to), encoded)
}

// RouteStatsGet loads the ordered-pair statistics record.
func (m *Manager) RouteStatsGet(from, to [20]byte) (*htlc.RouteStats, bool) {
	data, err := m.db.Get(routeStatsStorageKey(from, to))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	stored := new(storedRouteStats)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false
	}
	out := htlc.NewRouteStats()
	out.Swaps = stored.Swaps
	out.SuccessRate = stored.SuccessRate
	if stored.Volume != nil {
		out.Volume = new(big.Int).Set(stored.Volume)
	}
	return out, true
}

// --- protocol state ---

type storedProtocolState struct {
	NextSwapID    uint64
	MinTimelock   uint64
	MaxTimelock   uint64
	FeeBps        uint32
	Paused        bool
	TotalVolume   *big.Int
	TotalSwaps    uint64
	FeesCollected *big.Int
}

// ProtocolStatePut persists the scalar protocol state.
func (m *Manager) ProtocolStatePut(p *htlc.ProtocolState) error {
	if p == nil {
		return fmt.Errorf("state: nil protocol state")
	}
	clone := p.Clone()
	encoded, err := rlp.EncodeToBytes(&storedProtocolState{
		NextSwapID:    clone.NextSwapID,
		MinTimelock:   clone.MinTimelock,
		MaxTimelock:   clone.MaxTimelock,
		FeeBps:        clone.FeeBps,
		Paused:        clone.Paused,
		TotalVolume:   clone.TotalVolume,
		TotalSwaps:    clone.TotalSwaps,
		FeesCollected: clone.FeesCollected,
	})
	if err != nil {
		return err
	}
	return m.db.Put(protocolStateKey(), encoded)
}

// ProtocolStateGet loads the scalar protocol state.
func (m *Manager) ProtocolStateGet() (*htlc.ProtocolState, bool) {
	data, err := m.db.Get(protocolStateKey())
	if err != nil || len(data) == 0 {
		return nil, false
	}
	stored := new(storedProtocolState)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false
	}
	out := htlc.NewProtocolState()
	out.NextSwapID = stored.NextSwapID
	out.MinTimelock = stored.MinTimelock
	out.MaxTimelock = stored.MaxTimelock
	out.FeeBps = stored.FeeBps
	out.Paused = stored.Paused
	out.TotalSwaps = stored.TotalSwaps
	if stored.TotalVolume != nil {
		out.TotalVolume = new(big.Int).Set(stored.TotalVolume)
	}
	if stored.FeesCollected != nil {
		out.FeesCollected = new(big.Int).Set(stored.FeesCollected)
	}
	return out, true
}

// --- ledger adapter ---

// VaultAddress returns the escrow custody address.
func (m *Manager) VaultAddress() [20]byte { return m.vault }

func (m *Manager) getAccount(addr [20]byte) (*types.Account, error) {
	data, err := m.db.Get(accountStorageKey(addr))
	if err != nil || len(data) == 0 {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	account := new(types.Account)
	if err := rlp.DecodeBytes(data, account); err != nil {
		return nil, err
	}
	if account.Balance == nil {
		account.Balance = big.NewInt(0)
	}
	return account, nil
}

func (m *Manager) putAccount(addr [20]byte, account *types.Account) error {
	encoded, err := rlp.EncodeToBytes(account.Clone())
	if err != nil {
		return err
	}
	return m.db.Put(accountStorageKey(addr), encoded)
}

// BalanceOf returns the spendable balance of an address. Unknown addresses
// report zero.
func (m *Manager) BalanceOf(addr [20]byte) (*big.Int, error) {
	account, err := m.getAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(account.Balance), nil
}

// Credit mints balance onto an address. Used for genesis seeding only.
func (m *Manager) Credit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: invalid credit amount")
	}
	account, err := m.getAccount(addr)
	if err != nil {
		return err
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return m.putAccount(addr, account)
}

// Transfer atomically moves balance between two addresses. Under an overlay
// both account writes land in the same commit unit, so a failed operation
// leaves no partial movement.
func (m *Manager) Transfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: negative transfer amount")
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	fromAcc, err := m.getAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.Balance.Cmp(amount) < 0 {
		return htlc.ErrInsufficientBalance
	}
	toAcc, err := m.getAccount(to)
	if err != nil {
		return err
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	if err := m.putAccount(from, fromAcc); err != nil {
		return err
	}
	return m.putAccount(to, toAcc)
}
