package core

import (
	"math/big"
	"sync"

	"htlcnet/core/events"
	"htlcnet/core/state"
	"htlcnet/core/types"
	"htlcnet/native/htlc"
	"htlcnet/storage"
)

// Node mediates between the RPC surface and the swap engine. It serializes
// operations and wraps each mutating call in a storage overlay so every
// engine operation commits all of its writes or none of them, matching the
// host guarantees the engine assumes. Queries take the read side of the
// lock, so no read can overlap a commit in flight.
type Node struct {
	mu       sync.RWMutex
	db       storage.Database
	operator [20]byte
	heights  HeightSource
	emitter  *events.MemoryEmitter
}

// NewNode wires a node over the given database. The protocol state is
// initialised on first start.
func NewNode(db storage.Database, operator [20]byte, heights HeightSource) (*Node, error) {
	node := &Node{
		db:       db,
		operator: operator,
		heights:  heights,
		emitter:  events.NewMemoryEmitter(0),
	}
	if err := state.NewManager(db).EnsureGenesis(); err != nil {
		return nil, err
	}
	return node, nil
}

// Height returns the current logical clock value.
func (n *Node) Height() uint64 {
	if n.heights == nil {
		return 0
	}
	return n.heights.Height()
}

// Events returns the buffered event payloads emitted so far. Only events of
// committed operations are ever buffered.
func (n *Node) Events() []*types.Event {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.emitter.Events()
}

func (n *Node) engine(db storage.Database, emitter events.Emitter) *htlc.Engine {
	engine := htlc.NewEngine()
	engine.SetState(state.NewManager(db))
	engine.SetOperator(n.operator)
	engine.SetEmitter(emitter)
	engine.SetHeightFunc(n.Height)
	return engine
}

// withCommit runs fn against an overlay-backed engine and commits the overlay
// only when fn succeeds. Events are staged alongside the writes and published
// only after the commit lands, so a failed operation leaves neither state nor
// events behind.
func (n *Node) withCommit(fn func(*htlc.Engine) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	overlay := storage.NewOverlay(n.db)
	staged := events.NewMemoryEmitter(0)
	if err := fn(n.engine(overlay, staged)); err != nil {
		overlay.Discard()
		return err
	}
	if err := overlay.Commit(); err != nil {
		return err
	}
	n.emitter.Publish(staged.Events())
	return nil
}

// readEngine returns an engine bound directly to the database for queries.
// Callers must hold the read lock.
func (n *Node) readEngine() *htlc.Engine { return n.engine(n.db, events.NoopEmitter{}) }

// SwapInitiate creates a new swap and returns its id.
func (n *Node) SwapInitiate(caller, participant [20]byte, initiatorAmount, participantAmount *big.Int, secretHash [32]byte, timelock uint64) (uint64, error) {
	var id uint64
	err := n.withCommit(func(engine *htlc.Engine) error {
		var innerErr error
		id, innerErr = engine.Initiate(caller, participant, initiatorAmount, participantAmount, secretHash, timelock)
		return innerErr
	})
	return id, err
}

// SwapParticipate locks the participant leg of a pending swap.
func (n *Node) SwapParticipate(caller [20]byte, id uint64) error {
	return n.withCommit(func(engine *htlc.Engine) error {
		return engine.Participate(caller, id)
	})
}

// SwapClaimWithSecret claims the initiator leg by revealing the preimage.
func (n *Node) SwapClaimWithSecret(caller [20]byte, id uint64, secret []byte) error {
	return n.withCommit(func(engine *htlc.Engine) error {
		return engine.ClaimWithSecret(caller, id, secret)
	})
}

// SwapClaimInitiator claims the participant leg after the reveal.
func (n *Node) SwapClaimInitiator(caller [20]byte, id uint64) error {
	return n.withCommit(func(engine *htlc.Engine) error {
		return engine.ClaimInitiator(caller, id)
	})
}

// SwapRefundTimeout refunds both locked legs once the timelock has passed.
func (n *Node) SwapRefundTimeout(caller [20]byte, id uint64) error {
	return n.withCommit(func(engine *htlc.Engine) error {
		return engine.RefundTimeout(caller, id)
	})
}

// SwapCancel aborts a pending swap ahead of the cancel cutoff.
func (n *Node) SwapCancel(caller [20]byte, id uint64) error {
	return n.withCommit(func(engine *htlc.Engine) error {
		return engine.Cancel(caller, id)
	})
}

// SetTimelockBounds updates the protocol timelock window.
func (n *Node) SetTimelockBounds(caller [20]byte, min, max uint64) error {
	return n.withCommit(func(engine *htlc.Engine) error {
		return engine.SetTimelockBounds(caller, min, max)
	})
}

// SetProtocolFee updates the protocol fee rate.
func (n *Node) SetProtocolFee(caller [20]byte, feeBps uint32) error {
	return n.withCommit(func(engine *htlc.Engine) error {
		return engine.SetProtocolFee(caller, feeBps)
	})
}

// ToggleEmergencyPause flips the pause flag and returns the new value.
func (n *Node) ToggleEmergencyPause(caller [20]byte) (bool, error) {
	var paused bool
	err := n.withCommit(func(engine *htlc.Engine) error {
		var innerErr error
		paused, innerErr = engine.ToggleEmergencyPause(caller)
		return innerErr
	})
	return paused, err
}

// WithdrawFees sweeps accumulated fees to the operator.
func (n *Node) WithdrawFees(caller [20]byte) (*big.Int, error) {
	var amount *big.Int
	err := n.withCommit(func(engine *htlc.Engine) error {
		var innerErr error
		amount, innerErr = engine.WithdrawFees(caller)
		return innerErr
	})
	return amount, err
}

// SeedAccount credits balance onto an address. Exposed for genesis loading.
func (n *Node) SeedAccount(addr [20]byte, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return state.NewManager(n.db).Credit(addr, amount)
}

// GetSwap returns the swap with the given id.
func (n *Node) GetSwap(id uint64) (*htlc.Swap, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.readEngine().GetSwap(id)
}

// GetSwapParticipant returns one side's escrow leg record.
func (n *Node) GetSwapParticipant(id uint64, role htlc.Role) (*htlc.ParticipantRecord, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.readEngine().GetSwapParticipant(id, role)
}

// GetUserSwaps returns the tracked swap-id lists for an identity.
func (n *Node) GetUserSwaps(addr [20]byte) (initiated, participated []uint64, err error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.readEngine().GetUserSwaps(addr)
}

// GetUserStats returns the per-identity statistics record.
func (n *Node) GetUserStats(addr [20]byte) (*htlc.UserStats, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.readEngine().GetUserStats(addr)
}

// GetSecretHashInfo returns the index entry for a hash value.
func (n *Node) GetSecretHashInfo(hash [32]byte) (*htlc.SecretHashRecord, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.readEngine().GetSecretHashInfo(hash)
}

// GetRouteStats returns aggregate statistics for an ordered identity pair.
func (n *Node) GetRouteStats(from, to [20]byte) (*htlc.RouteStats, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.readEngine().GetRouteStats(from, to)
}

// IsSwapExpired reports whether a swap's timelock has been reached.
func (n *Node) IsSwapExpired(id uint64) (bool, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.readEngine().IsSwapExpired(id)
}

// GetProtocolStats returns the protocol configuration and aggregate totals.
func (n *Node) GetProtocolStats() (*htlc.ProtocolState, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.readEngine().GetProtocolStats()
}

// GetBalance returns the ledger balance of an address.
func (n *Node) GetBalance(addr [20]byte) (*big.Int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return state.NewManager(n.db).BalanceOf(addr)
}
