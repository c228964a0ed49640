package htlc

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"math/big"

	"htlcnet/core/events"
	"htlcnet/core/types"
)

var (
	errNilState    = errors.New("htlc engine: state not configured")
	errNilProtocol = errors.New("htlc engine: protocol state missing")
)

// engineState is the registry and ledger surface the engine runs against. The
// engine is the only writer of every record behind this interface; the
// transfer primitive is the external ledger adapter and must be atomic.
type engineState interface {
	SwapPut(*Swap) error
	SwapGet(id uint64) (*Swap, bool)
	ParticipantPut(*ParticipantRecord) error
	ParticipantGet(swapID uint64, role Role) (*ParticipantRecord, bool)
	SecretHashPut(hash [32]byte, rec *SecretHashRecord) error
	SecretHashGet(hash [32]byte) (*SecretHashRecord, bool)
	UserStatsPut(addr [20]byte, stats *UserStats) error
	UserStatsGet(addr [20]byte) (*UserStats, bool)
	RouteStatsPut(from, to [20]byte, stats *RouteStats) error
	RouteStatsGet(from, to [20]byte) (*RouteStats, bool)
	ProtocolStatePut(*ProtocolState) error
	ProtocolStateGet() (*ProtocolState, bool)
	VaultAddress() [20]byte
	BalanceOf(addr [20]byte) (*big.Int, error)
	Transfer(from, to [20]byte, amount *big.Int) error
}

type htlcEvent struct {
	evt *types.Event
}

func (e htlcEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e htlcEvent) Event() *types.Event { return e.evt }

// Engine implements the swap lifecycle state machine. It owns the registry
// exclusively and is the only component that moves escrowed value. Every
// public operation checks all of its preconditions before the first mutation;
// the caller is expected to run each operation inside one atomic commit unit.
type Engine struct {
	state    engineState
	emitter  events.Emitter
	operator [20]byte
	heightFn func() uint64
}

// NewEngine creates a swap engine with a no-op emitter and a zero height
// source. Callers wire the state backend, operator and height source before
// use.
func NewEngine() *Engine {
	return &Engine{
		emitter:  events.NoopEmitter{},
		heightFn: func() uint64 { return 0 },
	}
}

// SetState configures the registry/ledger backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetOperator configures the address allowed to invoke admin operations and
// receive fee sweeps.
func (e *Engine) SetOperator(addr [20]byte) { e.operator = addr }

// SetHeightFunc overrides the logical clock consulted by timelock checks.
// The engine only ever compares against the returned height.
func (e *Engine) SetHeightFunc(height func() uint64) {
	if height == nil {
		e.heightFn = func() uint64 { return 0 }
		return
	}
	e.heightFn = height
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(htlcEvent{evt: event})
}

func (e *Engine) height() uint64 {
	if e == nil || e.heightFn == nil {
		return 0
	}
	return e.heightFn()
}

// HashSecret returns the commitment for a secret preimage.
func HashSecret(secret []byte) [32]byte {
	return sha256.Sum256(secret)
}

// VerifySecretHash reports whether secret is the preimage of hash.
func VerifySecretHash(secret []byte, hash [32]byte) bool {
	digest := sha256.Sum256(secret)
	return bytes.Equal(digest[:], hash[:])
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// feeFor computes floor(amount * feeBps / 10000) with truncation toward zero.
func feeFor(amount *big.Int, feeBps uint32) *big.Int {
	fee := new(big.Int).Mul(cloneBigInt(amount), new(big.Int).SetUint64(uint64(feeBps)))
	return fee.Div(fee, big.NewInt(10_000))
}

func (e *Engine) loadSwap(id uint64) (*Swap, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	swap, ok := e.state.SwapGet(id)
	if !ok {
		return nil, ErrSwapNotFound
	}
	return swap, nil
}

func (e *Engine) loadProtocol() (*ProtocolState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	protocol, ok := e.state.ProtocolStateGet()
	if !ok {
		return nil, errNilProtocol
	}
	return protocol, nil
}

func (e *Engine) loadParticipant(swapID uint64, role Role) (*ParticipantRecord, error) {
	record, ok := e.state.ParticipantGet(swapID, role)
	if !ok {
		return nil, ErrSwapNotFound
	}
	return record, nil
}

func (e *Engine) loadUserStats(addr [20]byte) *UserStats {
	stats, ok := e.state.UserStatsGet(addr)
	if !ok {
		return NewUserStats()
	}
	return stats
}

func (e *Engine) loadRouteStats(from, to [20]byte) *RouteStats {
	stats, ok := e.state.RouteStatsGet(from, to)
	if !ok {
		return NewRouteStats()
	}
	return stats
}

// trackSwap appends id to one of the caller's tracking lists. Overflow is
// swallowed: tracking is best-effort and must not block the swap.
func (e *Engine) trackSwap(addr [20]byte, id uint64, role Role) error {
	stats := e.loadUserStats(addr)
	var ok bool
	switch role {
	case RoleInitiator:
		stats.Initiated, ok = AppendSwapID(stats.Initiated, id)
	case RoleParticipant:
		stats.Participated, ok = AppendSwapID(stats.Participated, id)
	}
	if !ok {
		return nil
	}
	return e.state.UserStatsPut(addr, stats)
}

// Initiate locks the initiator leg plus the protocol fee in the vault and
// creates the swap in pending state. The secret hash is bound to the new swap
// for its lifetime; a previously used hash is rejected.
func (e *Engine) Initiate(caller, participant [20]byte, initiatorAmount, participantAmount *big.Int, secretHash [32]byte, timelock uint64) (uint64, error) {
	protocol, err := e.loadProtocol()
	if err != nil {
		return 0, err
	}
	if protocol.Paused {
		return 0, ErrPaused
	}
	if caller == participant {
		return 0, ErrInvalidParticipant
	}
	initAmt := cloneBigInt(initiatorAmount)
	partAmt := cloneBigInt(participantAmount)
	if initAmt.Sign() <= 0 || partAmt.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	height := e.height()
	if timelock < height+protocol.MinTimelock || timelock > height+protocol.MaxTimelock {
		return 0, ErrInvalidTimelock
	}
	if existing, ok := e.state.SecretHashGet(secretHash); ok && existing.Used {
		return 0, ErrInvalidHash
	}
	fee := feeFor(initAmt, protocol.FeeBps)
	locked := new(big.Int).Add(initAmt, fee)
	balance, err := e.state.BalanceOf(caller)
	if err != nil {
		return 0, err
	}
	if balance.Cmp(locked) < 0 {
		return 0, ErrInsufficientBalance
	}

	if err := e.state.Transfer(caller, e.state.VaultAddress(), locked); err != nil {
		return 0, err
	}

	id := protocol.NextSwapID
	swap := &Swap{
		ID:                id,
		Initiator:         caller,
		Participant:       participant,
		InitiatorAmount:   initAmt,
		ParticipantAmount: partAmt,
		SecretHash:        secretHash,
		Timelock:          timelock,
		CreatedAt:         height,
		Status:            SwapPending,
	}
	if err := e.state.SwapPut(swap); err != nil {
		return 0, err
	}
	initiatorRecord := &ParticipantRecord{SwapID: id, Role: RoleInitiator, Amount: cloneBigInt(initAmt)}
	participantRecord := &ParticipantRecord{SwapID: id, Role: RoleParticipant, Amount: cloneBigInt(partAmt)}
	if err := e.state.ParticipantPut(initiatorRecord); err != nil {
		return 0, err
	}
	if err := e.state.ParticipantPut(participantRecord); err != nil {
		return 0, err
	}
	if err := e.state.SecretHashPut(secretHash, &SecretHashRecord{SwapID: id, Used: true}); err != nil {
		return 0, err
	}
	if err := e.trackSwap(caller, id, RoleInitiator); err != nil {
		return 0, err
	}
	if err := e.trackSwap(participant, id, RoleParticipant); err != nil {
		return 0, err
	}
	protocol.NextSwapID++
	protocol.TotalSwaps++
	protocol.FeesCollected = new(big.Int).Add(protocol.FeesCollected, fee)
	if err := e.state.ProtocolStatePut(protocol); err != nil {
		return 0, err
	}
	e.emit(NewInitiatedEvent(swap))
	return id, nil
}

// Participate locks the participant leg and activates the swap. Only the
// recorded participant may call, and only while the swap is pending and the
// timelock has not been reached.
func (e *Engine) Participate(caller [20]byte, id uint64) error {
	swap, err := e.loadSwap(id)
	if err != nil {
		return err
	}
	if caller != swap.Participant {
		return ErrUnauthorized
	}
	if swap.Status != SwapPending {
		return ErrInvalidSwap
	}
	if e.height() >= swap.Timelock {
		return ErrExpired
	}
	balance, err := e.state.BalanceOf(caller)
	if err != nil {
		return err
	}
	if balance.Cmp(swap.ParticipantAmount) < 0 {
		return ErrInsufficientBalance
	}
	protocol, err := e.loadProtocol()
	if err != nil {
		return err
	}

	if err := e.state.Transfer(caller, e.state.VaultAddress(), swap.ParticipantAmount); err != nil {
		return err
	}
	swap.Status = SwapActive
	if err := e.state.SwapPut(swap); err != nil {
		return err
	}
	protocol.TotalVolume = new(big.Int).Add(protocol.TotalVolume, swap.ParticipantAmount)
	if err := e.state.ProtocolStatePut(protocol); err != nil {
		return err
	}
	e.emit(NewParticipatedEvent(swap))
	return nil
}

// ClaimWithSecret pays the initiator leg to the participant in exchange for
// the secret preimage. Recording the secret is the atomicity anchor of the
// protocol: from this point the initiator is entitled to the counter-claim.
func (e *Engine) ClaimWithSecret(caller [20]byte, id uint64, secret []byte) error {
	swap, err := e.loadSwap(id)
	if err != nil {
		return err
	}
	if caller != swap.Participant {
		return ErrUnauthorized
	}
	if swap.Status != SwapActive {
		return ErrInvalidSwap
	}
	height := e.height()
	if height >= swap.Timelock {
		return ErrExpired
	}
	if len(secret) != SecretLength {
		return ErrInvalidSecret
	}
	if !VerifySecretHash(secret, swap.SecretHash) {
		return ErrInvalidSecret
	}
	record, err := e.loadParticipant(id, RoleParticipant)
	if err != nil {
		return err
	}
	if record.Claimed {
		return ErrAlreadyExecuted
	}

	if err := e.state.Transfer(e.state.VaultAddress(), swap.Participant, swap.InitiatorAmount); err != nil {
		return err
	}
	swap.Status = SwapCompleted
	swap.Secret = append([]byte(nil), secret...)
	swap.ExecutedAt = height
	if err := e.state.SwapPut(swap); err != nil {
		return err
	}
	record.Claimed = true
	if err := e.state.ParticipantPut(record); err != nil {
		return err
	}
	hashRecord, ok := e.state.SecretHashGet(swap.SecretHash)
	if !ok {
		hashRecord = &SecretHashRecord{SwapID: id, Used: true}
	}
	hashRecord.RevealedAt = height
	if err := e.state.SecretHashPut(swap.SecretHash, hashRecord); err != nil {
		return err
	}
	stats := e.loadUserStats(swap.Participant)
	ApplyUserSuccess(stats, swap.InitiatorAmount)
	if err := e.state.UserStatsPut(swap.Participant, stats); err != nil {
		return err
	}
	route := e.loadRouteStats(swap.Initiator, swap.Participant)
	ApplyRouteSuccess(route, swap.InitiatorAmount)
	if err := e.state.RouteStatsPut(swap.Initiator, swap.Participant, route); err != nil {
		return err
	}
	e.emit(NewClaimedEvent(swap))
	return nil
}

// ClaimInitiator pays the participant leg to the initiator after the secret
// has been revealed on the ledger.
func (e *Engine) ClaimInitiator(caller [20]byte, id uint64) error {
	swap, err := e.loadSwap(id)
	if err != nil {
		return err
	}
	if caller != swap.Initiator {
		return ErrUnauthorized
	}
	if swap.Status != SwapCompleted {
		return ErrInvalidSwap
	}
	if len(swap.Secret) == 0 {
		return ErrInvalidSecret
	}
	record, err := e.loadParticipant(id, RoleInitiator)
	if err != nil {
		return err
	}
	if record.Claimed {
		return ErrAlreadyExecuted
	}

	if err := e.state.Transfer(e.state.VaultAddress(), swap.Initiator, swap.ParticipantAmount); err != nil {
		return err
	}
	record.Claimed = true
	if err := e.state.ParticipantPut(record); err != nil {
		return err
	}
	stats := e.loadUserStats(swap.Initiator)
	ApplyUserSuccess(stats, swap.ParticipantAmount)
	if err := e.state.UserStatsPut(swap.Initiator, stats); err != nil {
		return err
	}
	e.emit(NewInitiatorClaimedEvent(swap))
	return nil
}

// RefundTimeout returns locked value to both parties once the timelock has
// been reached. The participant leg only exists when the swap was active, so
// the branch is decided on the status snapshot taken before any write.
func (e *Engine) RefundTimeout(caller [20]byte, id uint64) error {
	swap, err := e.loadSwap(id)
	if err != nil {
		return err
	}
	if caller != swap.Initiator {
		return ErrUnauthorized
	}
	if swap.Status != SwapPending && swap.Status != SwapActive {
		return ErrInvalidSwap
	}
	if e.height() < swap.Timelock {
		return ErrNotExpired
	}
	initiatorRecord, err := e.loadParticipant(id, RoleInitiator)
	if err != nil {
		return err
	}
	if initiatorRecord.Refunded {
		return ErrAlreadyExecuted
	}
	wasActive := swap.Status == SwapActive

	if err := e.state.Transfer(e.state.VaultAddress(), swap.Initiator, swap.InitiatorAmount); err != nil {
		return err
	}
	if wasActive {
		if err := e.state.Transfer(e.state.VaultAddress(), swap.Participant, swap.ParticipantAmount); err != nil {
			return err
		}
		participantRecord, err := e.loadParticipant(id, RoleParticipant)
		if err != nil {
			return err
		}
		participantRecord.Refunded = true
		if err := e.state.ParticipantPut(participantRecord); err != nil {
			return err
		}
	}
	swap.Status = SwapRefunded
	if err := e.state.SwapPut(swap); err != nil {
		return err
	}
	initiatorRecord.Refunded = true
	if err := e.state.ParticipantPut(initiatorRecord); err != nil {
		return err
	}
	route := e.loadRouteStats(swap.Initiator, swap.Participant)
	ApplyRouteFailure(route)
	if err := e.state.RouteStatsPut(swap.Initiator, swap.Participant, route); err != nil {
		return err
	}
	e.emit(NewRefundedEvent(swap))
	return nil
}

// Cancel lets the initiator abort a pending swap well before expiry. The
// window closes MinTimelock clock units ahead of the timelock so a cancel
// cannot race a participant in the final approach.
func (e *Engine) Cancel(caller [20]byte, id uint64) error {
	swap, err := e.loadSwap(id)
	if err != nil {
		return err
	}
	if caller != swap.Initiator {
		return ErrUnauthorized
	}
	if swap.Status != SwapPending {
		return ErrInvalidSwap
	}
	protocol, err := e.loadProtocol()
	if err != nil {
		return err
	}
	if swap.Timelock < protocol.MinTimelock || e.height() >= swap.Timelock-protocol.MinTimelock {
		return ErrInvalidTimelock
	}

	if err := e.state.Transfer(e.state.VaultAddress(), swap.Initiator, swap.InitiatorAmount); err != nil {
		return err
	}
	swap.Status = SwapCancelled
	if err := e.state.SwapPut(swap); err != nil {
		return err
	}
	e.emit(NewCancelledEvent(swap))
	return nil
}
