package htlc

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"htlcnet/core/events"
)

type participantKey struct {
	swapID uint64
	role   Role
}

type routeKey struct {
	from [20]byte
	to   [20]byte
}

type mockState struct {
	swaps        map[uint64]*Swap
	participants map[participantKey]*ParticipantRecord
	secretHashes map[[32]byte]*SecretHashRecord
	userStats    map[[20]byte]*UserStats
	routeStats   map[routeKey]*RouteStats
	protocol     *ProtocolState
	balances     map[[20]byte]*big.Int
	vault        [20]byte
}

func newMockState() *mockState {
	return &mockState{
		swaps:        make(map[uint64]*Swap),
		participants: make(map[participantKey]*ParticipantRecord),
		secretHashes: make(map[[32]byte]*SecretHashRecord),
		userStats:    make(map[[20]byte]*UserStats),
		routeStats:   make(map[routeKey]*RouteStats),
		protocol:     NewProtocolState(),
		balances:     make(map[[20]byte]*big.Int),
		vault:        newTestAddress(0xEE),
	}
}

func (m *mockState) SwapPut(s *Swap) error {
	m.swaps[s.ID] = s.Clone()
	return nil
}

func (m *mockState) SwapGet(id uint64) (*Swap, bool) {
	swap, ok := m.swaps[id]
	if !ok {
		return nil, false
	}
	return swap.Clone(), true
}

func (m *mockState) ParticipantPut(p *ParticipantRecord) error {
	m.participants[participantKey{p.SwapID, p.Role}] = p.Clone()
	return nil
}

func (m *mockState) ParticipantGet(swapID uint64, role Role) (*ParticipantRecord, bool) {
	record, ok := m.participants[participantKey{swapID, role}]
	if !ok {
		return nil, false
	}
	return record.Clone(), true
}

func (m *mockState) SecretHashPut(hash [32]byte, rec *SecretHashRecord) error {
	clone := *rec
	m.secretHashes[hash] = &clone
	return nil
}

func (m *mockState) SecretHashGet(hash [32]byte) (*SecretHashRecord, bool) {
	record, ok := m.secretHashes[hash]
	if !ok {
		return nil, false
	}
	clone := *record
	return &clone, true
}

func (m *mockState) UserStatsPut(addr [20]byte, stats *UserStats) error {
	m.userStats[addr] = stats.Clone()
	return nil
}

func (m *mockState) UserStatsGet(addr [20]byte) (*UserStats, bool) {
	stats, ok := m.userStats[addr]
	if !ok {
		return nil, false
	}
	return stats.Clone(), true
}

func (m *mockState) RouteStatsPut(from, to [20]byte, stats *RouteStats) error {
	m.routeStats[routeKey{from, to}] = stats.Clone()
	return nil
}

func (m *mockState) RouteStatsGet(from, to [20]byte) (*RouteStats, bool) {
	stats, ok := m.routeStats[routeKey{from, to}]
	if !ok {
		return nil, false
	}
	return stats.Clone(), true
}

func (m *mockState) ProtocolStatePut(p *ProtocolState) error {
	m.protocol = p.Clone()
	return nil
}

func (m *mockState) ProtocolStateGet() (*ProtocolState, bool) {
	if m.protocol == nil {
		return nil, false
	}
	return m.protocol.Clone(), true
}

func (m *mockState) VaultAddress() [20]byte { return m.vault }

func (m *mockState) BalanceOf(addr [20]byte) (*big.Int, error) {
	if balance, ok := m.balances[addr]; ok {
		return new(big.Int).Set(balance), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) Transfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return errors.New("negative transfer")
	}
	fromBalance, _ := m.BalanceOf(from)
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBalance, _ := m.BalanceOf(to)
	m.balances[from] = fromBalance.Sub(fromBalance, amount)
	m.balances[to] = toBalance.Add(toBalance, amount)
	return nil
}

func (m *mockState) setBalance(addr [20]byte, amount int64) {
	m.balances[addr] = big.NewInt(amount)
}

func (m *mockState) balance(addr [20]byte) *big.Int {
	balance, _ := m.BalanceOf(addr)
	return balance
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

type testClock struct {
	height uint64
}

func (c *testClock) advance(delta uint64) { c.height += delta }

func newTestEngine(t *testing.T) (*Engine, *mockState, *testClock) {
	t.Helper()
	state := newMockState()
	clock := &testClock{height: 1000}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetOperator(newTestAddress(0xAD))
	engine.SetHeightFunc(func() uint64 { return clock.height })
	return engine, state, clock
}

var (
	alice = newTestAddress(0xA1)
	bob   = newTestAddress(0xB2)
)

func mustInitiate(t *testing.T, engine *Engine, state *mockState, secret []byte, timelock uint64) uint64 {
	t.Helper()
	state.setBalance(alice, 2_000_000)
	state.setBalance(bob, 3_000_000)
	id, err := engine.Initiate(alice, bob, big.NewInt(1_000_000), big.NewInt(2_000_000), HashSecret(secret), timelock)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	return id
}

func TestInitiateLocksAmountPlusFee(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	secret := []byte("ordinary swap secret 0123456789a")
	id := mustInitiate(t, engine, state, secret, 1200)

	if id != 1 {
		t.Fatalf("expected first swap id 1, got %d", id)
	}
	// feeBps=10 on 1,000,000 locks exactly 1,001,000.
	if got := state.balance(alice); got.Cmp(big.NewInt(999_000)) != 0 {
		t.Fatalf("initiator balance = %s, want 999000", got)
	}
	if got := state.balance(state.vault); got.Cmp(big.NewInt(1_001_000)) != 0 {
		t.Fatalf("vault balance = %s, want 1001000", got)
	}
	swap, ok := state.SwapGet(id)
	if !ok {
		t.Fatal("swap not stored")
	}
	if swap.Status != SwapPending {
		t.Fatalf("status = %s, want pending", swap.Status)
	}
	if swap.Secret != nil {
		t.Fatal("secret must be unset at initiation")
	}
	if swap.ExecutedAt != 0 {
		t.Fatalf("executedAt = %d, want 0", swap.ExecutedAt)
	}
	for _, role := range []Role{RoleInitiator, RoleParticipant} {
		record, ok := state.ParticipantGet(id, role)
		if !ok {
			t.Fatalf("missing %s record", role)
		}
		if record.Claimed || record.Refunded {
			t.Fatalf("%s record must start unclaimed and unrefunded", role)
		}
	}
	hashRecord, ok := state.SecretHashGet(swap.SecretHash)
	if !ok || !hashRecord.Used || hashRecord.SwapID != id {
		t.Fatalf("secret hash not bound: %+v", hashRecord)
	}
	protocol, _ := state.ProtocolStateGet()
	if protocol.NextSwapID != 2 || protocol.TotalSwaps != 1 {
		t.Fatalf("protocol counters wrong: %+v", protocol)
	}
	if protocol.FeesCollected.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("fees collected = %s, want 1000", protocol.FeesCollected)
	}
}

func TestInitiateValidations(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	state.setBalance(alice, 2_000_000)
	hash := HashSecret([]byte("validation secret abcdefghijklmn"))

	if _, err := engine.Initiate(alice, alice, big.NewInt(1), big.NewInt(1), hash, 1200); !errors.Is(err, ErrInvalidParticipant) {
		t.Fatalf("self swap: %v", err)
	}
	if _, err := engine.Initiate(alice, bob, big.NewInt(0), big.NewInt(1), hash, 1200); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero initiator amount: %v", err)
	}
	if _, err := engine.Initiate(alice, bob, big.NewInt(1), big.NewInt(0), hash, 1200); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero participant amount: %v", err)
	}
	// Height is 1000, bounds [144, 4320].
	if _, err := engine.Initiate(alice, bob, big.NewInt(1), big.NewInt(1), hash, 1143); !errors.Is(err, ErrInvalidTimelock) {
		t.Fatalf("timelock below minimum: %v", err)
	}
	if _, err := engine.Initiate(alice, bob, big.NewInt(1), big.NewInt(1), hash, 5321); !errors.Is(err, ErrInvalidTimelock) {
		t.Fatalf("timelock above maximum: %v", err)
	}
	if _, err := engine.Initiate(alice, bob, big.NewInt(5_000_000), big.NewInt(1), hash, 1200); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("insufficient balance: %v", err)
	}
	// Nothing may have moved or been written.
	if got := state.balance(alice); got.Cmp(big.NewInt(2_000_000)) != 0 {
		t.Fatalf("failed initiations must not move funds, balance = %s", got)
	}
	if len(state.swaps) != 0 {
		t.Fatal("failed initiations must not create swaps")
	}
}

func TestInitiateRejectsReusedHash(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	secret := []byte("reused hash secret 0123456789abc")
	mustInitiate(t, engine, state, secret, 1200)

	state.setBalance(bob, 5_000_000)
	if _, err := engine.Initiate(bob, alice, big.NewInt(1), big.NewInt(1), HashSecret(secret), 1200); !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("hash reuse: %v", err)
	}
}

func TestInitiateWhilePaused(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	if _, err := engine.ToggleEmergencyPause(newTestAddress(0xAD)); err != nil {
		t.Fatalf("pause: %v", err)
	}
	state.setBalance(alice, 2_000_000)
	hash := HashSecret([]byte("paused protocol secret 012345678"))
	if _, err := engine.Initiate(alice, bob, big.NewInt(1), big.NewInt(1), hash, 1200); !errors.Is(err, ErrPaused) {
		t.Fatalf("paused initiate: %v", err)
	}
}

func TestHappyPath(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	secret := []byte("happy path secret 0123456789abcd")
	id := mustInitiate(t, engine, state, secret, 1200)

	if err := engine.Participate(bob, id); err != nil {
		t.Fatalf("participate: %v", err)
	}
	swap, _ := state.SwapGet(id)
	if swap.Status != SwapActive {
		t.Fatalf("status after participate = %s, want active", swap.Status)
	}
	protocol, _ := state.ProtocolStateGet()
	if protocol.TotalVolume.Cmp(big.NewInt(2_000_000)) != 0 {
		t.Fatalf("total volume = %s, want 2000000", protocol.TotalVolume)
	}

	if err := engine.ClaimWithSecret(bob, id, secret); err != nil {
		t.Fatalf("claim with secret: %v", err)
	}
	swap, _ = state.SwapGet(id)
	if swap.Status != SwapCompleted {
		t.Fatalf("status after claim = %s, want completed", swap.Status)
	}
	if !bytes.Equal(swap.Secret, secret) {
		t.Fatal("secret not recorded")
	}
	if swap.ExecutedAt != 1000 {
		t.Fatalf("executedAt = %d, want 1000", swap.ExecutedAt)
	}
	hashRecord, _ := state.SecretHashGet(swap.SecretHash)
	if hashRecord.RevealedAt != 1000 {
		t.Fatalf("revealedAt = %d, want 1000", hashRecord.RevealedAt)
	}

	if err := engine.ClaimInitiator(alice, id); err != nil {
		t.Fatalf("claim initiator: %v", err)
	}

	// Initiator: started with 2,000,000, locked 1,001,000, received 2,000,000.
	if got := state.balance(alice); got.Cmp(big.NewInt(2_999_000)) != 0 {
		t.Fatalf("initiator final balance = %s, want 2999000", got)
	}
	// Participant: started with 3,000,000, locked 2,000,000, received 1,000,000.
	if got := state.balance(bob); got.Cmp(big.NewInt(2_000_000)) != 0 {
		t.Fatalf("participant final balance = %s, want 2000000", got)
	}
	// Only the fee remains in custody.
	if got := state.balance(state.vault); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("vault final balance = %s, want 1000", got)
	}
	for _, role := range []Role{RoleInitiator, RoleParticipant} {
		record, _ := state.ParticipantGet(id, role)
		if !record.Claimed {
			t.Fatalf("%s record not marked claimed", role)
		}
	}

	initiatorStats, _ := state.UserStatsGet(alice)
	if initiatorStats.SuccessfulSwaps != 1 || initiatorStats.TotalVolume.Cmp(big.NewInt(2_000_000)) != 0 {
		t.Fatalf("initiator stats wrong: %+v", initiatorStats)
	}
	participantStats, _ := state.UserStatsGet(bob)
	if participantStats.SuccessfulSwaps != 1 || participantStats.TotalVolume.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("participant stats wrong: %+v", participantStats)
	}
	route, _ := state.RouteStatsGet(alice, bob)
	if route.Swaps != 1 || route.SuccessRate != 10_000 {
		t.Fatalf("route stats wrong: %+v", route)
	}
}

func TestClaimGuards(t *testing.T) {
	engine, state, clock := newTestEngine(t)
	secret := []byte("claim guard secret 0123456789abc")
	id := mustInitiate(t, engine, state, secret, 1200)

	// Claim before participate: swap still pending.
	if err := engine.ClaimWithSecret(bob, id, secret); !errors.Is(err, ErrInvalidSwap) {
		t.Fatalf("claim while pending: %v", err)
	}
	if err := engine.Participate(bob, id); err != nil {
		t.Fatalf("participate: %v", err)
	}
	if err := engine.ClaimWithSecret(alice, id, secret); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("claim by initiator: %v", err)
	}
	if err := engine.ClaimWithSecret(bob, id, []byte("wrong guess at the preimage 0123")); !errors.Is(err, ErrInvalidSecret) {
		t.Fatalf("claim with wrong secret: %v", err)
	}
	// Preimages must be exactly 32 bytes; shorter or longer inputs are
	// rejected before hashing.
	if err := engine.ClaimWithSecret(bob, id, secret[:16]); !errors.Is(err, ErrInvalidSecret) {
		t.Fatalf("claim with short secret: %v", err)
	}
	if err := engine.ClaimWithSecret(bob, id, append(append([]byte(nil), secret...), 0x00)); !errors.Is(err, ErrInvalidSecret) {
		t.Fatalf("claim with oversized secret: %v", err)
	}
	clock.advance(200)
	if err := engine.ClaimWithSecret(bob, id, secret); !errors.Is(err, ErrExpired) {
		t.Fatalf("claim after timelock: %v", err)
	}
	if err := engine.ClaimInitiator(alice, id); !errors.Is(err, ErrInvalidSwap) {
		t.Fatalf("initiator claim before completion: %v", err)
	}
}

func TestDoubleClaimRejected(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	secret := []byte("double claim secret 0123456789ab")
	id := mustInitiate(t, engine, state, secret, 1200)
	if err := engine.Participate(bob, id); err != nil {
		t.Fatalf("participate: %v", err)
	}
	if err := engine.ClaimWithSecret(bob, id, secret); err != nil {
		t.Fatalf("claim: %v", err)
	}
	// The swap is completed, so a repeat fails on state before the claimed flag.
	if err := engine.ClaimWithSecret(bob, id, secret); !errors.Is(err, ErrInvalidSwap) {
		t.Fatalf("second participant claim: %v", err)
	}
	if err := engine.ClaimInitiator(alice, id); err != nil {
		t.Fatalf("initiator claim: %v", err)
	}
	if err := engine.ClaimInitiator(alice, id); !errors.Is(err, ErrAlreadyExecuted) {
		t.Fatalf("second initiator claim: %v", err)
	}
}

func TestParticipateGuards(t *testing.T) {
	engine, state, clock := newTestEngine(t)
	secret := []byte("participate guard secret 0123456")
	id := mustInitiate(t, engine, state, secret, 1200)

	if err := engine.Participate(alice, id); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("participate by initiator: %v", err)
	}
	if err := engine.Participate(bob, id+99); !errors.Is(err, ErrSwapNotFound) {
		t.Fatalf("participate unknown swap: %v", err)
	}
	state.setBalance(bob, 1)
	if err := engine.Participate(bob, id); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("participate broke: %v", err)
	}
	state.setBalance(bob, 3_000_000)
	clock.advance(200)
	if err := engine.Participate(bob, id); !errors.Is(err, ErrExpired) {
		t.Fatalf("participate after timelock: %v", err)
	}
}

func TestRefundTimeoutActiveSwap(t *testing.T) {
	engine, state, clock := newTestEngine(t)
	secret := []byte("timeout refund secret 0123456789")
	id := mustInitiate(t, engine, state, secret, 1200)
	if err := engine.Participate(bob, id); err != nil {
		t.Fatalf("participate: %v", err)
	}

	if err := engine.RefundTimeout(alice, id); !errors.Is(err, ErrNotExpired) {
		t.Fatalf("refund before timelock: %v", err)
	}
	clock.advance(200)
	if err := engine.RefundTimeout(bob, id); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("refund by participant: %v", err)
	}
	if err := engine.RefundTimeout(alice, id); err != nil {
		t.Fatalf("refund: %v", err)
	}

	// Both parties get their locked leg back; the fee stays collected.
	if got := state.balance(alice); got.Cmp(big.NewInt(1_999_000)) != 0 {
		t.Fatalf("initiator balance after refund = %s, want 1999000", got)
	}
	if got := state.balance(bob); got.Cmp(big.NewInt(3_000_000)) != 0 {
		t.Fatalf("participant balance after refund = %s, want 3000000", got)
	}
	swap, _ := state.SwapGet(id)
	if swap.Status != SwapRefunded {
		t.Fatalf("status = %s, want refunded", swap.Status)
	}
	initiatorRecord, _ := state.ParticipantGet(id, RoleInitiator)
	participantRecord, _ := state.ParticipantGet(id, RoleParticipant)
	if !initiatorRecord.Refunded || !participantRecord.Refunded {
		t.Fatal("both records must be marked refunded for an active swap")
	}
	route, _ := state.RouteStatsGet(alice, bob)
	if route.Swaps != 1 || route.SuccessRate != 0 || route.Volume.Sign() != 0 {
		t.Fatalf("route failure not recorded: %+v", route)
	}

	if err := engine.RefundTimeout(alice, id); !errors.Is(err, ErrInvalidSwap) {
		t.Fatalf("refund of terminal swap: %v", err)
	}
}

func TestRefundTimeoutPendingSwap(t *testing.T) {
	engine, state, clock := newTestEngine(t)
	secret := []byte("pending refund secret 0123456789")
	id := mustInitiate(t, engine, state, secret, 1200)
	clock.advance(200)

	if err := engine.RefundTimeout(alice, id); err != nil {
		t.Fatalf("refund: %v", err)
	}
	// Participant never locked anything and must not be touched.
	if got := state.balance(bob); got.Cmp(big.NewInt(3_000_000)) != 0 {
		t.Fatalf("participant balance = %s, want 3000000", got)
	}
	participantRecord, _ := state.ParticipantGet(id, RoleParticipant)
	if participantRecord.Refunded {
		t.Fatal("participant record must stay unrefunded for a pending swap")
	}
}

func TestCancelWindow(t *testing.T) {
	engine, state, clock := newTestEngine(t)
	secret := []byte("cancel window secret 01234567890")
	id := mustInitiate(t, engine, state, secret, 1200)

	if err := engine.Cancel(bob, id); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("cancel by participant: %v", err)
	}
	// Timelock 1200, min bound 144: the window closes at height 1056.
	clock.height = 1055
	if err := engine.Cancel(alice, id); err != nil {
		t.Fatalf("cancel inside window: %v", err)
	}
	swap, _ := state.SwapGet(id)
	if swap.Status != SwapCancelled {
		t.Fatalf("status = %s, want cancelled", swap.Status)
	}
	if got := state.balance(alice); got.Cmp(big.NewInt(1_999_000)) != 0 {
		t.Fatalf("initiator balance after cancel = %s, want 1999000", got)
	}

	secret2 := []byte("cancel window secret 01234567891")
	id2 := mustInitiate(t, engine, state, secret2, 1300)
	clock.height = 1156
	if err := engine.Cancel(alice, id2); !errors.Is(err, ErrInvalidTimelock) {
		t.Fatalf("cancel at window edge: %v", err)
	}
	swap2, _ := state.SwapGet(id2)
	if swap2.Status != SwapPending {
		t.Fatalf("status = %s, want still pending", swap2.Status)
	}
}

func TestTrackingListsBestEffort(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	full := NewUserStats()
	for i := uint64(0); i < 100; i++ {
		full.Initiated = append(full.Initiated, i)
	}
	if err := state.UserStatsPut(alice, full); err != nil {
		t.Fatalf("seed stats: %v", err)
	}

	secret := []byte("tracking overflow secret 0123456")
	id := mustInitiate(t, engine, state, secret, 1200)

	stats, _ := state.UserStatsGet(alice)
	if len(stats.Initiated) != 100 {
		t.Fatalf("initiated list length = %d, want capped 100", len(stats.Initiated))
	}
	// The swap itself proceeded despite the full list.
	if _, ok := state.SwapGet(id); !ok {
		t.Fatal("swap must proceed when tracking append fails")
	}
	participantStats, _ := state.UserStatsGet(bob)
	if len(participantStats.Participated) != 1 || participantStats.Participated[0] != id {
		t.Fatalf("participant tracking wrong: %+v", participantStats.Participated)
	}
}

func TestAdminGuards(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	operator := newTestAddress(0xAD)

	if err := engine.SetTimelockBounds(alice, 10, 100); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("bounds by non-operator: %v", err)
	}
	if err := engine.SetTimelockBounds(operator, 0, 100); !errors.Is(err, ErrInvalidTimelock) {
		t.Fatalf("zero min bound: %v", err)
	}
	if err := engine.SetTimelockBounds(operator, 100, 100); !errors.Is(err, ErrInvalidTimelock) {
		t.Fatalf("max not above min: %v", err)
	}
	if err := engine.SetTimelockBounds(operator, 10, 100); err != nil {
		t.Fatalf("set bounds: %v", err)
	}
	if err := engine.SetProtocolFee(operator, 1001); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("fee above cap: %v", err)
	}
	if err := engine.SetProtocolFee(operator, 25); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	protocol, _ := state.ProtocolStateGet()
	if protocol.MinTimelock != 10 || protocol.MaxTimelock != 100 || protocol.FeeBps != 25 {
		t.Fatalf("protocol params wrong: %+v", protocol)
	}
}

func TestWithdrawFees(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	operator := newTestAddress(0xAD)
	secret := []byte("fee withdrawal secret 0123456789")
	mustInitiate(t, engine, state, secret, 1200)

	if _, err := engine.WithdrawFees(alice); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("withdraw by non-operator: %v", err)
	}
	amount, err := engine.WithdrawFees(operator)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if amount.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("withdrawn = %s, want 1000", amount)
	}
	if got := state.balance(operator); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("operator balance = %s, want 1000", got)
	}
	protocol, _ := state.ProtocolStateGet()
	if protocol.FeesCollected.Sign() != 0 {
		t.Fatalf("fees collected = %s, want 0", protocol.FeesCollected)
	}
	if _, err := engine.WithdrawFees(operator); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("withdraw with nothing collected: %v", err)
	}
}

func TestEventsEmitted(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	emitter := events.NewMemoryEmitter(0)
	engine.SetEmitter(emitter)

	secret := []byte("event emission secret 0123456789")
	id := mustInitiate(t, engine, state, secret, 1200)
	if err := engine.Participate(bob, id); err != nil {
		t.Fatalf("participate: %v", err)
	}
	if err := engine.ClaimWithSecret(bob, id, secret); err != nil {
		t.Fatalf("claim: %v", err)
	}

	payloads := emitter.Events()
	wantTypes := []string{EventTypeSwapInitiated, EventTypeSwapParticipated, EventTypeSwapClaimed}
	if len(payloads) != len(wantTypes) {
		t.Fatalf("got %d events, want %d", len(payloads), len(wantTypes))
	}
	for i, want := range wantTypes {
		if payloads[i].Type != want {
			t.Fatalf("event %d type = %s, want %s", i, payloads[i].Type, want)
		}
	}
	claimed := payloads[2]
	if claimed.Attributes["secret"] == "" {
		t.Fatal("claim event must disclose the secret")
	}
}

func TestQueries(t *testing.T) {
	engine, state, clock := newTestEngine(t)
	secret := []byte("query surface secret 01234567890")
	id := mustInitiate(t, engine, state, secret, 1200)

	swap, err := engine.GetSwap(id)
	if err != nil || swap.ID != id {
		t.Fatalf("get swap: %v %+v", err, swap)
	}
	if _, err := engine.GetSwap(id + 7); !errors.Is(err, ErrSwapNotFound) {
		t.Fatalf("get unknown swap: %v", err)
	}
	record, err := engine.GetSwapParticipant(id, RoleParticipant)
	if err != nil || record.Amount.Cmp(big.NewInt(2_000_000)) != 0 {
		t.Fatalf("get participant: %v %+v", err, record)
	}
	initiated, participated, err := engine.GetUserSwaps(alice)
	if err != nil || len(initiated) != 1 || len(participated) != 0 {
		t.Fatalf("get user swaps: %v %v %v", err, initiated, participated)
	}
	info, err := engine.GetSecretHashInfo(HashSecret(secret))
	if err != nil || info == nil || info.SwapID != id {
		t.Fatalf("get secret hash info: %v %+v", err, info)
	}
	unknown, err := engine.GetSecretHashInfo(HashSecret([]byte("never bound")))
	if err != nil || unknown != nil {
		t.Fatalf("unknown hash info: %v %+v", err, unknown)
	}
	expired, err := engine.IsSwapExpired(id)
	if err != nil || expired {
		t.Fatalf("expiry before timelock: %v %v", err, expired)
	}
	clock.advance(200)
	expired, err = engine.IsSwapExpired(id)
	if err != nil || !expired {
		t.Fatalf("expiry at timelock: %v %v", err, expired)
	}
	if !VerifySecretHash(secret, HashSecret(secret)) {
		t.Fatal("verify secret hash")
	}
	if VerifySecretHash([]byte("other"), HashSecret(secret)) {
		t.Fatal("verify must reject a wrong preimage")
	}
}
