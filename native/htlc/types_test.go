package htlc

import (
	"math/big"
	"testing"
)

func TestSwapStatusValid(t *testing.T) {
	for _, status := range []SwapStatus{SwapPending, SwapActive, SwapCompleted, SwapRefunded, SwapCancelled} {
		if !status.Valid() {
			t.Fatalf("status %s reported invalid", status)
		}
	}
	if SwapStatus(200).Valid() {
		t.Fatal("out-of-range status reported valid")
	}
	if SwapPending.Terminal() || SwapActive.Terminal() {
		t.Fatal("non-terminal status reported terminal")
	}
	for _, status := range []SwapStatus{SwapCompleted, SwapRefunded, SwapCancelled} {
		if !status.Terminal() {
			t.Fatalf("status %s must be terminal", status)
		}
	}
}

func TestSwapClone(t *testing.T) {
	swap := &Swap{
		ID:                7,
		InitiatorAmount:   big.NewInt(100),
		ParticipantAmount: big.NewInt(200),
		Secret:            []byte{1, 2, 3},
		Status:            SwapActive,
	}
	clone := swap.Clone()
	clone.InitiatorAmount.SetInt64(999)
	clone.Secret[0] = 9
	clone.Status = SwapCompleted
	if swap.InitiatorAmount.Cmp(big.NewInt(100)) != 0 {
		t.Fatal("clone shares amount storage")
	}
	if swap.Secret[0] != 1 {
		t.Fatal("clone shares secret storage")
	}
	if swap.Status != SwapActive {
		t.Fatal("clone shares status")
	}
	if (*Swap)(nil).Clone() != nil {
		t.Fatal("nil clone must be nil")
	}
}

func TestUserStatsClone(t *testing.T) {
	stats := NewUserStats()
	stats.Initiated = []uint64{1, 2}
	clone := stats.Clone()
	clone.Initiated[0] = 99
	clone.TotalVolume.SetInt64(5)
	if stats.Initiated[0] != 1 {
		t.Fatal("clone shares initiated list")
	}
	if stats.TotalVolume.Sign() != 0 {
		t.Fatal("clone shares volume storage")
	}
}

func TestProtocolStateDefaults(t *testing.T) {
	protocol := NewProtocolState()
	if protocol.NextSwapID != 1 {
		t.Fatalf("first swap id = %d, want 1", protocol.NextSwapID)
	}
	if protocol.MinTimelock != DefaultMinTimelock || protocol.MaxTimelock != DefaultMaxTimelock {
		t.Fatalf("default bounds wrong: %+v", protocol)
	}
	if protocol.FeeBps != DefaultFeeBps || protocol.Paused {
		t.Fatalf("default fee/pause wrong: %+v", protocol)
	}
}

func TestFeeFor(t *testing.T) {
	cases := []struct {
		amount int64
		feeBps uint32
		want   int64
	}{
		{1_000_000, 10, 1_000},
		{1_000_000, 0, 0},
		{999, 10, 0},   // truncates toward zero
		{1_001, 10, 1}, // floor, never rounds up
		{12_345, 25, 30},
	}
	for _, tc := range cases {
		got := feeFor(big.NewInt(tc.amount), tc.feeBps)
		if got.Cmp(big.NewInt(tc.want)) != 0 {
			t.Fatalf("feeFor(%d, %d) = %s, want %d", tc.amount, tc.feeBps, got, tc.want)
		}
	}
}
