package htlc

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"htlcnet/core/types"
)

const (
	EventTypeSwapInitiated     = "htlc.initiated"
	EventTypeSwapParticipated  = "htlc.participated"
	EventTypeSwapClaimed       = "htlc.claimed"
	EventTypeInitiatorClaimed  = "htlc.initiator_claimed"
	EventTypeSwapRefunded      = "htlc.refunded"
	EventTypeSwapCancelled     = "htlc.cancelled"
	EventTypeFeesWithdrawn     = "htlc.fees_withdrawn"
	EventTypePauseToggled      = "htlc.paused"
	EventTypeFeeUpdated        = "htlc.fee_updated"
	EventTypeTimelockBoundsSet = "htlc.timelock_bounds"
)

// NewInitiatedEvent returns the canonical payload for a newly created swap.
func NewInitiatedEvent(s *Swap) *types.Event { return newSwapEvent(EventTypeSwapInitiated, s) }

// NewParticipatedEvent returns the payload emitted when the participant locks
// their leg and the swap turns active.
func NewParticipatedEvent(s *Swap) *types.Event { return newSwapEvent(EventTypeSwapParticipated, s) }

// NewClaimedEvent returns the payload emitted when the participant claims by
// revealing the secret. The secret is part of the payload: revealing it is
// what authorizes the initiator's own claim.
func NewClaimedEvent(s *Swap) *types.Event {
	evt := newSwapEvent(EventTypeSwapClaimed, s)
	evt.Attributes["secret"] = hex.EncodeToString(s.Secret)
	return evt
}

// NewInitiatorClaimedEvent returns the payload emitted when the initiator
// collects the participant leg after the reveal.
func NewInitiatorClaimedEvent(s *Swap) *types.Event {
	return newSwapEvent(EventTypeInitiatorClaimed, s)
}

// NewRefundedEvent returns the payload emitted on a timeout refund.
func NewRefundedEvent(s *Swap) *types.Event { return newSwapEvent(EventTypeSwapRefunded, s) }

// NewCancelledEvent returns the payload emitted on an early cancellation.
func NewCancelledEvent(s *Swap) *types.Event { return newSwapEvent(EventTypeSwapCancelled, s) }

// NewFeesWithdrawnEvent returns the payload emitted when the operator sweeps
// collected fees out of the vault.
func NewFeesWithdrawnEvent(to [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeFeesWithdrawn,
		Attributes: map[string]string{
			"to":     formatAddress(to),
			"amount": formatAmount(amount),
		},
	}
}

// NewPauseToggledEvent returns the payload emitted when the emergency pause
// flag flips.
func NewPauseToggledEvent(paused bool) *types.Event {
	return &types.Event{
		Type: EventTypePauseToggled,
		Attributes: map[string]string{
			"paused": strconv.FormatBool(paused),
		},
	}
}

// NewFeeUpdatedEvent returns the payload emitted when the protocol fee rate
// changes.
func NewFeeUpdatedEvent(feeBps uint32) *types.Event {
	return &types.Event{
		Type: EventTypeFeeUpdated,
		Attributes: map[string]string{
			"feeBps": strconv.FormatUint(uint64(feeBps), 10),
		},
	}
}

// NewTimelockBoundsEvent returns the payload emitted when the timelock bounds
// change.
func NewTimelockBoundsEvent(min, max uint64) *types.Event {
	return &types.Event{
		Type: EventTypeTimelockBoundsSet,
		Attributes: map[string]string{
			"min": strconv.FormatUint(min, 10),
			"max": strconv.FormatUint(max, 10),
		},
	}
}

func newSwapEvent(eventType string, s *Swap) *types.Event {
	if s == nil {
		return &types.Event{Type: eventType, Attributes: map[string]string{}}
	}
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"id":                strconv.FormatUint(s.ID, 10),
			"initiator":         formatAddress(s.Initiator),
			"participant":       formatAddress(s.Participant),
			"initiatorAmount":   formatAmount(s.InitiatorAmount),
			"participantAmount": formatAmount(s.ParticipantAmount),
			"secretHash":        hex.EncodeToString(s.SecretHash[:]),
			"timelock":          strconv.FormatUint(s.Timelock, 10),
			"status":            s.Status.String(),
		},
	}
}

func formatAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}
