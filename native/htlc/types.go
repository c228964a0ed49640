package htlc

import "math/big"

// SwapStatus represents the lifecycle states of a hash time-locked swap.
type SwapStatus uint8

const (
	SwapPending SwapStatus = iota
	SwapActive
	SwapCompleted
	SwapRefunded
	SwapCancelled
)

// Valid reports whether the status value is within the supported range.
func (s SwapStatus) Valid() bool {
	switch s {
	case SwapPending, SwapActive, SwapCompleted, SwapRefunded, SwapCancelled:
		return true
	default:
		return false
	}
}

func (s SwapStatus) String() string {
	switch s {
	case SwapPending:
		return "pending"
	case SwapActive:
		return "active"
	case SwapCompleted:
		return "completed"
	case SwapRefunded:
		return "refunded"
	case SwapCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is absorbing: completed, refunded and
// cancelled swaps admit no further transition.
func (s SwapStatus) Terminal() bool {
	switch s {
	case SwapCompleted, SwapRefunded, SwapCancelled:
		return true
	default:
		return false
	}
}

// Swap captures the full escrow agreement between two principals. The secret
// hash gates the claim path; the timelock gates the refund path. ExecutedAt
// stays zero until a secret-based claim lands, and Secret stays nil until the
// participant reveals the preimage.
type Swap struct {
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
	Status            SwapStatus
}

// Clone returns a deep copy of the swap so callers can safely mutate the copy
// without affecting the stored instance.
func (s *Swap) Clone() *Swap {
	if s == nil {
		return nil
	}
	clone := *s
	if s.InitiatorAmount != nil {
		clone.InitiatorAmount = new(big.Int).Set(s.InitiatorAmount)
	} else {
		clone.InitiatorAmount = big.NewInt(0)
	}
	if s.ParticipantAmount != nil {
		clone.ParticipantAmount = new(big.Int).Set(s.ParticipantAmount)
	} else {
		clone.ParticipantAmount = big.NewInt(0)
	}
	if s.Secret != nil {
		clone.Secret = append([]byte(nil), s.Secret...)
	}
	return &clone
}

// Role identifies which side of the swap a participant record tracks.
type Role uint8

const (
	RoleInitiator Role = iota
	RoleParticipant
)

func (r Role) Valid() bool {
	return r == RoleInitiator || r == RoleParticipant
}

func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleParticipant:
		return "participant"
	default:
		return "unknown"
	}
}

// ParticipantRecord tracks the escrowed leg for one side of a swap. Claimed
// and Refunded each flip to true at most once and never reset.
type ParticipantRecord struct {
	SwapID   uint64
	Role     Role
	Amount   *big.Int
	Claimed  bool
	Refunded bool
}

// Clone returns a deep copy of the participant record.
func (p *ParticipantRecord) Clone() *ParticipantRecord {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Amount != nil {
		clone.Amount = new(big.Int).Set(p.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// SecretHashRecord binds a hash value to the single swap allowed to use it.
// RevealedAt stays zero until the bound swap's secret is disclosed.
type SecretHashRecord struct {
	SwapID     uint64
	Used       bool
	RevealedAt uint64
}

// trackedSwapCap bounds the per-user swap-id tracking lists. Appends beyond
// the cap fail softly; the swap itself still proceeds.
const trackedSwapCap = 100

// SecretLength is the required preimage size in bytes.
const SecretLength = 32

// UserStats aggregates per-identity activity. The id lists are append-only
// and best-effort; the volume and success counters are authoritative.
type UserStats struct {
	Initiated       []uint64
	Participated    []uint64
	TotalVolume     *big.Int
	SuccessfulSwaps uint64
}

// Clone returns a deep copy of the user statistics record.
func (u *UserStats) Clone() *UserStats {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Initiated = append([]uint64(nil), u.Initiated...)
	clone.Participated = append([]uint64(nil), u.Participated...)
	if u.TotalVolume != nil {
		clone.TotalVolume = new(big.Int).Set(u.TotalVolume)
	} else {
		clone.TotalVolume = big.NewInt(0)
	}
	return &clone
}

// NewUserStats returns an empty statistics record with a non-nil volume.
func NewUserStats() *UserStats {
	return &UserStats{TotalVolume: big.NewInt(0)}
}

// RouteStats aggregates activity for an ordered (initiator, participant)
// pair. SuccessRate is the raw output of the incremental recurrence applied
// on each terminal transition; it is not a normalized percentage and diverges
// from [0,100] under repeated successes. Stored verbatim for parity with the
// deployed contract, saturating at the uint64 ceiling.
type RouteStats struct {
	Swaps       uint64
	Volume      *big.Int
	SuccessRate uint64
}

// Clone returns a deep copy of the route statistics record.
func (r *RouteStats) Clone() *RouteStats {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Volume != nil {
		clone.Volume = new(big.Int).Set(r.Volume)
	} else {
		clone.Volume = big.NewInt(0)
	}
	return &clone
}

// NewRouteStats returns an empty route record with a non-nil volume.
func NewRouteStats() *RouteStats {
	return &RouteStats{Volume: big.NewInt(0)}
}

// Protocol parameter defaults, in clock units and basis points.
const (
	DefaultMinTimelock uint64 = 144
	DefaultMaxTimelock uint64 = 4320
	DefaultFeeBps      uint32 = 10

	// maxFeeBps caps the configurable protocol fee at 10%.
	maxFeeBps uint32 = 1000
)

// ProtocolState carries the scalar protocol configuration and the aggregate
// accounting totals. It is owned by the swap engine; admin methods mutate the
// parameters, engine transitions mutate the counters.
type ProtocolState struct {
	NextSwapID    uint64
	MinTimelock   uint64
	MaxTimelock   uint64
	FeeBps        uint32
	Paused        bool
	TotalVolume   *big.Int
	TotalSwaps    uint64
	FeesCollected *big.Int
}

// Clone returns a deep copy of the protocol state.
func (p *ProtocolState) Clone() *ProtocolState {
	if p == nil {
		return nil
	}
	clone := *p
	if p.TotalVolume != nil {
		clone.TotalVolume = new(big.Int).Set(p.TotalVolume)
	} else {
		clone.TotalVolume = big.NewInt(0)
	}
	if p.FeesCollected != nil {
		clone.FeesCollected = new(big.Int).Set(p.FeesCollected)
	} else {
		clone.FeesCollected = big.NewInt(0)
	}
	return &clone
}

// NewProtocolState returns the genesis protocol state with default bounds.
func NewProtocolState() *ProtocolState {
	return &ProtocolState{
		NextSwapID:    1,
		MinTimelock:   DefaultMinTimelock,
		MaxTimelock:   DefaultMaxTimelock,
		FeeBps:        DefaultFeeBps,
		TotalVolume:   big.NewInt(0),
		FeesCollected: big.NewInt(0),
	}
}
