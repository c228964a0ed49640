package htlc

// Read-only projections over the registry. Every accessor clones before
// returning so callers can never mutate stored records.

// GetSwap returns the swap with the given id.
func (e *Engine) GetSwap(id uint64) (*Swap, error) {
	swap, err := e.loadSwap(id)
	if err != nil {
		return nil, err
	}
	return swap.Clone(), nil
}

// GetSwapParticipant returns the participant record for one side of a swap.
func (e *Engine) GetSwapParticipant(id uint64, role Role) (*ParticipantRecord, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if !role.Valid() {
		return nil, ErrInvalidSwap
	}
	record, ok := e.state.ParticipantGet(id, role)
	if !ok {
		return nil, ErrSwapNotFound
	}
	return record.Clone(), nil
}

// GetUserSwaps returns the tracked swap-id lists for an identity. Both lists
// are best-effort and capped; see UserStats.
func (e *Engine) GetUserSwaps(addr [20]byte) (initiated, participated []uint64, err error) {
	if e == nil || e.state == nil {
		return nil, nil, errNilState
	}
	stats := e.loadUserStats(addr)
	return append([]uint64(nil), stats.Initiated...), append([]uint64(nil), stats.Participated...), nil
}

// GetUserStats returns the full statistics record for an identity.
func (e *Engine) GetUserStats(addr [20]byte) (*UserStats, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadUserStats(addr).Clone(), nil
}

// GetSecretHashInfo returns the index entry for a hash value, or nil when the
// hash has never been bound.
func (e *Engine) GetSecretHashInfo(hash [32]byte) (*SecretHashRecord, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	record, ok := e.state.SecretHashGet(hash)
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

// GetRouteStats returns the aggregate statistics for an ordered identity
// pair. Routes with no history return a zero record.
func (e *Engine) GetRouteStats(from, to [20]byte) (*RouteStats, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadRouteStats(from, to).Clone(), nil
}

// IsSwapExpired reports whether the swap's timelock has been reached.
func (e *Engine) IsSwapExpired(id uint64) (bool, error) {
	swap, err := e.loadSwap(id)
	if err != nil {
		return false, err
	}
	return e.height() >= swap.Timelock, nil
}

// GetProtocolStats returns the protocol configuration and aggregate totals.
func (e *Engine) GetProtocolStats() (*ProtocolState, error) {
	protocol, err := e.loadProtocol()
	if err != nil {
		return nil, err
	}
	return protocol.Clone(), nil
}
