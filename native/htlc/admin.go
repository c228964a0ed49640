package htlc

import "math/big"

// Admin surface: guarded setters over the protocol state plus the fee sweep.
// All checks are delegated to the protocol state the engine itself reads.

func (e *Engine) requireOperator(caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != e.operator || e.operator == ([20]byte{}) {
		return ErrUnauthorized
	}
	return nil
}

// SetTimelockBounds updates the [min, max] window new swaps must set their
// timelock within, in clock units relative to creation height.
func (e *Engine) SetTimelockBounds(caller [20]byte, min, max uint64) error {
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	if min == 0 || max <= min {
		return ErrInvalidTimelock
	}
	protocol, err := e.loadProtocol()
	if err != nil {
		return err
	}
	protocol.MinTimelock = min
	protocol.MaxTimelock = max
	if err := e.state.ProtocolStatePut(protocol); err != nil {
		return err
	}
	e.emit(NewTimelockBoundsEvent(min, max))
	return nil
}

// SetProtocolFee updates the fee rate charged on the initiator leg, in basis
// points, capped at 10%.
func (e *Engine) SetProtocolFee(caller [20]byte, feeBps uint32) error {
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	if feeBps > maxFeeBps {
		return ErrInvalidAmount
	}
	protocol, err := e.loadProtocol()
	if err != nil {
		return err
	}
	protocol.FeeBps = feeBps
	if err := e.state.ProtocolStatePut(protocol); err != nil {
		return err
	}
	e.emit(NewFeeUpdatedEvent(feeBps))
	return nil
}

// ToggleEmergencyPause flips the pause flag and returns the new value. While
// paused no new swaps can be initiated; in-flight swaps keep their claim and
// refund paths so locked value is never stranded.
func (e *Engine) ToggleEmergencyPause(caller [20]byte) (bool, error) {
	if err := e.requireOperator(caller); err != nil {
		return false, err
	}
	protocol, err := e.loadProtocol()
	if err != nil {
		return false, err
	}
	protocol.Paused = !protocol.Paused
	if err := e.state.ProtocolStatePut(protocol); err != nil {
		return false, err
	}
	e.emit(NewPauseToggledEvent(protocol.Paused))
	return protocol.Paused, nil
}

// WithdrawFees sweeps the accumulated protocol fees from the vault to the
// operator and resets the counter.
func (e *Engine) WithdrawFees(caller [20]byte) (*big.Int, error) {
	if err := e.requireOperator(caller); err != nil {
		return nil, err
	}
	protocol, err := e.loadProtocol()
	if err != nil {
		return nil, err
	}
	amount := cloneBigInt(protocol.FeesCollected)
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := e.state.Transfer(e.state.VaultAddress(), e.operator, amount); err != nil {
		return nil, err
	}
	protocol.FeesCollected = big.NewInt(0)
	if err := e.state.ProtocolStatePut(protocol); err != nil {
		return nil, err
	}
	e.emit(NewFeesWithdrawnEvent(e.operator, amount))
	return amount, nil
}
