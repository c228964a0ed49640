package rpc

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"htlcnet/native/htlc"
)

const (
	codeHTLCInvalidParams = -32060
	codeHTLCNotFound      = -32061
	codeUnauthorized      = -32062
	codeHTLCConflict      = -32063
	codeHTLCInternal      = -32064
)

func parseAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address: %w", err)
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("invalid address length: %d", len(decoded))
	}
	copy(addr[:], decoded)
	return addr, nil
}

func parseHash32(raw string) ([32]byte, error) {
	var hash [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return hash, fmt.Errorf("invalid hash: %w", err)
	}
	if len(decoded) != len(hash) {
		return hash, fmt.Errorf("invalid hash length: %d", len(decoded))
	}
	copy(hash[:], decoded)
	return hash, nil
}

func parseHexBytes(raw string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return decoded, nil
}

func parsePositiveBigInt(raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %q", raw)
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return value, nil
}

func parseRole(raw string) (htlc.Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "initiator":
		return htlc.RoleInitiator, nil
	case "participant":
		return htlc.RoleParticipant, nil
	default:
		return 0, fmt.Errorf("invalid role: %q", raw)
	}
}

// writeEngineError maps the engine error taxonomy onto JSON-RPC error codes.
// The taxonomy name is surfaced verbatim so callers can branch on it.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, htlc.ErrSwapNotFound):
		writeError(w, http.StatusNotFound, id, codeHTLCNotFound, "swap_not_found", err.Error())
	case errors.Is(err, htlc.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, htlc.ErrInvalidSwap):
		writeError(w, http.StatusConflict, id, codeHTLCConflict, "invalid_swap", err.Error())
	case errors.Is(err, htlc.ErrAlreadyExecuted):
		writeError(w, http.StatusConflict, id, codeHTLCConflict, "already_executed", err.Error())
	case errors.Is(err, htlc.ErrInvalidSecret):
		writeError(w, http.StatusBadRequest, id, codeHTLCInvalidParams, "invalid_secret", err.Error())
	case errors.Is(err, htlc.ErrExpired):
		writeError(w, http.StatusConflict, id, codeHTLCConflict, "expired", err.Error())
	case errors.Is(err, htlc.ErrNotExpired):
		writeError(w, http.StatusConflict, id, codeHTLCConflict, "not_expired", err.Error())
	case errors.Is(err, htlc.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, id, codeHTLCInvalidParams, "invalid_amount", err.Error())
	case errors.Is(err, htlc.ErrInvalidTimelock):
		writeError(w, http.StatusBadRequest, id, codeHTLCInvalidParams, "invalid_timelock", err.Error())
	case errors.Is(err, htlc.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, id, codeHTLCConflict, "insufficient_balance", err.Error())
	case errors.Is(err, htlc.ErrInvalidHash):
		writeError(w, http.StatusConflict, id, codeHTLCConflict, "invalid_hash", err.Error())
	case errors.Is(err, htlc.ErrPaused):
		writeError(w, http.StatusConflict, id, codeHTLCConflict, "paused", err.Error())
	case errors.Is(err, htlc.ErrInvalidParticipant):
		writeError(w, http.StatusBadRequest, id, codeHTLCInvalidParams, "invalid_participant", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeHTLCInternal, "internal_error", err.Error())
	}
}

type swapJSON struct {
	ID                uint64 `json:"id"`
	Initiator         string `json:"initiator"`
	Participant       string `json:"participant"`
	InitiatorAmount   string `json:"initiatorAmount"`
	ParticipantAmount string `json:"participantAmount"`
	SecretHash        string `json:"secretHash"`
	Secret            string `json:"secret,omitempty"`
	Timelock          uint64 `json:"timelock"`
	CreatedAt         uint64 `json:"createdAt"`
	ExecutedAt        uint64 `json:"executedAt"`
	Status            string `json:"status"`
}

func swapToJSON(s *htlc.Swap) swapJSON {
	out := swapJSON{
		ID:                s.ID,
		Initiator:         formatAddress(s.Initiator),
		Participant:       formatAddress(s.Participant),
		InitiatorAmount:   s.InitiatorAmount.String(),
		ParticipantAmount: s.ParticipantAmount.String(),
		SecretHash:        "0x" + hex.EncodeToString(s.SecretHash[:]),
		Timelock:          s.Timelock,
		CreatedAt:         s.CreatedAt,
		ExecutedAt:        s.ExecutedAt,
		Status:            s.Status.String(),
	}
	if len(s.Secret) > 0 {
		out.Secret = "0x" + hex.EncodeToString(s.Secret)
	}
	return out
}

func formatAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

type participantJSON struct {
	SwapID   uint64 `json:"swapId"`
	Role     string `json:"role"`
	Amount   string `json:"amount"`
	Claimed  bool   `json:"claimed"`
	Refunded bool   `json:"refunded"`
}

type secretHashJSON struct {
	SwapID     uint64 `json:"swapId"`
	Used       bool   `json:"used"`
	RevealedAt uint64 `json:"revealedAt"`
}

type userStatsJSON struct {
	Initiated       []uint64 `json:"initiated"`
	Participated    []uint64 `json:"participated"`
	TotalVolume     string   `json:"totalVolume"`
	SuccessfulSwaps uint64   `json:"successfulSwaps"`
}

type routeStatsJSON struct {
	Swaps       uint64 `json:"swaps"`
	Volume      string `json:"volume"`
	SuccessRate uint64 `json:"successRate"`
}

type protocolStatsJSON struct {
	NextSwapID    uint64 `json:"nextSwapId"`
	MinTimelock   uint64 `json:"minTimelock"`
	MaxTimelock   uint64 `json:"maxTimelock"`
	FeeBps        uint32 `json:"feeBps"`
	Paused        bool   `json:"paused"`
	TotalVolume   string `json:"totalVolume"`
	TotalSwaps    uint64 `json:"totalSwaps"`
	FeesCollected string `json:"feesCollected"`
	Height        uint64 `json:"height"`
}

type okResult struct {
	OK bool `json:"ok"`
}
