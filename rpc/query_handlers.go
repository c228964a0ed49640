package rpc

import (
	"net/http"

	"htlcnet/native/htlc"
)

type swapQueryParams struct {
	SwapID uint64 `json:"swapId"`
}

type swapParticipantParams struct {
	SwapID uint64 `json:"swapId"`
	Role   string `json:"role"`
}

type addressParams struct {
	Address string `json:"address"`
}

type secretHashParams struct {
	SecretHash string `json:"secretHash"`
}

type routeParams struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type verifySecretParams struct {
	Secret     string `json:"secret"`
	SecretHash string `json:"secretHash"`
}

type userSwapsResult struct {
	Initiated    []uint64 `json:"initiated"`
	Participated []uint64 `json:"participated"`
}

type expiredResult struct {
	Expired bool `json:"expired"`
}

type verifyResult struct {
	Valid bool `json:"valid"`
}

type balanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

func (s *Server) handleGetSwap(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params swapQueryParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	swap, err := s.node.GetSwap(params.SwapID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, swapToJSON(swap))
}

func (s *Server) handleGetSwapParticipant(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params swapParticipantParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	role, err := parseRole(params.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeHTLCInvalidParams, "invalid_params", err.Error())
		return
	}
	record, err := s.node.GetSwapParticipant(params.SwapID, role)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, participantJSON{
		SwapID:   record.SwapID,
		Role:     record.Role.String(),
		Amount:   record.Amount.String(),
		Claimed:  record.Claimed,
		Refunded: record.Refunded,
	})
}

func (s *Server) handleGetUserSwaps(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeHTLCInvalidParams, "invalid_params", err.Error())
		return
	}
	initiated, participated, err := s.node.GetUserSwaps(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, userSwapsResult{Initiated: initiated, Participated: participated})
}

func (s *Server) handleGetUserStats(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeHTLCInvalidParams, "invalid_params", err.Error())
		return
	}
	stats, err := s.node.GetUserStats(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, userStatsJSON{
		Initiated:       stats.Initiated,
		Participated:    stats.Participated,
		TotalVolume:     stats.TotalVolume.String(),
		SuccessfulSwaps: stats.SuccessfulSwaps,
	})
}

func (s *Server) handleGetSecretHashInfo(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params secretHashParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	hash, err := parseHash32(params.SecretHash)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeHTLCInvalidParams, "invalid_params", err.Error())
		return
	}
	record, err := s.node.GetSecretHashInfo(hash)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	if record == nil {
		writeResult(w, req.ID, nil)
		return
	}
	writeResult(w, req.ID, secretHashJSON{
		SwapID:     record.SwapID,
		Used:       record.Used,
		RevealedAt: record.RevealedAt,
	})
}

func (s *Server) handleGetRouteStats(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params routeParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	from, err := parseAddress(params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeHTLCInvalidParams, "invalid_params", err.Error())
		return
	}
	to, err := parseAddress(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeHTLCInvalidParams, "invalid_params", err.Error())
		return
	}
	stats, err := s.node.GetRouteStats(from, to)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, routeStatsJSON{
		Swaps:       stats.Swaps,
		Volume:      stats.Volume.String(),
		SuccessRate: stats.SuccessRate,
	})
}

func (s *Server) handleVerifySecretHash(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params verifySecretParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	secret, err := parseHexBytes(params.Secret)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeHTLCInvalidParams, "invalid_params", err.Error())
		return
	}
	hash, err := parseHash32(params.SecretHash)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeHTLCInvalidParams, "invalid_params", err.Error())
		return
	}
	writeResult(w, req.ID, verifyResult{Valid: htlc.VerifySecretHash(secret, hash)})
}

func (s *Server) handleIsSwapExpired(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params swapQueryParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	expired, err := s.node.IsSwapExpired(params.SwapID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, expiredResult{Expired: expired})
}

func (s *Server) handleGetProtocolStats(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	stats, err := s.node.GetProtocolStats()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, protocolStatsJSON{
		NextSwapID:    stats.NextSwapID,
		MinTimelock:   stats.MinTimelock,
		MaxTimelock:   stats.MaxTimelock,
		FeeBps:        stats.FeeBps,
		Paused:        stats.Paused,
		TotalVolume:   stats.TotalVolume.String(),
		TotalSwaps:    stats.TotalSwaps,
		FeesCollected: stats.FeesCollected.String(),
		Height:        s.node.Height(),
	})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeHTLCInvalidParams, "invalid_params", err.Error())
		return
	}
	balance, err := s.node.GetBalance(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balanceResult{Address: params.Address, Balance: balance.String()})
}

func (s *Server) handleGetEvents(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	writeResult(w, req.ID, s.node.Events())
}
