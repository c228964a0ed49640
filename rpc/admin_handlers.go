package rpc

import "net/http"

type timelockBoundsParams struct {
	Caller string `json:"caller"`
	Min    uint64 `json:"min"`
	Max    uint64 `json:"max"`
}

type protocolFeeParams struct {
	Caller string `json:"caller"`
	FeeBps uint32 `json:"feeBps"`
}

type callerParams struct {
	Caller string `json:"caller"`
}

type pauseResult struct {
	Paused bool `json:"paused"`
}

type withdrawFeesResult struct {
	Amount string `json:"amount"`
}

func (s *Server) handleSetTimelockBounds(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params timelockBoundsParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeHTLCInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.SetTimelockBounds(caller, params.Min, params.Max); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleSetProtocolFee(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params protocolFeeParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeHTLCInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.SetProtocolFee(caller, params.FeeBps); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleToggleEmergencyPause(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params callerParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeHTLCInvalidParams, "invalid_params", err.Error())
		return
	}
	paused, err := s.node.ToggleEmergencyPause(caller)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, pauseResult{Paused: paused})
}

func (s *Server) handleWithdrawFees(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params callerParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeHTLCInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := s.node.WithdrawFees(caller)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, withdrawFeesResult{Amount: amount.String()})
}
