package rpc

import (
	"errors"

	"github.com/Klingon-tech/klingnet-purse/internal/purse"
	"github.com/Klingon-tech/klingnet-purse/internal/rpcclient"
	"github.com/Klingon-tech/klingnet-purse/pkg/crypto"
	"github.com/Klingon-tech/klingnet-purse/pkg/types"
)

// errorFor maps a purse, ledger or node error to a JSON-RPC error.
func errorFor(err error) *Error {
	switch {
	case types.IsValidation(err):
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	case errors.Is(err, purse.ErrUnknownAddress):
		return &Error{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, purse.ErrWatchOnly):
		return &Error{Code: CodeInvalidRequest, Message: err.Error()}
	case rpcclient.IsTransient(err):
		return &Error{Code: CodeInternalError, Message: "node unavailable: " + err.Error()}
	default:
		return &Error{Code: CodeInternalError, Message: err.Error()}
	}
}

// ── Balance endpoints ───────────────────────────────────────────────────

func (s *Server) handleGetBalance(_ *Request) (interface{}, *Error) {
	b, err := s.balances.WalletBalance()
	if err != nil {
		return nil, errorFor(err)
	}
	return &BalanceResult{
		Confirmed:   b.Confirmed,
		Unconfirmed: b.Unconfirmed,
		Spendable:   b.Spendable,
		Display:     b.String(),
	}, nil
}

func (s *Server) handleGetReport(_ *Request) (interface{}, *Error) {
	r, err := s.balances.Report()
	if err != nil {
		return nil, errorFor(err)
	}
	return &r, nil
}

func (s *Server) handleListOutputs(_ *Request) (interface{}, *Error) {
	groups, err := s.balances.AllEntries()
	if err != nil {
		return nil, errorFor(err)
	}
	return &OutputsResult{Addresses: groups}, nil
}

func (s *Server) handleGetFeeEstimate(_ *Request) (interface{}, *Error) {
	if s.fees == nil {
		return nil, &Error{Code: CodeNotFound, Message: "fee estimates not available"}
	}
	rate, err := s.fees.FeeEstimate()
	if err != nil {
		return nil, errorFor(err)
	}
	return &FeeEstimateResult{FeeRate: rate}, nil
}

// ── Address endpoints ───────────────────────────────────────────────────

func (s *Server) handleGetFreshAddress(req *Request) (interface{}, *Error) {
	var params FreshAddressParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}
	h, err := s.book.FreshAddress(params.MarkUsed, params.GenerateNow)
	if err != nil {
		return nil, errorFor(err)
	}
	return &AddressResult{Address: types.EncodeAddress(s.prefix, h), SpecHash: h}, nil
}

func (s *Server) handleGetStats(_ *Request) (interface{}, *Error) {
	st := s.book.Stats()
	return &st, nil
}

// decodeParam parses the address param of req.
func (s *Server) decodeParam(req *Request) (types.AddressSpecHash, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return types.AddressSpecHash{}, err
	}
	if params.Address == "" {
		return types.AddressSpecHash{}, &Error{Code: CodeInvalidParams, Message: "address is required"}
	}
	h, err := types.DecodeAddress(s.prefix, params.Address)
	if err != nil {
		return types.AddressSpecHash{}, errorFor(err)
	}
	return h, nil
}

func (s *Server) handleDecodeAddress(req *Request) (interface{}, *Error) {
	h, rpcErr := s.decodeParam(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	_, managed := s.book.Spec(h)
	return &DecodeAddressResult{SpecHash: h, Managed: managed, Used: s.book.IsUsed(h)}, nil
}

func (s *Server) handleGetSpec(req *Request) (interface{}, *Error) {
	h, rpcErr := s.decodeParam(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	spec, ok := s.book.Spec(h)
	if !ok {
		return nil, errorFor(purse.ErrUnknownAddress)
	}
	return s.specResult(h, spec), nil
}

func (s *Server) handleAddSpec(req *Request) (interface{}, *Error) {
	var params AddSpecParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	h, err := s.book.AddSpec(params.Spec)
	if err != nil {
		return nil, errorFor(err)
	}
	s.logger.Info().
		Str("address", types.EncodeAddress(s.prefix, h)).
		Str("type", crypto.TypeSummary(params.Spec)).
		Msg("Added address spec")
	return s.specResult(h, params.Spec), nil
}

func (s *Server) specResult(h types.AddressSpecHash, spec types.AddressSpec) *SpecResult {
	return &SpecResult{
		Address: types.EncodeAddress(s.prefix, h),
		Type:    crypto.TypeSummary(spec),
		Spec:    spec,
		Used:    s.book.IsUsed(h),
	}
}
