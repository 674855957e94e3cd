package rpc

import (
	"github.com/Klingon-tech/klingnet-purse/internal/balance"
	"github.com/Klingon-tech/klingnet-purse/pkg/types"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// FreshAddressParam is used by purse_getFreshAddress. Both fields default
// to false.
type FreshAddressParam struct {
	MarkUsed    bool `json:"mark_used"`
	GenerateNow bool `json:"generate_now"`
}

// AddressParam is used by purse_decodeAddress and purse_getSpec.
type AddressParam struct {
	Address string `json:"address"`
}

// AddSpecParam is used by purse_addSpec.
type AddSpecParam struct {
	Spec types.AddressSpec `json:"spec"`
}

// ── Result types ────────────────────────────────────────────────────────

// BalanceResult is returned by purse_getBalance.
type BalanceResult struct {
	Confirmed   int64  `json:"confirmed"`
	Unconfirmed int64  `json:"unconfirmed"`
	Spendable   int64  `json:"spendable"`
	Display     string `json:"display"`
}

// ReportResult is returned by purse_getReport.
type ReportResult = balance.Report

// AddressResult is returned by purse_getFreshAddress.
type AddressResult struct {
	Address  string                `json:"address"`
	SpecHash types.AddressSpecHash `json:"spec_hash"`
}

// DecodeAddressResult is returned by purse_decodeAddress.
type DecodeAddressResult struct {
	SpecHash types.AddressSpecHash `json:"spec_hash"`
	Managed  bool                  `json:"managed"`
	Used     bool                  `json:"used"`
}

// SpecResult is returned by purse_getSpec and purse_addSpec.
type SpecResult struct {
	Address string            `json:"address"`
	Type    string            `json:"type"`
	Spec    types.AddressSpec `json:"spec"`
	Used    bool              `json:"used"`
}

// FeeEstimateResult is returned by purse_getFeeEstimate.
type FeeEstimateResult struct {
	FeeRate uint64 `json:"fee_rate"` // base units per byte
}

// OutputsResult is returned by purse_listOutputs.
type OutputsResult struct {
	Addresses []balance.AddressEntries `json:"addresses"`
}
