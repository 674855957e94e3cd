package rpcclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/klingnet-purse/internal/ledger"
	"github.com/Klingon-tech/klingnet-purse/pkg/types"
)

// Node methods used by the purse.
const (
	MethodUTXOsByAddress = "utxo_getByAddress"
	MethodAddressDelta   = "mempool_getAddressDelta"
	MethodFeeEstimate    = "mempool_getFeeEstimate"
	MethodChainInfo      = "chain_getInfo"
	MethodTxSubmit       = "tx_submit"
)

// AddressParam is used by utxo_getByAddress and mempool_getAddressDelta.
type AddressParam struct {
	Address string `json:"address"`
}

// OutputResult is one output paid to an address.
type OutputResult struct {
	Outpoint types.Outpoint `json:"outpoint"`
	Value    uint64         `json:"value"`
}

// UTXOListResult is returned by utxo_getByAddress.
type UTXOListResult struct {
	Address string         `json:"address"`
	UTXOs   []OutputResult `json:"utxos"`
}

// AddressDeltaResult is returned by mempool_getAddressDelta: the confirmed
// or mempool outputs of the address that mempool transactions spend, and
// the outputs they create for it.
type AddressDeltaResult struct {
	Spent   []types.Outpoint `json:"spent"`
	Created []OutputResult   `json:"created"`
}

// FeeEstimateResult is returned by mempool_getFeeEstimate.
type FeeEstimateResult struct {
	FeeRate uint64 `json:"fee_rate"` // base units per byte
}

// ChainInfoResult is returned by chain_getInfo.
type ChainInfoResult struct {
	ChainID string `json:"chain_id"`
	Symbol  string `json:"symbol,omitempty"`
	Height  uint64 `json:"height"`
	TipHash string `json:"tip_hash"`
}

// TxSubmitParam is used by tx_submit. The transaction is passed through
// in the node's own encoding.
type TxSubmitParam struct {
	Transaction json.RawMessage `json:"transaction"`
}

// TxSubmitResult is returned by tx_submit.
type TxSubmitResult struct {
	TxHash string `json:"tx_hash"`
}

// SubmitResult is the outcome of a submission the node processed.
// A rejected transaction is a result, not an error.
type SubmitResult struct {
	Success bool   `json:"success"`
	TxHash  string `json:"tx_hash,omitempty"`
	Error   string `json:"error,omitempty"`
}

// LedgerClient is the purse's view of a node's ledger.
type LedgerClient struct {
	rpc    *Client
	prefix string
}

// NewLedgerClient wraps c. Addresses are sent to the node rendered with
// prefix.
func NewLedgerClient(c *Client, prefix string) *LedgerClient {
	return &LedgerClient{rpc: c, prefix: prefix}
}

// Client returns the underlying JSON-RPC client.
func (l *LedgerClient) Client() *Client {
	return l.rpc
}

// Lookup returns the outputs paid to hash with mempool activity merged in:
// confirmed outputs spent in the mempool are marked spent, and outputs
// created in the mempool are included as unconfirmed.
//
// The node has no single call for both views, so they are two requests.
// The mempool delta is fetched first: a block connected between the calls
// then shows its outputs as confirmed, and the matching created entries are
// dropped by ledger.Merge. Mempool transactions arriving after the first
// call are missed until the next lookup.
func (l *LedgerClient) Lookup(hash types.AddressSpecHash) ([]ledger.Entry, error) {
	param := AddressParam{Address: types.EncodeAddress(l.prefix, hash)}

	var delta AddressDeltaResult
	if err := l.rpc.Call(MethodAddressDelta, param, &delta); err != nil {
		return nil, err
	}
	var utxos UTXOListResult
	if err := l.rpc.Call(MethodUTXOsByAddress, param, &utxos); err != nil {
		return nil, err
	}

	confirmed, err := toEntries(utxos.UTXOs)
	if err != nil {
		return nil, err
	}
	created, err := toEntries(delta.Created)
	if err != nil {
		return nil, err
	}
	return ledger.Merge(confirmed, delta.Spent, created), nil
}

// toEntries converts node outputs, rejecting values that do not fit the
// signed balance arithmetic.
func toEntries(outs []OutputResult) ([]ledger.Entry, error) {
	entries := make([]ledger.Entry, len(outs))
	for i, o := range outs {
		if o.Value > math.MaxInt64 {
			return nil, &types.ValidationError{
				Op:  "lookup",
				Err: fmt.Errorf("%w: %s has value %d", types.ErrValueOutOfRange, o.Outpoint, o.Value),
			}
		}
		entries[i] = ledger.Entry{Outpoint: o.Outpoint, Value: o.Value}
	}
	return entries, nil
}

// Submit sends a signed transaction to the node. A rejection by the node
// is reported in the result; only transport or protocol failures are errors.
func (l *LedgerClient) Submit(tx json.RawMessage) (SubmitResult, error) {
	var res TxSubmitResult
	err := l.rpc.Call(MethodTxSubmit, TxSubmitParam{Transaction: tx}, &res)
	if err == nil {
		return SubmitResult{Success: true, TxHash: res.TxHash}, nil
	}

	var rerr *RPCError
	if errors.As(err, &rerr) || types.IsValidation(err) {
		return SubmitResult{Success: false, Error: rpcMessage(err)}, nil
	}
	return SubmitResult{}, err
}

// SubmitOrError is Submit with a rejection turned into an error.
func (l *LedgerClient) SubmitOrError(tx json.RawMessage) (string, error) {
	res, err := l.Submit(tx)
	if err != nil {
		return "", err
	}
	if !res.Success {
		return "", fmt.Errorf("transaction rejected: %s", res.Error)
	}
	return res.TxHash, nil
}

func rpcMessage(err error) string {
	var rerr *RPCError
	if errors.As(err, &rerr) {
		return rerr.Message
	}
	return err.Error()
}

// FeeEstimate returns the node's suggested fee rate in base units per byte.
func (l *LedgerClient) FeeEstimate() (uint64, error) {
	var res FeeEstimateResult
	if err := l.rpc.Call(MethodFeeEstimate, nil, &res); err != nil {
		return 0, err
	}
	return res.FeeRate, nil
}

// NodeStatus returns the node's chain summary.
func (l *LedgerClient) NodeStatus() (ChainInfoResult, error) {
	var res ChainInfoResult
	if err := l.rpc.Call(MethodChainInfo, nil, &res); err != nil {
		return ChainInfoResult{}, err
	}
	return res, nil
}
