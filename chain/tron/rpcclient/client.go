// Package rpcclient is a thin client for the subset of the Tron full node HTTP API used to call
// contracts, broadcast signed transactions and look up their receipts.
package rpcclient

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-resty/resty/v2"
)

// APIKeyHeader is the header TronGrid reads the project API key from.
const APIKeyHeader = "TRON-PRO-API-KEY"

// Node API paths.
const (
	pathTriggerConstant = "/wallet/triggerconstantcontract"
	pathTriggerSmart    = "/wallet/triggersmartcontract"
	pathBroadcast       = "/wallet/broadcasttransaction"
	pathTxInfo          = "/wallet/gettransactioninfobyid"
)

// Receipt results reported by gettransactioninfobyid.
const (
	ReceiptSuccess     = "SUCCESS"
	ReceiptDefault     = "DEFAULT"
	ReceiptUnknown     = "UNKNOWN"
	ReceiptRevert      = "REVERT"
	ReceiptOutOfTime   = "OUT_OF_TIME"
	ReceiptOutOfEnergy = "OUT_OF_ENERGY"

	resultFailed = "FAILED"
)

// TriggerRequest is the body of triggerconstantcontract and triggersmartcontract. Addresses are
// base58 when Visible is set.
type TriggerRequest struct {
	OwnerAddress     string `json:"owner_address"`
	ContractAddress  string `json:"contract_address"`
	FunctionSelector string `json:"function_selector"`
	Parameter        string `json:"parameter,omitempty"`
	FeeLimit         int64  `json:"fee_limit,omitempty"`
	CallValue        int64  `json:"call_value,omitempty"`
	Visible          bool   `json:"visible"`
}

// Return is the execution result attached to trigger and broadcast responses. Message is hex
// encoded by the node; use [DecodeMessage] to read it.
type Return struct {
	Result  bool   `json:"result"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Failed reports whether the node rejected the request.
func (r Return) Failed() bool {
	return !r.Result || (r.Code != "" && r.Code != ReceiptSuccess)
}

// Text returns the code and decoded message of a failed result.
func (r Return) Text() string {
	msg := DecodeMessage(r.Message)
	switch {
	case r.Code != "" && msg != "":
		return r.Code + ": " + msg
	case msg != "":
		return msg
	default:
		return r.Code
	}
}

// ContractRet is the per contract execution status embedded in a transaction.
type ContractRet struct {
	Ret         string `json:"ret,omitempty"`
	ContractRet string `json:"contractRet,omitempty"`
}

// Transaction is an unsigned or signed transaction as exchanged with the node. RawData is kept
// verbatim so it can be broadcast unchanged after signing.
type Transaction struct {
	Visible    bool            `json:"visible"`
	TxID       string          `json:"txID"`
	RawData    json.RawMessage `json:"raw_data,omitempty"`
	RawDataHex string          `json:"raw_data_hex"`
	Signature  []string        `json:"signature,omitempty"`
	Ret        []ContractRet   `json:"ret,omitempty"`
}

// Reverted reports whether the node marked the (simulated) execution as failed.
func (t *Transaction) Reverted() bool {
	for _, r := range t.Ret {
		if r.Ret == resultFailed || (r.ContractRet != "" && r.ContractRet != ReceiptSuccess) {
			return true
		}
	}

	return false
}

// TriggerResponse is returned by triggerconstantcontract and triggersmartcontract.
type TriggerResponse struct {
	Result         Return       `json:"result"`
	ConstantResult []string     `json:"constant_result,omitempty"`
	EnergyUsed     int64        `json:"energy_used,omitempty"`
	Transaction    *Transaction `json:"transaction,omitempty"`
}

// BroadcastResponse is returned by broadcasttransaction.
type BroadcastResponse struct {
	Result  bool   `json:"result"`
	TxID    string `json:"txid,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Return converts the response to a Return for uniform failure handling.
func (b BroadcastResponse) Return() Return {
	return Return{Result: b.Result, Code: b.Code, Message: b.Message}
}

// TransactionInfo is returned by gettransactioninfobyid. The node answers an empty object for
// transactions it has not included yet.
type TransactionInfo struct {
	ID             string   `json:"id,omitempty"`
	BlockNumber    uint64   `json:"blockNumber,omitempty"`
	Result         string   `json:"result,omitempty"`
	ResMessage     string   `json:"resMessage,omitempty"`
	ContractResult []string `json:"contractResult,omitempty"`
	Receipt        struct {
		Result      string `json:"result,omitempty"`
		EnergyUsage int64  `json:"energy_usage_total,omitempty"`
	} `json:"receipt"`
}

// Status returns the decisive receipt result, or "" while the transaction is not included.
// Included transactions without an explicit receipt result succeeded.
func (i TransactionInfo) Status() string {
	switch {
	case i.Receipt.Result != "":
		return i.Receipt.Result
	case i.Result == resultFailed:
		return resultFailed
	case i.ID != "" && i.BlockNumber > 0:
		return ReceiptSuccess
	default:
		return ""
	}
}

// Client talks to a single Tron full node.
type Client struct {
	client *resty.Client
}

// New returns a client for the node at fullHost sending headers with every request.
func New(fullHost string, headers map[string]string, timeout time.Duration) *Client {
	return &Client{
		client: resty.New().
			SetBaseURL(strings.TrimSuffix(fullHost, "/")).
			SetHeaders(headers).
			SetHeader("Content-Type", "application/json").
			SetTimeout(timeout),
	}
}

// TriggerConstantContract executes a read only contract call.
func (c *Client) TriggerConstantContract(ctx context.Context, req TriggerRequest) (*TriggerResponse, error) {
	var out TriggerResponse
	if err := c.post(ctx, pathTriggerConstant, req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// TriggerSmartContract builds an unsigned transaction invoking a contract method.
func (c *Client) TriggerSmartContract(ctx context.Context, req TriggerRequest) (*TriggerResponse, error) {
	var out TriggerResponse
	if err := c.post(ctx, pathTriggerSmart, req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// BroadcastTransaction submits a signed transaction.
func (c *Client) BroadcastTransaction(ctx context.Context, tx *Transaction) (*BroadcastResponse, error) {
	var out BroadcastResponse
	if err := c.post(ctx, pathBroadcast, tx, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// GetTransactionInfoByID looks up the receipt of txID.
func (c *Client) GetTransactionInfoByID(ctx context.Context, txID string) (*TransactionInfo, error) {
	var out TransactionInfo
	if err := c.post(ctx, pathTxInfo, map[string]string{"value": txID}, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// post submits body to the node and decodes the response into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	resp, err := c.client.R().SetContext(ctx).SetBody(body).Post(path)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to call %s: HTTP %d: %s", path, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	var apiErr struct {
		Error string `json:"Error"`
	}
	if jerr := json.Unmarshal(resp.Body(), &apiErr); jerr == nil && apiErr.Error != "" {
		return fmt.Errorf("%s: %s", path, apiErr.Error)
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	return nil
}

// DecodeMessage decodes a hex encoded node message. Messages that are not hex or do not decode
// to printable text are returned unchanged.
func DecodeMessage(msg string) string {
	raw, err := hex.DecodeString(msg)
	if err != nil || len(raw) == 0 {
		return msg
	}
	text := string(raw)
	for _, r := range text {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return msg
		}
	}

	return text
}
