// Package trontest emulates the Tron full node HTTP API for tests.
package trontest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashfaucet/faucet-kit/chain/tron"
	"github.com/flashfaucet/faucet-kit/chain/tron/rpcclient"
)

// Handler returns the status code and JSON body answering a request.
type Handler func(req rpcclient.TriggerRequest) (int, string)

// ReceiptHandler answers the n-th (1 based) receipt lookup of a transaction.
type ReceiptHandler func(txID string, poll int) (int, string)

// Node is a fake full node. Constant calls are answered per function selector; transactions are
// built with a valid id, accepted on broadcast and confirmed on the first receipt lookup unless
// configured otherwise.
type Node struct {
	Server *httptest.Server

	mu         sync.Mutex
	constant   map[string]Handler
	trigger    Handler
	broadcast  func(tx rpcclient.Transaction) (int, string)
	receipt    ReceiptHandler
	polls      map[string]int
	triggers   []rpcclient.TriggerRequest
	broadcasts []rpcclient.Transaction
	headers    []http.Header
	nonce      int
}

// NewNode starts a fake node closed on test cleanup.
func NewNode(t *testing.T) *Node {
	t.Helper()

	n := &Node{
		constant: make(map[string]Handler),
		polls:    make(map[string]int),
	}
	n.receipt = func(txID string, _ int) (int, string) {
		return http.StatusOK, Receipt(txID, rpcclient.ReceiptSuccess, 1, "")
	}
	n.broadcast = func(tx rpcclient.Transaction) (int, string) {
		return http.StatusOK, fmt.Sprintf(`{"result":true,"txid":%q}`, tx.TxID)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/wallet/triggerconstantcontract", n.handleTrigger(t, true))
	mux.HandleFunc("/wallet/triggersmartcontract", n.handleTrigger(t, false))
	mux.HandleFunc("/wallet/broadcasttransaction", n.handleBroadcast(t))
	mux.HandleFunc("/wallet/gettransactioninfobyid", n.handleReceipt(t))

	n.Server = httptest.NewServer(mux)
	t.Cleanup(n.Server.Close)

	return n
}

// URL is the full host of the node.
func (n *Node) URL() string { return n.Server.URL }

// OnConstant answers constant calls of selector (e.g. "balanceOf(address)") with h.
func (n *Node) OnConstant(selector string, h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.constant[selector] = h
}

// ReturnWords answers constant calls of selector with the ABI encoded words.
func (n *Node) ReturnWords(selector string, words ...*big.Int) {
	n.OnConstant(selector, func(rpcclient.TriggerRequest) (int, string) {
		return http.StatusOK, Constant(Words(words...))
	})
}

// OnTrigger overrides the triggersmartcontract response.
func (n *Node) OnTrigger(h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.trigger = h
}

// OnBroadcast overrides the broadcasttransaction response.
func (n *Node) OnBroadcast(h func(tx rpcclient.Transaction) (int, string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcast = h
}

// OnReceipt overrides the gettransactioninfobyid response.
func (n *Node) OnReceipt(h ReceiptHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.receipt = h
}

// Polls returns the number of receipt lookups of txID.
func (n *Node) Polls(txID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.polls[txID]
}

// Triggers returns the constant and smart contract trigger requests received so far.
func (n *Node) Triggers() []rpcclient.TriggerRequest {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]rpcclient.TriggerRequest(nil), n.triggers...)
}

// Broadcasts returns the signed transactions received so far.
func (n *Node) Broadcasts() []rpcclient.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]rpcclient.Transaction(nil), n.broadcasts...)
}

// Headers returns the headers of every request received so far.
func (n *Node) Headers() []http.Header {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]http.Header(nil), n.headers...)
}

// Requests returns the total number of requests received so far.
func (n *Node) Requests() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.headers)
}

func (n *Node) handleTrigger(t *testing.T, constant bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rpcclient.TriggerRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		n.mu.Lock()
		n.headers = append(n.headers, r.Header.Clone())
		n.triggers = append(n.triggers, req)
		var h Handler
		if constant {
			h = n.constant[req.FunctionSelector]
		} else {
			h = n.trigger
			n.nonce++
		}
		nonce := n.nonce
		n.mu.Unlock()

		switch {
		case h != nil:
			status, body := h(req)
			write(w, status, body)
		case constant:
			write(w, http.StatusOK, Failure("CONTRACT_VALIDATE_ERROR", "Smart contract is not exist."))
		default:
			write(w, http.StatusOK, Built(req, nonce))
		}
	}
}

func (n *Node) handleBroadcast(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var tx rpcclient.Transaction
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&tx)) {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		n.mu.Lock()
		n.headers = append(n.headers, r.Header.Clone())
		n.broadcasts = append(n.broadcasts, tx)
		h := n.broadcast
		n.mu.Unlock()

		status, resp := h(tx)
		write(w, status, resp)
	}
}

func (n *Node) handleReceipt(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Value string `json:"value"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		n.mu.Lock()
		n.headers = append(n.headers, r.Header.Clone())
		n.polls[body.Value]++
		poll := n.polls[body.Value]
		h := n.receipt
		n.mu.Unlock()

		status, resp := h(body.Value, poll)
		write(w, status, resp)
	}
}

func write(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// Built is a triggersmartcontract response carrying an unsigned transaction whose id is the
// SHA-256 digest of its raw data.
func Built(req rpcclient.TriggerRequest, nonce int) string {
	raw := []byte(req.FunctionSelector + "|" + req.Parameter + "|" + strconv.Itoa(nonce))
	sum := sha256.Sum256(raw)

	tx := rpcclient.Transaction{
		Visible:    true,
		TxID:       hex.EncodeToString(sum[:]),
		RawData:    json.RawMessage(fmt.Sprintf(`{"contract":[{"type":"TriggerSmartContract"}],"fee_limit":%d}`, req.FeeLimit)),
		RawDataHex: hex.EncodeToString(raw),
	}

	return mustJSON(rpcclient.TriggerResponse{Result: rpcclient.Return{Result: true}, Transaction: &tx})
}

// Constant is a successful triggerconstantcontract response returning data.
func Constant(data []byte) string {
	return mustJSON(rpcclient.TriggerResponse{
		Result:         rpcclient.Return{Result: true},
		ConstantResult: []string{hex.EncodeToString(data)},
	})
}

// Reverted is a triggerconstantcontract response for an execution that reverted with data.
func Reverted(data []byte) string {
	return mustJSON(rpcclient.TriggerResponse{
		Result:         rpcclient.Return{Result: true},
		ConstantResult: []string{hex.EncodeToString(data)},
		Transaction:    &rpcclient.Transaction{Ret: []rpcclient.ContractRet{{Ret: "FAILED"}}},
	})
}

// Failure is a response rejecting the request with code and a hex encoded message.
func Failure(code, message string) string {
	return mustJSON(rpcclient.TriggerResponse{
		Result: rpcclient.Return{Code: code, Message: hex.EncodeToString([]byte(message))},
	})
}

// BroadcastFailure is a broadcasttransaction response rejecting the transaction.
func BroadcastFailure(code, message string) string {
	return mustJSON(rpcclient.BroadcastResponse{Code: code, Message: hex.EncodeToString([]byte(message))})
}

// Receipt is a gettransactioninfobyid response. An empty result yields the empty object the node
// returns for transactions not included yet.
func Receipt(txID, result string, block uint64, resMessage string, contractResult ...[]byte) string {
	if result == "" {
		return `{}`
	}

	info := rpcclient.TransactionInfo{ID: txID, BlockNumber: block}
	info.Receipt.Result = result
	if result != rpcclient.ReceiptSuccess {
		info.Result = "FAILED"
	}
	if resMessage != "" {
		info.ResMessage = hex.EncodeToString([]byte(resMessage))
	}
	for _, data := range contractResult {
		info.ContractResult = append(info.ContractResult, hex.EncodeToString(data))
	}

	return mustJSON(info)
}

// Words ABI encodes values as consecutive uint256 words.
func Words(values ...*big.Int) []byte {
	out := make([]byte, 0, 32*len(values))
	for _, v := range values {
		out = append(out, common.LeftPadBytes(v.Bytes(), 32)...)
	}

	return out
}

// RevertReason ABI encodes Error(string) revert data.
func RevertReason(reason string) []byte {
	n := len(reason)
	data := crypto.Keccak256([]byte("Error(string)"))[:4]
	data = append(data, common.LeftPadBytes(big.NewInt(32).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(big.NewInt(int64(n)).Bytes(), 32)...)
	padded := make([]byte, (n+31)/32*32)
	copy(padded, reason)

	return append(data, padded...)
}

// NewSession returns a session whose freshly generated key wallet is connected to the node.
func NewSession(t *testing.T, n *Node, headers map[string]string) *tron.Session {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	wallet, err := tron.NewKeyWallet(hex.EncodeToString(crypto.FromECDSA(key)), tron.Node{FullHost: n.URL(), Headers: headers})
	require.NoError(t, err)

	return &tron.Session{Wallet: wallet}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return string(b)
}
