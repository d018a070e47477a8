package adapters

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/custodia/walletcore/pkg/errors"
	"github.com/custodia/walletcore/pkg/httpjson"
)

// RPCConfig configures one JSON-RPC wallet backend.
type RPCConfig struct {
	Symbol         string
	Name           string
	URL            string
	Username       string
	Password       string
	Scope          string
	RequestTimeout time.Duration
	CacheTTL       time.Duration
	DecimalPlaces  int32
	ListBatch      int
}

// RPCAdapter talks to a bitcoind-style JSON-RPC wallet backend. Balance
// queries go through the shared response cache; mutating calls and
// reconciliation always hit the backend directly.
type RPCAdapter struct {
	cfg     RPCConfig
	client  *httpjson.Client
	cached  *httpjson.CachedClient
	headers map[string]string
	sink    Sink
	logger  *zap.Logger
}

// NewRPCAdapter creates an adapter for one JSON-RPC backend. Discovered
// deposits and withdrawal confirmation changes are delivered to sink.
func NewRPCAdapter(cfg RPCConfig, cache httpjson.Cache, sink Sink, logger *zap.Logger) *RPCAdapter {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Second
	}
	if cfg.ListBatch <= 0 {
		cfg.ListBatch = 100
	}
	if cfg.Scope == "" {
		cfg.Scope = "default"
	}

	client := httpjson.NewClient(cfg.RequestTimeout, logger)
	headers := make(map[string]string)
	if cfg.Username != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
		headers["Authorization"] = "Basic " + creds
	}

	return &RPCAdapter{
		cfg:     cfg,
		client:  client,
		cached:  httpjson.NewCachedClient(client, cache, cfg.CacheTTL),
		headers: headers,
		sink:    sink,
		logger:  logger,
	}
}

// Symbol returns the currency code this adapter serves.
func (a *RPCAdapter) Symbol() string { return a.cfg.Symbol }

// Name returns the backend display name.
func (a *RPCAdapter) Name() string { return a.cfg.Name }

// GetBalance reports the hot wallet balance via getbalance.
func (a *RPCAdapter) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	var balance decimal.Decimal
	if err := a.callCached(ctx, "getbalance", nil, &balance); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// GetNewAddress issues a fresh receiving address labelled with the scope.
func (a *RPCAdapter) GetNewAddress(ctx context.Context, scope string) (string, string, error) {
	var address string
	if err := a.call(ctx, "getnewaddress", []interface{}{scope}, &address); err != nil {
		return "", "", errors.Wrap(errors.KindExecutionFailure,
			fmt.Sprintf("address generation failed for %s", a.cfg.Symbol), err)
	}
	return address, "", nil
}

// DoWithdraw submits a withdrawal via sendtoaddress and returns the
// backend transaction id. Never cached and never retried internally.
func (a *RPCAdapter) DoWithdraw(ctx context.Context, address, extra string, amount decimal.Decimal, comment string) (string, error) {
	params := []interface{}{address, amount, comment}
	if extra != "" {
		params = append(params, extra)
	}
	var txid string
	if err := a.call(ctx, "sendtoaddress", params, &txid); err != nil {
		return "", err
	}
	return txid, nil
}

// listTransactionsEntry is one row of a listtransactions response.
type listTransactionsEntry struct {
	Category      string          `json:"category"`
	Address       string          `json:"address"`
	Amount        decimal.Decimal `json:"amount"`
	Confirmations int             `json:"confirmations"`
	TxID          string          `json:"txid"`
	Label         string          `json:"label"`
	Comment       string          `json:"comment"`
}

// Cron asks the backend for recent transactions and feeds incoming ones
// to the deposit sink. Already-recorded txids only refresh confirmation
// counts, so repeated runs with no backend activity change nothing.
func (a *RPCAdapter) Cron(ctx context.Context) error {
	var entries []listTransactionsEntry
	if err := a.call(ctx, "listtransactions", []interface{}{"*", a.cfg.ListBatch}, &entries); err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.TxID == "" {
			continue
		}
		switch entry.Category {
		case "receive":
			notice := DepositNotice{
				Scope:         a.cfg.Scope,
				Symbol:        a.cfg.Symbol,
				TxID:          entry.TxID,
				Address:       entry.Address,
				Amount:        entry.Amount,
				Confirmations: entry.Confirmations,
				Comment:       entry.Comment,
			}
			if err := a.sink.RecordDeposit(ctx, notice); err != nil {
				a.logger.Error("failed to record discovered deposit",
					zap.String("symbol", a.cfg.Symbol),
					zap.String("txid", entry.TxID),
					zap.Error(err),
				)
			}
		case "send":
			update := WithdrawalUpdate{
				Scope:         a.cfg.Scope,
				Symbol:        a.cfg.Symbol,
				TxID:          entry.TxID,
				Confirmations: entry.Confirmations,
			}
			if err := a.sink.RecordWithdrawalUpdate(ctx, update); err != nil {
				a.logger.Error("failed to record withdrawal update",
					zap.String("symbol", a.cfg.Symbol),
					zap.String("txid", entry.TxID),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// DecimalPlaces returns the display precision for the symbol.
func (a *RPCAdapter) DecimalPlaces() int32 { return a.cfg.DecimalPlaces }

// FormatAmount renders an amount with the symbol's precision.
func (a *RPCAdapter) FormatAmount(amount decimal.Decimal) string {
	return fmt.Sprintf("%s %s", amount.StringFixed(a.cfg.DecimalPlaces), a.cfg.Symbol)
}

// JSON-RPC plumbing

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (a *RPCAdapter) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	return a.dispatch(ctx, uuid.NewString(), method, params, out, func(req rpcRequest, resp *rpcResponse) error {
		return a.client.PostJSON(ctx, a.cfg.URL, a.headers, req, resp)
	})
}

// callCached uses the method name as the request id so identical queries
// share one cache fingerprint.
func (a *RPCAdapter) callCached(ctx context.Context, method string, params []interface{}, out interface{}) error {
	return a.dispatch(ctx, method, method, params, out, func(req rpcRequest, resp *rpcResponse) error {
		return a.cached.PostJSON(ctx, a.cfg.URL, a.headers, req, resp)
	})
}

func (a *RPCAdapter) dispatch(ctx context.Context, id, method string, params []interface{}, out interface{}, post func(rpcRequest, *rpcResponse) error) error {
	if params == nil {
		params = []interface{}{}
	}
	req := rpcRequest{
		JSONRPC: "1.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}

	var resp rpcResponse
	if err := post(req, &resp); err != nil {
		switch errors.KindOf(err) {
		case errors.KindTransportError, errors.KindProtocolError:
			return errors.Wrap(errors.KindBackendUnavailable,
				fmt.Sprintf("%s backend not responding", a.cfg.Symbol), err)
		default:
			return err
		}
	}
	if resp.Error != nil {
		return errors.Newf(errors.KindExecutionFailure,
			"%s %s failed: %s (code %d)", a.cfg.Symbol, method, resp.Error.Message, resp.Error.Code)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return errors.Wrap(errors.KindDecodeError,
			fmt.Sprintf("invalid %s result", method), err)
	}
	return nil
}
