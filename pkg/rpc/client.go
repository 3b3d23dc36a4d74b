package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/rpcclient"
	"go.uber.org/zap"
)

var (
	// ErrConnectivity marks failures reaching the node or decoding what it
	// sent back. A tick hitting this error is abandoned and retried whole.
	ErrConnectivity = errors.New("node unreachable or response malformed")

	// ErrTxNotInMempool is returned by MempoolEntry when the transaction
	// left the pool between the id-set fetch and the attribute fetch.
	ErrTxNotInMempool = errors.New("transaction no longer in mempool")
)

// Opts configures the connection to the Bitcoin Core JSON-RPC endpoint.
type Opts struct {
	Host string
	User string
	Pass string
}

// Client wraps btcd's rpcclient in HTTP POST mode, which is how bitcoind
// exposes its JSON-RPC interface.
type Client struct {
	logger *zap.Logger
	rpc    *rpcclient.Client
}

// New dials nothing; bitcoind connections are plain HTTP requests, so the
// first call is the first real contact with the node.
func New(logger *zap.Logger, opts Opts) (*Client, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:         opts.Host,
		User:         opts.User,
		Pass:         opts.Pass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}

	cli, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("create rpc client: %w", err)
	}

	return &Client{
		logger: logger.Named("rpc"),
		rpc:    cli,
	}, nil
}

// Shutdown releases the underlying HTTP client.
func (c *Client) Shutdown() {
	c.rpc.Shutdown()
}

// MempoolTxIDs returns the complete current set of unconfirmed transaction ids.
func (c *Client) MempoolTxIDs(ctx context.Context) ([]string, error) {
	raw, err := c.call(ctx, "getrawmempool")
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("%w: decode getrawmempool: %v", ErrConnectivity, err)
	}
	return ids, nil
}

// MempoolVerbose returns the full id -> attribute-record map in one call.
// Used for the baseline dump at session start, where fetching entries one by
// one would mean thousands of round trips.
func (c *Client) MempoolVerbose(ctx context.Context) (map[string]*MempoolEntry, error) {
	verbose, err := json.Marshal(true)
	if err != nil {
		return nil, err
	}

	raw, err := c.call(ctx, "getrawmempool", verbose)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]*MempoolEntry)
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode verbose getrawmempool: %v", ErrConnectivity, err)
	}
	return entries, nil
}

// MempoolEntry returns the attribute record for a single transaction.
// Returns ErrTxNotInMempool when the node no longer knows the id.
func (c *Client) MempoolEntry(ctx context.Context, txid string) (*MempoolEntry, error) {
	arg, err := json.Marshal(txid)
	if err != nil {
		return nil, err
	}

	raw, err := c.call(ctx, "getmempoolentry", arg)
	if err != nil {
		return nil, fmt.Errorf("txid %s: %w", txid, err)
	}

	entry := &MempoolEntry{}
	if err := json.Unmarshal(raw, entry); err != nil {
		return nil, fmt.Errorf("%w: decode getmempoolentry: %v", ErrConnectivity, err)
	}
	return entry, nil
}

// ChainInfo returns the node's current best-block height and hash.
func (c *Client) ChainInfo(ctx context.Context) (*ChainInfo, error) {
	raw, err := c.call(ctx, "getblockchaininfo")
	if err != nil {
		return nil, err
	}

	info := &ChainInfo{}
	if err := json.Unmarshal(raw, info); err != nil {
		return nil, fmt.Errorf("%w: decode getblockchaininfo: %v", ErrConnectivity, err)
	}
	return info, nil
}

// call issues one JSON-RPC request and classifies the failure. rpcclient has
// no context plumbing of its own, so cancellation is checked up front; the
// monitor's loop never issues calls it intends to abandon midway.
func (c *Client) call(ctx context.Context, method string, params ...json.RawMessage) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}

	raw, err := c.rpc.RawRequest(method, params)
	if err != nil {
		return nil, classify(method, err)
	}
	return raw, nil
}

// classify maps an rpcclient error onto the package sentinels. Bitcoin Core
// answers getmempoolentry for an unknown id with RPC error -5
// ("Transaction not in mempool"); everything else counts as connectivity.
func classify(method string, err error) error {
	var rpcErr *btcjson.RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == btcjson.ErrRPCInvalidAddressOrKey {
		return fmt.Errorf("%s: %w", method, ErrTxNotInMempool)
	}
	return fmt.Errorf("%s: %w: %v", method, ErrConnectivity, err)
}
