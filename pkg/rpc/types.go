package rpc

import "github.com/shopspring/decimal"

// MempoolFees is the "fees" object Bitcoin Core attaches to a verbose
// mempool entry. Amounts are in BTC; decimals preserve the 8 fractional
// digits exactly instead of round-tripping through float64.
type MempoolFees struct {
	Base       decimal.Decimal `json:"base"`
	Modified   decimal.Decimal `json:"modified"`
	Ancestor   decimal.Decimal `json:"ancestor"`
	Descendant decimal.Decimal `json:"descendant"`
}

// MempoolEntry is one transaction's attribute record as returned by
// getmempoolentry and by getrawmempool with verbose=true.
type MempoolEntry struct {
	VSize             uint32      `json:"vsize"`
	Weight            uint32      `json:"weight"`
	Time              int64       `json:"time"`
	Height            uint64      `json:"height"`
	DescendantCount   uint64      `json:"descendantcount"`
	DescendantSize    uint64      `json:"descendantsize"`
	AncestorCount     uint64      `json:"ancestorcount"`
	AncestorSize      uint64      `json:"ancestorsize"`
	WTxID             string      `json:"wtxid"`
	Fees              MempoolFees `json:"fees"`
	Depends           []string    `json:"depends"`
	SpentBy           []string    `json:"spentby"`
	BIP125Replaceable bool        `json:"bip125-replaceable"`
	Unbroadcast       bool        `json:"unbroadcast"`
}

// ChainInfo is the slice of getblockchaininfo the monitor records per tick.
type ChainInfo struct {
	Height        uint64 `json:"blocks"`
	BestBlockHash string `json:"bestblockhash"`
}
