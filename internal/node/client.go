// Package node abstracts the payment-network node the service delegates
// to: channel funding, invoice payment, and signed-message checks.
package node

import "context"

// Info is the node's public identity as advertised to wallets.
type Info struct {
	ID      string // compressed public key, hex
	Address string // host:port the node listens on
}

// ChannelReceipt reports the funding transaction of an opened channel.
type ChannelReceipt struct {
	ChannelID string
	TxID      string
	Outnum    uint32
}

// PaymentReceipt reports a settled invoice payment.
type PaymentReceipt struct {
	PaymentHash string
	Preimage    string
	Status      string
}

// Client is the RPC surface the flows need from the node. Implementations
// must be safe for concurrent use; the Core Lightning adapter serializes
// calls internally because its transport carries one request at a time.
type Client interface {
	GetInfo(ctx context.Context) (Info, error)
	OpenChannel(ctx context.Context, nodeID string, amountSat uint64, announce bool) (ChannelReceipt, error)
	PayInvoice(ctx context.Context, bolt11 string) (PaymentReceipt, error)
	CheckMessage(ctx context.Context, message, signature, pubkey string) (bool, error)
}
