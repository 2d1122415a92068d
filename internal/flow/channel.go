package flow

import (
	"context"
	"time"

	"github.com/alineuh/lnurl-project/internal/node"
	"github.com/alineuh/lnurl-project/internal/token"
)

// ChannelRequestTag is the LUD-02 protocol tag.
const ChannelRequestTag = "channelRequest"

// ChannelOffer describes an inbound channel offer to a wallet.
type ChannelOffer struct {
	Tag      string `json:"tag"`
	K1       string `json:"k1"`
	Callback string `json:"callback"`
	URI      string `json:"uri"`
}

// ChannelConfig carries the server-side policy for channel requests.
type ChannelConfig struct {
	// CallbackURL is the absolute URL wallets call back with the k1.
	CallbackURL string
	// NodeURI is the advertised pubkey@host:port of our node.
	NodeURI string
	// AmountSat is the channel funding amount. It is server policy, never
	// client-supplied, so a wallet cannot dictate our capital exposure.
	AmountSat uint64
	// NodeTimeout bounds the fundchannel call.
	NodeTimeout time.Duration
}

// Channel is the LUD-02 state machine.
type Channel struct {
	tokens token.Redeemer
	node   node.Client
	cfg    ChannelConfig
}

func NewChannel(tokens token.Redeemer, nc node.Client, cfg ChannelConfig) *Channel {
	return &Channel{tokens: tokens, node: nc, cfg: cfg}
}

// Offer mints a fresh k1 and describes the channel the wallet may
// request. The only side effect is the token issuance.
func (f *Channel) Offer() (ChannelOffer, error) {
	k1, err := f.tokens.Issue()
	if err != nil {
		return ChannelOffer{}, err
	}
	return ChannelOffer{
		Tag:      ChannelRequestTag,
		K1:       k1,
		Callback: f.cfg.CallbackURL,
		URI:      f.cfg.NodeURI,
	}, nil
}

// Callback redeems k1 and opens a channel to remoteID. The token is
// consumed before the node is contacted; a node failure does not return
// it, the wallet has to restart the flow.
func (f *Channel) Callback(ctx context.Context, k1, remoteID, private string) (node.ChannelReceipt, error) {
	if err := f.tokens.Redeem(k1); err != nil {
		return node.ChannelReceipt{}, invalidToken()
	}
	if !validPubkey(remoteID) {
		return node.ChannelReceipt{}, invalidInput("invalid remoteid")
	}

	var announce bool
	switch private {
	case "", "0":
		announce = true
	case "1":
		announce = false
	default:
		return node.ChannelReceipt{}, invalidInput("invalid private flag")
	}

	callCtx, cancel := context.WithTimeout(ctx, f.cfg.NodeTimeout)
	defer cancel()

	receipt, err := f.node.OpenChannel(callCtx, remoteID, f.cfg.AmountSat, announce)
	if err != nil {
		return node.ChannelReceipt{}, upstream(err)
	}
	return receipt, nil
}
