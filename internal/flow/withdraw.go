package flow

import (
	"context"
	"time"

	"github.com/alineuh/lnurl-project/internal/node"
	"github.com/alineuh/lnurl-project/internal/token"
)

// WithdrawRequestTag is the LUD-03 protocol tag.
const WithdrawRequestTag = "withdrawRequest"

// WithdrawOffer describes what a wallet may withdraw. Amounts are in
// millisatoshis.
type WithdrawOffer struct {
	Tag                string `json:"tag"`
	Callback           string `json:"callback"`
	K1                 string `json:"k1"`
	DefaultDescription string `json:"defaultDescription"`
	MinWithdrawable    uint64 `json:"minWithdrawable"`
	MaxWithdrawable    uint64 `json:"maxWithdrawable"`
}

// WithdrawConfig carries the server-side withdraw policy.
type WithdrawConfig struct {
	CallbackURL         string
	DefaultDescription  string
	MinWithdrawableMsat uint64
	MaxWithdrawableMsat uint64
	NodeTimeout         time.Duration
}

// Withdraw is the LUD-03 state machine.
type Withdraw struct {
	tokens token.Redeemer
	node   node.Client
	cfg    WithdrawConfig
}

func NewWithdraw(tokens token.Redeemer, nc node.Client, cfg WithdrawConfig) *Withdraw {
	return &Withdraw{tokens: tokens, node: nc, cfg: cfg}
}

// Offer mints a fresh k1 and describes the withdrawable range.
func (f *Withdraw) Offer() (WithdrawOffer, error) {
	k1, err := f.tokens.Issue()
	if err != nil {
		return WithdrawOffer{}, err
	}
	return WithdrawOffer{
		Tag:                WithdrawRequestTag,
		Callback:           f.cfg.CallbackURL,
		K1:                 k1,
		DefaultDescription: f.cfg.DefaultDescription,
		MinWithdrawable:    f.cfg.MinWithdrawableMsat,
		MaxWithdrawable:    f.cfg.MaxWithdrawableMsat,
	}, nil
}

// Callback redeems k1 and pays the wallet's invoice. The invoice amount
// is checked against the offered [min, max] range before anything is
// paid; an amountless invoice is rejected since the wallet would control
// the drain otherwise.
func (f *Withdraw) Callback(ctx context.Context, k1, paymentRequest string) (node.PaymentReceipt, error) {
	if err := f.tokens.Redeem(k1); err != nil {
		return node.PaymentReceipt{}, invalidToken()
	}
	if paymentRequest == "" {
		return node.PaymentReceipt{}, invalidInput("missing pr")
	}

	amountMsat, err := invoiceAmountMsat(paymentRequest)
	if err != nil {
		return node.PaymentReceipt{}, invalidInput("invalid payment request")
	}
	if amountMsat < f.cfg.MinWithdrawableMsat || amountMsat > f.cfg.MaxWithdrawableMsat {
		return node.PaymentReceipt{}, invalidInput("amount outside withdrawable range")
	}

	callCtx, cancel := context.WithTimeout(ctx, f.cfg.NodeTimeout)
	defer cancel()

	receipt, err := f.node.PayInvoice(callCtx, paymentRequest)
	if err != nil {
		return node.PaymentReceipt{}, upstream(err)
	}
	return receipt, nil
}
