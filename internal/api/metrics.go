package api

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alineuh/lnurl-project/internal/flow"
	"github.com/alineuh/lnurl-project/internal/token"
)

var (
	offersIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lnurld_offers_issued_total",
		Help: "Challenge tokens minted, by flow.",
	}, []string{"flow"})

	tokensRedeemed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lnurld_tokens_redeemed_total",
		Help: "Token redemption attempts at the store, by outcome.",
	}, []string{"outcome"})

	callbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lnurld_callbacks_total",
		Help: "Callback redemption attempts, by flow and outcome.",
	}, []string{"flow", "outcome"})
)

// InstrumentTokens wraps a token store so every redemption attempt is
// counted by outcome, whichever flow triggered it.
func InstrumentTokens(r token.Redeemer) token.Redeemer {
	return instrumentedTokens{r}
}

type instrumentedTokens struct {
	token.Redeemer
}

func (it instrumentedTokens) Redeem(k1 string) error {
	err := it.Redeemer.Redeem(k1)
	tokensRedeemed.WithLabelValues(redeemOutcome(err)).Inc()
	return err
}

func redeemOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, token.ErrAlreadyUsed):
		return "already_used"
	case errors.Is(err, token.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func countCallback(flowName string, err error) {
	callbacksTotal.WithLabelValues(flowName, outcomeLabel(err)).Inc()
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var fe *flow.Error
	if !errors.As(err, &fe) {
		return "internal"
	}
	switch fe.Kind {
	case flow.KindInvalidInput:
		return "invalid_input"
	case flow.KindInvalidToken:
		return "invalid_token"
	case flow.KindUpstream:
		return "upstream"
	case flow.KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}
