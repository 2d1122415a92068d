package api

import (
	"context"
	"net/http"

	"github.com/alineuh/lnurl-project/pkg/bus"
	"github.com/alineuh/lnurl-project/pkg/lnurl"
)

func (a *API) handleChannelRequest(w http.ResponseWriter, r *http.Request) {
	offer, err := a.channel.Offer()
	if err != nil {
		a.logger.Printf("ERROR channel offer: %v", err)
		respondJSON(w, http.StatusInternalServerError, errorBody{Status: "ERROR", Reason: "internal error"})
		return
	}
	offersIssued.WithLabelValues("channel").Inc()
	respondJSON(w, http.StatusOK, offer)
}

func (a *API) handleChannelCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	receipt, err := a.channel.Callback(r.Context(), q.Get("k1"), q.Get("remoteid"), q.Get("private"))
	countCallback("channel", err)
	if err != nil {
		a.logger.Printf("ERROR channel callback: %v", err)
		respondFlowError(w, err)
		return
	}

	a.publish(r.Context(), bus.SubjectChannelOpened, map[string]any{
		"channel_id": receipt.ChannelID,
		"txid":       receipt.TxID,
	})
	respondJSON(w, http.StatusOK, statusBody{Status: "OK"})
}

func (a *API) handleWithdrawRequest(w http.ResponseWriter, r *http.Request) {
	offer, err := a.withdraw.Offer()
	if err != nil {
		a.logger.Printf("ERROR withdraw offer: %v", err)
		respondJSON(w, http.StatusInternalServerError, errorBody{Status: "ERROR", Reason: "internal error"})
		return
	}
	offersIssued.WithLabelValues("withdraw").Inc()
	respondJSON(w, http.StatusOK, offer)
}

func (a *API) handleWithdrawCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	receipt, err := a.withdraw.Callback(r.Context(), q.Get("k1"), q.Get("pr"))
	countCallback("withdraw", err)
	if err != nil {
		a.logger.Printf("ERROR withdraw callback: %v", err)
		respondFlowError(w, err)
		return
	}

	a.publish(r.Context(), bus.SubjectWithdrawPaid, map[string]any{
		"payment_hash": receipt.PaymentHash,
		"status":       receipt.Status,
	})
	respondJSON(w, http.StatusOK, statusBody{Status: "OK"})
}

func (a *API) handleAuthChallenge(w http.ResponseWriter, r *http.Request) {
	challenge, err := a.auth.Offer()
	if err != nil {
		a.logger.Printf("ERROR auth challenge: %v", err)
		respondJSON(w, http.StatusInternalServerError, errorBody{Status: "ERROR", Reason: "internal error"})
		return
	}
	offersIssued.WithLabelValues("auth").Inc()
	respondJSON(w, http.StatusOK, challenge)
}

func (a *API) handleAuthResponse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := a.auth.Callback(r.Context(), q.Get("k1"), q.Get("sig"), q.Get("key"))
	countCallback("auth", err)
	if err != nil {
		a.logger.Printf("ERROR auth response: %v", err)
		respondFlowError(w, err)
		return
	}

	a.publish(r.Context(), bus.SubjectAuthCompleted, map[string]any{
		"event":  result.Event,
		"pubkey": result.Pubkey,
	})
	respondJSON(w, http.StatusOK, statusBody{Status: "OK", Event: result.Event})
}

// handleEncodedOffer serves the LUD-01 form of an offer endpoint: the
// offer URL wrapped as a bech32 lnurl string wallets can scan.
func (a *API) handleEncodedOffer(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		encoded, err := lnurl.Encode(a.publicURL + path)
		if err != nil {
			a.logger.Printf("ERROR encode lnurl for %s: %v", path, err)
			respondJSON(w, http.StatusInternalServerError, errorBody{Status: "ERROR", Reason: "internal error"})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"lnurl": encoded})
	}
}

func (a *API) publish(ctx context.Context, subject string, data map[string]any) {
	if a.bus == nil {
		return
	}
	if err := a.bus.Publish(ctx, subject, data); err != nil {
		a.logger.Printf("WARN publish %s: %v", subject, err)
	}
}
