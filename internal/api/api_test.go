package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alineuh/lnurl-project/internal/flow"
	"github.com/alineuh/lnurl-project/internal/node"
	"github.com/alineuh/lnurl-project/internal/token"
	"github.com/alineuh/lnurl-project/pkg/lnurl"
)

const (
	testPubkey = "021f9b61b38536de1476d37ae75f037717b3aa4223081c2ee9eda51edd14147c16"
	testURI    = testPubkey + "@192.168.27.67:9735"
	publicURL  = "http://127.0.0.1:3000"
)

type stubNode struct {
	payCalls int
	verified bool
	nodeErr  error
}

func (n *stubNode) GetInfo(ctx context.Context) (node.Info, error) {
	return node.Info{ID: testPubkey, Address: "192.168.27.67:9735"}, nil
}

func (n *stubNode) OpenChannel(ctx context.Context, nodeID string, amountSat uint64, announce bool) (node.ChannelReceipt, error) {
	if n.nodeErr != nil {
		return node.ChannelReceipt{}, n.nodeErr
	}
	return node.ChannelReceipt{ChannelID: "chan1", TxID: "tx1"}, nil
}

func (n *stubNode) PayInvoice(ctx context.Context, bolt11 string) (node.PaymentReceipt, error) {
	n.payCalls++
	if n.nodeErr != nil {
		return node.PaymentReceipt{}, n.nodeErr
	}
	return node.PaymentReceipt{PaymentHash: "hash", Status: "complete"}, nil
}

func (n *stubNode) CheckMessage(ctx context.Context, message, signature, pubkey string) (bool, error) {
	if n.nodeErr != nil {
		return false, n.nodeErr
	}
	return n.verified, nil
}

func newTestServer(t *testing.T, n *stubNode) *httptest.Server {
	t.Helper()

	tokens := token.NewStore()
	channel := flow.NewChannel(tokens, n, flow.ChannelConfig{
		CallbackURL: publicURL + "/channel-callback",
		NodeURI:     testURI,
		AmountSat:   100000,
		NodeTimeout: time.Second,
	})
	withdraw := flow.NewWithdraw(tokens, n, flow.WithdrawConfig{
		CallbackURL:         publicURL + "/withdraw-callback",
		DefaultDescription:  "Default withdraw configuration",
		MinWithdrawableMsat: 1000,
		MaxWithdrawableMsat: 1000000,
		NodeTimeout:         time.Second,
	})
	auth := flow.NewAuth(tokens, n, flow.AuthConfig{Action: flow.ActionLogin, NodeTimeout: time.Second})

	a, err := New(channel, withdraw, auth, nil, publicURL, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	routes, err := a.Routes()
	if err != nil {
		t.Fatalf("Routes() error = %v", err)
	}

	srv := httptest.NewServer(routes)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestChannelEndToEnd(t *testing.T) {
	srv := newTestServer(t, &stubNode{})

	var offer struct {
		Tag      string `json:"tag"`
		K1       string `json:"k1"`
		Callback string `json:"callback"`
		URI      string `json:"uri"`
	}
	if code := getJSON(t, srv.URL+"/channel-request", &offer); code != http.StatusOK {
		t.Fatalf("channel-request status = %d", code)
	}
	if offer.Tag != "channelRequest" || len(offer.K1) != 64 || offer.URI != testURI {
		t.Fatalf("channel-request body = %+v", offer)
	}
	if offer.Callback != publicURL+"/channel-callback" {
		t.Fatalf("callback = %q", offer.Callback)
	}

	cb := srv.URL + "/channel-callback?k1=" + offer.K1 + "&remoteid=" + testPubkey + "&private=0"
	var ok struct {
		Status string `json:"status"`
	}
	if code := getJSON(t, cb, &ok); code != http.StatusOK {
		t.Fatalf("channel-callback status = %d", code)
	}
	if ok.Status != "OK" {
		t.Fatalf("channel-callback status field = %q", ok.Status)
	}

	var failure struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if code := getJSON(t, cb, &failure); code != http.StatusBadRequest {
		t.Fatalf("reused k1 status = %d, want 400", code)
	}
	if failure.Status != "ERROR" || failure.Reason == "" {
		t.Fatalf("reused k1 body = %+v, want ERROR with reason", failure)
	}
}

func TestWithdrawEndToEnd(t *testing.T) {
	n := &stubNode{}
	srv := newTestServer(t, n)

	var offer struct {
		Tag             string `json:"tag"`
		K1              string `json:"k1"`
		MinWithdrawable uint64 `json:"minWithdrawable"`
		MaxWithdrawable uint64 `json:"maxWithdrawable"`
	}
	if code := getJSON(t, srv.URL+"/withdraw-request", &offer); code != http.StatusOK {
		t.Fatalf("withdraw-request status = %d", code)
	}
	if offer.Tag != "withdrawRequest" || offer.MinWithdrawable != 1000 || offer.MaxWithdrawable != 1000000 {
		t.Fatalf("withdraw-request body = %+v", offer)
	}

	cb := srv.URL + "/withdraw-callback?k1=" + offer.K1 + "&pr=" + url.QueryEscape("lnbc5u1pexample")
	var ok struct {
		Status string `json:"status"`
	}
	if code := getJSON(t, cb, &ok); code != http.StatusOK {
		t.Fatalf("withdraw-callback status = %d", code)
	}
	if n.payCalls != 1 {
		t.Fatalf("PayInvoice called %d times, want 1", n.payCalls)
	}
}

func TestAuthEndToEnd(t *testing.T) {
	srv := newTestServer(t, &stubNode{verified: true})

	var challenge struct {
		Tag    string `json:"tag"`
		K1     string `json:"k1"`
		Action string `json:"action"`
	}
	if code := getJSON(t, srv.URL+"/auth-challenge", &challenge); code != http.StatusOK {
		t.Fatalf("auth-challenge status = %d", code)
	}
	if challenge.Tag != "login" || challenge.Action != "login" {
		t.Fatalf("auth-challenge body = %+v", challenge)
	}

	cb := srv.URL + "/auth-response?k1=" + challenge.K1 + "&sig=zbasesig&key=" + testPubkey
	var ok struct {
		Status string `json:"status"`
		Event  string `json:"event"`
	}
	if code := getJSON(t, cb, &ok); code != http.StatusOK {
		t.Fatalf("auth-response status = %d", code)
	}
	if ok.Status != "OK" || ok.Event != "LOGGEDIN" {
		t.Fatalf("auth-response body = %+v", ok)
	}
}

func TestAuthRejectedSignature(t *testing.T) {
	srv := newTestServer(t, &stubNode{verified: false})

	var challenge struct {
		K1 string `json:"k1"`
	}
	getJSON(t, srv.URL+"/auth-challenge", &challenge)

	cb := srv.URL + "/auth-response?k1=" + challenge.K1 + "&sig=zbasesig&key=" + testPubkey
	var failure struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if code := getJSON(t, cb, &failure); code != http.StatusUnauthorized {
		t.Fatalf("auth-response status = %d, want 401", code)
	}
	if failure.Status != "ERROR" {
		t.Fatalf("auth-response body = %+v", failure)
	}

	// The token was consumed by the failed attempt.
	if code := getJSON(t, cb, nil); code != http.StatusBadRequest {
		t.Fatalf("replayed auth-response status = %d, want 400", code)
	}
}

func TestUpstreamFailure(t *testing.T) {
	srv := newTestServer(t, &stubNode{nodeErr: errors.New("connection refused")})

	var offer struct {
		K1 string `json:"k1"`
	}
	getJSON(t, srv.URL+"/channel-request", &offer)

	cb := srv.URL + "/channel-callback?k1=" + offer.K1 + "&remoteid=" + testPubkey + "&private=0"
	var failure struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if code := getJSON(t, cb, &failure); code != http.StatusBadGateway {
		t.Fatalf("channel-callback status = %d, want 502", code)
	}
	if failure.Reason == "" || failure.Reason == "connection refused" {
		t.Fatalf("reason = %q, want fixed protocol string", failure.Reason)
	}
}

func TestEncodedOffers(t *testing.T) {
	srv := newTestServer(t, &stubNode{})

	for path, target := range map[string]string{
		"/lnurl/channel":  "/channel-request",
		"/lnurl/withdraw": "/withdraw-request",
		"/lnurl/auth":     "/auth-challenge",
	} {
		var body struct {
			LNURL string `json:"lnurl"`
		}
		if code := getJSON(t, srv.URL+path, &body); code != http.StatusOK {
			t.Fatalf("%s status = %d", path, code)
		}
		decoded, err := lnurl.Decode(body.LNURL)
		if err != nil {
			t.Fatalf("%s: decode %q: %v", path, body.LNURL, err)
		}
		if decoded != publicURL+target {
			t.Fatalf("%s decoded = %q, want %q", path, decoded, publicURL+target)
		}
	}
}

func TestMissingParams(t *testing.T) {
	srv := newTestServer(t, &stubNode{})

	for _, path := range []string{
		"/channel-callback",
		"/withdraw-callback?pr=lnbc5u1pexample",
		"/auth-response?sig=a&key=" + testPubkey,
	} {
		var failure struct {
			Status string `json:"status"`
		}
		if code := getJSON(t, srv.URL+path, &failure); code != http.StatusBadRequest {
			t.Fatalf("%s status = %d, want 400", path, code)
		}
		if failure.Status != "ERROR" {
			t.Fatalf("%s body status = %q, want ERROR", path, failure.Status)
		}
	}
}
