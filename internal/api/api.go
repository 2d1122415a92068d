// Package api is the HTTP front of lnurld. It translates the six LNURL
// endpoints into flow calls and shapes flow results and failures into
// the wire format wallets expect.
package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alineuh/lnurl-project/internal/flow"
	"github.com/alineuh/lnurl-project/pkg/bus"
)

// API wires the three flows, the optional event bus, and logging for the
// HTTP handlers.
type API struct {
	channel   *flow.Channel
	withdraw  *flow.Withdraw
	auth      *flow.Auth
	bus       *bus.Bus
	publicURL string
	logger    *log.Logger
}

// New initialises the API layer. The bus may be nil; events are then
// dropped. The logger may be nil and falls back to the default logger.
func New(channel *flow.Channel, withdraw *flow.Withdraw, auth *flow.Auth, eventBus *bus.Bus, publicURL string, logger *log.Logger) (*API, error) {
	if channel == nil || withdraw == nil || auth == nil {
		return nil, errors.New("all three flows are required")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &API{
		channel:   channel,
		withdraw:  withdraw,
		auth:      auth,
		bus:       eventBus,
		publicURL: publicURL,
		logger:    logger,
	}, nil
}

// Routes constructs the chi router containing the LNURL endpoints.
func (a *API) Routes() (http.Handler, error) {
	if a == nil {
		return nil, errors.New("nil api")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/channel-request", a.handleChannelRequest)
	r.Get("/channel-callback", a.handleChannelCallback)
	r.Get("/withdraw-request", a.handleWithdrawRequest)
	r.Get("/withdraw-callback", a.handleWithdrawCallback)
	r.Get("/auth-challenge", a.handleAuthChallenge)
	r.Get("/auth-response", a.handleAuthResponse)

	r.Route("/lnurl", func(r chi.Router) {
		r.Get("/channel", a.handleEncodedOffer("/channel-request"))
		r.Get("/withdraw", a.handleEncodedOffer("/withdraw-request"))
		r.Get("/auth", a.handleEncodedOffer("/auth-challenge"))
	})

	return r, nil
}
