package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alineuh/lnurl-project/internal/api"
	"github.com/alineuh/lnurl-project/internal/config"
	"github.com/alineuh/lnurl-project/internal/flow"
	"github.com/alineuh/lnurl-project/internal/node"
	"github.com/alineuh/lnurl-project/internal/token"
	"github.com/alineuh/lnurl-project/pkg/bus"
	"github.com/alineuh/lnurl-project/pkg/telemetry"
)

func main() {
	if err := run("lnurld"); err != nil {
		log.New(os.Stderr, "", log.LstdFlags).Fatal(err)
	}
}

func run(serviceName string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, middleware, logger, err := telemetry.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownTelemetry != nil {
			if err := shutdownTelemetry(shutdownCtx); err != nil {
				fmt.Fprintf(os.Stderr, "%s: telemetry shutdown error: %v\n", serviceName, err)
			}
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	nodeClient, err := node.DialCLN(cfg.RPCSocket)
	if err != nil {
		return fmt.Errorf("connect node: %w", err)
	}
	defer nodeClient.Close()

	var nodeReady atomic.Bool
	nodeURI, err := resolveNodeURI(ctx, nodeClient, cfg)
	if err != nil {
		return err
	}
	nodeReady.Store(true)
	logger.Printf("INFO serving offers for node %s", nodeURI)

	var eventBus *bus.Bus
	if cfg.NATSURL != "" {
		eventBus, err = bus.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer eventBus.Close()
		logger.Printf("INFO publishing events to %s", cfg.NATSURL)
	}

	tokens := api.InstrumentTokens(token.NewStore())
	channel := flow.NewChannel(tokens, nodeClient, flow.ChannelConfig{
		CallbackURL: cfg.PublicURL + "/channel-callback",
		NodeURI:     nodeURI,
		AmountSat:   cfg.Policy.ChannelAmountSat,
		NodeTimeout: cfg.NodeTimeout,
	})
	withdraw := flow.NewWithdraw(tokens, nodeClient, flow.WithdrawConfig{
		CallbackURL:         cfg.PublicURL + "/withdraw-callback",
		DefaultDescription:  cfg.Policy.DefaultDescription,
		MinWithdrawableMsat: cfg.Policy.MinWithdrawableMsat,
		MaxWithdrawableMsat: cfg.Policy.MaxWithdrawableMsat,
		NodeTimeout:         cfg.NodeTimeout,
	})
	auth := flow.NewAuth(tokens, nodeClient, flow.AuthConfig{
		Action:      cfg.Policy.AuthAction,
		NodeTimeout: cfg.NodeTimeout,
	})

	front, err := api.New(channel, withdraw, auth, eventBus, cfg.PublicURL, logger)
	if err != nil {
		return fmt.Errorf("init api: %w", err)
	}
	routes, err := front.Routes()
	if err != nil {
		return fmt.Errorf("build routes: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if nodeReady.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "node identity not resolved", http.StatusServiceUnavailable)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", routes)

	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: middleware(mux),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "%s: http shutdown error: %v\n", serviceName, err)
		}
	}()

	logger.Printf("INFO http listening on %s", server.Addr)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("ERROR server failed: %v", err)
		return err
	}
	return nil
}

// resolveNodeURI builds the advertised pubkey@host:port, preferring the
// configured override and falling back to what getinfo reports.
func resolveNodeURI(ctx context.Context, client node.Client, cfg config.Config) (string, error) {
	if cfg.NodeURI != "" {
		return cfg.NodeURI, nil
	}

	infoCtx, cancel := context.WithTimeout(ctx, cfg.NodeTimeout)
	defer cancel()

	info, err := client.GetInfo(infoCtx)
	if err != nil {
		return "", fmt.Errorf("getinfo: %w", err)
	}
	if info.Address == "" {
		return "", errors.New("node reports no listening address, set LNURLD_NODE_URI")
	}
	return fmt.Sprintf("%s@%s", info.ID, info.Address), nil
}
