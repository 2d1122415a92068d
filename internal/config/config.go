// Package config loads the lnurld runtime configuration from the
// environment, with the domain policy optionally overridden by a YAML
// file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy holds the server-side amounts and tags the flows enforce.
// Clients never influence these values.
type Policy struct {
	// ChannelAmountSat is the fixed funding amount for requested channels.
	ChannelAmountSat uint64 `yaml:"channel_amount_sat"`
	// MinWithdrawableMsat / MaxWithdrawableMsat bound withdrawals.
	MinWithdrawableMsat uint64 `yaml:"min_withdrawable_msat"`
	MaxWithdrawableMsat uint64 `yaml:"max_withdrawable_msat"`
	// DefaultDescription is offered to wallets building withdraw invoices.
	DefaultDescription string `yaml:"default_description"`
	// AuthAction is what a successful auth accomplishes:
	// register, login, link, or auth.
	AuthAction string `yaml:"auth_action"`
}

type Config struct {
	// Listen is the HTTP bind address.
	Listen string
	// PublicURL is the externally reachable base URL used to build the
	// callback URLs handed to wallets.
	PublicURL string
	// RPCSocket is the path to the Core Lightning lightning-rpc socket.
	RPCSocket string
	// NodeURI overrides the advertised pubkey@host:port; when empty it is
	// derived from getinfo at startup.
	NodeURI string
	// NodeTimeout bounds every node RPC call.
	NodeTimeout time.Duration
	// NATSURL enables event publishing when set.
	NATSURL string

	Policy Policy
}

// Load reads configuration from LNURLD_* environment variables. When
// LNURLD_POLICY_FILE is set, the policy section is loaded from that YAML
// file on top of the defaults.
func Load() (Config, error) {
	cfg := Config{
		Listen:      getEnv("LNURLD_LISTEN", ":3000"),
		PublicURL:   strings.TrimRight(getEnv("LNURLD_PUBLIC_URL", "http://127.0.0.1:3000"), "/"),
		RPCSocket:   getEnv("LNURLD_RPC_SOCKET", defaultRPCSocket()),
		NodeURI:     os.Getenv("LNURLD_NODE_URI"),
		NodeTimeout: 30 * time.Second,
		NATSURL:     os.Getenv("LNURLD_NATS_URL"),
		Policy: Policy{
			ChannelAmountSat:    100000,
			MinWithdrawableMsat: 1000,
			MaxWithdrawableMsat: 1000000,
			DefaultDescription:  "Default withdraw configuration",
			AuthAction:          "login",
		},
	}

	if v := os.Getenv("LNURLD_NODE_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return Config{}, fmt.Errorf("invalid LNURLD_NODE_TIMEOUT_SECONDS: %q", v)
		}
		cfg.NodeTimeout = time.Duration(secs) * time.Second
	}

	if path := os.Getenv("LNURLD_POLICY_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read policy file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg.Policy); err != nil {
			return Config{}, fmt.Errorf("parse policy file %s: %w", path, err)
		}
	}

	if err := cfg.Policy.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (p Policy) validate() error {
	if p.ChannelAmountSat == 0 {
		return fmt.Errorf("channel_amount_sat must be positive")
	}
	if p.MaxWithdrawableMsat == 0 {
		return fmt.Errorf("max_withdrawable_msat must be positive")
	}
	if p.MinWithdrawableMsat > p.MaxWithdrawableMsat {
		return fmt.Errorf("min_withdrawable_msat %d exceeds max_withdrawable_msat %d",
			p.MinWithdrawableMsat, p.MaxWithdrawableMsat)
	}
	switch p.AuthAction {
	case "register", "login", "link", "auth":
		return nil
	default:
		return fmt.Errorf("invalid auth_action: %q", p.AuthAction)
	}
}

func defaultRPCSocket() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "lightning-rpc"
	}
	return filepath.Join(home, ".lightning", "testnet4", "lightning-rpc")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
