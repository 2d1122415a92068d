package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"LNURLD_LISTEN", "LNURLD_PUBLIC_URL", "LNURLD_RPC_SOCKET",
		"LNURLD_NODE_URI", "LNURLD_NODE_TIMEOUT_SECONDS",
		"LNURLD_NATS_URL", "LNURLD_POLICY_FILE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Listen != ":3000" {
		t.Errorf("Listen = %q, want :3000", cfg.Listen)
	}
	if cfg.PublicURL != "http://127.0.0.1:3000" {
		t.Errorf("PublicURL = %q", cfg.PublicURL)
	}
	if cfg.NodeTimeout != 30*time.Second {
		t.Errorf("NodeTimeout = %v, want 30s", cfg.NodeTimeout)
	}
	if cfg.Policy.MinWithdrawableMsat != 1000 || cfg.Policy.MaxWithdrawableMsat != 1000000 {
		t.Errorf("withdraw range = [%d, %d]", cfg.Policy.MinWithdrawableMsat, cfg.Policy.MaxWithdrawableMsat)
	}
	if cfg.Policy.AuthAction != "login" {
		t.Errorf("AuthAction = %q, want login", cfg.Policy.AuthAction)
	}
}

func TestLoadTrimsPublicURL(t *testing.T) {
	t.Setenv("LNURLD_PUBLIC_URL", "https://ln.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PublicURL != "https://ln.example.com" {
		t.Errorf("PublicURL = %q, want trailing slash trimmed", cfg.PublicURL)
	}
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	policy := `
channel_amount_sat: 250000
min_withdrawable_msat: 5000
max_withdrawable_msat: 2000000
default_description: "team withdrawal"
auth_action: register
`
	if err := os.WriteFile(path, []byte(policy), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	t.Setenv("LNURLD_POLICY_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Policy.ChannelAmountSat != 250000 {
		t.Errorf("ChannelAmountSat = %d, want 250000", cfg.Policy.ChannelAmountSat)
	}
	if cfg.Policy.DefaultDescription != "team withdrawal" {
		t.Errorf("DefaultDescription = %q", cfg.Policy.DefaultDescription)
	}
	if cfg.Policy.AuthAction != "register" {
		t.Errorf("AuthAction = %q, want register", cfg.Policy.AuthAction)
	}
}

func TestLoadRejectsBadPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy string
	}{
		{
			name:   "min above max",
			policy: "min_withdrawable_msat: 10\nmax_withdrawable_msat: 5\nchannel_amount_sat: 1\nauth_action: login\n",
		},
		{
			name:   "zero channel amount",
			policy: "channel_amount_sat: 0\nmax_withdrawable_msat: 5\nauth_action: login\n",
		},
		{
			name:   "unknown auth action",
			policy: "channel_amount_sat: 1\nmax_withdrawable_msat: 5\nauth_action: impersonate\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "policy.yaml")
			if err := os.WriteFile(path, []byte(tt.policy), 0o600); err != nil {
				t.Fatalf("write policy: %v", err)
			}
			t.Setenv("LNURLD_POLICY_FILE", path)
			if _, err := Load(); err == nil {
				t.Fatal("Load() error = nil, want validation error")
			}
		})
	}
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	t.Setenv("LNURLD_NODE_TIMEOUT_SECONDS", "-3")
	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want error")
	}
}
