// lnurlctl drives an lnurld server through the three LNURL flows using
// the local Core Lightning node as the wallet side. It exists for manual
// testing against a running server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alineuh/lnurl-project/internal/node"
	"github.com/alineuh/lnurl-project/pkg/lnurl"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type clientOptions struct {
	server    string
	rpcSocket string
}

func newRootCommand() *cobra.Command {
	opts := &clientOptions{}

	cmd := &cobra.Command{
		Use:           "lnurlctl",
		Short:         "Test client for the lnurld LNURL endpoints",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.server, "server", "http://127.0.0.1:3000", "Base URL of the lnurld server")
	cmd.PersistentFlags().StringVar(&opts.rpcSocket, "rpc", defaultSocket(), "Path to the local lightning-rpc socket")

	cmd.AddCommand(newChannelCommand(opts))
	cmd.AddCommand(newWithdrawCommand(opts))
	cmd.AddCommand(newAuthCommand(opts))
	cmd.AddCommand(newAllCommand(opts))
	cmd.AddCommand(newDecodeCommand())
	return cmd
}

func defaultSocket() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "lightning-rpc"
	}
	return home + "/.lightning/testnet4/lightning-rpc"
}

func newChannelCommand(opts *clientOptions) *cobra.Command {
	var private bool

	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Request an inbound channel from the server's node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChannel(cmd.Context(), opts, private)
		},
	}
	cmd.Flags().BoolVar(&private, "private", false, "Request an unannounced channel")
	return cmd
}

func newWithdrawCommand(opts *clientOptions) *cobra.Command {
	var amountMsat uint64

	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw funds from the server via a fresh invoice",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithdraw(cmd.Context(), opts, amountMsat)
		},
	}
	cmd.Flags().Uint64Var(&amountMsat, "amount-msat", 50000, "Invoice amount in millisatoshis")
	return cmd
}

func newAuthCommand(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authenticate against the server by signing its challenge",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd.Context(), opts)
		},
	}
}

func newAllCommand(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run the channel, withdraw, and auth flows in sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := runChannel(ctx, opts, false); err != nil {
				return fmt.Errorf("channel: %w", err)
			}
			if err := runWithdraw(ctx, opts, 50000); err != nil {
				return fmt.Errorf("withdraw: %w", err)
			}
			if err := runAuth(ctx, opts); err != nil {
				return fmt.Errorf("auth: %w", err)
			}
			return nil
		},
	}
}

func newDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <lnurl>",
		Short: "Decode an lnurl bech32 string into its URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decoded, err := lnurl.Decode(args[0])
			if err != nil {
				return err
			}
			fmt.Println(decoded)
			return nil
		},
	}
}

var httpClient = &http.Client{Timeout: 60 * time.Second}

func getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", rawURL, err)
	}
	return nil
}

type statusResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
	Event  string `json:"event"`
}

func (s statusResponse) err() error {
	if s.Status == "OK" {
		return nil
	}
	return fmt.Errorf("server returned %s: %s", s.Status, s.Reason)
}

func runChannel(ctx context.Context, opts *clientOptions, private bool) error {
	fmt.Println("== channel request ==")

	var offer struct {
		Tag      string `json:"tag"`
		K1       string `json:"k1"`
		Callback string `json:"callback"`
		URI      string `json:"uri"`
	}
	if err := getJSON(ctx, opts.server+"/channel-request", &offer); err != nil {
		return err
	}
	fmt.Printf("offer: tag=%s uri=%s\n", offer.Tag, offer.URI)

	cln, err := node.DialCLN(opts.rpcSocket)
	if err != nil {
		return err
	}
	defer cln.Close()

	info, err := cln.GetInfo(ctx)
	if err != nil {
		return fmt.Errorf("getinfo: %w", err)
	}
	fmt.Printf("our node: %s\n", info.ID)

	flag := "0"
	if private {
		flag = "1"
	}
	callback := fmt.Sprintf("%s?k1=%s&remoteid=%s&private=%s", offer.Callback, offer.K1, info.ID, flag)

	var result statusResponse
	if err := getJSON(ctx, callback, &result); err != nil {
		return err
	}
	if err := result.err(); err != nil {
		return err
	}
	fmt.Println("channel requested: OK")
	return nil
}

func runWithdraw(ctx context.Context, opts *clientOptions, amountMsat uint64) error {
	fmt.Println("== withdraw request ==")

	var offer struct {
		K1              string `json:"k1"`
		Callback        string `json:"callback"`
		MinWithdrawable uint64 `json:"minWithdrawable"`
		MaxWithdrawable uint64 `json:"maxWithdrawable"`
	}
	if err := getJSON(ctx, opts.server+"/withdraw-request", &offer); err != nil {
		return err
	}
	fmt.Printf("offer: range=[%d, %d] msat\n", offer.MinWithdrawable, offer.MaxWithdrawable)

	if amountMsat < offer.MinWithdrawable || amountMsat > offer.MaxWithdrawable {
		return fmt.Errorf("amount %d msat outside offered range", amountMsat)
	}

	cln, err := node.DialCLN(opts.rpcSocket)
	if err != nil {
		return err
	}
	defer cln.Close()

	label := fmt.Sprintf("lnurl-withdraw-%d", time.Now().Unix())
	bolt11, err := cln.CreateInvoice(ctx, amountMsat, label, "LNURL withdraw test")
	if err != nil {
		return fmt.Errorf("invoice: %w", err)
	}
	fmt.Printf("invoice: %.40s...\n", bolt11)

	callback := fmt.Sprintf("%s?k1=%s&pr=%s", offer.Callback, offer.K1, url.QueryEscape(bolt11))

	var result statusResponse
	if err := getJSON(ctx, callback, &result); err != nil {
		return err
	}
	if err := result.err(); err != nil {
		return err
	}
	fmt.Println("withdrawal paid: OK")
	return nil
}

func runAuth(ctx context.Context, opts *clientOptions) error {
	fmt.Println("== auth challenge ==")

	var challenge struct {
		K1     string `json:"k1"`
		Action string `json:"action"`
	}
	if err := getJSON(ctx, opts.server+"/auth-challenge", &challenge); err != nil {
		return err
	}
	fmt.Printf("challenge: action=%s k1=%s\n", challenge.Action, challenge.K1)

	cln, err := node.DialCLN(opts.rpcSocket)
	if err != nil {
		return err
	}
	defer cln.Close()

	sig, err := cln.SignMessage(ctx, challenge.K1)
	if err != nil {
		return fmt.Errorf("signmessage: %w", err)
	}
	info, err := cln.GetInfo(ctx)
	if err != nil {
		return fmt.Errorf("getinfo: %w", err)
	}

	authURL := fmt.Sprintf("%s/auth-response?k1=%s&sig=%s&key=%s",
		opts.server, challenge.K1, url.QueryEscape(sig), info.ID)

	var result statusResponse
	if err := getJSON(ctx, authURL, &result); err != nil {
		return err
	}
	if err := result.err(); err != nil {
		return err
	}
	fmt.Printf("authenticated: %s\n", result.Event)
	return nil
}
