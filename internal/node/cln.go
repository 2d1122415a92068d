package node

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

// CLN talks JSON-RPC 2.0 to a Core Lightning node over its lightning-rpc
// unix socket. The socket is a single stateful connection that does not
// multiplex, so every call holds a mutex for its full round trip.
type CLN struct {
	socketPath string

	mu     sync.Mutex
	conn   net.Conn
	enc    *json.Encoder
	dec    *json.Decoder
	nextID uint64
}

// DialCLN connects to the lightning-rpc socket at path.
func DialCLN(path string) (*CLN, error) {
	c := &CLN{socketPath: path}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CLN) connect() error {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("dial lightning-rpc %s: %w", c.socketPath, err)
	}
	c.conn = conn
	c.enc = json.NewEncoder(conn)
	c.dec = json.NewDecoder(conn)
	return nil
}

// Close shuts down the socket connection.
func (c *CLN) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("lightning-rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one serialized round trip. The context deadline is
// applied to the socket; a broken or timed-out connection is dropped so
// the next call redials instead of reading a stale stream.
func (c *CLN) call(ctx context.Context, method string, params, result any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connect(); err != nil {
			return err
		}
	}

	deadline := time.Time{}
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("%s: set deadline: %w", method, err)
	}

	c.nextID++
	req := rpcRequest{JSONRPC: "2.0", ID: c.nextID, Method: method, Params: params}
	if err := c.enc.Encode(&req); err != nil {
		c.drop()
		return fmt.Errorf("%s: send: %w", method, err)
	}

	var resp rpcResponse
	if err := c.dec.Decode(&resp); err != nil {
		c.drop()
		return fmt.Errorf("%s: receive: %w", method, err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%s: %w", method, resp.Error)
	}
	if result != nil {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

func (c *CLN) drop() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.enc = nil
	c.dec = nil
}

func (c *CLN) GetInfo(ctx context.Context) (Info, error) {
	var res struct {
		ID      string `json:"id"`
		Binding []struct {
			Type    string `json:"type"`
			Address string `json:"address"`
			Port    int    `json:"port"`
		} `json:"binding"`
	}
	if err := c.call(ctx, "getinfo", struct{}{}, &res); err != nil {
		return Info{}, err
	}

	info := Info{ID: res.ID}
	for _, b := range res.Binding {
		if b.Address == "" {
			continue
		}
		info.Address = fmt.Sprintf("%s:%d", b.Address, b.Port)
		break
	}
	return info, nil
}

func (c *CLN) OpenChannel(ctx context.Context, nodeID string, amountSat uint64, announce bool) (ChannelReceipt, error) {
	params := struct {
		ID       string `json:"id"`
		Amount   string `json:"amount"`
		Announce bool   `json:"announce"`
	}{
		ID:       nodeID,
		Amount:   fmt.Sprintf("%dsat", amountSat),
		Announce: announce,
	}

	var res struct {
		ChannelID string `json:"channel_id"`
		TxID      string `json:"txid"`
		Outnum    uint32 `json:"outnum"`
	}
	if err := c.call(ctx, "fundchannel", params, &res); err != nil {
		return ChannelReceipt{}, err
	}
	return ChannelReceipt{ChannelID: res.ChannelID, TxID: res.TxID, Outnum: res.Outnum}, nil
}

func (c *CLN) PayInvoice(ctx context.Context, bolt11 string) (PaymentReceipt, error) {
	params := struct {
		Bolt11 string `json:"bolt11"`
	}{Bolt11: bolt11}

	var res struct {
		PaymentHash string `json:"payment_hash"`
		Preimage    string `json:"payment_preimage"`
		Status      string `json:"status"`
	}
	if err := c.call(ctx, "pay", params, &res); err != nil {
		return PaymentReceipt{}, err
	}
	return PaymentReceipt{PaymentHash: res.PaymentHash, Preimage: res.Preimage, Status: res.Status}, nil
}

// CreateInvoice asks the node for a fresh bolt11 invoice. Used by the
// wallet side of the withdraw flow (lnurlctl), not by the server.
func (c *CLN) CreateInvoice(ctx context.Context, amountMsat uint64, label, description string) (string, error) {
	params := struct {
		AmountMsat  uint64 `json:"amount_msat"`
		Label       string `json:"label"`
		Description string `json:"description"`
	}{AmountMsat: amountMsat, Label: label, Description: description}

	var res struct {
		Bolt11 string `json:"bolt11"`
	}
	if err := c.call(ctx, "invoice", params, &res); err != nil {
		return "", err
	}
	return res.Bolt11, nil
}

// SignMessage signs message with the node identity key and returns the
// zbase-encoded signature. Used by the wallet side of the auth flow.
func (c *CLN) SignMessage(ctx context.Context, message string) (string, error) {
	params := struct {
		Message string `json:"message"`
	}{Message: message}

	var res struct {
		Zbase string `json:"zbase"`
	}
	if err := c.call(ctx, "signmessage", params, &res); err != nil {
		return "", err
	}
	return res.Zbase, nil
}

// CheckMessage verifies a zbase-encoded signmessage signature against the
// claimed public key. A node error and a failed verification are distinct
// outcomes.
func (c *CLN) CheckMessage(ctx context.Context, message, signature, pubkey string) (bool, error) {
	params := struct {
		Message string `json:"message"`
		Zbase   string `json:"zbase"`
		Pubkey  string `json:"pubkey"`
	}{Message: message, Zbase: signature, Pubkey: pubkey}

	var res struct {
		Verified bool `json:"verified"`
	}
	if err := c.call(ctx, "checkmessage", params, &res); err != nil {
		return false, err
	}
	return res.Verified, nil
}
