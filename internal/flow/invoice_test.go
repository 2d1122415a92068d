package flow

import "testing"

func TestInvoiceAmountMsat(t *testing.T) {
	tests := []struct {
		name    string
		bolt11  string
		want    uint64
		wantErr bool
	}{
		{name: "micro", bolt11: "lnbc500u1pexample", want: 50_000_000},
		{name: "milli", bolt11: "lnbc1m1pexample", want: 100_000_000},
		{name: "nano", bolt11: "lnbc10n1pexample", want: 1_000},
		{name: "pico", bolt11: "lnbc100p1pexample", want: 10},
		{name: "whole bitcoin", bolt11: "lnbc21pexample", want: 200_000_000_000},
		{name: "testnet", bolt11: "lntb5u1pexample", want: 500_000},
		{name: "regtest", bolt11: "lnbcrt5u1pexample", want: 500_000},
		{name: "uppercase", bolt11: "LNBC5U1PEXAMPLE", want: 500_000},
		{name: "no amount", bolt11: "lnbc1pexample", wantErr: true},
		{name: "wrapping micro amount", bolt11: "lnbc184467440737096u1pexample", wantErr: true},
		{name: "wrapping milli amount", bolt11: "lnbc999999999999m1pexample", wantErr: true},
		{name: "wrapping whole bitcoin", bolt11: "lnbc9999999991pexample", wantErr: true},
		{name: "sub msat pico", bolt11: "lnbc5p1pexample", wantErr: true},
		{name: "bad multiplier", bolt11: "lnbc5x1pexample", wantErr: true},
		{name: "not lightning", bolt11: "bc1qexample", wantErr: true},
		{name: "no separator", bolt11: "lnbc", wantErr: true},
		{name: "empty", bolt11: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := invoiceAmountMsat(tt.bolt11)
			if (err != nil) != tt.wantErr {
				t.Fatalf("invoiceAmountMsat(%q) error = %v, wantErr %v", tt.bolt11, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got != tt.want {
				t.Fatalf("invoiceAmountMsat(%q) = %d, want %d", tt.bolt11, got, tt.want)
			}
		})
	}
}
