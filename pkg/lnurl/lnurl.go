// Package lnurl encodes and decodes LUD-01 lnurl strings: a URL carried
// as the data part of a bech32 string with the "lnurl" prefix, the form
// wallets consume from QR codes.
package lnurl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const hrp = "lnurl"

// Encode wraps a URL as an lnurl bech32 string. LUD-01 ignores the
// 90-character limit of plain bech32, so URLs of any length encode.
func Encode(url string) (string, error) {
	if url == "" {
		return "", errors.New("empty url")
	}
	converted, err := bech32.ConvertBits([]byte(url), 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert url bits: %w", err)
	}
	encoded, err := bech32.Encode(hrp, converted)
	if err != nil {
		return "", fmt.Errorf("bech32 encode: %w", err)
	}
	return encoded, nil
}

// Decode unwraps an lnurl bech32 string back into its URL. Mixed-case
// input is rejected by bech32 itself; fully uppercase input (the QR
// form) is accepted. The 90-character bech32 limit does not apply.
func Decode(encoded string) (string, error) {
	if strings.ToUpper(encoded) == encoded {
		encoded = strings.ToLower(encoded)
	}
	prefix, data, err := bech32.DecodeNoLimit(encoded)
	if err != nil {
		return "", fmt.Errorf("bech32 decode: %w", err)
	}
	if prefix != hrp {
		return "", fmt.Errorf("unexpected prefix %q", prefix)
	}
	converted, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", fmt.Errorf("convert url bits: %w", err)
	}
	return string(converted), nil
}
