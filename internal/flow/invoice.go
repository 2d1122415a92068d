package flow

import (
	"errors"
	"math"
	"strings"
)

var errNoAmount = errors.New("invoice carries no amount")

// invoiceAmountMsat extracts the amount from a bolt11 invoice's
// human-readable part without decoding the full invoice. The HRP is
// "ln" + network + optional amount + multiplier, where the multiplier
// scales bitcoin: m=milli, u=micro, n=nano, p=pico.
func invoiceAmountMsat(bolt11 string) (uint64, error) {
	s := strings.ToLower(strings.TrimSpace(bolt11))
	sep := strings.LastIndex(s, "1")
	if sep < 0 {
		return 0, errors.New("missing bech32 separator")
	}
	hrp := s[:sep]
	if !strings.HasPrefix(hrp, "ln") {
		return 0, errors.New("not a lightning invoice")
	}
	hrp = hrp[2:]

	// Skip the network prefix (bc, tb, tbs, bcrt, ...).
	i := 0
	for i < len(hrp) && (hrp[i] < '0' || hrp[i] > '9') {
		i++
	}
	if i == len(hrp) {
		return 0, errNoAmount
	}

	var digits uint64
	hasDigits := false
	for ; i < len(hrp); i++ {
		c := hrp[i]
		if c >= '0' && c <= '9' {
			if digits > (1<<63)/10 {
				return 0, errors.New("invoice amount overflows")
			}
			digits = digits*10 + uint64(c-'0')
			hasDigits = true
			continue
		}
		break
	}
	if !hasDigits {
		return 0, errNoAmount
	}

	// Remaining HRP is at most one multiplier character.
	if i < len(hrp)-1 {
		return 0, errors.New("malformed invoice amount")
	}

	// 1 BTC = 10^11 msat.
	var multiplier uint64 = 100_000_000_000
	if i < len(hrp) {
		switch hrp[i] {
		case 'm':
			multiplier = 100_000_000
		case 'u':
			multiplier = 100_000
		case 'n':
			multiplier = 100
		case 'p':
			if digits%10 != 0 {
				return 0, errors.New("sub-millisatoshi invoice amount")
			}
			return digits / 10, nil
		default:
			return 0, errors.New("unknown amount multiplier")
		}
	}
	if digits > math.MaxUint64/multiplier {
		return 0, errors.New("invoice amount overflows")
	}
	return digits * multiplier, nil
}
