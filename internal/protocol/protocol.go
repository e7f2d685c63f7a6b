// Package protocol defines the supported DeFi protocols and the single
// table mapping each protocol to its default configuration and its
// application-call argument encoder. Adding a protocol means adding one
// table entry; nothing else in the codebase branches on protocol names.
package protocol

import (
	"encoding/binary"

	apperrors "algoswarm/internal/errors"
	"algoswarm/internal/models"
)

// Protocol identifies a supported DeFi protocol.
type Protocol string

const (
	Tinyman Protocol = "tinyman"
	AlgoFi  Protocol = "algofi"
	Pact    Protocol = "pact"
	Folks   Protocol = "folks_finance"
)

// Encoder builds the application-call argument vector for a method call
// moving the given amount (in microAlgos).
type Encoder func(method string, amount uint64) [][]byte

// ExtraRule is an optional protocol-specific validation layered on top of
// the generic bounds checks. It returns a rejection reason, or "" when the
// amount is acceptable. The generic checks never waive a stricter rule.
type ExtraRule func(amount int64, cfg *models.ProtocolConfig) string

// Spec is one protocol's entry in the table: its default on-chain
// configuration plus its encoder and extra validation rule.
type Spec struct {
	Config     models.ProtocolConfig
	EncodeArgs Encoder
	Extra      ExtraRule
}

func uint64Arg(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// encodeMethodAmount is the common two-argument layout: method name
// followed by a big-endian uint64 amount.
func encodeMethodAmount(method string, amount uint64) [][]byte {
	return [][]byte{[]byte(method), uint64Arg(amount)}
}

func encodeWithPool(poolID uint64) Encoder {
	return func(method string, amount uint64) [][]byte {
		return append(encodeMethodAmount(method, amount), uint64Arg(poolID))
	}
}

var table = map[Protocol]Spec{
	Tinyman: {
		Config: models.ProtocolConfig{
			ProtocolName:           string(Tinyman),
			AppID:                  552635992,
			DepositMethod:          "bootstrap",
			WithdrawMethod:         "burn",
			Fee:                    3000,
			MinBalanceReserve:      200000,
			MinDeposit:             1000000,
			MaxDeposit:             1000000000000,
			WithdrawalDelaySeconds: 86400,
			RiskTier:               "medium",
		},
		EncodeArgs: encodeMethodAmount,
	},
	AlgoFi: {
		Config: models.ProtocolConfig{
			ProtocolName:           string(AlgoFi),
			AppID:                  465814065,
			DepositMethod:          "mint",
			WithdrawMethod:         "redeem",
			Fee:                    2000,
			MinBalanceReserve:      250000,
			MinDeposit:             1000000,
			MaxDeposit:             500000000000,
			WithdrawalDelaySeconds: 172800,
			RiskTier:               "low",
		},
		EncodeArgs: encodeMethodAmount,
	},
	Pact: {
		Config: models.ProtocolConfig{
			ProtocolName:           string(Pact),
			AppID:                  620995314,
			DepositMethod:          "add_liquidity",
			WithdrawMethod:         "remove_liquidity",
			Fee:                    3000,
			MinBalanceReserve:      200000,
			MinDeposit:             2000000,
			MaxDeposit:             750000000000,
			WithdrawalDelaySeconds: 86400,
			RiskTier:               "medium",
		},
		EncodeArgs: encodeWithPool(620995521),
	},
	Folks: {
		Config: models.ProtocolConfig{
			ProtocolName:           string(Folks),
			AppID:                  686498781,
			DepositMethod:          "deposit",
			WithdrawMethod:         "withdraw",
			Fee:                    4000,
			MinBalanceReserve:      300000,
			MinDeposit:             1000000,
			MaxDeposit:             250000000000,
			WithdrawalDelaySeconds: 259200,
			RiskTier:               "high",
		},
		EncodeArgs: encodeMethodAmount,
		// High-risk tier enforces a larger effective minimum than the
		// generic bounds check.
		Extra: func(amount int64, cfg *models.ProtocolConfig) string {
			const folksMinimum = 5000000
			if amount < folksMinimum {
				return "folks_finance requires a minimum deposit of 5000000 microAlgos for high-risk positions"
			}
			return ""
		},
	},
}

// Parse maps a protocol name to its Protocol value.
// Unknown names are a terminal, non-retryable error.
func Parse(name string) (Protocol, error) {
	p := Protocol(name)
	if _, ok := table[p]; !ok {
		return "", apperrors.WithMessage(apperrors.ErrUnknownProtocol, "Unknown DeFi protocol: "+name)
	}
	return p, nil
}

// Lookup returns the table entry for a protocol name.
func Lookup(name string) (*Spec, error) {
	p, err := Parse(name)
	if err != nil {
		return nil, err
	}
	spec := table[p]
	return &spec, nil
}

// All returns every protocol's default configuration, for seeding the
// protocol_configs table.
func All() []models.ProtocolConfig {
	configs := make([]models.ProtocolConfig, 0, len(table))
	for _, spec := range table {
		configs = append(configs, spec.Config)
	}
	return configs
}

// Names returns the supported protocol names.
func Names() []string {
	names := make([]string, 0, len(table))
	for p := range table {
		names = append(names, string(p))
	}
	return names
}
