package services

import (
	"context"
	"fmt"

	apperrors "algoswarm/internal/errors"
	"algoswarm/internal/protocol"
)

// validatorService runs pre-flight checks against the protocol registry
// and the current on-chain balance. It mutates nothing, so the same check
// is safe to run twice: once when the caller first builds a transaction and
// again immediately before submission.
type validatorService struct {
	registry RegistryServicer
	gateway  ChainGateway
}

// NewValidatorService creates a new ValidatorServicer.
func NewValidatorService(registry RegistryServicer, gateway ChainGateway) ValidatorServicer {
	return &validatorService{registry: registry, gateway: gateway}
}

func invalid(reason string, current, required int64) *ValidationResult {
	return &ValidationResult{
		Valid:           false,
		Reason:          reason,
		CurrentBalance:  current,
		RequiredBalance: required,
	}
}

// Validate checks a prospective deposit or withdrawal against protocol
// limits and the wallet's current balance. A rejection is reported through
// the result, not as an error; errors are reserved for unknown protocols
// and node failures.
func (s *validatorService) Validate(ctx context.Context, protocolName, walletAddress string, amount int64, kind TxKind) (*ValidationResult, error) {
	cfg, err := s.registry.GetConfig(protocolName)
	if err != nil {
		return nil, err
	}

	if amount <= 0 {
		return invalid("amount must be positive", 0, 0), nil
	}

	balance, err := s.gateway.AccountBalance(ctx, walletAddress)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrNodeUnavailable, err)
	}
	currentBalance := int64(balance)

	if kind == KindWithdraw {
		// Withdrawals only need the wallet to cover the protocol fee; the
		// withdrawn funds come out of the protocol's escrow.
		if currentBalance < cfg.Fee {
			return invalid(
				fmt.Sprintf("balance %d does not cover the %d microAlgo withdrawal fee", currentBalance, cfg.Fee),
				currentBalance, cfg.Fee,
			), nil
		}
		return &ValidationResult{Valid: true, CurrentBalance: currentBalance}, nil
	}

	if amount < cfg.MinDeposit {
		return invalid(
			fmt.Sprintf("amount %d is below the %s minimum deposit of %d microAlgos", amount, cfg.ProtocolName, cfg.MinDeposit),
			currentBalance, 0,
		), nil
	}
	if amount > cfg.MaxDeposit {
		return invalid(
			fmt.Sprintf("amount %d exceeds the %s maximum deposit of %d microAlgos", amount, cfg.ProtocolName, cfg.MaxDeposit),
			currentBalance, 0,
		), nil
	}

	// Protocol-specific rules layer on top of the generic bounds; the
	// generic check never waives a stricter one.
	if spec, specErr := protocol.Lookup(protocolName); specErr == nil && spec.Extra != nil {
		if reason := spec.Extra(amount, cfg); reason != "" {
			return invalid(reason, currentBalance, 0), nil
		}
	}

	required := amount + cfg.Fee + cfg.MinBalanceReserve
	if currentBalance < required {
		return invalid(
			fmt.Sprintf("balance %d is below the required %d microAlgos (amount + fee + reserve)", currentBalance, required),
			currentBalance, required,
		), nil
	}

	return &ValidationResult{
		Valid:           true,
		CurrentBalance:  currentBalance,
		RequiredBalance: required,
	}, nil
}
