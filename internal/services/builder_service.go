package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	apperrors "algoswarm/internal/errors"
	"algoswarm/internal/protocol"
)

// unsignedPayload is the wire form of an unsigned application call handed
// to the wallet for signing. The payload is opaque to callers; only the
// node and the wallet interpret it.
type unsignedPayload struct {
	Type        string   `json:"type"`
	AppID       uint64   `json:"apid"`
	Sender      string   `json:"snd"`
	AppArgs     []string `json:"apaa"` // base64
	Fee         uint64   `json:"fee"`
	FirstRound  uint64   `json:"fv"`
	LastRound   uint64   `json:"lv"`
	GenesisID   string   `json:"gen"`
	GenesisHash string   `json:"gh"`
}

// builderService constructs protocol-specific unsigned transactions. It
// never signs and never submits.
type builderService struct {
	registry RegistryServicer
	gateway  ChainGateway
}

// NewBuilderService creates a new BuilderServicer.
func NewBuilderService(registry RegistryServicer, gateway ChainGateway) BuilderServicer {
	return &builderService{registry: registry, gateway: gateway}
}

// BuildDeposit constructs an unsigned deposit transaction for the protocol.
func (s *builderService) BuildDeposit(ctx context.Context, protocolName, walletAddress string, amount int64) (*UnsignedTransaction, error) {
	return s.build(ctx, protocolName, walletAddress, amount, KindDeposit)
}

// BuildWithdraw constructs an unsigned withdrawal transaction for the protocol.
func (s *builderService) BuildWithdraw(ctx context.Context, protocolName, walletAddress string, amount int64) (*UnsignedTransaction, error) {
	return s.build(ctx, protocolName, walletAddress, amount, KindWithdraw)
}

func (s *builderService) build(ctx context.Context, protocolName, walletAddress string, amount int64, kind TxKind) (*UnsignedTransaction, error) {
	spec, err := protocol.Lookup(protocolName)
	if err != nil {
		return nil, err
	}
	cfg, err := s.registry.GetConfig(protocolName)
	if err != nil {
		return nil, err
	}

	// The fee and minimum-reserve overhead come out of the moved amount.
	net := amount - cfg.Fee - cfg.MinBalanceReserve
	if net <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrAmountTooSmall,
			fmt.Sprintf("amount %d does not cover fee %d and reserve %d", amount, cfg.Fee, cfg.MinBalanceReserve))
	}

	method := cfg.DepositMethod
	if kind == KindWithdraw {
		method = cfg.WithdrawMethod
	}

	params, err := s.gateway.SuggestedParams(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrNodeUnavailable, err)
	}

	args := spec.EncodeArgs(method, uint64(net))
	encodedArgs := make([]string, len(args))
	for i, arg := range args {
		encodedArgs[i] = base64.StdEncoding.EncodeToString(arg)
	}

	payload := unsignedPayload{
		Type:        "appl",
		AppID:       cfg.AppID,
		Sender:      walletAddress,
		AppArgs:     encodedArgs,
		Fee:         params.Fee,
		FirstRound:  params.FirstRound,
		LastRound:   params.LastRound,
		GenesisID:   params.GenesisID,
		GenesisHash: params.GenesisHash,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &UnsignedTransaction{
		Payload:     base64.StdEncoding.EncodeToString(raw),
		Protocol:    cfg.ProtocolName,
		Method:      method,
		AppID:       cfg.AppID,
		GrossAmount: amount,
		NetAmount:   net,
		FeeEstimate: cfg.Fee,
	}, nil
}
