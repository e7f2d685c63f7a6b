package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "algoswarm/internal/errors"
	"algoswarm/internal/models"
	"algoswarm/internal/protocol"
)

// registryService serves protocol configurations. Lookups go through the
// protocol_configs table so administrative updates are durable; rows are
// seeded from the built-in protocol table.
type registryService struct {
	db *gorm.DB
}

// NewRegistryService creates a new RegistryServicer.
func NewRegistryService(db *gorm.DB) RegistryServicer {
	return &registryService{db: db}
}

// Seed inserts a config row for any supported protocol that does not have
// one yet. Existing rows are left untouched so admin updates survive
// restarts.
func (s *registryService) Seed() error {
	for _, cfg := range protocol.All() {
		var existing models.ProtocolConfig
		err := s.db.Where("protocol_name = ?", cfg.ProtocolName).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		row := cfg
		if createErr := s.db.Create(&row).Error; createErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, createErr)
		}
	}
	return nil
}

// GetConfig returns the configuration for a protocol. Unknown protocol
// names are a terminal, non-retryable error. A missing row for a known
// protocol falls back to the built-in default.
func (s *registryService) GetConfig(protocolName string) (*models.ProtocolConfig, error) {
	spec, err := protocol.Lookup(protocolName)
	if err != nil {
		return nil, err
	}

	var cfg models.ProtocolConfig
	dbErr := s.db.Where("protocol_name = ?", protocolName).First(&cfg).Error
	if dbErr == nil {
		return &cfg, nil
	}
	if errors.Is(dbErr, gorm.ErrRecordNotFound) {
		fallback := spec.Config
		return &fallback, nil
	}
	return nil, apperrors.Wrap(apperrors.ErrInternalServer, dbErr)
}

// ListConfigs returns every supported protocol's effective configuration.
func (s *registryService) ListConfigs() ([]models.ProtocolConfig, error) {
	configs := make([]models.ProtocolConfig, 0, len(protocol.Names()))
	for _, name := range protocol.Names() {
		cfg, err := s.GetConfig(name)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	return configs, nil
}

// UpdateConfig applies an administrative update to a protocol's limits.
// This is the only path that mutates protocol configuration at runtime.
func (s *registryService) UpdateConfig(protocolName string, update ConfigUpdate) (*models.ProtocolConfig, error) {
	if _, err := protocol.Parse(protocolName); err != nil {
		return nil, err
	}
	if err := s.Seed(); err != nil {
		return nil, err
	}

	var cfg models.ProtocolConfig
	if err := s.db.Where("protocol_name = ?", protocolName).First(&cfg).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if update.Fee != nil {
		cfg.Fee = *update.Fee
	}
	if update.MinBalanceReserve != nil {
		cfg.MinBalanceReserve = *update.MinBalanceReserve
	}
	if update.MinDeposit != nil {
		cfg.MinDeposit = *update.MinDeposit
	}
	if update.MaxDeposit != nil {
		cfg.MaxDeposit = *update.MaxDeposit
	}
	if update.WithdrawalDelaySeconds != nil {
		cfg.WithdrawalDelaySeconds = *update.WithdrawalDelaySeconds
	}
	if update.RiskTier != nil {
		cfg.RiskTier = *update.RiskTier
	}

	if err := s.db.Save(&cfg).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &cfg, nil
}
