// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"algoswarm/internal/protocol"
)

// Algorand addresses are 58 characters of RFC 4648 base32 (no padding).
var algorandAddressRegex = regexp.MustCompile(`^[A-Z2-7]{58}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("algorand_address", validateAlgorandAddress)
		_ = v.RegisterValidation("protocol_name", validateProtocolName)
		_ = v.RegisterValidation("transaction_kind", validateTransactionKind)
		_ = v.RegisterValidation("risk_tier", validateRiskTier)
	}
}

func validateAlgorandAddress(fl validator.FieldLevel) bool {
	return algorandAddressRegex.MatchString(fl.Field().String())
}

func validateProtocolName(fl validator.FieldLevel) bool {
	_, err := protocol.Parse(fl.Field().String())
	return err == nil
}

func validateTransactionKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "deposit", "withdraw":
		return true
	}
	return false
}

func validateRiskTier(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "low", "medium", "high":
		return true
	}
	return false
}
