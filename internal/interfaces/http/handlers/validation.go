// internal/interfaces/http/handlers/validation.go
package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/your-org/wms-backend/internal/domain/ledger"
)

// RegisterValidations installs custom binding rules on gin's validator
// engine. Called once at server startup.
func RegisterValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	_ = v.RegisterValidation("txntype", func(fl validator.FieldLevel) bool {
		return ledger.TransactionType(fl.Field().String()).IsValid()
	})
}
