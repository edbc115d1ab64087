package handler

import (
	"errors"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_api/internal/service"
	"github.com/GTDGit/catalog_api/internal/utils"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding tags used by request
// structs. It must run before the first request is bound.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			log.Fatal().Msg("gin validator engine is not go-playground/validator")
		}
		if err := v.RegisterValidation("sku", func(fl validator.FieldLevel) bool {
			return service.ValidSKU(fl.Field().String())
		}); err != nil {
			log.Fatal().Err(err).Msg("Failed to register sku validator")
		}
	})
}

// handleError maps service errors onto the response envelope.
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrNotFound):
		utils.Error(c, 404, "NOT_FOUND", err.Error())
	case errors.Is(err, utils.ErrDuplicateResource):
		utils.Error(c, 409, "DUPLICATE_RESOURCE", err.Error())
	case errors.Is(err, utils.ErrValidation):
		utils.Error(c, 400, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, utils.ErrConcurrencyConflict):
		utils.Error(c, 409, "CONCURRENCY_CONFLICT", err.Error())
	case errors.Is(err, utils.ErrInvalidCredentials):
		utils.Error(c, 401, "INVALID_CREDENTIALS", "Invalid email or password")
	default:
		log.Error().Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.FullPath()).
			Msg("Unhandled request error")
		utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
	}
}

// bindError answers a request whose body or query failed binding.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		utils.Error(c, 400, "VALIDATION_ERROR", "Field '"+fe.Field()+"' failed on the '"+fe.Tag()+"' rule")
		return
	}
	utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
}
