package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"procheff/internal/cost"
	"procheff/internal/planner"
	"procheff/internal/pricing"
	"procheff/internal/recipe"
	"procheff/internal/variant"
)

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("bad request")

func badRequest(err error) error {
	return fmt.Errorf("%w: %w", errBadRequest, err)
}

var (
	notFoundErrors = []error{
		cost.ErrRecipeNotFound,
		variant.ErrProductNotFound,
		variant.ErrVariantNotFound,
	}
	invalidInputErrors = []error{
		errBadRequest,
		pricing.ErrInvalidQuantity,
		pricing.ErrUnknownUnit,
		pricing.ErrIncompatibleUnits,
		variant.ErrInvalidQuantity,
		variant.ErrInvalidPackaging,
		variant.ErrNoVariants,
		recipe.ErrMissingID,
		recipe.ErrMissingMaterial,
		recipe.ErrDuplicateRecipes,
		planner.ErrInvalidDate,
		planner.ErrDuplicateDate,
	}
)

// statusFor maps an error to the HTTP status it is reported with.
func statusFor(err error) int {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return http.StatusNotFound
		}
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest
	}
	for _, target := range invalidInputErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error response. Server errors are logged and
// their details are not exposed.
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
