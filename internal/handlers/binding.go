package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondBindingError renders request binding failures as field-level
// messages instead of validator's internal error string.
func respondBindingError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make(map[string]string, len(validationErrs))
		for _, fe := range validationErrs {
			switch fe.Tag() {
			case "required":
				fields[fe.Field()] = "is required"
			case "gt":
				fields[fe.Field()] = "must be greater than " + fe.Param()
			case "min":
				fields[fe.Field()] = "must have at least " + fe.Param() + " items"
			case "max":
				fields[fe.Field()] = "must have at most " + fe.Param() + " items"
			case "oneof":
				fields[fe.Field()] = "must be one of: " + fe.Param()
			default:
				fields[fe.Field()] = "is invalid"
			}
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
