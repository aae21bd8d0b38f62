package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/anikett35/Digital-platform-alumini-sub000/internal/auth"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

func respond(c *gin.Context, status int, body interface{}, message string) {
	c.JSON(status, gin.H{
		"HttpStatusCode": status,
		"ResponseBody":   body,
		"IsSuccess":      status < http.StatusBadRequest,
		"Message":        message,
	})
}

func abortWith(c *gin.Context, status int, body interface{}, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"HttpStatusCode": status,
		"ResponseBody":   body,
		"IsSuccess":      false,
		"Message":        message,
	})
}

// respondError maps the error taxonomy onto HTTP statuses
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		respond(c, http.StatusBadRequest, gin.H{"fields": verr.Fields}, "Validation failed")
	case errors.Is(err, auth.ErrInactiveAccount):
		respond(c, http.StatusForbidden, nil, "Account is not active")
	case errors.Is(err, auth.ErrMissingCredential), errors.Is(err, auth.ErrInvalidCredential):
		respond(c, http.StatusUnauthorized, nil, "Authentication required")
	case errors.Is(err, service.ErrAccessDenied):
		respond(c, http.StatusForbidden, nil, "Access denied")
	case errors.Is(err, service.ErrNotFound):
		respond(c, http.StatusNotFound, nil, "Not found")
	default:
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		respond(c, http.StatusInternalServerError, nil, "Something went wrong, please try again")
	}
}

var registerTagNames sync.Once

// useJSONFieldNames makes validator report fields by their json names
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
}

// bindingError turns a gin binding failure into a ValidationError
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return service.NewValidationError("body", "must be a valid JSON object")
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return &service.ValidationError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}
