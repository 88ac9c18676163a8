package middleware

import (
	stderrors "errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/healthpoint-api/internal/model"
	apperrors "github.com/jwalitptl/healthpoint-api/pkg/errors"
	"github.com/jwalitptl/healthpoint-api/pkg/httputil"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var errorMessages = map[string]string{
	"required":  "Field is required",
	"email":     "Invalid email format",
	"min":       "Value is too short",
	"max":       "Value is too long",
	"uuid":      "Invalid id",
	"json":      "Invalid JSON",
	"gt":        "Value must be positive",
	"daykey":    "Invalid day, expected D_M_YYYY",
	"timelabel": "Invalid time, expected a half-hour slot such as 10:30 AM",
}

var registerOnce sync.Once

// RegisterValidators installs the slot tags on gin's validator and reports
// fields by their json or form name.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("daykey", func(fl validator.FieldLevel) bool {
			return model.ValidDayKey(fl.Field().String())
		})
		_ = v.RegisterValidation("timelabel", func(fl validator.FieldLevel) bool {
			return model.ValidTimeLabel(fl.Field().String())
		})
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return fld.Name
		})
	})
}

// Validation renders binding failures attached with c.Error as a field list.
func Validation() gin.HandlerFunc {
	RegisterValidators()

	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		var fields []ValidationError
		for _, e := range c.Errors {
			var errs validator.ValidationErrors
			if !stderrors.As(e.Err, &errs) {
				continue
			}
			for _, fe := range errs {
				msg := errorMessages[fe.Tag()]
				if msg == "" {
					msg = fe.Error()
				}
				fields = append(fields, ValidationError{Field: fe.Field(), Message: msg})
			}
		}

		if len(fields) > 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, httputil.Response{
				Success: false,
				Message: "validation failed",
				Code:    apperrors.ErrBadRequest,
				Details: map[string]interface{}{"errors": fields},
			})
		}
	}
}
