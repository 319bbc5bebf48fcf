package response

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
)

type APIError struct {
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError writes err with its own status when it is an *apierr.Error.
// Anything else is logged by the request logger as a 500 and its text is not exposed.
func RespondAPIError(c *gin.Context, err error, fallbackCode string) {
	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Status != 0 {
		code := ae.Code
		if code == "" {
			code = fallbackCode
		}
		c.JSON(ae.Status, ErrorEnvelope{
			Error: APIError{
				Message: ae.Error(),
				Code:    code,
				Fields:  ae.Fields,
			},
		})
		return
	}
	if err != nil {
		_ = c.Error(err)
	}
	RespondError(c, http.StatusInternalServerError, fallbackCode, errors.New("internal server error"))
}

// RespondBindError maps gin binding failures to a 400 with per-field messages.
func RespondBindError(c *gin.Context, err error, messages map[string]string) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	fields := make(map[string]string, len(ve))
	first := ""
	for _, fe := range ve {
		msg, ok := messages[fe.Tag()]
		if !ok {
			msg = defaultTagMessage(fe)
		}
		fields[fe.Field()] = msg
		if first == "" {
			first = msg
		}
	}
	c.JSON(http.StatusBadRequest, ErrorEnvelope{
		Error: APIError{
			Message: first,
			Code:    "validation_failed",
			Fields:  fields,
		},
	})
}

// JSONTagName reports struct fields by their json name in validation errors.
func JSONTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func defaultTagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return "Ensure this field has no more than " + fe.Param() + " characters."
	case "url":
		return "Enter a valid URL."
	default:
		return "Invalid value."
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
