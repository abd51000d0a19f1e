package bizerror

import (
	"errors"
	"net/http"
	"warden/common"
)

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInactiveAccount    = errors.New("inactive user")
	ErrAccountExpired     = errors.New("account expired")

	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("record not found")
	ErrInvalidToken    = errors.New("invalid token")

	ErrNotEmpty       = errors.New("group is not empty")
	ErrHasPermissions = errors.New("permissions are still assigned")
)

// ErrFieldViolation reports a validation failure scoped to a single input field,
// such as a duplicate email, a policy-violating password or a confirm mismatch.
type ErrFieldViolation struct {
	Field   string
	Message string
}

func (e *ErrFieldViolation) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ErrFieldViolation) Respond() *common.BizErrorDetail {
	return &common.BizErrorDetail{
		Status: http.StatusUnprocessableEntity, Code: "common.field_violation", Message: e.Message,
		Data: map[string]string{"fieldName": e.Field, "message": e.Message},
	}
}
