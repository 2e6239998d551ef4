package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/slot-booking/pkg/errors"
)

// Envelope represents the common admin API response contract.
type Envelope struct {
	Data  interface{}            `json:"data,omitempty"`
	Error *appErrors.Error       `json:"error,omitempty"`
	Meta  map[string]interface{} `json:"meta,omitempty"`
}

var statusByCode = map[string]int{
	appErrors.ErrValidation.Code:         http.StatusBadRequest,
	appErrors.ErrMalformedRequest.Code:   http.StatusBadRequest,
	appErrors.ErrInvalidCredentials.Code: http.StatusUnauthorized,
	appErrors.ErrAccessDenied.Code:       http.StatusForbidden,
	appErrors.ErrUnauthorized.Code:       http.StatusUnauthorized,
	appErrors.ErrNoSuchProvider.Code:     http.StatusNotFound,
	appErrors.ErrNoSuchTimeSlot.Code:     http.StatusNotFound,
	appErrors.ErrSessionNotFound.Code:    http.StatusNotFound,
	appErrors.ErrNotFound.Code:           http.StatusNotFound,
	appErrors.ErrNotAvailable.Code:       http.StatusConflict,
	appErrors.ErrNotInYourBasket.Code:    http.StatusConflict,
	appErrors.ErrNotReservedByYou.Code:   http.StatusConflict,
	appErrors.ErrEmptyBasket.Code:        http.StatusConflict,
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// JSON sends a success response with optional metadata.
func JSON(c *gin.Context, status int, data interface{}, meta ...map[string]interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	envelope := Envelope{Data: data}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(StatusFor(appErr.Code), Envelope{Error: appErr})
}

// Attachment sends body as a downloadable file.
func Attachment(c *gin.Context, filename, contentType string, body []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, contentType, body)
}
