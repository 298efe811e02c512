package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"posbackend/internal/service"
	"posbackend/internal/validation"
	"posbackend/pkg/response"

	"github.com/gin-gonic/gin"
)

var kindStatus = map[service.ErrorKind]int{
	service.KindNotFound:          http.StatusNotFound,
	service.KindValidation:        http.StatusBadRequest,
	service.KindConflict:          http.StatusConflict,
	service.KindInsufficientStock: http.StatusBadRequest,
	service.KindUnauthorized:      http.StatusUnauthorized,
	service.KindInternal:          http.StatusInternalServerError,
}

// respondError maps a service error onto the HTTP status for its kind.
func respondError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	var details interface{}
	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		details = stockErr
	}

	message := err.Error()
	if kind == service.KindInternal {
		message = "internal server error"
	}
	c.JSON(status, response.ErrorWithCode(status, string(kind), message, details))
}

// bindJSON decodes the body into req and answers 400 when it is malformed or fails binding tags.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorWithCode(http.StatusBadRequest,
			string(service.KindValidation), "Invalid request payload: "+validation.Message(err), nil))
		return false
	}
	return true
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, response.ErrorWithCode(http.StatusBadRequest, string(service.KindValidation), message, nil))
}

// parseTimeQuery reads an optional RFC3339 timestamp or YYYY-MM-DD date. A bare date used
// as an upper bound covers the whole day.
func parseTimeQuery(c *gin.Context, name string, upperBound bool) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	if t, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
		return &t, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		badRequest(c, name+" must be an RFC3339 timestamp or a YYYY-MM-DD date")
		return nil, false
	}
	if upperBound {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, true
}
