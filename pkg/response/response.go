package response

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/roomboard/pkg/errors"
	"github.com/noah-isme/roomboard/pkg/middleware/requestid"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Data      interface{}            `json:"data,omitempty"`
	Count     *int                   `json:"count,omitempty"`
	Error     *appErrors.Error       `json:"error,omitempty"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// JSON sends a success response. Board state changes on every mutation, so
// responses are never cacheable by intermediaries.
func JSON(c *gin.Context, status int, data interface{}, meta ...map[string]interface{}) {
	envelope := Envelope{Data: data}
	if len(meta) > 0 && len(meta[0]) > 0 {
		envelope.Meta = meta[0]
	}
	write(c, status, envelope)
}

// List sends a collection together with its size.
func List(c *gin.Context, items interface{}, count int) {
	write(c, http.StatusOK, Envelope{Data: items, Count: &count})
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Error converts err to the application error shape. Structured details such as
// a placement rejection travel in meta.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	write(c, appErr.Status, Envelope{Error: appErr, Meta: appErr.Meta})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Attachment streams a rendered export as a download.
func Attachment(c *gin.Context, filename, contentType string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, contentType, body)
}

func write(c *gin.Context, status int, envelope Envelope) {
	envelope.RequestID = requestid.Value(c)
	c.Header("Cache-Control", "no-store")
	c.JSON(status, envelope)
}
