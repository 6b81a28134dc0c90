package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Envelope is the uniform response shape: a success flag plus either a
// payload or a human-readable error string, always with an ISO-8601
// timestamp. Core operations never surface raw faults to callers.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// OK writes a successful envelope.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Fail writes a failure envelope with the given HTTP status.
func Fail(c *gin.Context, httpCode int, message string) {
	c.JSON(httpCode, Envelope{
		Success:   false,
		Error:     message,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
