package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Success represents a standard structure for successful responses.
type Success struct {
	OK     bool        `json:"ok"`
	Result interface{} `json:"result,omitempty"`
}

// Error represents a standard structure for error responses.
type Error struct {
	Message string `json:"message"`
}

// JSON sends a JSON response with the specified HTTP status code and data.
func JSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// OK sends a 200 OK JSON response, wrapping the given result in a Success struct.
func OK(c *gin.Context, result interface{}) {
	JSON(c, http.StatusOK, Success{OK: true, Result: result})
}

// Fail sends an error JSON response with the specified HTTP status code
// and stops the handler chain.
func Fail(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, Error{Message: err.Error()})
}
