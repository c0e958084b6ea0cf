package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Gin adapts a net/http gate to Gin. Gates stay plain net/http so they
// can front any router.
func Gin(gate func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		admitted := false

		// Bridge handler to allow net/http middleware execution
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admitted = true
			c.Request = r
			c.Next()
		})

		gate(next).ServeHTTP(c.Writer, c.Request)

		// The gate already wrote its rejection; stop the Gin chain
		if !admitted {
			c.Abort()
		}
	}
}
