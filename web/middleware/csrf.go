package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thucvatbm/species-catalog/logger"
	"github.com/thucvatbm/species-catalog/web/session"
)

const (
	// CSRFFormField is the hidden form input carrying the token.
	CSRFFormField = "csrf_token"
	// CSRFHeader may carry the token instead of the form field.
	CSRFHeader = "X-CSRF-Token"
)

// CSRF checks that every state-changing request echoes the session's token.
// It must run after the session middleware. Safe methods pass through and
// get a token issued if the session has none yet.
func CSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := session.CSRFToken(c)
		if err != nil {
			logger.Warning("save csrf token err:", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		sent := c.GetHeader(CSRFHeader)
		if sent == "" {
			sent = c.PostForm(CSRFFormField)
		}
		if subtle.ConstantTimeCompare([]byte(sent), []byte(token)) != 1 {
			logger.Warningf("csrf validation failed: %s %s from %s", c.Request.Method, c.Request.URL.Path, c.ClientIP())
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
