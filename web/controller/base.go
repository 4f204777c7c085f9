// Package controller provides the HTTP handlers of the species catalog.
package controller

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/thucvatbm/species-catalog/logger"
	"github.com/thucvatbm/species-catalog/web/locale"
	"github.com/thucvatbm/species-catalog/web/session"
)

// BaseController provides common functionality for all controllers, including authentication checks.
type BaseController struct{}

// checkLogin lets authenticated requests through and sends anonymous ones to
// the login page. For GET requests the original URI is kept in "next".
func (a *BaseController) checkLogin(c *gin.Context) {
	if session.IsLogin(c) {
		c.Next()
		return
	}

	if err := session.AddFlash(c, locale.I18n(c, "flash.loginRequired")); err != nil {
		logger.Warning("Unable to save session:", err)
	}
	target := "/login"
	if c.Request.Method == http.MethodGet {
		target += "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
	}
	c.Redirect(http.StatusFound, target)
	c.Abort()
}
