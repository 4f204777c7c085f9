package controller

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/thucvatbm/species-catalog/config"
	"github.com/thucvatbm/species-catalog/logger"
	"github.com/thucvatbm/species-catalog/web/locale"
	"github.com/thucvatbm/species-catalog/web/session"
)

// getRemoteIp extracts the real IP address from the request headers or remote address.
func getRemoteIp(c *gin.Context) string {
	value := c.GetHeader("X-Real-IP")
	if value != "" {
		return value
	}
	value = c.GetHeader("X-Forwarded-For")
	if value != "" {
		ips := strings.Split(value, ",")
		return strings.TrimSpace(ips[0])
	}
	addr := c.Request.RemoteAddr
	ip, _, _ := net.SplitHostPort(addr)
	return ip
}

// html renders an HTML template with the provided data and title.
func html(c *gin.Context, name string, title string, data gin.H) {
	htmlStatus(c, http.StatusOK, name, title, data)
}

// htmlStatus is html with an explicit status code. title is a translation key.
func htmlStatus(c *gin.Context, status int, name string, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["title"] = locale.I18n(c, title)
	data["T"] = func(key string) string {
		return locale.I18n(c, key)
	}
	data["user"] = session.GetLoginUser(c)
	if token, err := session.CSRFToken(c); err != nil {
		logger.Warning("Unable to save session:", err)
	} else {
		data["csrf"] = token
	}

	flashes, err := session.Flashes(c)
	if err != nil {
		logger.Warning("Unable to save session:", err)
	}
	data["flashes"] = flashes
	c.HTML(status, name, getContext(data))
}

// getContext adds version and other context data to the provided gin.H.
func getContext(h gin.H) gin.H {
	a := gin.H{
		"cur_ver": config.GetVersion(),
	}
	for key, value := range h {
		a[key] = value
	}
	return a
}

// flash queues a translated message for the next rendered page.
func flash(c *gin.Context, key string) {
	if err := session.AddFlash(c, locale.I18n(c, key)); err != nil {
		logger.Warning("Unable to save session:", err)
	}
}

func notFound(c *gin.Context) {
	c.AbortWithStatus(http.StatusNotFound)
}

func serverError(c *gin.Context, msg string, err error) {
	logger.Errorf("%s %s: %s: %v", c.Request.Method, c.Request.URL.Path, msg, err)
	c.AbortWithStatus(http.StatusInternalServerError)
}

// paramId parses the ":id" route parameter. Anything but a positive integer
// is answered with 404.
func paramId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		notFound(c)
		return 0, false
	}
	return id, true
}

// safeNext returns next when it is a path on this site, otherwise "/".
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return "/"
	}
	return next
}
