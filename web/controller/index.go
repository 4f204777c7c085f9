package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/thucvatbm/species-catalog/logger"
	"github.com/thucvatbm/species-catalog/util/metrics"
	"github.com/thucvatbm/species-catalog/web/locale"
	"github.com/thucvatbm/species-catalog/web/service"
	"github.com/thucvatbm/species-catalog/web/session"
)

// LoginForm represents the login request structure.
type LoginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
	Next     string `form:"next"`
}

// IndexController handles the login and logout routes.
type IndexController struct {
	BaseController

	accountService service.AccountService
}

// NewIndexController creates a new IndexController and initializes its routes.
func NewIndexController(g *gin.RouterGroup) *IndexController {
	a := &IndexController{}
	a.initRouter(g)
	return a
}

func (a *IndexController) initRouter(g *gin.RouterGroup) {
	g.GET("/login", a.loginPage)
	g.POST("/login", a.login)
	g.GET("/logout", a.checkLogin, a.logout)
}

func (a *IndexController) loginPage(c *gin.Context) {
	if session.IsLogin(c) {
		c.Redirect(http.StatusFound, "/")
		return
	}
	html(c, "login.html", "pages.login.title", gin.H{"next": c.Query("next")})
}

func (a *IndexController) login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(form.Username)
	password := strings.TrimSpace(form.Password)

	account := a.accountService.Verify(username, password)
	if account == nil {
		logger.Warningf("failed login for %q from %s", username, getRemoteIp(c))
		metrics.LoginFailed()
		html(c, "login.html", "pages.login.title", gin.H{
			"error":    locale.I18n(c, "flash.loginFailed"),
			"username": username,
			"next":     form.Next,
		})
		return
	}

	if err := session.SetLoginUser(c, account); err != nil {
		serverError(c, "save session", err)
		return
	}
	metrics.LoginSucceeded()
	logger.Infof("%s logged in from %s", account.Username, getRemoteIp(c))
	flash(c, "flash.loginSuccess")
	c.Redirect(http.StatusSeeOther, safeNext(form.Next))
}

func (a *IndexController) logout(c *gin.Context) {
	if user := session.GetLoginUser(c); user != nil {
		logger.Infof("%s logged out", user.Username)
	}
	if err := session.ClearSession(c); err != nil {
		logger.Warning("Unable to save session after clearing:", err)
	}
	flash(c, "flash.loggedOut")
	c.Redirect(http.StatusFound, "/")
}
