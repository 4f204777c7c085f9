// Package session keeps the login state, flash messages and the post-login
// destination in the signed session cookie.
package session

import (
	"encoding/gob"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/thucvatbm/species-catalog/database/model"
	"github.com/thucvatbm/species-catalog/util/random"
)

const (
	CookieName = "catalog"

	loginUser = "LOGIN_USER"
	csrfToken = "CSRF_TOKEN"

	csrfTokenLength = 32
)

// LoginUser is the part of an account kept in the session.
type LoginUser struct {
	Id       int
	Username string
}

func init() {
	gob.Register(LoginUser{})
}

// Middleware installs a cookie backed session store signed with secret.
func Middleware(secret string) gin.HandlerFunc {
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(CookieName, store)
}

func SetLoginUser(c *gin.Context, account *model.Account) error {
	s := sessions.Default(c)
	s.Set(loginUser, LoginUser{Id: account.Id, Username: account.Username})
	return s.Save()
}

func GetLoginUser(c *gin.Context) *LoginUser {
	s := sessions.Default(c)
	if obj := s.Get(loginUser); obj != nil {
		if user, ok := obj.(LoginUser); ok {
			return &user
		}
	}
	return nil
}

func IsLogin(c *gin.Context) bool {
	return GetLoginUser(c) != nil
}

// ClearSession drops everything stored in the session. The cookie itself is
// kept so flashes added afterwards still reach the browser.
func ClearSession(c *gin.Context) error {
	s := sessions.Default(c)
	s.Clear()
	return s.Save()
}

// CSRFToken returns the token forms must echo back, creating it on first use.
// It lives until the session is cleared.
func CSRFToken(c *gin.Context) (string, error) {
	s := sessions.Default(c)
	if token, ok := s.Get(csrfToken).(string); ok && token != "" {
		return token, nil
	}
	token := random.Seq(csrfTokenLength)
	s.Set(csrfToken, token)
	return token, s.Save()
}

func AddFlash(c *gin.Context, msg string) error {
	s := sessions.Default(c)
	s.AddFlash(msg)
	return s.Save()
}

// Flashes pops the pending flash messages.
func Flashes(c *gin.Context) ([]string, error) {
	s := sessions.Default(c)
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil, nil
	}
	msgs := make([]string, 0, len(raw))
	for _, f := range raw {
		if msg, ok := f.(string); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs, s.Save()
}
