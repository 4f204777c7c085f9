// Package locale translates user facing strings with go-i18n bundles
// loaded from TOML files.
package locale

import (
	"io/fs"

	"github.com/gin-gonic/gin"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"github.com/thucvatbm/species-catalog/logger"
)

const (
	langCookie   = "lang"
	localizerKey = "localizer"
)

// DefaultLanguage is used when the request does not ask for a known language.
var DefaultLanguage = language.MustParse("vi-VN")

var i18nBundle *i18n.Bundle

// InitLocalizer parses every translation file under dir in fsys.
func InitLocalizer(fsys fs.FS, dir string) error {
	bundle := i18n.NewBundle(DefaultLanguage)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	err := fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		_, err = bundle.ParseMessageFileBytes(data, path)
		return err
	})
	if err != nil {
		return err
	}

	i18nBundle = bundle
	return nil
}

// LocalizerMiddleware picks the language from the "lang" cookie or the
// Accept-Language header.
func LocalizerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if i18nBundle == nil {
			c.Next()
			return
		}
		var lang string
		if cookie, err := c.Request.Cookie(langCookie); err == nil {
			lang = cookie.Value
		} else {
			lang = c.GetHeader("Accept-Language")
		}
		c.Set(localizerKey, i18n.NewLocalizer(i18nBundle, lang, DefaultLanguage.String()))
		c.Next()
	}
}

// I18n translates key for the request's language. The key itself is returned
// when no translation is available.
func I18n(c *gin.Context, key string) string {
	v, ok := c.Get(localizerKey)
	if !ok {
		return key
	}
	localizer, ok := v.(*i18n.Localizer)
	if !ok {
		return key
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: key})
	if err != nil {
		logger.Debugf("Failed to localize message %q: %v", key, err)
		return key
	}
	return msg
}
