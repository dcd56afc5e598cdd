// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/paper-ledger/internal/i18n"
)

func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	if defaultLang == "" {
		defaultLang = "en"
	}

	return func(c *gin.Context) {
		lang := defaultLang

		// Handle cases like "zh-TW,zh;q=0.9,en;q=0.8"
		if header := c.GetHeader("Accept-Language"); header != "" {
			first := strings.TrimSpace(strings.Split(strings.Split(header, ",")[0], ";")[0])
			switch first {
			case "zh-TW", "zh-Hant", "zh_TW":
				lang = "zh_TW"
			case "en", "en-US", "en-GB":
				lang = "en"
			default:
				if supported, ok := matchLanguage(first); ok {
					lang = supported
				}
			}
		}

		c.Set("lang", lang)
		c.Next()
	}
}

// matchLanguage finds a loaded locale for a tag such as "pt-BR", trying the
// base language when the region has no locale of its own.
func matchLanguage(tag string) (string, bool) {
	candidate := strings.ReplaceAll(tag, "-", "_")
	base, _, _ := strings.Cut(candidate, "_")
	for _, want := range []string{candidate, base} {
		for _, lang := range i18n.GetSupportedLanguages() {
			if strings.EqualFold(lang, want) {
				return lang, true
			}
		}
	}
	return "", false
}
