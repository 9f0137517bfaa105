// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

// Locales served by the translation catalogue, aligned with supportedLanguages.
var (
	supportedLanguages = []language.Tag{language.English, language.MustParse("zh-TW")}
	supportedLocales   = []string{"en", "zh_TW"}
	languageMatcher    = language.NewMatcher(supportedLanguages)
)

// I18nMiddleware resolves the response language from Accept-Language.
func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	if defaultLang == "" {
		defaultLang = "en"
	}
	return func(c *gin.Context) {
		c.Set("lang", resolveLanguage(c.GetHeader("Accept-Language"), defaultLang))
		c.Next()
	}
}

// resolveLanguage picks the best supported locale honouring q-weights.
func resolveLanguage(header, defaultLang string) string {
	header = strings.ReplaceAll(strings.TrimSpace(header), "_", "-")
	if header == "" {
		return defaultLang
	}

	desired, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(desired) == 0 {
		return defaultLang
	}

	_, index, confidence := languageMatcher.Match(desired...)
	if confidence == language.No {
		return defaultLang
	}
	return supportedLocales[index]
}
