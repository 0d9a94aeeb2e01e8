package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

const (
	LocaleZH = "zh-CN"
	LocaleTW = "zh-TW"
	LocaleEN = "en-US"

	// DefaultLocale 未识别语言时的回退语言
	DefaultLocale = LocaleZH

	localeQueryKey  = "lang"
	localeHeaderKey = "X-Locale"
)

var supportedLocales = []string{LocaleZH, LocaleTW, LocaleEN}

var matcher = language.NewMatcher([]language.Tag{
	language.SimplifiedChinese,
	language.TraditionalChinese,
	language.AmericanEnglish,
})

// NormalizeLocale 将任意语言标记归一化为受支持的语言
func NormalizeLocale(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLocale
	}
	for _, locale := range supportedLocales {
		if strings.EqualFold(raw, locale) {
			return locale
		}
	}
	tags, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No || index < 0 || index >= len(supportedLocales) {
		return DefaultLocale
	}
	return supportedLocales[index]
}

// ResolveLocale 从请求中解析语言：query lang > X-Locale > Accept-Language
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return DefaultLocale
	}
	if lang := strings.TrimSpace(c.Query(localeQueryKey)); lang != "" {
		return NormalizeLocale(lang)
	}
	if lang := strings.TrimSpace(c.GetHeader(localeHeaderKey)); lang != "" {
		return NormalizeLocale(lang)
	}
	return NormalizeLocale(c.GetHeader("Accept-Language"))
}

// T 翻译消息，缺失时依次回退到默认语言与 key 本身
func T(locale, key string) string {
	if table, ok := messages[NormalizeLocale(locale)]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 翻译并格式化消息
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}
