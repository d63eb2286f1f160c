// Package i18n localizes user-facing messages. Catalogs are embedded JSON
// files, one per locale, flattened to dot-separated keys at first use.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed messages/*.json
var messagesFS embed.FS

// Supported locales
const (
	LocaleEnglish = "en"
	LocaleKorean  = "ko"
	DefaultLocale = LocaleEnglish
)

var (
	supported = []language.Tag{language.English, language.Korean}
	matcher   = language.NewMatcher(supported)
)

type localeKey struct{}

// catalog maps locale -> "errors.not_found" -> message
type catalog map[string]map[string]string

var (
	catalogs     catalog
	catalogsOnce sync.Once
)

func load() catalog {
	catalogsOnce.Do(func() {
		catalogs = make(catalog, len(supported))
		for _, tag := range supported {
			base, _ := tag.Base()
			locale := base.String()

			flat, err := readCatalog(locale)
			if err != nil {
				// A broken catalog leaves keys untranslated; T falls back to the key.
				continue
			}
			catalogs[locale] = flat
		}
	})
	return catalogs
}

func readCatalog(locale string) (map[string]string, error) {
	data, err := messagesFS.ReadFile("messages/" + locale + ".json")
	if err != nil {
		return nil, err
	}

	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse %s catalog: %w", locale, err)
	}

	flat := make(map[string]string)
	flatten("", tree, flat)
	return flat, nil
}

func flatten(prefix string, tree map[string]interface{}, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := v.(type) {
		case string:
			out[key] = v
		case map[string]interface{}:
			flatten(key, v, out)
		}
	}
}

// Localizer translates keys for one locale
type Localizer struct {
	locale string
}

// NewLocalizer returns a localizer for locale, or for DefaultLocale when
// locale is not supported
func NewLocalizer(locale string) *Localizer {
	if _, ok := load()[locale]; !ok {
		locale = DefaultLocale
	}
	return &Localizer{locale: locale}
}

// LocalizerFromContext returns a localizer for the context's locale
func LocalizerFromContext(ctx context.Context) *Localizer {
	return NewLocalizer(GetLocaleFromContext(ctx))
}

// T translates key, substituting {name} placeholders from params. Missing keys
// fall back to the default locale and then to the key itself.
func (l *Localizer) T(key string, params ...map[string]string) string {
	c := load()

	msg, ok := c[l.locale][key]
	if !ok {
		msg, ok = c[DefaultLocale][key]
	}
	if !ok {
		return key
	}

	if len(params) == 0 || len(params[0]) == 0 {
		return msg
	}
	pairs := make([]string, 0, 2*len(params[0]))
	for k, v := range params[0] {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// GetLocale returns the localizer's locale
func (l *Localizer) GetLocale() string {
	return l.locale
}

// WithLocale stores locale in ctx
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey{}, locale)
}

// GetLocaleFromContext returns the stored locale, or DefaultLocale
func GetLocaleFromContext(ctx context.Context) string {
	if locale, ok := ctx.Value(localeKey{}).(string); ok && locale != "" {
		return locale
	}
	return DefaultLocale
}

// ParseAcceptLanguage returns the supported locale that best matches an
// Accept-Language header, honoring quality weights
func ParseAcceptLanguage(header string) string {
	if header == "" {
		return DefaultLocale
	}

	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}

	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return DefaultLocale
	}

	base, _ := supported[idx].Base()
	return base.String()
}

// T translates using the default locale
func T(key string, params ...map[string]string) string {
	return NewLocalizer(DefaultLocale).T(key, params...)
}

// TWithLocale translates using locale
func TWithLocale(locale, key string, params ...map[string]string) string {
	return NewLocalizer(locale).T(key, params...)
}

// TFromContext translates using the context's locale
func TFromContext(ctx context.Context, key string, params ...map[string]string) string {
	return LocalizerFromContext(ctx).T(key, params...)
}
