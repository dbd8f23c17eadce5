package httpserver

import (
	"golang.org/x/text/language"

	"estate_assistant/internal/app"
)

var (
	supportedTags = func() []language.Tag {
		out := make([]language.Tag, 0, len(app.SupportedLanguages))
		for _, l := range app.SupportedLanguages {
			out = append(out, language.MustParse(l))
		}
		return out
	}()
	langMatcher = language.NewMatcher(supportedTags)
)

// selectLang picks the best supported language for an Accept-Language
// header; the first supported language (English) when nothing matches.
func selectLang(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return app.SupportedLanguages[0]
	}
	_, idx, conf := langMatcher.Match(tags...)
	if conf == language.No {
		return app.SupportedLanguages[0]
	}
	return app.SupportedLanguages[idx]
}
