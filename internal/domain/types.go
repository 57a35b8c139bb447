package domain

// Status represents the publication state of a content entry.
type Status string

const (
	// StatusDraft marks entries only visible to editors in preview.
	StatusDraft Status = "draft"
	// StatusPublished marks entries visible to every visitor.
	StatusPublished Status = "published"
)

// Kind identifies a content collection.
type Kind string

const (
	KindService Kind = "service"
	KindProject Kind = "project"
	KindNews    Kind = "news"
	KindAbout   Kind = "about"
	KindCatalog Kind = "catalog"
)

const (
	LocaleEnglish = "en"
	LocaleRussian = "ru"
	LocaleKazakh  = "kk"

	// DefaultLocale is the locale every fallback terminates in.
	DefaultLocale = LocaleEnglish
)

// SupportedLocales lists locales in fallback display order.
var SupportedLocales = []string{LocaleEnglish, LocaleRussian, LocaleKazakh}

// Kinds lists every content kind served by the site.
var Kinds = []Kind{KindService, KindProject, KindNews, KindAbout, KindCatalog}
