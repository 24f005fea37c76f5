package i18n

import "embed"

// localeFS embeds the default language packs.
//
//go:embed locales/*.yaml
var localeFS embed.FS
