// Package i18n provides the message catalog for user-facing text.
// Engine code only ever produces message keys; rendering to a language
// happens at the display edge.
package i18n

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultLanguage is the catalog every lookup falls back to.
const DefaultLanguage = "en"

// Catalog holds the loaded language packs.
type Catalog struct {
	langs map[string]map[string]string
}

// Load builds a catalog from the embedded packs, applying user override
// files from ~/.gitbatch/locales/ when present.
func Load() (*Catalog, error) {
	dir := ""
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".gitbatch", "locales")
	}
	return LoadWithDir(dir)
}

// LoadWithDir builds a catalog from the embedded packs plus override
// files from the given directory. An empty or missing directory means
// embedded packs only.
func LoadWithDir(overrideDir string) (*Catalog, error) {
	c := &Catalog{langs: make(map[string]map[string]string)}

	entries, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("read embedded locales: %w", err)
	}
	for _, entry := range entries {
		lang := strings.TrimSuffix(entry.Name(), ".yaml")
		data, err := localeFS.ReadFile("locales/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", lang, err)
		}
		msgs := make(map[string]string)
		if err := yaml.Unmarshal(data, &msgs); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", lang, err)
		}
		c.langs[lang] = msgs
	}

	if overrideDir != "" {
		if err := c.applyOverrides(overrideDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// applyOverrides merges user-provided packs over the embedded ones.
// Override keys win; keys the override omits keep their embedded text.
func (c *Catalog) applyOverrides(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read locale overrides: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		lang := strings.TrimSuffix(entry.Name(), ".yaml")
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read locale override %s: %w", lang, err)
		}
		msgs := make(map[string]string)
		if err := yaml.Unmarshal(data, &msgs); err != nil {
			return fmt.Errorf("parse locale override %s: %w", lang, err)
		}
		if c.langs[lang] == nil {
			c.langs[lang] = make(map[string]string)
		}
		for k, v := range msgs {
			c.langs[lang][k] = v
		}
	}
	return nil
}

// Has reports whether the given language is available.
func (c *Catalog) Has(lang string) bool {
	_, ok := c.langs[lang]
	return ok
}

// Languages returns the available language codes, sorted.
func (c *Catalog) Languages() []string {
	out := make([]string, 0, len(c.langs))
	for lang := range c.langs {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Lookup resolves a message key in the given language, falling back to
// English and finally to the key itself. A lookup never fails; an
// unknown key renders as the key so the problem is visible, not fatal.
func (c *Catalog) Lookup(lang, key string) string {
	if msgs, ok := c.langs[lang]; ok {
		if text, ok := msgs[key]; ok {
			return text
		}
	}
	if lang != DefaultLanguage {
		if text, ok := c.langs[DefaultLanguage][key]; ok {
			return text
		}
	}
	return key
}

// Sprintf resolves a key and formats it with the given arguments.
func (c *Catalog) Sprintf(lang, key string, args ...any) string {
	return fmt.Sprintf(c.Lookup(lang, key), args...)
}
