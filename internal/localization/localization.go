// Package localization provides the localized system notices pushed to
// clients (match found, partner left, call failed). Built-in English and
// Ukrainian strings ship with the binary; a locales directory of JSON
// files can override or extend them.
package localization

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultLanguage is used when a client did not declare a language or
// the declared one has no translations.
const DefaultLanguage = "en"

var builtin = map[string]map[string]string{
	"en": {
		"match_found":  "Partner found! Say hi.",
		"partner_left": "Your partner left the call.",
		"call_failed":  "The call could not be established. Try matching again.",
		"no_match":     "No partner found right now. Try again in a moment.",
	},
	"uk": {
		"match_found":  "Співрозмовника знайдено! Привітайтеся.",
		"partner_left": "Співрозмовник завершив дзвінок.",
		"call_failed":  "Не вдалося встановити з'єднання. Спробуйте ще раз.",
		"no_match":     "Наразі немає вільних співрозмовників. Спробуйте пізніше.",
	},
}

// Localizer manages the notice translations.
type Localizer struct {
	mu           sync.RWMutex
	translations map[string]map[string]string
}

// NewLocalizer returns a Localizer seeded with the built-in strings.
// When path is non-empty, JSON files named by language code
// (e.g. "en.json") are merged on top.
func NewLocalizer(path string) (*Localizer, error) {
	l := &Localizer{translations: make(map[string]map[string]string)}
	for lang, strs := range builtin {
		m := make(map[string]string, len(strs))
		for k, v := range strs {
			m[k] = v
		}
		l.translations[lang] = m
	}

	if path == "" {
		return l, nil
	}

	files, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		lang := strings.TrimSuffix(file.Name(), ".json")
		data, err := os.ReadFile(filepath.Join(path, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}
		var overrides map[string]string
		if err := json.Unmarshal(data, &overrides); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}
		if l.translations[lang] == nil {
			l.translations[lang] = make(map[string]string)
		}
		for k, v := range overrides {
			l.translations[lang][k] = v
		}
	}
	return l, nil
}

// Get returns the localized string for a key and language, falling back
// to the default language, then to the key itself.
func (l *Localizer) Get(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if strs, ok := l.translations[lang]; ok {
		if v, ok := strs[key]; ok {
			return v
		}
	}
	if strs, ok := l.translations[DefaultLanguage]; ok {
		if v, ok := strs[key]; ok {
			return v
		}
	}
	return key
}
