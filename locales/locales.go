// Package locales holds the per-language tables the ordering assistant speaks
// and listens with: prompts, phonetic spellings, quantity words, preparation
// modifiers and intent keywords. Tables are YAML keyed by concept and language,
// so supporting another language only means adding entries.
package locales

import (
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"sync"

	"DineLine/models"
	"DineLine/utils"

	"gopkg.in/yaml.v3"
)

//go:embed *.yaml
var files embed.FS

type tables struct {
	Prompts        map[string]map[models.Language]string          `yaml:"prompts"`
	Phonetics      map[models.Language][][]string                 `yaml:"phonetics"`
	Numbers        map[models.Language]map[string]int             `yaml:"numbers"`
	Counters       map[models.Language][]string                   `yaml:"counters"`
	Modifiers      map[models.Language][]string                   `yaml:"modifiers"`
	Intents        map[models.Language]map[models.Intent][]string `yaml:"intents"`
	Separators     map[models.Language][]string                   `yaml:"separators"`
	Languages      map[models.Language][]string                   `yaml:"languages"`
	PaymentMethods map[string][]string                            `yaml:"payment_methods"`
}

// Catalog is a loaded, read-only set of language tables.
type Catalog struct {
	t         tables
	modifiers map[models.Language][]*regexp.Regexp
	intents   map[models.Language]map[models.Intent][]string
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog built from the embedded tables.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(files)
		if err != nil {
			panic(fmt.Sprintf("locales: embedded tables are invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Load reads every *.yaml file in fsys into one catalog.
func Load(fsys fs.FS) (*Catalog, error) {
	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	var t tables
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
	}

	c := &Catalog{
		t:         t,
		modifiers: make(map[models.Language][]*regexp.Regexp),
		intents:   make(map[models.Language]map[models.Intent][]string),
	}
	for lang, patterns := range t.Modifiers {
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("modifier pattern %q (%s): %w", p, lang, err)
			}
			c.modifiers[lang] = append(c.modifiers[lang], re)
		}
	}
	for lang, byIntent := range t.Intents {
		m := make(map[models.Intent][]string, len(byIntent))
		for intent, kws := range byIntent {
			for _, kw := range kws {
				m[intent] = append(m[intent], utils.Normalize(kw))
			}
		}
		c.intents[lang] = m
	}
	return c, nil
}

// Text returns the prompt for key in lang, falling back to English.
func (c *Catalog) Text(lang models.Language, key string) string {
	byLang, ok := c.t.Prompts[key]
	if !ok {
		return key
	}
	if s, ok := byLang[lang]; ok {
		return s
	}
	return byLang[models.English]
}

// Format fills {name} placeholders of the prompt for key.
func (c *Catalog) Format(lang models.Language, key string, args map[string]string) string {
	s := c.Text(lang, key)
	if len(args) == 0 {
		return s
	}
	pairs := make([]string, 0, 2*len(args))
	for k, v := range args {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// JoinList renders names as a spoken list ("a, b and c").
func (c *Catalog) JoinList(lang models.Language, names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	sep := c.Text(lang, "list_separator")
	last := c.Text(lang, "list_last_separator")
	return strings.Join(names[:len(names)-1], sep) + last + names[len(names)-1]
}

func (c *Catalog) PhoneticGroups(lang models.Language) [][]string {
	return c.t.Phonetics[lang]
}

// AllPhoneticGroups returns the groups of every language.
func (c *Catalog) AllPhoneticGroups() [][]string {
	var out [][]string
	for _, lang := range models.SupportedLanguages {
		out = append(out, c.t.Phonetics[lang]...)
	}
	return out
}

func (c *Catalog) NumberWords(lang models.Language) map[string]int {
	return c.t.Numbers[lang]
}

func (c *Catalog) Counters(lang models.Language) []string {
	return c.t.Counters[lang]
}

func (c *Catalog) ModifierPatterns(lang models.Language) []*regexp.Regexp {
	return c.modifiers[lang]
}

// IntentKeywords returns normalized keywords per intent for lang.
func (c *Catalog) IntentKeywords(lang models.Language) map[models.Intent][]string {
	return c.intents[lang]
}

func (c *Catalog) Separators(lang models.Language) []string {
	return c.t.Separators[lang]
}

// LanguageNames returns the spoken names that select each language.
func (c *Catalog) LanguageNames() map[models.Language][]string {
	return c.t.Languages
}

func (c *Catalog) PaymentMethods() map[string][]string {
	return c.t.PaymentMethods
}
