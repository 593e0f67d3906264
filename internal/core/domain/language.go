package domain

import "strings"

// Language identifies the language of documents, prompts and answers.
type Language string

// Supported languages.
const (
	// LanguageItalian is Italian ("it").
	LanguageItalian Language = "it"

	// LanguageEnglish is English ("en").
	LanguageEnglish Language = "en"
)

// IsValid returns true if the language is supported.
func (l Language) IsValid() bool {
	switch l {
	case LanguageItalian, LanguageEnglish:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (l Language) String() string {
	return string(l)
}

// Description returns a human-readable name for the language.
func (l Language) Description() string {
	switch l {
	case LanguageItalian:
		return "Italian"
	case LanguageEnglish:
		return "English"
	default:
		return unknownDescription
	}
}

// DefaultRegion returns the web-search region used for this language.
func (l Language) DefaultRegion() string {
	switch l {
	case LanguageEnglish:
		return "us-en"
	default:
		return "it-it"
	}
}

// ParseLanguage converts a language code into a Language.
// Unsupported codes are reported as a ConfigurationError.
func ParseLanguage(code string) (Language, error) {
	lang := Language(strings.ToLower(strings.TrimSpace(code)))
	if !lang.IsValid() {
		return "", &ConfigurationError{
			Op:  "parse language " + code,
			Err: ErrUnsupportedLanguage,
		}
	}
	return lang, nil
}

// AllLanguages returns all supported languages.
func AllLanguages() []Language {
	return []Language{LanguageItalian, LanguageEnglish}
}
