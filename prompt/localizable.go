package prompt

import (
	"encoding/json"
	"errors"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrLanguageNotSupported = errors.New("language not supported")

type Language string

const (
	English Language = "English"
	Chinese Language = "Chinese"
)

// Languages lists every language a prompt is rendered in.
var Languages = []Language{English, Chinese}

func ParseLanguage(language string) (Language, error) {
	switch strings.ToLower(language) {
	case "english", "en":
		return English, nil
	case "chinese", "zh", "cn":
		return Chinese, nil
	default:
		return "", ErrLanguageNotSupported
	}
}

// Marker delimits sections of a prompt so the model can tell blocks apart.
type Marker string

const (
	Break Marker = "<break>"
	Begin Marker = "<begin>"
	End   Marker = "<end>"
)

// LocalizableString holds the same text in several languages. Every
// mutation is applied to each language the receiver carries.
type LocalizableString map[Language]string

// Localized builds a string with an English and a Chinese rendering.
func Localized(english, chinese string) LocalizableString {
	return LocalizableString{
		English: english,
		Chinese: chinese,
	}
}

// Text builds a string that reads the same in every language.
func Text(s string) LocalizableString {
	result := make(LocalizableString, len(Languages))
	for _, language := range Languages {
		result[language] = s
	}
	return result
}

func (s LocalizableString) Get(language Language) string {
	return s[language]
}

func (s LocalizableString) Append(other LocalizableString) {
	for language := range s {
		s[language] += other[language]
	}
}

func (s LocalizableString) AppendMarker(marker Marker, prefix, suffix string) {
	for language := range s {
		s[language] += prefix + string(marker) + suffix
	}
}

func (s LocalizableString) AppendBreak() {
	s.AppendMarker(Break, "\n", "\n")
}

func (s LocalizableString) AppendBegin() {
	s.AppendMarker(Begin, "\n", "\n")
}

func (s LocalizableString) AppendEnd() {
	s.AppendMarker(End, "\n", "\n")
}

// MarshalJSON keys the renderings by lower case language name.
func (s LocalizableString) MarshalJSON() ([]byte, error) {
	raw := make(map[string]string, len(s))
	for language, text := range s {
		raw[strings.ToLower(string(language))] = text
	}
	return json.Marshal(raw)
}

func (s *LocalizableString) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make(LocalizableString, len(raw))
	for key, text := range raw {
		language, err := ParseLanguage(key)
		if err != nil {
			return err
		}
		result[language] = text
	}

	*s = result
	return nil
}

func (s *LocalizableString) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	result := make(LocalizableString, len(raw))
	for key, text := range raw {
		language, err := ParseLanguage(key)
		if err != nil {
			return err
		}
		result[language] = text
	}

	*s = result
	return nil
}

// Consumable is anything that can be rendered into a prompt fragment.
type Consumable interface {
	Consumable() (LocalizableString, error)
}

// Context is a complete prompt ready to send to a model.
type Context interface {
	Build() (LocalizableString, error)
}
