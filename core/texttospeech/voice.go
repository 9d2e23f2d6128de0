package texttospeech

import "strings"

// Voice describes a synthesis voice offered by an engine.
type Voice struct {
	ID   string
	Name string
	// Lang is a BCP 47 tag such as "bn-IN" or "en-US".
	Lang    string
	Default bool
}

func (v Voice) IsZero() bool { return v.ID == "" && v.Name == "" }

// Language identifies the language a voice should speak, by code prefix
// ("bn") and by display names ("bangla", "bengali").
type Language struct {
	Code  string
	Names []string
}

// SelectVoice picks the first voice whose language tag starts with the target
// code, then the first voice whose name contains one of the target names, both
// case-insensitive. Otherwise it returns the voice flagged as default, which is
// the zero Voice when the engine marks none.
func SelectVoice(voices []Voice, language Language) Voice {
	if code := strings.ToLower(language.Code); code != "" {
		for _, voice := range voices {
			if strings.HasPrefix(strings.ToLower(voice.Lang), code) {
				return voice
			}
		}
	}

	for _, voice := range voices {
		name := strings.ToLower(voice.Name)
		for _, target := range language.Names {
			if target != "" && strings.Contains(name, strings.ToLower(target)) {
				return voice
			}
		}
	}

	for _, voice := range voices {
		if voice.Default {
			return voice
		}
	}
	return Voice{}
}
