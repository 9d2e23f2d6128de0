package deepgram

import "github.com/koscakluka/ema-ivr/core/texttospeech"

const defaultVoice = "aura-2-thalia-en"

// availableVoices lists the Aura models offered by the speak endpoint. Deepgram
// does not publish a voice listing API for them.
var availableVoices = []texttospeech.Voice{
	{ID: "aura-2-thalia-en", Name: "Thalia", Lang: "en-US", Default: true},
	{ID: "aura-2-andromeda-en", Name: "Andromeda", Lang: "en-US"},
	{ID: "aura-2-helena-en", Name: "Helena", Lang: "en-US"},
	{ID: "aura-2-apollo-en", Name: "Apollo", Lang: "en-US"},
	{ID: "aura-2-draco-en", Name: "Draco", Lang: "en-GB"},
	{ID: "aura-2-pandora-en", Name: "Pandora", Lang: "en-GB"},
	{ID: "aura-2-celeste-es", Name: "Celeste", Lang: "es-CO"},
	{ID: "aura-2-estrella-es", Name: "Estrella", Lang: "es-MX"},
	{ID: "aura-asteria-en", Name: "Asteria", Lang: "en-US"},
	{ID: "aura-orion-en", Name: "Orion", Lang: "en-US"},
}

func GetAvailableVoices() []texttospeech.Voice {
	voices := make([]texttospeech.Voice, len(availableVoices))
	copy(voices, availableVoices)
	return voices
}
