package ivr

import (
	"regexp"
	"strings"
)

// Extractor pulls a structured value out of a free-text transcript.
type Extractor func(transcript string) (value string, ok bool)

// DefaultExtractors returns the built-in extractors by menu extractor name.
func DefaultExtractors() map[string]Extractor {
	return map[string]Extractor{
		"order_id":     ExtractOrderID,
		"product_name": ExtractProductName,
	}
}

var orderIDPattern = regexp.MustCompile(`(?i)(?:#\s*|\border\b\D*)?(\d{6,})`)

var bengaliDigits = strings.NewReplacer(
	"০", "0", "১", "1", "২", "2", "৩", "3", "৪", "4",
	"৫", "5", "৬", "6", "৭", "7", "৮", "8", "৯", "9",
)

// ExtractOrderID returns the first run of six or more digits, optionally
// written after "#" or the word "order". Bengali digits count as digits.
func ExtractOrderID(transcript string) (string, bool) {
	match := orderIDPattern.FindStringSubmatch(bengaliDigits.Replace(transcript))
	if match == nil {
		return "", false
	}
	return match[1], true
}

var productFillers = []string{
	"i want to know about",
	"i would like to know about",
	"tell me about",
	"information about",
	"info about",
	"details of",
	"i want",
	"please",
	"the product",
	"সম্পর্কে জানতে চাই",
	"সম্পর্কে বলুন",
	"এর তথ্য",
	"দয়া করে",
}

var spaces = regexp.MustCompile(`\s+`)

// ExtractProductName strips conversational filler and punctuation and returns
// what is left.
func ExtractProductName(transcript string) (string, bool) {
	name := strings.ToLower(transcript)
	for _, filler := range productFillers {
		name = strings.ReplaceAll(name, filler, " ")
	}
	name = strings.Trim(spaces.ReplaceAllString(name, " "), " .,!?।")
	if name == "" {
		return "", false
	}
	return name, true
}
