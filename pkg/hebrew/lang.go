package hebrew

import "strings"

// DetectedLanguage is the coarse language classification the Router's
// language gate (spec.md §4.1 phase 3) dispatches on.
type DetectedLanguage string

const (
	LangHebrew    DetectedLanguage = "hebrew"
	LangEnglish   DetectedLanguage = "english"
	LangArabic    DetectedLanguage = "arabic"
	LangOther     DetectedLanguage = "other"
	LangGibberish DetectedLanguage = "gibberish"
)

// Detect classifies text by its dominant Unicode script. This is a
// coarse heuristic, not a general-purpose language identifier: it is
// only asked to distinguish Hebrew/English/Arabic/other/gibberish for
// the unauthenticated-sender gate, which spec.md leaves unspecified in
// detail beyond that five-way split.
func Detect(text string) DetectedLanguage {
	var hebrew, arabic, latin, letters int
	for _, r := range text {
		switch {
		case r >= 0x0590 && r <= 0x05FF:
			hebrew++
			letters++
		case r >= 0x0600 && r <= 0x06FF:
			arabic++
			letters++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
			letters++
		}
	}
	if letters == 0 {
		if strings.TrimSpace(text) == "" {
			return LangGibberish
		}
		return LangGibberish
	}
	switch {
	case hebrew >= arabic && hebrew >= latin:
		return LangHebrew
	case arabic > hebrew && arabic >= latin:
		return LangArabic
	case latin > 0:
		return LangEnglish
	default:
		return LangOther
	}
}

var greetings = map[string]bool{
	"שלום": true, "היי": true, "הי": true, "אהלן": true, "בוקר טוב": true,
	"hi": true, "hello": true, "hey": true, "good morning": true,
	"مرحبا": true, "أهلا": true,
}

// IsGreeting reports whether text (after trimming/lowering) is one of
// the recognized greeting phrases that admit an unauthenticated sender
// into the registration flow, per spec.md §4.1 phase 3.
func IsGreeting(text string) bool {
	norm := strings.ToLower(strings.TrimSpace(text))
	return greetings[norm]
}
