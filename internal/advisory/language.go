package advisory

import "github.com/abadojack/whatlanggo"

// DetectLanguage returns the ISO 639-1 code of the text's language, or an
// empty string when it cannot be told.
func DetectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if info.Lang < 0 {
		return ""
	}
	return info.Lang.Iso6391()
}
