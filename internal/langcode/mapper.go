// Package langcode maps BCP-47 style language tags to Tesseract's three-letter
// traineddata codes and back.
package langcode

import (
	"strings"
)

// toTesseract holds both region and bare forms. Several tags collapse onto one
// code, so the reverse table below is the canonical region form only.
var toTesseract = map[string]string{
	"en-US": "eng", "en": "eng",
	"fr-FR": "fra", "fr": "fra",
	"de-DE": "deu", "de": "deu",
	"es-ES": "spa", "es": "spa",
	"it-IT": "ita", "it": "ita",
	"pt-BR": "por", "pt": "por",
	"ru-RU": "rus", "ru": "rus",
	"ja-JP": "jpn", "ja": "jpn",
	"zh-Hans": "chi_sim", "zh-CN": "chi_sim",
	"zh-Hant": "chi_tra", "zh-TW": "chi_tra",
	"ko-KR": "kor", "ko": "kor",
	"ar-SA": "ara", "ar": "ara",
	"hi-IN": "hin", "hi": "hin",
	"th-TH": "tha", "th": "tha",
	"vi-VN": "vie", "vi": "vie",
	"he-IL": "heb", "he": "heb",
	"pl-PL": "pol", "pl": "pol",
	"tr-TR": "tur", "tr": "tur",
	"uk-UA": "ukr", "uk": "ukr",
	"cs-CZ": "ces", "cs": "ces",
	"hu-HU": "hun", "hu": "hun",
	"sv-SE": "swe", "sv": "swe",
	"da-DK": "dan", "da": "dan",
	"no-NO": "nor", "no": "nor",
	"fi-FI": "fin", "fi": "fin",
	"nl-NL": "nld", "nl": "nld",
	"el-GR": "ell", "el": "ell",
}

var fromTesseract = map[string]string{
	"eng":     "en-US",
	"fra":     "fr-FR",
	"deu":     "de-DE",
	"spa":     "es-ES",
	"ita":     "it-IT",
	"por":     "pt-BR",
	"rus":     "ru-RU",
	"jpn":     "ja-JP",
	"chi_sim": "zh-Hans",
	"chi_tra": "zh-Hant",
	"kor":     "ko-KR",
	"ara":     "ar-SA",
	"hin":     "hi-IN",
	"tha":     "th-TH",
	"vie":     "vi-VN",
	"heb":     "he-IL",
	"pol":     "pl-PL",
	"tur":     "tr-TR",
	"ukr":     "uk-UA",
	"ces":     "cs-CZ",
	"hun":     "hu-HU",
	"swe":     "sv-SE",
	"dan":     "da-DK",
	"nor":     "no-NO",
	"fin":     "fi-FI",
	"nld":     "nl-NL",
	"ell":     "el-GR",
}

// ToTesseract maps a language tag to its Tesseract code. Unknown tags are
// returned unchanged so callers can pass raw Tesseract codes through.
func ToTesseract(tag string) string {
	if code, ok := toTesseract[tag]; ok {
		return code
	}
	if code, ok := toTesseract[Standardize(tag)]; ok {
		return code
	}
	return tag
}

// FromTesseract maps a Tesseract code to the canonical region-form tag.
// Unknown codes are returned unchanged.
func FromTesseract(code string) string {
	if tag, ok := fromTesseract[code]; ok {
		return tag
	}
	return code
}

// Standardize normalizes separators and case: "en_us" becomes "en-US" and
// "zh-hans" becomes "zh-Hans". Tesseract codes such as "chi_sim" or
// "deu_frak" are left alone.
func Standardize(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return tag
	}
	if _, ok := fromTesseract[tag]; ok || isTesseractCode(tag) {
		return tag
	}

	parts := strings.Split(strings.ReplaceAll(tag, "_", "-"), "-")
	parts[0] = strings.ToLower(parts[0])
	for i := 1; i < len(parts); i++ {
		switch len(parts[i]) {
		case 4:
			parts[i] = strings.ToUpper(parts[i][:1]) + strings.ToLower(parts[i][1:])
		default:
			parts[i] = strings.ToUpper(parts[i])
		}
	}
	return strings.Join(parts, "-")
}

// isTesseractCode matches lowercase codes with a three-letter base and
// underscore suffixes, e.g. "deu_frak" or "chi_sim_vert".
func isTesseractCode(tag string) bool {
	base, _, found := strings.Cut(tag, "_")
	if !found || len(base) != 3 || strings.Contains(tag, "-") {
		return false
	}
	return tag == strings.ToLower(tag)
}

// ToTesseractList maps every tag and drops duplicates, keeping first-seen order.
func ToTesseractList(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	codes := make([]string, 0, len(tags))
	for _, tag := range tags {
		code := ToTesseract(tag)
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

// JoinTesseract builds the language argument Tesseract expects, e.g. "eng+fra".
func JoinTesseract(codes []string) string {
	return strings.Join(codes, "+")
}

// SupportedTags returns the region-form tags that have a Tesseract mapping.
func SupportedTags() []string {
	tags := make([]string, 0, len(fromTesseract))
	for _, tag := range fromTesseract {
		tags = append(tags, tag)
	}
	return tags
}
