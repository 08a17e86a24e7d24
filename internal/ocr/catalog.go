package ocr

// LanguageInfo describes one downloadable tessdata language.
type LanguageInfo struct {
	Code     string
	Name     string
	FileSize int64
}

// DisplayName renders "Name (code)".
func (l LanguageInfo) DisplayName() string {
	return l.Name + " (" + l.Code + ")"
}

// catalog lists the languages published in the tessdata repository, with
// approximate file sizes. Sorted by name.
var catalog = []LanguageInfo{
	{Code: "afr", Name: "Afrikaans", FileSize: 15_000_000},
	{Code: "sqi", Name: "Albanian", FileSize: 20_000_000},
	{Code: "amh", Name: "Amharic", FileSize: 25_000_000},
	{Code: "grc", Name: "Ancient Greek", FileSize: 20_000_000},
	{Code: "ara", Name: "Arabic", FileSize: 35_000_000},
	{Code: "hye", Name: "Armenian", FileSize: 25_000_000},
	{Code: "asm", Name: "Assamese", FileSize: 25_000_000},
	{Code: "aze", Name: "Azerbaijani", FileSize: 20_000_000},
	{Code: "eus", Name: "Basque", FileSize: 15_000_000},
	{Code: "bel", Name: "Belarusian", FileSize: 20_000_000},
	{Code: "ben", Name: "Bengali", FileSize: 30_000_000},
	{Code: "bos", Name: "Bosnian", FileSize: 20_000_000},
	{Code: "bul", Name: "Bulgarian", FileSize: 20_000_000},
	{Code: "mya", Name: "Burmese", FileSize: 25_000_000},
	{Code: "cat", Name: "Catalan", FileSize: 15_000_000},
	{Code: "ceb", Name: "Cebuano", FileSize: 15_000_000},
	{Code: "chr", Name: "Cherokee", FileSize: 15_000_000},
	{Code: "chi_sim", Name: "Chinese (Simplified)", FileSize: 40_000_000},
	{Code: "chi_tra", Name: "Chinese (Traditional)", FileSize: 45_000_000},
	{Code: "chi_sim_vert", Name: "Chinese Simplified (Vertical)", FileSize: 40_000_000},
	{Code: "chi_tra_vert", Name: "Chinese Traditional (Vertical)", FileSize: 45_000_000},
	{Code: "cos", Name: "Corsican", FileSize: 15_000_000},
	{Code: "hrv", Name: "Croatian", FileSize: 20_000_000},
	{Code: "ces", Name: "Czech", FileSize: 20_000_000},
	{Code: "dan", Name: "Danish", FileSize: 15_000_000},
	{Code: "div", Name: "Dhivehi", FileSize: 20_000_000},
	{Code: "nld", Name: "Dutch", FileSize: 15_000_000},
	{Code: "dzo", Name: "Dzongkha", FileSize: 20_000_000},
	{Code: "eng", Name: "English", FileSize: 15_000_000},
	{Code: "epo", Name: "Esperanto", FileSize: 15_000_000},
	{Code: "est", Name: "Estonian", FileSize: 15_000_000},
	{Code: "fin", Name: "Finnish", FileSize: 15_000_000},
	{Code: "fra", Name: "French", FileSize: 15_000_000},
	{Code: "glg", Name: "Galician", FileSize: 15_000_000},
	{Code: "kat", Name: "Georgian", FileSize: 25_000_000},
	{Code: "deu", Name: "German", FileSize: 20_000_000},
	{Code: "ell", Name: "Greek", FileSize: 20_000_000},
	{Code: "guj", Name: "Gujarati", FileSize: 25_000_000},
	{Code: "hat", Name: "Haitian Creole", FileSize: 15_000_000},
	{Code: "heb", Name: "Hebrew", FileSize: 15_000_000},
	{Code: "hin", Name: "Hindi", FileSize: 30_000_000},
	{Code: "hun", Name: "Hungarian", FileSize: 20_000_000},
	{Code: "isl", Name: "Icelandic", FileSize: 15_000_000},
	{Code: "ind", Name: "Indonesian", FileSize: 20_000_000},
	{Code: "gle", Name: "Irish", FileSize: 15_000_000},
	{Code: "ita", Name: "Italian", FileSize: 15_000_000},
	{Code: "jpn", Name: "Japanese", FileSize: 35_000_000},
	{Code: "jpn_vert", Name: "Japanese (Vertical)", FileSize: 35_000_000},
	{Code: "jav", Name: "Javanese", FileSize: 15_000_000},
	{Code: "kan", Name: "Kannada", FileSize: 25_000_000},
	{Code: "kaz", Name: "Kazakh", FileSize: 20_000_000},
	{Code: "khm", Name: "Khmer", FileSize: 25_000_000},
	{Code: "kor", Name: "Korean", FileSize: 30_000_000},
	{Code: "kor_vert", Name: "Korean (Vertical)", FileSize: 30_000_000},
	{Code: "kir", Name: "Kyrgyz", FileSize: 20_000_000},
	{Code: "lao", Name: "Lao", FileSize: 25_000_000},
	{Code: "lat", Name: "Latin", FileSize: 15_000_000},
	{Code: "lav", Name: "Latvian", FileSize: 15_000_000},
	{Code: "lit", Name: "Lithuanian", FileSize: 15_000_000},
	{Code: "mkd", Name: "Macedonian", FileSize: 20_000_000},
	{Code: "msa", Name: "Malay", FileSize: 20_000_000},
	{Code: "mal", Name: "Malayalam", FileSize: 25_000_000},
	{Code: "mlt", Name: "Maltese", FileSize: 15_000_000},
	{Code: "mri", Name: "Maori", FileSize: 15_000_000},
	{Code: "mar", Name: "Marathi", FileSize: 25_000_000},
	{Code: "mon", Name: "Mongolian", FileSize: 25_000_000},
	{Code: "nep", Name: "Nepali", FileSize: 25_000_000},
	{Code: "nor", Name: "Norwegian", FileSize: 15_000_000},
	{Code: "oci", Name: "Occitan", FileSize: 15_000_000},
	{Code: "ori", Name: "Odia", FileSize: 25_000_000},
	{Code: "pus", Name: "Pashto", FileSize: 25_000_000},
	{Code: "pol", Name: "Polish", FileSize: 20_000_000},
	{Code: "por", Name: "Portuguese", FileSize: 15_000_000},
	{Code: "pan", Name: "Punjabi", FileSize: 25_000_000},
	{Code: "ron", Name: "Romanian", FileSize: 20_000_000},
	{Code: "rus", Name: "Russian", FileSize: 20_000_000},
	{Code: "san", Name: "Sanskrit", FileSize: 25_000_000},
	{Code: "gla", Name: "Scottish Gaelic", FileSize: 15_000_000},
	{Code: "srp", Name: "Serbian", FileSize: 20_000_000},
	{Code: "snd", Name: "Sindhi", FileSize: 25_000_000},
	{Code: "sin", Name: "Sinhala", FileSize: 25_000_000},
	{Code: "slk", Name: "Slovak", FileSize: 20_000_000},
	{Code: "slv", Name: "Slovenian", FileSize: 20_000_000},
	{Code: "spa", Name: "Spanish", FileSize: 15_000_000},
	{Code: "sun", Name: "Sundanese", FileSize: 15_000_000},
	{Code: "swa", Name: "Swahili", FileSize: 15_000_000},
	{Code: "swe", Name: "Swedish", FileSize: 15_000_000},
	{Code: "syr", Name: "Syriac", FileSize: 20_000_000},
	{Code: "tgl", Name: "Tagalog", FileSize: 20_000_000},
	{Code: "tgk", Name: "Tajik", FileSize: 20_000_000},
	{Code: "tam", Name: "Tamil", FileSize: 25_000_000},
	{Code: "tat", Name: "Tatar", FileSize: 20_000_000},
	{Code: "tel", Name: "Telugu", FileSize: 25_000_000},
	{Code: "tha", Name: "Thai", FileSize: 25_000_000},
	{Code: "bod", Name: "Tibetan", FileSize: 30_000_000},
	{Code: "tir", Name: "Tigrinya", FileSize: 20_000_000},
	{Code: "ton", Name: "Tongan", FileSize: 15_000_000},
	{Code: "tur", Name: "Turkish", FileSize: 20_000_000},
	{Code: "ukr", Name: "Ukrainian", FileSize: 20_000_000},
	{Code: "urd", Name: "Urdu", FileSize: 25_000_000},
	{Code: "uig", Name: "Uyghur", FileSize: 20_000_000},
	{Code: "uzb", Name: "Uzbek", FileSize: 20_000_000},
	{Code: "vie", Name: "Vietnamese", FileSize: 20_000_000},
	{Code: "cym", Name: "Welsh", FileSize: 15_000_000},
	{Code: "yid", Name: "Yiddish", FileSize: 15_000_000},
	{Code: "yor", Name: "Yoruba", FileSize: 15_000_000},
}

var catalogIndex = func() map[string]LanguageInfo {
	idx := make(map[string]LanguageInfo, len(catalog))
	for _, l := range catalog {
		idx[l.Code] = l
	}
	return idx
}()

// Catalog returns a copy of the downloadable languages sorted by name.
func Catalog() []LanguageInfo {
	out := make([]LanguageInfo, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a catalog entry by tessdata code.
func Lookup(code string) (LanguageInfo, bool) {
	l, ok := catalogIndex[code]
	return l, ok
}
