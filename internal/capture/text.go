package capture

import (
	"net/url"
	"regexp"
	"strings"
)

const tablePromptTemplate = `Analyze the following OCR text for tabular data. If you find tables:
- Extract the table structure (headers and rows)
- Format each table in {format} format
- Preserve all non-table text in its original position
- Output the full text with tables replaced by their formatted version
- If no table is found, return the original text unchanged

OCR Text:
{text}`

// TablePrompt fills the table detection prompt for format and text.
func TablePrompt(format, text string) string {
	return strings.Replace(tableTemplate(format), "{text}", text, 1)
}

// tableTemplate fills only {format}, leaving {text} for the provider.
func tableTemplate(format string) string {
	return strings.ReplaceAll(tablePromptTemplate, "{format}", format)
}

// ApplyURLTemplate percent-encodes text into the first {text} placeholder of
// tmpl. Spaces are encoded as %20.
func ApplyURLTemplate(tmpl, text string, addNewline bool) string {
	if addNewline {
		text += "\n"
	}
	escaped := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return strings.Replace(tmpl, "{text}", escaped, 1)
}

var urlPattern = regexp.MustCompile(`(?i)\b(?:[a-z][a-z0-9+.-]*://|www\.)[^\s<>"'` + "`" + `]+`)

// DetectURLs returns the links found in text. Links without a scheme get
// https:// prepended.
func DetectURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)

	var urls []string
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;:!?)]}")
		if !strings.Contains(m, "://") {
			m = "https://" + m
		}
		u, err := url.Parse(m)
		if err != nil || u.Host == "" {
			continue
		}
		urls = append(urls, u.String())
	}
	return urls
}

// collapseLineBreaks joins lines with a space.
func collapseLineBreaks(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\n", " ")
}
