package router

import "regexp"

// ImageExtractor recovers an image reference from free-form model reply
// text. Behind an interface so providers with structured image fields can
// skip the pattern match entirely.
type ImageExtractor interface {
	Extract(content string) (string, bool)
}

var markdownImagePattern = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)\)`)

// MarkdownExtractor matches the first markdown image link in the reply,
// e.g. ![img](https://x/y.png) or a data URI.
type MarkdownExtractor struct{}

func (MarkdownExtractor) Extract(content string) (string, bool) {
	match := markdownImagePattern.FindStringSubmatch(content)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// StripImageMarkup removes any markdown image links a text model echoed
// back into rewritten prompt text.
func StripImageMarkup(text string) string {
	return markdownImagePattern.ReplaceAllString(text, "")
}
