package cascade

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// Normalizer converts raw markup into portable markdown text so that
// downstream consumers never see HTML.
type Normalizer struct {
	conv *md.Converter
}

// NewNormalizer creates a markup-to-markdown normalizer.
func NewNormalizer() *Normalizer {
	conv := md.NewConverter("", true, nil)
	return &Normalizer{conv: conv}
}

// Normalize converts an HTML fragment to trimmed markdown. Conversion
// failures fall back to the tag-stripped text rather than erroring.
func (n *Normalizer) Normalize(html string) string {
	out, err := n.conv.ConvertString(html)
	if err != nil {
		return strings.TrimSpace(stripTags(html))
	}
	out = blankLines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

func stripTags(html string) string {
	return tagRe.ReplaceAllString(html, " ")
}
