package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"webindex/pkg/models"
	"webindex/pkg/utils"
)

// maxDescriptionRunes caps the page description taken from the first
// text block of the body.
const maxDescriptionRunes = 512

// skippedElements never contribute words.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"iframe":   true,
}

// Extract parses an HTML document and pulls out everything the indexer
// and the crawler need from it: the title, a short description, every
// word tagged with the element it appeared under, and all outgoing
// hrefs exactly as written in the markup.
func Extract(body []byte) (*models.PageContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing HTML: %w", utils.ErrDecodeFailure, err)
	}

	content := &models.PageContent{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	counts := make(map[wordOrigin]uint64)
	for _, word := range Tokenize(content.Title) {
		counts[wordOrigin{word: word, origin: "title"}]++
	}

	if sel := doc.Find("body").First(); sel.Length() > 0 {
		bodyNode := sel.Nodes[0]
		collectWords(bodyNode, "body", counts)
		content.Description = firstTextBlock(bodyNode)
	}

	content.Words = make([]models.ExtractedWord, 0, len(counts))
	for key, count := range counts {
		content.Words = append(content.Words, models.ExtractedWord{
			Word:   key.word,
			Origin: key.origin,
			Count:  count,
		})
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			content.Links = append(content.Links, href)
		}
	})

	return content, nil
}

type wordOrigin struct {
	word   string
	origin string
}

// collectWords walks the node tree under body. Each text node's words
// are attributed to the nearest enclosing element.
func collectWords(node *html.Node, origin string, counts map[wordOrigin]uint64) {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case html.TextNode:
			for _, word := range Tokenize(child.Data) {
				counts[wordOrigin{word: word, origin: origin}]++
			}
		case html.ElementNode:
			if skippedElements[child.Data] {
				continue
			}
			collectWords(child, child.Data, counts)
		}
	}
}

// firstTextBlock returns the first non-empty text run under body,
// truncated on a rune boundary.
func firstTextBlock(node *html.Node) string {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case html.TextNode:
			if text := collapseSpace(child.Data); text != "" {
				return truncateRunes(text, maxDescriptionRunes)
			}
		case html.ElementNode:
			if skippedElements[child.Data] {
				continue
			}
			if text := firstTextBlock(child); text != "" {
				return text
			}
		}
	}
	return ""
}

// Tokenize splits text on whitespace, strips every rune that is not a
// letter or digit, and lowercases what remains. Words that strip to
// nothing are dropped.
func Tokenize(text string) []string {
	fields := strings.Fields(text)
	words := make([]string, 0, len(fields))
	for _, field := range fields {
		cleaned := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, field)
		if cleaned != "" {
			words = append(words, cleaned)
		}
	}
	return words
}

func collapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
