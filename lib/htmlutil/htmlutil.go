package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const maxSummaryLength = 200

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		buffer.WriteByte(' ')
		return
	}
	if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// Clean strips non printable characters and collapses whitespace.
func Clean(text string) string {
	text = removeNonPrintable(text)
	text = strings.Trim(text, " \t\r\n")
	text = innerWhitespace.ReplaceAllString(text, " ")
	return text
}

// Summarize reduces an html page (ex. a proxy or maintenance page) to a
// single line, preferring the page's title and falling back to its text.
func Summarize(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	summary := Clean(doc.Find("title").First().Text())
	if summary == "" {
		heading := doc.Find("h1").First()
		if len(heading.Nodes) > 0 {
			summary = Clean(GetText(heading.Nodes[0]))
		}
	}
	if summary == "" {
		body := doc.Find("body").First()
		if len(body.Nodes) > 0 {
			summary = Clean(GetText(body.Nodes[0]))
		}
	}

	if runes := []rune(summary); len(runes) > maxSummaryLength {
		summary = strings.TrimSpace(string(runes[:maxSummaryLength])) + "..."
	}
	return summary
}

// LooksLikeHTML reports whether a response is an html document judging by
// its content type or, failing that, its first bytes.
func LooksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return false
	}
	prefix := strings.ToLower(string(trimmed[:min(len(trimmed), 15)]))
	return strings.HasPrefix(prefix, "<!doctype html") || strings.HasPrefix(prefix, "<html")
}
