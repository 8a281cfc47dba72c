package firmware

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	multiSpaceRe = regexp.MustCompile(`[ \t\r\f\v]{2,}`)
	blankLinesRe = regexp.MustCompile(`\n{2,}`)
)

// CleanChangelog converts the vendor's changelog HTML to plain text.
// Text nodes are separated by newlines and bullets start a new line.
// Input that fails to parse is returned trimmed.
func CleanChangelog(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}

	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(strings.ReplaceAll(n.Data, "\u00a0", " ")); text != "" {
				lines = append(lines, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	text := strings.Join(lines, "\n")
	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, " •", "\n•")
	text = blankLinesRe.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
