package forum

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// metaContent returns the content attribute of the first <meta name="..."> tag.
func metaContent(page []byte, name string) (string, bool) {
	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken, html.SelfClosingTagToken:
			token := z.Token()
			if token.DataAtom != atom.Meta {
				continue
			}
			var matched bool
			var content string
			for _, attr := range token.Attr {
				switch attr.Key {
				case "name":
					matched = strings.EqualFold(strings.TrimSpace(attr.Val), name)
				case "content":
					content = attr.Val
				}
			}
			if matched && content != "" {
				return content, true
			}
		}
	}
}

// pageTitle returns the trimmed text of the first <title> element.
func pageTitle(page []byte) (string, bool) {
	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken:
			if z.Token().DataAtom != atom.Title {
				continue
			}
			if z.Next() != html.TextToken {
				return "", false
			}
			title := strings.TrimSpace(z.Token().Data)
			return title, title != ""
		}
	}
}

// generatorVersion extracts "3.2.0" from "Discourse 3.2.0 - https://... version abc123".
func generatorVersion(content string) string {
	rest, ok := strings.CutPrefix(content, "Discourse ")
	if !ok {
		return ""
	}
	version, _, _ := strings.Cut(rest, " - ")
	return strings.TrimSpace(version)
}
