package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"rsc.io/pdf"
)

var errUnsupportedContentType = errors.New("unsupported content type")

const pdfTextRuneCeiling = 220_000

// extractReadableText turns a fetched document into plain text keyed by
// its media type. HTML keeps the page title; everything else returns an
// empty title and lets the caller fall back to the URL.
func extractReadableText(mediaType string, body []byte, maxRunes int) (title, text string, err error) {
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "text/html", "application/xhtml+xml":
		title, text, err = htmlToText(body)
	case "text/plain", "text/markdown", "text/csv":
		text = compactText(string(body))
	case "application/json":
		text, err = jsonToText(body)
	case "application/pdf":
		text, err = pdfToText(body)
	default:
		if strings.HasPrefix(mediaType, "text/") {
			text = compactText(string(body))
			break
		}
		return "", "", errUnsupportedContentType
	}
	if err != nil {
		return "", "", err
	}
	title = trimToRunes(strings.TrimSpace(title), 240)
	text = trimToRunes(compactText(text), maxRunes)
	return title, text, nil
}

func jsonToText(data []byte) (string, error) {
	if !json.Valid(data) {
		return compactText(string(data)), nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		return "", err
	}
	return compactText(pretty.String()), nil
}

func pdfToText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	runeCount := 0
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		for _, item := range page.Content().Text {
			chunk := strings.TrimSpace(item.S)
			if chunk == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteByte('\n')
				runeCount++
			}
			builder.WriteString(chunk)
			runeCount += utf8.RuneCountInString(chunk)
			if runeCount >= pdfTextRuneCeiling {
				return trimToRunes(builder.String(), pdfTextRuneCeiling), nil
			}
		}
	}

	return compactText(builder.String()), nil
}

func htmlToText(data []byte) (title, text string, err error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", "", err
	}

	title = strings.TrimSpace(htmlTitle(doc))
	var builder strings.Builder
	collectHTMLText(doc, false, &builder)
	return title, compactText(builder.String()), nil
}

func htmlTitle(node *html.Node) string {
	if node == nil {
		return ""
	}
	if node.Type == html.ElementNode && strings.EqualFold(node.Data, "title") {
		return strings.TrimSpace(htmlNodeText(node))
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if value := htmlTitle(child); value != "" {
			return value
		}
	}
	return ""
}

func htmlNodeText(node *html.Node) string {
	if node == nil {
		return ""
	}
	if node.Type == html.TextNode {
		return node.Data
	}
	var builder strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		builder.WriteString(htmlNodeText(child))
		builder.WriteByte(' ')
	}
	return builder.String()
}

func collectHTMLText(node *html.Node, skip bool, out *strings.Builder) {
	if node == nil || out == nil {
		return
	}
	if node.Type == html.ElementNode {
		switch strings.ToLower(node.Data) {
		case "script", "style", "noscript", "svg", "iframe", "head":
			skip = true
		case "p", "div", "section", "article", "li", "h1", "h2", "h3", "h4", "h5", "h6", "br", "tr":
			if out.Len() > 0 {
				out.WriteByte('\n')
			}
		}
	}
	if node.Type == html.TextNode && !skip {
		trimmed := strings.TrimSpace(node.Data)
		if trimmed != "" {
			out.WriteString(trimmed)
			out.WriteByte(' ')
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectHTMLText(child, skip, out)
	}
}

func compactText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ToValidUTF8(normalized, "")

	lines := strings.Split(normalized, "\n")
	compact := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		compact = append(compact, strings.Join(strings.Fields(trimmed), " "))
	}
	return strings.TrimSpace(strings.Join(compact, "\n"))
}
