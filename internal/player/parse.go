package player

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

var (
	errElementMissing = errors.New("element not found")
	errMalformedInfo  = errors.New("malformed now-playing text")
	errNotUTF8        = errors.New("file path is not valid UTF-8")
)

// findText parses an HTML document and returns the text content of the
// element with the given id.
func findText(r io.Reader, id string) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	n := findByID(doc, id)
	if n == nil {
		return "", fmt.Errorf("%w: #%s", errElementMissing, id)
	}

	var b strings.Builder
	collectText(n, &b)
	return b.String(), nil
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// latin1Reader decodes a byte stream as ISO-8859-1, which is how the player's
// variables page is served.
func latin1Reader(r io.Reader) io.Reader {
	return charmap.ISO8859_1.NewDecoder().Reader(r)
}

// reinterpretUTF8 maps s back to its Latin-1 bytes and reads those bytes as
// UTF-8. The player writes UTF-8 paths into a page it labels as Latin-1.
func reinterpretUTF8(s string) (string, error) {
	raw, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errNotUTF8, err)
	}
	if !utf8.ValidString(raw) {
		return "", errNotUTF8
	}
	return raw, nil
}

// parseNowPlaying splits the info page banner,
// "« MPC-HC v1.9 • movie.mkv • 00:01:02/00:10:00 • 1.2 GB »",
// into the file name and current position.
func parseNowPlaying(text string) (Position, error) {
	text = strings.Trim(strings.TrimSpace(text), "«»")
	parts := strings.Split(text, "•")
	if len(parts) < 3 {
		return Position{}, fmt.Errorf("%w: %q", errMalformedInfo, text)
	}

	position, _, _ := strings.Cut(parts[2], "/")
	return Position{
		FileName:        strings.TrimSpace(parts[1]),
		CurrentPosition: strings.TrimSpace(position),
	}, nil
}
