package preview

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// CSP is a Content-Security-Policy expressed as source lists per directive.
type CSP struct {
	DefaultSrc []string
	ScriptSrc  []string
	StyleSrc   []string
	ImgSrc     []string
	ConnectSrc []string
	ObjectSrc  []string
}

// DefaultCSP is the policy embedded in every preview: inline code only, data:
// images, no network access.
var DefaultCSP = CSP{
	DefaultSrc: []string{"'self'"},
	ScriptSrc:  []string{"'unsafe-inline'", "'self'"},
	StyleSrc:   []string{"'unsafe-inline'", "'self'"},
	ImgSrc:     []string{"data:", "'self'"},
	ConnectSrc: []string{"'none'"},
	ObjectSrc:  []string{"'none'"},
}

// String renders the policy in header form.
func (c CSP) String() string {
	var directives []string

	addDirective := func(name string, values []string) {
		if len(values) > 0 {
			directives = append(directives, fmt.Sprintf("%s %s", name, strings.Join(values, " ")))
		}
	}

	addDirective("default-src", c.DefaultSrc)
	addDirective("script-src", c.ScriptSrc)
	addDirective("style-src", c.StyleSrc)
	addDirective("img-src", c.ImgSrc)
	addDirective("connect-src", c.ConnectSrc)
	addDirective("object-src", c.ObjectSrc)

	return strings.Join(directives, "; ")
}

// Meta renders the policy as a meta tag.
func (c CSP) Meta() string {
	return fmt.Sprintf(`<meta http-equiv="Content-Security-Policy" content="%s">`, c.String())
}

// injectCSP makes the meta tag the first child of the document's head
// element. Without a head element, one holding the meta is inserted after the
// <html> start tag, or prepended when there is none.
func injectCSP(doc string, c CSP) string {
	meta := c.Meta()
	headEnd, htmlEnd := startTagEnds(doc)
	switch {
	case headEnd >= 0:
		return doc[:headEnd] + meta + doc[headEnd:]
	case htmlEnd >= 0:
		return doc[:htmlEnd] + "<head>" + meta + "</head>" + doc[htmlEnd:]
	default:
		return "<head>" + meta + "</head>" + doc
	}
}

// startTagEnds returns the byte offsets just past the first <head> and first
// <html> start tags, or -1 for a missing tag. Tag names match case-insensitively
// and text inside script or style elements is never mistaken for a tag.
func startTagEnds(doc string) (headEnd, htmlEnd int) {
	headEnd, htmlEnd = -1, -1
	z := html.NewTokenizer(strings.NewReader(doc))
	pos := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return headEnd, htmlEnd
		}
		pos += len(z.Raw())
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		name, _ := z.TagName()
		switch atom.Lookup(name) {
		case atom.Head:
			return pos, htmlEnd
		case atom.Html:
			if htmlEnd < 0 {
				htmlEnd = pos
			}
		}
	}
}
