package preview

import (
	"strings"

	"golang.org/x/net/html"
)

// Manifest lists the external assets a document references.
type Manifest struct {
	Scripts     []string `json:"scripts" yaml:"scripts"`
	Stylesheets []string `json:"stylesheets" yaml:"stylesheets"`
	Images      []string `json:"images" yaml:"images"`
	HasHead     bool     `json:"has_head" yaml:"has_head"`
}

// Count is the total number of referenced assets.
func (m Manifest) Count() int {
	return len(m.Scripts) + len(m.Stylesheets) + len(m.Images)
}

// Inspect tokenizes doc and collects its asset references. It tolerates
// malformed markup the way browsers do and never fails.
func Inspect(doc string) Manifest {
	var m Manifest
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a read error; either way the document is done.
			return m
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom.String() {
			case "head":
				m.HasHead = true
			case "script":
				if src, ok := attr(tok, "src"); ok {
					m.Scripts = append(m.Scripts, src)
				}
			case "link":
				if href, ok := attr(tok, "href"); ok {
					m.Stylesheets = append(m.Stylesheets, href)
				}
			case "img":
				if src, ok := attr(tok, "src"); ok {
					m.Images = append(m.Images, src)
				}
			}
		}
	}
}

func attr(tok html.Token, key string) (string, bool) {
	for _, a := range tok.Attr {
		if a.Key == key && a.Val != "" {
			return a.Val, true
		}
	}

	return "", false
}
