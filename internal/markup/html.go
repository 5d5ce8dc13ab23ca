package markup

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Microdata holds itemprop values from a microdata fragment.
// A value is the element's content/datetime attribute when present,
// otherwise its trimmed text.
type Microdata map[string][]string

// ParseMicrodata collects every itemprop in raw. When a Recipe itemscope is
// present only properties inside it are kept.
func ParseMicrodata(raw string) Microdata {
	doc, ok := parse(raw)
	if !ok {
		return nil
	}
	root := doc.Selection
	if scope := doc.Find(`[itemtype*="schema.org/Recipe"]`).First(); scope.Length() > 0 {
		root = scope
	}
	out := make(Microdata)
	root.Find("[itemprop]").Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("itemprop")
		val := propValue(s)
		if val == "" {
			return
		}
		for _, p := range strings.Fields(prop) {
			out[p] = append(out[p], val)
		}
	})
	return out
}

func propValue(s *goquery.Selection) string {
	for _, attr := range []string{"content", "datetime", "src", "href"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return collapse(s.Text())
}

// First returns the first value for prop.
func (m Microdata) First(prop string) string {
	if vs := m[prop]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Count returns the number of values for any of props.
func (m Microdata) Count(props ...string) int {
	n := 0
	for _, p := range props {
		n += len(m[p])
	}
	return n
}

// Text joins every value, one per line, in a stable property order.
func (m Microdata) Text() string {
	var parts []string
	for _, p := range []string{"name", "description", "recipeIngredient", "ingredients",
		"recipeInstructions", "text", "keywords", "recipeCategory"} {
		parts = append(parts, m[p]...)
	}
	return strings.Join(parts, "\n")
}

// Page is the parsed view of a plain HTML blob.
type Page struct {
	Text      string
	ListItems int
	Images    []string
}

// ParsePage extracts visible text, the number of list items and image
// sources. Script, style and noscript content is ignored.
func ParsePage(raw string) Page {
	doc, ok := parse(raw)
	if !ok {
		return Page{}
	}
	doc.Find("script, style, noscript, template").Remove()

	var imgs []string
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"src", "data-src"} {
			if v, ok := s.Attr(attr); ok && v != "" {
				imgs = append(imgs, v)
				return
			}
		}
	})
	doc.Find(`meta[property="og:image"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok && v != "" {
			imgs = append(imgs, v)
		}
	})

	return Page{
		Text:      collapse(doc.Find("body").Text()),
		ListItems: doc.Find("li").Length(),
		Images:    imgs,
	}
}

func parse(raw string) (*goquery.Document, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, false
	}
	return doc, true
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
