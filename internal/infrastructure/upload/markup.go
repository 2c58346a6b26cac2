package upload

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// LabeledValue returns the value of the form control labeled with title, or "".
func LabeledValue(doc *goquery.Document, title string) string {
	label := findLabel(doc, title)
	if label == nil {
		return ""
	}

	control := resolveControl(doc, label)
	if control == nil {
		return ""
	}

	value, _ := attr(control, "value")
	return value
}

// findLabel returns the first <label> whose text contains title.
func findLabel(doc *goquery.Document, title string) *html.Node {
	match := doc.Find("label").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), title)
	}).First()
	if match.Length() == 0 {
		return nil
	}
	return match.Get(0)
}

// resolveControl follows for/id when the label names its control, and falls
// back to the nearest following input otherwise.
func resolveControl(doc *goquery.Document, label *html.Node) *html.Node {
	if id, ok := attr(label, "for"); ok {
		return controlByID(doc, id)
	}
	return followingInput(label)
}

func controlByID(doc *goquery.Document, id string) *html.Node {
	var found *html.Node
	doc.Find("input").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr("id"); ok && v == id {
			found = s.Get(0)
			return false
		}
		return true
	})
	return found
}

// followingInput walks the tree in document order starting after n.
func followingInput(n *html.Node) *html.Node {
	for cur := nextInDocument(n); cur != nil; cur = nextInDocument(cur) {
		if cur.Type == html.ElementNode && cur.DataAtom == atom.Input {
			return cur
		}
	}
	return nil
}

func nextInDocument(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for ; n != nil; n = n.Parent {
		if n.NextSibling != nil {
			return n.NextSibling
		}
	}
	return nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
