package triage

import "encoding/json"

// Node is one element of a rich block document (doc, heading, paragraph, text).
type Node struct {
	Type    string         `json:"type"`
	Version int            `json:"version,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

func Doc(content ...Node) Node {
	return Node{Type: "doc", Version: 1, Content: content}
}

func Heading(level int, text string) Node {
	return Node{
		Type:    "heading",
		Attrs:   map[string]any{"level": level},
		Content: []Node{Text(text)},
	}
}

func Paragraph(content ...Node) Node {
	return Node{Type: "paragraph", Content: content}
}

func Text(text string, marks ...Mark) Node {
	return Node{Type: "text", Text: text, Marks: marks}
}

func Strong() Mark { return Mark{Type: "strong"} }

func Em() Mark { return Mark{Type: "em"} }

func Link(href string) Mark {
	return Mark{Type: "link", Attrs: map[string]any{"href": href}}
}

// PlainDocument wraps text in a single-paragraph document.
func PlainDocument(text string) Node {
	if text == "" {
		return Doc(Paragraph())
	}
	return Doc(Paragraph(Text(text)))
}

// String encodes the node as JSON, the form content platforms expect when
// the document is sent as a string-valued body.
func (n Node) String() (string, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
