package models

import (
	"strings"
	"time"
)

// PageContent is the readable content of one fetched page. It is immutable:
// the constructor and the accessors copy the sentence slice.
type PageContent struct {
	title     string
	sentences []string
}

func NewPageContent(title string, sentences []string) PageContent {
	return PageContent{
		title:     title,
		sentences: append([]string(nil), sentences...),
	}
}

func (p PageContent) Title() string {
	return p.title
}

// Sentences returns the sentences in document order.
func (p PageContent) Sentences() []string {
	return append([]string(nil), p.sentences...)
}

// Text joins the sentences with single spaces.
func (p PageContent) Text() string {
	return strings.Join(p.sentences, " ")
}

type Summary struct {
	ID        string
	URL       string
	Title     string
	Sentences []string
	FullText  string
	CreatedAt time.Time
	Metadata  map[string]interface{}
}
