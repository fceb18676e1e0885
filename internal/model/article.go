package model

import "time"

// Article is one extracted news record. It is created from a single docx
// file, mutated in place during phase-II cleaning (deduplication, date
// parsing, standardization) and immutable thereafter.
//
// The field set is fixed: a standardized batch always carries every field,
// with zero values / nil dates where the source had no data.
type Article struct {
	ID              string            `json:"id"`
	Source          string            `json:"source"`
	Title           string            `json:"title"`
	Body            []string          `json:"body"`          // raw paragraphs in document order
	FilteredBody    []string          `json:"body_filtered"` // body minus boilerplate paragraphs
	BodyText        string            `json:"body_str"`      // filtered body joined with newlines
	PublicationDate *time.Time        `json:"publication_date"`
	LoadDate        *time.Time        `json:"load_date"`
	Section         string            `json:"section"`
	Page            int               `json:"page"`
	Length          int               `json:"length"`
	Byline          string            `json:"byline"`
	Copyright       string            `json:"copyright"`
	Folder          string            `json:"folder"`
	Filename        string            `json:"filename"`
	URL             string            `json:"url"`
	Meta            map[string]string `json:"meta,omitempty"` // raw key:value lines from the document
}
