package model

// Token is one token of a tagged document with its linguistic attributes.
// Offset is the byte offset of the token in the document text, or -1 when
// the tokenizer normalized the token away from its source spelling.
type Token struct {
	Text    string `json:"text"`
	Lemma   string `json:"lemma,omitempty"` // empty when the lemma lookup failed
	POS     string `json:"pos"`
	Offset  int    `json:"offset"`
	IsStop  bool   `json:"is_stop,omitempty"`
	IsPunct bool   `json:"is_punct,omitempty"`
}

// EntitySpan is one recognized entity. Invariant: Text == document
// text[Start:End].
type EntitySpan struct {
	Label string `json:"label"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Sentence marks a sentence boundary as byte offsets into the document text.
type Sentence struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// TaggedDocument is an article body annotated with entity spans, tokens and
// sentence boundaries. One per article; serialized independently as
// <id>.json.
type TaggedDocument struct {
	ID        string       `json:"id"`
	Text      string       `json:"text"`
	Tokens    []Token      `json:"tokens"`
	Entities  []EntitySpan `json:"entities"`
	Sentences []Sentence   `json:"sentences"`
}
