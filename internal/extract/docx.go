// Package extract parses news-archive docx exports into article records
// and runs the batch-level cleanup: deduplication, boilerplate paragraph
// removal, field derivation and metadata filtering.
package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/lcvriend/toponym-extraction/internal/model"
)

const wordprocessingURI = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// ParseDocx reads one docx export and returns the raw article. Derived
// fields (section, page, length, dates) stay in Meta until DeriveFields.
func ParseDocx(path, baseURL string) (model.Article, error) {
	var art model.Article

	archive, err := zip.OpenReader(path)
	if err != nil {
		return art, fmt.Errorf("open %s: %w", path, err)
	}
	defer archive.Close()

	paragraphs, err := readParagraphs(archive, "word/document.xml")
	if err != nil {
		return art, fmt.Errorf("parse %s: %w", path, err)
	}
	url, err := readDocumentURL(archive, "word/_rels/document.xml.rels", baseURL)
	if err != nil {
		return art, fmt.Errorf("parse %s: %w", path, err)
	}

	art = assemble(paragraphs)
	art.Folder = filepath.Dir(path)
	art.Filename = filepath.Base(path)
	art.URL = url
	return art, nil
}

// assemble walks the paragraph list. The export format puts title, source,
// publication date and copyright in the first four paragraphs, the article
// text between the Body and Classification markers, and metadata as
// key-value lines outside the body.
func assemble(paragraphs []string) model.Article {
	art := model.Article{Meta: make(map[string]string)}

	inBody := false
	for i, p := range paragraphs {
		switch i {
		case 0:
			art.Title = p
			continue
		case 1:
			art.Source = p
			continue
		case 2:
			art.Meta["publication_date"] = p
			continue
		case 3:
			art.Copyright = p
			continue
		}

		if p == "Classification" {
			inBody = false
			continue
		}
		if inBody {
			art.Body = append(art.Body, p)
			continue
		}
		if key, val, ok := strings.Cut(p, ":"); ok {
			art.Meta[metaKey(key)] = strings.TrimSpace(val)
			continue
		}
		if p == "Body" {
			inBody = true
		}
	}
	return art
}

// metaKey normalizes a metadata label the way the rest of the pipeline
// expects it: lowercase with dashes and spaces as underscores.
func metaKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	return key
}

// readParagraphs streams the document xml and joins the text runs of each
// w:p element into one NFKD-normalized paragraph. Empty paragraphs are
// dropped.
func readParagraphs(archive *zip.ReadCloser, name string) ([]string, error) {
	r, err := openEntry(archive, name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var (
		paragraphs []string
		text       strings.Builder
		inText     bool
	)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Space == wordprocessingURI && el.Name.Local == "t" {
				inText = true
			}
		case xml.CharData:
			if inText {
				text.Write(el)
			}
		case xml.EndElement:
			if el.Name.Space != wordprocessingURI {
				continue
			}
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				p := norm.NFKD.String(strings.TrimSpace(text.String()))
				if p != "" {
					paragraphs = append(paragraphs, p)
				}
				text.Reset()
			}
		}
	}
	return paragraphs, nil
}

// relationships is the shape of the docx rels file.
type relationships struct {
	Relationships []struct {
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// readDocumentURL finds the archive link among the document relationships.
// Exports without one return the empty string.
func readDocumentURL(archive *zip.ReadCloser, name, baseURL string) (string, error) {
	r, err := openEntry(archive, name)
	if err != nil {
		return "", err
	}
	defer r.Close()

	var rels relationships
	if err := xml.NewDecoder(r).Decode(&rels); err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	for _, rel := range rels.Relationships {
		if baseURL != "" && strings.Contains(rel.Target, baseURL) {
			return rel.Target, nil
		}
	}
	return "", nil
}

func openEntry(archive *zip.ReadCloser, name string) (io.ReadCloser, error) {
	for _, f := range archive.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("missing archive entry %s", name)
}
