// Package archive holds the collected result of a run and its JSON form.
package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// ContentItem is one titled text inside a collection.
type ContentItem struct {
	ItemTitle string `json:"item_title"`
	Text      string `json:"text"`
}

// Collection is one book of the author with its extracted items.
type Collection struct {
	Title string        `json:"book_title"`
	URL   string        `json:"book_url"`
	Items []ContentItem `json:"content"`
}

// AuthorArchive is the document written at the end of a run.
type AuthorArchive struct {
	Author      string       `json:"author"`
	CollectedAt time.Time    `json:"collected_at"`
	Books       []Collection `json:"books"`
}

// New starts an empty archive stamped with at, to the second.
func New(author string, at time.Time) *AuthorArchive {
	return &AuthorArchive{
		Author:      author,
		CollectedAt: at.Truncate(time.Second),
		Books:       []Collection{},
	}
}

// Add appends a collection. A nil item list is stored as empty so the
// JSON carries [] rather than null.
func (a *AuthorArchive) Add(c Collection) {
	if c.Items == nil {
		c.Items = []ContentItem{}
	}
	a.Books = append(a.Books, c)
}

// ItemCount returns the number of items across all books.
func (a *AuthorArchive) ItemCount() int {
	n := 0
	for _, b := range a.Books {
		n += len(b.Items)
	}
	return n
}

// Encode writes indented JSON without HTML escaping.
func (a *AuthorArchive) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}

// Save writes the archive to path with mode 0644.
func (a *AuthorArchive) Save(path string) error {
	var buf bytes.Buffer
	if err := a.Encode(&buf); err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Load reads an archive written by Save.
func Load(path string) (*AuthorArchive, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a AuthorArchive
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if a.Books == nil {
		a.Books = []Collection{}
	}
	for i := range a.Books {
		if a.Books[i].Items == nil {
			a.Books[i].Items = []ContentItem{}
		}
	}
	return &a, nil
}
