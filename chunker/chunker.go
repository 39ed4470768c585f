// Package chunker splits raw document text into overlapping fragments
// bounded by a maximum length.
//
// Splitting prefers the largest separator boundary available inside the
// length window: paragraph breaks first, then line breaks, then word
// breaks, and finally a hard character cut. Adjacent fragments of the
// same document share the trailing Overlap runes of their predecessor,
// so concatenating fragments with the overlap prefix removed from every
// non-first fragment reconstructs the original text exactly.
package chunker

import (
	"fmt"
	"strconv"
	"strings"
)

// AttrChunk is the fragment-local attribute holding the zero-based
// position of the fragment within its document.
const AttrChunk = "chunk"

// Document is a parsed source document handed to the pipeline by an
// ingestion collaborator. Documents are treated as immutable.
type Document struct {
	// Text is the raw document text.
	Text string

	// Metadata carries source attributes (origin file, page number, ...).
	Metadata map[string]string
}

// Fragment is a contiguous substring of a document's text, inheriting
// the document metadata augmented with fragment-local attributes.
type Fragment struct {
	Text     string
	Metadata map[string]string
}

// Options contains configuration options for the chunker.
type Options struct {
	// MaxLength is the maximum fragment length in runes. Must be > Overlap.
	MaxLength int

	// Overlap is the number of trailing runes each fragment shares with
	// its successor. Must be >= 0.
	Overlap int
}

// DefaultOptions contains the default configuration options for the chunker.
var DefaultOptions = Options{
	MaxLength: 1000,
	Overlap:   200,
}

// ErrInvalidParams indicates an invalid MaxLength/Overlap combination.
type ErrInvalidParams struct {
	MaxLength int
	Overlap   int
}

func (e *ErrInvalidParams) Error() string {
	return fmt.Sprintf("chunker: max length must be greater than overlap and overlap must be >= 0: max_length=%d, overlap=%d", e.MaxLength, e.Overlap)
}

// Chunker splits documents into fragments.
type Chunker struct {
	opts Options
}

// New creates a new chunker.
func New(optFns ...func(o *Options)) (*Chunker, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Overlap < 0 || opts.MaxLength <= opts.Overlap {
		return nil, &ErrInvalidParams{MaxLength: opts.MaxLength, Overlap: opts.Overlap}
	}

	return &Chunker{opts: opts}, nil
}

// Split splits the documents into fragments. Fragments are produced in
// document order and, within a document, in left-to-right order. This
// order determines ordinal assignment downstream.
func (c *Chunker) Split(docs []Document) []Fragment {
	var fragments []Fragment
	for _, doc := range docs {
		fragments = append(fragments, c.splitDocument(doc)...)
	}
	return fragments
}

func (c *Chunker) splitDocument(doc Document) []Fragment {
	if strings.TrimSpace(doc.Text) == "" {
		return nil
	}

	runes := []rune(doc.Text)
	if len(runes) <= c.opts.MaxLength {
		return []Fragment{newFragment(doc, doc.Text, 0)}
	}

	var fragments []Fragment
	start := 0
	for i := 0; ; i++ {
		end := start + c.opts.MaxLength
		if end >= len(runes) {
			fragments = append(fragments, newFragment(doc, string(runes[start:]), i))
			break
		}

		cut := c.cutPoint(runes, start, end)
		fragments = append(fragments, newFragment(doc, string(runes[start:cut]), i))

		// The next fragment re-reads the last Overlap runes.
		start = cut - c.opts.Overlap
	}

	return fragments
}

// separators, in decreasing boundary strength.
var separators = []string{"\n\n", "\n", " "}

// cutPoint picks the end of the fragment starting at start: the largest
// separator boundary within the window, or a hard cut at end when no
// boundary leaves room for forward progress. The separator stays with
// the preceding fragment.
func (c *Chunker) cutPoint(runes []rune, start, end int) int {
	// Any cut at or below this would make the next start <= start.
	minCut := start + c.opts.Overlap + 1

	for _, sep := range separators {
		if p := lastBoundary(runes, minCut, end, []rune(sep)); p >= 0 {
			return p
		}
	}
	return end
}

// lastBoundary returns the largest p in [minCut, end] such that sep ends
// exactly at p, or -1 if there is none.
func lastBoundary(runes []rune, minCut, end int, sep []rune) int {
	for p := end; p >= minCut; p-- {
		if p-len(sep) < 0 {
			break
		}
		if equalRunes(runes[p-len(sep):p], sep) {
			return p
		}
	}
	return -1
}

func equalRunes(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func newFragment(doc Document, text string, chunk int) Fragment {
	meta := make(map[string]string, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	meta[AttrChunk] = strconv.Itoa(chunk)

	return Fragment{Text: text, Metadata: meta}
}
