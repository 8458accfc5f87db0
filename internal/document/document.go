package document

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// PageSeparator joins page texts in Document.Text.
const PageSeparator = "\n\n"

// Document is the extracted text of a source file.
type Document struct {
	Title       string // Document title (filename without extension)
	Filename    string
	ContentHash string // SHA-256 of the extracted text
	Method      string // Extraction method that produced the text
	Pages       []Page
	Text        string // Page texts joined by PageSeparator
}

// Page is the text of one source page and its byte span in Document.Text.
type Page struct {
	Number int // 1-based page number in the source file
	Text   string
	Start  int
	End    int
}

// Chunk is a contiguous span of Document.Text.
type Chunk struct {
	Index     int    // Sequence number within the document
	Start     int    // Byte offset into Document.Text (inclusive)
	End       int    // Byte offset into Document.Text (exclusive)
	Size      int    // Length in runes
	Overlap   int    // Bytes at the start of Text repeated from the previous chunk
	Text      string // Document.Text[Start:End]
	PageStart int
	PageEnd   int
}

// New assembles a Document from page texts. Empty pages are dropped but keep
// their page numbers on the remaining pages.
func New(title, filename, method string, pageTexts []string) *Document {
	doc := &Document{
		Title:    title,
		Filename: filename,
		Method:   method,
	}

	var sb strings.Builder
	for i, text := range pageTexts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(PageSeparator)
		}
		start := sb.Len()
		sb.WriteString(text)
		doc.Pages = append(doc.Pages, Page{
			Number: i + 1,
			Text:   text,
			Start:  start,
			End:    sb.Len(),
		})
	}
	doc.Text = sb.String()
	doc.ContentHash = HashText(doc.Text)
	return doc
}

// PageAt returns the page number that contains byte offset off. Offsets that
// fall on a separator belong to the preceding page.
func (d *Document) PageAt(off int) int {
	if len(d.Pages) == 0 {
		return 0
	}
	page := d.Pages[0].Number
	for _, p := range d.Pages {
		if off < p.Start {
			break
		}
		page = p.Number
	}
	return page
}

// PageCount returns the number of non-empty pages.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// HashText returns the hex SHA-256 of text.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h[:])
}
