// Package docx reads the table and paragraph structure of .docx files.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jonathan/cv-matcher/internal/types"
)

// DocumentPart is the package path of the main document body.
const DocumentPart = "word/document.xml"

// DecodeBytes decodes an in-memory .docx file.
func DecodeBytes(data []byte) (*types.Document, error) {
	return Decode(bytes.NewReader(data), int64(len(data)))
}

// Decode opens the zip package and reads body-level paragraphs and tables from
// word/document.xml. Merged cells are repeated once per grid column they cover,
// the same way python-docx and Word's own table model expose them.
func Decode(r io.ReaderAt, size int64) (*types.Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == DocumentPart {
			part = f
			break
		}
	}
	if part == nil {
		return nil, fmt.Errorf("%w: %s not found", ErrNotDocx, DocumentPart)
	}

	rc, err := part.Open()
	if err != nil {
		return nil, &DecodeError{Part: DocumentPart, Cause: err}
	}
	defer func() { _ = rc.Close() }()

	doc, err := parseBody(rc)
	if err != nil {
		return nil, &DecodeError{Part: DocumentPart, Cause: err}
	}
	return doc, nil
}

// cell is a table cell before merge expansion
type cell struct {
	text   string
	span   int
	merged bool // vMerge continuation of the cell above
}

// bodyParser walks the WordprocessingML token stream
type bodyParser struct {
	doc *types.Document

	stack      []string // local names of open elements
	tableDepth int
	textboxes  int // open w:txbxContent elements, whose text is not part of the paragraph

	table [][]string // current top-level table
	row   []cell     // current row
	prev  []string   // previous row after expansion, for vMerge continuation

	cellParas []string
	cur       *cell
	para      *strings.Builder
	paraLevel int // stack depth of the w:p that owns para
	inText    bool
}

func parseBody(r io.Reader) (*types.Document, error) {
	p := &bodyParser{doc: &types.Document{Paragraphs: []string{}, Tables: [][][]string{}}}
	dec := xml.NewDecoder(r)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			p.start(t)
			p.stack = append(p.stack, t.Name.Local)
		case xml.EndElement:
			if len(p.stack) > 0 {
				p.stack = p.stack[:len(p.stack)-1]
			}
			p.end(t)
		case xml.CharData:
			if p.inText && p.para != nil && p.textboxes == 0 {
				p.para.Write(t)
			}
		}
	}

	return p.doc, nil
}

func (p *bodyParser) parent() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

func (p *bodyParser) start(el xml.StartElement) {
	if el.Name.Local == "txbxContent" {
		p.textboxes++
		return
	}
	if p.textboxes > 0 {
		return
	}
	if el.Name.Local == "tbl" {
		p.tableDepth++
		if p.tableDepth == 1 {
			p.table = [][]string{}
			p.prev = nil
		}
		return
	}
	if p.tableDepth > 1 {
		return
	}

	switch el.Name.Local {
	case "tr":
		if p.tableDepth == 1 {
			p.row = []cell{}
		}
	case "tc":
		if p.tableDepth == 1 {
			p.cur = &cell{span: 1}
			p.cellParas = []string{}
		}
	case "gridSpan":
		if p.cur != nil {
			if n, err := strconv.Atoi(attr(el, "val")); err == nil && n > 1 {
				p.cur.span = n
			}
		}
	case "vMerge":
		if p.cur != nil && attr(el, "val") != "restart" {
			p.cur.merged = true
		}
	case "p":
		if (p.tableDepth == 0 && p.parent() == "body") || (p.tableDepth == 1 && p.parent() == "tc") {
			p.para = &strings.Builder{}
			p.paraLevel = len(p.stack)
		}
	case "t":
		p.inText = true
	case "tab":
		if p.para != nil && p.parent() == "r" {
			p.para.WriteByte('\t')
		}
	case "br", "cr":
		if p.para != nil {
			p.para.WriteByte('\n')
		}
	}
}

func (p *bodyParser) end(el xml.EndElement) {
	if el.Name.Local == "txbxContent" {
		p.textboxes--
		return
	}
	if p.textboxes > 0 {
		return
	}
	if el.Name.Local == "tbl" {
		if p.tableDepth == 1 {
			p.doc.Tables = append(p.doc.Tables, p.table)
			p.table = nil
		}
		p.tableDepth--
		return
	}
	if p.tableDepth > 1 {
		return
	}

	switch el.Name.Local {
	case "t":
		p.inText = false
	case "p":
		if p.para == nil || len(p.stack) != p.paraLevel {
			return
		}
		text := normalize(p.para.String())
		p.para = nil
		if p.cur != nil {
			p.cellParas = append(p.cellParas, text)
		} else if p.tableDepth == 0 {
			p.doc.Paragraphs = append(p.doc.Paragraphs, text)
		}
	case "tc":
		if p.cur != nil {
			p.cur.text = strings.Join(p.cellParas, "\n")
			p.row = append(p.row, *p.cur)
			p.cur = nil
		}
	case "tr":
		if p.tableDepth == 1 {
			expanded := p.expandRow()
			p.table = append(p.table, expanded)
			p.prev = expanded
			p.row = nil
		}
	}
}

// expandRow repeats spanned cells and fills vertically merged cells from the row above
func (p *bodyParser) expandRow() []string {
	out := make([]string, 0, len(p.row))
	for _, c := range p.row {
		col := len(out)
		text := c.text
		if c.merged && col < len(p.prev) {
			text = p.prev[col]
		}
		for i := 0; i < c.span; i++ {
			out = append(out, text)
		}
	}
	return out
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func normalize(s string) string {
	return norm.NFC.String(s)
}
