// Package types provides type definitions for structured data used throughout the cv-matcher system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Document is the table/paragraph view of a résumé file.
// Tables are ordered table -> row -> cell text; paragraphs are body-level only.
type Document struct {
	Paragraphs []string     `json:"paragraphs"`
	Tables     [][][]string `json:"tables"`
}

// Cell returns the text at the given coordinates and whether it exists.
func (d *Document) Cell(table, row, cell int) (string, bool) {
	if d == nil || table < 0 || table >= len(d.Tables) {
		return "", false
	}
	rows := d.Tables[table]
	if row < 0 || row >= len(rows) {
		return "", false
	}
	cells := rows[row]
	if cell < 0 || cell >= len(cells) {
		return "", false
	}
	return cells[cell], true
}
