// Package schedule turns extracted table rows into schedule records: it keeps
// the rows that are real work items, maps them onto named fields and resolves
// an operator's selection.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nippo-signage/go/internal/extractor"
	"github.com/nippo-signage/go/internal/logger"
	"github.com/nippo-signage/go/internal/models"
	"github.com/nippo-signage/go/internal/text"
)

var Logger = logger.GetLogger("schedule")

var (
	ErrEmptySelection      = errors.New("select at least one row")
	ErrSelectionOutOfRange = errors.New("selection index out of range")
)

// Column positions in the daily report table.
const (
	ColRoom  = 0
	ColTitle = 1
	ColStaff = 4
)

// Cell returns row[index] trimmed, or def when the column is missing or blank.
func Cell(row models.Row, index int, def string) string {
	if index < 0 || index >= len(row) {
		return def
	}
	if v := strings.TrimSpace(row[index]); v != "" {
		return v
	}
	return def
}

type FilterConfig struct {
	// Markers are substrings of the room cell that identify a work item.
	Markers []string
	// MinTitleLength is exclusive: titles need more runes than this.
	MinTitleLength int
}

var DefaultFilter = FilterConfig{Markers: []string{"ED-", "MA-"}, MinTitleLength: 1}

func (c FilterConfig) normalized() FilterConfig {
	markers := make([]string, 0, len(c.Markers))
	for _, m := range c.Markers {
		if m = text.NormalizeCell(m, true); m != "" {
			markers = append(markers, m)
		}
	}
	return FilterConfig{Markers: markers, MinTitleLength: c.MinTitleLength}
}

// Accept reports whether row is a work item: the room cell carries a marker
// and the title is longer than MinTitleLength.
func (c FilterConfig) Accept(row models.Row) bool {
	c = c.normalized()
	return c.accept(row)
}

func (c FilterConfig) accept(row models.Row) bool {
	room := Cell(row, ColRoom, "")
	if !text.ContainsAny(room, c.Markers) {
		Logger.Debug("row dropped: no marker", "room", room)
		return false
	}
	if n := text.RuneLen(Cell(row, ColTitle, "")); n <= c.MinTitleLength {
		Logger.Debug("row dropped: title too short", "room", room, "length", n)
		return false
	}
	return true
}

// Filter keeps the accepted rows in their original order.
func Filter(rows models.RawTable, cfg FilterConfig) []models.Row {
	cfg = cfg.normalized()
	kept := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		if cfg.accept(row) {
			kept = append(kept, row)
		}
	}
	Logger.Debug("rows filtered", "in", len(rows), "kept", len(kept))
	return kept
}

// Placeholders stand in for missing room, title and staff cells.
type Placeholders struct {
	Room, Title, Staff string
}

var (
	// ListingPlaceholders are used in the selection list shown to the operator.
	ListingPlaceholders = Placeholders{Room: "不明", Title: "なし", Staff: "未定"}
	// RenderPlaceholders are used on the rendered signage.
	RenderPlaceholders = Placeholders{Room: "?", Title: "---", Staff: "---"}
)

func ToRecord(row models.Row, ph Placeholders) models.Record {
	return models.Record{
		Room:  Cell(row, ColRoom, ph.Room),
		Title: Cell(row, ColTitle, ph.Title),
		Staff: Cell(row, ColStaff, ph.Staff),
	}
}

// Label is the selection list caption for a row, "【room】 title".
func Label(row models.Row, ph Placeholders) string {
	return fmt.Sprintf("【%s】 %s", Cell(row, ColRoom, ph.Room), Cell(row, ColTitle, ph.Title))
}

// Select maps the chosen filtered rows to records in the order given.
// Repeated indices keep their first position only.
func Select(rows []models.Row, indices []int, ph Placeholders) ([]models.Record, error) {
	if len(indices) == 0 {
		return nil, ErrEmptySelection
	}
	seen := make(map[int]bool, len(indices))
	records := make([]models.Record, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(rows) {
			return nil, fmt.Errorf("%w: %d (have %d rows)", ErrSelectionOutOfRange, i, len(rows))
		}
		if seen[i] {
			continue
		}
		seen[i] = true
		records = append(records, ToRecord(rows[i], ph))
	}
	return records, nil
}

// SelectAll selects every row in order.
func SelectAll(rows []models.Row, ph Placeholders) ([]models.Record, error) {
	indices := make([]int, len(rows))
	for i := range indices {
		indices[i] = i
	}
	return Select(rows, indices, ph)
}

// ParseSelection reads a comma separated index list such as "0, 2". Blank
// input yields an empty selection.
func ParseSelection(s string) ([]int, error) {
	var indices []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid row index %q: %w", part, err)
		}
		indices = append(indices, i)
	}
	return indices, nil
}

// Document is a loaded report: the filtered rows plus how loading went.
type Document struct {
	Status models.Status
	Pages  int
	Rows   []models.Row
	// Extracted counts rows before filtering.
	Extracted int
}

// Load extracts the first table and filters it. Only an unreadable document
// is an error; every other outcome is carried by Status.
func Load(data []byte, opts extractor.Options, cfg FilterConfig) (Document, error) {
	res, err := extractor.Extract(data, opts)
	if err != nil {
		return Document{Status: models.StatusUnreadable}, err
	}
	doc := Document{Status: res.Status, Pages: res.Pages, Extracted: len(res.Rows)}
	if res.Status != models.StatusOK {
		return doc, nil
	}
	doc.Rows = Filter(res.Rows, cfg)
	if len(doc.Rows) == 0 {
		doc.Status = models.StatusNoRowsPassedFilter
	}
	Logger.Info("report loaded", "status", doc.Status, "extracted", doc.Extracted, "kept", len(doc.Rows))
	return doc, nil
}

// Listing builds the operator-facing selection list.
func (d Document) Listing(ph Placeholders) models.Listing {
	l := models.Listing{Status: d.Status, Rows: make([]models.ListedRow, len(d.Rows))}
	if d.Status != models.StatusOK {
		l.Message = d.Status.Message()
	}
	for i, row := range d.Rows {
		l.Rows[i] = models.ListedRow{Index: i, Label: Label(row, ph), Record: ToRecord(row, ph)}
	}
	return l
}
