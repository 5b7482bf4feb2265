package models

import (
	"fmt"
	"strings"
)

// Row is one table row in reading order. Cells are never nil-like: a missing
// or blank cell is the empty string.
type Row []string

// IsBlank reports whether every cell is empty after trimming.
func (r Row) IsBlank() bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// RawTable is the first table of a document, header removed.
type RawTable []Row

type Status string

const (
	StatusOK                 Status = "ok"
	StatusNoTable            Status = "no_table"
	StatusNoRowsPassedFilter Status = "no_rows_passed_filter"
	StatusUnreadable         Status = "unreadable"
)

// HasRows is true only for StatusOK; every other status means zero rows downstream.
func (s Status) HasRows() bool { return s == StatusOK }

// Message is the operator-facing text for a status.
func (s Status) Message() string {
	switch s {
	case StatusOK:
		return "table loaded"
	case StatusNoTable:
		return "no table was found on the first page of the document"
	case StatusNoRowsPassedFilter:
		return "the table has no rows matching the configured room markers"
	case StatusUnreadable:
		return "the file could not be opened as a PDF; upload a different file"
	}
	return string(s)
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s), nil }

func (s *Status) UnmarshalText(b []byte) error {
	switch v := Status(b); v {
	case StatusOK, StatusNoTable, StatusNoRowsPassedFilter, StatusUnreadable:
		*s = v
		return nil
	}
	return fmt.Errorf("unknown status %q", string(b))
}

// Record is one schedule line item. Fields are already defaulted.
type Record struct {
	Room  string `json:"room" yaml:"room"`
	Title string `json:"title" yaml:"title"`
	Staff string `json:"staff" yaml:"staff"`
}

// ListedRow is a filtered row as offered to the operator for selection.
type ListedRow struct {
	Index  int    `json:"index" yaml:"index"`
	Label  string `json:"label" yaml:"label"`
	Record Record `json:"record" yaml:"record"`
}

type Listing struct {
	Status  Status      `json:"status" yaml:"status"`
	Message string      `json:"message" yaml:"message"`
	Rows    []ListedRow `json:"rows" yaml:"rows"`
}
