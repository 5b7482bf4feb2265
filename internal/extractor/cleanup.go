package extractor

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/nippo-signage/go/internal/models"
	"github.com/nippo-signage/go/internal/text"
)

type CleanupOpts struct {
	// Fold applies NFKC so full-width markers compare equal to ASCII ones.
	Fold           bool
	CollapseSpaces bool
	BrokenUnicode  bool
}

var DefaultCleanup = CleanupOpts{
	Fold:           true,
	CollapseSpaces: true,
	BrokenUnicode:  true,
}

// cleanupRows turns detected cell text into models rows and drops rows that
// are blank in every column.
func cleanupRows(cells [][]string, opts CleanupOpts) models.RawTable {
	rows := make(models.RawTable, 0, len(cells))
	for _, raw := range cells {
		row := make(models.Row, len(raw))
		for i, c := range raw {
			row[i] = cleanupCellText(c, opts)
		}
		if row.IsBlank() {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func cleanupCellText(input string, opts CleanupOpts) string {
	if input == "" {
		return ""
	}

	if opts.BrokenUnicode {
		input = strings.ToValidUTF8(input, "")
		input = strings.ReplaceAll(input, "\uFFFD", "")
	}

	if opts.Fold {
		input = norm.NFKC.String(input)
	}

	if opts.CollapseSpaces {
		input = text.NormalizeText(input)
	}

	return strings.TrimSpace(input)
}
