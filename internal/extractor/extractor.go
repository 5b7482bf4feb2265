package extractor

import (
	"fmt"

	"github.com/nippo-signage/go/internal/logger"
	"github.com/nippo-signage/go/internal/models"
	"github.com/nippo-signage/go/internal/pdfpage"
	"github.com/nippo-signage/go/internal/table"
)

var Logger = logger.GetLogger("extractor")

// ErrDocumentUnreadable is returned when the input is not a PDF at all.
// Documents that open but hold no usable table are reported through Status.
var ErrDocumentUnreadable = pdfpage.ErrUnreadable

type Options struct {
	Cleanup      CleanupOpts
	TextFallback bool
}

var DefaultOptions = Options{Cleanup: DefaultCleanup}

type Result struct {
	Rows   models.RawTable
	Status models.Status
	Pages  int
}

// Extract reads the first table on the first page. Cells are cleaned, rows
// that are blank in every column are dropped, then the first remaining row
// is dropped as the header.
func Extract(data []byte, opts Options) (Result, error) {
	doc, err := pdfpage.Open(data)
	if err != nil {
		Logger.Warn("document unreadable", "bytes", len(data), "error", err)
		return Result{Status: models.StatusUnreadable}, fmt.Errorf("extract: %w", err)
	}
	res := Result{Status: models.StatusNoTable, Pages: doc.NumPages()}
	if res.Pages > 1 {
		Logger.Warn("multi-page document, only the first page is read", "pages", res.Pages)
	}
	page, ok := doc.FirstPage()
	if !ok {
		Logger.Info("first page unavailable", "pages", res.Pages)
		return res, nil
	}
	tbl, ok := table.First(page, table.Options{TextFallback: opts.TextFallback})
	if !ok {
		Logger.Info("no table on first page", "glyphs", len(page.Glyphs), "edges", len(page.Edges))
		return res, nil
	}
	rows := cleanupRows(tbl.Strings(), opts.Cleanup)
	if len(rows) <= 1 {
		Logger.Info("table empty after header removal", "rows", len(rows))
		return res, nil
	}
	res.Rows, res.Status = rows[1:], models.StatusOK
	Logger.Debug("table extracted", "rows", len(res.Rows), "header", rows[0])
	return res, nil
}
