package extractor

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nippo-signage/go/internal/models"
	"github.com/nippo-signage/go/internal/testutil"
)

func TestExtractDropsHeaderAndBlankRows(t *testing.T) {
	data := testutil.BuildPDF(testutil.TablePage(testutil.ScheduleRows(), testutil.RuleCells))

	res, err := Extract(data, DefaultOptions)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if res.Status != models.StatusOK {
		t.Fatalf("expected status ok, got %s", res.Status)
	}
	if res.Pages != 1 {
		t.Errorf("expected 1 page, got %d", res.Pages)
	}

	want := []string{"ED-101", "Break", "MA-202", "XYZ-001", "ED-103", "MA-204"}
	if len(res.Rows) != len(want) {
		t.Fatalf("expected %d rows, got %d: %q", len(want), len(res.Rows), res.Rows)
	}
	for i, room := range want {
		if got := res.Rows[i][0]; got != room {
			t.Errorf("row %d: room %q, want %q", i, got, room)
		}
	}
	if !reflect.DeepEqual(res.Rows[1], models.Row{"Break", "", "", "", ""}) {
		t.Errorf("short row not padded with empty cells: %q", res.Rows[1])
	}
}

func TestExtractedCellsAreNormalized(t *testing.T) {
	data := testutil.BuildPDF(testutil.TablePage(testutil.ScheduleRows(), testutil.RuleLines))

	res, err := Extract(data, DefaultOptions)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	for i, row := range res.Rows {
		if row.IsBlank() {
			t.Errorf("row %d is blank", i)
		}
		for j, c := range row {
			if c != cleanupCellText(c, DefaultCleanup) {
				t.Errorf("cell [%d][%d] %q is not normalized", i, j, c)
			}
		}
	}
}

func TestExtractUnreadable(t *testing.T) {
	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"zero bytes", nil},
		{"not a pdf", []byte("PK\x03\x04 this is a zip archive")},
		{"truncated", testutil.BuildPDF(testutil.TablePage(testutil.ScheduleRows(), testutil.RuleCells))[:40]},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Extract(tc.data, DefaultOptions)
			if !errors.Is(err, ErrDocumentUnreadable) {
				t.Fatalf("expected ErrDocumentUnreadable, got %v", err)
			}
			if res.Status != models.StatusUnreadable || len(res.Rows) != 0 {
				t.Errorf("expected empty unreadable result, got %+v", res)
			}
		})
	}
}

func TestExtractNoTable(t *testing.T) {
	for _, tc := range []struct {
		name string
		page testutil.Page
	}{
		{"text only", testutil.TablePage(testutil.ScheduleRows(), testutil.RuleNone)},
		{"empty page", testutil.Page{Width: testutil.A4Width, Height: testutil.A4Height}},
		{"header only", testutil.TablePage(testutil.ScheduleRows()[:1], testutil.RuleCells)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Extract(testutil.BuildPDF(tc.page), DefaultOptions)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if res.Status != models.StatusNoTable {
				t.Errorf("expected no_table, got %s", res.Status)
			}
			if len(res.Rows) != 0 {
				t.Errorf("expected no rows, got %d", len(res.Rows))
			}
		})
	}
}

func TestExtractTextFallback(t *testing.T) {
	data := testutil.BuildPDF(testutil.TablePage(testutil.ScheduleRows(), testutil.RuleNone))

	opts := DefaultOptions
	opts.TextFallback = true
	res, err := Extract(data, opts)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if res.Status != models.StatusOK || len(res.Rows) != 6 {
		t.Fatalf("expected 6 rows with status ok, got %d (%s)", len(res.Rows), res.Status)
	}
}

func TestExtractReadsOnlyFirstPage(t *testing.T) {
	first := testutil.TablePage(testutil.ScheduleRows(), testutil.RuleCells)
	second := testutil.TablePage([][]string{{"Room", "Program"}, {"ED-999", "Late Show"}}, testutil.RuleCells)

	res, err := Extract(testutil.BuildPDF(first, second), DefaultOptions)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if res.Pages != 2 {
		t.Errorf("expected 2 pages, got %d", res.Pages)
	}
	for _, row := range res.Rows {
		if row[0] == "ED-999" {
			t.Error("row from second page leaked into result")
		}
	}
}

func TestCleanupCellText(t *testing.T) {
	for _, tc := range []struct {
		in, want string
	}{
		{"", ""},
		{"  Morning\nNews ", "Morning News"},
		{"ＥＤ－１０１", "ED-101"},
		{"bad\xffbyte", "badbyte"},
	} {
		if got := cleanupCellText(tc.in, DefaultCleanup); got != tc.want {
			t.Errorf("cleanupCellText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractRulingAndTransforms(t *testing.T) {
	want := []string{"ED-101", "Break", "MA-202", "XYZ-001", "ED-103", "MA-204"}
	withTransform := func(ruling testutil.Ruling, tr testutil.Transform) testutil.Page {
		p := testutil.TablePage(testutil.ScheduleRows(), ruling)
		p.Transform = tr
		return p
	}
	for _, tc := range []struct {
		name string
		page testutil.Page
	}{
		{"stroked line segments", testutil.TablePage(testutil.ScheduleRows(), testutil.RuleSegments)},
		{"cells under scaling cm", withTransform(testutil.RuleCells, testutil.TransformScale)},
		{"segments under scaling cm", withTransform(testutil.RuleSegments, testutil.TransformScale)},
		{"cells under top-left cm", withTransform(testutil.RuleCells, testutil.TransformFlip)},
		{"hairlines under top-left cm", withTransform(testutil.RuleLines, testutil.TransformFlip)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Extract(testutil.BuildPDF(tc.page), DefaultOptions)
			if err != nil {
				t.Fatalf("extract failed: %v", err)
			}
			if res.Status != models.StatusOK {
				t.Fatalf("expected status ok, got %s", res.Status)
			}
			if len(res.Rows) != len(want) {
				t.Fatalf("expected %d rows, got %d: %q", len(want), len(res.Rows), res.Rows)
			}
			for i, room := range want {
				if got := res.Rows[i][0]; got != room {
					t.Errorf("row %d: room %q, want %q", i, got, room)
				}
			}
			if got := res.Rows[0][1]; got != "Morning News" {
				t.Errorf("title %q, want %q", got, "Morning News")
			}
		})
	}
}

func TestExtractFullWidthText(t *testing.T) {
	data := testutil.BuildPDF(testutil.TablePage(testutil.JapaneseRows(), testutil.RuleCells))

	res, err := Extract(data, DefaultOptions)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	want := []models.Row{
		{"ED-101", "朝のニュース", "09:00", "30", "佐藤"},
		{"休憩", "", "", "", ""},
		{"MA-202", "夕方特集", "18:00", "60", "鈴木"},
		{"倉庫", "機材保管", "", "", "田中"},
	}
	if !reflect.DeepEqual(res.Rows, models.RawTable(want)) {
		t.Errorf("rows = %q, want %q", res.Rows, want)
	}
}
