package table

import (
	"math"
	"sort"
	"strings"

	"github.com/tidwall/rtree"

	"github.com/nippo-signage/go/internal/geometry"
	"github.com/nippo-signage/go/internal/logger"
	"github.com/nippo-signage/go/internal/pdfpage"
)

var Logger = logger.GetLogger("table")

const (
	snapTolRatio   = 0.005
	joinTolRatio   = 0.005
	minCellRatio   = 0.005
	maxCellWRatio  = 0.98
	maxCellHRatio  = 0.20
	splitGapRatio  = 0.10
	rowYTolRatio   = 0.015
	colXTolRatio   = 0.003
	intersectRatio = 0.0015
	coordScale     = 1000.0
	cellPad        = 2.0
)

type Edge struct {
	X0, Y0, X1, Y1 float64
	Orientation    byte
}

type Cell struct {
	BBox geometry.Rect
	Text string
}

type Row struct {
	BBox  geometry.Rect
	Cells []Cell
}

type Table struct {
	BBox geometry.Rect
	Rows []Row
}

// Strings returns the cell texts row by row. Rows keep their detected width.
func (t Table) Strings() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = make([]string, len(row.Cells))
		for j, c := range row.Cells {
			out[i][j] = c.Text
		}
	}
	return out
}

type Options struct {
	// TextFallback enables column recovery from text alignment when the page
	// has no ruled table.
	TextFallback bool
}

// First returns the top-most table on the page.
func First(page pdfpage.Page, opts Options) (Table, bool) {
	tables := Detect(page, opts)
	if len(tables) == 0 {
		return Table{}, false
	}
	return tables[0], true
}

// Detect finds every table on the page in reading order, top to bottom.
func Detect(page pdfpage.Page, opts Options) []Table {
	tables := detectRuled(page)
	if len(tables) == 0 && opts.TextFallback {
		Logger.Debug("no ruled table, trying text alignment", "page", page.Number)
		tables = detectByAlignment(page)
	}
	sort.SliceStable(tables, func(i, j int) bool {
		if tables[i].BBox.Y0 != tables[j].BBox.Y0 {
			return tables[i].BBox.Y0 < tables[j].BBox.Y0
		}
		return tables[i].BBox.X0 < tables[j].BBox.X0
	})
	Logger.Debug("table detection complete", "page", page.Number, "tables", len(tables))
	return tables
}

func coordToInt(x float64) int { return int(math.Round(x * coordScale)) }

func hasEdge(edges []Edge, x0, y0, x1, y1, eps float64) bool {
	for _, e := range edges {
		if e.Orientation == 'h' {
			if math.Abs(e.Y0-y0) < eps && math.Abs(e.Y1-y1) < eps &&
				e.X0-eps <= math.Min(x0, x1) && e.X1+eps >= math.Max(x0, x1) {
				return true
			}
		} else {
			if math.Abs(e.X0-x0) < eps && math.Abs(e.X1-x1) < eps &&
				e.Y0-eps <= math.Min(y0, y1) && e.Y1+eps >= math.Max(y0, y1) {
				return true
			}
		}
	}
	return false
}

func searchPoints(tr *rtree.RTreeG[geometry.Point], x0, y0, x1, y1 float64) []geometry.Point {
	var pts []geometry.Point
	tr.Search([2]float64{x0, y0}, [2]float64{x1, y1}, func(_, _ [2]float64, p geometry.Point) bool {
		pts = append(pts, p)
		return true
	})
	return pts
}

// findCells takes, for each intersection, the nearest corner to the right and
// below that closes a fully ruled rectangle.
func findCells(points []geometry.Point, tr *rtree.RTreeG[geometry.Point], pageRect geometry.Rect, hEdges, vEdges []Edge, eps float64) []geometry.Rect {
	if len(points) < 4 {
		return nil
	}
	pw, ph := pageRect.Width(), pageRect.Height()
	minSize, maxW, maxH := math.Min(pw, ph)*minCellRatio, pw*maxCellWRatio, ph*maxCellHRatio
	var cells []geometry.Rect
	for _, p1 := range points {
		right := searchPoints(tr, p1.X+minSize, p1.Y-eps, pageRect.X1+eps, p1.Y+eps)
		sort.Slice(right, func(i, j int) bool { return right[i].X < right[j].X })
		below := searchPoints(tr, p1.X-eps, p1.Y+minSize, p1.X+eps, pageRect.Y1+eps)
		sort.Slice(below, func(i, j int) bool { return below[i].Y < below[j].Y })
	search:
		for _, p2 := range right {
			if !hasEdge(hEdges, p1.X, p1.Y, p2.X, p1.Y, eps) {
				break
			}
			for _, p3 := range below {
				if !hasEdge(vEdges, p1.X, p1.Y, p1.X, p3.Y, eps) {
					break
				}
				if len(searchPoints(tr, p2.X-eps, p3.Y-eps, p2.X+eps, p3.Y+eps)) == 0 {
					continue
				}
				if hasEdge(vEdges, p2.X, p1.Y, p2.X, p3.Y, eps) && hasEdge(hEdges, p1.X, p3.Y, p2.X, p3.Y, eps) {
					cell := geometry.Rect{X0: p1.X, Y0: p1.Y, X1: p2.X, Y1: p3.Y}
					if w, h := cell.Width(), cell.Height(); w > minSize && w < maxW && h > minSize && h < maxH {
						cells = append(cells, cell)
					}
					break search
				}
			}
		}
	}
	return cells
}

func deduplicateCells(cells []geometry.Rect) []geometry.Rect {
	if len(cells) <= 1 {
		return cells
	}
	keep := make([]bool, len(cells))
	for i := range keep {
		keep[i] = true
	}
	for i := 0; i < len(cells); i++ {
		if !keep[i] {
			continue
		}
		areaI := cells[i].Area()
		for j := i + 1; j < len(cells); j++ {
			if !keep[j] {
				continue
			}
			areaJ, inter := cells[j].Area(), cells[i].IntersectArea(cells[j])
			if inter == 0 {
				continue
			}
			if contain := inter / math.Min(areaI, areaJ); contain > 0.9 {
				if areaI >= areaJ {
					keep[i] = false
					break
				}
				keep[j] = false
			} else if iou := inter / (areaI + areaJ - inter); iou > 0.6 {
				if areaI >= areaJ {
					keep[j] = false
				} else {
					keep[i] = false
					break
				}
			}
		}
	}
	result := make([]geometry.Rect, 0, len(cells))
	for i, k := range keep {
		if k {
			result = append(result, cells[i])
		}
	}
	return result
}

func groupCellsIntoTables(cells []geometry.Rect, pageRect geometry.Rect) []Table {
	if len(cells) == 0 {
		return nil
	}
	splitGap := pageRect.Height() * splitGapRatio
	var avgH float64
	for _, c := range cells {
		avgH += c.Height()
	}
	avgH /= float64(len(cells))
	sortTol := avgH * 0.2
	sort.Slice(cells, func(i, j int) bool {
		if dy := cells[i].Y0 - cells[j].Y0; math.Abs(dy) > sortTol {
			return dy < 0
		}
		return cells[i].X0 < cells[j].X0
	})
	var tables []Table
	var cur *Table
	prevY1 := math.Inf(-1)
	yTol := pageRect.Height() * rowYTolRatio
	for i := 0; i < len(cells); {
		rowY0 := cells[i].Y0
		j := i + 1
		for j < len(cells) && math.Abs(cells[j].Y0-rowY0) <= yTol {
			j++
		}
		if cur == nil || rowY0-prevY1 > splitGap {
			tables = append(tables, Table{})
			cur = &tables[len(tables)-1]
		}
		rowCells := make([]Cell, j-i)
		for k := range rowCells {
			rowCells[k].BBox = cells[i+k]
		}
		sort.Slice(rowCells, func(a, b int) bool { return rowCells[a].BBox.X0 < rowCells[b].BBox.X0 })
		row := Row{Cells: rowCells, BBox: rowCells[0].BBox}
		for k := 1; k < len(rowCells); k++ {
			row.BBox = row.BBox.Union(rowCells[k].BBox)
		}
		cur.BBox = cur.BBox.Union(row.BBox)
		cur.Rows = append(cur.Rows, row)
		prevY1 = row.BBox.Y1
		i = j
	}
	for ti := range tables {
		normalizeColumns(&tables[ti], pageRect)
	}
	return filterValid(tables)
}

// normalizeColumns snaps every row onto the table's shared column grid so
// that a given position means the same column in every row.
func normalizeColumns(tbl *Table, pageRect geometry.Rect) {
	xCoords := make(map[int]bool)
	for _, row := range tbl.Rows {
		for _, cell := range row.Cells {
			if !cell.BBox.IsEmpty() {
				xCoords[coordToInt(cell.BBox.X0)] = true
				xCoords[coordToInt(cell.BBox.X1)] = true
			}
		}
	}
	sortedX := make([]int, 0, len(xCoords))
	for x := range xCoords {
		sortedX = append(sortedX, x)
	}
	sort.Ints(sortedX)
	var cols [][2]float64
	colTol := int(pageRect.Width() * colXTolRatio * coordScale)
	if colTol < 2000 {
		colTol = 2000
	}
	for i := 0; i < len(sortedX)-1; {
		c0 := sortedX[i]
		j := i + 1
		for j < len(sortedX) && sortedX[j]-c0 < colTol {
			j++
		}
		if j == len(sortedX) {
			break
		}
		cols = append(cols, [2]float64{float64(c0) / coordScale, float64(sortedX[j]) / coordScale})
		i = j
	}
	if len(cols) == 0 {
		return
	}
	for r := range tbl.Rows {
		row := &tbl.Rows[r]
		newCells := make([]Cell, len(cols))
		for _, cell := range row.Cells {
			if cell.BBox.IsEmpty() {
				continue
			}
			bestCol, maxOvr := -1, 0.0
			for ci, col := range cols {
				if ovr := math.Min(cell.BBox.X1, col[1]) - math.Max(cell.BBox.X0, col[0]); ovr > maxOvr {
					maxOvr, bestCol = ovr, ci
				}
			}
			if bestCol >= 0 && (newCells[bestCol].BBox.IsEmpty() || maxOvr > newCells[bestCol].BBox.Width()*0.5) {
				newCells[bestCol] = cell
			}
		}
		row.Cells = newCells
	}
	pruneEmpty(tbl)
}

// pruneEmpty drops rows without any cell and columns that are empty in every row.
func pruneEmpty(tbl *Table) {
	validRows := tbl.Rows[:0]
	for _, row := range tbl.Rows {
		for _, c := range row.Cells {
			if !c.BBox.IsEmpty() {
				validRows = append(validRows, row)
				break
			}
		}
	}
	tbl.Rows = validRows
	if len(tbl.Rows) == 0 {
		return
	}
	width := 0
	for _, row := range tbl.Rows {
		width = max(width, len(row.Cells))
	}
	keepCols := make([]bool, width)
	for _, row := range tbl.Rows {
		for c, cell := range row.Cells {
			if !cell.BBox.IsEmpty() {
				keepCols[c] = true
			}
		}
	}
	for r := range tbl.Rows {
		oldCells := tbl.Rows[r].Cells
		newCells := make([]Cell, 0, width)
		for c := 0; c < width; c++ {
			if !keepCols[c] {
				continue
			}
			if c < len(oldCells) {
				newCells = append(newCells, oldCells[c])
			} else {
				newCells = append(newCells, Cell{})
			}
		}
		tbl.Rows[r].Cells = newCells
	}
}

func filterValid(tables []Table) []Table {
	valid := tables[:0]
	for _, t := range tables {
		if len(t.Rows) < 2 || len(t.Rows[0].Cells) < 2 {
			cols := 0
			if len(t.Rows) > 0 {
				cols = len(t.Rows[0].Cells)
			}
			Logger.Debug("table rejected: too few rows/cols", "rows", len(t.Rows), "cols", cols)
			continue
		}
		valid = append(valid, t)
	}
	return valid
}

func mergeEdges(edges []Edge, snapTol, joinTol float64) []Edge {
	if len(edges) == 0 {
		return nil
	}
	horizontal := edges[0].Orientation == 'h'
	pos := func(e Edge) float64 {
		if horizontal {
			return e.Y0
		}
		return e.X0
	}
	start := func(e Edge) float64 {
		if horizontal {
			return e.X0
		}
		return e.Y0
	}
	sort.Slice(edges, func(i, j int) bool {
		if pos(edges[i]) != pos(edges[j]) {
			return pos(edges[i]) < pos(edges[j])
		}
		return start(edges[i]) < start(edges[j])
	})
	var result []Edge
	snapInt, joinInt := coordToInt(snapTol), coordToInt(joinTol)
	for i := 0; i < len(edges); {
		groupStart := i
		posSum, count := coordToInt(pos(edges[i])), 1
		for i++; i < len(edges); i++ {
			nextPos := coordToInt(pos(edges[i]))
			if abs(nextPos-posSum/count) > snapInt {
				break
			}
			posSum += nextPos
			count++
		}
		snapped := float64(posSum/count) / coordScale
		group := make([]Edge, i-groupStart)
		copy(group, edges[groupStart:i])
		for k := range group {
			if horizontal {
				group[k].Y0, group[k].Y1 = snapped, snapped
			} else {
				group[k].X0, group[k].X1 = snapped, snapped
			}
		}
		sort.Slice(group, func(a, b int) bool { return start(group[a]) < start(group[b]) })
		joined := group[0]
		for _, next := range group[1:] {
			if horizontal {
				if coordToInt(next.X0)-coordToInt(joined.X1) <= joinInt {
					joined.X1 = math.Max(joined.X1, next.X1)
					continue
				}
			} else if coordToInt(next.Y0)-coordToInt(joined.Y1) <= joinInt {
				joined.Y1 = math.Max(joined.Y1, next.Y1)
				continue
			}
			result = append(result, joined)
			joined = next
		}
		result = append(result, joined)
	}
	return result
}

func findIntersections(vEdges, hEdges []Edge, tr *rtree.RTreeG[geometry.Point], eps float64) {
	tolInt := coordToInt(eps)
	for _, v := range vEdges {
		vXInt, vY0Int, vY1Int := coordToInt(v.X0), coordToInt(v.Y0), coordToInt(v.Y1)
		for _, h := range hEdges {
			hYInt := coordToInt(h.Y0)
			if hYInt < vY0Int-tolInt || hYInt > vY1Int+tolInt {
				continue
			}
			hX0Int, hX1Int := coordToInt(h.X0), coordToInt(h.X1)
			if hX0Int-tolInt <= vXInt && hX1Int+tolInt >= vXInt {
				p := geometry.Point{X: v.X0, Y: h.Y0}
				if len(searchPoints(tr, p.X-0.1, p.Y-0.1, p.X+0.1, p.Y+0.1)) == 0 {
					tr.Insert([2]float64{p.X, p.Y}, [2]float64{p.X, p.Y}, p)
				}
			}
		}
	}
}

func detectRuled(page pdfpage.Page) []Table {
	if len(page.Edges) == 0 {
		return nil
	}
	var hEdges, vEdges []Edge
	for _, e := range page.Edges {
		edge := Edge{X0: e.X0, Y0: e.Y0, X1: e.X1, Y1: e.Y1, Orientation: e.Orientation}
		if e.Horizontal() {
			hEdges = append(hEdges, edge)
		} else {
			vEdges = append(vEdges, edge)
		}
	}
	pageRect := page.Bounds
	pw, ph := pageRect.Width(), pageRect.Height()
	snapTol, joinTol := pw*snapTolRatio, pw*joinTolRatio
	hEdges = mergeEdges(hEdges, snapTol, joinTol)
	vEdges = mergeEdges(vEdges, snapTol, joinTol)
	Logger.Debug("merged edges", "page", page.Number, "hEdges", len(hEdges), "vEdges", len(vEdges))
	if len(hEdges) < 2 || len(vEdges) < 2 {
		return nil
	}
	eps := math.Hypot(pw, ph) * intersectRatio
	var tr rtree.RTreeG[geometry.Point]
	findIntersections(vEdges, hEdges, &tr, eps)
	var points []geometry.Point
	tr.Scan(func(_, _ [2]float64, value geometry.Point) bool {
		points = append(points, value)
		return true
	})
	Logger.Debug("found intersection points", "page", page.Number, "count", len(points))
	cells := findCells(points, &tr, pageRect, hEdges, vEdges, eps)
	Logger.Debug("found cells", "page", page.Number, "count", len(cells))
	if len(cells) == 0 {
		return nil
	}
	valid := cells[:0]
	for _, cell := range cells {
		if clipped := cell.Intersect(pageRect); !clipped.IsEmpty() {
			valid = append(valid, clipped)
		}
	}
	tables := groupCellsIntoTables(deduplicateCells(valid), pageRect)
	for ti := range tables {
		fillText(&tables[ti], page.Glyphs)
	}
	return tables
}

func fillText(tbl *Table, glyphs []pdfpage.Glyph) {
	for ri := range tbl.Rows {
		for ci := range tbl.Rows[ri].Cells {
			cell := &tbl.Rows[ri].Cells[ci]
			if !cell.BBox.IsEmpty() {
				cell.Text = textInRect(glyphs, cell.BBox)
			}
		}
	}
}

// textInRect joins the glyphs whose centers fall inside rect, line by line.
func textInRect(glyphs []pdfpage.Glyph, rect geometry.Rect) string {
	area := rect.Inset(-cellPad)
	var inside []pdfpage.Glyph
	for _, g := range glyphs {
		if area.Contains(g.BBox.Center()) {
			inside = append(inside, g)
		}
	}
	lines := groupLines(inside)
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, joinGlyphs(line))
	}
	return strings.Join(parts, "\n")
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
