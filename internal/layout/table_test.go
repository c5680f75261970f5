package layout

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
)

func threeColumns() []Column {
	return []Column{
		{Header: "Colonne A", Width: 60},
		{Header: "Colonne B", Width: 60},
		{Header: "Colonne C", Width: 50, Align: AlignRight},
	}
}

// twoLineCell wraps to exactly two lines in a 60mm column with fixedMeasurer.
var twoLineCell = strings.Repeat("a", 30) + " " + strings.Repeat("b", 30)

func TestTableValidate(t *testing.T) {
	width := A4().ContentWidth()
	tests := []struct {
		name    string
		table   Table
		wantErr error
	}{
		{name: "fits", table: Table{ID: "t", Columns: threeColumns()}},
		{name: "exactly full width", table: Table{ID: "t", Columns: []Column{{Header: "x", Width: width}}}},
		{name: "overflow", table: Table{ID: "t", Columns: []Column{{Width: 100}, {Width: 100}}}, wantErr: ErrColumnOverflow},
		{name: "no columns", table: Table{ID: "t"}, wantErr: ErrInvalidColumns},
		{name: "zero width", table: Table{ID: "t", Columns: []Column{{Width: 0}}}, wantErr: ErrInvalidColumns},
		{name: "nan width", table: Table{ID: "t", Columns: []Column{{Width: math.NaN()}}}, wantErr: ErrInvalidColumns},
		{name: "short row padded", table: Table{ID: "t", Columns: threeColumns(), Rows: [][]string{{"a"}}}},
		{name: "long row", table: Table{ID: "t", Columns: threeColumns(), Rows: [][]string{{"a", "b", "c", "d"}}}, wantErr: ErrRowShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate(width)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTablePagination(t *testing.T) {
	const rowCount = 50
	rows := make([][]string, rowCount)
	for i := range rows {
		rows[i] = []string{twoLineCell, fmt.Sprintf("ligne %d", i), "1"}
	}
	doc := &Document{}
	doc.AddSection("", Table{ID: "register", Columns: threeColumns(), Rows: rows})

	e := newTestEngine()
	res := mustLayout(t, e, doc)

	th := e.Theme()
	g := e.Geometry()
	rowH := 2*th.Cell.LineHeight() + 2*th.CellPadding
	headerH := th.Header.LineHeight() + 2*th.CellPadding
	perPage := int((g.UsableHeight()-headerH)/rowH + epsilon)
	want := (rowCount + perPage - 1) / perPage
	if res.PageCount() != want {
		t.Errorf("pages = %d, want %d", res.PageCount(), want)
	}
	naive := int(math.Ceil(rowCount * rowH / g.UsableHeight()))
	if d := res.PageCount() - naive; d < 0 || d > 1 {
		t.Errorf("pages = %d, expected within one of %d", res.PageCount(), naive)
	}

	var drawn int
	for _, p := range res.Pages {
		cells := p.RectsWithRole(RoleTableCell)
		headers := p.RectsWithRole(RoleTableHeader)
		drawn += len(cells) / 3
		if len(headers) != 3 {
			t.Errorf("page %d: %d header cells, want 3", p.Number, len(headers))
			continue
		}
		for _, c := range cells {
			if c.Y < headers[0].Y+headers[0].H-epsilon {
				t.Errorf("page %d: cell at %.2f drawn above the header bottom %.2f", p.Number, c.Y, headers[0].Y+headers[0].H)
			}
		}
		if headers[0].Y != g.ContentTop() {
			t.Errorf("page %d: header at %.2f, want page top %.2f", p.Number, headers[0].Y, g.ContentTop())
		}
	}
	if drawn != rowCount {
		t.Errorf("drawn rows = %d, want %d", drawn, rowCount)
	}
	checkBottoms(t, res)
}

func TestTableHeaderOnlyWithRows(t *testing.T) {
	rows := func(n int) [][]string {
		out := make([][]string, n)
		for i := range out {
			out[i] = []string{twoLineCell, "x", "y"}
		}
		return out
	}
	doc := &Document{}
	doc.AddSection("Premier tableau", Table{ID: "first", Columns: threeColumns(), Rows: rows(30)})
	doc.AddSection("Commentaire", Text{Content: strings.Repeat("texte libre ", 40)})
	doc.AddSection("Second tableau", Table{ID: "second", Columns: threeColumns(), Rows: rows(37)})

	res := mustLayout(t, newTestEngine(), doc)
	if res.PageCount() < 3 {
		t.Fatalf("pages = %d, want the tables to span at least 3 pages", res.PageCount())
	}

	for _, id := range []string{"first", "second"} {
		var total int
		for _, p := range res.Pages {
			var headers, cells int
			for _, r := range p.Rects {
				if r.Group != id {
					continue
				}
				switch r.Role {
				case RoleTableHeader:
					headers++
				case RoleTableCell:
					cells++
				}
			}
			total += cells / 3
			switch {
			case cells > 0 && headers != 3:
				t.Errorf("table %s page %d: %d data cells but %d header cells", id, p.Number, cells, headers)
			case cells == 0 && headers != 0:
				t.Errorf("table %s page %d: header drawn without data rows", id, p.Number)
			}
		}
		want := map[string]int{"first": 30, "second": 37}[id]
		if total != want {
			t.Errorf("table %s drew %d rows, want %d", id, total, want)
		}
	}
	checkBottoms(t, res)
}

func TestTableRowsStayWhole(t *testing.T) {
	rows := make([][]string, 40)
	for i := range rows {
		rows[i] = []string{strings.Repeat("mot ", 10*(i%4+1)), "x", "y"}
	}
	doc := &Document{}
	doc.AddSection("", Table{ID: "t", Columns: threeColumns(), Rows: rows, Striped: true})
	res := mustLayout(t, newTestEngine(), doc)

	for _, p := range res.Pages {
		for _, r := range p.RectsWithRole(RoleTableCell) {
			if r.Y+r.H > res.Geometry.ContentBottom()+epsilon {
				t.Errorf("page %d: row at %.2f+%.2f crosses the bottom margin", p.Number, r.Y, r.H)
			}
		}
	}
}

func TestTableWithoutRowsDrawsNothing(t *testing.T) {
	doc := &Document{}
	doc.AddSection("Vide", Table{ID: "empty", Columns: threeColumns()})
	res := mustLayout(t, newTestEngine(), doc)

	if res.PageCount() != 1 {
		t.Fatalf("pages = %d, want 1", res.PageCount())
	}
	p := res.Pages[0]
	if len(p.RectsWithRole(RoleTableHeader)) != 0 || len(p.TextsWithRole(RoleSectionTitle)) != 0 {
		t.Errorf("empty table section rendered header or title")
	}
}

func TestTableOversizeRowOverflows(t *testing.T) {
	huge := strings.Repeat("ligne\n", 80)
	doc := &Document{}
	doc.AddSection("", Text{Content: "avant"})
	doc.AddSection("", Table{ID: "t", Columns: threeColumns(), Rows: [][]string{{huge, "", ""}, {"suite", "", ""}}})

	res := mustLayout(t, newTestEngine(), doc)
	if res.PageCount() != 3 {
		t.Fatalf("pages = %d, want 3 (text, oversize row, next row)", res.PageCount())
	}
	if got := res.Pages[1].ContentBottom(); got <= res.Geometry.ContentBottom() {
		t.Errorf("oversize row bottom = %.2f, expected overflow past %.2f", got, res.Geometry.ContentBottom())
	}
	if n := len(res.Pages[2].RectsWithRole(RoleTableHeader)); n != 3 {
		t.Errorf("continuation page header cells = %d, want 3", n)
	}
}
