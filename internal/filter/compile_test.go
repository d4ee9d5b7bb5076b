package filter

import (
	"reflect"
	"strings"
	"testing"

	"budgetfilter/internal/dimension"
)

func newPanelSet() *Set {
	return NewSetFor(dimension.Default().Fields())
}

func TestCompileScenario(t *testing.T) {
	reg := dimension.Default()
	set := newPanelSet()
	set.Put(dimension.Dept, Multiple{Values: []string{"10", "20"}})
	set.Put(dimension.Fund, All{})

	expense := Compile(set, reg.FieldsFor(dimension.Expense), reg)
	wantExpense := " and node_code = 'all'" +
		" and parent_code = 'all'" +
		" and dept_code in ('10','20')" +
		" and fund_code = 'all'" +
		" and account_code = 'all'"
	if expense != wantExpense {
		t.Fatalf("expense criteria\n got: %q\nwant: %q", expense, wantExpense)
	}

	revenue := Compile(set, reg.FieldsFor(dimension.Revenue), reg)
	wantRevenue := " and parent_code = 'all' and fund_code = 'all' and account_code = 'all'"
	if revenue != wantRevenue {
		t.Fatalf("revenue criteria\n got: %q\nwant: %q", revenue, wantRevenue)
	}
	if strings.Contains(revenue, "dept_code") {
		t.Fatalf("dept leaked into revenue criteria: %q", revenue)
	}
}

func TestCompileModes(t *testing.T) {
	reg := dimension.Default()
	fields := []dimension.Field{dimension.Fund}

	tests := []struct {
		name string
		sel  Selection
		want string
	}{
		{"all", All{}, " and fund_code = 'all'"},
		{"multiple", Multiple{Values: []string{"v1", "v2"}}, " and fund_code in ('v1','v2')"},
		{"multiple keeps selection order", Multiple{Values: []string{"b", "a"}}, " and fund_code in ('b','a')"},
		{"multiple empty", Multiple{}, ""},
		{"contains", Contains{Text: "abc"}, " and fund_code like '%abc%'"},
		{"contains empty", Contains{}, ""},
		{"range", Range{From: "2024", To: "2025"}, " and fund_code between '2024' and '2025'"},
		{"range missing to", Range{From: "2024"}, ""},
		{"range missing from", Range{To: "2025"}, ""},
		{"quote is not escaped", Contains{Text: "o'brien"}, " and fund_code like '%o'brien%'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := NewSet()
			set.Put(dimension.Fund, tt.sel)
			if got := Compile(set, fields, reg); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompileSkipsFieldsOutsideContext(t *testing.T) {
	reg := dimension.Default()
	set := NewSet()
	set.Put(dimension.Node, Multiple{Values: []string{"N1"}})
	set.Put(dimension.Dept, Range{From: "100", To: "200"})

	got := Compile(set, reg.FieldsFor(dimension.Revenue), reg)
	want := " and parent_code = 'all' and fund_code = 'all' and account_code = 'all'"
	if got != want {
		t.Fatalf("revenue criteria\n got: %q\nwant: %q", got, want)
	}
}

func TestCompileFollowsSetOrder(t *testing.T) {
	reg := dimension.Default()
	set := NewSet()
	set.Put(dimension.Account, All{})
	set.Put(dimension.Parent, Contains{Text: "x"})

	got := Compile(set, reg.FieldsFor(dimension.Expense), reg)
	want := " and account_code = 'all' and parent_code like '%x%'" +
		" and node_code = 'all' and dept_code = 'all' and fund_code = 'all'"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCompileTreatsAbsentFieldsAsAll(t *testing.T) {
	reg := dimension.Default()
	set, err := DecodeSet([]byte(`{"dept":{"mode":"multiple","values":["10","20"]},"fund":{"mode":"all"}}`), reg)
	if err != nil {
		t.Fatalf("DecodeSet: %v", err)
	}

	tests := []struct {
		name string
		ctx  dimension.Context
		want string
	}{
		{
			name: "expense",
			ctx:  dimension.Expense,
			want: " and dept_code in ('10','20') and fund_code = 'all'" +
				" and node_code = 'all' and parent_code = 'all' and account_code = 'all'",
		},
		{
			name: "revenue",
			ctx:  dimension.Revenue,
			want: " and fund_code = 'all' and parent_code = 'all' and account_code = 'all'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compile(set, reg.FieldsFor(tt.ctx), reg); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompileNilSetIsAllChain(t *testing.T) {
	reg := dimension.Default()
	got := Compile(nil, reg.FieldsFor(dimension.Revenue), reg)
	if got != " and parent_code = 'all' and fund_code = 'all' and account_code = 'all'" {
		t.Fatalf("got %q", got)
	}
}

func TestCompileDuplicateContextField(t *testing.T) {
	reg := dimension.Default()
	got := Compile(NewSet(), []dimension.Field{dimension.Fund, dimension.Fund}, reg)
	if got != " and fund_code = 'all'" {
		t.Fatalf("got %q", got)
	}
}

func TestCompileIgnoresUnknownFields(t *testing.T) {
	reg := dimension.Default()
	set := NewSet()
	set.Put(dimension.Field("program"), Multiple{Values: []string{"P"}})

	if got := Compile(set, []dimension.Field{"program"}, reg); got != "" {
		t.Fatalf("expected no clause for unregistered field, got %q", got)
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	reg := dimension.Default()
	set := newPanelSet()
	set.Put(dimension.Dept, Multiple{Values: []string{"10"}})
	set.Put(dimension.Account, Range{From: "4000", To: "4999"})

	first := Compile(set, reg.FieldsFor(dimension.Expense), reg)
	second := Compile(set, reg.FieldsFor(dimension.Expense), reg)
	if first != second {
		t.Fatalf("compile not deterministic: %q vs %q", first, second)
	}
}

func TestCompileParams(t *testing.T) {
	reg := dimension.Default()
	set := NewSet()
	set.Put(dimension.Parent, All{})
	set.Put(dimension.Fund, Multiple{Values: []string{"10", "20"}})
	set.Put(dimension.Account, Range{From: "4000", To: "4999"})
	set.Put(dimension.Dept, Contains{Text: "o'brien"})

	text, args := CompileParams(set, reg.FieldsFor(dimension.Expense), reg)
	wantText := " and parent_code = ? and fund_code in (?,?) and account_code between ? and ? and dept_code like ?" +
		" and node_code = ?"
	if text != wantText {
		t.Fatalf("text\n got: %q\nwant: %q", text, wantText)
	}
	wantArgs := []any{"all", "10", "20", "4000", "4999", "%o'brien%", "all"}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("args = %v, want %v", args, wantArgs)
	}
}

func TestBuilderClauses(t *testing.T) {
	reg := dimension.Default()
	set := NewSet()
	set.Put(dimension.Fund, Contains{Text: "gen"})

	b := NewCompiler(reg, nil).Build(set, reg.FieldsFor(dimension.Revenue))
	want := []Clause{
		{Column: "fund_code", Operator: OpLike, Literals: []string{"%gen%"}},
		{Column: "parent_code", Operator: OpEquals, Literals: []string{"all"}},
		{Column: "account_code", Operator: OpEquals, Literals: []string{"all"}},
	}
	if !reflect.DeepEqual(b.Clauses(), want) {
		t.Fatalf("clauses = %+v", b.Clauses())
	}
}
