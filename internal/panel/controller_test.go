package panel

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"budgetfilter/internal/dimension"
	"budgetfilter/internal/filter"
)

const allChainExpense = " and node_code = 'all' and parent_code = 'all' and dept_code = 'all' and fund_code = 'all' and account_code = 'all'"
const allChainRevenue = " and parent_code = 'all' and fund_code = 'all' and account_code = 'all'"

func newTestController(t *testing.T) (*Controller, *LatestSink, *LatestSink) {
	t.Helper()
	revenue, expense := &LatestSink{}, &LatestSink{}
	c := New(Config{
		Identity: Identity{SessionID: "s1", UserID: "u1"},
		Revenue:  revenue,
		Expense:  expense,
	})
	return c, revenue, expense
}

func TestNewCompilesWithoutPublishing(t *testing.T) {
	c, revenue, expense := newTestController(t)
	cr := c.Criteria()
	if cr.Revenue != allChainRevenue || cr.Expense != allChainExpense {
		t.Fatalf("unexpected initial criteria: %+v", cr)
	}
	if revenue.Published() != 0 || expense.Published() != 0 {
		t.Fatalf("construction should not publish")
	}
	if c.HasActiveFilters() {
		t.Fatalf("new controller should have no active filters")
	}
}

func TestSetFilterPublishesBothContexts(t *testing.T) {
	c, revenue, expense := newTestController(t)
	ctx := context.Background()

	if err := c.SetFilter(ctx, dimension.Dept, filter.Multiple{Values: []string{"10", "20"}}); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	if revenue.Published() != 1 || expense.Published() != 1 {
		t.Fatalf("expected one publish per sink, got revenue=%d expense=%d", revenue.Published(), expense.Published())
	}

	wantExpense := " and node_code = 'all' and parent_code = 'all' and dept_code in ('10','20') and fund_code = 'all' and account_code = 'all'"
	if expense.Value() != wantExpense {
		t.Fatalf("expense sink\n got: %q\nwant: %q", expense.Value(), wantExpense)
	}
	if revenue.Value() != allChainRevenue {
		t.Fatalf("revenue sink = %q", revenue.Value())
	}
	if c.Criteria().Expense != wantExpense {
		t.Fatalf("Criteria out of sync with sinks")
	}
	if !c.HasActiveFilters() {
		t.Fatalf("expected active filters")
	}
}

func TestSetFilterLeavesOtherFields(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()

	_ = c.SetFilter(ctx, dimension.Fund, filter.Contains{Text: "gen"})
	_ = c.SetFilter(ctx, dimension.Account, filter.Range{From: "4000", To: "4999"})

	set := c.Selections()
	if got := set.Get(dimension.Fund); got != (filter.Contains{Text: "gen"}) {
		t.Fatalf("fund selection lost: %#v", got)
	}
	want := " and parent_code = 'all' and fund_code like '%gen%' and account_code between '4000' and '4999'"
	if got := c.Criteria().Revenue; got != want {
		t.Fatalf("revenue\n got: %q\nwant: %q", got, want)
	}
}

func TestSetFilterUnknownField(t *testing.T) {
	c, revenue, _ := newTestController(t)
	err := c.SetFilter(context.Background(), dimension.Field("grant"), filter.All{})

	var unknown *dimension.UnknownFieldError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownFieldError, got %v", err)
	}
	if revenue.Published() != 0 {
		t.Fatalf("failed mutation should not publish")
	}
}

func TestClearAll(t *testing.T) {
	c, revenue, expense := newTestController(t)
	ctx := context.Background()

	_ = c.SetFilter(ctx, dimension.Node, filter.Multiple{Values: []string{"N1"}})
	_ = c.SetFilter(ctx, dimension.Fund, filter.Range{From: "1", To: "9"})
	c.ClearAll(ctx)

	if c.HasActiveFilters() {
		t.Fatalf("expected no active filters after ClearAll")
	}
	if revenue.Value() != allChainRevenue || expense.Value() != allChainExpense {
		t.Fatalf("ClearAll did not reduce to the all chain: revenue=%q expense=%q", revenue.Value(), expense.Value())
	}
	if expense.Published() != 3 {
		t.Fatalf("expected 3 publishes, got %d", expense.Published())
	}
}

func TestHasActiveFiltersIgnoresEmptyPayloads(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()

	_ = c.SetFilter(ctx, dimension.Dept, filter.Multiple{})
	_ = c.SetFilter(ctx, dimension.Fund, filter.Contains{Text: ""})
	if c.HasActiveFilters() {
		t.Fatalf("empty payloads should not count as active")
	}
	if strings.Contains(c.Criteria().Expense, "dept_code") {
		t.Fatalf("empty multiple selection should emit no clause: %q", c.Criteria().Expense)
	}

	_ = c.SetFilter(ctx, dimension.Account, filter.Range{From: "4000"})
	if !c.HasActiveFilters() {
		t.Fatalf("a single range bound counts as active")
	}
	if strings.Contains(c.Criteria().Expense, "account_code") {
		t.Fatalf("half-open range should emit no clause: %q", c.Criteria().Expense)
	}
}

func TestSetFilterKeepsLiteralsVerbatim(t *testing.T) {
	c, _, expense := newTestController(t)
	ctx := context.Background()

	_ = c.SetFilter(ctx, dimension.Dept, filter.Multiple{Values: []string{" 10 ", ""}})
	_ = c.SetFilter(ctx, dimension.Fund, filter.Contains{Text: " gen"})

	want := " and node_code = 'all' and parent_code = 'all' and dept_code in (' 10 ','')" +
		" and fund_code like '% gen%' and account_code = 'all'"
	if expense.Value() != want {
		t.Fatalf("expense\n got: %q\nwant: %q", expense.Value(), want)
	}
}

func TestSetFilterNilSelectionIsAll(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()

	_ = c.SetFilter(ctx, dimension.Fund, filter.Multiple{Values: []string{"10"}})
	if err := c.SetFilter(ctx, dimension.Fund, nil); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	if c.Criteria().Revenue != allChainRevenue {
		t.Fatalf("nil selection should reset to all: %q", c.Criteria().Revenue)
	}
}

func TestSinkErrorDoesNotFailMutation(t *testing.T) {
	failing := SinkFunc(func(context.Context, dimension.Context, string, []any) error {
		return errors.New("broker down")
	})
	expense := &LatestSink{}
	c := New(Config{Revenue: failing, Expense: expense})

	if err := c.SetFilter(context.Background(), dimension.Fund, filter.Multiple{Values: []string{"10"}}); err != nil {
		t.Fatalf("sink failure leaked: %v", err)
	}
	if expense.Published() != 1 {
		t.Fatalf("second sink should still receive criteria")
	}
}

func TestParameterizedRenderer(t *testing.T) {
	revenue, expense := &LatestSink{}, &LatestSink{}
	c := New(Config{Renderer: filter.ParamRenderer{}, Revenue: revenue, Expense: expense})
	_ = c.SetFilter(context.Background(), dimension.Fund, filter.Multiple{Values: []string{"10", "20"}})

	cr := c.Criteria()
	if cr.Revenue != " and parent_code = ? and fund_code in (?,?) and account_code = ?" {
		t.Fatalf("unexpected parameterized revenue: %q", cr.Revenue)
	}
	if len(cr.RevenueArgs) != 4 || cr.RevenueArgs[1] != "10" {
		t.Fatalf("unexpected args: %v", cr.RevenueArgs)
	}

	wantExpense := []any{"all", "all", "all", "10", "20", "all"}
	if expense.Value() != cr.Expense {
		t.Fatalf("expense sink = %q", expense.Value())
	}
	if got := expense.Args(); !reflect.DeepEqual(got, wantExpense) {
		t.Fatalf("expense sink args = %v, want %v", got, wantExpense)
	}
	if got := revenue.Args(); !reflect.DeepEqual(got, cr.RevenueArgs) {
		t.Fatalf("revenue sink args = %v, want %v", got, cr.RevenueArgs)
	}
}

func TestVerbatimPublishesNoArgs(t *testing.T) {
	c, revenue, _ := newTestController(t)
	_ = c.SetFilter(context.Background(), dimension.Fund, filter.Multiple{Values: []string{"10"}})
	if got := revenue.Args(); len(got) != 0 {
		t.Fatalf("verbatim criteria should carry no args, got %v", got)
	}
}

func TestSnapshot(t *testing.T) {
	c, _, _ := newTestController(t)
	_ = c.SetFilter(context.Background(), dimension.Dept, filter.Multiple{Values: []string{"10"}})

	snap := c.Snapshot()
	if !snap.Active {
		t.Fatalf("snapshot should be active")
	}
	if got := snap.Selections.Get(dimension.Dept); !reflect.DeepEqual(got, filter.Multiple{Values: []string{"10"}}) {
		t.Fatalf("snapshot selection = %#v", got)
	}
	if cr := c.Criteria(); snap.Criteria.Revenue != cr.Revenue || snap.Criteria.Expense != cr.Expense {
		t.Fatalf("snapshot criteria out of sync")
	}
}

func TestPreview(t *testing.T) {
	c, _, _ := newTestController(t)
	if _, ok := c.Preview(); ok {
		t.Fatalf("preview should be gated")
	}

	c = New(Config{Identity: Identity{UserID: "admin", Preview: true}})
	p, ok := c.Preview()
	if !ok {
		t.Fatalf("expected preview")
	}
	if p.UserID != "admin" || p.Revenue != "where 1=1"+allChainRevenue {
		t.Fatalf("unexpected preview: %+v", p)
	}
}

func TestFanout(t *testing.T) {
	a, b := &LatestSink{}, &LatestSink{}
	boom := errors.New("boom")
	f := Fanout{a, SinkFunc(func(context.Context, dimension.Context, string, []any) error { return boom }), nil, b}

	if err := f.Publish(context.Background(), dimension.Revenue, "x", []any{"v"}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if a.Value() != "x" || b.Value() != "x" {
		t.Fatalf("fanout skipped a sink")
	}
	if got := b.Args(); len(got) != 1 || got[0] != "v" {
		t.Fatalf("fanout dropped args: %v", got)
	}
}
