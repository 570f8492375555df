package record

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestGroup_SetKeepsInsertionOrder(t *testing.T) {
	g := NewGroup()
	g.Set("b", "2")
	g.Set("a", "1")
	g.Set("c", "3")

	var keys []string
	for _, e := range g.Entries() {
		keys = append(keys, e.Key)
	}
	if want := []string{"b", "a", "c"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}
}

func TestGroup_SetOverwritesInPlace(t *testing.T) {
	g := NewGroup()
	g.Set("Column_1", "old")
	g.Set("Column_2", "x")
	g.Set("Column_1", "new")

	if g.Len() != 2 {
		t.Fatalf("duplicate key created a new entry: len=%d", g.Len())
	}
	if v, _ := g.Get("Column_1"); v != "new" {
		t.Errorf("Column_1 = %q, want new", v)
	}
	if g.Entries()[0].Key != "Column_1" {
		t.Error("overwrite moved the key")
	}
}

func TestGroup_NilIsEmpty(t *testing.T) {
	var g *Group
	if g.Len() != 0 || g.Entries() != nil {
		t.Error("nil group should be empty")
	}
	if _, ok := g.Get("x"); ok {
		t.Error("nil group should not contain keys")
	}
}

func TestRecord_MergeAndTriples(t *testing.T) {
	cards := NewGroup()
	cards.Set("Dashboard_Metric_1", "120 (Total Customers)")
	row := NewGroup()
	row.Set("Column_1", "Ram")
	age := NewGroup()
	age.Set("Dashboard_Metric_Age_18-25", "40")

	r := New().
		Merge(CustomerData, row).
		Merge(Dashboard, cards).
		Merge(Dashboard, age).
		Merge(Dashboard, nil)

	got := r.Triples()
	want := []Triple{
		{Dashboard, "Dashboard_Metric_1", "120 (Total Customers)"},
		{Dashboard, "Dashboard_Metric_Age_18-25", "40"},
		{CustomerData, "Column_1", "Ram"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("triples = %+v, want %+v", got, want)
	}
	if got[2].QualifiedKey() != "CustomerData.Column_1" {
		t.Errorf("qualified key = %q", got[2].QualifiedKey())
	}
}

func TestRecord_JSONShape(t *testing.T) {
	g := NewGroup()
	g.Set("Column_1", "Ram")
	r := New().Merge(CustomerData, g)

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"dashboardValues":{},"customerData":{"Column_1":"Ram"}}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}

	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, _ := back.Group(CustomerData).Get("Column_1"); v != "Ram" {
		t.Errorf("round trip lost Column_1: %q", v)
	}
}
