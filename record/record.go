// Package record holds the values scraped during a run and checks them for
// completeness.
package record

import (
	"encoding/json"
)

// Namespace partitions a Record.
type Namespace string

const (
	Dashboard    Namespace = "Dashboard"
	CustomerData Namespace = "CustomerData"
)

// namespaces fixes iteration order for Triples and validation.
var namespaces = []Namespace{Dashboard, CustomerData}

// Entry is one key/value pair of a Group.
type Entry struct {
	Key   string
	Value string
}

// Group is an insertion-ordered string map with unique keys.
// The zero value is not usable; call NewGroup.
type Group struct {
	entries []Entry
	index   map[string]int
}

// NewGroup returns an empty Group.
func NewGroup() *Group {
	return &Group{index: make(map[string]int)}
}

// Set stores value under key. Re-setting a key overwrites it in place.
func (g *Group) Set(key, value string) {
	if i, ok := g.index[key]; ok {
		g.entries[i].Value = value
		return
	}
	g.index[key] = len(g.entries)
	g.entries = append(g.entries, Entry{Key: key, Value: value})
}

// Get returns the value stored under key.
func (g *Group) Get(key string) (string, bool) {
	if g == nil {
		return "", false
	}
	i, ok := g.index[key]
	if !ok {
		return "", false
	}
	return g.entries[i].Value, true
}

// Len returns the number of entries. A nil Group is empty.
func (g *Group) Len() int {
	if g == nil {
		return 0
	}
	return len(g.entries)
}

// Entries returns a copy of the entries in insertion order.
func (g *Group) Entries() []Entry {
	if g == nil {
		return nil
	}
	out := make([]Entry, len(g.entries))
	copy(out, g.entries)
	return out
}

// Map returns the group as a plain map.
func (g *Group) Map() map[string]string {
	m := make(map[string]string, g.Len())
	for _, e := range g.Entries() {
		m[e.Key] = e.Value
	}
	return m
}

// Record is the ExtractionResult of a run: one Group per namespace.
type Record struct {
	groups map[Namespace]*Group
}

// New returns an empty Record.
func New() *Record {
	r := &Record{groups: make(map[Namespace]*Group, len(namespaces))}
	for _, ns := range namespaces {
		r.groups[ns] = NewGroup()
	}
	return r
}

// Merge copies every entry of g into namespace ns and returns r so calls
// can be chained. A nil g is a no-op.
func (r *Record) Merge(ns Namespace, g *Group) *Record {
	dst, ok := r.groups[ns]
	if !ok {
		dst = NewGroup()
		r.groups[ns] = dst
	}
	for _, e := range g.Entries() {
		dst.Set(e.Key, e.Value)
	}
	return r
}

// Group returns the group for ns, never nil.
func (r *Record) Group(ns Namespace) *Group {
	if g, ok := r.groups[ns]; ok {
		return g
	}
	return NewGroup()
}

// Triple is one value of a Record with its namespace.
type Triple struct {
	Namespace Namespace
	Key       string
	Value     string
}

// QualifiedKey returns "Namespace.key".
func (t Triple) QualifiedKey() string {
	return string(t.Namespace) + "." + t.Key
}

// Triples flattens the record: Dashboard entries first, then CustomerData,
// each in insertion order.
func (r *Record) Triples() []Triple {
	var out []Triple
	for _, ns := range namespaces {
		for _, e := range r.Group(ns).Entries() {
			out = append(out, Triple{Namespace: ns, Key: e.Key, Value: e.Value})
		}
	}
	return out
}

type recordJSON struct {
	DashboardValues map[string]string `json:"dashboardValues"`
	CustomerData    map[string]string `json:"customerData"`
}

func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		DashboardValues: r.Group(Dashboard).Map(),
		CustomerData:    r.Group(CustomerData).Map(),
	})
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = *New()
	for k, v := range raw.DashboardValues {
		r.groups[Dashboard].Set(k, v)
	}
	for k, v := range raw.CustomerData {
		r.groups[CustomerData].Set(k, v)
	}
	return nil
}
