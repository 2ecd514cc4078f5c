// Package diff provides structural comparison of two mapped BPMN contexts.
package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/logflow/bpmnctx/pkg/export"
	"github.com/logflow/bpmnctx/pkg/serializer"
)

// Significance of a change.
const (
	Added   = "added"
	Removed = "removed"
	Changed = "changed"
)

// Report contains the differences between two contexts.
type Report struct {
	LeftID  string
	RightID string

	// Counts per entity kind, in export order.
	Counts []KindCount

	// Changes ordered by kind, then scope, then id.
	Changes []Change
}

// KindCount compares the size of one collection.
type KindCount struct {
	Kind  string
	Left  int
	Right int
}

// Change describes one entity that differs.
type Change struct {
	Kind         string
	ScopeID      string
	ID           string
	Type         string
	Significance string   // "added", "removed", "changed"
	Fields       []string // changed columns, only for "changed"
}

// HasChanges reports whether the contexts differ.
func (r *Report) HasChanges() bool {
	return len(r.Changes) > 0
}

// Compare diffs two contexts. Entities are matched by kind, scope and id.
func Compare(left, right *serializer.Context) (*Report, error) {
	leftRows, err := export.Rows(left)
	if err != nil {
		return nil, err
	}
	rightRows, err := export.Rows(right)
	if err != nil {
		return nil, err
	}

	r := &Report{LeftID: left.ID(), RightID: right.ID()}
	r.Counts = counts(leftRows, rightRows)

	leftIdx, leftKeys := index(leftRows)
	rightIdx, rightKeys := index(rightRows)

	for _, key := range leftKeys {
		lr := leftIdx[key]
		rr, ok := rightIdx[key]
		if !ok {
			r.Changes = append(r.Changes, change(lr, Removed, nil))
			continue
		}
		if fields := changedFields(lr, rr); len(fields) > 0 {
			r.Changes = append(r.Changes, change(rr, Changed, fields))
		}
	}
	for _, key := range rightKeys {
		if _, ok := leftIdx[key]; !ok {
			r.Changes = append(r.Changes, change(rightIdx[key], Added, nil))
		}
	}

	order := make(map[string]int, len(export.Kinds))
	for i, k := range export.Kinds {
		order[k] = i
	}
	sort.SliceStable(r.Changes, func(i, j int) bool {
		a, b := r.Changes[i], r.Changes[j]
		if a.Kind != b.Kind {
			return order[a.Kind] < order[b.Kind]
		}
		if a.ScopeID != b.ScopeID {
			return a.ScopeID < b.ScopeID
		}
		return a.ID < b.ID
	})

	return r, nil
}

func counts(left, right []export.Row) []KindCount {
	byKind := make(map[string]*KindCount, len(export.Kinds))
	out := make([]KindCount, len(export.Kinds))
	for i, k := range export.Kinds {
		out[i].Kind = k
		byKind[k] = &out[i]
	}
	for _, row := range left {
		byKind[row.Kind].Left++
	}
	for _, row := range right {
		byKind[row.Kind].Right++
	}
	return out
}

// index keys rows by kind, scope and id. Repeated keys, such as several
// scripts on one element, get an occurrence suffix.
func index(rows []export.Row) (map[string]export.Row, []string) {
	idx := make(map[string]export.Row, len(rows))
	keys := make([]string, 0, len(rows))
	seen := make(map[string]int)
	for _, row := range rows {
		key := row.Kind + "\x00" + row.ScopeID + "\x00" + row.ID
		if n := seen[key]; n > 0 {
			seen[key] = n + 1
			key = fmt.Sprintf("%s\x00%d", key, n)
		} else {
			seen[key] = 1
		}
		idx[key] = row
		keys = append(keys, key)
	}
	return idx, keys
}

func changedFields(a, b export.Row) []string {
	av, bv := a.Values(), b.Values()
	var fields []string
	for i, col := range export.Columns {
		if av[i] != bv[i] {
			fields = append(fields, col)
		}
	}
	return fields
}

func change(row export.Row, significance string, fields []string) Change {
	return Change{
		Kind:         row.Kind,
		ScopeID:      row.ScopeID,
		ID:           row.ID,
		Type:         row.Type,
		Significance: significance,
		Fields:       fields,
	}
}

// String returns a human-readable report.
func (r *Report) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Diff %s → %s\n", r.LeftID, r.RightID))
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	for _, c := range r.Counts {
		if c.Left == 0 && c.Right == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %-14s %5d → %-5d (%+d)\n", c.Kind, c.Left, c.Right, c.Right-c.Left))
	}

	if !r.HasChanges() {
		sb.WriteString("\nNo structural changes.\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("\n%d changes:\n", len(r.Changes)))
	for _, c := range r.Changes {
		mark := map[string]string{Added: "+", Removed: "-", Changed: "~"}[c.Significance]
		line := fmt.Sprintf("  %s %s %s", mark, c.Kind, c.ID)
		if c.ScopeID != "" {
			line += " in " + c.ScopeID
		}
		if c.Type != "" {
			line += " (" + c.Type + ")"
		}
		if len(c.Fields) > 0 {
			line += ": " + strings.Join(c.Fields, ", ")
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}
