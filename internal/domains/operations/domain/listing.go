package domain

import "sort"

// Filter narrows a ledger listing. Zero values match everything.
type Filter struct {
	CustomerID int64
	Type       Type
	Statuses   []Status
}

// Matches reports whether op satisfies the filter.
func (f Filter) Matches(op *Operation) bool {
	if op == nil {
		return false
	}
	if f.CustomerID != 0 && op.CustomerID != f.CustomerID {
		return false
	}
	if f.Type != "" && op.Type != f.Type {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if op.Status == s {
			return true
		}
	}
	return false
}

// SortForDashboard orders operations: orders before reports, then date descending, then id descending.
func SortForDashboard(ops []*Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		a, b := ops[i], ops[j]
		if a.Type != b.Type {
			return a.Type == TypeOrder
		}
		da, db := a.Date(), b.Date()
		if !da.Equal(db) {
			return da.After(db)
		}
		return a.ID > b.ID
	})
}

// Overview splits a dashboard listing into operations awaiting admin action and the rest.
type Overview struct {
	Actionable []*Operation
	History    []*Operation
}

// SplitActionable partitions sorted operations, preserving order inside each group.
func SplitActionable(ops []*Operation) Overview {
	overview := Overview{Actionable: []*Operation{}, History: []*Operation{}}
	for _, op := range ops {
		if op.IsOrder() && (op.Status == StatusPending || op.Status == StatusApproved) {
			overview.Actionable = append(overview.Actionable, op)
			continue
		}
		overview.History = append(overview.History, op)
	}
	return overview
}
