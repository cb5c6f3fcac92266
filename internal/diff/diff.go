// Package diff computes which freshly fetched processes have not been
// seen by an alert before.
package diff

import "secop_bot/internal/model"

// Result holds the outcome of comparing a fetch against a baseline.
type Result struct {
	// NewItems are the fetched items whose id is absent from the
	// previous baseline, in fetch order.
	NewItems []model.ProcurementItem
	// FreshIDs is the deduplicated id list of the whole fetch, in
	// fetch order. It replaces the previous baseline outright.
	FreshIDs []string
}

// Compute compares fresh items against the previously recorded id
// baseline. Items without an id are ignored; duplicate ids within the
// fetch count once.
func Compute(fresh []model.ProcurementItem, previousIDs []string) Result {
	previous := make(map[string]struct{}, len(previousIDs))
	for _, id := range previousIDs {
		previous[id] = struct{}{}
	}

	var res Result
	inFetch := make(map[string]struct{}, len(fresh))
	for _, item := range fresh {
		if item.ID == "" {
			continue
		}
		if _, dup := inFetch[item.ID]; dup {
			continue
		}
		inFetch[item.ID] = struct{}{}
		res.FreshIDs = append(res.FreshIDs, item.ID)

		if _, seen := previous[item.ID]; !seen {
			res.NewItems = append(res.NewItems, item)
		}
	}
	return res
}
