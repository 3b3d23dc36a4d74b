package monitor

import "sort"

// Diff computes the membership changes between two mempool snapshots:
// added = current - previous, removed = previous - current. Pure function;
// results are sorted so a tick processes its transactions in a reproducible
// order (the order carries no meaning beyond determinism).
func Diff(previous, current map[string]struct{}) (added, removed []string) {
	for txid := range current {
		if _, ok := previous[txid]; !ok {
			added = append(added, txid)
		}
	}
	for txid := range previous {
		if _, ok := current[txid]; !ok {
			removed = append(removed, txid)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
