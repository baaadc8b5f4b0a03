// Package profile persists reconciled updates: it merges profile data,
// serialises writers per profile and creates the family a completing
// pioneer owns.
package profile

// Merge returns stored overlaid with incoming. Keys absent from incoming
// keep their stored value. Neither argument is modified and the result is
// always a fresh map.
func Merge(stored, incoming map[string]any) map[string]any {
	out := make(map[string]any, len(stored)+len(incoming))
	for k, v := range stored {
		out[k] = v
	}
	for k, v := range incoming {
		out[k] = v
	}
	return out
}
