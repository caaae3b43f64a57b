package state

import "encoding/json"

// search is a binary search over a list kept sorted ascending by key. It
// returns the index of the match, or the insertion index when not found.
func search[T any](list []T, key string, keyFn func(T) string) (int, bool) {
	min, max := 0, len(list)-1
	for min <= max {
		mid := (min + max) / 2
		k := keyFn(list[mid])
		switch {
		case k < key:
			min = mid + 1
		case k > key:
			max = mid - 1
		default:
			return mid, true
		}
	}
	return min, false
}

// insertAt returns a new slice with item inserted at idx, preserving the
// sorted order the caller established.
func insertAt[T any](list []T, idx int, item T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, list[:idx]...)
	out = append(out, item)
	out = append(out, list[idx:]...)
	return out
}

// removeAt returns a new slice without the element at idx.
func removeAt[T any](list []T, idx int) []T {
	out := make([]T, 0, len(list)-1)
	out = append(out, list[:idx]...)
	out = append(out, list[idx+1:]...)
	return out
}

// mergeJSON decodes raw into a copy of existing. Fields present in raw
// overwrite; absent fields keep their previous value. This is the shallow
// field-union merge used for all identifier-collision upserts.
func mergeJSON[T any](existing T, raw json.RawMessage) T {
	out := existing
	_ = json.Unmarshal(raw, &out)
	return out
}

// upsertRaw merges raw into the entity with the given key, or decodes raw
// into a zero value and inserts it at the sorted position. The returned
// slice is always a fresh value; the input is never mutated.
func upsertRaw[T any](list []T, key string, raw json.RawMessage, keyFn func(T) string) []T {
	idx, found := search(list, key, keyFn)
	if found {
		out := append([]T(nil), list...)
		out[idx] = mergeJSON(out[idx], raw)
		return out
	}
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return list
	}
	return insertAt(list, idx, item)
}

// removeByKey removes the entity with the given key if present. The second
// result reports whether anything was removed.
func removeByKey[T any](list []T, key string, keyFn func(T) string) ([]T, bool) {
	idx, found := search(list, key, keyFn)
	if !found {
		return list, false
	}
	return removeAt(list, idx), true
}
