package pkg

// Union merge slices keep first-seen order, drop duplicates and zero values
func Union[T comparable](slices ...[]T) []T {
	var (
		zero T
		seen = make(map[T]struct{})
		out  []T
	)
	for _, s := range slices {
		for _, v := range s {
			if v == zero {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
