package collection

// Newest returns up to n items most-recent-first. n <= 0 means all of them.
// The input is not modified.
func Newest[T any](items []T, n int) []T {
	if n <= 0 || n > len(items) {
		n = len(items)
	}
	out := make([]T, 0, n)
	for i := len(items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, items[i])
	}
	return out
}
