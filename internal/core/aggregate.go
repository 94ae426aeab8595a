package core

// Sum folds value(item) over items with monetary addition, starting from
// seed. An empty collection yields the seed.
func Sum[T any](seed Money, items []T, value func(T) Money) (Money, error) {
	return SumFunc(seed, items, func(item T) (Money, error) {
		return value(item), nil
	})
}

// SumFunc is Sum for extractors that can fail.
func SumFunc[T any](seed Money, items []T, value func(T) (Money, error)) (Money, error) {
	total := seed
	for _, item := range items {
		v, err := value(item)
		if err != nil {
			return Money{}, err
		}
		total, err = total.Add(v)
		if err != nil {
			return Money{}, err
		}
	}
	return total, nil
}
