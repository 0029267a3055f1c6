package feather2d

import "sync"

// task splits items into contiguous chunks, one per worker, and runs fn on every item.
// With a single worker the items are processed in order on the calling goroutine.
func task[T any](workersCount int, items []T, fn func(item T)) {
	count := len(items)
	if count == 0 {
		return
	}

	workersCount = min(max(workersCount, 1), count)
	if workersCount == 1 {
		for _, item := range items {
			fn(item)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := (count + workersCount - 1) / workersCount

	for start := 0; start < count; start += chunkSize {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(items[i])
			}
		}(start, min(start+chunkSize, count))
	}
	wg.Wait()
}
