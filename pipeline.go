package tendon

import "sync"

// task calls fn on every element of data, split in contiguous chunks over at
// most workers goroutines. It returns once every call is done.
func task[T any](workers int, data []T, fn func(data T)) {
	n := len(data)
	if n == 0 {
		return
	}
	workers = max(1, min(workers, n))
	if workers == 1 {
		for _, d := range data {
			fn(d)
		}
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		wg.Add(1)
		go func(part []T) {
			defer wg.Done()
			for _, d := range part {
				fn(d)
			}
		}(data[start:min(start+chunk, n)])
	}
	wg.Wait()
}
