package repository

// MaxBatchOperations caps the number of rows written in one transaction.
const MaxBatchOperations = 500

// rows per INSERT statement inside a batch transaction
const insertChunkSize = 100

// BatchResult reports the outcome of a batched import. Batches are committed one by one,
// so a failed batch leaves earlier ones in place.
type BatchResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// ClampBatchSize returns a batch size between 1 and MaxBatchOperations. Zero or negative
// sizes mean the maximum.
func ClampBatchSize(size int) int {
	if size <= 0 || size > MaxBatchOperations {
		return MaxBatchOperations
	}
	return size
}

// chunks splits n items into consecutive [start, end) ranges of at most size items.
func chunks(n, size int) [][2]int {
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}
