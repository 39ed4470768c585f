package index

// resultQueue is a bounded max-heap keeping the k best candidates seen
// so far. The root is the worst kept candidate, so a better one evicts
// it in O(log k). Ordering is ascending distance with ascending ordinal
// breaking ties.
type resultQueue struct {
	k     int
	items []SearchResult
}

func newResultQueue(k int) *resultQueue {
	return &resultQueue{k: k, items: make([]SearchResult, 0, k)}
}

// worse reports whether a ranks after b.
func worse(a, b SearchResult) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}

	return a.Ordinal > b.Ordinal
}

// Push offers a candidate, keeping only the k best.
func (q *resultQueue) Push(ordinal uint32, dist float32) {
	c := SearchResult{Ordinal: ordinal, Distance: dist}

	if len(q.items) < q.k {
		q.items = append(q.items, c)
		q.up(len(q.items) - 1)

		return
	}

	if worse(c, q.items[0]) {
		return
	}

	q.items[0] = c
	q.down(0)
}

// Drain empties the queue, returning candidates in ascending order.
func (q *resultQueue) Drain() []SearchResult {
	out := make([]SearchResult, len(q.items))

	for i := len(q.items) - 1; i >= 0; i-- {
		out[i] = q.items[0]
		last := len(q.items) - 1
		q.items[0] = q.items[last]
		q.items = q.items[:last]
		q.down(0)
	}

	return out
}

func (q *resultQueue) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !worse(q.items[i], q.items[parent]) {
			break
		}

		q.items[i], q.items[parent] = q.items[parent], q.items[i]
		i = parent
	}
}

func (q *resultQueue) down(i int) {
	n := len(q.items)

	for {
		left, right := 2*i+1, 2*i+2
		largest := i

		if left < n && worse(q.items[left], q.items[largest]) {
			largest = left
		}

		if right < n && worse(q.items[right], q.items[largest]) {
			largest = right
		}

		if largest == i {
			return
		}

		q.items[i], q.items[largest] = q.items[largest], q.items[i]
		i = largest
	}
}
