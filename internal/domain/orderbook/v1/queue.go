package orderbookv1

import "errors"

var (
	// ErrDuplicateKey is returned when a key is enqueued while already present.
	// An order must be fully removed from its previous resting location before
	// it can be enqueued again.
	ErrDuplicateKey = errors.New("key already present in queue")
	// ErrEmptyQueue is returned when peeking an empty queue.
	ErrEmptyQueue = errors.New("queue is empty")
)

const nilHandle = -1

type queueNode[K comparable] struct {
	key  K
	prev int
	next int
}

// RemovableQueue is a FIFO over unique keys with O(1) append, O(1) removal of
// a key from any position and O(1) peek at the oldest surviving key. Nodes
// live in an arena addressed by stable integer handles; a side index maps key
// to handle, so no intrusive back-pointers are needed.
type RemovableQueue[K comparable] struct {
	nodes   []queueNode[K]
	handles map[K]int
	head    int
	tail    int
	free    []int
}

// NewRemovableQueue creates an empty queue.
func NewRemovableQueue[K comparable]() *RemovableQueue[K] {
	return &RemovableQueue[K]{
		handles: make(map[K]int),
		head:    nilHandle,
		tail:    nilHandle,
	}
}

// Len returns the number of keys currently in the queue.
func (q *RemovableQueue[K]) Len() int {
	return len(q.handles)
}

// Enqueue appends k at the back of the queue.
// Returns ErrDuplicateKey if k is already present.
func (q *RemovableQueue[K]) Enqueue(k K) error {
	if _, ok := q.handles[k]; ok {
		return ErrDuplicateKey
	}

	h := q.alloc()
	q.nodes[h] = queueNode[K]{key: k, prev: q.tail, next: nilHandle}
	if q.tail != nilHandle {
		q.nodes[q.tail].next = h
	} else {
		q.head = h
	}
	q.tail = h
	q.handles[k] = h

	return nil
}

// Remove unlinks k wherever it sits in the queue.
// Returns false if k is not present; absence is not an error.
func (q *RemovableQueue[K]) Remove(k K) bool {
	h, ok := q.handles[k]
	if !ok {
		return false
	}

	n := q.nodes[h]
	if n.prev != nilHandle {
		q.nodes[n.prev].next = n.next
	} else {
		q.head = n.next
	}
	if n.next != nilHandle {
		q.nodes[n.next].prev = n.prev
	} else {
		q.tail = n.prev
	}

	delete(q.handles, k)
	q.free = append(q.free, h)
	return true
}

// Peek returns the oldest surviving key.
// Returns ErrEmptyQueue if the queue is empty.
func (q *RemovableQueue[K]) Peek() (K, error) {
	if q.head == nilHandle {
		var zero K
		return zero, ErrEmptyQueue
	}
	return q.nodes[q.head].key, nil
}

// Clear empties the queue. The arena is retained for reuse.
func (q *RemovableQueue[K]) Clear() {
	q.nodes = q.nodes[:0]
	q.free = q.free[:0]
	q.head = nilHandle
	q.tail = nilHandle
	clear(q.handles)
}

// Each visits keys in arrival order until fn returns false.
func (q *RemovableQueue[K]) Each(fn func(K) bool) {
	for h := q.head; h != nilHandle; h = q.nodes[h].next {
		if !fn(q.nodes[h].key) {
			return
		}
	}
}

func (q *RemovableQueue[K]) alloc() int {
	if n := len(q.free); n > 0 {
		h := q.free[n-1]
		q.free = q.free[:n-1]
		return h
	}
	q.nodes = append(q.nodes, queueNode[K]{})
	return len(q.nodes) - 1
}
