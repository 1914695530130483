package event

// Queue is a min-priority queue over events, ordered as in Event's
// documented ordering, with poll/discard counted separately so callers
// can report how many stale events were filtered out of the main loop.
type Queue interface {
	// Peek returns the least event without removing it.
	Peek() (Event, bool)
	// Poll removes and returns the least event.
	Poll() (Event, bool)
	// Discard removes and returns the least event, same as Poll but
	// counted separately in DiscardCount — used when the main loop
	// throws an event away as stale.
	Discard() (Event, bool)
	// Add inserts an event.
	Add(Event)
	// Size is the number of events currently queued.
	Size() int
	// DiscardCount is the running total of Discard calls.
	DiscardCount() int
}

// simpleQueue is the trivial one-bucket queue: a single heap. Every
// bucketing policy below degrades to this when only one bucket is ever
// created.
type simpleQueue struct {
	h            heap
	nextSeq      uint64
	discardCount int
}

// NewSimple returns the unbucketed queue.
func NewSimple() Queue {
	return &simpleQueue{}
}

func (q *simpleQueue) Add(e Event) {
	e.seq = q.nextSeq
	q.nextSeq++
	q.h.push(e)
}

func (q *simpleQueue) Peek() (Event, bool) {
	if q.h.Len() == 0 {
		return Event{}, false
	}
	return q.h.peek(), true
}

func (q *simpleQueue) Poll() (Event, bool) {
	if q.h.Len() == 0 {
		return Event{}, false
	}
	return q.h.pop(), true
}

func (q *simpleQueue) Discard() (Event, bool) {
	e, ok := q.Poll()
	if ok {
		q.discardCount++
	}
	return e, ok
}

func (q *simpleQueue) Size() int { return q.h.Len() }

func (q *simpleQueue) DiscardCount() int { return q.discardCount }

// BucketSpec selects an optional bucketing strategy. The zero value is
// no bucketing (a single heap).
type BucketSpec struct {
	Kind BucketKind

	// OnSize: threshold K. The head bucket accepts inserts until it
	// holds K elements, then new inserts spill to the next bucket,
	// created lazily.
	SizeThreshold int

	// OnTimestamp: bucket i owns [lo_i, lo_i+threshold*growth^i) where
	// lo_i = threshold*(1-growth^i)/(1-growth). Limit bounds how many
	// finite buckets exist; events at or past the limit's upper edge
	// fall into one final catch-all bucket.
	Threshold float64
	Growth    float64
	Limit     int
}

type BucketKind uint8

const (
	NoBucketing BucketKind = iota
	OnSize
	OnTimestamp
)

// New builds a queue for the given bucketing strategy (NoBucketing
// yields the trivial single-heap queue).
func New(spec BucketSpec) Queue {
	switch spec.Kind {
	case OnSize:
		return &bucketedQueue{classify: sizeClassifier(spec.SizeThreshold)}
	case OnTimestamp:
		return &bucketedQueue{classify: timestampClassifier(spec)}
	default:
		return NewSimple()
	}
}

// classifier maps an about-to-be-inserted event to a target bucket
// index. sizeClassifier ignores the event and instead depends on the
// queue's mutable spill index (bucketedQueue.insertIdx), read and
// advanced through its bucketedQueue argument.
type classifier func(bucketedQueue *bucketedQueue, e Event) int

// bucketedQueue is a chain of sub-heaps. peek/poll/discard scan the
// (small) set of non-empty buckets for the global minimum; classify
// decides which bucket an Add lands in.
type bucketedQueue struct {
	buckets      []heap
	classify     classifier
	insertIdx    int // on_size: current spill target
	nextSeq      uint64
	discardCount int
}

func sizeClassifier(threshold int) classifier {
	if threshold < 1 {
		threshold = 1
	}
	return func(bq *bucketedQueue, _ Event) int {
		for bq.insertIdx < len(bq.buckets) && bq.buckets[bq.insertIdx].Len() >= threshold {
			bq.insertIdx++
		}
		if bq.insertIdx == len(bq.buckets) {
			bq.buckets = append(bq.buckets, heap{})
		}
		return bq.insertIdx
	}
}

func timestampClassifier(spec BucketSpec) classifier {
	threshold, growth, limit := spec.Threshold, spec.Growth, spec.Limit
	if limit < 0 {
		limit = 0
	}
	return func(bq *bucketedQueue, e Event) int {
		lo := 0.0
		width := threshold
		for i := 0; i < limit; i++ {
			if e.At < lo+width {
				bq.ensureBucket(i)
				return i
			}
			lo += width
			width *= growth
		}
		bq.ensureBucket(limit) // catch-all bucket for [lo, +inf)
		return limit
	}
}

func (bq *bucketedQueue) ensureBucket(i int) {
	for len(bq.buckets) <= i {
		bq.buckets = append(bq.buckets, heap{})
	}
}

func (bq *bucketedQueue) Add(e Event) {
	e.seq = bq.nextSeq
	bq.nextSeq++
	idx := bq.classify(bq, e)
	bq.buckets[idx].push(e)
}

// minBucket finds the index of the non-empty bucket holding the global
// minimum event, or -1 if every bucket is empty.
func (bq *bucketedQueue) minBucket() int {
	best := -1
	for i := range bq.buckets {
		if bq.buckets[i].Len() == 0 {
			continue
		}
		if best == -1 || less(bq.buckets[i].peek(), bq.buckets[best].peek()) {
			best = i
		}
	}
	return best
}

func (bq *bucketedQueue) Peek() (Event, bool) {
	i := bq.minBucket()
	if i == -1 {
		return Event{}, false
	}
	return bq.buckets[i].peek(), true
}

func (bq *bucketedQueue) Poll() (Event, bool) {
	i := bq.minBucket()
	if i == -1 {
		return Event{}, false
	}
	return bq.buckets[i].pop(), true
}

func (bq *bucketedQueue) Discard() (Event, bool) {
	e, ok := bq.Poll()
	if ok {
		bq.discardCount++
	}
	return e, ok
}

func (bq *bucketedQueue) Size() int {
	n := 0
	for i := range bq.buckets {
		n += bq.buckets[i].Len()
	}
	return n
}

func (bq *bucketedQueue) DiscardCount() int { return bq.discardCount }
