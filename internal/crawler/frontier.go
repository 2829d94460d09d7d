package crawler

// Frontier is the FIFO queue of pending URLs plus the visited set of a run.
// It is owned by a single orchestrator and not safe for concurrent use.
type Frontier struct {
	queue   []string
	queued  map[string]struct{}
	visited map[string]struct{}
}

// NewFrontier seeds the queue with the given URLs.
func NewFrontier(seeds ...string) *Frontier {
	f := &Frontier{
		queued:  make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}
	for _, seed := range seeds {
		f.Push(seed)
	}
	return f
}

// Push appends a URL unless it is visited or already waiting in the queue.
func (f *Frontier) Push(u string) bool {
	if _, ok := f.visited[u]; ok {
		return false
	}
	if _, ok := f.queued[u]; ok {
		return false
	}
	f.queued[u] = struct{}{}
	f.queue = append(f.queue, u)
	return true
}

// Pop removes the URL at the head of the queue.
func (f *Frontier) Pop() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	u := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	delete(f.queued, u)
	return u, true
}

// MarkVisited adds u to the visited set and reports whether it was new.
func (f *Frontier) MarkVisited(u string) bool {
	if _, ok := f.visited[u]; ok {
		return false
	}
	f.visited[u] = struct{}{}
	return true
}

// Visited implements VisitedSet.
func (f *Frontier) Visited(u string) bool {
	_, ok := f.visited[u]
	return ok
}

// Len is the number of pending URLs.
func (f *Frontier) Len() int {
	return len(f.queue)
}

// VisitedCount is the number of URLs marked visited.
func (f *Frontier) VisitedCount() int {
	return len(f.visited)
}
