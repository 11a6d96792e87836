package crawler

import (
	"sync"
)

// Frontier is the FIFO queue of a breadth-first crawl. A URL is queued at most
// once: Push ignores URLs that are already queued or visited.
type Frontier struct {
	queue   []string
	known   map[string]struct{}
	visited map[string]struct{}
	mutex   sync.Mutex
}

// NewFrontier creates a frontier seeded with the given URLs
func NewFrontier(seeds ...string) *Frontier {
	f := &Frontier{
		known:   make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}
	for _, seed := range seeds {
		f.Push(seed)
	}
	return f
}

// Push appends url to the queue. It reports false when url was already queued or visited.
func (f *Frontier) Push(url string) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if _, ok := f.known[url]; ok {
		return false
	}
	f.known[url] = struct{}{}
	f.queue = append(f.queue, url)
	return true
}

// Pop dequeues up to n unvisited URLs in FIFO order and marks them visited.
func (f *Frontier) Pop(n int) []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	var urls []string
	for len(urls) < n && len(f.queue) > 0 {
		url := f.queue[0]
		f.queue[0] = ""
		f.queue = f.queue[1:]

		if _, ok := f.visited[url]; ok {
			continue
		}
		f.visited[url] = struct{}{}
		urls = append(urls, url)
	}
	return urls
}

// IsVisited reports whether url has been dequeued
func (f *Frontier) IsVisited(url string) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	_, ok := f.visited[url]
	return ok
}

// Pending returns the number of queued URLs
func (f *Frontier) Pending() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return len(f.queue)
}

// VisitedCount returns the number of dequeued URLs
func (f *Frontier) VisitedCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return len(f.visited)
}
