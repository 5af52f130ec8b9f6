package concurrency

import "sync"

const (
	// DefaultMax default max
	DefaultMax = 256
)

// GoLimit run at most max goroutines at a time
type GoLimit struct {
	ch chan struct{}
	wg sync.WaitGroup
}

// NewGoLimit new go limit
func NewGoLimit(max int) *GoLimit {
	if max <= 0 {
		max = DefaultMax
	}

	return &GoLimit{
		ch: make(chan struct{}, max),
	}
}

// Go run fn in a goroutine, blocking while max goroutines are running
func (g *GoLimit) Go(fn func()) {
	g.ch <- struct{}{}
	g.wg.Add(1)

	go func() {
		defer func() {
			<-g.ch
			g.wg.Done()
		}()

		fn()
	}()
}

// Wait block until every started fn returned
func (g *GoLimit) Wait() {
	g.wg.Wait()
}
