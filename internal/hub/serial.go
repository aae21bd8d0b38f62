package hub

import "sync"

// keyedRunner runs jobs sharing a key one after another, in submission order.
// Each busy key gets its own goroutine, so a slow job only delays its own key.
type keyedRunner struct {
	mu      sync.Mutex
	pending map[string][]func()
	stopped bool
	wg      sync.WaitGroup
}

func newKeyedRunner() *keyedRunner {
	return &keyedRunner{pending: make(map[string][]func())}
}

// submit never blocks. It reports false once the runner is stopped.
func (r *keyedRunner) submit(key string, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return false
	}
	queue, busy := r.pending[key]
	r.pending[key] = append(queue, fn)
	if !busy {
		r.wg.Add(1)
		go r.drain(key)
	}
	return true
}

func (r *keyedRunner) drain(key string) {
	defer r.wg.Done()
	for {
		r.mu.Lock()
		queue := r.pending[key]
		if len(queue) == 0 {
			delete(r.pending, key)
			r.mu.Unlock()
			return
		}
		fn := queue[0]
		queue[0] = nil
		r.pending[key] = queue[1:]
		r.mu.Unlock()

		fn()
	}
}

func (r *keyedRunner) busyKeys() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// stop rejects new jobs and waits for queued ones to finish
func (r *keyedRunner) stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.wg.Wait()
}
