package jobs

import (
	"sync"
	"sync/atomic"
	"time"
)

// Ticker rotates human-readable progress messages on a timer. It is purely
// cosmetic and never gates job state.
type Ticker struct {
	messages []string
	index    atomic.Int64
	stop     chan struct{}
	once     sync.Once
}

func newTicker(interval time.Duration, messages []string) *Ticker {
	t := &Ticker{messages: messages, stop: make(chan struct{})}
	go t.run(interval)
	return t
}

func (t *Ticker) run(interval time.Duration) {
	tk := time.NewTicker(interval)
	defer tk.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-tk.C:
			t.index.Add(1)
		}
	}
}

// Message returns the current message.
func (t *Ticker) Message() string {
	if len(t.messages) == 0 {
		return ""
	}
	return t.messages[int(t.index.Load()%int64(len(t.messages)))]
}

func (t *Ticker) Stop() {
	t.once.Do(func() { close(t.stop) })
}

// Progress returns the rotating message for a pending video on scene.
func (r *Runner) Progress(scene int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.progress[scene]
	if !ok {
		return "", false
	}
	return t.Message(), true
}

func (r *Runner) startProgress(scene int) *Ticker {
	t := newTicker(r.progressInterval, r.progressMessages)
	r.mu.Lock()
	if old, ok := r.progress[scene]; ok {
		old.Stop()
	}
	r.progress[scene] = t
	r.mu.Unlock()
	return t
}

func (r *Runner) stopProgress(scene int, t *Ticker) {
	t.Stop()
	r.mu.Lock()
	if r.progress[scene] == t {
		delete(r.progress, scene)
	}
	r.mu.Unlock()
}

// StopAll halts every ticker, used when the plan is replaced.
func (r *Runner) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for scene, t := range r.progress {
		t.Stop()
		delete(r.progress, scene)
	}
}
