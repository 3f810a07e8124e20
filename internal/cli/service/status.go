package service

import (
	"sync"
	"sync/atomic"
	"time"
)

// State - состояние менеджера синхронизации.
type State string

const (
	StateIdle     State = "idle"
	StateFullSync State = "full-sync"
	StateSyncing  State = "syncing"
	StatePush     State = "push"
	StatePull     State = "pull"
	StateError    State = "error"
)

// Status - снимок состояния для подписчиков.
type Status struct {
	State        State
	LastSyncTime time.Time // zero, если синхронизаций ещё не было
	Error        string    // только для StateError
}

// Listener получает переходы состояния.
type Listener func(Status)

type subscriber struct {
	id int
	fn Listener
	// seen - номер последнего доставленного статуса + 1 (0: ещё ничего)
	seen atomic.Uint64
}

// deliver вызывает fn, если статус seq новее уже доставленного.
func (sub *subscriber) deliver(seq uint64, s Status) bool {
	for {
		old := sub.seen.Load()
		if seq+1 <= old {
			return false
		}
		if sub.seen.CompareAndSwap(old, seq+1) {
			break
		}
	}
	sub.fn(s)
	return true
}

// broadcaster рассылает статус подписчикам. Слушатели вызываются синхронно,
// вне мьютекса, поэтому могут вызывать Subscribe/Status сами.
type broadcaster struct {
	mu      sync.Mutex
	current Status
	seq     uint64
	nextID  int
	subs    []*subscriber
}

func (b *broadcaster) get() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *broadcaster) set(s Status) {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.current = s
	subs := make([]*subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(seq, s)
	}
}

func (b *broadcaster) subscribe(fn Listener) func() {
	b.mu.Lock()
	b.nextID++
	sub := &subscriber{id: b.nextID, fn: fn}
	b.subs = append(b.subs, sub)
	cur, seq := b.current, b.seq
	b.mu.Unlock()

	// set между Unlock и replay либо уже доставил более новый статус
	// (тогда replay отбрасывается), либо доставил его во время replay:
	// тогда актуальный статус отправляется ещё раз, чтобы последним был он.
	if sub.deliver(seq, cur) && sub.seen.Load() > seq+1 {
		sub.fn(b.get())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, other := range b.subs {
				if other.id == sub.id {
					b.subs = append(b.subs[:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}
