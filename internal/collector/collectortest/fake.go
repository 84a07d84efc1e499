// Package collectortest provides in-memory collectors for tests of code
// that drives collector.Collector implementations.
package collectortest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/daryltucker/onetrace/internal/collector"
	"github.com/daryltucker/onetrace/internal/model"
)

// ErrCloseWhileTracing is returned by Fake.Close when tracing is still on.
var ErrCloseWhileTracing = errors.New("collectortest: close while tracing enabled")

// Lab builds fakes and keeps a shared journal of their lifecycle calls.
type Lab struct {
	mu      sync.Mutex
	fakes   []*Fake
	journal []string
}

// NewLab returns an empty lab.
func NewLab() *Lab {
	return &Lab{}
}

func (l *Lab) record(entry string) {
	l.mu.Lock()
	l.journal = append(l.journal, entry)
	l.mu.Unlock()
}

// Journal returns lifecycle entries such as "disable api/L0" in call order.
func (l *Lab) Journal() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.journal...)
}

// Fakes returns every collector built so far.
func (l *Lab) Fakes() []*Fake {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Fake(nil), l.fakes...)
}

// Find returns the fake built for a domain/backend pair, or nil.
func (l *Lab) Find(d model.Domain, b model.Backend) *Fake {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.fakes {
		if f.domain == d && f.Params.Backend == b {
			return f
		}
	}
	return nil
}

// Factory returns a factory producing fakes pre-seeded with stats.
func (l *Lab) Factory(d model.Domain, seed model.InfoMap) collector.Factory {
	return func(p collector.Params) (collector.Collector, error) {
		f := &Fake{Params: p, domain: d, lab: l, infos: model.InfoMap{}}
		for name, st := range seed {
			f.infos[name] = st
		}
		l.mu.Lock()
		l.fakes = append(l.fakes, f)
		l.mu.Unlock()
		l.record(fmt.Sprintf("create %s/%s", d, p.Backend))
		return f, nil
	}
}

// Failing returns a factory that always fails with err.
func (l *Lab) Failing(d model.Domain, err error) collector.Factory {
	return func(p collector.Params) (collector.Collector, error) {
		l.record(fmt.Sprintf("fail %s/%s", d, p.Backend))
		return nil, err
	}
}

// Fake is a collector driven by the test through Emit.
type Fake struct {
	Params collector.Params
	// CloseErr is returned from Close when set.
	CloseErr error

	domain model.Domain
	lab    *Lab

	mu       sync.RWMutex
	statsMu  sync.Mutex
	disabled bool
	closed   bool
	infos    model.InfoMap
}

// Emit simulates a completed operation. It accumulates statistics and calls
// OnFinish, unless tracing was disabled, in which case it returns false.
func (f *Fake) Emit(op model.Operation) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.disabled {
		return false
	}
	f.accumulate(op)
	if f.Params.OnFinish != nil {
		f.Params.OnFinish(op)
	}
	return true
}

func (f *Fake) accumulate(op model.Operation) {
	// Emit holds only the read lock; stats need their own exclusion.
	f.statsMu.Lock()
	defer f.statsMu.Unlock()
	d := op.Duration()
	st := f.infos[op.Name]
	if st.CallCount == 0 || d < st.MinTime {
		st.MinTime = d
	}
	if d > st.MaxTime {
		st.MaxTime = d
	}
	st.TotalTime += d
	st.CallCount++
	f.infos[op.Name] = st
}

// DisableTracing waits for in-flight Emit calls and blocks new ones.
func (f *Fake) DisableTracing() {
	f.mu.Lock()
	f.disabled = true
	f.mu.Unlock()
	f.lab.record(fmt.Sprintf("disable %s/%s", f.domain, f.Params.Backend))
}

// InfoMap returns a copy of the accumulated statistics.
func (f *Fake) InfoMap() model.InfoMap {
	f.mu.RLock()
	defer f.mu.RUnlock()
	f.statsMu.Lock()
	defer f.statsMu.Unlock()
	out := make(model.InfoMap, len(f.infos))
	for k, v := range f.infos {
		out[k] = v
	}
	return out
}

// Close fails if tracing is still enabled.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.disabled {
		return ErrCloseWhileTracing
	}
	f.closed = true
	f.lab.record(fmt.Sprintf("close %s/%s", f.domain, f.Params.Backend))
	return f.CloseErr
}

// Disabled reports whether DisableTracing has run.
func (f *Fake) Disabled() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.disabled
}

// Closed reports whether Close has run successfully.
func (f *Fake) Closed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.closed
}
