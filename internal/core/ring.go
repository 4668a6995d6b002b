package core

import "math"

// Ring is a fixed-capacity window of the most recent values of one channel.
// Pushing into a full ring evicts the oldest value.
type Ring struct {
	buf   []float64
	start int
	n     int
}

// NewRing returns an empty ring holding at most capacity values.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]float64, capacity)}
}

// Push appends v, evicting the oldest value when full.
func (r *Ring) Push(v float64) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Values returns a copy of the window, oldest first.
func (r *Ring) Values() []float64 {
	out := make([]float64, r.n)
	for i := range r.n {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Last returns the newest value.
func (r *Ring) Last() (float64, bool) {
	if r.n == 0 {
		return 0, false
	}
	return r.buf[(r.start+r.n-1)%len(r.buf)], true
}

// MinMax returns the smallest and largest value in the window.
func (r *Ring) MinMax() (lo, hi float64, ok bool) {
	if r.n == 0 {
		return 0, 0, false
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := range r.n {
		v := r.buf[(r.start+i)%len(r.buf)]
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi, true
}

// Len returns the number of values held.
func (r *Ring) Len() int { return r.n }

// Cap returns the window capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// BufferSet keeps one Ring per derived channel, created on first use.
// It is owned by the consumer goroutine.
type BufferSet struct {
	rings map[string]*Ring
	order []string
	size  int
}

// NewBufferSet returns a set whose rings hold size values each.
func NewBufferSet(size int) *BufferSet {
	return &BufferSet{size: size, rings: make(map[string]*Ring)}
}

// Append pushes v onto the ring for channel.
func (b *BufferSet) Append(channel string, v float64) {
	r, ok := b.rings[channel]
	if !ok {
		r = NewRing(b.size)
		b.rings[channel] = r
		b.order = append(b.order, channel)
	}
	r.Push(v)
}

// Ring returns the ring for channel, or nil.
func (b *BufferSet) Ring(channel string) *Ring {
	return b.rings[channel]
}

// Channels returns channel names in the order they first appeared.
func (b *BufferSet) Channels() []string {
	return append([]string(nil), b.order...)
}

// Snapshot copies every window.
func (b *BufferSet) Snapshot() map[string][]float64 {
	out := make(map[string][]float64, len(b.rings))
	for name, r := range b.rings {
		out[name] = r.Values()
	}
	return out
}

// Bounds returns the min and max across all windows.
func (b *BufferSet) Bounds() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, r := range b.rings {
		rlo, rhi, rok := r.MinMax()
		if !rok {
			continue
		}
		lo, hi, ok = min(lo, rlo), max(hi, rhi), true
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}
