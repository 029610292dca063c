package pipeline

// ChanSink forwards ticks to a buffered channel without ever blocking the
// pipeline. When the buffer is full the oldest pending tick is dropped.
type ChanSink struct {
	ch chan Tick
}

// NewChanSink creates a sink with room for size pending ticks.
func NewChanSink(size int) *ChanSink {
	if size < 1 {
		size = 1
	}
	return &ChanSink{ch: make(chan Tick, size)}
}

// C returns the receive side of the sink.
func (s *ChanSink) C() <-chan Tick {
	return s.ch
}

// Publish enqueues t, evicting the oldest tick if needed.
func (s *ChanSink) Publish(t Tick) {
	for {
		select {
		case s.ch <- t:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}
