package provider

// Stream is a lazy, finite, non-restartable sequence of reply fragments.
// Adapters produce it from a channel pair: a goroutine pushes fragments and
// closes both channels when the transport completes or fails.
//
//	for {
//		frag, ok := stream.Next()
//		if !ok {
//			break
//		}
//		// use frag
//	}
//	if err := stream.Err(); err != nil { ... }
type Stream struct {
	fragments <-chan string
	errc      <-chan error
	err       error
	done      bool
}

// NewStream wraps a fragment channel and a (buffered, capacity >= 1) error
// channel. The producer must close both when finished; an error sent before
// closing marks the stream as failed.
func NewStream(fragments <-chan string, errc <-chan error) *Stream {
	return &Stream{fragments: fragments, errc: errc}
}

// Next returns the next fragment. ok is false once the stream is exhausted,
// after which Err reports whether it ended cleanly. Not safe for concurrent
// use; a stream belongs to exactly one consumer.
func (s *Stream) Next() (frag string, ok bool) {
	if s.done {
		return "", false
	}
	frag, ok = <-s.fragments
	if ok {
		return frag, true
	}
	s.done = true
	if err, pending := <-s.errc; pending {
		s.err = err
	}
	return "", false
}

// Err returns the transport error that terminated the stream, or nil after a
// clean completion. Only meaningful once Next has returned ok == false.
func (s *Stream) Err() error { return s.err }

// Drain consumes the remaining fragments, invoking onFragment (if non-nil)
// for each, and returns the concatenation plus the terminal error state.
func (s *Stream) Drain(onFragment func(string)) (string, error) {
	var buf []byte
	for {
		frag, ok := s.Next()
		if !ok {
			break
		}
		if onFragment != nil {
			onFragment(frag)
		}
		buf = append(buf, frag...)
	}
	if err := s.Err(); err != nil {
		return string(buf), &StreamError{Err: err, Partial: string(buf)}
	}
	return string(buf), nil
}
