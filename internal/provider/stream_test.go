package provider

import (
	"errors"
	"testing"
)

func makeStream(frags []string, err error) *Stream {
	fragments := make(chan string, len(frags))
	errc := make(chan error, 1)
	for _, f := range frags {
		fragments <- f
	}
	if err != nil {
		errc <- err
	}
	close(fragments)
	close(errc)
	return NewStream(fragments, errc)
}

func TestStream_CleanCompletion(t *testing.T) {
	s := makeStream([]string{"안", "녕", "하세요"}, nil)

	var got string
	for {
		frag, ok := s.Next()
		if !ok {
			break
		}
		got += frag
	}

	if got != "안녕하세요" {
		t.Errorf("concatenation = %q", got)
	}
	if s.Err() != nil {
		t.Errorf("Err = %v, want nil after clean completion", s.Err())
	}
}

func TestStream_NotRestartable(t *testing.T) {
	s := makeStream([]string{"하나"}, nil)

	for {
		if _, ok := s.Next(); !ok {
			break
		}
	}
	if frag, ok := s.Next(); ok {
		t.Errorf("exhausted stream yielded %q", frag)
	}
}

func TestStream_ErrorSurfacesAfterFragments(t *testing.T) {
	boom := errors.New("connection reset")
	s := makeStream([]string{"부분", "응답"}, boom)

	var got string
	for {
		frag, ok := s.Next()
		if !ok {
			break
		}
		got += frag
	}

	if got != "부분응답" {
		t.Errorf("fragments before failure = %q", got)
	}
	if !errors.Is(s.Err(), boom) {
		t.Errorf("Err = %v, want the transport error", s.Err())
	}
}

func TestStream_DrainCollects(t *testing.T) {
	s := makeStream([]string{"가", "나", "다"}, nil)

	var seen []string
	text, err := s.Drain(func(f string) { seen = append(seen, f) })
	if err != nil {
		t.Fatal(err)
	}
	if text != "가나다" {
		t.Errorf("text = %q", text)
	}
	if len(seen) != 3 {
		t.Errorf("callback invoked %d times, want 3", len(seen))
	}
}

func TestStream_DrainWrapsFailureWithPartial(t *testing.T) {
	s := makeStream([]string{"절반"}, errors.New("timeout"))

	_, err := s.Drain(nil)
	var se *StreamError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StreamError", err)
	}
	if se.Partial != "절반" {
		t.Errorf("Partial = %q, want the delivered prefix", se.Partial)
	}
}
