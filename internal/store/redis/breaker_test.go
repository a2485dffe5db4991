package redis

import (
	"errors"
	"testing"
	"time"
)

func TestBreaker_StartsClosed(t *testing.T) {
	b := NewBreaker(3, 100*time.Millisecond)
	if b.CurrentState() != StateClosed {
		t.Errorf("expected closed, got %v", b.CurrentState())
	}
}

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(3, 100*time.Millisecond)
	errFail := errors.New("fail")

	for i := 0; i < 3; i++ {
		if err := b.Do(func() error { return errFail }); err != errFail {
			t.Fatalf("expected errFail, got %v", err)
		}
	}
	if b.CurrentState() != StateOpen {
		t.Fatalf("expected open after 3 failures, got %v", b.CurrentState())
	}

	if err := b.Do(func() error { return nil }); err != ErrBreakerOpen {
		t.Errorf("expected ErrBreakerOpen, got %v", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, 100*time.Millisecond)
	errFail := errors.New("fail")

	b.Do(func() error { return errFail })
	b.Do(func() error { return errFail })
	b.Do(func() error { return nil })
	b.Do(func() error { return errFail })
	b.Do(func() error { return errFail })

	if b.CurrentState() != StateClosed {
		t.Errorf("non-consecutive failures must not trip, got %v", b.CurrentState())
	}
}

func TestBreaker_HalfOpenProbeCloses(t *testing.T) {
	b := NewBreaker(2, 50*time.Millisecond)
	errFail := errors.New("fail")

	for i := 0; i < 2; i++ {
		b.Do(func() error { return errFail })
	}
	if b.CurrentState() != StateOpen {
		t.Fatal("expected open")
	}

	time.Sleep(60 * time.Millisecond)

	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("probe should pass, got %v", err)
	}
	if b.CurrentState() != StateClosed {
		t.Errorf("expected closed after successful probe, got %v", b.CurrentState())
	}
}

func TestBreaker_HalfOpenProbeReopens(t *testing.T) {
	b := NewBreaker(2, 50*time.Millisecond)
	errFail := errors.New("fail")

	for i := 0; i < 2; i++ {
		b.Do(func() error { return errFail })
	}

	time.Sleep(60 * time.Millisecond)

	if err := b.Do(func() error { return errFail }); err != errFail {
		t.Fatalf("probe error should surface, got %v", err)
	}
	if b.CurrentState() != StateOpen {
		t.Errorf("expected reopened after failed probe, got %v", b.CurrentState())
	}

	if err := b.Do(func() error { return nil }); err != ErrBreakerOpen {
		t.Errorf("expected immediate rejection, got %v", err)
	}
}

func TestBreaker_StateChangeCallback(t *testing.T) {
	b := NewBreaker(1, time.Minute)

	var transitions []string
	b.OnStateChange = func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}

	b.Do(func() error { return errors.New("fail") })

	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Errorf("unexpected transitions: %v", transitions)
	}
}
