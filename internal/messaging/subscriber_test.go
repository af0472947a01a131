package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shaiso/Tripleo/internal/domain"
)

// --- Receive Tests ---

func TestReceive_PayloadBeforeError(t *testing.T) {
	// select выбирает случайно, поэтому повторяем.
	for i := 0; i < 200; i++ {
		payloads := make(chan domain.Payload, 1)
		errs := make(chan error, 1)
		payloads <- domain.Payload{"status": "SUCCESS"}
		errs <- ErrConnectionLost

		payload, err := Receive(context.Background(), time.Second, payloads, errs)
		if err != nil {
			t.Fatalf("iteration %d: expected buffered payload, got %v", i, err)
		}
		if payload.Status() != domain.PayloadStatusSuccess {
			t.Fatalf("iteration %d: unexpected payload %v", i, payload)
		}

		if _, err := Receive(context.Background(), time.Second, payloads, errs); !errors.Is(err, ErrConnectionLost) {
			t.Fatalf("iteration %d: expected error after payload, got %v", i, err)
		}
	}
}

func TestReceive_Closed(t *testing.T) {
	payloads := make(chan domain.Payload)
	close(payloads)

	if _, err := Receive(context.Background(), time.Second, payloads, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestReceive_Timeout(t *testing.T) {
	payloads := make(chan domain.Payload)

	if _, err := Receive(context.Background(), 10*time.Millisecond, payloads, make(chan error)); !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}
