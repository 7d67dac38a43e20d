package appointment_test

import (
	"errors"
	"testing"

	"github.com/healthdesk/assistant/internal/model/appointment"
)

func TestFlowConfirm(t *testing.T) {
	var flow appointment.Flow
	flow.OpenForm()

	text, err := flow.Confirm(appointment.Request{Date: "2025-03-01", Time: "14:30"})
	if err != nil {
		t.Fatalf("Confirm err: %v", err)
	}

	want := "✅ Appointment confirmed on 2025-03-01 at 14:30."
	if text != want {
		t.Fatalf("confirmation text = %q, want %q", text, want)
	}
	if flow.IsOpen() {
		t.Fatal("flow should be closed after confirm")
	}
}

func TestFlowConfirmWhileClosed(t *testing.T) {
	var flow appointment.Flow

	if _, err := flow.Confirm(appointment.Request{Date: "2025-03-01", Time: "14:30"}); !errors.Is(err, appointment.ErrNotOpen) {
		t.Fatalf("got %v, want ErrNotOpen", err)
	}
}

func TestFlowConfirmInvalidInput(t *testing.T) {
	var flow appointment.Flow
	flow.OpenForm()

	if _, err := flow.Confirm(appointment.Request{Date: "01/03/2025", Time: "14:30"}); !errors.Is(err, appointment.ErrInvalidDate) {
		t.Fatalf("got %v, want ErrInvalidDate", err)
	}
	if _, err := flow.Confirm(appointment.Request{Date: "2025-03-01", Time: "2pm"}); !errors.Is(err, appointment.ErrInvalidTime) {
		t.Fatalf("got %v, want ErrInvalidTime", err)
	}
	if !flow.IsOpen() {
		t.Fatal("failed confirmation must leave the form open")
	}
}
