package appointment

import (
	"errors"
	"fmt"
	"time"
)

// State tracks the booking panel lifecycle for a session.
type State int

const (
	Closed State = iota
	Open
)

var (
	ErrNotOpen     = errors.New("appointment form is not open")
	ErrInvalidDate = errors.New("invalid appointment date, want YYYY-MM-DD")
	ErrInvalidTime = errors.New("invalid appointment time, want HH:MM")
)

// Request carries a booking the user confirmed. It lives only long enough
// to be rendered into a confirmation turn; nothing schedules a real
// calendar entry.
type Request struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// Validate checks the date and time formats.
func (r Request) Validate() error {
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return ErrInvalidDate
	}
	if _, err := time.Parse("15:04", r.Time); err != nil {
		return ErrInvalidTime
	}
	return nil
}

// ConfirmationText renders the assistant turn announcing the booking.
func (r Request) ConfirmationText() string {
	return fmt.Sprintf("✅ Appointment confirmed on %s at %s.", r.Date, r.Time)
}

// Flow is the Closed -> Open -> Closed booking state machine. The form
// stays open until confirmed or the session ends; there is no expiry.
type Flow struct {
	state State
}

// OpenForm surfaces the booking form.
func (f *Flow) OpenForm() {
	f.state = Open
}

// IsOpen reports whether the form is currently surfaced.
func (f *Flow) IsOpen() bool {
	return f.state == Open
}

// Confirm validates the request and closes the form. The returned text is
// the assistant confirmation turn the caller appends to the transcript.
func (f *Flow) Confirm(req Request) (string, error) {
	if f.state != Open {
		return "", ErrNotOpen
	}
	if err := req.Validate(); err != nil {
		return "", err
	}
	f.state = Closed
	return req.ConfirmationText(), nil
}
