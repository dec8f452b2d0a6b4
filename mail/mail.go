// Package mail sends booking confirmation emails.
package mail

import (
	"context"
	"fmt"
)

// Mailer delivers one plain-text message. A send failure never rolls back
// the booking it confirms; callers surface it as a warning.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

func ConfirmationSubject(bookingID int64) string {
	return fmt.Sprintf("Appointment Confirmation #%d", bookingID)
}

func ConfirmationBody(name string, bookingID int64, service, date, timeOfDay string) string {
	return fmt.Sprintf(`Dear %s,

Your appointment has been confirmed.

Booking ID: %d
Service: %s
Date: %s
Time: %s

If you need to change or cancel your appointment, please reply to this
email or contact the clinic directly.

Best regards,
The Clinic Team
`, name, bookingID, service, date, timeOfDay)
}
