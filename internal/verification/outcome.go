package verification

import (
	"fmt"
	"strings"
)

type Outcome int

const (
	OutcomeInternalError Outcome = iota
	OutcomeInvalidCode
	OutcomeUnsupportedYear
	OutcomeAlreadyVerified
	OutcomePaymentIncomplete
	OutcomeVerified
)

// String is the metrics label.
func (o Outcome) String() string {
	switch o {
	case OutcomeInvalidCode:
		return "invalid_code"
	case OutcomeUnsupportedYear:
		return "unsupported_year"
	case OutcomeAlreadyVerified:
		return "already_verified"
	case OutcomePaymentIncomplete:
		return "payment_incomplete"
	case OutcomeVerified:
		return "verified"
	default:
		return "internal_error"
	}
}

type Result struct {
	Outcome   Outcome
	Year      string
	FirstName string
	Roles     []string
	EventName string
	// Err is set for internal errors and never shown to the user.
	Err error
}

// Ephemeral reports whether only the invoking user should see the reply.
func (r Result) Ephemeral() bool { return r.Outcome != OutcomeVerified }

func (r Result) Message() string {
	switch r.Outcome {
	case OutcomeInvalidCode:
		return "❌ **Invalid verification code.** Please check if you entered the correct code from your registration email. If you need help, use `/helpverify`."
	case OutcomeUnsupportedYear:
		return fmt.Sprintf("❌ **Verification not supported.** Verification is not supported for registrations from %s. Please contact an administrator for assistance.", r.Year)
	case OutcomeAlreadyVerified:
		return "⚠️ **Already verified.** This code has already been used to verify. If you believe this is an error, please contact the event staff."
	case OutcomePaymentIncomplete:
		return "⚠️ **Payment incomplete.** Your registration payment appears to be incomplete. Please complete your payment before verifying. If you believe this is an error, contact the event staff."
	case OutcomeVerified:
		return r.successMessage()
	default:
		return "❌ **An error occurred during verification.** Please try again later or contact the event staff for assistance."
	}
}

func (r Result) successMessage() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ **Verification successful!** Welcome to %s %s, %s!\n\n", r.EventName, r.Year, r.FirstName)
	fmt.Fprintf(&b, "**Roles assigned:** %s\n\n", strings.Join(r.Roles, ", "))
	b.WriteString("**Next steps:**\n")
	fmt.Fprintf(&b, "- Check out the #announcements-%s channel for important updates\n", r.Year)
	fmt.Fprintf(&b, "- Introduce yourself in the #introductions-%s channel\n", r.Year)
	fmt.Fprintf(&b, "- Coordinate rides and gear in #rideshare-%s and #gearshare-%s\n", r.Year, r.Year)
	return b.String()
}

// FirstName takes the first word of a full name.
func FirstName(full string) string {
	if f := strings.Fields(full); len(f) > 0 {
		return f[0]
	}
	return "there"
}
