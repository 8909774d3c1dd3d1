package schema

import "fmt"

// Field is a logical field name, stable across years. The remote field id
// behind it differs per year.
type Field int

const (
	FieldVerificationCode Field = iota + 1
	FieldEmail
	FieldPaymentStatus
	FieldVerificationStatus
	FieldVerificationDate
	FieldDiscordUserID
	FieldDiscordUsername
	FieldDiscordRoles
	FieldNameFull
	FieldCurrentEventYear
)

var fieldNames = map[Field]string{
	FieldVerificationCode:   "VERIFICATION_CODE",
	FieldEmail:              "EMAIL",
	FieldPaymentStatus:      "PAYMENT_STATUS",
	FieldVerificationStatus: "VERIFICATION_STATUS",
	FieldVerificationDate:   "VERIFICATION_DATE",
	FieldDiscordUserID:      "DISCORD_USER_ID",
	FieldDiscordUsername:    "DISCORD_USERNAME",
	FieldDiscordRoles:       "DISCORD_ROLES",
	FieldNameFull:           "NAME_FULL",
	FieldCurrentEventYear:   "CURRENT_EVENT_YEAR",
}

func (f Field) String() string {
	if s, ok := fieldNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

func ParseField(s string) (Field, bool) {
	for f, name := range fieldNames {
		if name == s {
			return f, true
		}
	}
	return 0, false
}

// Values stored in the single-select fields of a registration table.
const (
	PaymentPaidInFull = "Paid in Full"
	PaymentActivePlan = "Active Payment Plan"
	PaymentIncomplete = "Incomplete"
	StatusVerified    = "Verified"
	StatusUnverified  = "Unverified"
)
