package access

import (
	"errors"

	"soapnotes-app/internal/domain/profiles"
)

var ErrForbidden = errors.New("forbidden")

// Field names a mutable profile attribute.
type Field string

const (
	FieldOccupation Field = "occupation"
	FieldName       Field = "name"
	FieldAddress    Field = "address"
	FieldPassword   Field = "password"
	FieldRole       Field = "role"
	FieldPlan       Field = "plan"
	FieldBilling    Field = "billing_customer"
)

// Actor is whoever asks for a change: a signed-in user or a system caller.
type Actor struct {
	UserID string
	Role   profiles.Role
	System bool
}

// BillingWebhook is the actor used for plan changes driven by the payment provider.
var BillingWebhook = Actor{UserID: "billing-webhook", System: true}

func UserActor(p profiles.Profile) Actor {
	return Actor{UserID: p.ID, Role: p.Role}
}

type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Err converts a denial into an error wrapping ErrForbidden.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Reason: d.Reason}
}

type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string { return "forbidden: " + e.Reason }

func (e *DeniedError) Unwrap() error { return ErrForbidden }
