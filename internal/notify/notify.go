// Package notify defines the outbound notification contract. Rendering and
// delivery are owned by an external gateway; this core only supplies a use
// case tag and a flat parameter map.
package notify

import "context"

// UseCase tags a notification template on the gateway side.
type UseCase string

// Notification use cases emitted by the account orchestrator.
const (
	UseCaseAccountConfirmation UseCase = "account_confirmation"
	UseCasePasswordReset       UseCase = "password_reset"
	UseCaseEmailChange         UseCase = "email_change"
)

// Parameter keys understood by the gateway templates.
const (
	ParamActivationURL = "ActivationUrl"
	ParamResetURL      = "ResetUrl"
	ParamFirstName     = "UserFirstName"
)

// Gateway delivers a notification asynchronously. Send failures are
// reported but not retried here.
type Gateway interface {
	// Send queues a message for the recipients. Params are template inputs.
	Send(ctx context.Context, useCase UseCase, recipients []string, params map[string]string) error
}
