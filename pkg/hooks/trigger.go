package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/tendant/simple-company/pkg/errors"
	"github.com/tendant/simple-company/pkg/provisioning"
)

// Trigger source prefixes and values sent by the directory.
const (
	SourcePreSignUp                     = "PreSignUp_"
	SourcePreSignUpAdminCreateUser      = "PreSignUp_AdminCreateUser"
	SourcePostConfirmationConfirmSignUp = "PostConfirmation_ConfirmSignUp"
	sourcePostConfirmation              = "PostConfirmation_"
)

// Provisioner is the part of provisioning.Provisioner the triggers use.
type Provisioner interface {
	Validate(ctx context.Context, req provisioning.SignupRequest) (*provisioning.Attempt, error)
	Finalize(ctx context.Context, req provisioning.SignupRequest) (*provisioning.Attempt, *provisioning.Result, error)
}

// Handler answers the directory's pre sign-up and post confirmation triggers.
type Handler struct {
	provisioner Provisioner
}

func NewHandler(p Provisioner) *Handler {
	return &Handler{provisioner: p}
}

// Handle dispatches a raw trigger event on its triggerSource and returns the
// event to hand back to the directory. A returned error aborts the sign-up
// and its message is shown to the user.
func (h *Handler) Handle(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var header events.CognitoEventUserPoolsHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("invalid trigger event: %w", err)
	}

	switch {
	case strings.HasPrefix(header.TriggerSource, SourcePreSignUp):
		var event events.CognitoEventUserPoolsPreSignup
		if err := json.Unmarshal(raw, &event); err != nil {
			return nil, fmt.Errorf("invalid pre sign-up event: %w", err)
		}
		if err := h.PreSignUp(ctx, &event); err != nil {
			return nil, err
		}
		return json.Marshal(event)

	case strings.HasPrefix(header.TriggerSource, sourcePostConfirmation):
		var event events.CognitoEventUserPoolsPostConfirmation
		if err := json.Unmarshal(raw, &event); err != nil {
			return nil, fmt.Errorf("invalid post confirmation event: %w", err)
		}
		if err := h.PostConfirmation(ctx, &event); err != nil {
			return nil, err
		}
		return json.Marshal(event)

	default:
		slog.Info("Ignoring trigger", "triggerSource", header.TriggerSource, "userName", header.UserName)
		return raw, nil
	}
}

// PreSignUp validates a sign-up before the identity is created. Client
// metadata is caller controlled, so the creator it names is only honoured
// when the identity is created through the admin API.
func (h *Handler) PreSignUp(ctx context.Context, event *events.CognitoEventUserPoolsPreSignup) error {
	req := provisioning.RequestFromAttributes(event.UserName, event.Request.UserAttributes, event.Request.ClientMetadata)
	if event.TriggerSource != SourcePreSignUpAdminCreateUser {
		req.CreatorUsername = ""
	}
	if _, err := h.provisioner.Validate(ctx, req); err != nil {
		return triggerError(err)
	}
	return nil
}

// PostConfirmation writes the user row once the identity is confirmed.
// Password reset confirmations are passed through. A confirmation is always a
// self sign-up: admin created users are finalized by the service that
// created them, so any creator in the metadata is ignored.
func (h *Handler) PostConfirmation(ctx context.Context, event *events.CognitoEventUserPoolsPostConfirmation) error {
	if event.TriggerSource != SourcePostConfirmationConfirmSignUp {
		slog.Debug("Skipping post confirmation", "triggerSource", event.TriggerSource, "userName", event.UserName)
		return nil
	}
	req := provisioning.RequestFromAttributes(event.UserName, event.Request.UserAttributes, event.Request.ClientMetadata)
	req.CreatorUsername = ""
	if _, _, err := h.provisioner.Finalize(ctx, req); err != nil {
		return triggerError(err)
	}
	return nil
}

// triggerError keeps business messages and hides internal causes from the
// person signing up.
func triggerError(err error) error {
	var e *errors.Error
	if errors.As(err, &e) && errors.IsBusiness(err) {
		return fmt.Errorf("%s", e.Message)
	}
	slog.Error("Trigger failed", "error", err)
	return fmt.Errorf("sign-up could not be completed, please try again later")
}
