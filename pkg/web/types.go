// Package web provides HTTP request and response types for the workflow API.
package web

import (
	"time"

	"github.com/hookline/hookline/pkg/models"
)

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	Name  string         `json:"name" validate:"required,min=3"`
	Nodes []*models.Node `json:"nodes"`
	Edges []*models.Edge `json:"edges"`
}

// UpdateWorkflowRequest replaces the graph of an existing workflow.
type UpdateWorkflowRequest struct {
	Nodes []*models.Node `json:"nodes"`
	Edges []*models.Edge `json:"edges"`
}

// CreateCredentialRequest represents the request body for storing a credential.
type CreateCredentialRequest struct {
	Name     string                     `json:"name" validate:"required"`
	Kind     models.CredentialKind      `json:"kind" validate:"required,oneof=smtp telegram"`
	SMTP     *models.SMTPCredential     `json:"smtp,omitempty"`
	Telegram *models.TelegramCredential `json:"telegram,omitempty"`
}

// CredentialResponse is a credential with its secret fields redacted.
type CredentialResponse struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Kind      models.CredentialKind `json:"kind"`
	CreatedAt time.Time             `json:"created_at"`
}

func toCredentialResponse(credential *models.Credential) CredentialResponse {
	return CredentialResponse{
		ID:        credential.ID,
		Name:      credential.Name,
		Kind:      credential.Kind,
		CreatedAt: credential.CreatedAt,
	}
}
