package models

import "errors"

// NodeType discriminates trigger nodes from action ("target") nodes.
type NodeType string

const (
	NodeTypeTrigger NodeType = "trigger"
	NodeTypeTarget  NodeType = "target"
)

// NodeKind identifies the concrete behavior of a node.
type NodeKind string

const (
	// Trigger kinds.
	NodeKindManual   NodeKind = "manual"
	NodeKindWebhook  NodeKind = "webhook"
	NodeKindSchedule NodeKind = "schedule"

	// Action kinds.
	NodeKindEmail    NodeKind = "email"
	NodeKindTelegram NodeKind = "telegram"
)

// Node is a single vertex of a workflow graph. Position is presentation
// state for the editor and never affects execution.
type Node struct {
	ID        string       `json:"id"   validate:"required"`
	Kind      NodeKind     `json:"kind" validate:"required"`
	Type      NodeType     `json:"type" validate:"required,oneof=trigger target"`
	PositionX float64      `json:"position_x"`
	PositionY float64      `json:"position_y"`
	Metadata  NodeMetadata `json:"metadata"`
}

func (n *Node) IsTrigger() bool {
	return n.Type == NodeTypeTrigger
}

func (n *Node) IsAction() bool {
	return n.Type == NodeTypeTarget
}

// NodeMetadata is a tagged union keyed by the node's Kind. Exactly the
// member matching the kind is consulted; the rest stay nil.
type NodeMetadata struct {
	Email    *EmailMetadata    `json:"email,omitempty"`
	Telegram *TelegramMetadata `json:"telegram,omitempty"`
	Schedule *ScheduleMetadata `json:"schedule,omitempty"`
	Webhook  *WebhookMetadata  `json:"webhook,omitempty"`
}

// EmailMetadata configures an email action node.
type EmailMetadata struct {
	To      string `json:"to"      validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// TelegramMetadata configures a Telegram message action node.
type TelegramMetadata struct {
	ChatID  string `json:"chat_id" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// ScheduleMetadata configures a cron-based trigger node.
type ScheduleMetadata struct {
	Cron string `json:"cron" validate:"required"`
}

// WebhookMetadata configures a webhook trigger node. The workflow ID in
// the inbound URL path is the only routing input, so there is nothing to
// configure yet.
type WebhookMetadata struct{}

var (
	ErrMetadataMissing    = errors.New("node metadata missing for kind")
	ErrMetadataIncomplete = errors.New("node metadata incomplete for kind")
	ErrUnknownNodeKind    = errors.New("unknown node kind")
)

// ValidateForKind checks that the metadata member matching kind is present
// and fully populated. Manual and webhook triggers carry no metadata.
func (m NodeMetadata) ValidateForKind(kind NodeKind) error {
	switch kind {
	case NodeKindManual, NodeKindWebhook:
		return nil
	case NodeKindSchedule:
		if m.Schedule == nil {
			return ErrMetadataMissing
		}

		if m.Schedule.Cron == "" {
			return ErrMetadataIncomplete
		}

		return nil
	case NodeKindEmail:
		if m.Email == nil {
			return ErrMetadataMissing
		}

		if m.Email.To == "" || m.Email.Subject == "" || m.Email.Message == "" {
			return ErrMetadataIncomplete
		}

		return nil
	case NodeKindTelegram:
		if m.Telegram == nil {
			return ErrMetadataMissing
		}

		if m.Telegram.ChatID == "" || m.Telegram.Message == "" {
			return ErrMetadataIncomplete
		}

		return nil
	default:
		return ErrUnknownNodeKind
	}
}
