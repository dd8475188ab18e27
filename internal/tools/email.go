package tools

import (
	"fmt"

	"github.com/meowstack/agentflow/internal/model"
	"github.com/meowstack/agentflow/internal/registry"
)

type emailSendTool struct {
	mailer Mailer
}

// NewEmailSend returns the email_send tool.
func NewEmailSend(mailer Mailer) registry.Tool {
	return emailSendTool{mailer: mailer}
}

func (t emailSendTool) Meta() model.ToolMeta {
	return model.ToolMeta{
		ToolID:      "email_send",
		Description: "Sends an email notification.",
		Idempotent:  false,
		ParamSchema: []model.ParamSpec{
			stringParam("to", true),
			stringParam("subject", true),
			stringParam("body", true),
		},
	}
}

func (t emailSendTool) Execute(params map[string]any, runCtx registry.RunContext) (any, error) {
	if t.mailer == nil {
		return nil, fmt.Errorf("email_send: no mailer configured")
	}
	to, err := requireString(params, "to")
	if err != nil {
		return nil, err
	}
	subject, err := requireString(params, "subject")
	if err != nil {
		return nil, err
	}
	body, err := requireString(params, "body")
	if err != nil {
		return nil, err
	}

	if err := t.mailer.Send(runCtx.Context, to, subject, body); err != nil {
		return nil, fmt.Errorf("email_send: %w", err)
	}
	return map[string]any{"sent": true, "to": to}, nil
}
