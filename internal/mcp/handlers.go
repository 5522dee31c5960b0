package mcp

import (
	"context"
	"errors"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/rowguard/internal/guard"
)

// AskInput defines parameters for the rowguard_ask tool.
type AskInput struct {
	Request string `json:"request" jsonschema:"natural-language question about the session user's record"`
}

// AskOutput contains the pipeline outcome for a request.
type AskOutput struct {
	State           string   `json:"state"`
	Response        string   `json:"response,omitempty"`
	Reason          string   `json:"reason,omitempty"`
	Query           string   `json:"query,omitempty"`
	SuggestedQuery  string   `json:"suggested_query,omitempty"`
	SensitiveFields []string `json:"sensitive_fields,omitempty"`
	Sanitized       bool     `json:"sanitized,omitempty"`
	Withheld        bool     `json:"withheld,omitempty"`
}

// VerifyInput defines parameters for the rowguard_verify tool.
type VerifyInput struct {
	Query string `json:"query" jsonschema:"SQL query to verify against safety policy"`
}

// VerifyOutput contains the dry-run safety verdict.
type VerifyOutput struct {
	Safe           bool   `json:"safe"`
	Reason         string `json:"reason"`
	SuggestedQuery string `json:"suggested_query,omitempty"`
}

// WhoamiInput is empty, no parameters needed.
type WhoamiInput struct{}

// WhoamiOutput describes the session principal and active policy.
type WhoamiOutput struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	AccessLevel string `json:"access_level"`
	SessionID   string `json:"session_id"`
	PolicyHash  string `json:"policy_hash"`
}

func outcomeToOutput(out *guard.Outcome) AskOutput {
	o := AskOutput{
		State:           string(out.State),
		Response:        out.Response,
		Reason:          out.Reason,
		Query:           out.Query,
		SensitiveFields: out.SensitiveFields,
		Sanitized:       out.Sanitized,
		Withheld:        out.Withheld,
	}
	if out.SuggestedQuery != nil {
		o.SuggestedQuery = *out.SuggestedQuery
	}
	return o
}

func (s *Server) handleAsk(ctx context.Context, req *mcpsdk.CallToolRequest, input AskInput) (*mcpsdk.CallToolResult, AskOutput, error) {
	out, err := s.guard.Ask(ctx, input.Request)
	if err != nil {
		var denied *guard.DeniedError
		var blocked *guard.BlockedError
		if errors.As(err, &denied) || errors.As(err, &blocked) {
			return &mcpsdk.CallToolResult{IsError: true}, outcomeToOutput(out), nil
		}
		return nil, AskOutput{}, err
	}
	return nil, outcomeToOutput(out), nil
}

func (s *Server) handleVerify(ctx context.Context, req *mcpsdk.CallToolRequest, input VerifyInput) (*mcpsdk.CallToolResult, VerifyOutput, error) {
	v, err := s.safety.Review(ctx, input.Query)
	if err != nil {
		return nil, VerifyOutput{}, err
	}

	out := VerifyOutput{
		Safe:   v.Safe,
		Reason: v.Reason,
	}
	if v.SuggestedQuery != nil {
		out.SuggestedQuery = *v.SuggestedQuery
	}
	return nil, out, nil
}

func (s *Server) handleWhoami(ctx context.Context, req *mcpsdk.CallToolRequest, input WhoamiInput) (*mcpsdk.CallToolResult, WhoamiOutput, error) {
	p := s.guard.Principal()
	return nil, WhoamiOutput{
		ID:          p.ID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Email:       p.Email,
		AccessLevel: p.Access.String(),
		SessionID:   s.guard.Session().ID,
		PolicyHash:  s.guard.PolicyHash(),
	}, nil
}
