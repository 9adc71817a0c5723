package lsp

import (
	"context"
	"encoding/json"
	"fmt"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	linterrors "github.com/conduit-lang/rulelint/internal/lint/errors"
	"github.com/conduit-lang/rulelint/internal/lint/report"
)

// SourceFixAll is the code action kind applying every correction at once
const SourceFixAll protocol.CodeActionKind = "source.fixAll.rulelint"

func (s *Server) handleTextDocumentDidOpen(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse didOpen params")
	}

	u := params.TextDocument.URI
	s.log.Debug("document opened", zap.String("uri", string(u)), zap.Int32("version", params.TextDocument.Version))
	s.open(u, params.TextDocument.Text, params.TextDocument.Version)
	s.publishDiagnostics(ctx, u)

	return reply(ctx, nil, nil)
}

func (s *Server) handleTextDocumentDidChange(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse didChange params")
	}
	if len(params.ContentChanges) == 0 {
		return reply(ctx, nil, nil)
	}

	// Full document sync: the last change holds the whole text
	u := params.TextDocument.URI
	s.open(u, params.ContentChanges[len(params.ContentChanges)-1].Text, params.TextDocument.Version)
	s.publishDiagnostics(ctx, u)

	return reply(ctx, nil, nil)
}

func (s *Server) handleTextDocumentDidClose(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse didClose params")
	}

	u := params.TextDocument.URI
	s.close(u)
	s.publish(ctx, &protocol.PublishDiagnosticsParams{URI: u, Diagnostics: []protocol.Diagnostic{}})

	return reply(ctx, nil, nil)
}

func (s *Server) handleTextDocumentDidSave(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidSaveTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse didSave params")
	}

	s.publishDiagnostics(ctx, params.TextDocument.URI)
	return reply(ctx, nil, nil)
}

func (s *Server) handleTextDocumentCodeAction(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.CodeActionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse codeAction params")
	}

	u := params.TextDocument.URI
	doc, ok := s.document(u)
	if !ok {
		return reply(ctx, []protocol.CodeAction{}, nil)
	}

	actions := []protocol.CodeAction{}
	if wants(params.Context.Only, protocol.QuickFix) {
		for _, v := range s.lint(u, doc.text) {
			if v.Replacement == nil || v.Line == 0 {
				continue
			}
			diag := s.diagnostic(doc.text, v)
			if !overlaps(diag.Range, params.Range) {
				continue
			}
			actions = append(actions, protocol.CodeAction{
				Title:       fmt.Sprintf("Fix %s: replace with %q", v.Rule, *v.Replacement),
				Kind:        protocol.QuickFix,
				Diagnostics: []protocol.Diagnostic{diag},
				IsPreferred: true,
				Edit: &protocol.WorkspaceEdit{
					Changes: map[protocol.DocumentURI][]protocol.TextEdit{
						u: {{Range: diag.Range, NewText: *v.Replacement}},
					},
				},
			})
		}
	}

	if wants(params.Context.Only, SourceFixAll) {
		if edits := s.fixAll(u, doc.text); len(edits) > 0 {
			actions = append(actions, protocol.CodeAction{
				Title: "Fix all rulelint violations",
				Kind:  SourceFixAll,
				Edit: &protocol.WorkspaceEdit{
					Changes: map[protocol.DocumentURI][]protocol.TextEdit{u: edits},
				},
			})
		}
	}

	return reply(ctx, actions, nil)
}

func (s *Server) handleTextDocumentFormatting(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DocumentFormattingParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse formatting params")
	}

	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return reply(ctx, []protocol.TextEdit{}, nil)
	}
	return reply(ctx, s.fixAll(params.TextDocument.URI, doc.text), nil)
}

// wants reports whether kind passes the client's "only" filter
func wants(only []protocol.CodeActionKind, kind protocol.CodeActionKind) bool {
	if len(only) == 0 {
		return true
	}
	for _, k := range only {
		if k == kind || (k == protocol.Source && kind == SourceFixAll) {
			return true
		}
	}
	return false
}

// fixAll returns a single edit replacing the document with its fully
// corrected text, or none when nothing changes
func (s *Server) fixAll(u protocol.DocumentURI, text string) []protocol.TextEdit {
	res, err := s.engine.FixDocument(s.path(u), text)
	if err != nil {
		s.log.Warn("correction failed", zap.String("uri", string(u)), zap.Error(err))
		return []protocol.TextEdit{}
	}
	if !res.Changed() || res.Content == text {
		return []protocol.TextEdit{}
	}
	return []protocol.TextEdit{{Range: fullRange(text), NewText: res.Content}}
}

func (s *Server) lint(u protocol.DocumentURI, text string) []report.Violation {
	res := s.engine.LintDocument(s.path(u), text)
	for _, err := range res.Errors {
		s.log.Warn("lint problem", zap.String("uri", string(u)), zap.Error(err))
	}
	return res.Violations
}

// publishDiagnostics lints an open document and publishes the result
func (s *Server) publishDiagnostics(ctx context.Context, u protocol.DocumentURI) {
	doc, ok := s.document(u)
	if !ok {
		return
	}

	violations := s.lint(u, doc.text)
	diagnostics := make([]protocol.Diagnostic, 0, len(violations))
	for _, v := range violations {
		diagnostics = append(diagnostics, s.diagnostic(doc.text, v))
	}

	s.publish(ctx, &protocol.PublishDiagnosticsParams{
		URI:         u,
		Version:     uint32(doc.version),
		Diagnostics: diagnostics,
	})
}

func (s *Server) publish(ctx context.Context, params *protocol.PublishDiagnosticsParams) {
	if s.client == nil {
		return
	}
	if err := s.client.PublishDiagnostics(ctx, params); err != nil {
		s.log.Warn("publishing diagnostics failed", zap.Error(err))
	}
}

// diagnostic converts a violation. Path rule violations carry no offsets
// and are pinned to the start of the document.
func (s *Server) diagnostic(text string, v report.Violation) protocol.Diagnostic {
	var r protocol.Range
	if v.Line > 0 {
		r = rangeOf(text, v.Start, v.End)
	}
	msg := v.Hint
	if msg == "" {
		msg = fmt.Sprintf("matched rule %s", v.Rule)
	}
	if v.Replacement != nil {
		msg += fmt.Sprintf(" (fix: %q)", *v.Replacement)
	}
	return protocol.Diagnostic{
		Range:    r,
		Severity: convertSeverity(v.Severity),
		Code:     v.Rule,
		Source:   Source,
		Message:  msg,
	}
}

// convertSeverity converts rule severity to LSP severity
func convertSeverity(severity linterrors.Severity) protocol.DiagnosticSeverity {
	switch severity {
	case linterrors.Info:
		return protocol.DiagnosticSeverityInformation
	case linterrors.Warning:
		return protocol.DiagnosticSeverityWarning
	default:
		return protocol.DiagnosticSeverityError
	}
}
