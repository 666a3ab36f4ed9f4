package lsp

import (
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const diagnosticSource = "perlsp"

// Diagnostics converts the document's parse errors into protocol
// diagnostics. The result is never nil, so publishing it clears stale
// diagnostics.
func Diagnostics(doc *Document) []protocol.Diagnostic {
	diags := make([]protocol.Diagnostic, 0, len(doc.Tree.Errors))
	severity := protocol.DiagnosticSeverityError
	source := diagnosticSource
	for _, err := range doc.Tree.Errors {
		msg := err.Message
		if err.Found != "" {
			msg += ", found " + err.Found
		}
		diags = append(diags, protocol.Diagnostic{
			Range:    doc.Range(err.Range),
			Severity: &severity,
			Source:   &source,
			Message:  msg,
		})
	}
	return diags
}
