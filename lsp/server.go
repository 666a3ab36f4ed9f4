package lsp

import (
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"

	"github.com/dhamidi/perlsp/perl/parser"
)

const lsName = "perlsp"

var log = commonlog.GetLogger("perlsp.lsp")

// Server is a language server that keeps every open Perl document parsed
// and publishes its syntax errors.
type Server struct {
	store   *Store
	handler protocol.Handler
	server  *server.Server
	version string
}

func NewServer(version string) *Server {
	ls := &Server{
		store:   NewStore(),
		version: version,
	}

	ls.handler = protocol.Handler{
		Initialize:            ls.initialize,
		Initialized:           ls.initialized,
		Shutdown:              ls.shutdown,
		SetTrace:              ls.setTrace,
		TextDocumentDidOpen:   ls.textDocumentDidOpen,
		TextDocumentDidChange: ls.textDocumentDidChange,
		TextDocumentDidClose:  ls.textDocumentDidClose,
		TextDocumentHover:     ls.textDocumentHover,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *Server) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *Server) RunWebSocket(addr string) error {
	return ls.server.RunWebSocket(addr)
}

// Store exposes the open documents.
func (ls *Server) Store() *Store {
	return ls.store
}

func (ls *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindIncremental),
	}
	capabilities.HoverProvider = true

	log.Infof("initialize: %s %s", lsName, ls.version)

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (ls *Server) shutdown(ctx *glsp.Context) error {
	log.Infof("shutdown")
	return nil
}

func (ls *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	doc := ls.store.Open(params.TextDocument.URI, params.TextDocument.Version, []byte(params.TextDocument.Text))
	log.Debugf("open %s: %d nodes, %d errors", doc.URI, doc.Tree.NodeCount(), len(doc.Tree.Errors))
	ls.publish(ctx, doc.URI, Diagnostics(doc))
	return nil
}

func (ls *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	doc, metrics, err := ls.store.Change(params.TextDocument.URI, params.TextDocument.Version, params.ContentChanges)
	if err != nil {
		log.Warningf("change: %s", err)
		return nil
	}
	for _, m := range metrics {
		logMetrics(doc.URI, m)
	}
	ls.publish(ctx, doc.URI, Diagnostics(doc))
	return nil
}

func (ls *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	ls.store.Close(params.TextDocument.URI)
	ls.publish(ctx, params.TextDocument.URI, []protocol.Diagnostic{})
	return nil
}

func (ls *Server) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc := ls.store.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	return Hover(doc, doc.Offset(params.Position)), nil
}

func (ls *Server) publish(ctx *glsp.Context, uri string, diags []protocol.Diagnostic) {
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}

func logMetrics(uri string, m parser.Metrics) {
	log.Debugf("reparse %s: %s, reused %d, rebuilt %d, %s", uri, m.Strategy, m.Reused, m.Rebuilt, m.Elapsed)
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(kind protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &kind
}
