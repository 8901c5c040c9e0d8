package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/webfetchd/internal/packet"
	"github.com/fyrsmithlabs/webfetchd/internal/resource"
	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

// registerPacketResources exposes a newly stored packet under its
// webfetch:// URIs. The screenshot view is registered only when present.
func (s *Server) registerPacketResources(p *packet.Packet) {
	kinds := []resource.Kind{resource.KindPacket, resource.KindContent, resource.KindNormalized}
	if p.ScreenshotBase64 != "" {
		kinds = append(kinds, resource.KindScreenshot)
	}
	title := p.Metadata.Title
	if title == "" {
		title = p.CanonicalURL
	}
	for _, kind := range kinds {
		uri := resource.URI{Kind: kind, SourceID: p.SourceID}
		s.mcp.AddResource(
			&mcp.Resource{
				Name:        fmt.Sprintf("%s (%s)", title, kind),
				URI:         uri.String(),
				Description: fmt.Sprintf("%s view of %s", kind, p.CanonicalURL),
				MIMEType:    kind.MimeType(),
			},
			s.makeResourceHandler(uri),
		)
	}
	s.logger.Debug("registered packet resources",
		zap.String("source_id", p.SourceID),
		zap.Int("kinds", len(kinds)))
}

func (s *Server) makeResourceHandler(uri resource.URI) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return s.readResource(uri)
	}
}

func (s *Server) readResource(uri resource.URI) (*mcp.ReadResourceResult, error) {
	p, err := s.store.Resolve(uri)
	if err != nil {
		return nil, err
	}

	contents := &mcp.ResourceContents{
		URI:      uri.String(),
		MIMEType: uri.Kind.MimeType(),
	}
	switch uri.Kind {
	case resource.KindPacket:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, werrors.Wrap(werrors.CodeUnexpectedError, err)
		}
		contents.Text = string(data)
	case resource.KindContent:
		contents.Text = p.Content
	case resource.KindNormalized:
		data, err := json.Marshal(normalizedViewOf(p))
		if err != nil {
			return nil, werrors.Wrap(werrors.CodeUnexpectedError, err)
		}
		contents.Text = string(data)
	case resource.KindScreenshot:
		if p.ScreenshotBase64 == "" {
			return nil, werrors.Newf(werrors.CodeResourceNotFound, "no screenshot stored for source id %q", uri.SourceID)
		}
		blob, err := base64.StdEncoding.DecodeString(p.ScreenshotBase64)
		if err != nil {
			return nil, werrors.Wrap(werrors.CodeUnexpectedError, err)
		}
		contents.Blob = blob
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{contents},
	}, nil
}
