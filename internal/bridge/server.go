package bridge

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/browser"
	"github.com/skip2/go-qrcode"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	DefaultQRWidth = 360
	minQRWidth     = 64
	maxQRWidth     = 2048
	pngDataPrefix  = "data:image/png;base64,"
)

type apiProxy interface {
	Do(ctx context.Context, method, path string, body any) (any, error)
	BaseURL() string
}

// Server implements BridgeServer.
type Server struct {
	proxy     apiProxy
	exportDir string
	openURL   func(string) error
	log       *slog.Logger
}

var _ BridgeServer = (*Server)(nil)

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithURLOpener replaces the browser launcher.
func WithURLOpener(open func(string) error) ServerOption {
	return func(s *Server) { s.openURL = open }
}

// NewServer creates a Server. Saved files go to exportDir.
func NewServer(log *slog.Logger, proxy apiProxy, exportDir string, opts ...ServerOption) *Server {
	s := &Server{
		proxy:     proxy,
		exportDir: exportDir,
		openURL:   browser.OpenURL,
		log:       log.With("component", "bridge"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// APIGet forwards a GET to the backend. Request: {path}.
func (s *Server) APIGet(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	out, err := s.proxy.Do(ctx, http.MethodGet, stringField(req, "path"), nil)
	if err != nil {
		return nil, toStatus(err)
	}
	return toValue(out)
}

// APIPost forwards a POST to the backend. Request: {path, body}.
func (s *Server) APIPost(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	var body any
	if v, ok := req.GetFields()["body"]; ok {
		body = v.AsInterface()
	}

	out, err := s.proxy.Do(ctx, http.MethodPost, stringField(req, "path"), body)
	if err != nil {
		return nil, toStatus(err)
	}
	return toValue(out)
}

// OpenExternal opens a URL in the system browser. Relative URLs are
// resolved against the backend base URL. Request: {url}.
func (s *Server) OpenExternal(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	raw := strings.TrimSpace(stringField(req, "url"))
	if raw == "" {
		return nil, invalidArgument("url", "required")
	}

	target, err := url.Parse(raw)
	if err != nil {
		return nil, invalidArgument("url", "invalid")
	}
	if !target.IsAbs() {
		base, err := url.Parse(s.proxy.BaseURL())
		if err != nil || s.proxy.BaseURL() == "" {
			return nil, status.Error(codes.Unavailable, "backend base url unknown")
		}
		target = base.ResolveReference(target)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, invalidArgument("url", "only http and https are allowed")
	}

	if err := s.openURL(target.String()); err != nil {
		s.log.WarnContext(ctx, "open url failed", slog.String("url", target.String()), slog.String("error", err.Error()))
		return nil, status.Error(codes.Internal, "open url: "+err.Error())
	}
	s.log.InfoContext(ctx, "url opened", slog.String("url", target.String()))

	return okValue(map[string]any{"url": target.String()})
}

// SavePNG decodes a PNG data URL and writes it to the export directory.
// Request: {filename, dataUrl}.
func (s *Server) SavePNG(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	dataURL := stringField(req, "dataUrl")
	if !strings.HasPrefix(dataURL, pngDataPrefix) {
		return nil, invalidArgument("dataUrl", "invalid dataUrl")
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, pngDataPrefix))
	if err != nil || len(data) == 0 {
		return nil, invalidArgument("dataUrl", "invalid dataUrl")
	}

	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("create export dir: %v", err))
	}
	path := filepath.Join(s.exportDir, sanitizeFilename(stringField(req, "filename"), ".png"))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("write file: %v", err))
	}
	s.log.InfoContext(ctx, "png saved", slog.String("path", path), slog.Int("bytes", len(data)))

	return okValue(map[string]any{"path": path})
}

// SavePDF is not supported: there is no print-to-PDF surface.
func (s *Server) SavePDF(context.Context, *structpb.Struct) (*structpb.Value, error) {
	return nil, status.Error(codes.Unimplemented, "pdf export is not supported")
}

// ToDataURL renders text as a QR code PNG data URL. Request: {text, width?}.
func (s *Server) ToDataURL(_ context.Context, req *structpb.Struct) (*structpb.Value, error) {
	text := stringField(req, "text")
	if text == "" {
		return nil, invalidArgument("text", "required")
	}

	width := DefaultQRWidth
	if v, ok := req.GetFields()["width"]; ok {
		width = int(v.GetNumberValue())
	}
	if width < minQRWidth || width > maxQRWidth {
		return nil, invalidArgument("width", fmt.Sprintf("must be between %d and %d", minQRWidth, maxQRWidth))
	}

	png, err := qrcode.Encode(text, qrcode.Medium, width)
	if err != nil {
		return nil, invalidArgument("text", err.Error())
	}
	return structpb.NewStringValue(pngDataPrefix + base64.StdEncoding.EncodeToString(png)), nil
}

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

func toValue(v any) (*structpb.Value, error) {
	out, err := structpb.NewValue(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response: "+err.Error())
	}
	return out, nil
}

func okValue(fields map[string]any) (*structpb.Value, error) {
	fields["ok"] = true
	return toValue(fields)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeFilename keeps the base name, replaces unsafe characters and
// forces ext.
func sanitizeFilename(name, ext string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Trim(unsafeFilenameChars.ReplaceAllString(name, "_"), "._")
	if name == "" {
		name = "qr"
	}
	return name + ext
}
