package delivery

import (
	"net/url"
	"strings"
)

// Default route paths on the document service.
const (
	DefaultIntegrityPath = "/api/enhanced-documents/check-integrity"
	DefaultStandardPath  = "/api/documents/download"
	DefaultSecurePath    = "/api/enhanced-documents/download"
)

// Routes locates the integrity check and the two download routes.
type Routes struct {
	BaseURL       string
	IntegrityPath string
	StandardPath  string
	SecurePath    string
}

// DefaultRoutes returns the standard route layout under baseURL.
func DefaultRoutes(baseURL string) Routes {
	return Routes{
		BaseURL:       baseURL,
		IntegrityPath: DefaultIntegrityPath,
		StandardPath:  DefaultStandardPath,
		SecurePath:    DefaultSecurePath,
	}
}

// IntegrityURL returns the integrity check URL for path.
func (r Routes) IntegrityURL(path string) string {
	q := url.Values{}
	q.Set("path", path)
	q.Set("validateIntegrity", "true")
	return r.join(r.IntegrityPath) + "?" + q.Encode()
}

// DownloadURL returns the secure or standard download URL for path.
func (r Routes) DownloadURL(path string, secure bool) string {
	p := r.StandardPath
	if secure {
		p = r.SecurePath
	}
	q := url.Values{}
	q.Set("path", path)
	return r.join(p) + "?" + q.Encode()
}

func (r Routes) join(p string) string {
	return strings.TrimRight(r.BaseURL, "/") + "/" + strings.TrimLeft(p, "/")
}
