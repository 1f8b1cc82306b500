package app

import (
	"log/slog"
	"mime"
)

// Minimal container images ship without /etc/mime.types, so the static
// file server would fall back to sniffing.
var staticMimeTypes = map[string]string{
	".css": "text/css; charset=utf-8",
	".js":  "text/javascript; charset=utf-8",
	".svg": "image/svg+xml",
}

func init() {
	for ext, typ := range staticMimeTypes {
		ensureMimeType(ext, typ)
	}
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		slog.Default().Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
	}
}
