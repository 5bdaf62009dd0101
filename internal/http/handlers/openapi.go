package handlers

import (
	_ "embed"
	"net/http"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

//go:embed openapi.json
var openAPISpec []byte

var openAPIETag = `"` + strconv.FormatUint(xxhash.Sum64(openAPISpec), 16) + `"`

const redocHTML = `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>Content Generation API</title>
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <style>body { margin: 0; } redoc { display: block; height: 100vh; }</style>
  </head>
  <body>
    <redoc spec-url="/v1/openapi.json"></redoc>
    <script src="https://cdn.jsdelivr.net/npm/redoc@2.2.0/bundles/redoc.standalone.js"></script>
  </body>
</html>`

// OpenAPIJSON serves the embedded API document with a content-hash ETag.
func (a *App) OpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("ETag", openAPIETag)
	w.Header().Set("Cache-Control", "public, max-age=300")
	if r.Header.Get("If-None-Match") == openAPIETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}

func (a *App) OpenAPIDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(redocHTML))
}
