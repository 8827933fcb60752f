// Package swaggerkit serves the census API document and the Swagger UI
package swaggerkit

import (
	"net/http"

	phttp "heapcensus/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Options configures the docs routes
type Options struct {
	Enabled bool
	// Base is where the API is mounted, also the OAS3 server url
	Base string
	// Hide drops documented paths under these module prefixes
	Hide []string
}

// Mount registers /docs, /docs/doc.json and the UI on r, which is the router mounted at Base
func Mount(r phttp.Router, opt Options) {
	if !opt.Enabled {
		return
	}
	docURL := opt.Base + "/docs/doc.json"
	r.Get("/docs", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, opt.Base+"/docs/", http.StatusPermanentRedirect)
	})
	r.Get("/docs/doc.json", serveDocJSON(opt))
	r.Handle("/docs/*", httpSwagger.Handler(
		httpSwagger.InstanceName("heapcensus"),
		httpSwagger.URL(docURL),
	))
}
