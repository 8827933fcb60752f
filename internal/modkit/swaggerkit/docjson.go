package swaggerkit

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"heapcensus/internal/platform/config"
	perr "heapcensus/internal/platform/errors"
)

//go:embed doc.json
var docJSON string

// docReader is a seam so tests can inject invalid JSON
var docReader = func() string { return docJSON }

func serveDocJSON(opt Options) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		var spec map[string]any
		if err := json.Unmarshal([]byte(docReader()), &spec); err != nil {
			http.Error(w, "spec parse error", http.StatusInternalServerError)
			return
		}

		liftToOAS3(spec, opt.Base)
		if v := config.New().Prefix("API_").MayString("DOCS_TITLE_SUFFIX", ""); v != "" {
			if info, ok := spec["info"].(map[string]any); ok {
				title, _ := info["title"].(string)
				info["title"] = strings.TrimSpace(title + " " + v)
			}
		}
		hidePaths(spec, opt.Hide)
		addErrorSchema(spec)
		addDefaultResponse(spec, http.StatusServiceUnavailable, perr.Detachedf("target is not attached"))
		addDefaultResponse(spec, http.StatusInternalServerError, perr.PanicErrf("internal error"))

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(spec)
	}
}

// liftToOAS3 turns the swagger 2 document into 3.0.3, the newest version the UI renders
func liftToOAS3(spec map[string]any, base string) {
	delete(spec, "swagger")
	delete(spec, "basePath")
	if v, _ := spec["openapi"].(string); v == "" || strings.HasPrefix(v, "3.1") {
		spec["openapi"] = "3.0.3"
	}
	if _, ok := spec["servers"]; !ok && base != "" {
		spec["servers"] = []any{map[string]any{"url": base}}
	}
}

func hidePaths(spec map[string]any, prefixes []string) {
	paths, _ := spec["paths"].(map[string]any)
	for p := range paths {
		for _, pre := range prefixes {
			if p == pre || strings.HasPrefix(p, pre+"/") {
				delete(paths, p)
			}
		}
	}
}

// addErrorSchema documents the error side of the response envelope
func addErrorSchema(spec map[string]any) {
	comps, _ := spec["components"].(map[string]any)
	if comps == nil {
		comps = map[string]any{}
		spec["components"] = comps
	}
	schemas, _ := comps["schemas"].(map[string]any)
	if schemas == nil {
		schemas = map[string]any{}
		comps["schemas"] = schemas
	}
	if _, ok := schemas["ErrorResponse"]; ok {
		return
	}
	codes := make([]any, 0, int(perr.ErrorCodeIntrospection)+1)
	for c := perr.ErrorCodeUnknown; c <= perr.ErrorCodeIntrospection; c++ {
		codes = append(codes, c.String())
	}
	schemas["ErrorResponse"] = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"status_code": map[string]any{"type": "integer"},
			"status":      map[string]any{"type": "string"},
			"code":        map[string]any{"type": "string", "enum": codes},
			"error":       map[string]any{"type": "string"},
			"field":       map[string]any{"type": "string"},
			"retryable":   map[string]any{"type": "boolean"},
			"request_id":  map[string]any{"type": "string"},
			"session_id":  map[string]any{"type": "string"},
		},
		"required": []any{"status_code", "status", "code"},
	}
}

// addDefaultResponse adds status to every operation lacking it, with example as the body
func addDefaultResponse(spec map[string]any, status int, example error) {
	paths, _ := spec["paths"].(map[string]any)
	w := perr.WireFrom(example)
	resp := map[string]any{
		"description": http.StatusText(status),
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/ErrorResponse"},
				"example": map[string]any{
					"status_code": status,
					"status":      http.StatusText(status),
					"code":        w.Code.String(),
					"error":       w.Message,
				},
			},
		},
	}
	key := strconv.Itoa(status)
	for _, node := range paths {
		ops, _ := node.(map[string]any)
		for _, opAny := range ops {
			op, ok := opAny.(map[string]any)
			if !ok {
				continue
			}
			responses, _ := op["responses"].(map[string]any)
			if responses == nil {
				responses = map[string]any{}
				op["responses"] = responses
			}
			if _, ok := responses[key]; !ok {
				responses[key] = resp
			}
		}
	}
}
