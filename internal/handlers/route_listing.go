package handlers

import (
	"html/template"
	"net/http"
	"sort"
	"strings"

	"satprep/internal/observability"

	"github.com/gin-gonic/gin"
)

// RouteInfo represents information about a single route
type RouteInfo struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	HandlerName string `json:"handler_name"`
}

// RouteListingHandler serves the list of registered routes at /
type RouteListingHandler struct {
	serviceName string
	routes      []RouteInfo
}

// NewRouteListingHandler creates a new route listing handler
func NewRouteListingHandler(serviceName string) *RouteListingHandler {
	return &RouteListingHandler{
		serviceName: serviceName,
		routes:      []RouteInfo{},
	}
}

// CollectRoutes snapshots the engine's routes sorted by path then method. Call it after
// every route is registered.
func (h *RouteListingHandler) CollectRoutes(engine *gin.Engine) {
	h.routes = []RouteInfo{}
	for _, route := range engine.Routes() {
		if strings.HasPrefix(route.Path, "/debug/") {
			continue
		}
		h.routes = append(h.routes, RouteInfo{
			Method:      route.Method,
			Path:        route.Path,
			HandlerName: route.Handler,
		})
	}

	sort.Slice(h.routes, func(i, j int) bool {
		if h.routes[i].Path == h.routes[j].Path {
			return h.routes[i].Method < h.routes[j].Method
		}
		return h.routes[i].Path < h.routes[j].Path
	})
}

var routeListingTemplate = template.Must(template.New("routes").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>{{.Service}} routes</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; padding: 20px; }
table { border-collapse: collapse; }
td, th { padding: 6px 12px; border-bottom: 1px solid #dee2e6; text-align: left; }
code { color: #6f42c1; }
</style>
</head>
<body>
<h1>{{.Service}}</h1>
<p>{{len .Routes}} routes ({{.Gets}} GET, {{.Posts}} POST) | <a href="/?json=true">JSON</a></p>
<table>
<tr><th>Method</th><th>Path</th><th>Handler</th></tr>
{{range .Routes}}<tr><td>{{.Method}}</td><td><code>{{.Path}}</code></td><td>{{.HandlerName}}</td></tr>
{{end}}</table>
</body>
</html>`))

// GetRouteListing renders the routes as HTML, or JSON when ?json=true
func (h *RouteListingHandler) GetRouteListing(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_route_listing")
	defer observability.FinishSpan(span, nil)

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	if c.Query("json") == "true" {
		c.JSON(http.StatusOK, h.routes)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := routeListingTemplate.Execute(c.Writer, struct {
		Service string
		Routes  []RouteInfo
		Gets    int
		Posts   int
	}{h.serviceName, h.routes, h.countMethods(http.MethodGet), h.countMethods(http.MethodPost)}); err != nil {
		_ = c.Error(err)
	}
}

// countMethods counts routes by HTTP method
func (h *RouteListingHandler) countMethods(method string) int {
	count := 0
	for _, route := range h.routes {
		if route.Method == method {
			count++
		}
	}
	return count
}
