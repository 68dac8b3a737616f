// Package router mounts the handler groups under a versioned API prefix.
package router

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

// Router mounts the versioned API on a gin engine
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	groups     []*DomainGroup
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion sets the version segment of the API prefix ("v1" by default)
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.apiVersion = version }
}

// WithAPIMiddleware adds middleware that runs only for /api routes, after
// the engine-wide chain. Health and metrics stay outside it.
func WithAPIMiddleware(middleware ...gin.HandlerFunc) RouterOption {
	return func(r *Router) { r.middleware = append(r.middleware, middleware...) }
}

// NewRouter creates a Router for engine
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues groups; nothing is mounted until Setup
func (r *Router) Register(groups ...*DomainGroup) *Router {
	r.groups = append(r.groups, groups...)
	return r
}

func (r *Router) basePath() string {
	return "/api/" + r.apiVersion
}

// Setup mounts every registered group and returns the API group
func (r *Router) Setup() *gin.RouterGroup {
	api := r.engine.Group(r.basePath())
	if len(r.middleware) > 0 {
		api.Use(r.middleware...)
	}
	for _, g := range r.groups {
		g.mount(api)
	}
	return api
}

// Routes lists the mounted API routes as "METHOD /path", sorted by path
func (r *Router) Routes() []string {
	prefix := r.basePath() + "/"
	var out []string
	for _, ri := range r.engine.Routes() {
		if strings.HasPrefix(ri.Path, prefix) || ri.Path == r.basePath() {
			out = append(out, ri.Method+" "+ri.Path)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		_, pi, _ := strings.Cut(out[i], " ")
		_, pj, _ := strings.Cut(out[j], " ")
		if pi != pj {
			return pi < pj
		}
		return out[i] < out[j]
	})
	return out
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// DomainGroup is the declarative route tree of one resource
type DomainGroup struct {
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
	children   []*DomainGroup
}

// NewDomainGroup starts a group mounted at prefix
func NewDomainGroup(prefix string) *DomainGroup {
	return &DomainGroup{prefix: prefix}
}

// Use adds middleware to this group and its subgroups
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, handlers)
}

func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, handlers)
}

func (dg *DomainGroup) PATCH(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPatch, path, handlers)
}

func (dg *DomainGroup) DELETE(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodDelete, path, handlers)
}

func (dg *DomainGroup) handle(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, route{method: method, path: path, handlers: handlers})
	return dg
}

// Group nests a subgroup under this group's prefix and returns it
func (dg *DomainGroup) Group(prefix string) *DomainGroup {
	child := NewDomainGroup(prefix)
	dg.children = append(dg.children, child)
	return child
}

func (dg *DomainGroup) mount(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix, dg.middleware...)
	for _, rt := range dg.routes {
		group.Handle(rt.method, rt.path, rt.handlers...)
	}
	for _, child := range dg.children {
		child.mount(group)
	}
}
