// Package guard owns the route table and decides which views a visitor may
// reach. Protected views require a signed-in session; anything else is open.
package guard

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
)

// RouteName identifies an entry of the route table.
type RouteName string

// Routes.
const (
	RouteHome     RouteName = "home"
	RouteAuth     RouteName = "auth"
	RouteProjects RouteName = "projects"
	RouteProject  RouteName = "project"
)

// Fixed paths.
const (
	HomePath     = "/"
	AuthPath     = "/auth"
	ProjectsPath = "/projects"
)

// ProjectIDParam is the path variable of the project details route.
const ProjectIDParam = "projectId"

// Authenticator reports whether someone is signed in.
type Authenticator interface {
	Authenticated() bool
}

// Location is a resolved navigation target.
type Location struct {
	Path   string
	Route  RouteName
	Params map[string]string
}

// Param returns a path variable, or "" when absent.
func (l Location) Param(name string) string {
	return l.Params[name]
}

// Decision is the guard's verdict on a requested path.
type Decision struct {
	Location Location
	// Redirected is set when Location differs from what was asked for. The
	// router records Location in place of the requested entry.
	Redirected bool
}

// Guard matches paths against the route table and applies access rules.
type Guard struct {
	auth      Authenticator
	routes    *mux.Router
	protected map[RouteName]bool
}

// New builds the route table.
func New(auth Authenticator) *Guard {
	r := mux.NewRouter()
	r.NewRoute().Path(HomePath).Name(string(RouteHome))
	r.NewRoute().Path(AuthPath).Name(string(RouteAuth))
	r.NewRoute().Path(ProjectsPath).Name(string(RouteProjects))
	r.NewRoute().Path(ProjectsPath + "/{" + ProjectIDParam + "}").Name(string(RouteProject))

	return &Guard{
		auth:   auth,
		routes: r,
		protected: map[RouteName]bool{
			RouteProjects: true,
			RouteProject:  true,
		},
	}
}

// Protected reports whether a route requires a session.
func (g *Guard) Protected(name RouteName) bool {
	return g.protected[name]
}

// Match looks path up in the route table without applying access rules.
func (g *Guard) Match(path string) (Location, bool) {
	path = normalize(path)
	req := &http.Request{Method: http.MethodGet, URL: &url.URL{Path: path}}
	var m mux.RouteMatch
	if !g.routes.Match(req, &m) || m.Route == nil {
		return Location{}, false
	}
	return Location{Path: path, Route: RouteName(m.Route.GetName()), Params: m.Vars}, true
}

// Resolve decides where a request for path actually lands. Unknown paths go
// home; protected routes send a signed-out visitor to the auth entry page.
func (g *Guard) Resolve(path string) Decision {
	loc, ok := g.Match(path)
	if !ok {
		home, _ := g.Match(HomePath)
		return Decision{Location: home, Redirected: true}
	}
	if g.protected[loc.Route] && !g.auth.Authenticated() {
		entry, _ := g.Match(AuthPath)
		return Decision{Location: entry, Redirected: true}
	}
	return Decision{Location: loc}
}

// Path builds the path of a named route from key/value pairs.
func (g *Guard) Path(name RouteName, pairs ...string) (string, error) {
	route := g.routes.Get(string(name))
	if route == nil {
		return "", fmt.Errorf("guard.Path: unknown route %q", name)
	}
	u, err := route.URLPath(pairs...)
	if err != nil {
		return "", fmt.Errorf("guard.Path: %w", err)
	}
	return u.Path, nil
}

// ProjectPath is the details path of a project.
func ProjectPath(id string) string {
	return ProjectsPath + "/" + url.PathEscape(id)
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}
