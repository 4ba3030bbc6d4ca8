package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct{ signedIn bool }

func (f *fakeAuth) Authenticated() bool { return f.signedIn }

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		signedIn   bool
		path       string
		wantPath   string
		wantRoute  RouteName
		redirected bool
	}{
		{"home open", false, "/", "/", RouteHome, false},
		{"auth open", false, "/auth", "/auth", RouteAuth, false},
		{"projects signed out", false, "/projects", "/auth", RouteAuth, true},
		{"projects signed in", true, "/projects", "/projects", RouteProjects, false},
		{"details signed out", false, "/projects/p1", "/auth", RouteAuth, true},
		{"details signed in", true, "/projects/p1", "/projects/p1", RouteProject, false},
		{"unknown signed out", false, "/nope", "/", RouteHome, true},
		{"unknown signed in", true, "/projects/p1/extra", "/", RouteHome, true},
		{"trailing slash", true, "/projects/", "/projects", RouteProjects, false},
		{"query dropped", true, "/projects?x=1", "/projects", RouteProjects, false},
		{"empty is home", false, "", "/", RouteHome, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(&fakeAuth{signedIn: tt.signedIn})
			d := g.Resolve(tt.path)
			assert.Equal(t, tt.wantPath, d.Location.Path)
			assert.Equal(t, tt.wantRoute, d.Location.Route)
			assert.Equal(t, tt.redirected, d.Redirected)
		})
	}
}

func TestMatchExtractsProjectID(t *testing.T) {
	g := New(&fakeAuth{})
	loc, ok := g.Match("/projects/64b7f0c2")
	require.True(t, ok)
	assert.Equal(t, RouteProject, loc.Route)
	assert.Equal(t, "64b7f0c2", loc.Param(ProjectIDParam))
	assert.True(t, g.Protected(loc.Route))
	assert.False(t, g.Protected(RouteHome))
}

func TestPath(t *testing.T) {
	g := New(&fakeAuth{})

	p, err := g.Path(RouteProject, ProjectIDParam, "p1")
	require.NoError(t, err)
	assert.Equal(t, "/projects/p1", p)
	assert.Equal(t, p, ProjectPath("p1"))

	p, err = g.Path(RouteAuth)
	require.NoError(t, err)
	assert.Equal(t, AuthPath, p)

	_, err = g.Path("missing")
	assert.Error(t, err)
}

func TestRouterRedirectDoesNotLoop(t *testing.T) {
	auth := &fakeAuth{}
	r := NewRouter(New(auth))

	loc := r.Navigate("/projects")
	assert.Equal(t, AuthPath, loc.Path)
	assert.Equal(t, []string{"/", "/auth"}, r.History())

	back, ok := r.Back()
	require.True(t, ok)
	assert.Equal(t, HomePath, back.Path, "back from a redirect must not re-enter the protected route")
}

func TestRouterUnknownPathKeepsPreviousEntry(t *testing.T) {
	auth := &fakeAuth{signedIn: true}
	r := NewRouter(New(auth))
	r.Navigate("/projects")

	loc := r.Navigate("/does/not/exist")
	assert.Equal(t, HomePath, loc.Path)
	assert.Equal(t, []string{"/", "/projects", "/"}, r.History())

	back, ok := r.Back()
	require.True(t, ok)
	assert.Equal(t, ProjectsPath, back.Path)
}

func TestRouterBackRevalidates(t *testing.T) {
	auth := &fakeAuth{signedIn: true}
	r := NewRouter(New(auth))
	r.Navigate("/projects")
	r.Navigate("/projects/p1")

	auth.signedIn = false
	loc, ok := r.Back()
	require.True(t, ok)
	assert.Equal(t, AuthPath, loc.Path)
	assert.Equal(t, []string{"/", "/auth"}, r.History())
}

func TestRouterBackAtRoot(t *testing.T) {
	r := NewRouter(New(&fakeAuth{}))
	loc, ok := r.Back()
	assert.False(t, ok)
	assert.Equal(t, HomePath, loc.Path)
	assert.Equal(t, 1, r.Depth())
}

func TestRouterReset(t *testing.T) {
	auth := &fakeAuth{signedIn: true}
	r := NewRouter(New(auth))
	r.Navigate("/projects")
	r.Navigate("/projects/p1")

	auth.signedIn = false
	r.Reset(AuthPath)
	assert.Equal(t, []string{"/auth"}, r.History())
	assert.Equal(t, RouteAuth, r.Current().Route)
}

func TestRouterRevalidate(t *testing.T) {
	auth := &fakeAuth{signedIn: true}
	r := NewRouter(New(auth))
	r.Navigate("/projects/p1")

	assert.Equal(t, "/projects/p1", r.Revalidate().Path)

	auth.signedIn = false
	assert.Equal(t, AuthPath, r.Revalidate().Path)
	assert.Equal(t, 2, r.Depth())
}

func TestRouterReplace(t *testing.T) {
	auth := &fakeAuth{signedIn: true}
	r := NewRouter(New(auth))
	r.Navigate("/auth")
	r.Replace("/projects")
	assert.Equal(t, []string{"/", "/projects"}, r.History())
}
