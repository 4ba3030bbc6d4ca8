package guard

import "sync"

// Router keeps the navigation history and runs every transition through the
// guard.
type Router struct {
	mu      sync.Mutex
	guard   *Guard
	history []Location
}

// NewRouter starts at the home page.
func NewRouter(g *Guard) *Router {
	r := &Router{guard: g}
	r.history = []Location{g.Resolve(HomePath).Location}
	return r
}

// Guard returns the guard the router consults.
func (r *Router) Guard() *Guard {
	return r.guard
}

// Current is the location being shown.
func (r *Router) Current() Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history[len(r.history)-1]
}

// Navigate pushes path. When the guard redirects, the redirect target is
// pushed in place of the requested entry so going back does not loop and
// the page navigated from stays in history.
func (r *Router) Navigate(path string) Location {
	d := r.guard.Resolve(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, d.Location)
	return d.Location
}

// Replace overwrites the current entry with path.
func (r *Router) Replace(path string) Location {
	d := r.guard.Resolve(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[len(r.history)-1] = d.Location
	return d.Location
}

// Back pops one entry and revalidates the one underneath. It reports false
// when there is nothing to go back to.
func (r *Router) Back() (Location, bool) {
	r.mu.Lock()
	if len(r.history) < 2 {
		r.mu.Unlock()
		return r.Current(), false
	}
	r.history = r.history[:len(r.history)-1]
	r.mu.Unlock()
	return r.Revalidate(), true
}

// Reset discards history and starts over at path.
func (r *Router) Reset(path string) {
	d := r.guard.Resolve(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = []Location{d.Location}
}

// Revalidate re-runs the guard on the current entry, replacing it when the
// session no longer allows it.
func (r *Router) Revalidate() Location {
	cur := r.Current()
	d := r.guard.Resolve(cur.Path)
	if !d.Redirected {
		return cur
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[len(r.history)-1] = d.Location
	return d.Location
}

// Depth is the number of history entries.
func (r *Router) Depth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}

// History lists the paths from oldest to newest.
func (r *Router) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.history))
	for i, loc := range r.history {
		out[i] = loc.Path
	}
	return out
}
