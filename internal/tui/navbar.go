package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/taskdeck/internal/guard"
	"github.com/naveenspark/taskdeck/pkg/domain"
)

// renderNavbar draws the navigation line: page links on the left, the
// signed-in user (or the sign-in link) on the right.
func renderNavbar(route guard.RouteName, sess domain.Session, width int) string {
	link := func(key, name string, active bool) string {
		if active {
			return accentStyle.Render(key) + " " + activeNavStyle.Render(name)
		}
		return metaStyle.Render(key) + " " + dimStyle.Render(name)
	}

	left := []string{link("1", "Home", route == guard.RouteHome)}
	if sess.Authenticated() {
		left = append(left, link("2", "Projects", route == guard.RouteProjects || route == guard.RouteProject))
	}

	var right string
	if sess.Authenticated() {
		right = normalStyle.Render("Welcome, "+sess.User.Username) + "  " + helpEntry("L", "logout")
	} else {
		right = link("3", "Sign in / Sign up", route == guard.RouteAuth)
	}

	l := " " + strings.Join(left, "   ")
	r := right + " "
	gap := width - lipgloss.Width(l) - lipgloss.Width(r)
	if gap < 2 {
		gap = 2
	}
	return l + strings.Repeat(" ", gap) + r
}
