package tui

import (
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/taskdeck/internal/guard"
	"github.com/naveenspark/taskdeck/internal/logging"
	"github.com/naveenspark/taskdeck/internal/session"
	"github.com/naveenspark/taskdeck/pkg/client"
)

// sessionExpiredNotice is shown on the auth page after a 401 signs the user out.
const sessionExpiredNotice = "session expired, please sign in again"

// syncRouteMsg makes Update reconcile the shown page with the router.
type syncRouteMsg struct{}

// Options wires the App to the rest of the program.
type Options struct {
	Session session.Service
	Client  *client.Client
	Router  *guard.Router
	Logger  *slog.Logger
	// WebURL is the browser frontend used by "open in browser".
	WebURL string
	// LogoutOnUnauthorized signs the user out when the backend answers 401.
	LogoutOnUnauthorized bool
}

// App is the root Bubbletea model.
type App struct {
	session              session.Service
	client               *client.Client
	router               *guard.Router
	logger               *slog.Logger
	logoutOnUnauthorized bool

	route    guard.Location // page currently shown
	home     homeModel
	auth     authModel
	projects projectsModel
	project  projectModel
	notice   string // carried into the auth page on the next visit

	width  int
	height int
	frame  int // logo shimmer animation frame
}

// NewApp creates a new TUI application.
func NewApp(o Options) App {
	logger := o.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return App{
		session:              o.Session,
		client:               o.Client,
		router:               o.Router,
		logger:               logger,
		logoutOnUnauthorized: o.LogoutOnUnauthorized,
		home:                 newHomeModel(o.Session),
		auth:                 newAuthModel(o.Session),
		projects:             newProjectsModel(o.Client, o.WebURL),
		project:              newProjectModel(o.Client),
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(shimmerTickCmd(), func() tea.Msg { return syncRouteMsg{} })
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: header(1) + navbar(1) + help(1) = 3 lines
		bodyMsg := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 3}
		a.home, _ = a.home.Update(bodyMsg)
		a.auth, _ = a.auth.Update(bodyMsg)
		a.projects, _ = a.projects.Update(bodyMsg)
		a.project, _ = a.project.Update(bodyMsg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case syncRouteMsg:
		return a, a.syncRoute()

	case navigateMsg:
		a.router.Navigate(msg.path)
		return a, a.syncRoute()

	case backMsg:
		a.router.Back()
		return a, a.syncRoute()

	case SessionChangedMsg:
		a.session.Initialize()
		a.router.Revalidate()
		a.logger.Info("session reloaded from storage", slog.Bool("authenticated", a.session.Authenticated()))
		return a, a.syncRoute()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if !a.editing() {
			switch msg.String() {
			case "q":
				return a, tea.Quit
			case "1":
				a.router.Navigate(guard.HomePath)
				return a, a.syncRoute()
			case "2":
				a.router.Navigate(guard.ProjectsPath)
				return a, a.syncRoute()
			case "3":
				a.router.Navigate(guard.AuthPath)
				return a, a.syncRoute()
			case "L":
				if a.session.Authenticated() {
					a.session.LogOut()
					return a, a.syncRoute()
				}
				return a, nil
			}
		}
	}

	if r, ok := msg.(apiResult); ok && a.unauthorized(r.apiErr()) {
		a.logger.Info("backend rejected the stored credential, signing out")
		a.session.LogOut()
		a.notice = sessionExpiredNotice
		return a, a.syncRoute()
	}

	var cmd tea.Cmd
	switch a.route.Route {
	case guard.RouteHome:
		a.home, cmd = a.home.Update(msg)
	case guard.RouteAuth:
		a.auth, cmd = a.auth.Update(msg)
	case guard.RouteProjects:
		a.projects, cmd = a.projects.Update(msg)
	case guard.RouteProject:
		a.project, cmd = a.project.Update(msg)
	}
	return a, tea.Batch(cmd, a.syncRoute())
}

// unauthorized reports whether err should sign the user out under the
// configured 401 policy.
func (a App) unauthorized(err error) bool {
	return a.logoutOnUnauthorized && err != nil && client.IsUnauthorized(err) && a.session.Authenticated()
}

// syncRoute shows the page the router points at, entering it when it
// changed.
func (a *App) syncRoute() tea.Cmd {
	cur := a.router.Current()
	if cur.Path == a.route.Path && cur.Route == a.route.Route {
		return nil
	}
	a.logger.Debug("route", slog.String("from", a.route.Path), slog.String("to", cur.Path))
	a.route = cur

	var cmd tea.Cmd
	switch cur.Route {
	case guard.RouteAuth:
		a.auth = newAuthModel(a.session)
		a.auth.width, a.auth.height = a.width, a.height-3
		if a.notice != "" {
			a.auth.mode = modeLogin
			a.auth.notice = a.notice
			a.notice = ""
		}
	case guard.RouteProjects:
		a.projects, cmd = a.projects.enter()
	case guard.RouteProject:
		a.project, cmd = a.project.open(cur.Param(guard.ProjectIDParam))
	}
	return cmd
}

func (a App) editing() bool {
	switch a.route.Route {
	case guard.RouteAuth:
		return true
	case guard.RouteProjects:
		return a.projects.editing()
	case guard.RouteProject:
		return a.project.editing()
	}
	return false
}

func (a App) View() string {
	logo := renderShimmerLogo(a.frame)
	pad := (a.width - lipgloss.Width(logo)) / 2
	if pad < 0 {
		pad = 0
	}
	header := strings.Repeat(" ", pad) + logo

	nav := renderNavbar(a.route.Route, a.session.Get(), a.width)

	var body, help string
	switch a.route.Route {
	case guard.RouteHome:
		body = a.home.View()
		help = a.home.helpKeys()
	case guard.RouteAuth:
		body = a.auth.View()
		help = a.auth.helpKeys()
	case guard.RouteProjects:
		body = a.projects.View()
		help = a.projects.helpKeys()
	case guard.RouteProject:
		body = a.project.View()
		help = a.project.helpKeys()
	}
	if !a.editing() {
		help += "  " + helpEntry("1-3", "pages") + "  " + helpEntry("q", "quit")
	}

	body = strings.TrimRight(truncateToHeight(body, a.height-3), "\n")
	return fmt.Sprintf("%s\n%s\n%s\n %s", header, nav, body, help)
}
