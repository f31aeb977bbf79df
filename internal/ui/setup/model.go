package setup

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tracimfeed/internal/model"
	"github.com/nhle/tracimfeed/internal/theme"
	"github.com/nhle/tracimfeed/internal/tracim"
)

// Mode represents the current state of the setup view.
type Mode int

const (
	ModeForm       Mode = iota // Editing the form
	ModeValidating             // Testing the credentials
	ModeResult                 // Showing a failed validation
)

// DoneMsg carries a validated configuration.
type DoneMsg struct {
	Server      model.ServerConfig
	WorkspaceID int
}

// CancelMsg signals the setup view was closed without saving.
type CancelMsg struct{}

// validatedMsg is sent when the credentials check finishes.
type validatedMsg struct {
	me  *tracim.WhoAmI
	err error
}

// Validator checks credentials against the server and returns the
// authenticated user.
type Validator func(ctx context.Context, baseURL, username, apiKey string) (*tracim.WhoAmI, error)

// KeySaver stores the API key of a user.
type KeySaver func(username, apiKey string) error

// validateTimeout bounds the credentials check.
const validateTimeout = 20 * time.Second

// fields holds the values huh binds to. It lives behind a pointer so the
// bindings survive copies of the Model.
type fields struct {
	baseURL     string
	username    string
	apiKey      string
	workspaceID string
}

// Model is the Bubble Tea model for the first-run and reconfigure form.
type Model struct {
	mode     Mode
	form     *huh.Form
	values   *fields
	current  model.ServerConfig
	validate Validator
	saveKey  KeySaver
	spinner  spinner.Model
	err      error

	width, height int
}

// New creates a setup view prefilled with the current configuration.
func New(cfg *model.AppConfig, validate Validator, saveKey KeySaver, width, height int) Model {
	if validate == nil {
		validate = DefaultValidator
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		validate: validate,
		saveKey:  saveKey,
		spinner:  sp,
		width:    width,
		height:   height,
		values:   &fields{},
	}
	if cfg != nil {
		m.current = cfg.Server
		m.values.baseURL = cfg.Server.BaseURL
		m.values.username = cfg.Server.Username
		if cfg.Feed.WorkspaceID != 0 {
			m.values.workspaceID = strconv.Itoa(cfg.Feed.WorkspaceID)
		}
	}
	return m
}

// DefaultValidator calls the whoami endpoint with the given credentials.
func DefaultValidator(ctx context.Context, baseURL, username, apiKey string) (*tracim.WhoAmI, error) {
	api := tracim.NewAPI(tracim.NewClient(baseURL, username, apiKey, tracim.WithMaxRetries(1)))
	return api.WhoAmI(ctx)
}

// Init builds the form.
func (m *Model) Init() tea.Cmd {
	m.mode = ModeForm
	m.err = nil
	m.values.apiKey = "" // Never pre-fill credentials
	m.form = m.buildForm()
	return m.form.Init()
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Tracim URL").
				Description("Root URL of the Tracim instance").
				Placeholder("https://tracim.example.com").
				Value(&m.values.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Username").
				Description("Login or email used with the API key").
				Value(&m.values.username).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("API Key").
				Description("Tracim API key, stored in the system keyring").
				EchoMode(huh.EchoModePassword).
				Value(&m.values.apiKey).
				Validate(validateRequired("API key")),
			huh.NewInput().
				Title("Space").
				Description("Optional space id to restrict the feed to").
				Placeholder("all spaces").
				Value(&m.values.workspaceID).
				Validate(validateWorkspaceID),
		),
	).WithWidth(m.formWidth())
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case validatedMsg:
		return m.handleValidated(msg)

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeValidating:
			if msg.String() == "esc" {
				cmd := m.resetForm()
				return m, cmd
			}
			return m, nil
		case ModeResult:
			switch msg.String() {
			case "enter", "r":
				cmd := m.resetForm()
				return m, cmd
			case "esc":
				return m, func() tea.Msg { return CancelMsg{} }
			}
			return m, nil
		}
	}

	if m.mode != ModeForm || m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.mode = ModeValidating
		return m, tea.Batch(m.spinner.Tick, m.verify())
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// resetForm rebuilds the form keeping the entered values.
func (m *Model) resetForm() tea.Cmd {
	m.mode = ModeForm
	m.err = nil
	m.form = m.buildForm()
	return m.form.Init()
}

// verify returns a command checking the entered credentials.
func (m Model) verify() tea.Cmd {
	validate := m.validate
	baseURL := strings.TrimRight(strings.TrimSpace(m.values.baseURL), "/")
	username := strings.TrimSpace(m.values.username)
	apiKey := strings.TrimSpace(m.values.apiKey)

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
		defer cancel()

		me, err := validate(ctx, baseURL, username, apiKey)
		return validatedMsg{me: me, err: err}
	}
}

func (m Model) handleValidated(msg validatedMsg) (Model, tea.Cmd) {
	if m.mode != ModeValidating {
		return m, nil
	}
	if msg.err != nil {
		m.mode = ModeResult
		m.err = msg.err
		return m, nil
	}

	username := strings.TrimSpace(m.values.username)
	if m.saveKey != nil {
		if err := m.saveKey(username, strings.TrimSpace(m.values.apiKey)); err != nil {
			m.mode = ModeResult
			m.err = fmt.Errorf("saving API key: %w", err)
			return m, nil
		}
	}

	server := m.current
	server.BaseURL = strings.TrimRight(strings.TrimSpace(m.values.baseURL), "/")
	server.Username = username
	server.UserID = msg.me.UserID

	ws, _ := strconv.Atoi(strings.TrimSpace(m.values.workspaceID))

	done := DoneMsg{Server: server, WorkspaceID: ws}
	m.mode = ModeForm
	m.form = nil
	return m, func() tea.Msg { return done }
}

// Mode returns the current mode.
func (m Model) Mode() Mode { return m.mode }

// View renders the setup view.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	switch m.mode {
	case ModeValidating:
		return style.Render(fmt.Sprintf(
			"%s Testing connection...\n\nPress esc to cancel.",
			m.spinner.View(),
		))

	case ModeResult:
		errStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorRed)
		return style.Render(errStyle.Render("Connection failed") + "\n\n" +
			describeError(m.err) + "\n\n" +
			theme.DimmedStyle.Render("r edit and retry | esc back"))
	}

	if m.form == nil {
		return ""
	}
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	return style.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Tracim Connection"),
		m.form.View(),
	))
}

// describeError turns validation failures into a user-facing hint.
func describeError(err error) string {
	var authErr *tracim.AuthError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &authErr):
		return "The server rejected the username or API key."
	case errors.Is(err, context.DeadlineExceeded):
		return "The server did not answer in time."
	default:
		return err.Error()
	}
}

// SetSize updates the setup view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// validateRequired returns a validator that rejects empty values.
func validateRequired(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

// validateURL checks that s is an absolute http(s) URL.
func validateURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("URL is required")
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("URL must start with http:// or https://")
	}
	if u.Host == "" {
		return errors.New("URL must include a host")
	}
	return nil
}

// validateWorkspaceID accepts an empty value or a positive integer.
func validateWorkspaceID(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return errors.New("space id must be a positive number")
	}
	return nil
}
