package login

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/bidboard/internal/api"
	"github.com/nhle/bidboard/internal/theme"
)

// SubmitMsg is dispatched when the user submits the form.
type SubmitMsg struct {
	Request api.LoginRequest
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// Fields holds form values on the heap so that huh's Value() pointers
// remain valid across Bubble Tea model copies.
type Fields struct {
	Email      string
	Password   string
	RememberMe bool
}

// Request converts the fields into a login request.
func (f *Fields) Request() api.LoginRequest {
	return api.LoginRequest{
		Email:      strings.TrimSpace(f.Email),
		Password:   f.Password,
		RememberMe: f.RememberMe,
	}
}

// NewForm builds the sign-in form bound to f. It is shared by the
// dashboard and the login command.
func NewForm(f *Fields) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&f.Email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&f.Password).
				Validate(validateRequired("Password")),
			huh.NewConfirm().
				Title("Keep me signed in?").
				Value(&f.RememberMe),
		),
	)
}

// Model is the Bubble Tea model for the in-dashboard sign-in form.
type Model struct {
	form   *huh.Form
	fields *Fields
	err    string
	width  int
	height int
}

// New creates a sign-in form model.
func New(width, height int) Model {
	return Model{
		fields: &Fields{},
		width:  width,
		height: height,
	}
}

// Start resets the form. err, when not empty, is shown above it (for
// instance the reason the previous attempt failed).
func (m *Model) Start(err string) tea.Cmd {
	email := m.fields.Email
	*m.fields = Fields{Email: email}
	m.err = err
	m.form = NewForm(m.fields).WithWidth(m.formWidth()).WithHeight(m.formHeight())
	return m.form.Init()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		req := m.fields.Request()
		return m, func() tea.Msg { return SubmitMsg{Request: req} }
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Sign in")
	if m.err != "" {
		content += "\n" + theme.ErrorStyle.Render(m.err)
	}
	content += "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 6
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return errors.New("enter a valid email address")
	}
	return nil
}
