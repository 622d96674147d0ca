package cmd

import (
	"errors"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mattsolo1/grove-hed/pkg/service"
)

var errNoProject = errors.New("no project configured: pass --project or set HED_PROJECT")

var titleCaser = cases.Title(language.English)

var (
	newStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	changedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	deletedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Strikethrough(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

// requireService returns the service or errNoProject when no project was
// configured.
func requireService(svc **service.Service) (*service.Service, error) {
	if svc == nil || *svc == nil {
		return nil, errNoProject
	}
	return *svc, nil
}

// stateMarker renders the pending state of a row.
func stateMarker(state service.RowState) string {
	switch state {
	case service.RowNew:
		return newStyle.Render("+")
	case service.RowChanged:
		return changedStyle.Render("*")
	case service.RowDeleted:
		return deletedStyle.Render("-")
	case service.RowError:
		return errorStyle.Render("!")
	}
	return " "
}

// styleName renders a name the way its row state is shown.
func styleName(name string, state service.RowState) string {
	switch state {
	case service.RowNew:
		return newStyle.Render(name)
	case service.RowChanged:
		return changedStyle.Render(name)
	case service.RowDeleted:
		return deletedStyle.Render(name)
	case service.RowError:
		return errorStyle.Render(name)
	}
	return name
}
