package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/peertrace/pkg/lockfile"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// exploreCommand creates the explore command: an interactive browser over
// entries with peer dependencies. Selecting an entry and one of its peer
// edges runs the trace and prints the report.
func (c *CLI) exploreCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "explore <lockfile>",
		Short: "Interactively browse entries and trace peer dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			runner := c.newRunner(noCache)

			loaded, err := runner.Load(ctx, args[0])
			if err != nil {
				return err
			}

			entries := entriesWithPeers(loaded.Graph)
			if len(entries) == 0 {
				printInfo("No entries with peer dependencies in %s", args[0])
				return nil
			}

			model := NewEntryListModel(entries)
			final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
			if err != nil {
				return err
			}

			m, ok := final.(EntryListModel)
			if !ok || m.Selected == nil {
				return nil
			}

			res, err := runner.Analyze(ctx, loaded, m.Selected.EntryKey, m.Selected.DepName)
			if err != nil {
				return err
			}
			printTrace(loaded.Graph, res, resolvedVersion(loaded.Graph, m.Selected.EntryKey, m.Selected.DepName))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the parsed-graph cache")

	return cmd
}

// entriesWithPeers returns the graph entries that declare at least one peer
// dependency, in insertion order.
func entriesWithPeers(g *lockfile.Graph) []*lockfile.Entry {
	var out []*lockfile.Entry
	for _, e := range g.Entries() {
		if len(e.PeerDeps()) > 0 {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// EntryListModel - Interactive entry and peer edge selection
// =============================================================================

// EdgeSelection holds the result of the explore session.
type EdgeSelection struct {
	EntryKey string
	DepName  string
}

// Stages of the explore flow.
const (
	stageEntries = iota
	stagePeers
)

// EntryListModel is the bubbletea model for interactive edge selection.
// Stage one scrolls through entries with peer dependencies; stage two picks
// one of the selected entry's peer edges.
type EntryListModel struct {
	Entries  []*lockfile.Entry
	Cursor   int
	Offset   int
	Height   int
	Selected *EdgeSelection

	stage      int
	entry      *lockfile.Entry        // entry chosen in stage one
	peers      []*lockfile.Dependency // its peer edges
	peerCursor int
}

// NewEntryListModel creates a new entry list model.
func NewEntryListModel(entries []*lockfile.Entry) EntryListModel {
	return EntryListModel{
		Entries: entries,
		Height:  15,
	}
}

func (m EntryListModel) Init() tea.Cmd {
	return nil
}

func (m EntryListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.stage == stagePeers {
			return m.updatePeers(msg)
		}
		return m.updateEntries(msg)
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m EntryListModel) updateEntries(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
			if m.Cursor < m.Offset {
				m.Offset = m.Cursor
			}
		}
	case "down", "j":
		if m.Cursor < len(m.Entries)-1 {
			m.Cursor++
			if m.Cursor >= m.Offset+m.Height {
				m.Offset = m.Cursor - m.Height + 1
			}
		}
	case "enter":
		e := m.Entries[m.Cursor]
		peers := e.PeerDeps()
		if len(peers) == 0 {
			return m, nil
		}
		if len(peers) == 1 {
			m.Selected = &EdgeSelection{EntryKey: e.Key, DepName: peers[0].Name}
			return m, tea.Quit
		}
		m.stage = stagePeers
		m.entry = e
		m.peers = peers
		m.peerCursor = 0
	}
	return m, nil
}

func (m EntryListModel) updatePeers(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.stage = stageEntries
		m.entry = nil
		m.peers = nil
	case "up", "k":
		if m.peerCursor > 0 {
			m.peerCursor--
		}
	case "down", "j":
		if m.peerCursor < len(m.peers)-1 {
			m.peerCursor++
		}
	case "enter":
		m.Selected = &EdgeSelection{EntryKey: m.entry.Key, DepName: m.peers[m.peerCursor].Name}
		return m, tea.Quit
	}
	return m, nil
}

func (m EntryListModel) View() string {
	if m.stage == stagePeers {
		return m.viewPeers()
	}
	return m.viewEntries()
}

func (m EntryListModel) viewEntries() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Entry"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Entries) {
		end = len(m.Entries)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		e := m.Entries[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		kind := "package"
		if e.Importer {
			kind = "importer"
		}

		peers := e.PeerDeps()
		names := make([]string, len(peers))
		for j, p := range peers {
			names[j] = p.Name
		}

		rows = append(rows, []string{cursor, e.DisplayLabel(), kind, fmt.Sprintf("%d", len(peers)), strings.Join(names, ", ")})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Entry", "Kind", "Peers", "Peer Dependencies").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}

			actualIdx := m.Offset + row
			if actualIdx >= len(m.Entries) {
				return lipgloss.NewStyle()
			}
			if actualIdx == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			if col >= 2 {
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Entries))))

	return b.String()
}

func (m EntryListModel) viewPeers() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Peer Dependency"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(m.entry.DisplayLabel()))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  esc back  q quit"))
	b.WriteString("\n\n")

	for i, p := range m.peers {
		cursor := "  "
		if i == m.peerCursor {
			cursor = "> "
		}

		status := StyleSuccess.Render("*")
		if p.To == "" {
			status = StyleWarning.Render("!")
		}

		line := fmt.Sprintf("%s%s %-30s  %s", cursor, status, p.Name, listDimStyle.Render(p.Spec))

		if i == m.peerCursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else if p.To == "" {
			b.WriteString(listDimStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(strings.Repeat("-", 40)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s resolved   %s unresolved\n",
		StyleSuccess.Render("*"), StyleWarning.Render("!")))

	return b.String()
}
