package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/unhoist/unhoist/pkg/listing"
	"github.com/unhoist/unhoist/pkg/resolve"
)

// newBrowseCmd creates the browse command, an interactive viewer for the
// resolved tree.
func newBrowseCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "browse [listing.json]",
		Short: "Browse the resolved dependency tree interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, source, err := readListing(args)
			if err != nil {
				return err
			}
			forest, err := listing.Parse(data)
			if err != nil {
				return fmt.Errorf("parse listing from %s: %w", source, err)
			}

			resolved := resolve.Resolve(forest)
			if !all {
				resolved = resolve.FilterDeclared(forest, resolved, nil)
			}
			if len(resolved) == 0 {
				printWarning("nothing to browse: the listing resolved to an empty tree")
				return nil
			}

			model := newTreeModel(resolved)
			_, err = tea.NewProgram(model, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "keep every top-level entry instead of only declared dependencies")
	return cmd
}

// treeRow is one visible line of the browser: a node plus its display depth.
type treeRow struct {
	node  *resolve.Node
	depth int
}

// treeModel is the bubbletea model for interactive tree browsing. Expansion
// state is tracked per node pointer, so the two occurrences of a shared
// package expand independently.
type treeModel struct {
	roots    []*resolve.Node
	expanded map[*resolve.Node]bool
	rows     []treeRow
	cursor   int
	height   int
	offset   int
}

func newTreeModel(roots []*resolve.Node) treeModel {
	m := treeModel{
		roots:    roots,
		expanded: make(map[*resolve.Node]bool),
		height:   20,
	}
	for _, r := range roots {
		m.expanded[r] = true
	}
	m.rebuild()
	return m
}

// rebuild recomputes the visible rows from the expansion state.
func (m *treeModel) rebuild() {
	m.rows = m.rows[:0]
	var walk func(nodes []*resolve.Node, depth int)
	walk = func(nodes []*resolve.Node, depth int) {
		for _, n := range nodes {
			m.rows = append(m.rows, treeRow{node: n, depth: depth})
			if m.expanded[n] {
				walk(n.Children, depth+1)
			}
		}
	}
	walk(m.roots, 0)

	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
}

func (m treeModel) Init() tea.Cmd {
	return nil
}

func (m treeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "enter", " ", "right", "l":
			n := m.rows[m.cursor].node
			if len(n.Children) > 0 {
				m.expanded[n] = !m.expanded[n]
				m.rebuild()
			}
		case "left", "h":
			n := m.rows[m.cursor].node
			if m.expanded[n] {
				m.expanded[n] = false
				m.rebuild()
			}
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 5
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m treeModel) View() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("Dependency Tree"))
	b.WriteString("\n")
	b.WriteString(styleDim.Render("↑/↓ navigate  ⏎ expand/collapse  q quit"))
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.rows) {
		end = len(m.rows)
	}

	for i := m.offset; i < end; i++ {
		row := m.rows[i]
		n := row.node

		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}

		marker := "  "
		if len(n.Children) > 0 {
			if m.expanded[n] {
				marker = "▾ "
			} else {
				marker = "▸ "
			}
		}

		label := n.ID.Name
		if n.ID.Version != "" {
			label += "@" + n.ID.Version
		}

		line := cursor + strings.Repeat("  ", row.depth) + marker + label
		if i == m.cursor {
			b.WriteString(styleTitle.Render(line))
		} else if len(n.Children) == 0 {
			b.WriteString(styleDim.Render(line))
		} else {
			b.WriteString(styleValue.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styleDim.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.rows))))

	return b.String()
}
