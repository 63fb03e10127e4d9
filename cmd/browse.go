package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"modpack-launcher/acquire"
	"modpack-launcher/logger"
	"modpack-launcher/model"
	"modpack-launcher/ui"
)

var browseCmd = &cobra.Command{
	Use:   "browse <modpack> <query>",
	Short: "Browse search results and install mods interactively",
	Long: `Search the catalogs for mods compatible with the modpack and pick the ones
to install from an interactive list.`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(configDir)
		defer a.close()

		sourceFlags, _ := cmd.Flags().GetStringSlice("source")
		sources, err := parseSources(sourceFlags)
		exitOnError(err)

		p, err := resolveModpack(cmd.Context(), a.store, args[0])
		exitOnError(err)
		query := strings.Join(args[1:], " ")

		ctx := cmd.Context()
		m := newBrowseModel(p, query,
			func() ([]model.ModRef, error) {
				return a.search.SearchAll(ctx, query, p.GameVersion, sources)
			},
			func(refs []model.ModRef) ([]acquire.InstallResult, error) {
				return a.pipeline.InstallBatch(ctx, p.ID, refs)
			},
		)

		prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			logger.Log.Fatalw("Failed to run browser", zap.Error(err))
		}
	},
}

func init() {
	browseCmd.Flags().StringSliceP("source", "s", nil, "catalogs to search: curseforge, modrinth or all (default all)")
	rootCmd.AddCommand(browseCmd)
}

// browseItem is one search result as shown in the list.
type browseItem struct {
	Ref        model.ModRef
	Installed  bool
	Selected   bool // Whether this mod is selected for installation
	Selectable bool // Already installed mods cannot be selected
}

type browseModel struct {
	pack          model.Modpack
	query         string
	items         []browseItem
	selectedIndex int
	loading       bool
	installing    bool
	error         string
	warning       string
	message       string
	spinnerFrame  int
	width         int
	height        int

	search  func() ([]model.ModRef, error)
	install func([]model.ModRef) ([]acquire.InstallResult, error)
}

func newBrowseModel(pack model.Modpack, query string,
	search func() ([]model.ModRef, error),
	install func([]model.ModRef) ([]acquire.InstallResult, error),
) browseModel {
	return browseModel{
		pack:    pack,
		query:   query,
		loading: true,
		width:   80,
		height:  24,
		search:  search,
		install: install,
	}
}

func (m browseModel) Init() tea.Cmd {
	return tea.Batch(
		m.loadResults(),
		tickSpinner(),
	)
}

func tickSpinner() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

// Update handles messages
func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case resultsLoadedMsg:
		m.handleResultsLoaded(msg)
	case spinnerTickMsg:
		return m.handleSpinnerTick()
	case errorMsg:
		m.error = string(msg)
		m.loading = false
		m.installing = false
	case installCompleteMsg:
		return m.handleInstallComplete(msg)
	case clearMessageMsg:
		m.message = ""
	}
	return m, nil
}

func (m browseModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}
	case "down", "j":
		if m.selectedIndex < len(m.items)-1 {
			m.selectedIndex++
		}
	case " ":
		if len(m.items) > 0 && m.items[m.selectedIndex].Selectable {
			m.items[m.selectedIndex].Selected = !m.items[m.selectedIndex].Selected
		}
	case "ctrl+d":
		if !m.installing && !m.loading {
			refs := m.selectedRefs()
			if len(refs) == 0 {
				m.message = "No mods selected for installation"
				return m, clearMessageAfter(3 * time.Second)
			}
			m.installing = true
			return m, tea.Batch(m.installSelected(refs), tickSpinner())
		}
	}
	return m, nil
}

func (m *browseModel) handleResultsLoaded(msg resultsLoadedMsg) {
	m.loading = false
	if msg.err != nil {
		m.warning = describeError(msg.err)
	}
	m.items = make([]browseItem, 0, len(msg.refs))
	for _, ref := range msg.refs {
		installed := m.pack.HasMod(ref.Key())
		m.items = append(m.items, browseItem{Ref: ref, Installed: installed, Selectable: !installed})
	}
	if m.selectedIndex >= len(m.items) {
		m.selectedIndex = 0
	}
}

func (m browseModel) handleSpinnerTick() (tea.Model, tea.Cmd) {
	m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
	if m.loading || m.installing {
		return m, tickSpinner()
	}
	return m, nil
}

func (m browseModel) handleInstallComplete(msg installCompleteMsg) (tea.Model, tea.Cmd) {
	m.installing = false
	ok := 0
	var failures []string
	for _, r := range msg.results {
		if r.Err == nil {
			ok++
			m.pack.Mods = append(m.pack.Mods, model.InstalledMod{ID: r.Ref.ID, Source: r.Ref.Source, Name: r.Ref.Name})
			continue
		}
		failures = append(failures, fmt.Sprintf("%s: %s", r.Ref.Name, describeError(r.Err)))
	}
	for i := range m.items {
		if m.pack.HasMod(m.items[i].Ref.Key()) {
			m.items[i].Installed = true
			m.items[i].Selectable = false
		}
		m.items[i].Selected = false
	}
	m.message = fmt.Sprintf("Installed %d/%d selected mods", ok, len(msg.results))
	if len(failures) > 0 {
		m.warning = strings.Join(failures, "; ")
	}
	return m, clearMessageAfter(3 * time.Second)
}

func (m browseModel) selectedRefs() []model.ModRef {
	var refs []model.ModRef
	for _, it := range m.items {
		if it.Selected {
			refs = append(refs, it.Ref)
		}
	}
	return refs
}

// View renders the UI
func (m browseModel) View() string {
	if m.loading {
		return m.renderLoadingScreen()
	}

	if m.installing {
		return m.renderInstallingScreen()
	}

	if m.error != "" {
		return fmt.Sprintf("Error: %s\n", m.error)
	}

	var output string
	output += lipgloss.NewStyle().Bold(true).Render(
		fmt.Sprintf("%s %s (%s, %s): %q", m.pack.Icon, m.pack.Name, m.pack.GameVersion, m.pack.Loader, m.query)) + "\n\n"

	if len(m.items) == 0 {
		output += "No mods found.\n"
	} else {
		output += renderHeader()
		output += "\n"
		for i, item := range m.items {
			output += m.renderRow(i, item)
			output += "\n"
		}
	}

	output += "\n" + renderFooter()

	if m.warning != "" {
		output += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Render(m.warning)
	}
	if m.message != "" {
		output += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.message)
	}

	return output
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func (m browseModel) renderLoadingScreen() string {
	spinner := spinnerFrames[m.spinnerFrame]
	loadingStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)
	return loadingStyle.Render(fmt.Sprintf("%s Searching for %q...", spinner, m.query)) + "\n"
}

func (m browseModel) renderInstallingScreen() string {
	spinner := spinnerFrames[m.spinnerFrame]
	installingStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)
	return installingStyle.Render(fmt.Sprintf("%s Installing selected mods into %s...", spinner, m.pack.Name)) + "\n"
}

func renderHeader() string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Padding(0, 1)

	return headerStyle.Render(fmt.Sprintf("  %-38s %-12s %-10s %-20s", "Mod Name", "Source", "Downloads", "Author"))
}

func renderFooter() string {
	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Italic(true)

	return footerStyle.Render("↑/k: up  ↓/j: down  space: select  ctrl+d: install  q: quit")
}

func (m browseModel) renderRow(index int, item browseItem) string {
	rowStyle := lipgloss.NewStyle().Padding(0, 1)
	if index == m.selectedIndex {
		rowStyle = rowStyle.
			Background(lipgloss.Color("8")).
			Bold(true)
	}

	selectionIndicator := " "
	if item.Selected {
		selectionIndicator = "✓"
	} else if !item.Selectable {
		selectionIndicator = "-"
	}

	// Pad the label before applying color to keep the columns aligned
	source := ui.Colorize(fmt.Sprintf("%-12s", ui.SourceLabel(item.Ref.Source)), ui.SourceColor(item.Ref.Source))

	row := fmt.Sprintf("%s %-38s %s %-10s %-20s",
		selectionIndicator,
		truncate(item.Ref.Name, 36),
		source,
		humanize.SIWithDigits(float64(item.Ref.DownloadCount), 1, ""),
		truncate(item.Ref.Author, 18),
	)

	return rowStyle.Render(row)
}

// Message types
type resultsLoadedMsg struct {
	refs []model.ModRef
	err  error
}

type errorMsg string

type spinnerTickMsg struct{}

type installCompleteMsg struct {
	results []acquire.InstallResult
}

type clearMessageMsg struct{}

func clearMessageAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearMessageMsg{}
	})
}

func (m browseModel) loadResults() tea.Cmd {
	return func() tea.Msg {
		refs, err := m.search()
		// Partial results still render; the error is shown as a warning.
		return resultsLoadedMsg{refs: refs, err: err}
	}
}

func (m browseModel) installSelected(refs []model.ModRef) tea.Cmd {
	return func() tea.Msg {
		results, err := m.install(refs)
		if err != nil {
			logger.Log.Errorw("Failed to install mods", zap.Error(err))
			return errorMsg(describeError(err))
		}
		return installCompleteMsg{results: results}
	}
}
