// internal/tui/app.go
//
// This is the signature form for signroll.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The form shows a braille drawing pad fed by mouse events, a list of the
// participants who have not signed yet, and the activity journal.

package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/signroll/internal/canvas"
	"github.com/kingrea/signroll/internal/eventbridge"
	"github.com/kingrea/signroll/internal/logbook"
	"github.com/kingrea/signroll/internal/roster"
	"github.com/kingrea/signroll/internal/submit"
)

type focusArea int

const (
	focusList focusArea = iota
	focusPad
)

const (
	defaultRefreshInterval = 2 * time.Second
	defaultPadCols         = 60
	defaultPadRows         = 15
	minPadCols             = 20
	minPadRows             = 5
	listWidth              = 32
	logPanelLines          = 6

	// The first pad cell sits below the header and its margin plus the
	// box's top border, and right of the left border and padding.
	padOriginX = 2
	padOriginY = 3

	completeMessage  = "All signatures have been collected!"
	placeholderTitle = "Select a name"
	reloadingMessage = "Reloading..."
)

// FormService runs submissions and read-only snapshots for the form.
type FormService interface {
	SubmitFrom(ctx context.Context, surface canvas.RasterSurface, name string) submit.Outcome
	Snapshot(ctx context.Context) submit.Outcome
}

// RevisionSource reports the revision of the slot the form displays.
type RevisionSource interface {
	Revision(ctx context.Context) int64
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithLogbook tails and appends to the activity journal.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = lb
	}
}

// WithEvents refreshes the form whenever a bridge event arrives.
func WithEvents(events <-chan eventbridge.Event) AppOption {
	return func(a *App) {
		a.events = events
	}
}

// WithRefreshInterval overrides how often the slot revision is polled.
func WithRefreshInterval(d time.Duration) AppOption {
	return func(a *App) {
		if d > 0 {
			a.refresh = d
		}
	}
}

// WithContext sets the context passed to store operations.
func WithContext(ctx context.Context) AppOption {
	return func(a *App) {
		if ctx != nil {
			a.ctx = ctx
		}
	}
}

type snapshotMsg struct {
	outcome  submit.Outcome
	revision int64
}

type revisionMsg struct {
	revision int64
}

type bridgeEventMsg struct {
	event eventbridge.Event
}

type submitFinishedMsg struct {
	outcome  submit.Outcome
	revision int64
}

// participantItem implements list.Item. The placeholder row stands for
// "nobody selected".
type participantItem struct {
	participant roster.Participant
	placeholder bool
}

func (i participantItem) Title() string {
	if i.placeholder {
		return placeholderTitle
	}
	return i.participant.Name
}

func (i participantItem) Description() string {
	if i.placeholder {
		return "choose who is signing"
	}
	return fmt.Sprintf("#%d · awaiting signature", i.participant.Index+1)
}

func (i participantItem) FilterValue() string { return i.participant.Name }

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	ctx       context.Context
	service   FormService
	revisions RevisionSource
	surface   *canvas.Surface
	logbook   *logbook.Logbook
	events    <-chan eventbridge.Event
	refresh   time.Duration

	// UI components
	keys         KeyMap
	help         help.Model
	participants list.Model
	focus        focusArea
	statusMsg    string // Outcome of the last action
	statusErr    bool

	// Form state
	loaded     bool
	submitting bool
	complete   bool
	revision   int64
	unsigned   []roster.Participant

	// Window size (we get this from bubbletea)
	width   int
	height  int
	padCols int
	padRows int
}

// NewApp creates the signature form.
func NewApp(service FormService, revisions RevisionSource, surface *canvas.Surface, opts ...AppOption) *App {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)
	participants := list.New(nil, delegate, listWidth-4, defaultPadRows)
	participants.Title = "Participants"
	participants.SetShowStatusBar(false)
	participants.SetFilteringEnabled(false)
	participants.SetShowHelp(false)
	participants.KeyMap.Quit.SetEnabled(false)

	app := &App{
		ctx:          context.Background(),
		service:      service,
		revisions:    revisions,
		surface:      surface,
		refresh:      defaultRefreshInterval,
		keys:         DefaultKeyMap,
		help:         help.New(),
		participants: participants,
		focus:        focusList,
		padCols:      defaultPadCols,
		padRows:      defaultPadRows,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	app.setParticipants(nil)
	return app
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Warn(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.fetchSnapshot(), a.scheduleRevisionPoll(), a.waitForBridgeEvent())
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, a.fetchSnapshot()

	case snapshotMsg:
		if a.statusMsg == reloadingMessage {
			a.statusMsg = ""
		}
		a.applySnapshot(msg.outcome, msg.revision)
		return a, nil

	case revisionMsg:
		if msg.revision != a.revision {
			return a, tea.Batch(a.fetchSnapshot(), a.scheduleRevisionPoll())
		}
		return a, a.scheduleRevisionPoll()

	case bridgeEventMsg:
		a.logInfo("Table changed on another instance · revision %d", msg.event.Revision)
		return a, tea.Batch(a.fetchSnapshot(), a.waitForBridgeEvent())

	case submitFinishedMsg:
		a.finishSubmit(msg)
		return a, nil

	case tea.BlurMsg:
		// Leaving the terminal ends the stroke, as leaving the pad does.
		a.surface.PointerLeave()
		return a, nil

	case tea.MouseMsg:
		a.handleMouse(msg)
		return a, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, a.keys.Reload):
			a.statusMsg = reloadingMessage
			a.statusErr = false
			return a, a.fetchSnapshot()
		case a.complete:
			return a, nil
		case key.Matches(msg, a.keys.Submit):
			return a, a.beginSubmit()
		case key.Matches(msg, a.keys.Clear):
			if !a.submitting {
				a.surface.Clear()
			}
			return a, nil
		case key.Matches(msg, a.keys.Focus):
			if a.focus == focusList {
				a.focus = focusPad
			} else {
				a.focus = focusList
			}
			return a, nil
		}
		if a.focus == focusList && !a.submitting {
			var cmd tea.Cmd
			a.participants, cmd = a.participants.Update(msg)
			return a, cmd
		}
	}

	return a, nil
}

// handleMouse feeds the pad. While a stroke is in progress every mouse event
// belongs to the pad and nothing else reacts to it.
func (a *App) handleMouse(msg tea.MouseMsg) {
	if a.complete || a.submitting {
		return
	}
	col, row, inside := a.padCell(msg.X, msg.Y)
	drawing := a.surface.State() == canvas.Drawing
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !inside {
			return
		}
		a.focus = focusPad
		a.surface.PointerDown(a.surface.CellToRaster(col, row, a.padCols, a.padRows))
	case tea.MouseActionMotion:
		if !drawing {
			return
		}
		if !inside {
			a.surface.PointerLeave()
			return
		}
		a.surface.PointerMove(a.surface.CellToRaster(col, row, a.padCols, a.padRows))
	case tea.MouseActionRelease:
		if drawing {
			a.surface.PointerUp()
		}
	}
}

func (a *App) padCell(x, y int) (int, int, bool) {
	col, row := x-padOriginX, y-padOriginY
	inside := col >= 0 && col < a.padCols && row >= 0 && row < a.padRows
	return col, row, inside
}

// beginSubmit disables the submit control and runs the submission off the
// update loop against a copy of the pad, so the live raster is only touched
// here. The control is re-enabled by finishSubmit on every outcome.
func (a *App) beginSubmit() tea.Cmd {
	if a.submitting {
		return nil
	}
	a.submitting = true
	a.keys.Submit.SetEnabled(false)
	a.surface.PointerUp()
	name := a.selectedName()
	a.statusMsg = "Saving signature..."
	a.statusErr = false
	pad := a.surface.Clone()
	return func() tea.Msg {
		// Read before the table, as fetchSnapshot does.
		revision := a.revisions.Revision(a.ctx)
		out := a.service.SubmitFrom(a.ctx, pad, name)
		return submitFinishedMsg{outcome: out, revision: revision}
	}
}

func (a *App) finishSubmit(msg submitFinishedMsg) {
	a.submitting = false
	a.keys.Submit.SetEnabled(true)
	out := msg.outcome
	a.statusMsg = out.Message
	a.statusErr = !out.OK()
	if out.OK() {
		a.surface.Clear()
	}
	switch out.Kind() {
	case submit.KindNone:
		a.logInfo("Signature saved · %s", out.Name)
	case submit.KindUnexpected:
		a.logError("Submission failed · %s: %v", displayName(out.Name), out.Err)
	default:
		a.logWarn("Submission rejected · %s · %s", displayName(out.Name), out.Message)
	}
	// Rejections before the table was read carry no projections.
	if out.Table != nil {
		a.applySnapshot(out, msg.revision)
	}
}

func (a *App) applySnapshot(out submit.Outcome, revision int64) {
	wasComplete := a.complete
	a.revision = revision
	a.unsigned = out.Unsigned
	a.complete = out.Complete
	a.setParticipants(out.Unsigned)
	if !a.loaded {
		a.loaded = true
		a.logInfo("Form opened · %d of %d unsigned", len(out.Unsigned), len(out.Table))
	}
	if a.complete && !wasComplete {
		a.surface.PointerLeave()
		a.logInfo("All signatures collected")
	}
}

// setParticipants rebuilds the list, keeping the current selection when that
// participant is still unsigned and falling back to the placeholder.
func (a *App) setParticipants(unsigned []roster.Participant) {
	selected := a.selectedName()
	items := make([]list.Item, 0, len(unsigned)+1)
	items = append(items, participantItem{placeholder: true})
	cursor := 0
	for i, p := range unsigned {
		items = append(items, participantItem{participant: p})
		if selected != "" && p.Name == selected {
			cursor = i + 1
		}
	}
	a.participants.SetItems(items)
	a.participants.Select(cursor)
}

func (a *App) selectedName() string {
	item, ok := a.participants.SelectedItem().(participantItem)
	if !ok || item.placeholder {
		return ""
	}
	return item.participant.Name
}

func (a *App) resize() {
	cols := defaultPadCols
	if a.width > 0 {
		if avail := a.width - listWidth - 8; avail < cols {
			cols = max(minPadCols, avail)
		}
	}
	a.padCols = cols
	a.padRows = max(minPadRows, cols/4)
	a.participants.SetSize(listWidth-4, max(6, a.padRows))
	a.help.Width = a.width
}

// View renders the current state to a string.
func (a *App) View() string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render("✍ SIGNROLL")
	if a.complete {
		done := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4CAF50")).
			Render(completeMessage)
		return lipgloss.JoinVertical(lipgloss.Left,
			header,
			done,
			"",
			a.renderLogPanel(),
			a.help.View(a.keys),
		)
	}
	form := lipgloss.JoinHorizontal(lipgloss.Top, a.renderPad(), " ", a.renderParticipants())
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		form,
		a.renderStatus(),
		a.help.View(a.keys),
		a.renderLogPanel(),
	)
}

func (a *App) renderPad() string {
	border := lipgloss.Color("#444444")
	switch {
	case a.surface.State() == canvas.Drawing:
		border = lipgloss.Color("#FF6B6B")
	case a.focus == focusPad:
		border = lipgloss.Color("#5B8DEF")
	}
	lines := a.surface.Braille(a.padCols, a.padRows)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Foreground(lipgloss.Color("#E0E0E0")).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

func (a *App) renderParticipants() string {
	border := lipgloss.Color("#444444")
	if a.focus == focusList {
		border = lipgloss.Color("#5B8DEF")
	}
	hint := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render("Draw with the mouse in the pad,\nthen pick a name and press enter.")
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(listWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, a.participants.View(), hint))
}

func (a *App) renderStatus() string {
	if a.statusMsg == "" {
		return ""
	}
	color := lipgloss.Color("#4CAF50")
	switch {
	case a.submitting:
		color = lipgloss.Color("#AAAAAA")
	case a.statusErr:
		color = lipgloss.Color("#FF6B6B")
	}
	return lipgloss.NewStyle().Foreground(color).Render(a.statusMsg)
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	entries, total := a.logbook.Recent(logPanelLines)
	if len(entries) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s · %d entries", fileName, total))
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		color := lipgloss.Color("#AAAAAA")
		switch e.Level {
		case logbook.LevelWarn:
			color = lipgloss.Color("#E5C07B")
		case logbook.LevelError:
			color = lipgloss.Color("#FF6B6B")
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(color).
			Render(e.Time.Local().Format("15:04:05")+" "+e.Message))
	}
	body := strings.Join(lines, "\n")
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
	return box
}

// fetchSnapshot reads the revision before the table so a write landing in
// between is picked up by the next poll.
func (a *App) fetchSnapshot() tea.Cmd {
	return func() tea.Msg {
		revision := a.revisions.Revision(a.ctx)
		return snapshotMsg{outcome: a.service.Snapshot(a.ctx), revision: revision}
	}
}

func (a *App) scheduleRevisionPoll() tea.Cmd {
	return tea.Tick(a.refresh, func(time.Time) tea.Msg {
		return revisionMsg{revision: a.revisions.Revision(a.ctx)}
	})
}

func (a *App) waitForBridgeEvent() tea.Cmd {
	if a.events == nil {
		return nil
	}
	events := a.events
	return func() tea.Msg {
		evt, ok := <-events
		if !ok {
			return nil
		}
		return bridgeEventMsg{event: evt}
	}
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "(no name)"
	}
	return name
}
