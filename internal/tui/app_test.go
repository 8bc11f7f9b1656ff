package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/signroll/internal/artifact"
	"github.com/kingrea/signroll/internal/canvas"
	"github.com/kingrea/signroll/internal/eventbridge"
	"github.com/kingrea/signroll/internal/kv"
	"github.com/kingrea/signroll/internal/logbook"
	"github.com/kingrea/signroll/internal/roster"
	"github.com/kingrea/signroll/internal/submit"
)

type testForm struct {
	kv      *kv.Memory
	store   *roster.Store
	surface *canvas.Surface
	book    *logbook.Logbook
	app     *App
}

func newTestForm(t *testing.T, names ...string) *testForm {
	t.Helper()
	r, err := roster.New(names)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	f := &testForm{kv: kv.NewMemory()}
	f.store = roster.NewStore(f.kv, r)
	f.surface = canvas.New(canvas.DefaultOptions())
	f.book, err = logbook.New(filepath.Join(t.TempDir(), "journey.log"))
	if err != nil {
		t.Fatalf("logbook: %v", err)
	}
	service := submit.NewService(f.store, f.surface, artifact.Encoder{Format: artifact.FormatPNG})
	f.app = NewApp(service, f.store, f.surface, WithLogbook(f.book))
	model, cmd := f.app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	f.app = runCommands(t, model, cmd)
	return f
}

func (f *testForm) drag(t *testing.T, fromCol, fromRow, toCol, toRow int) {
	t.Helper()
	f.mouse(t, fromCol, fromRow, tea.MouseActionPress)
	f.mouse(t, toCol, toRow, tea.MouseActionMotion)
	f.mouse(t, toCol, toRow, tea.MouseActionRelease)
}

func (f *testForm) mouse(t *testing.T, col, row int, action tea.MouseAction) {
	t.Helper()
	msg := tea.MouseMsg{X: padOriginX + col, Y: padOriginY + row, Action: action, Button: tea.MouseButtonLeft}
	if action == tea.MouseActionRelease {
		msg.Button = tea.MouseButtonNone
	}
	model, cmd := f.app.Update(msg)
	f.app = runCommands(t, model, cmd)
}

func (f *testForm) press(t *testing.T, msg tea.KeyMsg) {
	t.Helper()
	model, cmd := f.app.Update(msg)
	f.app = runCommands(t, model, cmd)
}

func (f *testForm) journal() string {
	entries, _ := f.book.Recent(50)
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.String())
	}
	return strings.Join(lines, "\n")
}

var (
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	clearKey = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")}
	tabKey   = tea.KeyMsg{Type: tea.KeyTab}
	quitKey  = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}
)

func TestSnapshotPopulatesParticipants(t *testing.T) {
	f := newTestForm(t, "A", "B")
	if len(f.app.unsigned) != 2 {
		t.Fatalf("expected two unsigned participants, got %v", f.app.unsigned)
	}
	items := f.app.participants.Items()
	if len(items) != 3 {
		t.Fatalf("expected placeholder plus two names, got %d items", len(items))
	}
	if got := f.app.selectedName(); got != "" {
		t.Fatalf("expected placeholder selected, got %q", got)
	}
	if !strings.Contains(f.journal(), "Form opened · 2 of 2 unsigned") {
		t.Fatalf("journal missing open entry:\n%s", f.journal())
	}
}

func TestMouseStrokeDrawsOnPad(t *testing.T) {
	f := newTestForm(t, "A")
	f.drag(t, 5, 5, 25, 8)
	if f.surface.IsEmpty() {
		t.Fatalf("expected ink after drag")
	}
	if f.surface.State() != canvas.Idle {
		t.Fatalf("release must end the stroke")
	}
	if f.app.focus != focusPad {
		t.Fatalf("pressing in the pad should focus it")
	}
	f.press(t, clearKey)
	if !f.surface.IsEmpty() {
		t.Fatalf("clear key must wipe the pad")
	}
}

func TestPressWithoutMotionLeavesPadEmpty(t *testing.T) {
	f := newTestForm(t, "A")
	f.mouse(t, 5, 5, tea.MouseActionPress)
	f.mouse(t, 5, 5, tea.MouseActionRelease)
	if !f.surface.IsEmpty() {
		t.Fatalf("a tap must not paint")
	}
}

func TestLeavingPadEndsStroke(t *testing.T) {
	f := newTestForm(t, "A")
	f.mouse(t, 5, 5, tea.MouseActionPress)
	f.mouse(t, 10, 5, tea.MouseActionMotion)
	f.mouse(t, f.app.padCols+3, 5, tea.MouseActionMotion)
	if f.surface.State() != canvas.Idle {
		t.Fatalf("motion outside the pad must end the stroke")
	}
}

func TestBlurEndsStroke(t *testing.T) {
	f := newTestForm(t, "A")
	f.mouse(t, 5, 5, tea.MouseActionPress)
	model, _ := f.app.Update(tea.BlurMsg{})
	f.app = model.(*App)
	if f.surface.State() != canvas.Idle {
		t.Fatalf("losing focus must end the stroke")
	}
}

func TestSubmitWithoutSelection(t *testing.T) {
	f := newTestForm(t, "A")
	f.drag(t, 5, 5, 25, 8)
	f.press(t, enterKey)
	if f.app.statusMsg != "Please select a name." {
		t.Fatalf("status = %q", f.app.statusMsg)
	}
	if !f.app.statusErr || f.app.submitting {
		t.Fatalf("expected error status and re-enabled submit")
	}
	if f.surface.IsEmpty() {
		t.Fatalf("rejection must keep the drawing")
	}
	if !strings.Contains(f.journal(), "Submission rejected · (no name)") {
		t.Fatalf("journal missing rejection:\n%s", f.journal())
	}
}

func TestSubmitEmptyPad(t *testing.T) {
	f := newTestForm(t, "A")
	f.app.participants.Select(1)
	f.press(t, enterKey)
	if f.app.statusMsg != "Please draw a signature before submitting." {
		t.Fatalf("status = %q", f.app.statusMsg)
	}
}

func TestSubmitSavesAndRefreshesList(t *testing.T) {
	f := newTestForm(t, "A", "B")
	f.app.participants.Select(1)
	if f.app.selectedName() != "A" {
		t.Fatalf("expected A selected, got %q", f.app.selectedName())
	}
	f.drag(t, 5, 5, 25, 8)
	f.press(t, enterKey)
	if f.app.statusMsg != "Signature saved successfully!" || f.app.statusErr {
		t.Fatalf("status = %q err=%v", f.app.statusMsg, f.app.statusErr)
	}
	if !f.surface.IsEmpty() {
		t.Fatalf("pad must reset after a save")
	}
	if len(f.app.unsigned) != 1 || f.app.unsigned[0].Name != "B" {
		t.Fatalf("unsigned = %v", f.app.unsigned)
	}
	if f.app.selectedName() != "" {
		t.Fatalf("selection should fall back to the placeholder")
	}
	if f.app.revision >= f.store.Revision(context.Background()) {
		t.Fatalf("own save must still look new to the next poll")
	}
	if !strings.Contains(f.journal(), "Signature saved · A") {
		t.Fatalf("journal missing save:\n%s", f.journal())
	}
}

func TestSubmitDisabledWhileInFlight(t *testing.T) {
	f := newTestForm(t, "A")
	f.app.participants.Select(1)
	f.drag(t, 5, 5, 25, 8)
	model, cmd := f.app.Update(enterKey)
	f.app = model.(*App)
	if cmd == nil || !f.app.submitting {
		t.Fatalf("expected submission in flight")
	}
	if f.app.keys.Submit.Enabled() {
		t.Fatalf("submit binding must be disabled while submitting")
	}
	if again := f.app.beginSubmit(); again != nil {
		t.Fatalf("second submit must be ignored")
	}
	f.mouse(t, 2, 2, tea.MouseActionPress)
	if f.surface.State() != canvas.Idle {
		t.Fatalf("pad must ignore input while submitting")
	}
	f.app = runCommands(t, f.app, cmd)
	if f.app.submitting || !f.app.keys.Submit.Enabled() {
		t.Fatalf("submit must be re-enabled after the outcome")
	}
}

func TestSubmitLeavesLivePadUntilOutcome(t *testing.T) {
	f := newTestForm(t, "A", "B")
	f.app.participants.Select(1)
	f.drag(t, 5, 5, 25, 8)
	model, cmd := f.app.Update(enterKey)
	f.app = model.(*App)

	msg := cmd()
	if f.surface.IsEmpty() {
		t.Fatalf("submission must not clear the live pad off the update loop")
	}
	f.app.Update(msg)
	if !f.surface.IsEmpty() {
		t.Fatalf("pad must reset once the save is reported")
	}
}

// writeAfterSubmit signs another participant through a second store right
// after each submission, before the form sees the outcome.
type writeAfterSubmit struct {
	*submit.Service
	after func()
}

func (w writeAfterSubmit) SubmitFrom(ctx context.Context, surface canvas.RasterSurface, name string) submit.Outcome {
	out := w.Service.SubmitFrom(ctx, surface, name)
	w.after()
	return out
}

func TestWriteDuringSubmitIsPickedUpByPoll(t *testing.T) {
	f := newTestForm(t, "A", "B", "C")
	ctx := context.Background()
	otherStore := roster.NewStore(f.kv, f.store.Roster())
	f.app.service = writeAfterSubmit{
		Service: submit.NewService(f.store, f.surface, artifact.Encoder{Format: artifact.FormatPNG}),
		after: func() {
			table := otherStore.Load(ctx)
			next, err := roster.CommitSignature(table, 1, "data:image/png;base64,AA==")
			if err != nil {
				t.Fatalf("commit B: %v", err)
			}
			if err := otherStore.Save(ctx, next); err != nil {
				t.Fatalf("save B: %v", err)
			}
		},
	}

	f.app.participants.Select(1)
	f.drag(t, 5, 5, 25, 8)
	f.press(t, enterKey)
	if len(f.app.unsigned) != 2 {
		t.Fatalf("expected the submit outcome's table, got %v", f.app.unsigned)
	}

	rev := f.store.Revision(ctx)
	if rev == f.app.revision {
		t.Fatalf("revision %d already current; the poll would never refresh", rev)
	}
	model, cmd := f.app.Update(revisionMsg{revision: rev})
	f.app = model.(*App)
	if cmd == nil {
		t.Fatalf("expected refresh command")
	}
	f.app = runCommands(t, f.app, f.app.fetchSnapshot())
	if len(f.app.unsigned) != 1 || f.app.unsigned[0].Name != "C" {
		t.Fatalf("poll did not converge, unsigned = %v", f.app.unsigned)
	}
}

func TestCompletionHidesForm(t *testing.T) {
	f := newTestForm(t, "A")
	f.app.participants.Select(1)
	f.drag(t, 5, 5, 25, 8)
	f.press(t, enterKey)
	if !f.app.complete {
		t.Fatalf("expected complete after last signature")
	}
	view := f.app.View()
	if !strings.Contains(view, completeMessage) {
		t.Fatalf("view missing completion message:\n%s", view)
	}
	if strings.Contains(view, placeholderTitle) {
		t.Fatalf("form must be hidden when complete")
	}
	f.drag(t, 5, 5, 25, 8)
	if !f.surface.IsEmpty() {
		t.Fatalf("pad must ignore input when complete")
	}
	if !strings.Contains(f.journal(), "All signatures collected") {
		t.Fatalf("journal missing completion:\n%s", f.journal())
	}
}

func TestConflictFromOtherInstanceRefreshesList(t *testing.T) {
	f := newTestForm(t, "A", "B")
	f.app.participants.Select(1)

	otherSurface := canvas.New(canvas.DefaultOptions())
	other := submit.NewService(roster.NewStore(f.kv, f.store.Roster()), otherSurface, artifact.Encoder{})
	otherSurface.PointerDown(10, 10)
	otherSurface.PointerMove(60, 40)
	if out := other.Submit(context.Background(), "A"); !out.OK() {
		t.Fatalf("other instance submit: %v", out.Err)
	}

	f.drag(t, 5, 5, 25, 8)
	f.press(t, enterKey)
	if f.app.statusMsg != "A signature already exists for this name." {
		t.Fatalf("status = %q", f.app.statusMsg)
	}
	if len(f.app.unsigned) != 1 || f.app.unsigned[0].Name != "B" {
		t.Fatalf("conflict should refresh the list, got %v", f.app.unsigned)
	}
	if f.surface.IsEmpty() {
		t.Fatalf("conflict must keep the drawing")
	}
}

func TestRevisionPollDetectsOtherWriters(t *testing.T) {
	f := newTestForm(t, "A", "B")
	f.app.participants.Select(2)
	if err := f.store.Save(context.Background(), roster.Table{{Image: "data:image/png;base64,AA=="}, {}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	rev := f.store.Revision(context.Background())
	if rev == f.app.revision {
		t.Fatalf("expected revision to move")
	}
	model, cmd := f.app.Update(revisionMsg{revision: rev})
	f.app = model.(*App)
	if cmd == nil {
		t.Fatalf("expected refresh command")
	}
	f.app = runCommands(t, f.app, f.app.fetchSnapshot())
	if f.app.revision != rev || len(f.app.unsigned) != 1 {
		t.Fatalf("snapshot not applied: rev=%d unsigned=%v", f.app.revision, f.app.unsigned)
	}
	if f.app.selectedName() != "B" {
		t.Fatalf("selection should survive refresh, got %q", f.app.selectedName())
	}
}

func TestBridgeEventsAreDelivered(t *testing.T) {
	events := make(chan eventbridge.Event, 1)
	f := newTestForm(t, "A")
	f.app.events = events
	events <- eventbridge.Event{Type: eventbridge.TypeSlotChanged, Revision: 4}
	msg := f.app.waitForBridgeEvent()()
	bridged, ok := msg.(bridgeEventMsg)
	if !ok || bridged.event.Revision != 4 {
		t.Fatalf("unexpected message %#v", msg)
	}
	close(events)
	if msg := f.app.waitForBridgeEvent()(); msg != nil {
		t.Fatalf("closed channel should end the wait, got %#v", msg)
	}
}

func TestFocusToggleAndQuit(t *testing.T) {
	f := newTestForm(t, "A")
	f.press(t, tabKey)
	if f.app.focus != focusPad {
		t.Fatalf("tab should focus the pad")
	}
	f.press(t, tabKey)
	if f.app.focus != focusList {
		t.Fatalf("tab should return focus to the list")
	}
	_, cmd := f.app.Update(quitKey)
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestViewRendersPadAndList(t *testing.T) {
	f := newTestForm(t, "Ahsan", "Nasa")
	f.drag(t, 5, 5, 25, 8)
	view := f.app.View()
	for _, want := range []string{"SIGNROLL", placeholderTitle, "Ahsan", "Nasa", "LOG · journey.log"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
	lines := strings.Split(view, "\n")
	if len(lines) <= padOriginY || !strings.ContainsRune(lines[padOriginY], '\u2800') {
		t.Fatalf("expected pad content on line %d:\n%s", padOriginY, view)
	}
}

func runCommands(t *testing.T, model tea.Model, cmd tea.Cmd) *App {
	t.Helper()
	app, ok := model.(*App)
	if !ok {
		t.Fatalf("unexpected model type: %T", model)
	}
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			break
		}
		nextModel, nextCmd := app.Update(msg)
		var ok bool
		app, ok = nextModel.(*App)
		if !ok {
			t.Fatalf("unexpected model type: %T", nextModel)
		}
		cmd = nextCmd
	}
	return app
}
