package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/tripdeck/tui-go/internal/agent"
	"github.com/tripdeck/tui-go/internal/clarify"
	"github.com/tripdeck/tui-go/internal/config"
	"github.com/tripdeck/tui-go/internal/conversation"
	"github.com/tripdeck/tui-go/internal/gaps"
	"github.com/tripdeck/tui-go/internal/model"
	"github.com/tripdeck/tui-go/internal/render"
)

// ViewMode determines which top-level view is shown
type ViewMode int

const (
	ViewModeMain ViewMode = iota
	ViewModeHelp
)

// focusArea tracks which component receives key events
type focusArea int

const (
	focusNone focusArea = iota
	focusInput
	focusGaps
	focusQuestion
	focusApproval
	focusConsent
)

// Messages

type turnResultMsg struct {
	result conversation.TurnResult
}

type renderTickMsg struct {
	session int
}

type redirectDoneMsg struct {
	target   string
	external bool
}

type settleRefreshMsg struct{}

type gapsLoadedMsg struct {
	gaps []model.Gap
	err  error
}

type gapMutationDoneMsg struct {
	action string
	result gaps.BatchResult
	err    error
}

type clarificationDoneMsg struct {
	err       error
	stillOpen bool
}

type spinnerTickMsg struct{}

// Activity spinner
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Activity phrases (rotated while a turn is in flight)
var activityPhrases = []string{
	"Thinking", "Routing", "Planning", "Checking", "Composing",
}

// Model is the root Bubble Tea model
type Model struct {
	// Terminal dimensions
	width  int
	height int

	viewMode ViewMode
	focus    focusArea

	cfg    *config.Config
	logger *zap.Logger

	// Conversation pipeline
	orch        *conversation.Orchestrator
	renderer    *render.Renderer
	renderMsgID string // message currently being revealed

	// Gap panel pipeline
	gapStore    *gaps.PreferenceStore
	gapCoord    *gaps.Coordinator
	gapList     []model.Gap
	gapCursor   int
	gapTypeIdx  int // cursor into model.GapTypeOptions for the t key
	gapsLoading bool
	gapsBusy    bool // a mutation is in flight

	// Clarification panel
	clarifyCtl    *clarify.Controller
	questionIdx   int
	optionIdx     int
	multiPicks    map[string]map[int]bool // question ID -> picked option indexes
	questionInput textinput.Model
	submitting    bool

	// Approval / consent panels
	consentPrompt string
	decisionIdx   int // 0 = confirm, 1 = decline

	// Command input
	input        textinput.Model
	inputFocused bool

	// Transcript
	viewport viewport.Model

	// In-flight indicator
	sendStartTime time.Time
	spinnerIndex  int

	// Toast-level status
	statusNote     string
	statusNoteTime time.Time

	keys  KeyMap
	ready bool

	// Command suggestions
	showSuggestions    bool
	selectedSuggestion int
}

// Available commands for suggestions
var availableCommands = []struct {
	cmd  string
	desc string
}{
	{"/retry", "Resend the last message"},
	{"/gaps", "Toggle the gap panel"},
	{"/help", "Show help"},
	{"/quit", "Exit"},
}

// NewRootModel wires the root model to the conversation and gap pipelines.
func NewRootModel(
	cfg *config.Config,
	orch *conversation.Orchestrator,
	renderer *render.Renderer,
	gapStore *gaps.PreferenceStore,
	gapCoord *gaps.Coordinator,
	clarifyCtl *clarify.Controller,
	logger *zap.Logger,
) Model {
	if logger == nil {
		logger = zap.NewNop()
	}

	ti := textinput.New()
	ti.Placeholder = "Ask about your trip..."
	ti.Prompt = "❯ "
	ti.PromptStyle = InputPromptStyle
	ti.CharLimit = 0
	ti.Width = 80
	ti.Focus()

	qi := textinput.New()
	qi.Placeholder = "Type your answer..."
	qi.Prompt = "❯ "
	qi.PromptStyle = InputPromptStyle
	qi.CharLimit = 0
	qi.Width = 60

	return Model{
		viewMode:      ViewModeMain,
		focus:         focusInput,
		cfg:           cfg,
		logger:        logger,
		orch:          orch,
		renderer:      renderer,
		gapStore:      gapStore,
		gapCoord:      gapCoord,
		clarifyCtl:    clarifyCtl,
		multiPicks:    make(map[string]map[int]bool),
		input:         ti,
		questionInput: qi,
		inputFocused:  true,
		keys:          DefaultKeyMap(),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		spinnerTickCmd(),
		m.loadGapsCmd(),
	)
}

// Commands

func (m Model) sendTurnCmd(req agent.TurnRequest) tea.Cmd {
	orch := m.orch
	return func() tea.Msg {
		return turnResultMsg{result: orch.Execute(context.Background(), req)}
	}
}

func renderTickCmd(session int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return renderTickMsg{session: session}
	})
}

func redirectDoneCmd(target string, external bool, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return redirectDoneMsg{target: target, external: external}
	})
}

func settleRefreshCmd(after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return settleRefreshMsg{}
	})
}

func spinnerTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

func (m Model) loadGapsCmd() tea.Cmd {
	coord := m.gapCoord
	return func() tea.Msg {
		list, err := coord.Snapshot(context.Background())
		return gapsLoadedMsg{gaps: list, err: err}
	}
}

func (m Model) ignoreSelectedCmd() tea.Cmd {
	coord := m.gapCoord
	return func() tea.Msg {
		return gapMutationDoneMsg{action: "ignore", result: coord.IgnoreSelected(context.Background())}
	}
}

func (m Model) ignoreAllVisibleCmd(visible []model.Gap) tea.Cmd {
	coord := m.gapCoord
	return func() tea.Msg {
		return gapMutationDoneMsg{action: "ignore all", err: coord.IgnoreAllVisible(context.Background(), visible)}
	}
}

func (m Model) unignoreAllCmd() tea.Cmd {
	coord := m.gapCoord
	return func() tea.Msg {
		return gapMutationDoneMsg{action: "restore", err: coord.UnignoreAll(context.Background())}
	}
}

func (m Model) submitClarificationCmd() tea.Cmd {
	ctl := m.clarifyCtl
	return func() tea.Msg {
		err := ctl.Submit(context.Background())
		return clarificationDoneMsg{err: err, stillOpen: ctl.Open()}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		panelWidth := gapPanelWidth
		transcriptWidth := m.width - panelWidth - 2
		bodyHeight := m.height - 6

		m.viewport.Width = transcriptWidth - 6
		m.viewport.Height = bodyHeight - 2
		if m.viewport.Height < 1 {
			m.viewport.Height = 1
		}

		inputWidth := m.width - 8
		if inputWidth < 10 {
			inputWidth = 10
		}
		m.input.Width = inputWidth

		m.refreshTranscript()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case turnResultMsg:
		return m.handleTurnResult(msg)

	case renderTickMsg:
		if msg.session != m.renderer.Session() {
			// Stale tick from a cancelled session.
			return m, nil
		}
		next, more := m.renderer.Advance()
		m.refreshTranscript()
		if more {
			return m, renderTickCmd(m.renderer.Session(), next)
		}
		if m.renderer.TakeCompletion() {
			m.logger.Debug("reveal complete", zap.String("message_id", m.renderMsgID))
		}

	case redirectDoneMsg:
		m.orch.CompleteRedirect()
		where := "another page"
		if msg.target != "" {
			where = msg.target
		}
		if msg.external {
			m.setStatusNote("Opened " + where + " in your browser")
		} else {
			m.setStatusNote("Switched to " + where)
		}
		m.refreshTranscript()

	case settleRefreshMsg:
		m.gapCoord.Invalidate()
		m.gapsLoading = true
		return m, m.loadGapsCmd()

	case gapsLoadedMsg:
		m.gapsLoading = false
		if msg.err != nil {
			m.setStatusNote("Gap refresh failed: " + msg.err.Error())
			return m, nil
		}
		m.gapList = msg.gaps
		m.clampGapCursor()

	case gapMutationDoneMsg:
		m.gapsBusy = false
		switch {
		case msg.err != nil:
			m.setStatusNote(fmt.Sprintf("Could not %s: %v", msg.action, msg.err))
		case msg.action == "ignore" && !msg.result.AllSucceeded():
			m.setStatusNote(fmt.Sprintf("Ignored %d, %d failed and stay selected",
				len(msg.result.Succeeded), len(msg.result.Failed)))
		case msg.action == "ignore":
			m.setStatusNote(fmt.Sprintf("Ignored %d gaps", len(msg.result.Succeeded)))
		default:
			m.setStatusNote("Gap update applied")
		}
		m.clampGapCursor()

	case clarificationDoneMsg:
		m.submitting = false
		var vErr *clarify.ValidationError
		switch {
		case errors.As(msg.err, &vErr):
			// Answers stay; point at the offending question.
			m.setStatusNote("Check your answer: " + vErr.Reason)
			m.focusQuestionByID(vErr.QuestionID)
		case msg.err != nil:
			m.setStatusNote("Could not submit answers: " + msg.err.Error())
		case msg.stillOpen:
			// Another round.
			m.questionIdx = 0
			m.optionIdx = 0
			m.multiPicks = make(map[string]map[int]bool)
			m.setStatusNote("A few more questions")
		default:
			m.focus = focusInput
			m.inputFocused = true
			m.input.Focus()
			m.setStatusNote("Answers submitted")
		}

	case spinnerTickMsg:
		m.spinnerIndex++
		cmds = append(cmds, spinnerTickCmd())
	}

	// Forward remaining events to the focused text input.
	if m.focus == focusInput && m.inputFocused {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.focus == focusQuestion && m.currentQuestionIsText() {
		var cmd tea.Cmd
		m.questionInput, cmd = m.questionInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleTurnResult(msg turnResultMsg) (tea.Model, tea.Cmd) {
	effect := m.orch.ApplyResult(msg.result)
	m.refreshTranscript()

	var cmds []tea.Cmd

	if effect.RenderMessageID != "" {
		m.renderMsgID = effect.RenderMessageID
		delay, started := m.renderer.SetBlocks(effect.RenderBlocks, m.cfg.Typewriter.Enabled)
		if started {
			cmds = append(cmds, renderTickCmd(m.renderer.Session(), delay))
		} else if m.renderer.TakeCompletion() {
			m.refreshTranscript()
		}
	}
	if effect.RefreshAfter > 0 {
		cmds = append(cmds, settleRefreshCmd(effect.RefreshAfter))
	}
	if effect.NavigateTarget != "" {
		cmds = append(cmds, redirectDoneCmd(effect.NavigateTarget, effect.NavigateExternal, effect.NavigateAfter))
	}
	if effect.ApprovalID != "" {
		m.focus = focusApproval
		m.decisionIdx = 0
		m.blurInput()
	}
	if effect.ConsentPrompt != "" {
		m.consentPrompt = effect.ConsentPrompt
		m.focus = focusConsent
		m.decisionIdx = 0
		m.blurInput()
	}
	if len(effect.Questions) > 0 {
		tripID := m.cfg.TripID
		m.clarifyCtl.Begin(tripID, effect.FindingID, effect.Questions)
		m.questionIdx = 0
		m.optionIdx = 0
		m.multiPicks = make(map[string]map[int]bool)
		m.focus = focusQuestion
		m.blurInput()
		if m.currentQuestionIsText() {
			m.questionInput.SetValue("")
			m.questionInput.Focus()
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global bindings first.
	if key.Matches(msg, m.keys.Interrupt) {
		return m, tea.Quit
	}

	if m.viewMode == ViewModeHelp {
		m.viewMode = ViewModeMain
		return m, nil
	}

	switch m.focus {
	case focusApproval:
		return m.handleApprovalKey(msg)
	case focusConsent:
		return m.handleConsentKey(msg)
	case focusQuestion:
		return m.handleQuestionKey(msg)
	case focusGaps:
		return m.handleGapKey(msg)
	}

	return m.handleInputKey(msg)
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch {
	case key.Matches(msg, m.keys.Escape):
		if m.showSuggestions {
			m.showSuggestions = false
			return m, nil
		}
		m.blurInput()
		m.focus = focusNone
		return m, nil

	case key.Matches(msg, m.keys.GapPanel):
		m.blurInput()
		m.focus = focusGaps
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		if m.showSuggestions {
			suggestions := m.getFilteredSuggestions()
			if len(suggestions) > 0 {
				m.input.SetValue(suggestions[m.selectedSuggestion].cmd)
				m.showSuggestions = false
			}
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		if strings.HasPrefix(text, "/") {
			m.input.SetValue("")
			return m.executeCommand(text)
		}
		return m.sendMessage(text)

	case key.Matches(msg, m.keys.Up):
		if m.showSuggestions {
			if m.selectedSuggestion > 0 {
				m.selectedSuggestion--
			}
			return m, nil
		}
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.showSuggestions {
			if m.selectedSuggestion < len(m.getFilteredSuggestions())-1 {
				m.selectedSuggestion++
			}
			return m, nil
		}
		m.viewport.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	// Unfocused: a few one-key actions, then focus on typing.
	if !m.inputFocused {
		switch {
		case key.Matches(msg, m.keys.Help):
			m.viewMode = ViewModeHelp
			return m, nil
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Focus):
			m.focus = focusInput
			m.inputFocused = true
			m.input.Focus()
			return m, textinput.Blink
		case key.Matches(msg, m.keys.Refresh):
			m.gapCoord.Invalidate()
			m.gapsLoading = true
			return m, m.loadGapsCmd()
		}
		// Any other rune starts typing.
		if msg.Type == tea.KeyRunes {
			m.focus = focusInput
			m.inputFocused = true
			m.input.Focus()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	// Slash opens command suggestions.
	value := m.input.Value()
	m.showSuggestions = strings.HasPrefix(value, "/") && len(m.getFilteredSuggestions()) > 0
	if !m.showSuggestions {
		m.selectedSuggestion = 0
	}

	return m, tea.Batch(cmds...)
}

func (m Model) sendMessage(text string) (tea.Model, tea.Cmd) {
	req, err := m.orch.BeginSend(text)
	if err != nil {
		if errors.Is(err, conversation.ErrBusy) {
			m.setStatusNote("Hold on, still working on the last one")
			return m, nil
		}
		m.setStatusNote(err.Error())
		return m, nil
	}
	m.input.SetValue("")
	m.showSuggestions = false
	m.sendStartTime = time.Now()
	m.refreshTranscript()
	return m, m.sendTurnCmd(req)
}

func (m *Model) executeCommand(cmd string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(cmd)
	switch parts[0] {
	case "/help":
		m.viewMode = ViewModeHelp
	case "/quit":
		return *m, tea.Quit
	case "/gaps":
		m.gapStore.ToggleCollapsed()
	case "/retry":
		req, err := m.orch.RetryLast()
		if err != nil {
			m.setStatusNote(err.Error())
			return *m, nil
		}
		m.sendStartTime = time.Now()
		m.refreshTranscript()
		return *m, m.sendTurnCmd(req)
	default:
		m.setStatusNote("Unknown command: " + parts[0])
	}
	return *m, nil
}

func (m Model) handleApprovalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		// Dismissing decides nothing; the gate just closes.
		m.orch.DismissApproval()
		m.focus = focusInput
		m.inputFocused = true
		m.input.Focus()
		m.refreshTranscript()
		return m, nil
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		m.decisionIdx = 1 - m.decisionIdx
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		m.orch.ResolveApproval(m.decisionIdx == 0)
		m.focus = focusInput
		m.inputFocused = true
		m.input.Focus()
		m.refreshTranscript()
		return m, nil
	}
	switch msg.String() {
	case "y":
		m.orch.ResolveApproval(true)
	case "n":
		m.orch.ResolveApproval(false)
	default:
		return m, nil
	}
	m.focus = focusInput
	m.inputFocused = true
	m.input.Focus()
	m.refreshTranscript()
	return m, nil
}

func (m Model) handleConsentKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	decide := func(allow bool) (tea.Model, tea.Cmd) {
		req, resend := m.orch.ResolveConsent(allow)
		m.consentPrompt = ""
		m.focus = focusInput
		m.inputFocused = true
		m.input.Focus()
		m.refreshTranscript()
		if resend {
			m.sendStartTime = time.Now()
			return m, m.sendTurnCmd(req)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Escape):
		return decide(false)
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		m.decisionIdx = 1 - m.decisionIdx
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		return decide(m.decisionIdx == 0)
	}
	switch msg.String() {
	case "y":
		return decide(true)
	case "n":
		return decide(false)
	}
	return m, nil
}

func (m Model) handleQuestionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	questions := m.clarifyCtl.Questions()
	if len(questions) == 0 {
		m.focus = focusInput
		return m, nil
	}
	q := questions[m.questionIdx]

	if key.Matches(msg, m.keys.Escape) {
		m.clarifyCtl.Cancel()
		m.focus = focusInput
		m.inputFocused = true
		m.input.Focus()
		m.setStatusNote("Clarification dismissed")
		return m, nil
	}

	if q.Type == model.QuestionText {
		if key.Matches(msg, m.keys.Enter) {
			m.clarifyCtl.SetAnswer(q.ID, m.questionInput.Value())
			return m.advanceQuestion()
		}
		var cmd tea.Cmd
		m.questionInput, cmd = m.questionInput.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.optionIdx > 0 {
			m.optionIdx--
		}
	case key.Matches(msg, m.keys.Down):
		if m.optionIdx < len(q.Options)-1 {
			m.optionIdx++
		}
	case key.Matches(msg, m.keys.ToggleSelect):
		if q.Type == model.QuestionMultiple {
			picks := m.multiPicks[q.ID]
			if picks == nil {
				picks = make(map[int]bool)
				m.multiPicks[q.ID] = picks
			}
			picks[m.optionIdx] = !picks[m.optionIdx]
		}
	case key.Matches(msg, m.keys.Enter):
		if q.Type == model.QuestionMultiple {
			var chosen []string
			for i, opt := range q.Options {
				if m.multiPicks[q.ID][i] {
					chosen = append(chosen, opt)
				}
			}
			m.clarifyCtl.SetAnswer(q.ID, chosen)
		} else {
			if m.optionIdx < len(q.Options) {
				m.clarifyCtl.SetAnswer(q.ID, q.Options[m.optionIdx])
			}
		}
		return m.advanceQuestion()
	}
	return m, nil
}

func (m Model) advanceQuestion() (tea.Model, tea.Cmd) {
	questions := m.clarifyCtl.Questions()
	if m.questionIdx < len(questions)-1 {
		m.questionIdx++
		m.optionIdx = 0
		if m.currentQuestionIsText() {
			m.questionInput.SetValue("")
			m.questionInput.Focus()
		}
		return m, nil
	}
	// Last question answered: validate locally first so nothing leaves the
	// process with a required answer missing.
	if err := clarify.Validate(questions, m.collectedAnswers()); err != nil {
		var vErr *clarify.ValidationError
		if errors.As(err, &vErr) {
			m.setStatusNote("Check your answer: " + vErr.Reason)
			m.focusQuestionByID(vErr.QuestionID)
		}
		return m, nil
	}
	m.submitting = true
	return m, m.submitClarificationCmd()
}

func (m Model) collectedAnswers() model.Answers {
	answers := model.Answers{}
	for _, q := range m.clarifyCtl.Questions() {
		if v, ok := m.clarifyCtl.Answer(q.ID); ok {
			answers[q.ID] = v
		}
	}
	return answers
}

func (m *Model) focusQuestionByID(id string) {
	for i, q := range m.clarifyCtl.Questions() {
		if q.ID == id {
			m.questionIdx = i
			m.optionIdx = 0
			if q.Type == model.QuestionText {
				if v, ok := m.clarifyCtl.Answer(id); ok {
					if s, isStr := v.(string); isStr {
						m.questionInput.SetValue(s)
					}
				}
				m.questionInput.Focus()
			}
			return
		}
	}
}

func (m Model) handleGapKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.gapStore.Visible(m.gapList)

	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.GapPanel):
		m.focus = focusInput
		m.inputFocused = true
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Up):
		if m.gapCursor > 0 {
			m.gapCursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.gapCursor < len(visible)-1 {
			m.gapCursor++
		}

	case key.Matches(msg, m.keys.ToggleSelect):
		if m.gapsBusy {
			return m, nil
		}
		if m.gapCursor < len(visible) {
			m.gapStore.ToggleSelect(visible[m.gapCursor].ID)
		}

	case key.Matches(msg, m.keys.SelectAll):
		if !m.gapsBusy {
			m.gapStore.SelectAll(visible)
		}

	case key.Matches(msg, m.keys.ClearSelection):
		if !m.gapsBusy {
			m.gapStore.ClearSelection()
		}

	case key.Matches(msg, m.keys.Ignore):
		if m.gapsBusy || m.gapStore.SelectedCount() == 0 {
			return m, nil
		}
		m.gapsBusy = true
		return m, m.ignoreSelectedCmd()

	case key.Matches(msg, m.keys.IgnoreAll):
		if m.gapsBusy || len(visible) == 0 {
			return m, nil
		}
		m.gapsBusy = true
		return m, m.ignoreAllVisibleCmd(visible)

	case key.Matches(msg, m.keys.UnignoreAll):
		if m.gapsBusy {
			return m, nil
		}
		m.gapsBusy = true
		return m, m.unignoreAllCmd()

	case key.Matches(msg, m.keys.CriticalOnly):
		m.gapStore.ToggleCriticalOnly()
		m.clampGapCursor()

	case key.Matches(msg, m.keys.CycleType):
		m.gapStore.ToggleTypeFilter(model.GapTypeOptions[m.gapTypeIdx])
		m.gapTypeIdx = (m.gapTypeIdx + 1) % len(model.GapTypeOptions)
		m.clampGapCursor()

	case key.Matches(msg, m.keys.ClearFilters):
		m.gapStore.ClearTypeFilter()
		m.clampGapCursor()

	case key.Matches(msg, m.keys.Collapse):
		m.gapStore.ToggleCollapsed()

	case key.Matches(msg, m.keys.Refresh):
		m.gapCoord.Invalidate()
		m.gapsLoading = true
		return m, m.loadGapsCmd()

	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.viewMode = ViewModeHelp
	}
	return m, nil
}

// State helpers

func (m *Model) blurInput() {
	m.inputFocused = false
	m.input.Blur()
}

func (m *Model) setStatusNote(note string) {
	m.statusNote = note
	m.statusNoteTime = time.Now()
}

func (m *Model) clampGapCursor() {
	visible := m.gapStore.Visible(m.gapList)
	if m.gapCursor >= len(visible) {
		m.gapCursor = len(visible) - 1
	}
	if m.gapCursor < 0 {
		m.gapCursor = 0
	}
}

func (m Model) currentQuestionIsText() bool {
	if m.focus != focusQuestion {
		return false
	}
	questions := m.clarifyCtl.Questions()
	if m.questionIdx >= len(questions) {
		return false
	}
	return questions[m.questionIdx].Type == model.QuestionText
}

func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscriptContent())
	m.viewport.GotoBottom()
}

// View

const gapPanelWidth = 34

// View renders the interface
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.viewMode == ViewModeHelp {
		return m.helpView()
	}
	return m.mainView()
}

func (m Model) mainView() string {
	header := m.renderHeader()

	bodyHeight := m.height - 6
	panel := m.renderGapPanel(gapPanelWidth, bodyHeight)
	transcriptWidth := m.width - gapPanelWidth - 2
	transcript := m.renderTranscript(transcriptWidth, bodyHeight)

	body := lipgloss.JoinHorizontal(lipgloss.Top, transcript, panel)
	input := m.renderInput()
	statusBar := m.renderStatusBar()

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		input,
		statusBar,
	)
}

func (m Model) renderHeader() string {
	title := lipgloss.NewStyle().
		Foreground(ColorBlue).
		Bold(true).
		Render("TRIPDECK")

	subtitle := lipgloss.NewStyle().
		Foreground(ColorFgMuted).
		Render("Travel Planning Assistant")

	var tripInfo string
	if m.cfg.TripID != "" {
		tripInfo = lipgloss.NewStyle().
			Foreground(ColorFgSecondary).
			Render(" · trip " + m.cfg.TripID)
	}

	headerLine := title + "  " + subtitle + tripInfo

	return lipgloss.NewStyle().
		PaddingLeft(1).
		Width(m.width).
		Render(headerLine) + "\n"
}

func (m Model) renderTranscript(width, height int) string {
	title := TranscriptHeaderStyle.Render("CONVERSATION")
	if m.orch.State() == conversation.StateSending {
		title = title + "  " + m.renderActivityIndicator()
	}

	content := title + "\n" + m.viewport.View()

	return TranscriptStyle.
		Width(width - 4).
		Height(height - 2).
		Render(content)
}

func (m Model) renderActivityIndicator() string {
	elapsed := time.Since(m.sendStartTime)
	spinner := spinnerFrames[m.spinnerIndex%len(spinnerFrames)]
	phraseIndex := int(elapsed.Seconds()/2) % len(activityPhrases)
	phrase := activityPhrases[phraseIndex]

	indicator := fmt.Sprintf("%s %s… ", spinner, phrase)
	meta := fmt.Sprintf("(%ds)", int(elapsed.Seconds()))

	return lipgloss.NewStyle().Foreground(ColorYellow).Render(indicator) +
		lipgloss.NewStyle().Foreground(ColorFgMuted).Render(meta)
}

func (m Model) renderTranscriptContent() string {
	var b strings.Builder
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}

	for _, msg := range m.orch.Messages() {
		switch {
		case msg.Role == model.RoleUser:
			b.WriteString(UserInputStyle.Render(
				UserTextStyle.Render("You") + "\n" + wrapText(msg.Content, width-2)))
			b.WriteString("\n")

		case msg.IsPlaceholder():
			spinner := spinnerFrames[m.spinnerIndex%len(spinnerFrames)]
			b.WriteString(DimStyle.Render(spinner + " " + msg.Content))
			b.WriteString("\n\n")

		case msg.Status == model.StatusFailed:
			b.WriteString(ErrorStyle.Render("✗ " + wrapText(msg.Content, width-2)))
			if msg.Retryable {
				b.WriteString("\n")
				b.WriteString(DimStyle.Render("  /retry to send it again"))
			}
			b.WriteString("\n\n")

		case msg.Status == model.StatusAwaitingConfirmation:
			b.WriteString(WarningStyle.Render("⏸ " + wrapText(msg.Content, width-2)))
			b.WriteString("\n\n")

		default:
			b.WriteString(m.renderAssistantMessage(msg, width))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderAssistantMessage(msg model.Message, width int) string {
	blocks := msg.Blocks
	if msg.ID == m.renderMsgID && m.renderer.CurrentPhase() != render.PhaseIdle {
		blocks = m.renderer.Visible()
	}

	var b strings.Builder
	if len(blocks) == 0 {
		b.WriteString(wrapText(msg.Content, width-4))
	}
	for i, block := range blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderBlock(block, width-4))
	}

	meta := m.renderRouteMeta(msg)
	rendered := AssistantStyle.Render(b.String())
	if meta != "" {
		rendered += "\n" + meta
	}
	return rendered + "\n"
}

func (m Model) renderRouteMeta(msg model.Message) string {
	if msg.RouteType == "" {
		return ""
	}
	parts := []string{string(msg.RouteType)}
	if msg.DecisionLogCount > 0 {
		parts = append(parts, fmt.Sprintf("%d reasoning steps", msg.DecisionLogCount))
	}
	if msg.HasPlan {
		parts = append(parts, "plan updated")
	}
	return DimStyle.Render("  " + strings.Join(parts, " · "))
}

func (m Model) renderBlock(block model.ContentBlock, width int) string {
	switch block.Type {
	case model.BlockHeading:
		return HeadingStyle.Render(block.Text)

	case model.BlockList:
		var b strings.Builder
		for i, item := range block.Items {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("• " + wrapText(item, width-2))
		}
		return b.String()

	case model.BlockSummaryCard, model.BlockBudgetSummary, model.BlockItineraryOverview:
		var b strings.Builder
		if block.Title != "" {
			b.WriteString(CardTitleStyle.Render(block.Title))
		}
		for _, f := range block.Fields {
			b.WriteString("\n")
			b.WriteString(DimStyle.Render(f.Label+": ") + f.Value)
		}
		return CardStyle.Width(min(width, 60)).Render(b.String())

	case model.BlockHighlight:
		style := HighlightInfoStyle
		switch block.HighlightType {
		case "warning":
			style = HighlightWarningStyle
		case "success":
			style = HighlightSuccessStyle
		}
		return style.Render(wrapText(block.Text, width-2))

	case model.BlockQuestionCard:
		return DimStyle.Render("❓ " + wrapText(block.Text, width-2))
	}

	return wrapText(block.Text, width)
}

func (m Model) renderGapPanel(width, height int) string {
	prefs := m.gapStore.Preferences()
	title := GapPanelTitleStyle.Render("TRIP GAPS")

	var content strings.Builder
	content.WriteString(title)
	content.WriteString("\n")

	visible := m.gapStore.Visible(m.gapList)

	if prefs.Collapsed {
		content.WriteString(DimStyle.Render(fmt.Sprintf("%d gaps hidden · o to expand", len(visible))))
		return GapPanelStyle.Width(width - 2).Height(height - 2).Render(content.String())
	}

	// Filter summary line
	var filters []string
	if prefs.ShowOnlyCritical {
		filters = append(filters, "critical")
	}
	if len(prefs.FilterTypes) > 0 {
		filters = append(filters, fmt.Sprintf("%d types", len(prefs.FilterTypes)))
	}
	if len(filters) > 0 {
		content.WriteString(DimStyle.Render("filter: " + strings.Join(filters, ", ")))
	} else {
		content.WriteString(DimStyle.Render("no filters"))
	}
	content.WriteString("\n\n")

	if m.gapsLoading {
		spinner := spinnerFrames[m.spinnerIndex%len(spinnerFrames)]
		content.WriteString(DimStyle.Render(spinner + " loading gaps..."))
	} else if len(visible) == 0 {
		content.WriteString(DimStyle.Render("No gaps to show"))
	}

	maxRows := height - 8
	for i, gap := range visible {
		if i >= maxRows {
			content.WriteString(DimStyle.Render(fmt.Sprintf("… and %d more", len(visible)-maxRows)))
			break
		}
		content.WriteString(m.renderGapRow(gap, i, width-4))
		content.WriteString("\n")
	}

	if m.gapStore.SelectedCount() > 0 {
		content.WriteString("\n")
		content.WriteString(WarningStyle.Render(fmt.Sprintf("%d selected · i to ignore", m.gapStore.SelectedCount())))
	}
	if m.gapStore.IgnoredCount() > 0 {
		content.WriteString("\n")
		content.WriteString(DimStyle.Render(fmt.Sprintf("%d ignored · u to restore", m.gapStore.IgnoredCount())))
	}

	return GapPanelStyle.Width(width - 2).Height(height - 2).Render(content.String())
}

func (m Model) renderGapRow(gap model.Gap, index, width int) string {
	marker := "  "
	if m.focus == focusGaps && index == m.gapCursor {
		marker = "▸ "
	}
	check := "[ ] "
	if m.gapStore.IsSelected(gap.ID) {
		check = "[x] "
	}

	var sevStyle lipgloss.Style
	switch gap.Severity {
	case model.SeverityCritical:
		sevStyle = GapCriticalStyle
	case model.SeveritySuggested:
		sevStyle = GapSuggestedStyle
	default:
		sevStyle = GapOptionalStyle
	}

	label := fmt.Sprintf("D%d %s", gap.DayNumber, gap.Description)
	return marker + check + sevStyle.Render(truncate(label, width-8))
}

func (m Model) renderInput() string {
	var result strings.Builder

	switch m.focus {
	case focusQuestion:
		result.WriteString(m.renderQuestionPanel())
		result.WriteString("\n")
	case focusApproval:
		result.WriteString(m.renderApprovalPanel())
		result.WriteString("\n")
	case focusConsent:
		result.WriteString(m.renderConsentPanel())
		result.WriteString("\n")
	}

	if m.showSuggestions && m.inputFocused && m.focus == focusInput {
		suggestions := m.getFilteredSuggestions()
		if len(suggestions) > 0 {
			var suggestionsContent strings.Builder
			for i, s := range suggestions {
				var itemStyle lipgloss.Style
				if i == m.selectedSuggestion {
					itemStyle = lipgloss.NewStyle().
						Background(ColorBgHighlight).
						Foreground(ColorFgPrimary).
						Bold(true).
						Padding(0, 1)
				} else {
					itemStyle = lipgloss.NewStyle().
						Foreground(ColorFgPrimary).
						Padding(0, 1)
				}
				descStyle := lipgloss.NewStyle().Foreground(ColorFgMuted)

				suggestionsContent.WriteString(itemStyle.Render(s.cmd))
				suggestionsContent.WriteString(descStyle.Render(" - " + s.desc))
				suggestionsContent.WriteString("\n")
			}

			suggestionsBox := lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorder).
				Padding(0, 1).
				Width(m.width - 4).
				Render(strings.TrimSuffix(suggestionsContent.String(), "\n"))

			result.WriteString(suggestionsBox)
			result.WriteString("\n")
		}
	}

	var style lipgloss.Style
	if m.inputFocused {
		style = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGreen).
			Padding(0, 1).
			Width(m.width - 4)
	} else {
		style = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1).
			Width(m.width - 4)
	}

	result.WriteString(style.Render(m.input.View()))
	return result.String()
}

func (m Model) renderQuestionPanel() string {
	questions := m.clarifyCtl.Questions()
	if len(questions) == 0 {
		return ""
	}
	q := questions[m.questionIdx]
	lang := m.cfg.Language

	var content strings.Builder

	header := PanelTitleStyle.Render(
		fmt.Sprintf("❓ Question %d of %d", m.questionIdx+1, len(questions)))
	if m.clarifyCtl.Round() > 1 {
		header += DimStyle.Render(fmt.Sprintf("  (round %d)", m.clarifyCtl.Round()))
	}
	content.WriteString(header)
	content.WriteString("\n\n")

	label := q.Label.Get(lang)
	if q.Required {
		label += ErrorStyle.Render(" *")
	}
	content.WriteString(lipgloss.NewStyle().Foreground(ColorFgPrimary).Render(label))
	content.WriteString("\n")
	if q.Hint != "" {
		content.WriteString(DimStyle.Render(q.Hint))
		content.WriteString("\n")
	}
	content.WriteString("\n")

	if q.Type == model.QuestionText {
		content.WriteString(m.questionInput.View())
		content.WriteString("\n\n")
		content.WriteString(DimStyle.Render("Enter next • Esc cancel"))
	} else {
		for i, opt := range q.Options {
			var optStyle lipgloss.Style
			prefix := "  "
			if i == m.optionIdx {
				optStyle = lipgloss.NewStyle().
					Background(ColorBgHighlight).
					Foreground(ColorFgPrimary).
					Bold(true).
					Padding(0, 1)
				prefix = "▸ "
			} else {
				optStyle = lipgloss.NewStyle().
					Foreground(ColorFgPrimary).
					Padding(0, 1)
			}

			mark := ""
			if q.Type == model.QuestionMultiple {
				if m.multiPicks[q.ID][i] {
					mark = "[x] "
				} else {
					mark = "[ ] "
				}
			}
			content.WriteString(optStyle.Render(prefix + mark + opt))
			content.WriteString("\n")
		}
		content.WriteString("\n")
		if q.Type == model.QuestionMultiple {
			content.WriteString(DimStyle.Render("↑/↓ navigate • Space toggle • Enter next • Esc cancel"))
		} else {
			content.WriteString(DimStyle.Render("↑/↓ navigate • Enter select • Esc cancel"))
		}
	}

	if m.submitting {
		spinner := spinnerFrames[m.spinnerIndex%len(spinnerFrames)]
		content.WriteString("\n")
		content.WriteString(DimStyle.Render(spinner + " submitting..."))
	}

	return PanelStyle.Width(m.width - 8).Render(content.String())
}

func (m Model) renderApprovalPanel() string {
	approvalID, ok := m.orch.PendingApproval()
	if !ok {
		return ""
	}

	var content strings.Builder
	content.WriteString(PanelTitleStyle.Render("⏸ Approval needed"))
	content.WriteString("\n\n")
	content.WriteString(lipgloss.NewStyle().Foreground(ColorFgPrimary).Render(
		"The assistant wants to make a change that needs your sign-off."))
	content.WriteString("\n")
	content.WriteString(DimStyle.Render("Reference: " + approvalID))
	content.WriteString("\n\n")

	content.WriteString(m.renderDecisionRow("Approve", "Reject"))
	content.WriteString("\n\n")
	content.WriteString(DimStyle.Render("y approve • n reject • Esc dismiss"))

	return PanelStyle.Width(m.width - 8).Render(content.String())
}

func (m Model) renderConsentPanel() string {
	var content strings.Builder
	content.WriteString(PanelTitleStyle.Render("🌐 Consent needed"))
	content.WriteString("\n\n")
	content.WriteString(lipgloss.NewStyle().Foreground(ColorFgPrimary).Render(m.consentPrompt))
	content.WriteString("\n\n")
	content.WriteString(m.renderDecisionRow("Allow", "Deny"))
	content.WriteString("\n\n")
	content.WriteString(DimStyle.Render("y allow • n deny • Esc deny"))

	return PanelStyle.Width(m.width - 8).Render(content.String())
}

func (m Model) renderDecisionRow(confirm, decline string) string {
	confirmStyle := lipgloss.NewStyle().Foreground(ColorFgPrimary).Padding(0, 1)
	declineStyle := confirmStyle
	if m.decisionIdx == 0 {
		confirmStyle = lipgloss.NewStyle().
			Background(ColorBgHighlight).
			Foreground(ColorGreen).
			Bold(true).
			Padding(0, 1)
	} else {
		declineStyle = lipgloss.NewStyle().
			Background(ColorBgHighlight).
			Foreground(ColorRed).
			Bold(true).
			Padding(0, 1)
	}
	return confirmStyle.Render("▸ "+confirm) + "   " + declineStyle.Render("▸ "+decline)
}

func (m Model) renderStatusBar() string {
	var state string
	switch m.orch.State() {
	case conversation.StateSending:
		state = StatusRunningStyle.Render("● sending")
	case conversation.StateAwaitingApproval:
		state = WarningStyle.Render("● awaiting approval")
	case conversation.StateAwaitingConsent:
		state = WarningStyle.Render("● awaiting consent")
	case conversation.StateRedirecting:
		state = StatusIdleStyle.Render("● redirecting")
	default:
		state = StatusIdleStyle.Render("● idle")
	}

	note := ""
	if m.statusNote != "" && time.Since(m.statusNoteTime) < 5*time.Second {
		note = "  " + m.statusNote
	}

	help := DimStyle.Render("  ? help · tab gaps · ctrl+c quit")

	return StatusBarStyle.Width(m.width).Render(state + note + help)
}

func (m Model) helpView() string {
	var content strings.Builder
	content.WriteString(HelpTitleStyle.Render("TRIPDECK HELP"))
	content.WriteString("\n\n")

	sections := []struct {
		title string
		keys  []key.Binding
	}{
		{"Conversation", []key.Binding{m.keys.Focus, m.keys.Enter, m.keys.Escape}},
		{"Gap panel", []key.Binding{m.keys.GapPanel, m.keys.ToggleSelect, m.keys.SelectAll, m.keys.ClearSelection, m.keys.Ignore, m.keys.IgnoreAll, m.keys.UnignoreAll}},
		{"Filters", []key.Binding{m.keys.CriticalOnly, m.keys.CycleType, m.keys.ClearFilters, m.keys.Collapse, m.keys.Refresh}},
		{"General", []key.Binding{m.keys.Help, m.keys.Quit, m.keys.Interrupt}},
	}

	for _, section := range sections {
		content.WriteString(HeadingStyle.Render(section.title))
		content.WriteString("\n")
		for _, binding := range section.keys {
			content.WriteString(fmt.Sprintf("  %s  %s\n",
				HelpKeyStyle.Render(fmt.Sprintf("%-10s", binding.Help().Key)),
				HelpDescStyle.Render(binding.Help().Desc)))
		}
		content.WriteString("\n")
	}
	content.WriteString(DimStyle.Render("Commands: /retry /gaps /help /quit"))
	content.WriteString("\n\n")
	content.WriteString(DimStyle.Render("Press any key to close"))

	return HelpStyle.Width(m.width - 4).Render(content.String())
}

func (m Model) getFilteredSuggestions() []struct {
	cmd  string
	desc string
} {
	value := m.input.Value()
	if !strings.HasPrefix(value, "/") {
		return nil
	}
	var filtered []struct {
		cmd  string
		desc string
	}
	for _, c := range availableCommands {
		if strings.HasPrefix(c.cmd, value) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// Helpers

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max < 1 {
		return ""
	}
	return s[:max-1] + "…"
}

// wrapText wraps text to fit within a given width, preserving word boundaries
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		if i > 0 {
			result.WriteString("\n")
		}

		if len(line) <= width {
			result.WriteString(line)
			continue
		}

		words := strings.Fields(line)
		currentLine := ""

		for _, word := range words {
			if currentLine == "" {
				if len(word) > width {
					for len(word) > width {
						result.WriteString(word[:width])
						result.WriteString("\n")
						word = word[width:]
					}
					currentLine = word
				} else {
					currentLine = word
				}
			} else if len(currentLine)+1+len(word) <= width {
				currentLine += " " + word
			} else {
				result.WriteString(currentLine)
				result.WriteString("\n")
				if len(word) > width {
					for len(word) > width {
						result.WriteString(word[:width])
						result.WriteString("\n")
						word = word[width:]
					}
					currentLine = word
				} else {
					currentLine = word
				}
			}
		}

		if currentLine != "" {
			result.WriteString(currentLine)
		}
	}

	return result.String()
}
