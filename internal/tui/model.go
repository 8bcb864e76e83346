// Package tui provides the Bubble Tea front end over gate.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/typegate/internal/gate"
	"github.com/verte-zerg/typegate/internal/generator"
	"github.com/verte-zerg/typegate/internal/license"
	"github.com/verte-zerg/typegate/internal/report"
)

type tickMsg struct {
	gen int
}

type noticeMsg struct{}

type adminView int

const (
	adminNone adminView = iota
	adminCodes
	adminClients
)

type pendingAction struct {
	index int
	ban   bool
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	headerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0")).Bold(true)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	noticeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	selectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	cardStyle        = lipgloss.NewStyle().
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

// Model implements the Bubble Tea interface for one client session.
type Model struct {
	ctx         context.Context
	gate        *gate.Gate
	log         *zap.Logger
	durationSec int

	width  int
	height int

	codeInput     textinput.Model
	sentenceInput textinput.Model
	showRequest   bool
	topicCursor   int
	clockGen      int
	errMsg        string

	adminView  adminView
	adminTable table.Model
	generated  string
	pending    *pendingAction

	review viewport.Model
}

// NewModel constructs the UI. g must already have run Start.
func NewModel(ctx context.Context, g *gate.Gate, durationSec int, log *zap.Logger) *Model {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Model{
		ctx:           ctx,
		gate:          g,
		log:           log,
		durationSec:   durationSec,
		codeInput:     newInput("Code: ", "AB123"),
		sentenceInput: newInput("> ", "Type the sentence above"),
		adminTable:    newAdminTable(),
		review:        viewport.New(0, 0),
	}
	m.codeInput.CharLimit = 16
	if g.Screen() == gate.ScreenAuth {
		m.codeInput.Focus()
	}
	return m
}

func newInput(prompt, placeholder string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.Placeholder = placeholder
	input.CharLimit = 0
	return input
}

func newAdminTable() table.Model {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#F0F0F0")).
		Background(lipgloss.Color("#3A3A3A"))
	t := table.New(table.WithFocused(true), table.WithHeight(10))
	t.SetStyles(styles)
	return t
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.gate.Screen() == gate.ScreenAuth {
		return textinput.Blink
	}
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tickMsg:
		return m.handleTick(msg)
	case noticeMsg:
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		m.errMsg = ""
		switch m.gate.Screen() {
		case gate.ScreenAuth:
			return m.updateAuth(msg)
		case gate.ScreenBanned:
			m.gate.AcknowledgeBanned()
			return m, m.codeInput.Focus()
		case gate.ScreenWelcome:
			return m.updateWelcome(msg)
		case gate.ScreenInstructions:
			return m.updateInstructions(msg)
		case gate.ScreenAdmin:
			return m.updateAdmin(msg)
		case gate.ScreenTest:
			return m.updateTest(msg)
		case gate.ScreenResult:
			return m.updateResult(msg)
		case gate.ScreenReview:
			return m.updateReview(msg)
		}
	}
	var cmd tea.Cmd
	switch m.gate.Screen() {
	case gate.ScreenAuth:
		m.codeInput, cmd = m.codeInput.Update(msg)
	case gate.ScreenTest:
		m.sentenceInput, cmd = m.sentenceInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) observe(runes []rune) bool {
	for _, r := range runes {
		if m.gate.Key(r) {
			return true
		}
	}
	return false
}

func (m *Model) noticeCmd() tea.Cmd {
	if _, ok := m.gate.Notice(); !ok {
		return nil
	}
	return tea.Tick(gate.NoticeTTL, func(time.Time) tea.Msg {
		return noticeMsg{}
	})
}

func (m *Model) tickCmd() tea.Cmd {
	gen := m.clockGen
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

func (m *Model) handleTick(msg tickMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.clockGen || m.gate.Screen() != gate.ScreenTest {
		return m, nil
	}
	if m.gate.Tick() {
		m.sentenceInput.Blur()
		return m, nil
	}
	return m, m.tickCmd()
}

func (m *Model) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		if _, err := m.gate.SubmitCode(m.ctx, m.codeInput.Value()); err != nil && !errors.Is(err, license.ErrEmptyCode) {
			m.log.Error("license redemption failed", zap.Error(err))
		}
		if m.gate.Screen() == gate.ScreenWelcome {
			m.codeInput.Reset()
			m.codeInput.Blur()
		}
		return m, m.noticeCmd()
	case tea.KeyTab:
		m.showRequest = !m.showRequest
		return m, nil
	case tea.KeyRunes:
		if !msg.Paste && m.observe(msg.Runes) {
			return m.openAdmin()
		}
	}
	var cmd tea.Cmd
	m.codeInput, cmd = m.codeInput.Update(msg)
	return m, cmd
}

func (m *Model) updateWelcome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyRunes && m.observe(msg.Runes) {
		return m.openAdmin()
	}
	switch msg.String() {
	case "up", "k":
		if m.topicCursor > 0 {
			m.topicCursor--
		}
	case "down", "j":
		if m.topicCursor < len(generator.Topics)-1 {
			m.topicCursor++
		}
	case "enter", " ":
		if err := m.gate.SelectTopic(generator.Topics[m.topicCursor]); err != nil {
			m.errMsg = err.Error()
		}
	case "s":
		return m.startTest()
	case "i":
		m.gate.ShowInstructions()
	case "q", "esc":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) updateInstructions(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter", "b", "h":
		m.gate.Home()
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) startTest() (tea.Model, tea.Cmd) {
	if _, err := m.gate.StartTest(); err != nil {
		if !errors.Is(err, gate.ErrNoTopic) {
			m.errMsg = err.Error()
			m.log.Error("failed to start assessment", zap.Error(err))
		}
		return m, m.noticeCmd()
	}
	m.sentenceInput.Reset()
	m.clockGen++
	return m, tea.Batch(m.sentenceInput.Focus(), m.tickCmd())
}

func (m *Model) updateTest(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyDown, tea.KeyTab:
		m.focusSentence(m.gate.NextSentence())
		return m, nil
	case tea.KeyUp, tea.KeyShiftTab:
		m.focusSentence(m.gate.PrevSentence())
		return m, nil
	case tea.KeyCtrlE:
		if _, err := m.gate.Finish(); err != nil {
			m.errMsg = err.Error()
		}
		m.sentenceInput.Blur()
		return m, nil
	}
	if msg.Paste {
		return m, nil
	}
	var cmd tea.Cmd
	m.sentenceInput, cmd = m.sentenceInput.Update(msg)
	if err := m.gate.RecordInput(m.gate.Sentence(), m.sentenceInput.Value()); err != nil {
		m.log.Debug("input dropped", zap.Error(err))
	}
	return m, cmd
}

func (m *Model) focusSentence(index int) {
	sess := m.gate.Engine().Session()
	if sess == nil || index >= len(sess.UserInputs) {
		return
	}
	m.sentenceInput.SetValue(sess.UserInputs[index])
	m.sentenceInput.CursorEnd()
}

func (m *Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "r", "v":
		lines, err := m.gate.Review()
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.review.SetContent(renderReview(lines, m.contentWidth()))
		m.review.GotoTop()
	case "n":
		m.gate.Restart()
	case "h", "esc", "c":
		m.gate.Home()
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "b":
		if err := m.gate.BackToResult(); err != nil {
			m.errMsg = err.Error()
		}
		return m, nil
	case "h":
		m.gate.Home()
		return m, nil
	case "q":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.review, cmd = m.review.Update(msg)
	return m, cmd
}

func (m *Model) openAdmin() (tea.Model, tea.Cmd) {
	m.codeInput.Blur()
	m.adminView = adminNone
	m.generated = ""
	m.pending = nil
	return m, nil
}

func (m *Model) closeAdmin() tea.Cmd {
	m.adminView = adminNone
	m.generated = ""
	m.pending = nil
	m.codeInput.Reset()
	if m.gate.Screen() != gate.ScreenAuth {
		return nil
	}
	return tea.Batch(m.codeInput.Focus(), m.noticeCmd())
}

func (m *Model) updateAdmin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pending != nil {
		action := *m.pending
		m.pending = nil
		if msg.String() != "y" {
			return m, nil
		}
		return m.applyPending(action)
	}
	switch msg.String() {
	case "g":
		lc, err := m.gate.GenerateCode(m.ctx)
		if err != nil {
			m.errMsg = err.Error()
			return m, m.noticeCmd()
		}
		m.generated = lc.Code
		m.adminView = adminNone
		return m, nil
	case "c":
		m.showCodes()
		return m, nil
	case "u":
		m.showClients()
		return m, nil
	case "b", "r":
		if m.adminView == adminClients && len(m.adminTable.Rows()) > 0 {
			m.pending = &pendingAction{index: m.adminTable.Cursor(), ban: msg.String() == "b"}
		}
		return m, nil
	case "esc":
		m.gate.BackToAuth()
		return m, m.closeAdmin()
	}
	if m.adminView == adminNone {
		return m, nil
	}
	var cmd tea.Cmd
	m.adminTable, cmd = m.adminTable.Update(msg)
	return m, cmd
}

func (m *Model) applyPending(action pendingAction) (tea.Model, tea.Cmd) {
	var err error
	if action.ban {
		err = m.gate.Ban(m.ctx, action.index)
	} else {
		err = m.gate.Unban(m.ctx, action.index)
	}
	if err != nil {
		m.errMsg = err.Error()
		return m, nil
	}
	if m.gate.Screen() != gate.ScreenAdmin {
		return m, m.closeAdmin()
	}
	m.showClients()
	return m, nil
}

func (m *Model) showCodes() {
	codes, err := m.gate.Codes(m.ctx)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	rows := make([][]string, 0, len(codes))
	for i, lc := range codes {
		rows = append(rows, report.CodeRow(i, lc))
	}
	m.setAdminTable(report.CodeHeaders, rows)
	m.adminView = adminCodes
	m.generated = ""
}

func (m *Model) showClients() {
	entries, err := m.gate.Clients(m.ctx)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, report.ClientRow(i, e))
	}
	cursor := m.adminTable.Cursor()
	m.setAdminTable(report.ClientHeaders, rows)
	if m.adminView == adminClients && cursor < len(rows) {
		m.adminTable.SetCursor(cursor)
	}
	m.adminView = adminClients
	m.generated = ""
}

func (m *Model) setAdminTable(headers []string, rows [][]string) {
	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		columns[i] = table.Column{Title: h, Width: lipgloss.Width(h)}
	}
	tableRows := make([]table.Row, 0, len(rows))
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); i < len(columns) && w > columns[i].Width {
				columns[i].Width = w
			}
		}
		tableRows = append(tableRows, table.Row(row))
	}
	m.adminTable.SetRows(nil)
	m.adminTable.SetColumns(columns)
	m.adminTable.SetRows(tableRows)
	m.adminTable.SetCursor(0)
}

func (m *Model) contentWidth() int {
	if m.width <= 0 {
		return 0
	}
	return max(20, int(float64(m.width)*0.70))
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	width := m.contentWidth()
	m.codeInput.Width = 16
	m.sentenceInput.Width = max(1, width-lipgloss.Width(m.sentenceInput.Prompt)-1)
	bodyHeight := max(1, m.height-4)
	m.review.Width = width
	m.review.Height = bodyHeight
	m.adminTable.SetWidth(m.width - 2)
	m.adminTable.SetHeight(max(1, bodyHeight-6))
}
