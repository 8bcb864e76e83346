package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typegate/internal/gate"
	"github.com/verte-zerg/typegate/internal/generator"
	"github.com/verte-zerg/typegate/internal/model"
)

const upcomingSentences = 2

// View implements tea.Model.
func (m *Model) View() string {
	body := m.renderBody()
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return body + "\n" + footer
	}
	footerHeight := lipgloss.Height(footer)
	bodyHeight := max(1, m.height-footerHeight)
	placed := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, body)
	footerLines := lipgloss.Place(m.width, footerHeight, lipgloss.Center, lipgloss.Center, footer)
	return placed + "\n" + footerLines
}

func (m *Model) renderBody() string {
	switch m.gate.Screen() {
	case gate.ScreenBanned:
		return errorStyle.Render(gate.BannedMessage()) + "\n\n" + footerStyle.Render("Press any key to continue")
	case gate.ScreenWelcome:
		return m.renderWelcome()
	case gate.ScreenInstructions:
		return m.renderInstructions()
	case gate.ScreenAdmin:
		return m.renderAdmin()
	case gate.ScreenLoading:
		return pendingStyle.Render("Preparing text...")
	case gate.ScreenTest:
		return m.renderTest()
	case gate.ScreenResult:
		return m.renderResult()
	case gate.ScreenReview:
		return m.review.View()
	default:
		return m.renderAuth()
	}
}

func (m *Model) renderAuth() string {
	lines := []string{
		headerStyle.Render("Typing Assessment"),
		"",
		"Enter your license code to continue.",
		footerStyle.Render("Codes are two letters followed by three digits. Ask an administrator for one."),
		"",
		m.codeInput.View(),
	}
	if m.showRequest {
		lines = append(lines,
			"",
			cardTitleStyle.Render("Need a code?"),
			"Each code works once and authorizes this machine.",
			"Ask your administrator to generate one, then enter it above.",
		)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderWelcome() string {
	lines := []string{headerStyle.Render("Choose a topic"), ""}
	selected := m.gate.Topic()
	for i, topic := range generator.Topics {
		pointer := "  "
		if i == m.topicCursor {
			pointer = "> "
		}
		mark := "○"
		style := pendingStyle
		if topic == selected {
			mark = "●"
			style = selectedStyle
		}
		lines = append(lines, pointer+style.Render(mark+" "+topicTitle(topic)))
	}
	lines = append(lines, "")
	if selected == "" {
		lines = append(lines, footerStyle.Render("Select a topic to enable start"))
	} else {
		lines = append(lines, fmt.Sprintf("Ready: %s", selectedStyle.Render(topicTitle(selected))))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderInstructions() string {
	lines := []string{
		headerStyle.Render("Instructions"),
		"",
		fmt.Sprintf("• The assessment lasts %s. The clock starts when the text appears.", formatClock(m.durationSec)),
		"• Type each sentence into the field below it. Press enter for the next sentence.",
		"• Characters are compared by position. Extra characters count as errors.",
		"• Pasting is disabled.",
		"• Speed is correct characters / 5 per minute over the full duration.",
		"• Accuracy is correct characters out of the whole generated text.",
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderAdmin() string {
	lines := []string{headerStyle.Render("Administration"), ""}
	if m.generated != "" {
		card := cardStyle.Render(cardTitleStyle.Render("New license code") + "\n" + cardValueStyle.Render(m.generated))
		lines = append(lines, card)
	}
	switch m.adminView {
	case adminCodes:
		lines = append(lines, "License codes", m.adminTable.View())
	case adminClients:
		lines = append(lines, "Authorized clients", m.adminTable.View())
	}
	if m.pending != nil {
		verb := "Unban"
		if m.pending.ban {
			verb = "Ban"
		}
		lines = append(lines, "", noticeStyle.Render(fmt.Sprintf("%s client #%d? (y/n)", verb, m.pending.index+1)))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderTest() string {
	sess := m.gate.Engine().Session()
	if sess == nil {
		return ""
	}
	idx := m.gate.Sentence()
	header := headerStyle.Render(fmt.Sprintf("%s  ·  %s", topicTitle(sess.Topic), formatClock(sess.TimeLeftSeconds)))
	if len(sess.Sentences) == 0 {
		return header + "\n\n" + pendingStyle.Render("No text was generated.")
	}
	width := m.contentWidth()
	target := []rune(sess.Sentences[idx])
	input := []rune(sess.UserInputs[idx])
	cursor := len(input)
	if cursor >= len(target) {
		cursor = -1
	}
	lines := []string{
		header,
		footerStyle.Render(fmt.Sprintf("Sentence %d of %d", idx+1, len(sess.Sentences))),
		"",
		wrapStyledRunes(buildStyledRunes(target, input, cursor), width),
		m.sentenceInput.View(),
		"",
	}
	for i := idx + 1; i < len(sess.Sentences) && i <= idx+upcomingSentences; i++ {
		lines = append(lines, wrapStyledRunes(plainRunes(sess.Sentences[i]), width))
	}
	return lipgloss.NewStyle().Width(max(width, 1)).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderResult() string {
	stats, err := m.gate.Result()
	if err != nil {
		return errorStyle.Render(err.Error())
	}
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		statCard("WPM", fmt.Sprintf("%d", stats.WPM)),
		statCard("Accuracy", fmt.Sprintf("%d%%", stats.AccuracyPercent)),
		statCard("Errors", fmt.Sprintf("%d", stats.ErrorChars)),
		statCard("Correct", fmt.Sprintf("%d / %d", stats.CorrectChars, stats.TotalChars)),
	)
	return headerStyle.Render("Assessment complete") + "\n\n" + cards
}

func statCard(title, value string) string {
	return cardStyle.Render(cardTitleStyle.Render(title) + "\n" + cardValueStyle.Render(value))
}

func renderReview(lines []model.ReviewLine, width int) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Review"))
	b.WriteString("\n")
	for _, line := range lines {
		b.WriteString("\n")
		b.WriteString(cardTitleStyle.Render(fmt.Sprintf("Sentence %d", line.SentenceIndex+1)))
		b.WriteString("\n")
		b.WriteString(wrapStyledRunes(plainRunes(line.Original), width))
		b.WriteString("\n")
		if line.Typed == "" {
			b.WriteString(footerStyle.Render("(not typed)"))
		} else {
			b.WriteString(wrapStyledRunes(buildReviewRunes(line.CharVerdicts), width))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderFooter() string {
	segments := []string{footerStyle.Render(m.helpText())}
	if n, ok := m.gate.Notice(); ok {
		style := noticeStyle
		if n.Error {
			style = errorStyle
		}
		segments = append(segments, style.Render(n.Text))
	}
	if m.errMsg != "" {
		segments = append(segments, errorStyle.Render(m.errMsg))
	}
	return strings.Join(segments, "\n")
}

func (m *Model) helpText() string {
	switch m.gate.Screen() {
	case gate.ScreenWelcome:
		return "Move: up/down  Select: enter  Start: s  Instructions: i  Quit: q"
	case gate.ScreenInstructions:
		return "Back: esc"
	case gate.ScreenAdmin:
		if m.adminView == adminClients {
			return "Generate: g  Codes: c  Clients: u  Ban: b  Unban: r  Back: esc"
		}
		return "Generate: g  Codes: c  Clients: u  Back: esc"
	case gate.ScreenTest:
		return "Next: enter  Previous: up  Finish: ctrl+e"
	case gate.ScreenResult:
		return "Review: r  Restart: n  Home: h  Quit: q"
	case gate.ScreenReview:
		return "Scroll: up/down/pgup/pgdn  Back: esc  Home: h"
	case gate.ScreenBanned:
		return "Continue: any key"
	default:
		return "Submit: enter  Request a code: tab  Quit: ctrl+c"
	}
}

// formatClock renders seconds as m:ss.
func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func topicTitle(topic string) string {
	if topic == "" {
		return ""
	}
	return strings.ToUpper(topic[:1]) + topic[1:]
}
