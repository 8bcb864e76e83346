package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/typegate/internal/gate"
	"github.com/verte-zerg/typegate/internal/logging"
	"github.com/verte-zerg/typegate/internal/model"
	"github.com/verte-zerg/typegate/internal/testutil"
	"github.com/verte-zerg/typegate/internal/typing"
)

type fixedContent string

func (f fixedContent) Generate(string, int) (string, error) {
	return string(f), nil
}

func newTestModel(t *testing.T, client string, recs model.Records) (*Model, *gate.Gate) {
	t.Helper()
	ctx := context.Background()
	g := gate.New(testutil.NewMemoryStore(recs), gate.Options{
		Client:    client,
		Generator: fixedContent("Hello. World!"),
		Typing:    typing.Options{DurationSec: 2},
		Log:       logging.Nop(),
	})
	if err := g.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	m := NewModel(ctx, g, 2, logging.Nop())
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, g
}

func typeRunes(m *Model, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func press(m *Model, k tea.KeyType) {
	m.Update(tea.KeyMsg{Type: k})
}

func TestAuthTriggerAndAdminFlow(t *testing.T) {
	m, g := newTestModel(t, "admin", model.Records{})

	typeRunes(m, "1229")
	if g.Screen() != gate.ScreenAdmin {
		t.Fatalf("expected admin screen, got %s", g.Screen())
	}
	typeRunes(m, "g")
	if m.generated == "" {
		t.Fatalf("expected generated code")
	}
	code := m.generated
	if !strings.Contains(m.View(), code) {
		t.Fatalf("generated code should be displayed")
	}
	typeRunes(m, "c")
	if m.adminView != adminCodes || len(m.adminTable.Rows()) != 1 {
		t.Fatalf("expected one code row, got %d", len(m.adminTable.Rows()))
	}

	press(m, tea.KeyEsc)
	if g.Screen() != gate.ScreenAuth || m.codeInput.Value() != "" {
		t.Fatalf("back to auth should clear the input, got %q", m.codeInput.Value())
	}
	typeRunes(m, strings.ToLower(code))
	press(m, tea.KeyEnter)
	if g.Screen() != gate.ScreenWelcome {
		t.Fatalf("expected welcome after redeeming, got %s", g.Screen())
	}
}

func TestInvalidCodeShowsNotice(t *testing.T) {
	m, g := newTestModel(t, "c1", model.Records{})
	typeRunes(m, "ZZ999")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if g.Screen() != gate.ScreenAuth {
		t.Fatalf("expected to stay on auth")
	}
	if cmd == nil {
		t.Fatalf("expected a dismissal timer for the notice")
	}
	if !strings.Contains(m.View(), "Invalid or already used") {
		t.Fatalf("expected invalid code notice in view")
	}
}

func TestRequestInfoToggle(t *testing.T) {
	m, g := newTestModel(t, "c1", model.Records{})
	if strings.Contains(m.View(), "Need a code?") {
		t.Fatalf("request info should start hidden")
	}
	press(m, tea.KeyTab)
	if !strings.Contains(m.View(), "Need a code?") || g.Screen() != gate.ScreenAuth {
		t.Fatalf("tab should reveal request info on auth")
	}
	if m.codeInput.Value() != "" {
		t.Fatalf("toggle must not touch the code input, got %q", m.codeInput.Value())
	}
	press(m, tea.KeyTab)
	if strings.Contains(m.View(), "Need a code?") {
		t.Fatalf("second tab should hide request info")
	}
}

func TestBannedNotice(t *testing.T) {
	m, g := newTestModel(t, "c1", model.Records{Authorizations: []model.ClientAuthorization{
		{Identifier: "c1", Active: false},
	}})
	if !strings.Contains(m.View(), "suspended") {
		t.Fatalf("expected banned notice")
	}
	typeRunes(m, "x")
	if g.Screen() != gate.ScreenAuth {
		t.Fatalf("expected auth after acknowledging, got %s", g.Screen())
	}
}

func authorizedRecords() model.Records {
	return model.Records{Authorizations: []model.ClientAuthorization{{Identifier: "c1", Active: true}}}
}

func TestWelcomeRequiresTopic(t *testing.T) {
	m, g := newTestModel(t, "c1", authorizedRecords())
	typeRunes(m, "s")
	if g.Screen() != gate.ScreenWelcome {
		t.Fatalf("start without topic must stay on welcome")
	}
	press(m, tea.KeyDown)
	press(m, tea.KeyEnter)
	if g.Topic() != "business" {
		t.Fatalf("expected second topic selected, got %q", g.Topic())
	}
	typeRunes(m, "s")
	if g.Screen() != gate.ScreenTest {
		t.Fatalf("expected test screen, got %s", g.Screen())
	}
}

func TestTypingTickAndReview(t *testing.T) {
	m, g := newTestModel(t, "c1", authorizedRecords())
	press(m, tea.KeyEnter)
	typeRunes(m, "s")

	typeRunes(m, "Hello.")
	press(m, tea.KeyEnter)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("World!"), Paste: true})
	sess := g.Engine().Session()
	if sess.UserInputs[0] != "Hello." || sess.UserInputs[1] != "" {
		t.Fatalf("unexpected inputs %q", sess.UserInputs)
	}
	typeRunes(m, "Wbrld!")
	press(m, tea.KeyUp)
	if m.sentenceInput.Value() != "Hello." {
		t.Fatalf("moving back should restore the typed text, got %q", m.sentenceInput.Value())
	}

	m.Update(tickMsg{gen: m.clockGen - 1})
	if sess.TimeLeftSeconds != 2 {
		t.Fatalf("stale ticks must be ignored")
	}
	if !strings.Contains(m.View(), "0:02") {
		t.Fatalf("expected clock in view")
	}
	m.Update(tickMsg{gen: m.clockGen})
	_, cmd := m.Update(tickMsg{gen: m.clockGen})
	if g.Screen() != gate.ScreenResult || cmd != nil {
		t.Fatalf("expected result screen with the clock stopped")
	}
	view := m.View()
	if !strings.Contains(view, "85%") || !strings.Contains(view, "Errors") {
		t.Fatalf("unexpected result view: %s", view)
	}

	typeRunes(m, "r")
	if g.Screen() != gate.ScreenReview {
		t.Fatalf("expected review screen")
	}
	press(m, tea.KeyEsc)
	if g.Screen() != gate.ScreenResult {
		t.Fatalf("expected result screen after review")
	}
	typeRunes(m, "n")
	if g.Screen() != gate.ScreenWelcome || g.Topic() != "" {
		t.Fatalf("restart should return to welcome")
	}
}

func TestAdminSelfBanWithConfirmation(t *testing.T) {
	m, g := newTestModel(t, "c1", authorizedRecords())
	typeRunes(m, "1229")
	typeRunes(m, "u")
	if len(m.adminTable.Rows()) != 1 {
		t.Fatalf("expected one client row")
	}
	typeRunes(m, "b")
	typeRunes(m, "n")
	if !g.Authenticated() {
		t.Fatalf("declined confirmation must not ban")
	}
	typeRunes(m, "b")
	typeRunes(m, "y")
	if g.Authenticated() || g.Screen() != gate.ScreenAuth {
		t.Fatalf("self ban should drop to auth, got %s", g.Screen())
	}
}

func TestRenderReviewNotTyped(t *testing.T) {
	out := renderReview([]model.ReviewLine{{SentenceIndex: 0, Original: "Hi."}}, 40)
	if !strings.Contains(out, "(not typed)") || !strings.Contains(out, "Sentence 1") {
		t.Fatalf("unexpected review %q", out)
	}
}

func TestFormatClock(t *testing.T) {
	cases := map[int]string{600: "10:00", 599: "9:59", 61: "1:01", 0: "0:00", -3: "0:00"}
	for in, want := range cases {
		if got := formatClock(in); got != want {
			t.Fatalf("formatClock(%d) = %q, want %q", in, got, want)
		}
	}
}
