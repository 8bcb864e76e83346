package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/verte-zerg/typegate/internal/model"
	"github.com/verte-zerg/typegate/internal/testutil"
	"github.com/verte-zerg/typegate/internal/typing"
)

type fixedContent string

func (f fixedContent) Generate(string, int) (string, error) {
	return string(f), nil
}

func newTestGate(t *testing.T, client string, recs model.Records) (*Gate, *testutil.MemoryStore) {
	t.Helper()
	st := testutil.NewMemoryStore(recs)
	g := New(st, Options{
		Client:    client,
		Generator: fixedContent("Hello. World!"),
		Typing:    typing.Options{DurationSec: 3},
	})
	return g, st
}

func typeKeys(g *Gate, s string) bool {
	opened := false
	for _, r := range s {
		if g.Key(r) {
			opened = true
		}
	}
	return opened
}

func TestStartRoutesByStatus(t *testing.T) {
	recs := model.Records{Authorizations: []model.ClientAuthorization{
		{Identifier: "good", Active: true},
		{Identifier: "bad", Active: false},
	}}
	cases := []struct {
		client string
		screen Screen
		auth   bool
	}{
		{"good", ScreenWelcome, true},
		{"bad", ScreenBanned, false},
		{"new", ScreenAuth, false},
	}
	for _, tc := range cases {
		g, _ := newTestGate(t, tc.client, recs)
		if err := g.Start(context.Background()); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if g.Screen() != tc.screen || g.Authenticated() != tc.auth {
			t.Fatalf("%s: got screen %s auth %v", tc.client, g.Screen(), g.Authenticated())
		}
	}
}

func TestBannedNoticeLeadsToAuth(t *testing.T) {
	g, _ := newTestGate(t, "bad", model.Records{Authorizations: []model.ClientAuthorization{
		{Identifier: "bad", Active: false},
	}})
	_ = g.Start(context.Background())
	g.AcknowledgeBanned()
	if g.Screen() != ScreenAuth {
		t.Fatalf("expected auth screen, got %s", g.Screen())
	}
}

func TestStartLoadFailure(t *testing.T) {
	g, st := newTestGate(t, "c", model.Records{})
	st.LoadErr = errors.New("disk gone")
	if err := g.Start(context.Background()); err == nil {
		t.Fatalf("expected load error")
	}
	if g.Screen() != ScreenAuth || g.Authenticated() {
		t.Fatalf("load failure must leave the client unauthenticated")
	}
}

func TestSubmitCodeFlow(t *testing.T) {
	g, _ := newTestGate(t, "c1", model.Records{Codes: []model.LicenseCode{{Code: "AB123"}}})
	ctx := context.Background()
	_ = g.Start(ctx)

	if _, err := g.SubmitCode(ctx, "  "); err == nil {
		t.Fatalf("expected empty code error")
	}
	if n, ok := g.Notice(); !ok || n.Text != msgEmptyCode {
		t.Fatalf("expected empty code notice, got %+v", n)
	}

	res, err := g.SubmitCode(ctx, "ZZ999")
	if err != nil || res != model.Invalid {
		t.Fatalf("expected invalid, got %v %v", res, err)
	}
	if g.Screen() != ScreenAuth {
		t.Fatalf("invalid code must stay on auth")
	}

	res, err = g.SubmitCode(ctx, "ab123")
	if err != nil || res != model.Authorized {
		t.Fatalf("expected authorized, got %v %v", res, err)
	}
	if !g.Authenticated() || g.Screen() != ScreenWelcome {
		t.Fatalf("expected welcome, got %s", g.Screen())
	}
	if _, ok := g.Notice(); ok {
		t.Fatalf("success should clear the notice")
	}
}

func TestNoticeExpires(t *testing.T) {
	g, _ := newTestGate(t, "c1", model.Records{})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }
	_, _ = g.SubmitCode(context.Background(), "XX000")

	g.now = func() time.Time { return base.Add(NoticeTTL - time.Millisecond) }
	if _, ok := g.Notice(); !ok {
		t.Fatalf("notice should still be visible")
	}
	g.now = func() time.Time { return base.Add(NoticeTTL) }
	if _, ok := g.Notice(); ok {
		t.Fatalf("notice should be dismissed after %s", NoticeTTL)
	}
}

func TestTriggerOnlyOnWelcomeAndAuth(t *testing.T) {
	g, _ := newTestGate(t, "c1", model.Records{Authorizations: []model.ClientAuthorization{
		{Identifier: "c1", Active: true},
	}})
	ctx := context.Background()
	_ = g.Start(ctx)
	_ = g.SelectTopic("technology")
	if _, err := g.StartTest(); err != nil {
		t.Fatalf("StartTest failed: %v", err)
	}
	if typeKeys(g, "1229") {
		t.Fatalf("trigger must not fire on the test screen")
	}
	g.Home()
	if !typeKeys(g, "1229") || g.Screen() != ScreenAdmin {
		t.Fatalf("trigger should open admin from welcome")
	}
}

func TestAdminRequiresTrigger(t *testing.T) {
	g, _ := newTestGate(t, "c1", model.Records{})
	ctx := context.Background()
	if _, err := g.GenerateCode(ctx); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if err := g.Ban(ctx, 0); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
}

func TestAdminGenerateAndRedeem(t *testing.T) {
	g, _ := newTestGate(t, "admin", model.Records{})
	ctx := context.Background()
	_ = g.Start(ctx)
	if !typeKeys(g, "xx1229") {
		t.Fatalf("trigger should fire on auth screen")
	}
	lc, err := g.GenerateCode(ctx)
	if err != nil {
		t.Fatalf("GenerateCode failed: %v", err)
	}
	codes, err := g.Codes(ctx)
	if err != nil || len(codes) != 1 || codes[0].Code != lc.Code {
		t.Fatalf("unexpected codes %+v %v", codes, err)
	}

	g.BackToAuth()
	if g.Screen() != ScreenAuth || g.Authenticated() {
		t.Fatalf("admin view must not authenticate")
	}
	if typeKeys(g, "229") {
		t.Fatalf("back to auth must clear the trigger buffer")
	}
	if _, err := g.SubmitCode(ctx, lc.Code); err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if g.Screen() != ScreenWelcome {
		t.Fatalf("expected welcome after redeem")
	}
}

func TestSelfBanDropsSession(t *testing.T) {
	g, st := newTestGate(t, "me", model.Records{Authorizations: []model.ClientAuthorization{
		{Identifier: "other", Active: true},
		{Identifier: "me", Active: true},
	}})
	ctx := context.Background()
	_ = g.Start(ctx)
	typeKeys(g, "1229")

	clients, err := g.Clients(ctx)
	if err != nil || !clients[1].Current || clients[0].Current {
		t.Fatalf("unexpected clients %+v %v", clients, err)
	}
	if err := g.Ban(ctx, 0); err != nil {
		t.Fatalf("Ban failed: %v", err)
	}
	if g.Screen() != ScreenAdmin || !g.Authenticated() {
		t.Fatalf("banning another client keeps the admin view")
	}
	if err := g.Unban(ctx, 0); err != nil {
		t.Fatalf("Unban failed: %v", err)
	}
	if err := g.Ban(ctx, 1); err != nil {
		t.Fatalf("Ban failed: %v", err)
	}
	if g.Screen() != ScreenAuth || g.Authenticated() {
		t.Fatalf("self ban must drop to auth, got %s", g.Screen())
	}
	snap := st.Snapshot()
	if snap.Authorizations[1].Active || !snap.Authorizations[0].Active {
		t.Fatalf("unexpected persisted state %+v", snap.Authorizations)
	}
	if err := g.Ban(ctx, 0); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("admin view closed after self ban, got %v", err)
	}
}

func TestStartTestGuards(t *testing.T) {
	g, _ := newTestGate(t, "c1", model.Records{Authorizations: []model.ClientAuthorization{
		{Identifier: "c1", Active: true},
	}})
	if _, err := g.StartTest(); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized before Start, got %v", err)
	}
	_ = g.Start(context.Background())
	if _, err := g.StartTest(); !errors.Is(err, ErrNoTopic) {
		t.Fatalf("expected ErrNoTopic, got %v", err)
	}
	if err := g.SelectTopic("cooking"); err == nil {
		t.Fatalf("expected unknown topic error")
	}
}

func TestStartTestOnlyFromWelcome(t *testing.T) {
	g, _ := newTestGate(t, "c1", model.Records{Authorizations: []model.ClientAuthorization{
		{Identifier: "c1", Active: true},
	}})
	_ = g.Start(context.Background())
	_ = g.SelectTopic("science")

	typeKeys(g, "1229")
	if g.Screen() != ScreenAdmin {
		t.Fatalf("expected admin screen, got %s", g.Screen())
	}
	if _, err := g.StartTest(); !errors.Is(err, ErrNotWelcome) {
		t.Fatalf("expected ErrNotWelcome from admin, got %v", err)
	}
	if g.Screen() != ScreenAdmin || g.Engine().State() != typing.Idle {
		t.Fatalf("admin start must not move state, got %s/%s", g.Screen(), g.Engine().State())
	}

	g.BackToAuth()
	if _, err := g.StartTest(); err != nil {
		t.Fatalf("StartTest failed: %v", err)
	}
	if _, err := g.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if _, err := g.StartTest(); !errors.Is(err, ErrNotWelcome) {
		t.Fatalf("expected ErrNotWelcome from result, got %v", err)
	}
	if g.Screen() != ScreenResult || g.Engine().State() != typing.Ended {
		t.Fatalf("result start must not move state, got %s/%s", g.Screen(), g.Engine().State())
	}
	if _, err := g.Result(); err != nil {
		t.Fatalf("result should still be available: %v", err)
	}

	g.Restart()
	_ = g.SelectTopic("science")
	if _, err := g.StartTest(); err != nil || g.Screen() != ScreenTest {
		t.Fatalf("restart should allow a new assessment, got %v on %s", err, g.Screen())
	}
}

func TestAssessmentFlow(t *testing.T) {
	g, _ := newTestGate(t, "c1", model.Records{Authorizations: []model.ClientAuthorization{
		{Identifier: "c1", Active: true},
	}})
	_ = g.Start(context.Background())
	_ = g.SelectTopic("science")
	sess, err := g.StartTest()
	if err != nil {
		t.Fatalf("StartTest failed: %v", err)
	}
	if g.Screen() != ScreenTest || len(sess.Sentences) != 2 {
		t.Fatalf("unexpected session %+v", sess)
	}
	if err := g.RecordInput(0, "Hello."); err != nil {
		t.Fatalf("RecordInput failed: %v", err)
	}
	if g.NextSentence() != 1 || g.NextSentence() != 1 {
		t.Fatalf("focus should stop at the last sentence")
	}
	if g.PrevSentence() != 0 {
		t.Fatalf("focus should move back")
	}
	_ = g.RecordInput(1, "Wbrld!")

	if g.Tick() || g.Tick() {
		t.Fatalf("clock should not have run out yet")
	}
	if !g.Tick() || g.Screen() != ScreenResult {
		t.Fatalf("third tick should end the assessment")
	}
	if g.Tick() {
		t.Fatalf("end must fire once")
	}
	stats, err := g.Result()
	if err != nil || stats.CorrectChars != 11 || stats.ErrorChars != 1 {
		t.Fatalf("unexpected stats %+v %v", stats, err)
	}

	lines, err := g.Review()
	if err != nil || len(lines) != 2 || g.Screen() != ScreenReview {
		t.Fatalf("unexpected review %v %v", lines, err)
	}
	if err := g.BackToResult(); err != nil || g.Screen() != ScreenResult {
		t.Fatalf("expected result screen, got %s %v", g.Screen(), err)
	}

	g.Restart()
	if g.Screen() != ScreenWelcome || g.Topic() != "" || g.Engine().State() != typing.Idle {
		t.Fatalf("restart should reset to welcome")
	}
}

func TestFinishEarly(t *testing.T) {
	g, _ := newTestGate(t, "c1", model.Records{Authorizations: []model.ClientAuthorization{
		{Identifier: "c1", Active: true},
	}})
	_ = g.Start(context.Background())
	if _, err := g.Finish(); err == nil {
		t.Fatalf("finish without a running assessment should fail")
	}
	_ = g.SelectTopic("history")
	_, _ = g.StartTest()
	if _, err := g.Finish(); err != nil || g.Screen() != ScreenResult {
		t.Fatalf("finish failed: %v", err)
	}
}

func TestInstructionsAndHome(t *testing.T) {
	g, _ := newTestGate(t, "c1", model.Records{})
	_ = g.Start(context.Background())
	g.ShowInstructions()
	if g.Screen() != ScreenAuth {
		t.Fatalf("instructions only open from welcome")
	}
	g.authenticated = true
	g.Home()
	g.ShowInstructions()
	if g.Screen() != ScreenInstructions {
		t.Fatalf("expected instructions, got %s", g.Screen())
	}
	g.Home()
	if g.Screen() != ScreenWelcome {
		t.Fatalf("expected welcome, got %s", g.Screen())
	}
}

func TestBackToAuthWhenAuthenticated(t *testing.T) {
	g, _ := newTestGate(t, "c1", model.Records{Authorizations: []model.ClientAuthorization{
		{Identifier: "c1", Active: true},
	}})
	_ = g.Start(context.Background())
	typeKeys(g, "1229")
	g.BackToAuth()
	if g.Screen() != ScreenWelcome {
		t.Fatalf("authenticated clients return to welcome, got %s", g.Screen())
	}
}
