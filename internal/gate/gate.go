// Package gate is the command interface a front end drives. It owns the
// per-client session context: which screen is showing, whether the client
// is authenticated, the selected topic and the running assessment.
//
// Gate never calls into the display layer. Front ends invoke commands and
// render Screen, Notice and the engine session.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/typegate/internal/access"
	"github.com/verte-zerg/typegate/internal/admin"
	"github.com/verte-zerg/typegate/internal/generator"
	"github.com/verte-zerg/typegate/internal/license"
	"github.com/verte-zerg/typegate/internal/model"
	"github.com/verte-zerg/typegate/internal/typing"
)

// NoticeTTL is how long a notice stays visible.
const NoticeTTL = 3 * time.Second

var (
	ErrNotAdmin      = errors.New("admin view is not open")
	ErrNotAuthorized = errors.New("client is not authorized")
	ErrNoTopic       = errors.New("no topic selected")
	ErrNotWelcome    = errors.New("assessment can only start from the welcome screen")
)

const (
	msgEmptyCode    = "Please enter a license code"
	msgInvalidCode  = "Invalid or already used license code"
	msgSaveFailed   = "Could not save, please try again"
	msgBanned       = "Your authorization has been suspended. Enter a new license code to continue."
	msgSelfBanned   = "Your own client was suspended. Enter a license code to continue."
	msgExhausted    = "Could not generate a unique code, please try again"
	msgLoadFailed   = "Could not read records"
	msgTopicMissing = "Select a topic first"
)

// Screen is the view a front end should show.
type Screen int

const (
	ScreenAuth Screen = iota
	ScreenBanned
	ScreenWelcome
	ScreenInstructions
	ScreenAdmin
	ScreenLoading
	ScreenTest
	ScreenResult
	ScreenReview
)

func (s Screen) String() string {
	switch s {
	case ScreenBanned:
		return "banned"
	case ScreenWelcome:
		return "welcome"
	case ScreenInstructions:
		return "instructions"
	case ScreenAdmin:
		return "admin"
	case ScreenLoading:
		return "loading"
	case ScreenTest:
		return "test"
	case ScreenResult:
		return "result"
	case ScreenReview:
		return "review"
	default:
		return "auth"
	}
}

// Notice is a transient message for the client.
type Notice struct {
	Text    string
	Error   bool
	Expires time.Time
}

// Options configures a Gate.
type Options struct {
	Client    string
	Generator typing.ContentSource
	Typing    typing.Options
	Log       *zap.Logger
}

// Gate is the session context for one client.
type Gate struct {
	client   string
	log      *zap.Logger
	now      func() time.Time
	registry *license.Registry
	acl      *access.ACL
	engine   *typing.Engine
	trigger  *admin.Trigger

	screen        Screen
	authenticated bool
	topic         string
	sentence      int
	notice        Notice
}

// New builds a Gate over st. The client starts unauthenticated on the
// authorization screen until Start runs.
func New(st access.Store, opts Options) *Gate {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	src := opts.Generator
	if src == nil {
		src = generator.New()
	}
	return &Gate{
		client:   opts.Client,
		log:      log.With(zap.String("client", opts.Client)),
		now:      time.Now,
		registry: license.New(st, log),
		acl:      access.New(st, log),
		engine:   typing.New(src, log, opts.Typing),
		trigger:  admin.NewTrigger(),
		screen:   ScreenAuth,
	}
}

// Client returns the identifier of this session.
func (g *Gate) Client() string {
	return g.client
}

// Screen returns the current screen.
func (g *Gate) Screen() Screen {
	return g.screen
}

// Authenticated reports whether the client may start an assessment.
func (g *Gate) Authenticated() bool {
	return g.authenticated
}

// Topic returns the selected topic key, or "".
func (g *Gate) Topic() string {
	return g.topic
}

// Engine exposes the assessment engine for rendering.
func (g *Gate) Engine() *typing.Engine {
	return g.engine
}

// Sentence returns the index of the focused sentence input.
func (g *Gate) Sentence() int {
	return g.sentence
}

// Notice returns the current notice if it has not expired.
func (g *Gate) Notice() (Notice, bool) {
	if g.notice.Text == "" || !g.now().Before(g.notice.Expires) {
		return Notice{}, false
	}
	return g.notice, true
}

func (g *Gate) setNotice(text string, isErr bool) {
	g.notice = Notice{Text: text, Error: isErr, Expires: g.now().Add(NoticeTTL)}
}

func (g *Gate) clearNotice() {
	g.notice = Notice{}
}

// Start decides the first screen from the client's access status.
func (g *Gate) Start(ctx context.Context) error {
	status, err := g.acl.StatusFor(ctx, g.client)
	if err != nil {
		g.screen = ScreenAuth
		g.setNotice(msgLoadFailed, true)
		return err
	}
	g.log.Info("admission decided", zap.Stringer("status", status))
	switch status {
	case model.Active:
		g.authenticated = true
		g.screen = ScreenWelcome
	case model.Banned:
		g.authenticated = false
		g.screen = ScreenBanned
	default:
		g.authenticated = false
		g.screen = ScreenAuth
	}
	return nil
}

// AcknowledgeBanned leaves the banned notice for the authorization screen.
func (g *Gate) AcknowledgeBanned() {
	if g.screen == ScreenBanned {
		g.screen = ScreenAuth
	}
}

// BannedMessage is the text shown on the banned notice.
func BannedMessage() string {
	return msgBanned
}

// SubmitCode redeems code for this client. On success the client is
// authenticated and moved to the welcome screen.
func (g *Gate) SubmitCode(ctx context.Context, code string) (model.RedeemResult, error) {
	res, err := g.registry.Redeem(ctx, code, g.client)
	switch {
	case errors.Is(err, license.ErrEmptyCode):
		g.setNotice(msgEmptyCode, true)
		return res, err
	case err != nil:
		g.setNotice(msgSaveFailed, true)
		return res, err
	case res != model.Authorized:
		g.setNotice(msgInvalidCode, true)
		return res, nil
	}
	g.authenticated = true
	g.trigger.Reset()
	g.clearNotice()
	g.screen = ScreenWelcome
	return res, nil
}

// Key feeds a keystroke to the admin trigger. Keys only count on the
// welcome and authorization screens. It reports whether the admin view
// opened.
func (g *Gate) Key(r rune) bool {
	if g.screen != ScreenWelcome && g.screen != ScreenAuth {
		return false
	}
	if !g.trigger.Observe(r) {
		return false
	}
	g.log.Info("admin view opened", zap.Stringer("from", g.screen))
	g.clearNotice()
	g.screen = ScreenAdmin
	return true
}

func (g *Gate) requireAdmin() error {
	if g.screen != ScreenAdmin {
		return ErrNotAdmin
	}
	return nil
}

// GenerateCode creates a new license code from the admin view.
func (g *Gate) GenerateCode(ctx context.Context) (model.LicenseCode, error) {
	if err := g.requireAdmin(); err != nil {
		return model.LicenseCode{}, err
	}
	lc, err := g.registry.Generate(ctx, g.client)
	if err != nil {
		if errors.Is(err, license.ErrGenerationExhausted) {
			g.setNotice(msgExhausted, true)
		} else {
			g.setNotice(msgSaveFailed, true)
		}
		return model.LicenseCode{}, err
	}
	return lc, nil
}

// Codes lists every license code in generation order.
func (g *Gate) Codes(ctx context.Context) ([]model.LicenseCode, error) {
	if err := g.requireAdmin(); err != nil {
		return nil, err
	}
	return g.registry.List(ctx)
}

// Clients lists authorizations with this client marked.
func (g *Gate) Clients(ctx context.Context) ([]model.AuthorizationEntry, error) {
	if err := g.requireAdmin(); err != nil {
		return nil, err
	}
	return g.acl.List(ctx, g.client)
}

// Ban deactivates the authorization at index. Banning this client drops
// the session back to the authorization screen.
func (g *Gate) Ban(ctx context.Context, index int) error {
	if err := g.requireAdmin(); err != nil {
		return err
	}
	self, err := g.acl.Ban(ctx, index, g.client)
	if err != nil {
		return fmt.Errorf("failed to ban client: %w", err)
	}
	if self {
		g.authenticated = false
		g.trigger.Reset()
		g.setNotice(msgSelfBanned, true)
		g.screen = ScreenAuth
	}
	return nil
}

// Unban reactivates the authorization at index.
func (g *Gate) Unban(ctx context.Context, index int) error {
	if err := g.requireAdmin(); err != nil {
		return err
	}
	if err := g.acl.Unban(ctx, index); err != nil {
		return fmt.Errorf("failed to unban client: %w", err)
	}
	return nil
}

// BackToAuth closes the admin view. The trigger buffer is cleared; the
// front end clears its code input. Authenticated clients return to the
// welcome screen.
func (g *Gate) BackToAuth() {
	if g.screen != ScreenAdmin {
		return
	}
	g.trigger.Reset()
	if g.authenticated {
		g.screen = ScreenWelcome
		return
	}
	g.screen = ScreenAuth
}

// ShowInstructions opens the instructions from the welcome screen.
func (g *Gate) ShowInstructions() {
	if g.screen == ScreenWelcome {
		g.screen = ScreenInstructions
	}
}

// SelectTopic picks the content topic for the next assessment.
func (g *Gate) SelectTopic(topic string) error {
	if !generator.KnownTopic(topic) {
		return fmt.Errorf("%w: %q", generator.ErrUnknownTopic, topic)
	}
	g.topic = topic
	return nil
}

// StartTest generates content for the selected topic and starts the clock.
// It only runs from the welcome screen; on failure the screen is unchanged.
func (g *Gate) StartTest() (*typing.Session, error) {
	if !g.authenticated {
		return nil, ErrNotAuthorized
	}
	if g.screen != ScreenWelcome {
		return nil, ErrNotWelcome
	}
	if g.topic == "" {
		g.setNotice(msgTopicMissing, true)
		return nil, ErrNoTopic
	}
	if g.engine.State() != typing.Idle {
		return nil, typing.ErrNotIdle
	}
	g.screen = ScreenLoading
	sess, err := g.engine.Begin(g.topic)
	if err != nil {
		g.screen = ScreenWelcome
		return nil, err
	}
	g.sentence = 0
	g.screen = ScreenTest
	return sess, nil
}

// RecordInput stores the typed text for sentence index.
func (g *Gate) RecordInput(index int, text string) error {
	return g.engine.RecordInput(index, text)
}

// NextSentence moves focus to the following sentence input, if any.
func (g *Gate) NextSentence() int {
	sess := g.engine.Session()
	if g.screen != ScreenTest || sess == nil {
		return g.sentence
	}
	if g.sentence+1 < len(sess.Sentences) {
		g.sentence++
	}
	return g.sentence
}

// PrevSentence moves focus to the preceding sentence input, if any.
func (g *Gate) PrevSentence() int {
	if g.screen == ScreenTest && g.sentence > 0 {
		g.sentence--
	}
	return g.sentence
}

// Tick advances the clock one second. When the clock runs out the result
// screen is shown and Tick reports true.
func (g *Gate) Tick() bool {
	if !g.engine.Tick() {
		return false
	}
	g.screen = ScreenResult
	return true
}

// Finish ends the running assessment early.
func (g *Gate) Finish() (model.Stats, error) {
	stats, err := g.engine.End()
	if err != nil {
		return model.Stats{}, err
	}
	g.screen = ScreenResult
	return stats, nil
}

// Result returns the final stats of the ended assessment.
func (g *Gate) Result() (model.Stats, error) {
	return g.engine.Result()
}

// Review opens the per-character review.
func (g *Gate) Review() ([]model.ReviewLine, error) {
	lines, err := g.engine.Review()
	if err != nil {
		return nil, err
	}
	g.screen = ScreenReview
	return lines, nil
}

// BackToResult leaves the review.
func (g *Gate) BackToResult() error {
	if err := g.engine.BackToResult(); err != nil {
		return err
	}
	g.screen = ScreenResult
	return nil
}

// Home discards any assessment and topic, then shows the welcome screen for
// authenticated clients or the authorization screen otherwise.
func (g *Gate) Home() {
	g.engine.Reset()
	g.topic = ""
	g.sentence = 0
	if g.authenticated {
		g.screen = ScreenWelcome
	} else {
		g.screen = ScreenAuth
	}
}

// Restart is Home after a finished assessment.
func (g *Gate) Restart() {
	g.Home()
}
