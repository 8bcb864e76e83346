// Package license issues and redeems single-use license codes.
package license

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/typegate/internal/access"
	"github.com/verte-zerg/typegate/internal/model"
)

const (
	letters     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits      = "0123456789"
	maxAttempts = 100
)

var (
	// ErrGenerationExhausted is returned when no unique code was found.
	ErrGenerationExhausted = errors.New("license code generation exhausted")
	// ErrEmptyCode is returned when a blank code is submitted.
	ErrEmptyCode = errors.New("license code is empty")
)

// Registry issues codes and redeems them into client authorizations.
type Registry struct {
	store access.Store
	log   *zap.Logger
	rnd   *rand.Rand
	now   func() time.Time
}

// New returns a Registry seeded with the current time.
func New(st access.Store, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		store: st,
		log:   log,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
	}
}

// Generate creates a code unique within the stored registry and persists it.
func (r *Registry) Generate(ctx context.Context, requester string) (model.LicenseCode, error) {
	recs, err := r.store.Load(ctx)
	if err != nil {
		return model.LicenseCode{}, err
	}
	existing := make(map[string]struct{}, len(recs.Codes))
	for _, c := range recs.Codes {
		existing[c.Code] = struct{}{}
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		code := r.randomCode()
		if _, taken := existing[code]; taken {
			continue
		}
		lc := model.LicenseCode{
			Code:        code,
			GeneratedAt: r.now().UTC(),
			GeneratedBy: requester,
		}
		recs.Codes = append(recs.Codes, lc)
		if err := r.store.Save(ctx, recs); err != nil {
			return model.LicenseCode{}, fmt.Errorf("failed to save code: %w", err)
		}
		r.log.Info("license code generated", zap.String("code", code), zap.String("client", requester))
		return lc, nil
	}
	r.log.Warn("license code generation exhausted", zap.Int("attempts", maxAttempts))
	return model.LicenseCode{}, ErrGenerationExhausted
}

// Redeem marks an unused code as used by requester and authorizes the
// requester. Malformed, unknown and already-used codes all yield Invalid;
// malformed codes are rejected without reading the store.
func (r *Registry) Redeem(ctx context.Context, code, requester string) (model.RedeemResult, error) {
	code = Normalize(code)
	if code == "" {
		return model.Invalid, ErrEmptyCode
	}
	if !ValidFormat(code) {
		r.log.Info("license code rejected", zap.String("code", code), zap.String("client", requester))
		return model.Invalid, nil
	}
	recs, err := r.store.Load(ctx)
	if err != nil {
		return model.Invalid, err
	}
	idx := -1
	for i := range recs.Codes {
		if recs.Codes[i].Code == code && !recs.Codes[i].Used {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.log.Info("license code rejected", zap.String("code", code), zap.String("client", requester))
		return model.Invalid, nil
	}

	now := r.now().UTC()
	by := requester
	lc := &recs.Codes[idx]
	lc.Used = true
	lc.UsedAt = &now
	lc.UsedBy = &by
	access.Grant(&recs, requester, code, now)

	if err := r.store.Save(ctx, recs); err != nil {
		return model.Invalid, fmt.Errorf("failed to save redemption: %w", err)
	}
	r.log.Info("license code redeemed", zap.String("code", code), zap.String("client", requester))
	return model.Authorized, nil
}

// List returns all codes in generation order.
func (r *Registry) List(ctx context.Context) ([]model.LicenseCode, error) {
	recs, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.LicenseCode, len(recs.Codes))
	copy(out, recs.Codes)
	return out, nil
}

// Normalize trims and uppercases user input.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidFormat reports whether code is two letters A-Z followed by three digits.
func ValidFormat(code string) bool {
	if len(code) != 5 {
		return false
	}
	for i := 0; i < 2; i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	for i := 2; i < 5; i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func (r *Registry) randomCode() string {
	var b strings.Builder
	b.Grow(5)
	for i := 0; i < 2; i++ {
		b.WriteByte(letters[r.rnd.Intn(len(letters))])
	}
	for i := 0; i < 3; i++ {
		b.WriteByte(digits[r.rnd.Intn(len(digits))])
	}
	return b.String()
}
