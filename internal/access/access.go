// Package access tracks which client identifiers may take the assessment.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/typegate/internal/model"
)

// ErrIndexOutOfRange is returned when ban/unban targets a missing entry.
var ErrIndexOutOfRange = errors.New("authorization index out of range")

// Store loads and replaces the persisted records.
type Store interface {
	Load(ctx context.Context) (model.Records, error)
	Save(ctx context.Context, recs model.Records) error
}

// ACL answers admission decisions and applies admin toggles.
type ACL struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

// New constructs an ACL over st.
func New(st Store, log *zap.Logger) *ACL {
	if log == nil {
		log = zap.NewNop()
	}
	return &ACL{store: st, log: log, now: time.Now}
}

// StatusFor reports whether identifier is active, banned or unknown.
func (a *ACL) StatusFor(ctx context.Context, identifier string) (model.AccessStatus, error) {
	recs, err := a.store.Load(ctx)
	if err != nil {
		return model.Unauthorized, err
	}
	return Status(recs, identifier), nil
}

// Status computes the admission decision from a records snapshot.
func Status(recs model.Records, identifier string) model.AccessStatus {
	idx := find(recs.Authorizations, identifier)
	if idx < 0 {
		return model.Unauthorized
	}
	if recs.Authorizations[idx].Active {
		return model.Active
	}
	return model.Banned
}

// Grant creates or refreshes the authorization for identifier in recs.
// An existing record is reactivated and its lastLogin refreshed; its source
// code and authorizedAt are kept.
func Grant(recs *model.Records, identifier, code string, now time.Time) {
	if idx := find(recs.Authorizations, identifier); idx >= 0 {
		auth := &recs.Authorizations[idx]
		auth.Active = true
		auth.LastLogin = now
		return
	}
	source := code
	recs.Authorizations = append(recs.Authorizations, model.ClientAuthorization{
		Identifier:   identifier,
		AuthorizedAt: now,
		LastLogin:    now,
		Active:       true,
		SourceCode:   &source,
	})
}

// Ban deactivates the authorization at index. self reports whether the
// banned identifier is the caller's own, in which case the caller's live
// session must be downgraded.
func (a *ACL) Ban(ctx context.Context, index int, caller string) (self bool, err error) {
	recs, err := a.store.Load(ctx)
	if err != nil {
		return false, err
	}
	if index < 0 || index >= len(recs.Authorizations) {
		return false, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	now := a.now().UTC()
	auth := &recs.Authorizations[index]
	auth.Active = false
	auth.BannedAt = &now
	if err := a.store.Save(ctx, recs); err != nil {
		return false, fmt.Errorf("failed to save ban: %w", err)
	}
	a.log.Info("client banned", zap.String("client", auth.Identifier), zap.Int("index", index))
	return auth.Identifier == caller, nil
}

// Unban reactivates the authorization at index.
func (a *ACL) Unban(ctx context.Context, index int) error {
	recs, err := a.store.Load(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(recs.Authorizations) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	now := a.now().UTC()
	auth := &recs.Authorizations[index]
	auth.Active = true
	auth.UnbannedAt = &now
	if err := a.store.Save(ctx, recs); err != nil {
		return fmt.Errorf("failed to save unban: %w", err)
	}
	a.log.Info("client unbanned", zap.String("client", auth.Identifier), zap.Int("index", index))
	return nil
}

// List returns authorizations in insertion order, marking the caller's own.
func (a *ACL) List(ctx context.Context, current string) ([]model.AuthorizationEntry, error) {
	recs, err := a.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.AuthorizationEntry, 0, len(recs.Authorizations))
	for _, auth := range recs.Authorizations {
		out = append(out, model.AuthorizationEntry{
			ClientAuthorization: auth,
			Current:             auth.Identifier == current,
		})
	}
	return out, nil
}

func find(auths []model.ClientAuthorization, identifier string) int {
	for i := range auths {
		if auths[i].Identifier == identifier {
			return i
		}
	}
	return -1
}
