package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/configitems/modules/configitems/domain/configitem"
)

// VersionStore persists versions of one configuration item kind.
type VersionStore[T any] interface {
	FindByID(ctx context.Context, id uuid.UUID) (T, bool, error)
	ListVersions(ctx context.Context, key configitem.Key) ([]T, error)
	InsertVersion(ctx context.Context, item T) error
	UpdateStatus(ctx context.Context, item T, status configitem.VersionStatus) error
	SetLast(ctx context.Context, item T, isLast bool) error
	DeleteVersion(ctx context.Context, item T) error
}

// VersionManager owns the version status machine of a configuration item kind.
type VersionManager[T configitem.Versioned[T]] struct {
	store VersionStore[T]
}

func NewVersionManager[T configitem.Versioned[T]](store VersionStore[T]) *VersionManager[T] {
	return &VersionManager[T]{store: store}
}

// CancelVersion removes a Draft or Ready version. When it was the last version the
// highest remaining version takes over.
func (m *VersionManager[T]) CancelVersion(ctx context.Context, item T) error {
	ci := item.Config()
	if !ci.VersionStatus.IsUnpublished() {
		return policyError("CI_CANCEL_PUBLISHED",
			fmt.Sprintf("cannot cancel %s version %d of %s: only Draft and Ready versions can be cancelled", ci.VersionStatus, ci.VersionNo, ci.Key()))
	}
	if err := m.store.DeleteVersion(ctx, item); err != nil {
		return mapDBError(err)
	}
	recordTransition(ci.VersionStatus.String(), "Cancelled")
	logWithFields(ctx, logrus.InfoLevel, "version cancelled", itemFields(ci))

	if !ci.IsLast {
		return nil
	}
	remaining, err := m.store.ListVersions(ctx, ci.Key())
	if err != nil {
		return mapDBError(err)
	}
	var successor T
	found := false
	for _, v := range remaining {
		vc := v.Config()
		if vc.ID == ci.ID {
			continue
		}
		if !found || vc.VersionNo > successor.Config().VersionNo {
			successor = v
			found = true
		}
	}
	ci.IsLast = false
	if !found {
		return nil
	}
	if err := m.store.SetLast(ctx, successor, true); err != nil {
		return mapDBError(err)
	}
	successor.Config().IsLast = true
	return nil
}

// CreateNewVersion persists the successor of existing. prepare fills in the content of
// the successor and must choose its status; the manager never assumes one.
func (m *VersionManager[T]) CreateNewVersion(ctx context.Context, existing T, prepare func(next T) error) (T, error) {
	var zero T
	next := existing.CloneVersion()
	if prepare != nil {
		if err := prepare(next); err != nil {
			return zero, err
		}
	}
	nc := next.Config()
	if !nc.VersionStatus.IsValid() {
		return zero, policyError("CI_STATUS_REQUIRED",
			fmt.Sprintf("status of version %d of %s must be set explicitly", nc.VersionNo, nc.Key()))
	}

	ec := existing.Config()
	if ec.IsLast {
		// The last flag leaves the predecessor before the successor claims it.
		if err := m.store.SetLast(ctx, existing, false); err != nil {
			return zero, mapDBError(err)
		}
		ec.IsLast = false
	}
	nc.IsLast = true
	if err := m.store.InsertVersion(ctx, next); err != nil {
		return zero, mapDBError(err)
	}
	logWithFields(ctx, logrus.InfoLevel, "version created", itemFields(nc))
	return next, nil
}

// UpdateStatus applies a legal transition. Moving to the current status is a no-op.
func (m *VersionManager[T]) UpdateStatus(ctx context.Context, item T, status configitem.VersionStatus) error {
	ci := item.Config()
	from := ci.VersionStatus
	if from == status {
		return nil
	}
	if !from.CanTransitionTo(status) {
		return policyError("CI_ILLEGAL_TRANSITION",
			fmt.Sprintf("version %d of %s cannot move from %s to %s", ci.VersionNo, ci.Key(), from, status))
	}
	if err := m.store.UpdateStatus(ctx, item, status); err != nil {
		return mapDBError(err)
	}
	ci.VersionStatus = status
	recordTransition(from.String(), status.String())
	logWithFields(ctx, logrus.InfoLevel, "version status changed", itemFields(ci))
	return nil
}

// FindVersion loads a version by id.
func (m *VersionManager[T]) FindVersion(ctx context.Context, id uuid.UUID) (T, error) {
	var zero T
	item, ok, err := m.store.FindByID(ctx, id)
	if err != nil {
		return zero, mapDBError(err)
	}
	if !ok {
		return zero, newServiceError(ErrNotFound, "CI_VERSION_NOT_FOUND", fmt.Sprintf("version %s not found", id), nil)
	}
	return item, nil
}
