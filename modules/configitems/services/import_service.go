package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wI2L/jsondiff"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/configitems/modules/configitems/domain/configitem"
	"github.com/iota-uz/configitems/modules/configitems/domain/distribution"
	"github.com/iota-uz/configitems/modules/configitems/domain/referencelist"
	"github.com/iota-uz/configitems/modules/configitems/infrastructure/locking"
	"github.com/iota-uz/configitems/pkg/composables"
)

// errDryRun rolls back the import transaction after the result has been computed.
var errDryRun = errors.New("dry run")

type ImportRequest struct {
	// StatusAs overrides the version status of the payload.
	StatusAs *configitem.VersionStatus
	// CreateModules creates a missing owning module. The service default applies too.
	CreateModules bool
	// DryRun computes the result and rolls everything back.
	DryRun bool
}

type ImportResult struct {
	ImportID      uuid.UUID
	Key           configitem.Key
	Path          ImportPath
	List          *referencelist.ReferenceList
	Changes       jsondiff.Patch
	Cancelled     int
	Retired       int
	ItemsImported int
	ModuleCreated bool
	DryRun        bool
}

type ImportServiceOptions struct {
	CreateModules bool
	LockTTL       time.Duration
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// ImportService runs reference list imports, one transaction per item, serialized per
// lineage by the locker.
type ImportService struct {
	importer *ReferenceListImporter
	locker   locking.Locker
	tracer   trace.Tracer
	opts     ImportServiceOptions
}

func NewImportService(importer *ReferenceListImporter, locker locking.Locker, opts ImportServiceOptions) *ImportService {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &ImportService{
		importer: importer,
		locker:   locker,
		tracer:   tp.Tracer("github.com/iota-uz/configitems/modules/configitems/services"),
		opts:     opts,
	}
}

// ImportReader decodes a JSON or YAML payload and imports it.
func (s *ImportService) ImportReader(ctx context.Context, r io.Reader, format distribution.Format, req ImportRequest) (*ImportResult, error) {
	src, err := distribution.DecodeReferenceList(r, format)
	if err != nil {
		return nil, validationError("CI_DECODE_FAILED", "cannot decode reference list", err)
	}
	return s.Import(ctx, src, req)
}

func (s *ImportService) Import(ctx context.Context, item distribution.Item, req ImportRequest) (result *ImportResult, err error) {
	start := time.Now()
	itemType, status := "unknown", "payload"
	if req.StatusAs != nil {
		status = req.StatusAs.String()
	}
	ctx, span := s.tracer.Start(ctx, "configitems.import", trace.WithAttributes(
		attribute.String("configitems.status_as", status),
		attribute.Bool("configitems.dry_run", req.DryRun),
	))
	defer span.End()
	defer func() {
		outcome := outcomeOf(err)
		path := ""
		if result != nil {
			path = string(result.Path)
			status = result.List.VersionStatus.String()
			span.SetAttributes(
				attribute.String("configitems.path", path),
				attribute.Int("configitems.items", result.ItemsImported),
			)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		recordImport(itemType, path, status, outcome, time.Since(start).Seconds())
	}()

	src, err := s.importer.source(item)
	if err != nil {
		return nil, err
	}
	itemType = src.ConfigItemType()
	key := listKey(src.ModuleName, src.Name)
	span.SetAttributes(attribute.String("configitems.key", key.String()))

	lock, err := s.acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rErr := lock.Release(context.WithoutCancel(ctx)); rErr != nil {
			logWithFields(ctx, logrus.WarnLevel, "failed to release import lock", logrus.Fields{
				"key":   key.String(),
				"error": rErr,
			})
		}
	}()

	importID := uuid.New()
	ictx := ImportContext{
		ImportStatusAs: req.StatusAs,
		CreateModules:  req.CreateModules || s.opts.CreateModules,
		ImportResult:   &importID,
	}
	err = composables.InTx(ctx, func(txCtx context.Context) error {
		rec, err := s.importer.Reconcile(txCtx, src, ictx)
		if err != nil {
			return err
		}
		changes, err := diffVersions(rec.Previous, rec.List)
		if err != nil {
			return err
		}
		result = &ImportResult{
			ImportID:      importID,
			Key:           key,
			Path:          rec.Path,
			List:          rec.List,
			Changes:       changes,
			Cancelled:     rec.Cancelled,
			Retired:       rec.Retired,
			ItemsImported: rec.ItemsImported,
			ModuleCreated: rec.ModuleCreated,
			DryRun:        req.DryRun,
		}
		if req.DryRun {
			return errDryRun
		}
		return nil
	})
	if errors.Is(err, errDryRun) {
		err = nil
	}
	if err != nil {
		result = nil
		logWithFields(ctx, logrus.ErrorLevel, "reference list import failed", logrus.Fields{
			"key":   key.String(),
			"code":  Code(err),
			"error": err,
		})
		return nil, err
	}

	fields := itemFields(result.List.Config())
	fields["path"] = result.Path
	fields["items"] = result.ItemsImported
	fields["dry_run"] = result.DryRun
	fields["import_id"] = importID
	logWithFields(ctx, logrus.InfoLevel, "reference list imported", fields)
	return result, nil
}

func (s *ImportService) acquire(ctx context.Context, key configitem.Key) (locking.Lock, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.opts.LockTTL)
	defer cancel()
	lock, err := s.locker.Acquire(lockCtx, key.String(), s.opts.LockTTL)
	if err != nil {
		if errors.Is(err, locking.ErrNotAcquired) {
			recordWriteConflict("lock")
			return nil, newServiceError(ErrConflict, "CI_IMPORT_LOCKED",
				fmt.Sprintf("another import of %s is in progress", key), err)
		}
		return nil, err
	}
	return lock, nil
}

// diffVersions compares the distributed form of the previous last version with the
// imported one. A created lineage is compared against an empty list.
func diffVersions(previous, next *referencelist.ReferenceList) (jsondiff.Patch, error) {
	after, err := ExportList(next)
	if err != nil {
		return nil, err
	}
	before := &distribution.DistributedReferenceList{}
	if previous != nil {
		if before, err = ExportList(previous); err != nil {
			return nil, err
		}
	}
	patch, err := jsondiff.Compare(before, after)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("compare versions of %s", next.Key()), err)
	}
	return patch, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrPolicyViolation):
		return "policy"
	case errors.Is(err, ErrMissingDependency):
		return "missing_dependency"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
