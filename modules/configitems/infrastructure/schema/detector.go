package schema

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"github.com/iota-uz/configitems/pkg/composables"
)

type Layout int

const (
	LayoutUnknown Layout = iota
	LayoutLegacy
	LayoutModern
)

func (l Layout) String() string {
	switch l {
	case LayoutLegacy:
		return "legacy"
	case LayoutModern:
		return "modern"
	default:
		return "unknown"
	}
}

// ParseLayout accepts the names returned by Layout.String.
func ParseLayout(raw string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "legacy":
		return LayoutLegacy, nil
	case "modern":
		return LayoutModern, nil
	default:
		return LayoutUnknown, errors.Errorf("unknown schema layout %q", raw)
	}
}

const (
	legacyTable = "reference_lists"
)

// legacyColumns only exist on the flat reference_lists table; the modern layout moved
// them to configuration_items.
var legacyColumns = [...]string{"name", "namespace"}

type Detector struct {
	dialect Dialect
}

func NewDetector(dialect Dialect) *Detector {
	return &Detector{dialect: dialect}
}

// IsLegacyLayout reports whether every legacy column exists on the reference list table.
func (d *Detector) IsLegacyLayout(ctx context.Context) (bool, error) {
	q, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	for _, column := range legacyColumns {
		ok, err := d.dialect.ColumnExists(ctx, q, legacyTable, column)
		if err != nil {
			return false, errors.Wrapf(err, "inspect %s.%s", legacyTable, column)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (d *Detector) Detect(ctx context.Context) (Layout, error) {
	legacy, err := d.IsLegacyLayout(ctx)
	if err != nil {
		return LayoutUnknown, err
	}
	if legacy {
		return LayoutLegacy, nil
	}
	return LayoutModern, nil
}
