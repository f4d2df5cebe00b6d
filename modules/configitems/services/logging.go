package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/configitems/modules/configitems/domain/configitem"
	"github.com/iota-uz/configitems/pkg/composables"
)

func logWithFields(ctx context.Context, level logrus.Level, msg string, fields logrus.Fields) {
	composables.UseLogger(ctx).WithFields(fields).Log(level, msg)
}

func itemFields(ci *configitem.ConfigurationItem) logrus.Fields {
	return logrus.Fields{
		"item_type":  ci.ItemType,
		"module":     ci.ModuleName,
		"name":       ci.Name,
		"version_no": ci.VersionNo,
		"status":     ci.VersionStatus.String(),
	}
}
