package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/iota-uz/configitems/modules/configitems/domain/referencelist"
)

func writeJSONLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return withCode(exitDB, fmt.Errorf("json encode: %w", err))
	}
	return nil
}

type versionRecord struct {
	ID              uuid.UUID  `json:"id"`
	Key             string     `json:"key"`
	VersionNo       int        `json:"version_no"`
	Status          string     `json:"status"`
	IsLast          bool       `json:"is_last"`
	ParentVersionID *uuid.UUID `json:"parent_version_id,omitempty"`
	CreatedByImport *uuid.UUID `json:"created_by_import,omitempty"`
	Items           int        `json:"items"`
}

func newVersionRecord(list *referencelist.ReferenceList) versionRecord {
	return versionRecord{
		ID:              list.ID,
		Key:             list.Key().String(),
		VersionNo:       list.VersionNo,
		Status:          list.VersionStatus.String(),
		IsLast:          list.IsLast,
		ParentVersionID: list.ParentVersionID,
		CreatedByImport: list.CreatedByImport,
		Items:           len(list.Items),
	}
}

func stringsTrim(s string) string { return strings.TrimSpace(s) }

func parseVersionID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(stringsTrim(raw))
	if err != nil {
		return uuid.Nil, withCode(exitUsage, fmt.Errorf("invalid version id %q: %w", raw, err))
	}
	return id, nil
}
