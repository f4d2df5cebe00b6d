package distribution

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/configitems/pkg/constants"
)

type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from a file extension, falling back to sniffing.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatAuto
	}
}

// DecodeError reports a payload that could not be read into a distributed item.
type DecodeError struct {
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s payload: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeReferenceList reads a reference list definition from r.
func DecodeReferenceList(r io.Reader, format Format) (*DistributedReferenceList, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Format: format, Err: err}
	}
	if format == FormatAuto {
		format = sniff(data)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &DecodeError{Format: format, Err: io.ErrUnexpectedEOF}
	}

	var out DistributedReferenceList
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &out)
	case FormatYAML:
		err = yaml.Unmarshal(data, &out)
	case FormatTOML:
		err = toml.Unmarshal(data, &out)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, &DecodeError{Format: format, Err: err}
	}
	return &out, nil
}

func sniff(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}

// Validate checks struct constraints and the item type discriminator. Field
// errors are joined into one message naming each offending field.
func Validate(list *DistributedReferenceList) error {
	if list == nil {
		return fmt.Errorf("reference list definition is nil")
	}
	if list.ItemType != "" && list.ItemType != ItemTypeReferenceList {
		return fmt.Errorf("item type %q is not %q", list.ItemType, ItemTypeReferenceList)
	}
	err := constants.Validate.Struct(list)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("reference list %q: %s", list.Name, strings.Join(msgs, "; "))
}
