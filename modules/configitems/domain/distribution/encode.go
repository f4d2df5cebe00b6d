package distribution

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EncodeReferenceList writes list in the given format. FormatAuto writes JSON.
func EncodeReferenceList(w io.Writer, list *DistributedReferenceList, format Format) error {
	switch format {
	case FormatAuto, FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(list); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(list)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
