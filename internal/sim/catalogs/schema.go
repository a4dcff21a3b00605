package catalogs

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// validateSchema checks raw against configDir/<name>.schema.json before the
// typed unmarshal, so malformed config fails with a path into the document
// instead of a zero-valued struct.
func validateSchema(configDir, name string, raw []byte) error {
	path := filepath.Join(configDir, name+".schema.json")
	s, err := jsonschema.Compile(path)
	if err != nil {
		return fmt.Errorf("compile %s schema: %w", name, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%s.json: %w", name, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%s.json: %w", name, err)
	}
	return nil
}
