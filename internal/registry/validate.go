package registry

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateArgs checks args against the tool's JSON Schema. It returns a
// *ToolError with kind invalid_arguments on mismatch; the tool body is
// never called with arguments that failed validation.
func ValidateArgs(tool *Tool, args map[string]any) *ToolError {
	if tool.InputSchema == "" {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}

	schemaLoader := gojsonschema.NewStringLoader(tool.InputSchema)
	argsLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, argsLoader)
	if err != nil {
		return NewToolError(ErrInvalidArguments, tool.Name,
			"the tool arguments could not be validated", fmt.Errorf("registry: validate %s: %w", tool.Name, err))
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return NewToolError(ErrInvalidArguments, tool.Name,
			"invalid arguments: "+strings.Join(details, "; "), nil)
	}
	return nil
}
