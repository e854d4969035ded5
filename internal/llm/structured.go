package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// DecodeStructured parses a model reply into out and validates it. The
// reply may wrap the JSON object in prose or a code fence.
func DecodeStructured(raw string, out any) error {
	body := jsonObject(raw)
	if body == "" {
		return fmt.Errorf("%w: no json object in reply", ErrInvalidStructuredOutput)
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStructuredOutput, err)
	}
	if err := structValidator().Struct(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStructuredOutput, err)
	}
	return nil
}

// jsonObject returns the outermost {...} span of s, or "".
func jsonObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// schemaInstruction renders a schema as a system-prompt suffix for backends
// without native structured output.
func schemaInstruction(schema Schema) string {
	def, err := json.Marshal(schema.Definition)
	if err != nil {
		return ""
	}
	return "\n\nRespond with only a JSON object that matches this JSON schema, with no surrounding text:\n" + string(def)
}
