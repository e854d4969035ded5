package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeStructured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "plain object", raw: `{"relevant":false,"confidence":0.1,"reason":"unrelated"}`},
		{name: "code fence", raw: "```json\n{\"relevant\":true,\"confidence\":1,\"reason\":\"x\"}\n```"},
		{name: "missing relevant", raw: `{"confidence":0.5,"reason":"x"}`, wantErr: true},
		{name: "negative confidence", raw: `{"relevant":true,"confidence":-0.1}`, wantErr: true},
		{name: "not json", raw: "I think it is relevant", wantErr: true},
		{name: "wrong type", raw: `{"relevant":"yes","confidence":0.5}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out decision
			err := DecodeStructured(tt.raw, &out)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidStructuredOutput)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, out.Relevant)
		})
	}
}

func TestSchemaInstructionEmbedsDefinition(t *testing.T) {
	t.Parallel()

	got := schemaInstruction(Schema{Name: "x", Definition: map[string]any{"type": "object"}})
	require.Contains(t, got, `{"type":"object"}`)
}
