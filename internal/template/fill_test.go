package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFill(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		vars     map[string]interface{}
		expected string
	}{
		{
			name:     "standalone numeric keeps type",
			doc:      `{"x":"{{k}}"}`,
			vars:     map[string]interface{}{"k": 5},
			expected: `{"x":5}`,
		},
		{
			name:     "standalone string stays quoted",
			doc:      `{"ckpt":"{{checkpoint}}"}`,
			vars:     map[string]interface{}{"checkpoint": "realistic_v5.safetensors"},
			expected: `{"ckpt":"realistic_v5.safetensors"}`,
		},
		{
			name:     "inline string substitution",
			doc:      `"hello {{k}}"`,
			vars:     map[string]interface{}{"k": "world"},
			expected: `"hello world"`,
		},
		{
			name:     "inline numeric substitution",
			doc:      `"steps-{{steps}}-done"`,
			vars:     map[string]interface{}{"steps": 30},
			expected: `"steps-30-done"`,
		},
		{
			name:     "standalone float",
			doc:      `{"cfg":"{{cfg}}"}`,
			vars:     map[string]interface{}{"cfg": 7.5},
			expected: `{"cfg":7.5}`,
		},
		{
			name: "mixed standalone and inline",
			doc:  `{"seed":"{{seed}}","prompt":"portrait, {{style}}, detailed"}`,
			vars: map[string]interface{}{
				"seed":  int64(123456789),
				"style": "oil painting",
			},
			expected: `{"seed":123456789,"prompt":"portrait, oil painting, detailed"}`,
		},
		{
			name:     "unresolved tokens left untouched",
			doc:      `{"a":"{{known}}","b":"{{unknown}}"}`,
			vars:     map[string]interface{}{"known": 1},
			expected: `{"a":1,"b":"{{unknown}}"}`,
		},
		{
			name:     "no matching variables is identity",
			doc:      `{"nodes":{"3":{"class_type":"KSampler"}}}`,
			vars:     map[string]interface{}{"seed": 42},
			expected: `{"nodes":{"3":{"class_type":"KSampler"}}}`,
		},
		{
			name:     "same variable in both positions",
			doc:      `{"w":"{{width}}","label":"{{width}}px wide"}`,
			vars:     map[string]interface{}{"width": 1024},
			expected: `{"w":1024,"label":"1024px wide"}`,
		},
		{
			name:     "string value with quotes escaped standalone",
			doc:      `{"p":"{{prompt}}"}`,
			vars:     map[string]interface{}{"prompt": `say "cheese"`},
			expected: `{"p":"say \"cheese\""}`,
		},
		{
			name:     "empty vars",
			doc:      `{"x":"{{k}}"}`,
			vars:     map[string]interface{}{},
			expected: `{"x":"{{k}}"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Fill(tt.doc, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestFill_Deterministic(t *testing.T) {
	doc := `{"a":"{{a}}","b":"{{b}}","c":"{{a}} and {{b}}"}`
	vars := map[string]interface{}{"a": 1, "b": "two"}

	first, err := Fill(doc, vars)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		again, err := Fill(doc, vars)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestFill_IdempotentWithoutMatches(t *testing.T) {
	doc := `{"nodes":{"1":{"inputs":{"text":"static prompt"}}}}`

	result, err := Fill(doc, map[string]interface{}{"seed": 99})
	require.NoError(t, err)

	// Byte-for-byte identity when nothing matches
	assert.Equal(t, doc, result)
}

func TestUnresolved(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		expected []string
	}{
		{
			name:     "no tokens",
			doc:      `{"x":1}`,
			expected: nil,
		},
		{
			name:     "distinct tokens in order",
			doc:      `{"a":"{{seed}}","b":"{{prompt}} {{seed}}"}`,
			expected: []string{"seed", "prompt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Unresolved(tt.doc))
		})
	}
}
