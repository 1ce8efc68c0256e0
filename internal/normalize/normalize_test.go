package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "AZUCAR", "azucar"},
		{"strips accents", "Código", "codigo"},
		{"strips tilde", "Ñame", "name"},
		{"collapses whitespace", "  Precio   Máximo ", "precio maximo"},
		{"empty", "", ""},
		{"whitespace only", "   \t ", ""},
		{"mixed", "  AZÚCAR   Refinada ", "azucar refinada"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Text(tt.input))
		})
	}
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"azucar", "blanca"}, Words("  Azúcar   BLANCA "))
	assert.Empty(t, Words("   "))
	assert.Empty(t, Words(""))
}
