package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAddress(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string // empty means nil
	}{
		{
			"two indicator lines stop at cnpj",
			"Rua das Flores, 123\nBairro Centro - São Paulo/SP\nCNPJ: 12.345.678/0001-95",
			"Rua das Flores, 123 Bairro Centro - São Paulo/SP",
		},
		{
			"short continuation after start",
			"Avenida Paulista, 1000\nSão Paulo - SP\nTelefone 1234",
			"Avenida Paulista, 1000 São Paulo - SP",
		},
		{
			"postal label stripped from the front",
			"CEP 01310-100\nRua X, 1",
			"01310-100 Rua X, 1",
		},
		{
			"money line ends the run",
			"Rua A, 5\nTroco 10,00\nRua B, 7",
			"Rua A, 5",
		},
		{
			"no indicator",
			"SUPERMERCADO X\nTOTAL 10,00",
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractAddress(tt.text, DefaultRules())
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestExtractAddressCapsRun(t *testing.T) {
	text := "Rua A, 1\nRua B, 2\nRua C, 3\nRua D, 4\nRua E, 5"

	got := ExtractAddress(text, DefaultRules())
	require.NotNil(t, got)
	assert.Equal(t, "Rua A, 1 Rua B, 2 Rua C, 3 Rua D, 4", *got)
}
