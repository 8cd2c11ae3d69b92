package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMoney(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string // empty means nil
	}{
		{"brazilian grouping", "R$ 1.234,56", "1234.56"},
		{"comma decimal", "10,00", "10.00"},
		{"dot decimal", "234.56", "234.56"},
		{"us grouping", "1,234.56", "1234.56"},
		{"millions", "1.234.567,89", "1234567.89"},
		{"bare integer", "R$ 5", "5.00"},
		{"symbol no space", "R$1.500,00", "1500.00"},
		{"zero", "0,00", "0.00"},
		{"sub one", ",99", "0.99"},
		{"junk", "abc", ""},
		{"symbol only", "R$", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeMoney(tt.in)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestExtractTotalAnchored(t *testing.T) {
	text := "SUPERMERCADO X LTDA\nTOTAL GERAL R$ 1.500,00\nObrigado"

	got := ExtractTotal(text, DefaultRules())
	require.NotNil(t, got)
	assert.Equal(t, "1500.00", *got)
}

func TestExtractTotalSkipsSubtotal(t *testing.T) {
	// "total" must not anchor inside "SUBTOTAL"; the labelled total wins
	// even though the subtotal figure is larger and appears first.
	text := "SUBTOTAL 999,99\nDESCONTO 849,99\nTOTAL A PAGAR 150,00"

	got := ExtractTotal(text, DefaultRules())
	require.NotNil(t, got)
	assert.Equal(t, "150.00", *got)
}

func TestExtractTotalLargestFallback(t *testing.T) {
	// No label anywhere: the largest currency-shaped number wins.
	text := "Recebido 10,00\nEntrega 2.000,00\nItem 500,00"

	got := ExtractTotal(text, DefaultRules())
	require.NotNil(t, got)
	assert.Equal(t, "2000.00", *got)
}

func TestExtractTotalNone(t *testing.T) {
	assert.Nil(t, ExtractTotal("nenhum valor por aqui", DefaultRules()))
}
