package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const receiptItems = `SUPERMERCADO X LTDA
Bala avulsa 1,00
ITENS
Arroz Tipo 1 5kg 25,90
Feijao Carioca 1kg 8,50 17,00
SUBTOTAL 43,90
Refrigerante 2L 7,99
TOTAL 51,89
Taxa entrega 10,00`

func TestExtractItems(t *testing.T) {
	items := ExtractItems(receiptItems, DefaultRules())
	require.Len(t, items, 3)

	assert.Equal(t, "Arroz Tipo 1 5kg", items[0].Description)
	assert.Nil(t, items[0].Quantity)
	assert.Nil(t, items[0].UnitValue)
	require.NotNil(t, items[0].TotalValue)
	assert.Equal(t, "25.90", *items[0].TotalValue)

	assert.Equal(t, "Feijao Carioca 1kg", items[1].Description)
	require.NotNil(t, items[1].UnitValue)
	require.NotNil(t, items[1].TotalValue)
	assert.Equal(t, "8.50", *items[1].UnitValue)
	assert.Equal(t, "17.00", *items[1].TotalValue)

	assert.Equal(t, "Refrigerante 2L", items[2].Description)
	require.NotNil(t, items[2].TotalValue)
	assert.Equal(t, "7.99", *items[2].TotalValue)
}

func TestExtractItemsNothingBeforeStartOrAfterEnd(t *testing.T) {
	items := ExtractItems(receiptItems, DefaultRules())

	for _, it := range items {
		assert.NotContains(t, it.Description, "Bala avulsa", "line above the section start must not be captured")
		assert.NotContains(t, it.Description, "Taxa entrega", "line after the end marker must not be captured")
	}
}

func TestExtractItemsNoStartKeyword(t *testing.T) {
	text := "SUPERMERCADO X\nArroz 25,90\nTOTAL 25,90"
	assert.Empty(t, ExtractItems(text, DefaultRules()))
}

func TestExtractItemsBlockedLabelDoesNotEndSection(t *testing.T) {
	// A blocked label also carrying an end word is skipped, not treated as
	// the section end; capture continues below it.
	text := "ITENS\nCafe Torrado 12,00\nDesconto total 2,00\nLeite Integral 6,50\nTOTAL 16,50"

	items := ExtractItems(text, DefaultRules())
	require.Len(t, items, 2)
	assert.Equal(t, "Cafe Torrado", items[0].Description)
	assert.Equal(t, "Leite Integral", items[1].Description)
}

func TestExtractItemsRespectsCap(t *testing.T) {
	r := DefaultRules()
	r.MaxItems = 2

	items := ExtractItems(receiptItems, r)
	assert.Len(t, items, 2)
}

func TestExtractItemsSkipsShortAndNumberlessLines(t *testing.T) {
	text := "ITENS\nxx 1,00\nlinha sem valor nenhum\nProduto Valido 10,00\nTOTAL 11,00"

	items := ExtractItems(text, DefaultRules())
	require.Len(t, items, 1)
	assert.Equal(t, "Produto Valido", items[0].Description)
}

func TestDecomposeItemSingleValue(t *testing.T) {
	c := decomposeItem("Sabonete Neutro 3,49")
	assert.Equal(t, "Sabonete Neutro", c.Description)
	assert.Nil(t, c.Quantity)
	assert.Nil(t, c.UnitValue)
	require.NotNil(t, c.TotalValue)
	assert.Equal(t, "3.49", *c.TotalValue)
}

func TestDecomposeItemThreeValues(t *testing.T) {
	// With several currency tokens the last two are unit and total.
	c := decomposeItem("Queijo Minas 0,450 39,90 17,95")
	assert.Equal(t, "Queijo Minas", c.Description)
	require.NotNil(t, c.UnitValue)
	require.NotNil(t, c.TotalValue)
	assert.Equal(t, "39.90", *c.UnitValue)
	assert.Equal(t, "17.95", *c.TotalValue)
}
