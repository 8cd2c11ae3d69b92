package fields

import "regexp"

// Compiled patterns shared by every rule set. These are the canonical
// superset of the historical per-revision variants; keyword tables vary
// per deployment, patterns do not.
var (
	// 14 digits with optional grouping punctuation: 12.345.678/0001-95.
	reCNPJ = regexp.MustCompile(`\b\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}\b`)
	// 11 digits with optional grouping punctuation: 123.456.789-09.
	// The boundaries keep it from firing inside a bare 14-digit CNPJ.
	reCPF = regexp.MustCompile(`\b\d{3}\.?\d{3}\.?\d{3}-?\d{2}\b`)
	// Currency-shaped: 1.234,56 / 1,234.56 / 10,00 / 234.56.
	reMoney = regexp.MustCompile(`\d{1,3}(?:[.,]\d{3})*[.,]\d{2}`)
	// Document numbers are short digit runs.
	reNumberToken = regexp.MustCompile(`\b\d{1,12}\b`)
	// DD/MM/YYYY, DD/MM/YY or YYYY-MM-DD.
	reDate = regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4}|\d{2}/\d{2}/\d{2}|\d{4}-\d{2}-\d{2})\b`)
)

// Window sizes for keyword-anchored scans, in bytes of folded text.
const (
	docNumberWindow = 60
	dateWindow      = 60
	totalWindow     = 150
)

// Rules carries the keyword tables driving the heuristic extractor.
// Tables are folded (lowercase, no accents); see Fold. Every entry point
// takes Rules explicitly, nothing reads ambient state.
type Rules struct {
	DocNumberKeywords []string `json:"doc_number_keywords" yaml:"doc_number_keywords"`
	DateKeywords      []string `json:"date_keywords" yaml:"date_keywords"`
	TotalKeywords     []string `json:"total_keywords" yaml:"total_keywords"`
	LegalSuffixes     []string `json:"legal_suffixes" yaml:"legal_suffixes"`
	SectorKeywords    []string `json:"sector_keywords" yaml:"sector_keywords"`
	AddressIndicators []string `json:"address_indicators" yaml:"address_indicators"`
	AddressStops      []string `json:"address_stops" yaml:"address_stops"`
	ItemStartKeywords []string `json:"item_start_keywords" yaml:"item_start_keywords"`
	ItemEndKeywords   []string `json:"item_end_keywords" yaml:"item_end_keywords"`
	ItemBlockList     []string `json:"item_block_list" yaml:"item_block_list"`
	MaxItems          int      `json:"max_items" yaml:"max_items"`
}

// DefaultRules is the built-in table set for Brazilian fiscal documents.
func DefaultRules() Rules {
	return Rules{
		DocNumberKeywords: []string{
			"nota fiscal eletronica",
			"nota fiscal",
			"cupom fiscal",
			"nfc-e",
			"nf-e",
			"nfe",
			"nf",
			"numero",
			"num.",
			"no.",
			"no",
			"n.",
		},
		DateKeywords: []string{
			"data de emissao",
			"data emissao",
			"dt. emissao",
			"dt emissao",
			"data da compra",
			"data compra",
			"emissao",
			"data",
		},
		TotalKeywords: []string{
			"total geral",
			"valor total",
			"total a pagar",
			"valor a pagar",
			"total da nota",
			"valor pago",
			"total",
		},
		LegalSuffixes: []string{
			"ltda",
			"s.a",
			"s/a",
			"sa",
			"me",
			"mei",
			"eireli",
			"epp",
			"cia",
		},
		SectorKeywords: []string{
			"supermercado",
			"mercado",
			"atacado",
			"distribuidora",
			"comercio",
			"industria",
			"servicos",
			"farmacia",
			"drogaria",
			"restaurante",
			"lanchonete",
			"padaria",
			"posto",
			"papelaria",
			"loja",
		},
		AddressIndicators: []string{
			"rua",
			"av.",
			"av",
			"avenida",
			"alameda",
			"travessa",
			"rodovia",
			"estrada",
			"praca",
			"bairro",
			"cep",
			"municipio",
			"cidade",
		},
		AddressStops: []string{
			"cnpj",
			"cpf",
			"telefone",
			"fone",
			"tel.",
			"tel:",
			"total",
		},
		ItemStartKeywords: []string{
			"itens",
			"item",
			"descricao",
			"produto",
			"produtos",
			"qtd",
			"qtde",
			"quant",
			"cod.",
			"codigo",
		},
		ItemEndKeywords: []string{
			"total geral",
			"valor total",
			"total a pagar",
			"total",
			"forma de pagamento",
			"forma pagamento",
			"pagamento",
			"observacoes",
			"obrigado",
			"agradecemos",
		},
		ItemBlockList: []string{
			"subtotal",
			"sub-total",
			"desconto",
			"acrescimo",
			"imposto",
			"tributo",
			"icms",
			"troco",
			"dinheiro",
			"cartao",
			"debito",
			"credito",
			"pix",
		},
		MaxItems: 40,
	}
}

// merge returns r with any non-empty override table replacing the base one.
func (r Rules) merge(o Rules) Rules {
	if len(o.DocNumberKeywords) > 0 {
		r.DocNumberKeywords = o.DocNumberKeywords
	}
	if len(o.DateKeywords) > 0 {
		r.DateKeywords = o.DateKeywords
	}
	if len(o.TotalKeywords) > 0 {
		r.TotalKeywords = o.TotalKeywords
	}
	if len(o.LegalSuffixes) > 0 {
		r.LegalSuffixes = o.LegalSuffixes
	}
	if len(o.SectorKeywords) > 0 {
		r.SectorKeywords = o.SectorKeywords
	}
	if len(o.AddressIndicators) > 0 {
		r.AddressIndicators = o.AddressIndicators
	}
	if len(o.AddressStops) > 0 {
		r.AddressStops = o.AddressStops
	}
	if len(o.ItemStartKeywords) > 0 {
		r.ItemStartKeywords = o.ItemStartKeywords
	}
	if len(o.ItemEndKeywords) > 0 {
		r.ItemEndKeywords = o.ItemEndKeywords
	}
	if len(o.ItemBlockList) > 0 {
		r.ItemBlockList = o.ItemBlockList
	}
	if o.MaxItems > 0 {
		r.MaxItems = o.MaxItems
	}
	return r
}
