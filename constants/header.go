package constants

// Sheet names used by the XLSX sink.
const (
	DataSheet = "DATA"
	LogsSheet = "LOGS"
)

// RowHeader is the canonical column order for every tabular sink.
// Sinks must not reorder or rename these.
var RowHeader = []string{
	"source_filename",
	"source_id",
	"fornecedor_razao_social",
	"fornecedor_cnpj",
	"nota_numero",
	"nota_data",
	"item_index",
	"item_descricao",
	"item_quantidade",
	"item_valor_unitario",
	"item_valor_total",
	"nota_valor_total",
	"cpf_associado",
	"metodo_extracao",
	"confidence",
	"processed_at",
	"observacoes",
}

// LogHeader is the column order for ledger entries in the LOGS sheet.
var LogHeader = []string{
	"source_id",
	"filename",
	"processed_at",
	"status",
	"rows",
	"message",
}
