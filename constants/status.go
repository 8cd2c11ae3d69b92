package constants

// LedgerStatus is the canonical status for rows in the processing ledger.
type LedgerStatus string

// Stable values (store these exact strings in DB and LOGS sheets).
const (
	StatusOK          LedgerStatus = "OK"          // rows extracted and persisted
	StatusNoRows      LedgerStatus = "NO_ROWS"     // processed cleanly, nothing recoverable
	StatusUnsupported LedgerStatus = "UNSUPPORTED" // no classifier rule matched
	StatusNoText      LedgerStatus = "NO_TEXT"     // native and OCR paths both yielded nothing
	StatusParseError  LedgerStatus = "PARSE_ERROR" // malformed structured markup
	StatusOCRError    LedgerStatus = "OCR_ERROR"   // rasterization or recognition failed hard
	StatusFailedSink  LedgerStatus = "FAILED_SINK" // rows extracted but the sink write failed
)
