package constants

// ExtractionMethod records which strategy produced a row.
type ExtractionMethod string

// Stable values (store these exact strings in the sink).
const (
	MethodStructured   ExtractionMethod = "structured"    // parsed from markup, confidence 1.0
	MethodOCRHeuristic ExtractionMethod = "ocr-heuristic" // pattern matching over recognized text
	MethodUnsupported  ExtractionMethod = "unsupported"   // no strategy matched
)

// Confidence constants for the two extraction tiers.
const (
	ConfidenceStructured = 1.0
	ConfidenceHeuristic  = 0.6
)
