package fields

// ExtractCNPJ returns the first CNPJ-shaped match in the text, digits only.
// CNPJ and CPF are matched independently; a fiscal document may carry both
// (issuer CNPJ plus the consumer's CPF).
func ExtractCNPJ(text string) *string {
	m := reCNPJ.FindString(text)
	if m == "" {
		return nil
	}
	d := DigitsOnly(m)
	return &d
}

// ExtractCPF returns the first CPF-shaped match in the text, digits only.
func ExtractCPF(text string) *string {
	m := reCPF.FindString(text)
	if m == "" {
		return nil
	}
	d := DigitsOnly(m)
	return &d
}
