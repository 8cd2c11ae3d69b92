package nfe

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/dfalmeida/notas-extractor/constants"
	"github.com/dfalmeida/notas-extractor/internal/document"
	"github.com/dfalmeida/notas-extractor/internal/fields"
)

// ParseError reports malformed markup. Zero line items is not an error;
// callers get an empty slice and decide what that means.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse nfe xml: %v", e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Parse extracts canonical rows from an NF-e-like XML document. Blocks are
// located by local element name at any depth, ignoring namespaces, since
// fiscal-document producers vary prefixes and default-namespace declarations.
// One row per <det> item, header fields replicated onto each; missing
// optional elements yield nil fields, never failure.
func Parse(src document.Source) ([]document.CanonicalRow, error) {
	root, err := decode(src.Content)
	if err != nil {
		return nil, &ParseError{Cause: err}
	}

	emit := findFirst(root, "emit")
	ide := findFirst(root, "ide")
	total := findFirst(root, "total")
	dest := findFirst(root, "dest")

	supplierName := optText(emit, "xNome")
	supplierTaxID := digits(optText(emit, "CNPJ"))
	docNumber := optText(ide, "nNF")
	docDate := emissionDate(ide)
	docTotal := optText(total, "vNF")
	cpf := digits(optText(dest, "CPF"))

	dets := findAll(root, "det")
	rows := make([]document.CanonicalRow, 0, len(dets))
	for i, det := range dets {
		prod := findFirst(det, "prod")
		idx := i + 1
		rows = append(rows, document.CanonicalRow{
			SourceFilename: src.Filename,
			SourceID:       src.ID,
			SupplierName:   supplierName,
			SupplierTaxID:  supplierTaxID,
			DocNumber:      docNumber,
			DocDate:        docDate,
			ItemIndex:      &idx,
			ItemDesc:       optText(prod, "xProd"),
			ItemQuantity:   optText(prod, "qCom"),
			ItemUnitValue:  optText(prod, "vUnCom"),
			ItemTotalValue: optText(prod, "vProd"),
			DocTotalValue:  docTotal,
			AssociatedCPF:  cpf,
			Method:         constants.MethodStructured,
			Confidence:     constants.ConfidenceStructured,
		})
	}
	return rows, nil
}

// node is a minimal DOM keyed by local name only.
type node struct {
	local    string
	text     string
	children []*node
}

func decode(b []byte) (*node, error) {
	dec := xml.NewDecoder(bytes.NewReader(b))
	dec.CharsetReader = charsetReader

	root := &node{}
	stack := []*node{root}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{local: t.Name.Local}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			cur := stack[len(stack)-1]
			cur.text += string(t)
		}
	}
	if len(root.children) == 0 {
		return nil, fmt.Errorf("no root element")
	}
	return root, nil
}

// charsetReader lets the decoder handle legacy latin-1 fiscal documents
// that still declare encoding="ISO-8859-1".
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
	return enc.NewDecoder().Reader(input), nil
}

// findFirst returns the first descendant with the given local name,
// depth-first in document order.
func findFirst(n *node, local string) *node {
	if n == nil {
		return nil
	}
	for _, c := range n.children {
		if c.local == local {
			return c
		}
		if m := findFirst(c, local); m != nil {
			return m
		}
	}
	return nil
}

// findAll collects descendants with the given local name in document order.
// It does not descend into matches.
func findAll(n *node, local string) []*node {
	var out []*node
	for _, c := range n.children {
		if c.local == local {
			out = append(out, c)
			continue
		}
		out = append(out, findAll(c, local)...)
	}
	return out
}

func optText(n *node, local string) *string {
	m := findFirst(n, local)
	if m == nil {
		return nil
	}
	s := strings.TrimSpace(m.text)
	if s == "" {
		return nil
	}
	return &s
}

func digits(s *string) *string {
	if s == nil {
		return nil
	}
	d := fields.DigitsOnly(*s)
	if d == "" {
		return nil
	}
	return &d
}

// emissionDate reads dEmi (older layouts) or dhEmi (v3+), keeping only the
// date part of a full timestamp.
func emissionDate(ide *node) *string {
	d := optText(ide, "dEmi")
	if d == nil {
		d = optText(ide, "dhEmi")
	}
	if d == nil {
		return nil
	}
	s := *d
	if len(s) > 10 && s[4] == '-' && s[7] == '-' {
		s = s[:10]
	}
	return &s
}
