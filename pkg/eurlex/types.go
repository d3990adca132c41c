// Package eurlex provides a connector to EUR-Lex: CELEX number and ELI URI
// generation from legislation references, and rate-limited retrieval of
// document HTML.
package eurlex

import (
	"time"
)

// DocumentSector represents the CELEX sector code.
// See: https://eur-lex.europa.eu/content/tools/TableOfSectors/types_of_documents_in_eurlex.html
type DocumentSector string

const (
	SectorTreaties                 DocumentSector = "1"
	SectorInternationalAgreements  DocumentSector = "2"
	SectorLegislation              DocumentSector = "3"
	SectorComplementaryLegislation DocumentSector = "4"
	SectorPreparatoryActs          DocumentSector = "5"
	SectorCaseLaw                  DocumentSector = "6"
)

// DocumentTypeCode represents the CELEX document type indicator within a sector.
type DocumentTypeCode string

const (
	TypeRegulation DocumentTypeCode = "R"
	TypeDirective  DocumentTypeCode = "L"
	TypeDecision   DocumentTypeCode = "D"
)

// Reference identifies one piece of EU legislation by type, year and number.
// It is the parsed form of user input like "Regulation (EU) 2019/947" or a
// raw CELEX number.
type Reference struct {
	Type   DocumentTypeCode `json:"type"`
	Year   string           `json:"year"`
	Number string           `json:"number"`
}

// CELEXNumber is a structured representation of a CELEX identifier.
// Format: {Sector}{Year}{TypeCode}{PaddedNumber}
// Example: "32019R0947" = Sector 3, Year 2019, Regulation, Number 0947
type CELEXNumber struct {
	Sector   DocumentSector   `json:"sector"`
	Year     string           `json:"year"`
	TypeCode DocumentTypeCode `json:"type_code"`
	Number   string           `json:"number"`
}

// String returns the canonical CELEX string representation.
func (celexNumber CELEXNumber) String() string {
	return string(celexNumber.Sector) + celexNumber.Year + string(celexNumber.TypeCode) + celexNumber.Number
}

// ELIURI represents a European Legislation Identifier URI.
// Format: http://data.europa.eu/eli/{type}/{year}/{number}/oj
type ELIURI struct {
	TypeSlug string `json:"type_slug"`
	Year     string `json:"year"`
	Number   string `json:"number"`
}

// ELIBaseURL is the base URL for ELI URIs.
const ELIBaseURL = "http://data.europa.eu/eli/"

// String returns the full ELI URI.
func (eliURI ELIURI) String() string {
	return ELIBaseURL + eliURI.TypeSlug + "/" + eliURI.Year + "/" + eliURI.Number + "/oj"
}

// Document is one retrieved EUR-Lex document: the raw HTML payload together
// with its provenance.
type Document struct {
	CELEX       string    `json:"celex"`
	URL         string    `json:"url"`
	Language    string    `json:"language"`
	RetrievedAt time.Time `json:"retrieved_at"`
	HTML        []byte    `json:"-"`
}
