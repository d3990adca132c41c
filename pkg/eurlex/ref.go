package eurlex

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ELI type slugs used in the URI path.
const (
	eliSlugRegulation = "reg"
	eliSlugDirective  = "dir"
	eliSlugDecision   = "dec"
)

var (
	// celexPattern matches a sector-3 legislation CELEX number,
	// e.g. "32019R0947".
	celexPattern = regexp.MustCompile(`^3(\d{4})([RLD])(\d{4})$`)

	// textualPattern matches the conversational form,
	// e.g. "Regulation (EU) 2019/947" or "Directive 95/46".
	textualPattern = regexp.MustCompile(`(?i)^(regulation|directive|decision)(?:\s+\([A-Z,\s]+\))?\s+(?:No\s+)?(\d{2,4})/(\d+)$`)
)

// ParseReference parses a legislation reference from any of the accepted
// forms: a CELEX number ("32019R0947"), an ELI-style path ("reg/2019/947"),
// or the conversational form ("Regulation (EU) 2019/947").
func ParseReference(input string) (Reference, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Reference{}, fmt.Errorf("empty legislation reference")
	}

	if m := celexPattern.FindStringSubmatch(trimmed); m != nil {
		return Reference{
			Type:   DocumentTypeCode(m[2]),
			Year:   m[1],
			Number: strings.TrimLeft(m[3], "0"),
		}, nil
	}

	if parts := strings.Split(trimmed, "/"); len(parts) == 3 {
		typeCode, err := slugToTypeCode(strings.ToLower(parts[0]))
		if err == nil {
			return Reference{
				Type:   typeCode,
				Year:   normalizeYear(parts[1]),
				Number: parts[2],
			}, nil
		}
	}

	if m := textualPattern.FindStringSubmatch(trimmed); m != nil {
		typeCode, err := nameToTypeCode(strings.ToLower(m[1]))
		if err != nil {
			return Reference{}, err
		}
		return Reference{
			Type:   typeCode,
			Year:   normalizeYear(m[2]),
			Number: m[3],
		}, nil
	}

	return Reference{}, fmt.Errorf("unrecognized legislation reference: %q", input)
}

// GenerateCELEX creates a CELEX number from a legislation reference.
// Returns an error if the reference lacks a year, number, or type.
//
// CELEX format: {Sector}{Year}{TypeCode}{PaddedNumber}
// Example: Regulation (EU) 2016/679 -> "32016R0679"
func GenerateCELEX(ref Reference) (CELEXNumber, error) {
	if err := ref.validate(); err != nil {
		return CELEXNumber{}, err
	}
	return CELEXNumber{
		Sector:   SectorLegislation,
		Year:     normalizeYear(ref.Year),
		TypeCode: ref.Type,
		Number:   padCELEXNumber(ref.Number),
	}, nil
}

// GenerateELI creates an ELI URI from a legislation reference.
//
// ELI format: http://data.europa.eu/eli/{type}/{year}/{number}/oj
// Example: Regulation (EU) 2016/679 -> http://data.europa.eu/eli/reg/2016/679/oj
func GenerateELI(ref Reference) (ELIURI, error) {
	if err := ref.validate(); err != nil {
		return ELIURI{}, err
	}
	typeSlug, err := typeCodeToSlug(ref.Type)
	if err != nil {
		return ELIURI{}, err
	}
	return ELIURI{
		TypeSlug: typeSlug,
		Year:     normalizeYear(ref.Year),
		Number:   ref.Number, // ELI uses unpadded numbers.
	}, nil
}

func (ref Reference) validate() error {
	if ref.Year == "" {
		return fmt.Errorf("reference missing required year component")
	}
	if ref.Number == "" {
		return fmt.Errorf("reference missing required number component")
	}
	switch ref.Type {
	case TypeRegulation, TypeDirective, TypeDecision:
		return nil
	default:
		return fmt.Errorf("unsupported document type code: %q", ref.Type)
	}
}

func typeCodeToSlug(typeCode DocumentTypeCode) (string, error) {
	switch typeCode {
	case TypeRegulation:
		return eliSlugRegulation, nil
	case TypeDirective:
		return eliSlugDirective, nil
	case TypeDecision:
		return eliSlugDecision, nil
	default:
		return "", fmt.Errorf("unsupported document type code: %q", typeCode)
	}
}

func slugToTypeCode(slug string) (DocumentTypeCode, error) {
	switch slug {
	case eliSlugRegulation:
		return TypeRegulation, nil
	case eliSlugDirective:
		return TypeDirective, nil
	case eliSlugDecision:
		return TypeDecision, nil
	default:
		return "", fmt.Errorf("unknown ELI type slug: %q", slug)
	}
}

func nameToTypeCode(name string) (DocumentTypeCode, error) {
	switch name {
	case "regulation":
		return TypeRegulation, nil
	case "directive":
		return TypeDirective, nil
	case "decision":
		return TypeDecision, nil
	default:
		return "", fmt.Errorf("unknown legislation type: %q", name)
	}
}

// normalizeYear converts a 2-digit year to 4-digit.
// Uses 1958 as the cutoff (year the EU/EEC was founded):
// - Years >= 58 are interpreted as 19xx (e.g., "95" -> "1995")
// - Years < 58 are interpreted as 20xx (e.g., "16" -> "2016")
// 4-digit years pass through unchanged.
func normalizeYear(yearString string) string {
	if len(yearString) == 2 {
		yearValue, err := strconv.Atoi(yearString)
		if err != nil {
			return yearString
		}
		if yearValue >= 58 {
			return "19" + yearString
		}
		return "20" + yearString
	}
	return yearString
}

// padCELEXNumber pads a document number to 4 digits with leading zeros.
// Example: "679" -> "0679", "46" -> "0046", "1" -> "0001"
func padCELEXNumber(numberString string) string {
	for len(numberString) < 4 {
		numberString = "0" + numberString
	}
	return numberString
}
