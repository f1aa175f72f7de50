package classifier

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/orderstack/orderstack/internal/models"
	"github.com/orderstack/orderstack/services/spreadsheet"
)

const (
	CityUnknown     = "city_unknown"
	SupplierUnknown = "supplier_unknown"
)

// Resolution is the outcome of one lookup: a resolved value or the
// reason it stayed unresolved.
type Resolution struct {
	Resolved bool
	Value    string
	Reason   string
}

func resolved(value string) Resolution {
	return Resolution{Resolved: true, Value: value}
}

func unresolved(reason string) Resolution {
	return Resolution{Reason: reason}
}

// FolderName returns the sanitized path segment for the resolution, or
// the sentinel when unresolved.
func (r Resolution) FolderName(sentinel string) string {
	if !r.Resolved {
		return sentinel
	}
	name := SanitizeFolderName(r.Value)
	if name == "" {
		return sentinel
	}
	return name
}

// Classification tags one attachment with the city and supplier folders
// it belongs to.
type Classification struct {
	City     Resolution
	Supplier Resolution
}

// CityFolder and SupplierFolder are the path segments used on disk.
func (c Classification) CityFolder() string     { return c.City.FolderName(CityUnknown) }
func (c Classification) SupplierFolder() string { return c.Supplier.FolderName(SupplierUnknown) }

// Classify probes the workbook cells configured on the sender profile
// and resolves the attachment's city and supplier. It is pure over its
// inputs; unresolved lookups are not errors, unreadable workbooks are.
func Classify(data []byte, filename string, sender *models.Sender) (Classification, error) {
	format, ok := spreadsheet.FormatFromFilename(filename)
	if !ok {
		return Classification{}, errors.Errorf("%s is not a spreadsheet attachment", filename)
	}

	city, err := resolveCity(data, format, sender)
	if err != nil {
		return Classification{}, err
	}

	supplier, err := resolveSupplier(data, format, sender.SupplierProbes)
	if err != nil {
		return Classification{}, err
	}

	return Classification{City: city, Supplier: supplier}, nil
}

// resolveCity probes the configured cells in order and stops at the
// first cell whose text contains any sub-city key. Among matching keys
// the longest wins; on equal length the last one in key order wins.
func resolveCity(data []byte, format spreadsheet.Format, sender *models.Sender) (Resolution, error) {
	for _, cell := range sender.CellCoordinates {
		text, err := spreadsheet.ReadCell(data, format, cell)
		if err != nil {
			return Resolution{}, err
		}
		if text == "" {
			continue
		}

		if subCity, ok := matchSubCity(text, sender.Cities); ok {
			return resolved(sender.Cities[subCity]), nil
		}
	}
	return unresolved("no probe cell matched a known city"), nil
}

// matchSubCity scans the sub-city keys in a fixed (sorted) order and
// keeps the longest case-insensitive substring match, preferring the
// later key when lengths tie.
func matchSubCity(cellText string, cities models.JSONMap) (string, bool) {
	keys := make([]string, 0, len(cities))
	for key := range cities {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lowered := strings.ToLower(cellText)

	var best string
	bestLen := -1
	found := false
	for _, key := range keys {
		if key == "" {
			continue
		}
		if !strings.Contains(lowered, strings.ToLower(key)) {
			continue
		}
		// length in characters, not bytes, so Cyrillic and Latin keys
		// compete fairly
		keyLen := utf8.RuneCountInString(key)
		if !found || keyLen >= bestLen {
			best = key
			bestLen = keyLen
			found = true
		}
	}
	return best, found
}

// resolveSupplier tries the named probes in declared order; within a
// probe the first candidate contained in any probe cell's text wins.
func resolveSupplier(data []byte, format spreadsheet.Format, probes models.SupplierProbes) (Resolution, error) {
	if len(probes) == 0 {
		return unresolved("no supplier probes configured"), nil
	}

	for _, probe := range probes {
		for _, cell := range probe.Cells {
			text, err := spreadsheet.ReadCell(data, format, cell)
			if err != nil {
				return Resolution{}, err
			}
			if text == "" {
				continue
			}

			lowered := strings.ToLower(text)
			for _, candidate := range probe.Candidates {
				if candidate == "" {
					continue
				}
				if strings.Contains(lowered, strings.ToLower(candidate)) {
					return resolved(probe.Supplier), nil
				}
			}
		}
	}
	return unresolved("no probe cell matched a known supplier"), nil
}

// SanitizeFolderName strips everything outside letters, digits, spaces,
// underscore and hyphen so resolved values are safe path segments.
func SanitizeFolderName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return r
		case r == ' ' || r == '_' || r == '-':
			return r
		default:
			return -1
		}
	}, name)
	return strings.TrimSpace(cleaned)
}
