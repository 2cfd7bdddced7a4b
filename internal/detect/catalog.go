package detect

import "github.com/ppiankov/hrintel/internal/model"

// FieldSpec is one numbered field of a HURIDOCS record format
type FieldSpec struct {
	Number string `json:"number"`
	Label  string `json:"label"`
}

// formatSpec holds everything the detector knows about one record format.
// The order of the catalog slice is the detection priority.
type formatSpec struct {
	format  model.DocumentFormat
	title   string   // Literal header title
	markers []string // Field codes and labels that must accompany the title
	fields  []FieldSpec
}

// The field sets are disjoint (1xx, 21xx, 24xx), so three hits are enough
// to tell the formats apart.
var catalog = []formatSpec{
	{
		format:  model.FormatEvent,
		title:   "HURIDOCS Ereignisformat",
		markers: []string{"101", "102", "Ereignis-Datensatznummer"},
		fields: []FieldSpec{
			{"101", "Ereignis-Datensatznummer"},
			{"102", "Ereignistitel"},
			{"108", "Geografischer Ort"},
			{"111", "Anfangsdatum"},
			{"112", "Enddatum"},
			{"113", "Ereignisbeschreibung"},
			{"114", "Auswirkungen des Ereignisses"},
			{"115", "Bemerkungen"},
			{"116", "Verletzungsstatus"},
			{"150", "Kommentare"},
		},
	},
	{
		format:  model.FormatAct,
		title:   "HURIDOCS Handlungsformat",
		markers: []string{"2101", "2102", "Handlung-Datensatznummer"},
		fields: []FieldSpec{
			{"2101", "Handlung-Datensatznummer"},
			{"2102", "Name des Opfers"},
			{"2103", "Ereignisname"},
			{"2105", "Art der Handlung"},
			{"2108", "Anfangsdatum"},
			{"2109", "Genauer Ort"},
			{"2111", "Enddatum"},
			{"2112", "Gewaltmethode"},
			{"2113", "Zuschreibung"},
		},
	},
	{
		format:  model.FormatParticipation,
		title:   "HURIDOCS Beteiligungsformat",
		markers: []string{"2401", "2402", "Beteiligung-Datensatznummer"},
		fields: []FieldSpec{
			{"2401", "Beteiligung-Datensatznummer"},
			{"2402", "Name des Täters"},
			{"2403", "Ereignisname"},
			{"2404", "Handlung"},
			{"2409", "Grad der Beteiligung"},
			{"2412", "Art des Täters"},
			{"2422", "Letzter Status als Täter"},
			{"2423", "Datum des letzten Status"},
			{"2425", "Bemerkungen"},
		},
	},
}

// Catalog returns a copy of the field catalog keyed by format
func Catalog() map[model.DocumentFormat][]FieldSpec {
	out := make(map[model.DocumentFormat][]FieldSpec, len(catalog))
	for _, spec := range catalog {
		fields := make([]FieldSpec, len(spec.fields))
		copy(fields, spec.fields)
		out[spec.format] = fields
	}
	return out
}

// FieldLabel returns the German label of a field number, searching all formats.
// Unknown numbers return "".
func FieldLabel(number string) string {
	for _, spec := range catalog {
		for _, f := range spec.fields {
			if f.Number == number {
				return f.Label
			}
		}
	}
	return ""
}

// FormatTitle returns the German header title of a format, "" for unknown
func FormatTitle(format model.DocumentFormat) string {
	if spec := specFor(format); spec != nil {
		return spec.title
	}
	return ""
}

func specFor(format model.DocumentFormat) *formatSpec {
	for i := range catalog {
		if catalog[i].format == format {
			return &catalog[i]
		}
	}
	return nil
}
