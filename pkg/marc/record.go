package marc

import (
	"encoding/json"
	"fmt"
)

// Record is one normalized bibliographic record. Field and subfield order
// is preserved exactly as encountered in the source; all text is UTF-8
// regardless of the source encoding. A Record is never mutated after the
// reader yields it.
type Record struct {
	Leader        string
	ControlFields []ControlField
	DataFields    []DataField

	// Raw holds the decoder's pre-normalization representation when
	// Options.RetainRaw is set, nil otherwise. Its type depends on the
	// source format. It has no effect on decoding.
	Raw any
}

// ControlField is a fixed field: a tag with a bare text value.
type ControlField struct {
	Tag   string
	Value string
}

// DataField is a variable field: tag, two indicators, ordered subfields.
type DataField struct {
	Tag        string
	Ind1, Ind2 byte
	Subfields  []Subfield
}

// Subfield is a one-character code plus text value.
type Subfield struct {
	Code  byte
	Value string
}

// Identifier returns the record's 001 control number, or "" when the record
// carries none. It exists for diagnostics only.
func (r *Record) Identifier() string {
	return r.ControlValue("001")
}

// ControlValue returns the value of the first control field with the given
// tag, or "".
func (r *Record) ControlValue(tag string) string {
	for _, f := range r.ControlFields {
		if f.Tag == tag {
			return f.Value
		}
	}
	return ""
}

// DataFieldsByTag returns all data fields with the given tag, in record
// order.
func (r *Record) DataFieldsByTag(tag string) []DataField {
	var out []DataField
	for _, f := range r.DataFields {
		if f.Tag == tag {
			out = append(out, f)
		}
	}
	return out
}

// SubfieldValues returns the values of every subfield with the given code,
// in field order.
func (f DataField) SubfieldValues(code byte) []string {
	var out []string
	for _, s := range f.Subfields {
		if s.Code == code {
			out = append(out, s.Value)
		}
	}
	return out
}

// Map renders the record as a generic structure for display or JSON output.
func (r *Record) Map() map[string]any {
	fields := make([]map[string]any, 0, len(r.ControlFields)+len(r.DataFields))
	for _, f := range r.ControlFields {
		fields = append(fields, map[string]any{f.Tag: f.Value})
	}
	for _, f := range r.DataFields {
		subs := make([]map[string]string, 0, len(f.Subfields))
		for _, s := range f.Subfields {
			subs = append(subs, map[string]string{string(s.Code): s.Value})
		}
		fields = append(fields, map[string]any{f.Tag: map[string]any{
			"ind1":      string(f.Ind1),
			"ind2":      string(f.Ind2),
			"subfields": subs,
		}})
	}
	return map[string]any{
		"leader": r.Leader,
		"fields": fields,
	}
}

// String renders a human-readable representation of the record.
func (r *Record) String() string {
	data, err := json.MarshalIndent(r.Map(), "", "  ")
	if err != nil {
		return fmt.Sprintf("record %s (render error: %v)", r.Identifier(), err)
	}
	return string(data)
}
