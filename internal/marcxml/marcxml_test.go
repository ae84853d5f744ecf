package marcxml

import (
	"io"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
)

const collection = `<?xml version="1.0" encoding="UTF-8"?>
<collection xmlns="http://www.loc.gov/MARC21/slim">
  <record>
    <leader>00139nam  2200073 a 4500</leader>
    <controlfield tag="001">ocm123</controlfield>
    <datafield tag="245" ind1="1" ind2="0">
      <subfield code="a">A title</subfield>
      <subfield code="b">a subtitle</subfield>
    </datafield>
    <datafield tag="650" ind1=" " ind2="0">
      <subfield code="a">Cataloging</subfield>
    </datafield>
  </record>
  <record>
    <controlfield tag="001">ocm456</controlfield>
  </record>
</collection>
`

func TestReadCollection(t *testing.T) {
	r := NewReader(strings.NewReader(collection))

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec.Leader != "00139nam  2200073 a 4500" {
		t.Fatalf("leader mismatch: %q", rec.Leader)
	}
	if len(rec.ControlFields) != 1 || rec.ControlFields[0].Value != "ocm123" {
		t.Fatalf("control fields mismatch: %v", rec.ControlFields)
	}
	if len(rec.DataFields) != 2 {
		t.Fatalf("expected 2 data fields, got %d", len(rec.DataFields))
	}
	df := rec.DataFields[0]
	if df.Tag != "245" || df.Ind1 != '1' || df.Ind2 != '0' {
		t.Fatalf("245 header mismatch: %+v", df)
	}
	if len(df.Subfields) != 2 || df.Subfields[0].Code != 'a' || df.Subfields[0].Value != "A title" {
		t.Fatalf("245 subfields mismatch: %v", df.Subfields)
	}

	rec, err = r.Next()
	if err != nil {
		t.Fatalf("second Next: %v", err)
	}
	if rec.ControlFields[0].Value != "ocm456" {
		t.Fatalf("second record mismatch: %v", rec.ControlFields)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestBareRecordWithPrefix(t *testing.T) {
	doc := `<marc:record xmlns:marc="http://www.loc.gov/MARC21/slim">
		<marc:controlfield tag="001">x1</marc:controlfield>
	</marc:record>`
	r := NewReader(strings.NewReader(doc))
	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(rec.ControlFields) != 1 || rec.ControlFields[0].Value != "x1" {
		t.Fatalf("record mismatch: %v", rec.ControlFields)
	}
}

func TestMissingIndicatorsDefaultToBlank(t *testing.T) {
	doc := `<record><datafield tag="100"><subfield code="a">Name</subfield></datafield></record>`
	rec, err := NewReader(strings.NewReader(doc)).Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	df := rec.DataFields[0]
	if df.Ind1 != ' ' || df.Ind2 != ' ' {
		t.Fatalf("indicators not defaulted: %q %q", df.Ind1, df.Ind2)
	}
}

func TestUnterminatedRecordIsFatal(t *testing.T) {
	doc := `<collection><record><controlfield tag="001">x</controlfield>`
	r := NewReader(strings.NewReader(doc))
	if _, err := r.Next(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestMismatchedTagsAreFatal(t *testing.T) {
	doc := `<collection><record><controlfield tag="001">x</datafield></record></collection>`
	r := NewReader(strings.NewReader(doc))
	if _, err := r.Next(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestMissingAttributesAreFatal(t *testing.T) {
	cases := map[string]string{
		"controlfield tag": `<record><controlfield>x</controlfield></record>`,
		"datafield tag":    `<record><datafield ind1=" "><subfield code="a">x</subfield></datafield></record>`,
		"subfield code":    `<record><datafield tag="100"><subfield>x</subfield></datafield></record>`,
	}
	for name, doc := range cases {
		if _, err := NewReader(strings.NewReader(doc)).Next(); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed, got %v", name, err)
		}
	}
}

func TestUnknownElementsSkipped(t *testing.T) {
	doc := `<collection>
		<extra><nested/></extra>
		<record>
			<custom>ignored</custom>
			<controlfield tag="001">x1</controlfield>
		</record>
	</collection>`
	rec, err := NewReader(strings.NewReader(doc)).Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(rec.ControlFields) != 1 {
		t.Fatalf("control fields mismatch: %v", rec.ControlFields)
	}
}

func TestEmptyDocument(t *testing.T) {
	if _, err := NewReader(strings.NewReader(`<collection/>`)).Next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}
