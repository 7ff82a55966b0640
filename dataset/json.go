package dataset

import (
	"encoding/json"
	"math"
)

// JSON encoding for frames and series. Numeric cells use pointers so that
// missing values (NaN) survive the round trip as null; encoding/json
// rejects NaN outright.

type columnJSON struct {
	Name    string     `json:"name"`
	Numeric bool       `json:"numeric"`
	Floats  []*float64 `json:"floats,omitempty"`
	Strings []string   `json:"strings,omitempty"`
}

type frameJSON struct {
	Columns []columnJSON `json:"columns"`
}

func encodeFloats(vs []float64) []*float64 {
	out := make([]*float64, len(vs))
	for i, v := range vs {
		if math.IsNaN(v) {
			continue
		}
		f := v
		out[i] = &f
	}
	return out
}

func decodeFloats(vs []*float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		if v == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *v
		}
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (f *Frame) MarshalJSON() ([]byte, error) {
	enc := frameJSON{Columns: make([]columnJSON, len(f.cols))}
	for i, c := range f.cols {
		enc.Columns[i] = columnJSON{
			Name:    c.Name,
			Numeric: c.Numeric,
			Floats:  encodeFloats(c.Floats),
			Strings: c.Strings,
		}
	}
	return json.Marshal(enc)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var dec frameJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	cols := make([]*Column, len(dec.Columns))
	for i, c := range dec.Columns {
		cols[i] = &Column{
			Name:    c.Name,
			Numeric: c.Numeric,
			Floats:  decodeFloats(c.Floats),
			Strings: c.Strings,
		}
	}
	built, err := NewFrame(cols)
	if err != nil {
		return err
	}
	*f = *built
	return nil
}

type seriesJSON struct {
	Name    string     `json:"name"`
	Index   []string   `json:"index,omitempty"`
	Numeric bool       `json:"numeric"`
	Floats  []*float64 `json:"floats,omitempty"`
	Strings []string   `json:"strings,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s *Series) MarshalJSON() ([]byte, error) {
	return json.Marshal(seriesJSON{
		Name:    s.Name,
		Index:   s.Index,
		Numeric: s.Numeric,
		Floats:  encodeFloats(s.Floats),
		Strings: s.Strings,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Series) UnmarshalJSON(data []byte) error {
	var dec seriesJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	*s = Series{
		Name:    dec.Name,
		Index:   dec.Index,
		Numeric: dec.Numeric,
		Floats:  decodeFloats(dec.Floats),
		Strings: dec.Strings,
	}
	return nil
}
