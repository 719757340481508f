package filter

import "encoding/json"

// MarshalJSON renders a leaf with a kind discriminator so mixed trees stay
// distinguishable in serialized form.
func (l *Leaf) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind   string `json:"kind"`
		Column string `json:"column"`
		Op     string `json:"op"`
		Value  string `json:"value"`
	}{Kind: "leaf", Column: l.Column.String(), Op: string(l.Op), Value: l.RawValue})
}

// MarshalJSON renders a composite; the quantified column is omitted for
// and/or nodes.
func (c *Composite) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind     string `json:"kind"`
		Column   string `json:"column,omitempty"`
		Children []Node `json:"children"`
	}{Kind: string(c.Op), Column: c.Quantified.String(), Children: c.Children})
}

// MarshalJSON renders a sort key.
func (s Sort) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Column    string `json:"column"`
		Direction string `json:"direction"`
	}{Column: s.Column.String(), Direction: string(s.Direction)})
}
