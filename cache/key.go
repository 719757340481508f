// Package cache memoizes compiled predicates under structural criteria
// keys. Two criteria that parse, build or remap into the same tree share a
// key and therefore a compilation, regardless of input formatting.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"

	"golang.org/x/text/unicode/norm"

	"github.com/siftgo/sift/filter"
)

// Domain prefix for criteria keys. The version suffix leaves room to change
// the canonical form without colliding with old keys.
const domainCriteria = "sift/criteria/v1"

// Key computes the structural hash of a criteria set over record type t.
// The tree is serialized canonically: fixed key order, NFC-normalized
// strings, no HTML escaping, so the hash depends only on structure and
// values, never on map iteration or input spelling.
func Key(t reflect.Type, filters []filter.Node, sorts []filter.Sort) string {
	var buf bytes.Buffer
	buf.WriteString(`{"filters":[`)
	for i, n := range filters {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeNode(&buf, n)
	}
	buf.WriteString(`],"record":`)
	writeString(&buf, typeName(t))
	buf.WriteString(`,"sorts":[`)
	for i, s := range sorts {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`{"column":`)
		writeString(&buf, s.Column.String())
		buf.WriteString(`,"direction":`)
		writeString(&buf, string(s.Direction))
		buf.WriteByte('}')
	}
	buf.WriteString(`]}`)

	return hashWithDomain(domainCriteria, buf.Bytes())
}

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain + 0x00 + data). The null byte keeps the domain/data
// boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func typeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// writeNode serializes a node with its keys in fixed sorted order.
func writeNode(buf *bytes.Buffer, n filter.Node) {
	switch node := n.(type) {
	case *filter.Leaf:
		buf.WriteString(`{"column":`)
		writeString(buf, node.Column.String())
		buf.WriteString(`,"kind":"leaf","op":`)
		writeString(buf, string(node.Op))
		buf.WriteString(`,"value":`)
		writeString(buf, node.RawValue)
		buf.WriteByte('}')
	case *filter.Composite:
		buf.WriteString(`{"children":[`)
		for i, child := range node.Children {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeNode(buf, child)
		}
		buf.WriteString(`],"kind":`)
		writeString(buf, string(node.Op))
		if len(node.Quantified) > 0 {
			buf.WriteString(`,"quantified":`)
			writeString(buf, node.Quantified.String())
		}
		buf.WriteByte('}')
	default:
		buf.WriteString(fmt.Sprintf(`{"kind":"unknown","type":%q}`, n))
	}
}

// writeString encodes a JSON string NFC-normalized and without HTML
// escaping, so "<", ">" and "&" hash the same bytes they were typed as.
func writeString(buf *bytes.Buffer, s string) {
	normalized := norm.NFC.String(s)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		// Strings of a parsed tree always encode; this is unreachable.
		panic(err)
	}
	// The encoder appends a newline; strip it to keep the form compact.
	buf.Truncate(buf.Len() - 1)
}
