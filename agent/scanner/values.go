package scanner

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"printmonitor/common/snmp/oids"

	"github.com/gosnmp/gosnmp"
)

// Variable is one (identifier, value) pair returned by a walk.
type Variable struct {
	OID   string
	Value string
}

// PDUString renders a PDU value as the text a device would show for it.
// ok is false for the exception types (noSuchObject, noSuchInstance,
// endOfMibView) and Null, which carry no data.
func PDUString(pdu gosnmp.SnmpPDU) (string, bool) {
	switch pdu.Type {
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView, gosnmp.Null, gosnmp.UnknownType:
		return "", false
	case gosnmp.OctetString:
		switch v := pdu.Value.(type) {
		case []byte:
			return DecodeOctetString(v), true
		case string:
			return sanitizeString(v), true
		}
		return "", false
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Gauge32, gosnmp.TimeTicks,
		gosnmp.Counter64, gosnmp.Uinteger32:
		if pdu.Value == nil {
			return "", false
		}
		return gosnmp.ToBigInt(pdu.Value).String(), true
	case gosnmp.ObjectIdentifier:
		if s, ok := pdu.Value.(string); ok {
			return oids.Normalize(s), true
		}
		return "", false
	}
	if pdu.Value == nil {
		return "", false
	}
	return fmt.Sprintf("%v", pdu.Value), true
}

// DecodeOctetString converts raw OCTET STRING bytes to text. Invalid UTF-8 is
// read as Latin-1, which is what most printer firmware emits.
func DecodeOctetString(b []byte) string {
	if b == nil {
		return ""
	}
	if utf8.Valid(b) {
		return sanitizeString(string(b))
	}
	runes := make([]rune, 0, len(b))
	for _, by := range b {
		runes = append(runes, rune(by))
	}
	return sanitizeString(string(runes))
}

// sanitizeString drops C0 control characters (except tab, CR, LF), including
// the trailing NULs many devices pad strings with, and trims whitespace.
func sanitizeString(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
