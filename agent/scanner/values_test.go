package scanner

import (
	"context"
	"testing"

	"github.com/gosnmp/gosnmp"
)

func TestPDUString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		pdu    gosnmp.SnmpPDU
		want   string
		wantOK bool
	}{
		{"octet string", gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte("Black Toner")}, "Black Toner", true},
		{"nul padded", gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte("E7X012345\x00\x00")}, "E7X012345", true},
		{"latin-1", gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte{'B', 'a', 'n', 'd', 'e', 'j', 'a', 0xe9}}, "Bandejaé", true},
		{"integer", gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: 3}, "3", true},
		{"negative integer", gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: -2}, "-2", true},
		{"counter32", gosnmp.SnmpPDU{Type: gosnmp.Counter32, Value: uint(123456)}, "123456", true},
		{"counter64", gosnmp.SnmpPDU{Type: gosnmp.Counter64, Value: uint64(1) << 40}, "1099511627776", true},
		{"oid value", gosnmp.SnmpPDU{Type: gosnmp.ObjectIdentifier, Value: ".1.3.6.1.4.1.367"}, "1.3.6.1.4.1.367", true},
		{"noSuchObject", gosnmp.SnmpPDU{Type: gosnmp.NoSuchObject}, "", false},
		{"noSuchInstance", gosnmp.SnmpPDU{Type: gosnmp.NoSuchInstance}, "", false},
		{"endOfMibView", gosnmp.SnmpPDU{Type: gosnmp.EndOfMibView}, "", false},
		{"null", gosnmp.SnmpPDU{Type: gosnmp.Null}, "", false},
	}

	for _, tt := range tests {
		got, ok := PDUString(tt.pdu)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("%s: PDUString = (%q, %v), want (%q, %v)", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestResolveTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		wantHost string
		wantPort uint16
		wantErr  bool
	}{
		{"192.168.0.10", "192.168.0.10", 0, false},
		{" 10.1.1.1 ", "10.1.1.1", 0, false},
		{"10.1.1.1:1161", "10.1.1.1", 1161, false},
		{"[fe80::1]:161", "fe80::1", 161, false},
		{"10.1.1.1:notaport", "", 0, true},
		{"", "", 0, true},
	}
	for _, tt := range tests {
		host, port, err := resolveTarget(context.Background(), tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("resolveTarget(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if host != tt.wantHost || port != tt.wantPort {
			t.Errorf("resolveTarget(%q) = (%q, %d), want (%q, %d)", tt.in, host, port, tt.wantHost, tt.wantPort)
		}
	}
}

func TestVersionName(t *testing.T) {
	t.Parallel()

	if VersionName(gosnmp.Version2c) != "v2c" || VersionName(gosnmp.Version1) != "v1" {
		t.Errorf("unexpected version names %q %q", VersionName(gosnmp.Version2c), VersionName(gosnmp.Version1))
	}
}
