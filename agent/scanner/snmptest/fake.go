// Package snmptest provides a scriptable in-memory SNMP device for tests of
// code built on scanner.Session.
package snmptest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"printmonitor/agent/scanner"
	"printmonitor/common/snmp/oids"

	"github.com/gosnmp/gosnmp"
)

const (
	V1  = gosnmp.Version1
	V2c = gosnmp.Version2c
)

// ErrTimeout is what a silenced version returns, mirroring gosnmp's
// "request timeout" error.
var ErrTimeout = errors.New("request timeout (after 0 retries)")

// Call records one request made against the fake.
type Call struct {
	Version   gosnmp.SnmpVersion
	Operation string // "get" or "walk"
	OID       string
}

// Device answers Get and Walk requests from scripted values, independently
// per protocol version. Unscripted scalars answer noSuchObject (v2c) or
// noSuchName (v1); unscripted walks return nothing.
type Device struct {
	mu       sync.Mutex
	gets     map[gosnmp.SnmpVersion]map[string]gosnmp.SnmpPDU
	walks    map[gosnmp.SnmpVersion]map[string][]gosnmp.SnmpPDU
	silent   map[gosnmp.SnmpVersion]bool
	blocking map[gosnmp.SnmpVersion]bool
	openErr  map[gosnmp.SnmpVersion]error
	calls    []Call
	opened   int
	closed   int
}

// NewDevice returns a device that answers nothing.
func NewDevice() *Device {
	return &Device{
		gets:     map[gosnmp.SnmpVersion]map[string]gosnmp.SnmpPDU{},
		walks:    map[gosnmp.SnmpVersion]map[string][]gosnmp.SnmpPDU{},
		silent:   map[gosnmp.SnmpVersion]bool{},
		blocking: map[gosnmp.SnmpVersion]bool{},
		openErr:  map[gosnmp.SnmpVersion]error{},
	}
}

// SetGet scripts a scalar value. Strings become OCTET STRINGs, ints become
// INTEGERs, uints become Counter32; a gosnmp.SnmpPDU is used as given.
func (d *Device) SetGet(v gosnmp.SnmpVersion, oid string, value interface{}) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gets[v] == nil {
		d.gets[v] = map[string]gosnmp.SnmpPDU{}
	}
	oid = oids.Normalize(oid)
	d.gets[v][oid] = toPDU("."+oid, value)
	return d
}

// SetWalk scripts a table column: values become rows root.1.1, root.1.2, ...
// in the given order.
func (d *Device) SetWalk(v gosnmp.SnmpVersion, root string, values ...interface{}) *Device {
	root = oids.Normalize(root)
	pdus := make([]gosnmp.SnmpPDU, 0, len(values))
	for i, val := range values {
		pdus = append(pdus, toPDU(fmt.Sprintf(".%s.1.%d", root, i+1), val))
	}
	return d.SetWalkPDUs(v, root, pdus...)
}

// SetWalkPDUs scripts a walk with explicit PDUs, returned in the given order.
func (d *Device) SetWalkPDUs(v gosnmp.SnmpVersion, root string, pdus ...gosnmp.SnmpPDU) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.walks[v] == nil {
		d.walks[v] = map[string][]gosnmp.SnmpPDU{}
	}
	d.walks[v][oids.Normalize(root)] = pdus
	return d
}

// Silence makes every request on v fail with ErrTimeout.
func (d *Device) Silence(v gosnmp.SnmpVersion) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.silent[v] = true
	return d
}

// Block makes every request on v wait until its context is done.
func (d *Device) Block(v gosnmp.SnmpVersion) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blocking[v] = true
	return d
}

// FailOpen makes the factory refuse to open a client for v.
func (d *Device) FailOpen(v gosnmp.SnmpVersion, err error) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.openErr[v] = err
	return d
}

// Calls returns the requests made so far, in order.
func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Call, len(d.calls))
	copy(out, d.calls)
	return out
}

// Open and Closed report how many clients the factory opened and closed.
func (d *Device) Open() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

func (d *Device) Closed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Factory returns a scanner.ClientFactory backed by this device.
func (d *Device) Factory() scanner.ClientFactory {
	return func(cfg scanner.Config, target string, version gosnmp.SnmpVersion) (scanner.SNMPClient, error) {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.openErr[version]; err != nil {
			return nil, err
		}
		d.opened++
		return &client{dev: d, version: version}, nil
	}
}

// Fleet routes factory calls to a Device per target address.
type Fleet map[string]*Device

// Factory returns a ClientFactory that refuses unknown targets.
func (f Fleet) Factory() scanner.ClientFactory {
	return func(cfg scanner.Config, target string, version gosnmp.SnmpVersion) (scanner.SNMPClient, error) {
		d, ok := f[target]
		if !ok {
			return nil, fmt.Errorf("no route to host %s", target)
		}
		return d.Factory()(cfg, target, version)
	}
}

type client struct {
	dev     *Device
	version gosnmp.SnmpVersion
}

func (c *client) wait(ctx context.Context) error {
	c.dev.mu.Lock()
	silent, blocking := c.dev.silent[c.version], c.dev.blocking[c.version]
	c.dev.mu.Unlock()

	if blocking {
		<-ctx.Done()
		return ctx.Err()
	}
	if silent {
		return ErrTimeout
	}
	return ctx.Err()
}

func (c *client) Get(ctx context.Context, oidList []string) (*gosnmp.SnmpPacket, error) {
	c.dev.mu.Lock()
	for _, oid := range oidList {
		c.dev.calls = append(c.dev.calls, Call{Version: c.version, Operation: "get", OID: oids.Normalize(oid)})
	}
	c.dev.mu.Unlock()

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	pkt := &gosnmp.SnmpPacket{Version: c.version}
	for i, oid := range oidList {
		pdu, ok := c.dev.gets[c.version][oids.Normalize(oid)]
		if !ok {
			if c.version == gosnmp.Version1 {
				pkt.Error = gosnmp.NoSuchName
				pkt.ErrorIndex = uint8(i + 1)
				pdu = gosnmp.SnmpPDU{Name: "." + oids.Normalize(oid), Type: gosnmp.Null}
			} else {
				pdu = gosnmp.SnmpPDU{Name: "." + oids.Normalize(oid), Type: gosnmp.NoSuchObject}
			}
		}
		pkt.Variables = append(pkt.Variables, pdu)
	}
	return pkt, nil
}

func (c *client) Walk(ctx context.Context, root string, walkFn gosnmp.WalkFunc) error {
	c.dev.mu.Lock()
	c.dev.calls = append(c.dev.calls, Call{Version: c.version, Operation: "walk", OID: oids.Normalize(root)})
	pdus := append([]gosnmp.SnmpPDU(nil), c.dev.walks[c.version][oids.Normalize(root)]...)
	c.dev.mu.Unlock()

	if err := c.wait(ctx); err != nil {
		return err
	}
	for _, pdu := range pdus {
		if err := walkFn(pdu); err != nil {
			return err
		}
	}
	return nil
}

func (c *client) Close() error {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	c.dev.closed++
	return nil
}

func toPDU(name string, value interface{}) gosnmp.SnmpPDU {
	switch v := value.(type) {
	case gosnmp.SnmpPDU:
		if v.Name == "" {
			v.Name = name
		}
		return v
	case string:
		return gosnmp.SnmpPDU{Name: name, Type: gosnmp.OctetString, Value: []byte(v)}
	case []byte:
		return gosnmp.SnmpPDU{Name: name, Type: gosnmp.OctetString, Value: v}
	case int:
		return gosnmp.SnmpPDU{Name: name, Type: gosnmp.Integer, Value: v}
	case uint:
		return gosnmp.SnmpPDU{Name: name, Type: gosnmp.Counter32, Value: v}
	case uint32:
		return gosnmp.SnmpPDU{Name: name, Type: gosnmp.Counter32, Value: v}
	case nil:
		return gosnmp.SnmpPDU{Name: name, Type: gosnmp.Null}
	default:
		return gosnmp.SnmpPDU{Name: name, Type: gosnmp.OctetString, Value: []byte(fmt.Sprint(v))}
	}
}
