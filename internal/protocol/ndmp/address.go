package ndmp

import (
	"bytes"
	"fmt"
	"io"
	"net"

	"github.com/araujobsd/ndmpd/internal/protocol/ndmpxdr"
)

// TCPEndpoint is one (ip, port) pair. NDMP encodes the address in network
// byte order as a plain uint32; Go's net.IP gives us the dotted form for
// logging.
type TCPEndpoint struct {
	IP   uint32
	Port uint16
}

func (e TCPEndpoint) String() string {
	ip := net.IPv4(byte(e.IP>>24), byte(e.IP>>16), byte(e.IP>>8), byte(e.IP))
	return fmt.Sprintf("%s:%d", ip.String(), e.Port)
}

// Address is the tagged address union. V3 carries exactly one
// TCP endpoint when Kind == AddrTCP; V4 carries a sequence, of which only
// index 0 is honored by this server.
type Address struct {
	Kind     AddressKind
	Local    *struct{}
	Endpoints []TCPEndpoint // V4: one or more; V3 encodes/decodes exactly one
}

// AddressFromTCP builds a single-endpoint TCP Address from a dialed or
// listening net.TCPAddr, as returned by a handler's own listener/conn.
func AddressFromTCP(addr *net.TCPAddr) Address {
	ip4 := addr.IP.To4()
	if ip4 == nil {
		ip4 = net.IPv4zero.To4()
	}
	ipUint := uint32(ip4[0])<<24 | uint32(ip4[1])<<16 | uint32(ip4[2])<<8 | uint32(ip4[3])
	return Address{
		Kind:      AddrTCP,
		Endpoints: []TCPEndpoint{{IP: ipUint, Port: uint16(addr.Port)}},
	}
}

// FirstEndpoint returns the endpoint this server actually uses, or the zero
// value if Kind != AddrTCP or no endpoint was offered. Used to mirror the
// chosen V4 endpoint into the V3-shaped dd_data_addr fields.
func (a Address) FirstEndpoint() (TCPEndpoint, bool) {
	if a.Kind != AddrTCP || len(a.Endpoints) == 0 {
		return TCPEndpoint{}, false
	}
	return a.Endpoints[0], true
}

// EncodeV3 writes the address in the V3 wire shape: {kind} or {kind, ip, port}.
func (a Address) EncodeV3(buf *bytes.Buffer) error {
	if err := ndmpxdr.EncodeUnionDiscriminant(buf, uint32(a.Kind)); err != nil {
		return err
	}
	if a.Kind != AddrTCP {
		return nil
	}
	ep, _ := a.FirstEndpoint()
	if err := ndmpxdr.WriteUint32(buf, ep.IP); err != nil {
		return err
	}
	return ndmpxdr.WriteUint32(buf, uint32(ep.Port))
}

// DecodeAddressV3 reads the V3 address shape.
func DecodeAddressV3(r io.Reader) (Address, error) {
	kind, err := ndmpxdr.DecodeUnionDiscriminant(r)
	if err != nil {
		return Address{}, err
	}
	a := Address{Kind: AddressKind(kind)}
	if a.Kind != AddrTCP {
		return a, nil
	}
	ip, err := ndmpxdr.DecodeUint32(r)
	if err != nil {
		return Address{}, err
	}
	port, err := ndmpxdr.DecodeUint32(r)
	if err != nil {
		return Address{}, err
	}
	a.Endpoints = []TCPEndpoint{{IP: ip, Port: uint16(port)}}
	return a, nil
}

// EncodeV4 writes the address in the V4 wire shape: {kind} or
// {kind, count, [{ip,port}...]}. This server only ever emits count==1.
func (a Address) EncodeV4(buf *bytes.Buffer) error {
	if err := ndmpxdr.EncodeUnionDiscriminant(buf, uint32(a.Kind)); err != nil {
		return err
	}
	if a.Kind != AddrTCP {
		return nil
	}
	eps := a.Endpoints
	if len(eps) == 0 {
		eps = []TCPEndpoint{{}}
	}
	if err := ndmpxdr.WriteUint32(buf, uint32(len(eps))); err != nil {
		return err
	}
	for _, ep := range eps {
		if err := ndmpxdr.WriteUint32(buf, ep.IP); err != nil {
			return err
		}
		if err := ndmpxdr.WriteUint32(buf, uint32(ep.Port)); err != nil {
			return err
		}
	}
	return nil
}

// DecodeAddressV4 reads the V4 address shape. Every endpoint in the list
// is kept in Endpoints; handlers act only on FirstEndpoint.
func DecodeAddressV4(r io.Reader) (Address, error) {
	kind, err := ndmpxdr.DecodeUnionDiscriminant(r)
	if err != nil {
		return Address{}, err
	}
	a := Address{Kind: AddressKind(kind)}
	if a.Kind != AddrTCP {
		return a, nil
	}
	count, err := ndmpxdr.DecodeUint32(r)
	if err != nil {
		return Address{}, err
	}
	eps := make([]TCPEndpoint, 0, count)
	for i := uint32(0); i < count; i++ {
		ip, err := ndmpxdr.DecodeUint32(r)
		if err != nil {
			return Address{}, err
		}
		port, err := ndmpxdr.DecodeUint32(r)
		if err != nil {
			return Address{}, err
		}
		eps = append(eps, TCPEndpoint{IP: ip, Port: uint16(port)})
	}
	a.Endpoints = eps
	return a, nil
}
