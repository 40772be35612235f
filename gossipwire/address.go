package gossipwire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
)

// addressType specifies the network protocol and version that should be used
// when connecting to a node at a particular address.
type addressType uint8

const (
	// noAddr denotes a blank address. An address of this type indicates
	// that a node doesn't have any advertised addresses.
	noAddr addressType = 0

	// tcp4Addr denotes an IPv4 TCP address.
	tcp4Addr addressType = 1

	// tcp6Addr denotes an IPv6 TCP address.
	tcp6Addr addressType = 2

	// v2OnionAddr denotes a version 2 Tor onion service address.
	v2OnionAddr addressType = 3

	// v3OnionAddr denotes a version 3 Tor (prop224) onion service
	// address.
	v3OnionAddr addressType = 4
)

// addrLen returns the number of bytes the payload of the given descriptor
// occupies, the trailing 2-byte port included.
func (a addressType) addrLen() int {
	switch a {
	case noAddr:
		return 0
	case tcp4Addr:
		return 4 + 2
	case tcp6Addr:
		return 16 + 2
	case v2OnionAddr:
		return 10 + 2
	case v3OnionAddr:
		return 35 + 2
	default:
		return -1
	}
}

// parseAddresses interprets the announced address bytes of a node
// announcement. IP addresses are surfaced as net.TCPAddr values. Onion
// addresses are length-validated and skipped, the harness never dials
// anything. A descriptor from a future address version aborts the parse
// with ErrUnknownVersion, a descriptor whose payload runs past the declared
// byte count aborts it with ErrBadLengthDescriptor.
func parseAddresses(addrBytes []byte) ([]net.Addr, error) {
	var addrs []net.Addr

	for len(addrBytes) > 0 {
		aType := addressType(addrBytes[0])
		addrBytes = addrBytes[1:]

		if aType == noAddr {
			continue
		}

		payloadLen := aType.addrLen()
		if payloadLen < 0 {
			return nil, fmt.Errorf("%w: address type %d",
				ErrUnknownVersion, aType)
		}
		if len(addrBytes) < payloadLen {
			return nil, fmt.Errorf("%w: %d address bytes left, "+
				"need %d", ErrBadLengthDescriptor,
				len(addrBytes), payloadLen)
		}

		payload := addrBytes[:payloadLen]
		addrBytes = addrBytes[payloadLen:]

		switch aType {
		case tcp4Addr:
			addrs = append(addrs, &net.TCPAddr{
				IP: net.IP(payload[:4]),
				Port: int(binary.BigEndian.Uint16(
					payload[4:],
				)),
			})

		case tcp6Addr:
			addrs = append(addrs, &net.TCPAddr{
				IP: net.IP(payload[:16]),
				Port: int(binary.BigEndian.Uint16(
					payload[16:],
				)),
			})

		case v2OnionAddr, v3OnionAddr:
			// Validated above, not retained.
		}
	}

	return addrs, nil
}

// encodeAddresses serializes the passed addresses back into the announced
// address byte format. Only TCP addresses are supported, matching what
// parseAddresses retains.
func encodeAddresses(addrs []net.Addr) ([]byte, error) {
	var buf bytes.Buffer

	for _, addr := range addrs {
		tcpAddr, ok := addr.(*net.TCPAddr)
		if !ok {
			return nil, fmt.Errorf("cannot encode address of "+
				"type %T", addr)
		}

		var port [2]byte
		binary.BigEndian.PutUint16(port[:], uint16(tcpAddr.Port))

		if ip4 := tcpAddr.IP.To4(); ip4 != nil {
			buf.WriteByte(byte(tcp4Addr))
			buf.Write(ip4)
		} else {
			buf.WriteByte(byte(tcp6Addr))
			buf.Write(tcpAddr.IP.To16())
		}
		buf.Write(port[:])
	}

	return buf.Bytes(), nil
}
