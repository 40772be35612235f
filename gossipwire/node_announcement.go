package gossipwire

import (
	"bytes"
	"encoding/binary"
	"image/color"
	"io"
	"net"
)

// NodeAnnouncement is the unsigned body of the message used to announce the
// presence of a node and the metadata needed to connect to it. The signature
// is stripped, the harness replays announcements directly into a routing
// view and never verifies ownership.
type NodeAnnouncement struct {
	// Features is the list of protocol features this node supports.
	Features *RawFeatureVector

	// Timestamp allows ordering in the case of multiple announcements.
	Timestamp uint32

	// NodeID is a public key which is used as node identification.
	NodeID NodeID

	// RGBColor is used to customize the node's appearance in maps and
	// graphs.
	RGBColor color.RGBA

	// Alias is used to customize the node's appearance in maps and
	// graphs.
	Alias NodeAlias

	// Addresses are the advertised network locations of the node.
	Addresses []net.Addr
}

// A compile time check to ensure NodeAnnouncement implements the Message
// interface.
var _ Message = (*NodeAnnouncement)(nil)

// Decode deserializes a serialized NodeAnnouncement stored in the passed
// io.Reader observing the specified protocol version.
//
// This is part of the Message interface.
func (a *NodeAnnouncement) Decode(r io.Reader, _ uint32) error {
	a.Features = &RawFeatureVector{}
	if err := a.Features.Decode(r); err != nil {
		return err
	}

	var fixed [72]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return err
	}
	a.Timestamp = binary.BigEndian.Uint32(fixed[0:4])
	copy(a.NodeID[:], fixed[4:37])
	a.RGBColor = color.RGBA{R: fixed[37], G: fixed[38], B: fixed[39]}
	copy(a.Alias[:], fixed[40:72])

	if err := validateNodeID(a.NodeID); err != nil {
		return err
	}

	var l [2]byte
	if _, err := io.ReadFull(r, l[:]); err != nil {
		return err
	}
	addrBytes := make([]byte, binary.BigEndian.Uint16(l[:]))
	if _, err := io.ReadFull(r, addrBytes); err != nil {
		return err
	}

	addrs, err := parseAddresses(addrBytes)
	if err != nil {
		return err
	}
	a.Addresses = addrs

	return nil
}

// Encode serializes the target NodeAnnouncement into the passed buffer
// observing the protocol version specified.
//
// This is part of the Message interface.
func (a *NodeAnnouncement) Encode(w *bytes.Buffer, _ uint32) error {
	if err := a.Features.Encode(w); err != nil {
		return err
	}

	var ts [4]byte
	binary.BigEndian.PutUint32(ts[:], a.Timestamp)
	w.Write(ts[:])
	w.Write(a.NodeID[:])
	w.Write([]byte{a.RGBColor.R, a.RGBColor.G, a.RGBColor.B})
	w.Write(a.Alias[:])

	addrBytes, err := encodeAddresses(a.Addresses)
	if err != nil {
		return err
	}

	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(addrBytes)))
	w.Write(l[:])
	w.Write(addrBytes)

	return nil
}
