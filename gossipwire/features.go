package gossipwire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// FeatureBit represents a feature that can be enabled in either a local or
// global feature vector at a specific bit position. Feature bits follow the
// "it's OK to be odd" rule, in which odd feature bits signal optional
// support, while even feature bits signal that the feature is required for
// the connection to proceed.
type FeatureBit uint16

const (
	// DataLossProtectRequired is a feature bit that indicates that a peer
	// must accept commitment secrets when reestablishing channels.
	DataLossProtectRequired FeatureBit = 0

	// DataLossProtectOptional is the optional counterpart of
	// DataLossProtectRequired.
	DataLossProtectOptional FeatureBit = 1

	// GossipQueriesRequired is a feature bit signaling that the
	// range-query based gossip protocol must be used.
	GossipQueriesRequired FeatureBit = 6

	// GossipQueriesOptional is the optional counterpart of
	// GossipQueriesRequired.
	GossipQueriesOptional FeatureBit = 7

	// TLVOnionPayloadRequired is a feature bit that indicates a node must
	// receive onion payloads in the TLV format.
	TLVOnionPayloadRequired FeatureBit = 8

	// TLVOnionPayloadOptional is the optional counterpart of
	// TLVOnionPayloadRequired.
	TLVOnionPayloadOptional FeatureBit = 9

	// StaticRemoteKeyRequired is a feature bit signaling that commitment
	// outputs must pay directly to the remote key.
	StaticRemoteKeyRequired FeatureBit = 12

	// StaticRemoteKeyOptional is the optional counterpart of
	// StaticRemoteKeyRequired.
	StaticRemoteKeyOptional FeatureBit = 13

	// maxKnownFeature is the highest feature bit this package binds any
	// meaning to. Required bits above this value cause a decode failure.
	maxKnownFeature = StaticRemoteKeyOptional
)

// RawFeatureVector stores a set of feature bits as defined in BOLT-09. The
// vector carries no meaning by itself beyond which bit positions are set.
// Feature vectors serialize to the variable length byte representation
// transmitted in gossip messages, prefixed with a 16-bit length.
type RawFeatureVector struct {
	features map[FeatureBit]bool
}

// NewRawFeatureVector creates a feature vector with all of the feature bits
// given as arguments enabled.
func NewRawFeatureVector(bits ...FeatureBit) *RawFeatureVector {
	fv := &RawFeatureVector{features: make(map[FeatureBit]bool)}
	for _, bit := range bits {
		fv.Set(bit)
	}

	return fv
}

// IsSet returns whether a particular feature bit is enabled in the vector.
func (fv *RawFeatureVector) IsSet(feature FeatureBit) bool {
	if fv == nil {
		return false
	}

	return fv.features[feature]
}

// Set marks a feature as enabled in the vector.
func (fv *RawFeatureVector) Set(feature FeatureBit) {
	fv.features[feature] = true
}

// SerializeSize returns the number of bytes needed to represent the feature
// vector in byte format.
func (fv *RawFeatureVector) SerializeSize() int {
	// We calculate byte-length via the largest bit index.
	max := -1
	if fv != nil {
		for feature := range fv.features {
			if int(feature) > max {
				max = int(feature)
			}
		}
	}
	if max == -1 {
		return 0
	}

	return max/8 + 1
}

// UnknownRequiredFeatures returns a list of all the unknown feature bits
// which are set and even. According to BOLT-01 a node should fail a
// connection or discard a message advertising required features it does not
// understand.
func (fv *RawFeatureVector) UnknownRequiredFeatures() []FeatureBit {
	var unknown []FeatureBit
	if fv == nil {
		return unknown
	}

	for feature := range fv.features {
		if feature%2 == 0 && feature > maxKnownFeature {
			unknown = append(unknown, feature)
		}
	}

	return unknown
}

// Encode writes the feature vector in its byte representation. Every feature
// is encoded as a bit, and the bit vector is serialized using the least
// number of bytes. Since the bit vector length is variable, the first two
// bytes of the serialization represent the length.
func (fv *RawFeatureVector) Encode(w io.Writer) error {
	length := fv.SerializeSize()

	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(length))
	if _, err := w.Write(l[:]); err != nil {
		return err
	}

	data := make([]byte, length)
	if fv != nil {
		for feature := range fv.features {
			byteIndex := int(feature) / 8
			bitIndex := uint(feature) % 8
			data[length-byteIndex-1] |= 1 << bitIndex
		}
	}

	_, err := w.Write(data)
	return err
}

// Decode reads the feature vector from its byte representation and then
// verifies that no unknown required bits are set. An unknown required bit is
// reported as ErrUnknownRequiredFeature.
func (fv *RawFeatureVector) Decode(r io.Reader) error {
	var l [2]byte
	if _, err := io.ReadFull(r, l[:]); err != nil {
		return err
	}
	length := binary.BigEndian.Uint16(l[:])

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return err
	}

	fv.features = make(map[FeatureBit]bool)
	for i := 0; i < int(length)*8; i++ {
		byteIndex := i / 8
		bitIndex := uint(i) % 8
		if (data[int(length)-byteIndex-1]>>bitIndex)&1 == 1 {
			fv.Set(FeatureBit(i))
		}
	}

	if unknown := fv.UnknownRequiredFeatures(); len(unknown) > 0 {
		return fmt.Errorf("%w: %v", ErrUnknownRequiredFeature,
			unknown)
	}

	return nil
}
