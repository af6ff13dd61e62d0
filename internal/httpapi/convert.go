package httpapi

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/service"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

// ── Distance ─────────────────────────────────────────────────────────────────

// decodeRawSample reads an IEEE-754 little-endian float64.
func decodeRawSample(b []byte) (float64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("%w: want 8 bytes, got %d", service.ErrMalformedSample, len(b))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// decodeProtoSample reads a google.protobuf.DoubleValue. Field 1 must be
// present on the wire as a fixed64; an empty body is rejected because it
// carries no distance. Senders reporting 0.0 must encode the field
// explicitly or use the raw form.
func decodeProtoSample(b []byte) (float64, error) {
	var seen bool
	for rest := b; len(rest) > 0; {
		num, typ, n := protowire.ConsumeTag(rest)
		if n < 0 {
			return 0, fmt.Errorf("%w: %v", service.ErrMalformedSample, protowire.ParseError(n))
		}
		rest = rest[n:]
		if num != 1 || typ != protowire.Fixed64Type {
			return 0, fmt.Errorf("%w: unexpected field %d (wire type %d)", service.ErrMalformedSample, num, typ)
		}
		_, n = protowire.ConsumeFixed64(rest)
		if n < 0 {
			return 0, fmt.Errorf("%w: %v", service.ErrMalformedSample, protowire.ParseError(n))
		}
		rest = rest[n:]
		seen = true
	}
	if !seen {
		return 0, fmt.Errorf("%w: no distance field", service.ErrMalformedSample)
	}

	var v wrapperspb.DoubleValue
	if err := proto.Unmarshal(b, &v); err != nil {
		return 0, fmt.Errorf("%w: %v", service.ErrMalformedSample, err)
	}
	if len(v.ProtoReflect().GetUnknown()) > 0 {
		return 0, fmt.Errorf("%w: unknown fields", service.ErrMalformedSample)
	}
	return v.GetValue(), nil
}

// ── Status ───────────────────────────────────────────────────────────────────

// snapshotToProto renders the snapshot as a Struct with the same field
// names as the JSON body.
func snapshotToProto(s types.StatusSnapshot) (*structpb.Struct, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
