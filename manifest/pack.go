package manifest

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// cborEncMode uses canonical encoding so identical records always
// serialize to identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("manifest: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// PackRecord is the build metadata the packer appends to a container as
// its epilogue. The container core treats the epilogue as opaque bytes;
// only the tools decode it.
type PackRecord struct {
	BuildID     string `cbor:"1,keyasint"`
	ToolVersion string `cbor:"2,keyasint"`
	CreatedAt   int64  `cbor:"3,keyasint"` // Unix seconds
	Note        string `cbor:"4,keyasint,omitempty"`
}

// NewPackRecord creates a record with a fresh build ID and the current time.
func NewPackRecord(toolVersion, note string) PackRecord {
	return PackRecord{
		BuildID:     uuid.NewString(),
		ToolVersion: toolVersion,
		CreatedAt:   time.Now().Unix(),
		Note:        note,
	}
}

// EncodePackRecord serializes a PackRecord to canonical CBOR bytes.
func EncodePackRecord(r PackRecord) ([]byte, error) {
	return cborEncMode.Marshal(&r)
}

// DecodePackRecord deserializes a PackRecord from epilogue bytes.
func DecodePackRecord(data []byte) (PackRecord, error) {
	var r PackRecord
	if err := cbor.Unmarshal(data, &r); err != nil {
		return PackRecord{}, fmt.Errorf("manifest: decode pack record: %w", err)
	}
	if _, err := uuid.Parse(r.BuildID); err != nil {
		return PackRecord{}, fmt.Errorf("manifest: pack record has invalid build ID %q: %w", r.BuildID, err)
	}
	return r, nil
}

// Summary is a tooling-level digest of one container, suitable for build
// inventories and cache keys.
type Summary struct {
	Version        uint32 `cbor:"1,keyasint"`
	SourceHash     string `cbor:"2,keyasint"` // hex
	FunctionCount  uint32 `cbor:"3,keyasint"`
	StringCount    uint32 `cbor:"4,keyasint"`
	RegExpCount    uint32 `cbor:"5,keyasint"`
	CJSModuleCount uint32 `cbor:"6,keyasint"`
	FileLength     uint32 `cbor:"7,keyasint"`
	Options        uint8  `cbor:"8,keyasint"`
}

// EncodeSummary serializes a Summary to canonical CBOR bytes.
func EncodeSummary(s Summary) ([]byte, error) {
	return cborEncMode.Marshal(&s)
}

// DecodeSummary deserializes a Summary.
func DecodeSummary(data []byte) (Summary, error) {
	var s Summary
	if err := cbor.Unmarshal(data, &s); err != nil {
		return Summary{}, fmt.Errorf("manifest: decode summary: %w", err)
	}
	return s, nil
}

// HashHex formats a source hash the way summaries store it.
func HashHex(hash []byte) string {
	return hex.EncodeToString(hash)
}
