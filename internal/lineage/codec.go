package lineage

import (
	"encoding/json"
	"errors"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

// ErrVersionMismatch reports a record written with another schema or codec version.
var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRecord(r Record) ([]byte, error) {
	return json.Marshal(r)
}

// DecodeRecord parses a payload written by EncodeRecord and checks its versions.
func DecodeRecord(data []byte) (Record, error) {
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, err
	}
	if err := checkVersion(record); err != nil {
		return Record{}, err
	}
	return record, nil
}

func checkVersion(r Record) error {
	if r.SchemaVersion != CurrentSchemaVersion || r.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
