package corpus

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/constructiq/permitsearch/internal/domain/permit"
)

// Reserved hash field names. Registry fields use their canonical names, so
// reserved fields carry the dunder prefix to stay out of the namespace.
const (
	fieldRecord        = "__record"
	fieldContent       = "__content"
	fieldVector        = "__vector"
	fieldSchemaVersion = "__schema_version"
)

// flattenRecord builds the hash representation of a record: the canonical
// JSON snapshot, the embedding blob, the text block the embedding was
// computed from, and one flat field per registry entry for FT filtering.
func flattenRecord(rec *permit.Record, reg permit.FieldRegistry, vector []float32, content string) (map[string]string, error) {
	snapshot, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record %s: %w", rec.RecordID, err)
	}

	fields := map[string]string{
		fieldRecord:        string(snapshot),
		fieldContent:       content,
		fieldVector:        encodeVector(vector),
		fieldSchemaVersion: strconv.Itoa(rec.SchemaVersion),
	}

	for _, spec := range reg.Fields() {
		switch spec.Kind {
		case permit.String, permit.Bool:
			if v, ok := reg.TagValue(spec, rec); ok {
				fields[spec.Name] = v
			}
		case permit.Number, permit.Date:
			if v, ok := reg.NumericValue(spec, rec); ok {
				fields[spec.Name] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
	}
	return fields, nil
}

// parseRecord restores a record from its hash fields via the canonical JSON
// snapshot.
func parseRecord(fields map[string]string) (*permit.Record, error) {
	snapshot, ok := fields[fieldRecord]
	if !ok || snapshot == "" {
		return nil, fmt.Errorf("hash has no %s field", fieldRecord)
	}
	var rec permit.Record
	if err := json.Unmarshal([]byte(snapshot), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

// encodeVector packs float32s little-endian, the layout FT.SEARCH expects
// for FLOAT32 vector fields.
func encodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
