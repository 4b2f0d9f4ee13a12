package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"footballetl/internal/frame"
)

// columnsMetaKey holds the frame's real column names and kinds in the file's
// key/value metadata. Parquet field names are restricted to what can become a
// Go identifier, feed columns like "b365>2.5" are not.
const columnsMetaKey = "footballetl.columns"

// parallelism passed to the parquet-go writer and reader.
const parallelism = 4

var epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

var safeName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

type columnMeta struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type schemaNode struct {
	Tag    string       `json:"Tag"`
	Fields []schemaNode `json:"Fields,omitempty"`
}

// fieldNames returns one parquet field name per column: the column name when
// it is a safe identifier, col_<i> otherwise.
func fieldNames(cols []frame.Column) []string {
	out := make([]string, len(cols))
	used := make(map[string]struct{}, len(cols))
	for i, c := range cols {
		n := c.Name
		if !safeName.MatchString(n) {
			n = fmt.Sprintf("col_%d", i)
		}
		if _, dup := used[n]; dup {
			n = fmt.Sprintf("col_%d", i)
		}
		used[n] = struct{}{}
		out[i] = n
	}
	return out
}

func inName(field string) string {
	return strings.ToUpper(field[:1]) + field[1:]
}

func physicalTag(k frame.Kind) string {
	switch k {
	case frame.KindInt:
		return "type=INT64"
	case frame.KindFloat:
		return "type=DOUBLE"
	case frame.KindDate:
		return "type=INT32, convertedtype=DATE"
	default:
		return "type=BYTE_ARRAY, convertedtype=UTF8"
	}
}

func goType(k frame.Kind) reflect.Type {
	switch k {
	case frame.KindInt:
		return reflect.TypeOf(int64(0))
	case frame.KindFloat:
		return reflect.TypeOf(float64(0))
	case frame.KindDate:
		return reflect.TypeOf(int32(0))
	default:
		return reflect.TypeOf("")
	}
}

// schemaFor builds the parquet-go JSON schema and the matching row struct.
func schemaFor(cols []frame.Column) (string, reflect.Type, error) {
	names := fieldNames(cols)
	root := schemaNode{Tag: "name=parquet_go_root, repetitiontype=REQUIRED"}
	fields := make([]reflect.StructField, len(cols))
	for i, c := range cols {
		tag := fmt.Sprintf("name=%s, inname=%s, %s, repetitiontype=REQUIRED", names[i], inName(names[i]), physicalTag(c.Kind))
		root.Fields = append(root.Fields, schemaNode{Tag: tag})
		fields[i] = reflect.StructField{
			Name: inName(names[i]),
			Type: goType(c.Kind),
			Tag:  reflect.StructTag(fmt.Sprintf(`parquet:"%s"`, tag)),
		}
	}
	b, err := json.Marshal(root)
	if err != nil {
		return "", nil, err
	}
	return string(b), reflect.StructOf(fields), nil
}

func toDays(t time.Time) int32 {
	return int32(t.UTC().Sub(epoch).Hours() / 24)
}

func fromDays(d int32) time.Time {
	return epoch.AddDate(0, 0, int(d))
}

// Encode writes f to path as SNAPPY-compressed Parquet.
func Encode(f *frame.Frame, path string) (err error) {
	if f.Len() == 0 {
		return ErrEmptyFrame
	}
	schemaJSON, rowType, err := schemaFor(f.Columns)
	if err != nil {
		return fmt.Errorf("archive: build schema: %w", err)
	}
	meta := make([]columnMeta, len(f.Columns))
	for i, c := range f.Columns {
		meta[i] = columnMeta{Name: c.Name, Kind: c.Kind.String()}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("archive: encode column metadata: %w", err)
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", path, err)
	}
	defer func() {
		if cerr := fw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("archive: close %s: %w", path, cerr)
		}
	}()

	pw, err := writer.NewParquetWriter(fw, schemaJSON, parallelism)
	if err != nil {
		return fmt.Errorf("archive: create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for r, row := range f.Rows {
		v := reflect.New(rowType).Elem()
		for i, cell := range row {
			if t, ok := cell.(time.Time); ok {
				v.Field(i).Set(reflect.ValueOf(toDays(t)))
				continue
			}
			v.Field(i).Set(reflect.ValueOf(cell))
		}
		if err := pw.Write(v.Interface()); err != nil {
			return fmt.Errorf("archive: write row %d: %w", r, err)
		}
	}

	metaValue := string(metaJSON)
	pw.Footer.KeyValueMetadata = append(pw.Footer.KeyValueMetadata, &parquet.KeyValue{
		Key:   columnsMetaKey,
		Value: &metaValue,
	})
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("archive: finalize %s: %w", path, err)
	}
	return nil
}

// Decode reads a file written by Encode back into a Frame.
func Decode(path string) (*frame.Frame, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, nil, parallelism)
	if err != nil {
		return nil, fmt.Errorf("archive: read footer of %s: %w", path, err)
	}
	defer pr.ReadStop()

	cols, err := columnsFromFooter(pr.Footer)
	if err != nil {
		return nil, fmt.Errorf("archive: %s: %w", path, err)
	}

	n := int(pr.GetNumRows())
	rows := make([][]any, 0, n)
	if n > 0 {
		recs, err := pr.ReadByNumber(n)
		if err != nil {
			return nil, fmt.Errorf("archive: read rows of %s: %w", path, err)
		}
		for _, rec := range recs {
			v := reflect.ValueOf(rec)
			if v.Kind() == reflect.Ptr {
				v = v.Elem()
			}
			if v.NumField() != len(cols) {
				return nil, fmt.Errorf("archive: %s: row has %d fields, want %d", path, v.NumField(), len(cols))
			}
			row := make([]any, len(cols))
			for i, c := range cols {
				row[i] = cellFrom(v.Field(i), c.Kind)
			}
			rows = append(rows, row)
		}
	}
	return frame.New(cols, rows)
}

func columnsFromFooter(meta *parquet.FileMetaData) ([]frame.Column, error) {
	for _, kv := range meta.GetKeyValueMetadata() {
		if kv.GetKey() != columnsMetaKey {
			continue
		}
		var cm []columnMeta
		if err := json.Unmarshal([]byte(kv.GetValue()), &cm); err != nil {
			return nil, fmt.Errorf("decode column metadata: %w", err)
		}
		cols := make([]frame.Column, len(cm))
		for i, c := range cm {
			k, err := frame.ParseKind(c.Kind)
			if err != nil {
				return nil, err
			}
			cols[i] = frame.Column{Name: c.Name, Kind: k}
		}
		return cols, nil
	}
	return nil, errors.New("missing column metadata")
}

func cellFrom(v reflect.Value, k frame.Kind) any {
	switch k {
	case frame.KindInt:
		return v.Int()
	case frame.KindFloat:
		return v.Float()
	case frame.KindDate:
		return fromDays(int32(v.Int()))
	default:
		return v.String()
	}
}
