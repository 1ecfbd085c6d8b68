package store

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/nvandessel/vitaldyn/internal/models"
)

// arrowBatchSize caps the rows per record batch.
const arrowBatchSize = 64 * 1024

// EventSchema is the Arrow schema of an exported event log.
var EventSchema = arrow.NewSchema([]arrow.Field{
	{Name: "day", Type: arrow.PrimitiveTypes.Int32},
	{Name: "type", Type: arrow.BinaryTypes.String},
	{Name: "individual_id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "mother_id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "sex", Type: arrow.BinaryTypes.String},
	{Name: "age_days", Type: arrow.PrimitiveTypes.Int32},
	{Name: "weight", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// WriteArrow writes events as an Arrow IPC stream. The stream format needs
// no seeking, so w may be stdout, a pipe or a file.
func WriteArrow(w io.Writer, events []models.Event) error {
	mem := memory.NewGoAllocator()

	sw := ipc.NewWriter(w, ipc.WithSchema(EventSchema), ipc.WithAllocator(mem))

	b := array.NewRecordBuilder(mem, EventSchema)
	defer b.Release()

	for start := 0; start < len(events); start += arrowBatchSize {
		end := min(start+arrowBatchSize, len(events))
		for _, e := range events[start:end] {
			b.Field(0).(*array.Int32Builder).Append(int32(e.Day))
			b.Field(1).(*array.StringBuilder).Append(string(e.Type))
			b.Field(2).(*array.Int64Builder).Append(int64(e.IndividualID))
			b.Field(3).(*array.Int64Builder).Append(int64(e.MotherID))
			b.Field(4).(*array.StringBuilder).Append(e.Sex.String())
			b.Field(5).(*array.Int32Builder).Append(int32(e.AgeDays))
			b.Field(6).(*array.Float64Builder).Append(e.Weight)
		}
		rec := b.NewRecord()
		err := sw.Write(rec)
		rec.Release()
		if err != nil {
			sw.Close()
			return fmt.Errorf("failed to write arrow batch: %w", err)
		}
	}

	if err := sw.Close(); err != nil {
		return fmt.Errorf("failed to close arrow writer: %w", err)
	}
	return nil
}

// ReadArrow reads an event stream written by WriteArrow.
func ReadArrow(r io.Reader) ([]models.Event, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("failed to open arrow stream: %w", err)
	}
	defer rdr.Release()

	if err := checkEventSchema(rdr.Schema()); err != nil {
		return nil, err
	}

	var events []models.Event
	for batch := 0; rdr.Next(); batch++ {
		rec := rdr.Record()

		day := rec.Column(0).(*array.Int32)
		typ := rec.Column(1).(*array.String)
		id := rec.Column(2).(*array.Int64)
		mother := rec.Column(3).(*array.Int64)
		sex := rec.Column(4).(*array.String)
		age := rec.Column(5).(*array.Int32)
		weight := rec.Column(6).(*array.Float64)

		for row := 0; row < int(rec.NumRows()); row++ {
			t, err := models.ParseEventType(typ.Value(row))
			if err != nil {
				return nil, fmt.Errorf("batch %d row %d: %w", batch, row, err)
			}
			s, err := models.ParseSex(sex.Value(row))
			if err != nil {
				return nil, fmt.Errorf("batch %d row %d: %w", batch, row, err)
			}
			events = append(events, models.Event{
				Day:          int(day.Value(row)),
				Type:         t,
				IndividualID: models.ID(id.Value(row)),
				MotherID:     models.ID(mother.Value(row)),
				Sex:          s,
				AgeDays:      int(age.Value(row)),
				Weight:       weight.Value(row),
			})
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("failed to read arrow stream: %w", err)
	}
	return events, nil
}

func checkEventSchema(got *arrow.Schema) error {
	want := EventSchema.Fields()
	fields := got.Fields()
	if len(fields) != len(want) {
		return fmt.Errorf("unexpected arrow schema: %d fields, want %d", len(fields), len(want))
	}
	for i, f := range fields {
		if f.Name != want[i].Name || !arrow.TypeEqual(f.Type, want[i].Type) {
			return fmt.Errorf("unexpected arrow field %d: %s %s, want %s %s", i, f.Name, f.Type, want[i].Name, want[i].Type)
		}
	}
	return nil
}
