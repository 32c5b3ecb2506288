package datarecording

import (
	"context"
	"fmt"

	"github.com/sarchlab/ptpsim/ptp"
)

// ExchangeTable is the default table exchange records are stored in.
const ExchangeTable = "exchange"

// RecordDataset creates a table and writes every record of the dataset into
// it.
func RecordDataset(rec DataRecorder, tableName string, data ptp.Dataset) error {
	if err := rec.CreateTable(tableName, ptp.RecordRow{}); err != nil {
		return err
	}

	for _, r := range data {
		if err := rec.InsertData(tableName, r.Row()); err != nil {
			return err
		}
	}

	return rec.Flush()
}

// LoadDataset reads back a dataset written by RecordDataset, ordered by
// record index.
func LoadDataset(
	ctx context.Context,
	reader DataReader,
	tableName string,
) (ptp.Dataset, error) {
	reader.MapTable(tableName, ptp.RecordRow{})

	rows, _, err := reader.Query(ctx, tableName, QueryParams{OrderBy: "Idx"})
	if err != nil {
		return nil, err
	}

	data := make(ptp.Dataset, 0, len(rows))
	for _, row := range rows {
		r, ok := row.(*ptp.RecordRow)
		if !ok {
			return nil, fmt.Errorf("unexpected row type %T", row)
		}

		data = append(data, r.Record())
	}

	return data, nil
}

// DatasetSource produces a dataset by loading it from a database.
type DatasetSource struct {
	reader    DataReader
	tableName string
	data      ptp.Dataset
}

// NewDatasetSource creates a source reading the given table.
func NewDatasetSource(reader DataReader, tableName string) *DatasetSource {
	return &DatasetSource{reader: reader, tableName: tableName}
}

// Run loads the dataset.
func (s *DatasetSource) Run() error {
	data, err := LoadDataset(context.Background(), s.reader, s.tableName)
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return fmt.Errorf("table %s holds no record", s.tableName)
	}

	s.data = data

	return nil
}

// Data returns the loaded dataset.
func (s *DatasetSource) Data() ptp.Dataset {
	return s.data
}
