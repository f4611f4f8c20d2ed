// Package output partitions enriched records by document type and persists
// each partition as a brotli-compressed Parquet file.
package output

import (
	"github.com/ppiankov/copomatas/internal/model"
	"github.com/ppiankov/copomatas/internal/summary"
)

// Partition is the set of records sharing one document type, in table order
type Partition struct {
	Type    model.DocumentType
	Records []model.MeetingRecord
}

// partitionOrder fixes the order partitions are produced and written in
var partitionOrder = []model.DocumentType{model.DocumentTypePDF, model.DocumentTypeHTML}

// Split groups records by document type. Both partitions are always
// returned, possibly empty.
func Split(records []model.MeetingRecord) []Partition {
	partitions := make([]Partition, len(partitionOrder))
	index := make(map[model.DocumentType]int, len(partitionOrder))
	for i, t := range partitionOrder {
		partitions[i] = Partition{Type: t, Records: []model.MeetingRecord{}}
		index[t] = i
	}

	for _, r := range records {
		if i, ok := index[r.DocumentType]; ok {
			partitions[i].Records = append(partitions[i].Records, r)
		}
	}

	return partitions
}

// Summarize returns copies of partitions with previews computed per partition.
func Summarize(partitions []Partition) ([]Partition, error) {
	out := make([]Partition, len(partitions))
	for i, p := range partitions {
		records, err := summary.Apply(p.Records)
		if err != nil {
			return nil, err
		}
		out[i] = Partition{Type: p.Type, Records: records}
	}
	return out, nil
}
