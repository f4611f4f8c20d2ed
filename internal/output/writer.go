package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/ppiankov/copomatas/internal/model"
)

// row is the on-disk schema of both partition files
type row struct {
	ReferenceDate string `parquet:"reference_date"`
	Title         string `parquet:"title"`
	PageLink      string `parquet:"page_link"`
	DocumentType  string `parquet:"document_type,dict"`
	FullText      string `parquet:"full_text"`
	PreviewText   string `parquet:"preview_text"`
}

var errMissingPreview = errors.New("record has no preview text")

func toRow(r model.MeetingRecord) (row, error) {
	text, ok := r.Text()
	if !ok {
		return row{}, model.ErrMissingFullText
	}
	if r.PreviewText == nil {
		return row{}, errMissingPreview
	}
	return row{
		ReferenceDate: r.ReferenceDate,
		Title:         r.Title,
		PageLink:      r.PageLink,
		DocumentType:  string(r.DocumentType),
		FullText:      text,
		PreviewText:   *r.PreviewText,
	}, nil
}

func fromRow(rw row) model.MeetingRecord {
	return model.MeetingRecord{
		ReferenceDate: rw.ReferenceDate,
		Title:         rw.Title,
		PageLink:      rw.PageLink,
		DocumentType:  model.DocumentType(rw.DocumentType),
	}.WithFullText(rw.FullText).WithPreview(rw.PreviewText)
}

// Writer persists partitions to fixed per-type paths
type Writer struct {
	paths      map[model.DocumentType]string
	createDirs bool
}

// NewWriter creates a Writer targeting the paths in cfg
func NewWriter(cfg model.OutputConfig) *Writer {
	paths := make(map[model.DocumentType]string, len(partitionOrder))
	for _, t := range partitionOrder {
		paths[t] = cfg.PathFor(t)
	}
	return &Writer{
		paths:      paths,
		createDirs: cfg.CreateDirs,
	}
}

type stagedFile struct {
	tmp    string
	final  string
	backup string // previous file at final, moved aside during commit
}

// Write serializes every partition. Files are staged next to their final
// paths and only renamed into place once all partitions were written, so a
// failure leaves no output behind. Returns the written paths in partition order.
func (w *Writer) Write(partitions []Partition) (_ []string, err error) {
	var staged []stagedFile
	defer func() {
		if err != nil {
			for _, s := range staged {
				_ = os.Remove(s.tmp)
			}
		}
	}()

	for _, p := range partitions {
		final, ok := w.paths[p.Type]
		if !ok || final == "" {
			return nil, fmt.Errorf("no output path for %q partition", p.Type)
		}

		rows := make([]row, 0, len(p.Records))
		for i, r := range p.Records {
			rw, err := toRow(r)
			if err != nil {
				return nil, fmt.Errorf("%s partition row %d: %w", p.Type, i, err)
			}
			rows = append(rows, rw)
		}

		tmp, err := w.stage(final, rows)
		if err != nil {
			return nil, err
		}
		staged = append(staged, stagedFile{tmp: tmp, final: final})
	}

	return commit(staged)
}

// commit renames every staged file into place. When a rename fails, the
// files already committed are removed and the ones they replaced restored.
func commit(staged []stagedFile) ([]string, error) {
	var done []stagedFile
	for _, s := range staged {
		backup, err := moveAside(s.final)
		if err != nil {
			rollback(done)
			return nil, err
		}
		s.backup = backup

		if err := os.Rename(s.tmp, s.final); err != nil {
			rollback(append(done, s))
			return nil, &model.IOError{Op: "rename", Path: s.final, Err: err}
		}
		done = append(done, s)
	}

	paths := make([]string, 0, len(done))
	for _, s := range done {
		if s.backup != "" {
			_ = os.Remove(s.backup)
		}
		paths = append(paths, s.final)
	}
	return paths, nil
}

// moveAside renames an existing regular file at path to a sibling name and
// returns it. Missing paths and directories are left alone.
func moveAside(path string) (string, error) {
	info, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && info.IsDir()) {
		return "", nil
	}
	if err != nil {
		return "", &model.IOError{Op: "stat", Path: path, Err: err}
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.bak")
	if err != nil {
		return "", &model.IOError{Op: "backup", Path: path, Err: err}
	}
	backup := f.Name()
	_ = f.Close()

	if err := os.Rename(path, backup); err != nil {
		_ = os.Remove(backup)
		return "", &model.IOError{Op: "backup", Path: path, Err: err}
	}
	return backup, nil
}

// rollback undoes commits in reverse order
func rollback(done []stagedFile) {
	for i := len(done) - 1; i >= 0; i-- {
		s := done[i]
		if _, err := os.Lstat(s.tmp); err != nil {
			// tmp was renamed into place
			_ = os.Remove(s.final)
		}
		if s.backup != "" {
			_ = os.Rename(s.backup, s.final)
		}
	}
}

// stage writes rows to a temporary file in the directory of final
func (w *Writer) stage(final string, rows []row) (tmpPath string, err error) {
	dir := filepath.Dir(final)
	if w.createDirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", &model.IOError{Op: "mkdir", Path: dir, Err: err}
		}
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(final)+".*.tmp")
	if err != nil {
		return "", &model.IOError{Op: "create", Path: final, Err: err}
	}
	tmpPath = f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	pw := parquet.NewGenericWriter[row](f, parquet.Compression(&parquet.Brotli))
	if _, err := pw.Write(rows); err != nil {
		return "", &model.IOError{Op: "write", Path: final, Err: err}
	}
	if err := pw.Close(); err != nil {
		return "", &model.IOError{Op: "write", Path: final, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &model.IOError{Op: "close", Path: final, Err: err}
	}

	return tmpPath, nil
}

// ReadPartition reads a partition file written by Writer
func ReadPartition(path string) ([]model.MeetingRecord, error) {
	rows, err := parquet.ReadFile[row](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	records := make([]model.MeetingRecord, len(rows))
	for i, rw := range rows {
		records[i] = fromRow(rw)
	}
	return records, nil
}
