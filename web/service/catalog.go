package service

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"

	"github.com/thucvatbm/species-catalog/database/model"
	"github.com/thucvatbm/species-catalog/util/metrics"
)

// ExportFilename is the attachment name of CSV exports.
const ExportFilename = "danh_sach_loai.csv"

var csvHeader = []string{"Tên thường gọi", "Tên khoa học", "Họ", "Chi", "Vị trí", "Trạng thái", "Mô tả", "Ảnh"}

var errStopExport = errors.New("export stopped")

var descriptionNewlines = strings.NewReplacer("\n", " ", "\r", " ")

// CatalogService serves searches and exports on top of the species repository.
type CatalogService struct {
	speciesService SpeciesService
}

// Search returns the records matching filter, ordered by common name.
func (s *CatalogService) Search(ctx context.Context, filter Filter) ([]model.Species, error) {
	return s.speciesService.List(ctx, filter)
}

// EscapeCSV quotes v when it contains a comma, a double quote or a newline,
// doubling any embedded double quotes.
func EscapeCSV(v string) string {
	if !strings.ContainsAny(v, ",\"\n") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func csvLine(values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = EscapeCSV(v)
	}
	return strings.Join(escaped, ",") + "\n"
}

func csvRow(sp *model.Species) []string {
	return []string{
		sp.CommonName,
		sp.ScientificName,
		sp.Family,
		sp.Genus,
		sp.Location,
		sp.Status,
		descriptionNewlines.Replace(sp.Description),
		sp.ImagePath,
	}
}

// ExportCSV lazily yields the CSV export of the records matching filter: the
// header line first, then one line per record in Search order. Each line ends
// with "\n". A database error is yielded once as the last element.
func (s *CatalogService) ExportCSV(ctx context.Context, filter Filter) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !yield(csvLine(csvHeader), nil) {
			return
		}
		stopped := false
		err := s.speciesService.Each(ctx, filter, func(sp *model.Species) error {
			metrics.RowExported()
			if !yield(csvLine(csvRow(sp)), nil) {
				stopped = true
				return errStopExport
			}
			return nil
		})
		if err != nil && !stopped {
			yield("", err)
		}
	}
}

// WriteCSV writes the export of filter to w line by line.
func (s *CatalogService) WriteCSV(ctx context.Context, w io.Writer, filter Filter) error {
	for line, err := range s.ExportCSV(ctx, filter) {
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}
