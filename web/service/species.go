// Package service holds the catalog's business logic: the credential store,
// the species repository, upload handling and CSV export.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/thucvatbm/species-catalog/database"
	"github.com/thucvatbm/species-catalog/database/model"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrValidation is returned when a required field is empty.
	ErrValidation = errors.New("validation failed")
)

// FilterField is one of the searchable species attributes.
type FilterField string

const (
	FieldCommonName     FilterField = "common_name"
	FieldScientificName FilterField = "scientific_name"
	FieldFamily         FilterField = "family"
)

// ParseFilterField maps a request value onto a FilterField. Unknown values
// fall back to FieldCommonName.
func ParseFilterField(s string) FilterField {
	switch f := FilterField(strings.TrimSpace(s)); f {
	case FieldScientificName, FieldFamily:
		return f
	default:
		return FieldCommonName
	}
}

// Filter restricts a listing to records whose Field contains Query,
// ignoring case. An empty Query matches everything.
type Filter struct {
	Query string
	Field FilterField
}

// NewFilter builds a Filter from raw request values.
func NewFilter(query, field string) Filter {
	return Filter{Query: strings.TrimSpace(query), Field: ParseFilterField(field)}
}

func (f Filter) value(sp *model.Species) string {
	switch f.Field {
	case FieldScientificName:
		return sp.ScientificName
	case FieldFamily:
		return sp.Family
	default:
		return sp.CommonName
	}
}

// Match reports whether sp passes the filter.
func (f Filter) Match(sp *model.Species) bool {
	if f.Query == "" {
		return true
	}
	folder := cases.Fold()
	return strings.Contains(folder.String(f.value(sp)), folder.String(f.Query))
}

// SpeciesInput carries submitted species fields. A nil field is left as is on
// update and stored empty on create.
type SpeciesInput struct {
	CommonName     *string
	ScientificName *string
	Family         *string
	Genus          *string
	Location       *string
	Status         *string
	Description    *string
	ImagePath      *string
}

func (in SpeciesInput) apply(sp *model.Species) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&sp.CommonName, in.CommonName)
	set(&sp.ScientificName, in.ScientificName)
	set(&sp.Family, in.Family)
	set(&sp.Genus, in.Genus)
	set(&sp.Location, in.Location)
	set(&sp.Status, in.Status)
	set(&sp.Description, in.Description)
	set(&sp.ImagePath, in.ImagePath)
}

// Validate reports whether in, applied over base, still has every required
// field. base is not modified.
func (in SpeciesInput) Validate(base model.Species) error {
	in.apply(&base)
	return validateSpecies(&base)
}

// Preview returns base with in applied, for re-rendering a rejected form.
func (in SpeciesInput) Preview(base model.Species) model.Species {
	in.apply(&base)
	return base
}

func validateSpecies(sp *model.Species) error {
	var missing []string
	if sp.CommonName == "" {
		missing = append(missing, string(FieldCommonName))
	}
	if sp.ScientificName == "" {
		missing = append(missing, string(FieldScientificName))
	}
	if sp.Family == "" {
		missing = append(missing, string(FieldFamily))
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// SpeciesService is the species repository.
type SpeciesService struct{}

// Each streams the records matching filter to fn, ordered by common name and
// then id. Rows are read from the database cursor one at a time. An error
// returned by fn stops the iteration and is returned as is.
func (s *SpeciesService) Each(ctx context.Context, filter Filter, fn func(*model.Species) error) error {
	db := database.GetDB().WithContext(ctx)

	rows, err := db.Model(&model.Species{}).
		Order("common_name ASC").
		Order("id ASC").
		Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var sp model.Species
		if err := db.ScanRows(rows, &sp); err != nil {
			return err
		}
		if !filter.Match(&sp) {
			continue
		}
		if err := fn(&sp); err != nil {
			return err
		}
	}
	return rows.Err()
}

// List returns every record matching filter in Each order.
func (s *SpeciesService) List(ctx context.Context, filter Filter) ([]model.Species, error) {
	list := make([]model.Species, 0)
	err := s.Each(ctx, filter, func(sp *model.Species) error {
		list = append(list, *sp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *SpeciesService) Get(ctx context.Context, id int) (*model.Species, error) {
	sp := &model.Species{}
	err := database.GetDB().WithContext(ctx).First(sp, id).Error
	if database.IsNotFound(err) {
		return nil, fmt.Errorf("species %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return sp, nil
}

// Create trims the input, checks the required fields and inserts a record.
func (s *SpeciesService) Create(ctx context.Context, in SpeciesInput) (*model.Species, error) {
	sp := &model.Species{}
	in.apply(sp)
	if err := validateSpecies(sp); err != nil {
		return nil, err
	}
	if err := database.GetDB().WithContext(ctx).Create(sp).Error; err != nil {
		return nil, err
	}
	return sp, nil
}

// Update overwrites the supplied fields of record id.
func (s *SpeciesService) Update(ctx context.Context, id int, in SpeciesInput) (*model.Species, error) {
	sp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(sp)
	if err := validateSpecies(sp); err != nil {
		return nil, err
	}

	err = database.GetDB().WithContext(ctx).
		Model(sp).
		Select("*").
		Omit("id").
		Updates(sp).
		Error
	if err != nil {
		return nil, err
	}
	return sp, nil
}

// Delete removes record id. Its stored image, if any, is kept.
func (s *SpeciesService) Delete(ctx context.Context, id int) error {
	res := database.GetDB().WithContext(ctx).Delete(&model.Species{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("species %d: %w", id, ErrNotFound)
	}
	return nil
}

// ImagePaths returns the set of stored filenames referenced by any record.
func (s *SpeciesService) ImagePaths(ctx context.Context) (map[string]struct{}, error) {
	var paths []string
	err := database.GetDB().WithContext(ctx).
		Model(&model.Species{}).
		Where("image_path <> ?", "").
		Pluck("image_path", &paths).
		Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set, nil
}
