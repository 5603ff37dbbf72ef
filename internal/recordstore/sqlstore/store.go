// Package sqlstore implements the record store on SQLite through gorm.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskflow/internal/recordstore"
)

// Store serves task and category records from a gorm database.
type Store struct {
	db  *gorm.DB
	log *slog.Logger
}

var _ recordstore.Client = (*Store)(nil)

// New wraps an open database. Use NewDB to open and migrate one.
func New(db *gorm.DB, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, log: log.With("component", "sqlstore")}
}

// Open opens the database at dsn and returns a store over it.
func Open(dsn string, log *slog.Logger) (*Store, error) {
	db, err := NewDB(dsn, log)
	if err != nil {
		return nil, err
	}
	return New(db, log), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func lookupSchema(kind recordstore.Kind) (kindSchema, bool) {
	sc, ok := schemas[kind]
	return sc, ok
}

func unknownKind(kind recordstore.Kind) string {
	return fmt.Sprintf("unknown record kind %q", kind)
}

func (s *Store) FetchRecords(ctx context.Context, kind recordstore.Kind, params recordstore.FetchParams) (*recordstore.FetchResponse, error) {
	sc, ok := lookupSchema(kind)
	if !ok {
		return &recordstore.FetchResponse{Message: unknownKind(kind)}, nil
	}

	cond, err := buildWhere(sc, params.Where, params.WhereGroups)
	if err != nil {
		return &recordstore.FetchResponse{Message: err.Error()}, nil
	}

	base := s.db.WithContext(ctx).Model(sc.model)
	if cond != nil {
		query, args, err := cond.ToSql()
		if err != nil {
			return &recordstore.FetchResponse{Message: err.Error()}, nil
		}
		base = base.Where(query, args...)
	}
	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count %s: %w", kind, err)
	}

	query := base
	for _, order := range params.OrderBy {
		column, ok := sc.columns[order.FieldName]
		if !ok {
			return &recordstore.FetchResponse{Message: fmt.Sprintf("unknown order field %q", order.FieldName)}, nil
		}
		query = query.Order(clause.OrderByColumn{
			Column: clause.Column{Name: column},
			Desc:   order.SortType == recordstore.Desc,
		})
	}
	// Ties resolve by insertion order.
	query = query.Order("id ASC")
	if params.Paging != nil {
		if params.Paging.Limit > 0 {
			query = query.Limit(params.Paging.Limit)
		}
		if params.Paging.Offset > 0 {
			query = query.Offset(params.Paging.Offset)
		}
	}

	records, err := s.find(ctx, kind, query)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", kind, err)
	}
	for i := range records {
		records[i] = recordstore.Select(records[i], params.Fields)
	}

	return &recordstore.FetchResponse{Success: true, Data: records, Total: int(total)}, nil
}

func (s *Store) find(ctx context.Context, kind recordstore.Kind, query *gorm.DB) ([]recordstore.Record, error) {
	switch kind {
	case recordstore.KindTask:
		var rows []taskRow
		if err := query.Find(&rows).Error; err != nil {
			return nil, err
		}
		names, err := s.categoryNames(ctx, rows...)
		if err != nil {
			return nil, err
		}
		records := make([]recordstore.Record, 0, len(rows))
		for i := range rows {
			records = append(records, rows[i].toRecord(names))
		}
		return records, nil
	default:
		var rows []categoryRow
		if err := query.Find(&rows).Error; err != nil {
			return nil, err
		}
		records := make([]recordstore.Record, 0, len(rows))
		for i := range rows {
			records = append(records, rows[i].toRecord())
		}
		return records, nil
	}
}

// categoryNames resolves the category lookups of the given tasks. Ids with no
// category row are absent from the result.
func (s *Store) categoryNames(ctx context.Context, tasks ...taskRow) (map[int64]string, error) {
	ids := make([]int64, 0, len(tasks))
	seen := make(map[int64]bool, len(tasks))
	for _, t := range tasks {
		if t.CategoryID > 0 && !seen[t.CategoryID] {
			seen[t.CategoryID] = true
			ids = append(ids, t.CategoryID)
		}
	}
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var cats []categoryRow
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("lookup categories: %w", err)
	}
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}

func (s *Store) GetRecordByID(ctx context.Context, kind recordstore.Kind, id int64, params recordstore.GetParams) (*recordstore.GetResponse, error) {
	if _, ok := lookupSchema(kind); !ok {
		return &recordstore.GetResponse{Message: unknownKind(kind)}, nil
	}

	rec, err := s.load(ctx, kind, id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &recordstore.GetResponse{Message: fmt.Sprintf("%s %d does not exist", kind, id), Code: recordstore.CodeNotFound}, nil
	case err != nil:
		return nil, fmt.Errorf("get %s: %w", kind, err)
	}
	return &recordstore.GetResponse{Success: true, Data: recordstore.Select(rec, params.Fields)}, nil
}

func (s *Store) load(ctx context.Context, kind recordstore.Kind, id int64) (recordstore.Record, error) {
	db := s.db.WithContext(ctx)
	if kind == recordstore.KindTask {
		var row taskRow
		if err := db.First(&row, id).Error; err != nil {
			return nil, err
		}
		names, err := s.categoryNames(ctx, row)
		if err != nil {
			return nil, err
		}
		return row.toRecord(names), nil
	}
	var row categoryRow
	if err := db.First(&row, id).Error; err != nil {
		return nil, err
	}
	return row.toRecord(), nil
}

func (s *Store) CreateRecord(ctx context.Context, kind recordstore.Kind, params recordstore.CreateParams) (*recordstore.MutationResponse, error) {
	if _, ok := lookupSchema(kind); !ok {
		return &recordstore.MutationResponse{Message: unknownKind(kind)}, nil
	}

	results := make([]recordstore.Result, 0, len(params.Records))
	for _, rec := range params.Records {
		result, err := s.createOne(ctx, kind, rec)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return &recordstore.MutationResponse{Success: true, Results: results}, nil
}

func (s *Store) createOne(ctx context.Context, kind recordstore.Kind, rec recordstore.Record) (recordstore.Result, error) {
	db := s.db.WithContext(ctx)
	if kind == recordstore.KindTask {
		row := taskRow{Priority: "medium"}
		if errs := row.apply(rec); len(errs) > 0 {
			return rejected(errs), nil
		}
		if err := db.Create(&row).Error; err != nil {
			return recordstore.Result{}, fmt.Errorf("create task: %w", err)
		}
		names, err := s.categoryNames(ctx, row)
		if err != nil {
			return recordstore.Result{}, err
		}
		s.log.Debug("record created", "kind", kind, "id", row.ID)
		return recordstore.Result{Success: true, Data: row.toRecord(names)}, nil
	}

	var row categoryRow
	if errs := row.apply(rec); len(errs) > 0 {
		return rejected(errs), nil
	}
	if err := db.Create(&row).Error; err != nil {
		return recordstore.Result{}, fmt.Errorf("create category: %w", err)
	}
	s.log.Debug("record created", "kind", kind, "id", row.ID)
	return recordstore.Result{Success: true, Data: row.toRecord()}, nil
}

func (s *Store) UpdateRecord(ctx context.Context, kind recordstore.Kind, params recordstore.UpdateParams) (*recordstore.MutationResponse, error) {
	if _, ok := lookupSchema(kind); !ok {
		return &recordstore.MutationResponse{Message: unknownKind(kind)}, nil
	}

	results := make([]recordstore.Result, 0, len(params.Records))
	for _, rec := range params.Records {
		result, err := s.updateOne(ctx, kind, rec)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return &recordstore.MutationResponse{Success: true, Results: results}, nil
}

func (s *Store) updateOne(ctx context.Context, kind recordstore.Kind, rec recordstore.Record) (recordstore.Result, error) {
	id, ok := rec.ID()
	if !ok {
		return recordstore.Result{
			Code:    recordstore.CodeValidation,
			Message: "Id is required",
			Errors:  []recordstore.FieldError{{FieldLabel: recordstore.IDField, Message: "is required"}},
		}, nil
	}

	db := s.db.WithContext(ctx)
	if kind == recordstore.KindTask {
		var row taskRow
		if err := db.First(&row, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return missing(kind, id), nil
			}
			return recordstore.Result{}, fmt.Errorf("find task: %w", err)
		}
		if errs := row.apply(rec); len(errs) > 0 {
			return rejected(errs), nil
		}
		if err := db.Save(&row).Error; err != nil {
			return recordstore.Result{}, fmt.Errorf("update task: %w", err)
		}
		names, err := s.categoryNames(ctx, row)
		if err != nil {
			return recordstore.Result{}, err
		}
		return recordstore.Result{Success: true, Data: row.toRecord(names)}, nil
	}

	var row categoryRow
	if err := db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return missing(kind, id), nil
		}
		return recordstore.Result{}, fmt.Errorf("find category: %w", err)
	}
	if errs := row.apply(rec); len(errs) > 0 {
		return rejected(errs), nil
	}
	if err := db.Save(&row).Error; err != nil {
		return recordstore.Result{}, fmt.Errorf("update category: %w", err)
	}
	return recordstore.Result{Success: true, Data: row.toRecord()}, nil
}

func (s *Store) DeleteRecord(ctx context.Context, kind recordstore.Kind, params recordstore.DeleteParams) (*recordstore.MutationResponse, error) {
	sc, ok := lookupSchema(kind)
	if !ok {
		return &recordstore.MutationResponse{Message: unknownKind(kind)}, nil
	}

	results := make([]recordstore.Result, 0, len(params.RecordIDs))
	for _, id := range params.RecordIDs {
		res := s.db.WithContext(ctx).Delete(sc.model, id)
		if res.Error != nil {
			return nil, fmt.Errorf("delete %s: %w", kind, res.Error)
		}
		if res.RowsAffected == 0 {
			results = append(results, missing(kind, id))
			continue
		}
		s.log.Debug("record deleted", "kind", kind, "id", id)
		results = append(results, recordstore.Result{Success: true, Data: recordstore.Record{recordstore.IDField: id}})
	}
	return &recordstore.MutationResponse{Success: true, Results: results}, nil
}

func rejected(errs []recordstore.FieldError) recordstore.Result {
	return recordstore.Result{Code: recordstore.CodeValidation, Errors: errs}
}

func missing(kind recordstore.Kind, id int64) recordstore.Result {
	return recordstore.Result{
		Code:    recordstore.CodeNotFound,
		Message: fmt.Sprintf("%s %d does not exist", kind, id),
		Data:    recordstore.Record{recordstore.IDField: id},
	}
}
