package repository

import (
	"context"
	"log/slog"
	"strings"

	errs "taskflow/internal/errors"
	"taskflow/internal/model"
	"taskflow/internal/recordstore"
)

const kindCategory = recordstore.KindCategory

// CategoryRepository maps category records of the store to model.Category.
type CategoryRepository struct {
	store recordstore.Client
	log   *slog.Logger
}

func NewCategoryRepository(store recordstore.Client, log *slog.Logger) *CategoryRepository {
	if log == nil {
		log = slog.Default()
	}
	return &CategoryRepository{store: store, log: log.With("repository", "category")}
}

// List returns categories ordered by name. On failure the slice is empty, not nil.
func (r *CategoryRepository) List(ctx context.Context) ([]model.Category, error) {
	categories := []model.Category{}
	resp, err := r.store.FetchRecords(ctx, kindCategory, recordstore.FetchParams{
		Fields:  categoryFields,
		OrderBy: []recordstore.OrderBy{{FieldName: fieldName, SortType: recordstore.Asc}},
	})
	if err != nil {
		err = errs.WrapStoreFailure("list", string(kindCategory), err)
		r.log.Error("list categories", "error", err)
		return categories, err
	}
	if !resp.Success {
		err = errs.NewStoreFailure("list", string(kindCategory), resp.Message)
		r.log.Error("list categories", "error", err)
		return categories, err
	}

	for _, rec := range resp.Data {
		category, err := categoryFromRecord(rec)
		if err != nil {
			r.log.Warn("skip malformed category record", "error", err)
			continue
		}
		categories = append(categories, category)
	}
	return categories, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (model.Category, error) {
	resp, err := r.store.GetRecordByID(ctx, kindCategory, id, recordstore.GetParams{Fields: categoryFields})
	if err != nil {
		err = errs.WrapStoreFailure("get", string(kindCategory), err)
		r.log.Error("get category", "id", id, "error", err)
		return model.Category{}, err
	}
	if !resp.Success {
		if resp.Code == recordstore.CodeNotFound {
			return model.Category{}, errs.NewNotFound(string(kindCategory), id)
		}
		err = errs.NewStoreFailure("get", string(kindCategory), resp.Message)
		r.log.Error("get category", "id", id, "error", err)
		return model.Category{}, err
	}
	category, err := categoryFromRecord(resp.Data)
	if err != nil {
		return model.Category{}, errs.WrapStoreFailure("get", string(kindCategory), err)
	}
	return category, nil
}

func (r *CategoryRepository) Create(ctx context.Context, draft model.CategoryDraft) (model.Category, error) {
	if blank(draft.Name) {
		return model.Category{}, errs.NewValidation(fieldName, "is required")
	}
	rec := recordstore.Record{
		fieldName:      strings.TrimSpace(draft.Name),
		fieldColor:     draft.Color,
		fieldIcon:      draft.Icon,
		fieldTaskCount: 0,
	}

	resp, err := r.store.CreateRecord(ctx, kindCategory, recordstore.CreateParams{Records: []recordstore.Record{rec}})
	data, err := singleResult("create", kindCategory, 0, resp, err)
	if err != nil {
		r.log.Error("create category", "error", err)
		return model.Category{}, err
	}
	category, err := categoryFromRecord(data)
	if err != nil {
		return model.Category{}, errs.WrapStoreFailure("create", string(kindCategory), err)
	}
	r.log.Info("category created", "id", category.ID, "name", category.Name)
	return category, nil
}

func (r *CategoryRepository) Update(ctx context.Context, id int64, patch model.CategoryPatch) (model.Category, error) {
	rec := recordstore.Record{recordstore.IDField: id}
	if patch.Name != nil {
		if blank(*patch.Name) {
			return model.Category{}, errs.NewValidation(fieldName, "is required")
		}
		rec[fieldName] = strings.TrimSpace(*patch.Name)
	}
	if patch.Color != nil {
		rec[fieldColor] = *patch.Color
	}
	if patch.Icon != nil {
		rec[fieldIcon] = *patch.Icon
	}
	return r.save(ctx, "update", id, rec)
}

func (r *CategoryRepository) save(ctx context.Context, op string, id int64, rec recordstore.Record) (model.Category, error) {
	resp, err := r.store.UpdateRecord(ctx, kindCategory, recordstore.UpdateParams{Records: []recordstore.Record{rec}})
	data, err := singleResult(op, kindCategory, id, resp, err)
	if err != nil {
		if !errs.IsNotFound(err) {
			r.log.Error("update category", "id", id, "error", err)
		}
		return model.Category{}, err
	}
	category, err := categoryFromRecord(data)
	if err != nil {
		return model.Category{}, errs.WrapStoreFailure(op, string(kindCategory), err)
	}
	return category, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id int64) (bool, error) {
	resp, err := r.store.DeleteRecord(ctx, kindCategory, recordstore.DeleteParams{RecordIDs: []int64{id}})
	if _, err := singleResult("delete", kindCategory, id, resp, err); err != nil {
		if !errs.IsNotFound(err) {
			r.log.Error("delete category", "id", id, "error", err)
		}
		return false, err
	}
	r.log.Info("category deleted", "id", id)
	return true, nil
}

// UpdateTaskCount re-reads the category and stores count as its cached task
// count. It returns nil, nil when the category no longer exists.
func (r *CategoryRepository) UpdateTaskCount(ctx context.Context, id int64, count int) (*model.Category, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		if errs.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	category, err := r.save(ctx, "update task count", id, recordstore.Record{
		recordstore.IDField: id,
		fieldTaskCount:      count,
	})
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}
