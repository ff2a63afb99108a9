package repository

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"momentfeed/internal/models"
)

type recordRepository struct {
	api Requester
}

func NewRecordRepository(api Requester) RecordRepository {
	return &recordRepository{api: api}
}

func (r *recordRepository) List(ctx context.Context, page, limit int) (*models.RecordPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	var out models.RecordPage
	if err := r.api.Get(ctx, "/records", params, &out); err != nil {
		return nil, fmt.Errorf("list records page %d: %w", page, err)
	}
	if out.Records == nil {
		out.Records = []models.Record{}
	}
	return &out, nil
}

func (r *recordRepository) GetByID(ctx context.Context, id int64) (*models.Record, error) {
	var out models.Record
	if err := r.api.Get(ctx, recordPath(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get record %d: %w", id, err)
	}
	return &out, nil
}

func (r *recordRepository) Create(ctx context.Context, req models.CreateRecordRequest) (*models.Record, error) {
	var out models.Record
	if err := r.api.Post(ctx, "/records", req, &out); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	return &out, nil
}

func (r *recordRepository) Update(ctx context.Context, id int64, req models.UpdateRecordRequest) (*models.Record, error) {
	var out models.Record
	if err := r.api.Put(ctx, recordPath(id), req, &out); err != nil {
		return nil, fmt.Errorf("update record %d: %w", id, err)
	}
	return &out, nil
}

func (r *recordRepository) Delete(ctx context.Context, id int64) error {
	if err := r.api.Delete(ctx, recordPath(id), nil); err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	return nil
}

func recordPath(id int64) string {
	return "/records/" + strconv.FormatInt(id, 10)
}
