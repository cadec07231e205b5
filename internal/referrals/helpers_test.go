package referrals_test

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/JaimeStill/referrals/internal/audit"
	"github.com/JaimeStill/referrals/pkg/pagination"
)

type failingStore struct{}

func (failingStore) Append(ctx context.Context, r *audit.Record) error {
	return errors.New("disk full")
}

func (failingStore) Find(ctx context.Context, id uuid.UUID) (*audit.Record, error) {
	return nil, audit.ErrNotFound
}

func (failingStore) List(ctx context.Context, p pagination.PageRequest) (pagination.PageResult[audit.Summary], error) {
	return pagination.PageResult[audit.Summary]{}, nil
}

func pageOf(size int) pagination.PageRequest {
	return pagination.PageRequest{Page: 1, PageSize: size}
}
