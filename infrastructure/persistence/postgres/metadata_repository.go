package postgres

import (
	"context"
	"database/sql"

	"data-migration/domain/legacy"
	apperrors "data-migration/pkg/errors"

	"go.uber.org/zap"
)

type referenceRow struct {
	ID   int    `db:"id"`
	Name string `db:"name"`
}

type dispositionRow struct {
	ID     int            `db:"id"`
	Name   string         `db:"name"`
	DXCode sql.NullString `db:"dxcode"`
}

// MetadataRepository loads DoS reference data.
type MetadataRepository struct {
	db      Querier
	breaker *Breaker
	logger  *zap.Logger
}

// NewMetadataRepository creates a new metadata repository. breaker may be
// nil.
func NewMetadataRepository(db Querier, breaker *Breaker, logger *zap.Logger) *MetadataRepository {
	return &MetadataRepository{
		db:      db,
		breaker: breaker,
		logger:  logger,
	}
}

// Metadata reads service types, opening days and dispositions.
func (r *MetadataRepository) Metadata(ctx context.Context) (*legacy.Metadata, error) {
	var metadata *legacy.Metadata
	err := r.breaker.Execute(func() error {
		var err error
		metadata, err = r.load(ctx)
		return err
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.NewDatabaseError("load metadata", err)
	}
	return metadata, nil
}

func (r *MetadataRepository) load(ctx context.Context) (*legacy.Metadata, error) {
	serviceTypes, err := r.references(ctx, "servicetypes")
	if err != nil {
		return nil, err
	}
	days, err := r.references(ctx, "openingtimedays")
	if err != nil {
		return nil, err
	}

	sb := newSelect()
	sb.Select("id", "name", "dxcode")
	sb.From(table("dispositions"))
	sb.OrderBy("id")
	query, args := sb.Build()
	var dispositions []dispositionRow
	if err := r.db.SelectContext(ctx, &dispositions, query, args...); err != nil {
		return nil, err
	}

	metadata := &legacy.Metadata{
		ServiceTypes:    make(map[int]legacy.ServiceType, len(serviceTypes)),
		OpeningTimeDays: make(map[int]legacy.OpeningTimeDay, len(days)),
		Dispositions:    make(map[int]legacy.Disposition, len(dispositions)),
	}
	for _, row := range serviceTypes {
		metadata.ServiceTypes[row.ID] = legacy.ServiceType{ID: row.ID, Name: row.Name}
	}
	for _, row := range days {
		metadata.OpeningTimeDays[row.ID] = legacy.OpeningTimeDay{ID: row.ID, Name: row.Name}
	}
	for _, row := range dispositions {
		metadata.Dispositions[row.ID] = legacy.Disposition{ID: row.ID, Name: row.Name, DXCode: nullString(row.DXCode)}
	}

	r.logger.Info("Loaded DoS metadata",
		zap.Int("service_type_count", len(metadata.ServiceTypes)),
		zap.Int("day_count", len(metadata.OpeningTimeDays)),
		zap.Int("disposition_count", len(metadata.Dispositions)),
	)
	return metadata, nil
}

func (r *MetadataRepository) references(ctx context.Context, name string) ([]referenceRow, error) {
	sb := newSelect()
	sb.Select("id", "name")
	sb.From(table(name))
	sb.OrderBy("id")
	query, args := sb.Build()

	var rows []referenceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
