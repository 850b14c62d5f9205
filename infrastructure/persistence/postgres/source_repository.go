package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"data-migration/domain/legacy"
	apperrors "data-migration/pkg/errors"

	"go.uber.org/zap"
)

type serviceRow struct {
	ID             int            `db:"id"`
	UID            string         `db:"uid"`
	Name           string         `db:"name"`
	PublicName     sql.NullString `db:"publicname"`
	ODSCode        sql.NullString `db:"odscode"`
	TypeID         int            `db:"typeid"`
	StatusID       sql.NullInt64  `db:"statusid"`
	Address        sql.NullString `db:"address"`
	Town           sql.NullString `db:"town"`
	Postcode       sql.NullString `db:"postcode"`
	PublicPhone    sql.NullString `db:"publicphone"`
	NonPublicPhone sql.NullString `db:"nonpublicphone"`
	Email          sql.NullString `db:"email"`
	Web            sql.NullString `db:"web"`
	Latitude       sql.NullString `db:"latitude"`
	Longitude      sql.NullString `db:"longitude"`
	ModifiedTime   sql.NullTime   `db:"modifiedtime"`
}

type endpointRow struct {
	ID                   int            `db:"id"`
	EndpointOrder        int            `db:"endpointorder"`
	Transport            sql.NullString `db:"transport"`
	Format               sql.NullString `db:"format"`
	Interaction          sql.NullString `db:"interaction"`
	BusinessScenario     sql.NullString `db:"businessscenario"`
	Address              sql.NullString `db:"address"`
	Comment              sql.NullString `db:"comment"`
	IsCompressionEnabled sql.NullString `db:"iscompressionenabled"`
	ServiceID            int            `db:"serviceid"`
}

type dayOpeningRow struct {
	ID        int    `db:"id"`
	DayID     int    `db:"dayid"`
	StartTime string `db:"starttime"`
	EndTime   string `db:"endtime"`
}

type specifiedOpeningRow struct {
	ID        int       `db:"id"`
	Date      time.Time `db:"date"`
	StartTime string    `db:"starttime"`
	EndTime   string    `db:"endtime"`
	IsClosed  bool      `db:"isclosed"`
}

type sgsdRow struct {
	SGID int `db:"sgid"`
	SDID int `db:"sdid"`
}

type ageRangeRow struct {
	DaysFrom string `db:"daysfrom"`
	DaysTo   string `db:"daysto"`
}

// SourceRepository reads DoS services.
type SourceRepository struct {
	db      Querier
	breaker *Breaker
	logger  *zap.Logger
}

// NewSourceRepository creates a new source repository. breaker may be nil.
func NewSourceRepository(db Querier, breaker *Breaker, logger *zap.Logger) *SourceRepository {
	return &SourceRepository{
		db:      db,
		breaker: breaker,
		logger:  logger,
	}
}

// GetService loads a service and all of its child rows.
func (r *SourceRepository) GetService(ctx context.Context, id int) (*legacy.Service, error) {
	var service *legacy.Service
	err := r.breaker.Execute(func() error {
		var err error
		service, err = r.loadService(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return service, nil
}

func (r *SourceRepository) loadService(ctx context.Context, id int) (*legacy.Service, error) {
	sb := newSelect()
	sb.Select(
		"id", "uid", "name", "publicname", "odscode", "typeid", "statusid",
		"address", "town", "postcode", "publicphone", "nonpublicphone", "email", "web",
		"latitude::text AS latitude", "longitude::text AS longitude", "modifiedtime",
	)
	sb.From(table(legacy.TableServices))
	sb.Where(sb.Equal("id", id))
	query, args := sb.Build()

	var row serviceRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("service").WithDetail("service_id", id)
		}
		return nil, apperrors.NewDatabaseError("get service", err).WithDetail("service_id", id)
	}

	service := row.toDomain()
	loaders := []struct {
		name string
		load func(context.Context, *legacy.Service) error
	}{
		{legacy.TableServiceEndpoints, r.loadEndpoints},
		{legacy.TableServiceDayOpenings, r.loadScheduledOpenings},
		{legacy.TableServiceSpecifiedOpeningDates, r.loadSpecifiedOpenings},
		{legacy.TableServiceSGSDs, r.loadSGSDs},
		{legacy.TableServiceDispositions, r.loadDispositions},
		{legacy.TableServiceAgeRange, r.loadAgeRanges},
	}
	for _, l := range loaders {
		if err := l.load(ctx, service); err != nil {
			return nil, apperrors.NewDatabaseError("get "+l.name, err).WithDetail("service_id", id)
		}
	}

	r.logger.Debug("Loaded service from source",
		zap.Int("service_id", id),
		zap.Int("endpoint_count", len(service.Endpoints)),
	)
	return service, nil
}

func (r *SourceRepository) loadEndpoints(ctx context.Context, service *legacy.Service) error {
	sb := newSelect()
	sb.Select("id", "endpointorder", "transport", "format", "interaction", "businessscenario",
		"address", "comment", "iscompressionenabled", "serviceid")
	sb.From(table(legacy.TableServiceEndpoints))
	sb.Where(sb.Equal("serviceid", service.ID))
	sb.OrderBy("endpointorder", "id")
	query, args := sb.Build()

	var rows []endpointRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return err
	}
	for _, row := range rows {
		service.Endpoints = append(service.Endpoints, legacy.ServiceEndpoint{
			ID:                   row.ID,
			EndpointOrder:        row.EndpointOrder,
			Transport:            nullString(row.Transport),
			Format:               nullString(row.Format),
			Interaction:          nullString(row.Interaction),
			BusinessScenario:     nullString(row.BusinessScenario),
			Address:              nullString(row.Address),
			Comment:              nullString(row.Comment),
			IsCompressionEnabled: nullString(row.IsCompressionEnabled),
			ServiceID:            row.ServiceID,
		})
	}
	return nil
}

func (r *SourceRepository) loadScheduledOpenings(ctx context.Context, service *legacy.Service) error {
	sb := newSelect()
	sb.Select("o.id", "o.dayid",
		"to_char(t.starttime, 'HH24:MI:SS') AS starttime",
		"to_char(t.endtime, 'HH24:MI:SS') AS endtime",
	)
	sb.From(table(legacy.TableServiceDayOpenings) + " o")
	sb.Join(table("servicedayopeningtimes")+" t", "t.servicedayopeningid = o.id")
	sb.Where(sb.Equal("o.serviceid", service.ID))
	sb.OrderBy("o.id", "t.starttime")
	query, args := sb.Build()

	var rows []dayOpeningRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return err
	}
	for _, row := range rows {
		n := len(service.ScheduledOpeningTimes)
		if n == 0 || service.ScheduledOpeningTimes[n-1].ID != row.ID {
			service.ScheduledOpeningTimes = append(service.ScheduledOpeningTimes, legacy.ServiceDayOpening{ID: row.ID, DayID: row.DayID})
			n++
		}
		opening := &service.ScheduledOpeningTimes[n-1]
		opening.Times = append(opening.Times, legacy.OpeningTime{StartTime: row.StartTime, EndTime: row.EndTime})
	}
	return nil
}

func (r *SourceRepository) loadSpecifiedOpenings(ctx context.Context, service *legacy.Service) error {
	sb := newSelect()
	sb.Select("d.id", "d.date",
		"to_char(t.starttime, 'HH24:MI:SS') AS starttime",
		"to_char(t.endtime, 'HH24:MI:SS') AS endtime",
		"t.isclosed",
	)
	sb.From(table(legacy.TableServiceSpecifiedOpeningDates) + " d")
	sb.Join(table("servicespecifiedopeningtimes")+" t", "t.servicespecifiedopeningdateid = d.id")
	sb.Where(sb.Equal("d.serviceid", service.ID))
	sb.OrderBy("d.date", "d.id", "t.starttime")
	query, args := sb.Build()

	var rows []specifiedOpeningRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return err
	}
	for _, row := range rows {
		n := len(service.SpecifiedOpeningTimes)
		if n == 0 || service.SpecifiedOpeningTimes[n-1].ID != row.ID {
			service.SpecifiedOpeningTimes = append(service.SpecifiedOpeningTimes, legacy.ServiceSpecifiedOpeningDate{ID: row.ID, Date: row.Date})
			n++
		}
		date := &service.SpecifiedOpeningTimes[n-1]
		date.Times = append(date.Times, legacy.SpecifiedOpeningTime{
			StartTime: row.StartTime,
			EndTime:   row.EndTime,
			IsClosed:  row.IsClosed,
		})
	}
	return nil
}

func (r *SourceRepository) loadSGSDs(ctx context.Context, service *legacy.Service) error {
	sb := newSelect()
	sb.Select("sgid", "sdid")
	sb.From(table(legacy.TableServiceSGSDs))
	sb.Where(sb.Equal("serviceid", service.ID))
	sb.OrderBy("id")
	query, args := sb.Build()

	var rows []sgsdRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return err
	}
	for _, row := range rows {
		service.SGSDs = append(service.SGSDs, legacy.ServiceSGSD{SGID: row.SGID, SDID: row.SDID})
	}
	return nil
}

func (r *SourceRepository) loadDispositions(ctx context.Context, service *legacy.Service) error {
	sb := newSelect()
	sb.Select("dispositionid")
	sb.From(table(legacy.TableServiceDispositions))
	sb.Where(sb.Equal("serviceid", service.ID))
	sb.OrderBy("id")
	query, args := sb.Build()

	var ids []int
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return err
	}
	for _, id := range ids {
		service.Dispositions = append(service.Dispositions, legacy.ServiceDisposition{DispositionID: id})
	}
	return nil
}

func (r *SourceRepository) loadAgeRanges(ctx context.Context, service *legacy.Service) error {
	sb := newSelect()
	sb.Select("daysfrom::text AS daysfrom", "daysto::text AS daysto")
	sb.From(table(legacy.TableServiceAgeRange))
	sb.Where(sb.Equal("serviceid", service.ID))
	sb.OrderBy("id")
	query, args := sb.Build()

	var rows []ageRangeRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return err
	}
	for _, row := range rows {
		service.AgeRanges = append(service.AgeRanges, legacy.ServiceAgeRange{DaysFrom: row.DaysFrom, DaysTo: row.DaysTo})
	}
	return nil
}

// ListServiceIDs returns the ids of every service matching filter in
// ascending order.
func (r *SourceRepository) ListServiceIDs(ctx context.Context, filter legacy.ServiceFilter) ([]int, error) {
	sb := newSelect()
	sb.Select("id")
	sb.From(table(legacy.TableServices))
	if len(filter.TypeIDs) > 0 {
		sb.Where(sb.In("typeid", sqlbuilderArgs(filter.TypeIDs)...))
	}
	if len(filter.StatusIDs) > 0 {
		sb.Where(sb.In("statusid", sqlbuilderArgs(filter.StatusIDs)...))
	}
	sb.OrderBy("id")
	query, args := sb.Build()

	var ids []int
	err := r.breaker.Execute(func() error {
		return r.db.SelectContext(ctx, &ids, query, args...)
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.NewDatabaseError("list services", err)
	}
	return ids, nil
}

func (row serviceRow) toDomain() *legacy.Service {
	service := &legacy.Service{
		ID:             row.ID,
		UID:            row.UID,
		Name:           row.Name,
		PublicName:     nullString(row.PublicName),
		ODSCode:        nullString(row.ODSCode),
		TypeID:         row.TypeID,
		Address:        nullString(row.Address),
		Town:           nullString(row.Town),
		Postcode:       nullString(row.Postcode),
		PublicPhone:    nullString(row.PublicPhone),
		NonPublicPhone: nullString(row.NonPublicPhone),
		Email:          nullString(row.Email),
		Web:            nullString(row.Web),
		Latitude:       nullString(row.Latitude),
		Longitude:      nullString(row.Longitude),
	}
	if row.StatusID.Valid {
		status := int(row.StatusID.Int64)
		service.StatusID = &status
	}
	if row.ModifiedTime.Valid {
		modified := row.ModifiedTime.Time
		service.ModifiedTime = &modified
	}
	return service
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func sqlbuilderArgs(ids []int) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

