package app_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rms_sync/internal/app"
	"rms_sync/internal/domain"
)

// ---- fakes ----

type closeCall struct {
	id     int64
	status domain.RunStatus
	errMsg *string
	meta   domain.RunMeta
}

type fakeRepo struct {
	hotelID       int64
	upsertHotelErr error
	hotelCalls    int

	openRuns   []domain.ImportRun
	openRunErr error

	closeCalls []closeCall

	insertCalls int
	insertErrOn map[int]error
	inserted    map[string]int

	competitorCalls [][]string
	competitorsErr  error
}

func (f *fakeRepo) UpsertHotel(ctx context.Context, code string, nom *string) (int64, error) {
	f.hotelCalls++
	if f.upsertHotelErr != nil {
		return 0, f.upsertHotelErr
	}
	return f.hotelID, nil
}

func (f *fakeRepo) OpenRun(ctx context.Context, run domain.ImportRun) (int64, error) {
	if f.openRunErr != nil {
		return 0, f.openRunErr
	}
	f.openRuns = append(f.openRuns, run)
	return int64(len(f.openRuns)), nil
}

func (f *fakeRepo) CloseRun(ctx context.Context, id int64, status domain.RunStatus, errMsg *string, meta domain.RunMeta) error {
	f.closeCalls = append(f.closeCalls, closeCall{id: id, status: status, errMsg: errMsg, meta: meta})
	return nil
}

func (f *fakeRepo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) error {
	f.insertCalls++
	if err, ok := f.insertErrOn[f.insertCalls]; ok {
		return err
	}
	if f.inserted == nil {
		f.inserted = map[string]int{}
	}
	f.inserted[table] += len(rows)
	return nil
}

func (f *fakeRepo) UpsertCompetitors(ctx context.Context, hotelID int64, source string, names []string) error {
	if f.competitorsErr != nil {
		return f.competitorsErr
	}
	f.competitorCalls = append(f.competitorCalls, names)
	return nil
}

type fakeCache struct {
	store map[string]any
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *int64:
		*d = v.(int64)
	case *[]string:
		*d = v.([]string)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

func opener(wb domain.Workbook) domain.WorkbookOpener {
	return func(string) (domain.Workbook, error) { return wb, nil }
}

func eventsWorkbook() *fakeWorkbook {
	return &fakeWorkbook{
		sheets: []string{"Salons"},
		grids: map[string][][]string{
			"Salons": {
				{"Nom", "Date début"},
				{"Salon Auto", "16/01/2026"},
			},
		},
	}
}

// ---- tests ----

func TestRunSuccess(t *testing.T) {
	repo := &fakeRepo{hotelID: 9}
	wb := eventsWorkbook()
	svc := app.NewImportService(repo, nil, opener(wb), app.Config{})

	sum, err := svc.Run(context.Background(), app.Job{
		File: "/tmp/salons.xlsx", Template: domain.TemplateEvents, HotelCode: "HX",
	})
	require.NoError(t, err)
	assert.Equal(t, "success", sum.Status)
	assert.Equal(t, 1, sum.RowsInserted)
	assert.Equal(t, 0, sum.RowErrors)
	assert.True(t, wb.closed)

	require.Len(t, repo.openRuns, 1)
	assert.Equal(t, domain.TemplateEvents, repo.openRuns[0].Template)
	assert.Equal(t, "salons.xlsx", repo.openRuns[0].SourceFile)
	assert.NotEmpty(t, repo.openRuns[0].UID)

	require.Len(t, repo.closeCalls, 1)
	assert.Equal(t, domain.RunSuccess, repo.closeCalls[0].status)
	assert.Nil(t, repo.closeCalls[0].errMsg)
	assert.Empty(t, repo.competitorCalls)
}

func TestRunErrorRateGate(t *testing.T) {
	rows := [][]string{{"Client"}}
	for i := 0; i < 1200; i++ {
		rows = append(rows, []string{"client " + strconv.Itoa(i)})
	}
	wb := &fakeWorkbook{sheets: []string{"Export"}, grids: map[string][][]string{"Export": rows}}

	repo := &fakeRepo{
		hotelID:     9,
		insertErrOn: map[int]error{2: errors.New("duplicate entry")},
	}
	svc := app.NewImportService(repo, nil, opener(wb), app.Config{BatchSize: 500})

	sum, err := svc.Run(context.Background(), app.Job{
		File: "resa.xlsx", Template: domain.TemplateBookings, HotelCode: "HX",
	})
	require.NoError(t, err, "a lost batch is not a fatal error")
	assert.Equal(t, "failed", sum.Status, "40% loss is over the tolerance")
	assert.Equal(t, 700, sum.RowsInserted)
	assert.Equal(t, 500, sum.RowErrors)
	assert.InDelta(t, 500.0/1200.0, sum.ErrorRate, 1e-9)

	require.Len(t, repo.closeCalls, 1)
	cc := repo.closeCalls[0]
	assert.Equal(t, domain.RunFailed, cc.status)
	require.NotNil(t, cc.errMsg)
	assert.Contains(t, *cc.errMsg, "batch 2")
	assert.Equal(t, 500.0/1200.0, cc.meta.ErrorRate)
}

func TestRunSingleBatchFailureUnderTolerance(t *testing.T) {
	rows := [][]string{{"Client"}}
	for i := 0; i < 1200; i++ {
		rows = append(rows, []string{"x"})
	}
	wb := &fakeWorkbook{sheets: []string{"Export"}, grids: map[string][][]string{"Export": rows}}

	repo := &fakeRepo{hotelID: 9, insertErrOn: map[int]error{2: errors.New("deadlock")}}
	svc := app.NewImportService(repo, nil, opener(wb), app.Config{BatchSize: 500, ErrorRateMax: 0.5})

	sum, err := svc.Run(context.Background(), app.Job{
		File: "resa.xlsx", Template: domain.TemplateBookings, HotelCode: "HX",
	})
	require.NoError(t, err)
	assert.Equal(t, "success", sum.Status, "under the tolerance the run still succeeds")
	require.Len(t, repo.closeCalls, 1)
	require.NotNil(t, repo.closeCalls[0].errMsg, "the batch failure is still recorded")
}

func TestRunUnknownTemplate(t *testing.T) {
	repo := &fakeRepo{hotelID: 9}
	svc := app.NewImportService(repo, nil, opener(eventsWorkbook()), app.Config{})

	sum, err := svc.Run(context.Background(), app.Job{
		File: "f.xlsx", Template: "mystere", HotelCode: "HX",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, app.ErrUnknownTemplate))
	assert.Equal(t, "failed", sum.Status)
	require.Len(t, repo.closeCalls, 1)
	assert.Equal(t, domain.RunFailed, repo.closeCalls[0].status)
}

func TestRunHotelResolveFailure(t *testing.T) {
	repo := &fakeRepo{upsertHotelErr: errors.New("db down")}
	svc := app.NewImportService(repo, nil, opener(eventsWorkbook()), app.Config{})

	_, err := svc.Run(context.Background(), app.Job{
		File: "f.xlsx", Template: domain.TemplateEvents, HotelCode: "HX",
	})
	require.Error(t, err)
	assert.Empty(t, repo.openRuns, "no run record before the hotel resolves")
	assert.Empty(t, repo.closeCalls)
}

func TestRunWorkbookOpenFailure(t *testing.T) {
	repo := &fakeRepo{hotelID: 9}
	open := func(string) (domain.Workbook, error) { return nil, errors.New("not a zip") }
	svc := app.NewImportService(repo, nil, open, app.Config{})

	sum, err := svc.Run(context.Background(), app.Job{
		File: "f.xlsx", Template: domain.TemplateEvents, HotelCode: "HX",
	})
	require.Error(t, err)
	assert.Equal(t, "failed", sum.Status)
	require.Len(t, repo.closeCalls, 1, "the run record is closed even on fatal errors")
	assert.Equal(t, domain.RunFailed, repo.closeCalls[0].status)
}

func TestRunHotelFromCache(t *testing.T) {
	repo := &fakeRepo{hotelID: 9}
	cache := &fakeCache{store: map[string]any{"hotel:HX": int64(42)}}
	svc := app.NewImportService(repo, cache, opener(eventsWorkbook()), app.Config{})

	_, err := svc.Run(context.Background(), app.Job{
		File: "f.xlsx", Template: domain.TemplateEvents, HotelCode: "HX",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, repo.hotelCalls, "cached hotel id skips the upsert")
}

func TestRunRegistersFreshCompetitorsOnly(t *testing.T) {
	wb := &fakeWorkbook{
		sheets: []string{"Tarifs"},
		grids: map[string][][]string{
			"Tarifs": {
				{"Date", "Hotel Y", "Hotel Z"},
				{"16/01/2026", "100", "110"},
			},
		},
	}
	repo := &fakeRepo{hotelID: 9}
	cache := &fakeCache{store: map[string]any{
		"competitors:9:" + domain.SourceOTA: []string{"Hotel Y"},
	}}
	svc := app.NewImportService(repo, cache, opener(wb), app.Config{})

	_, err := svc.Run(context.Background(), app.Job{
		File: "ota.xlsx", Template: domain.TemplateRateShop, HotelCode: "HX",
	})
	require.NoError(t, err)
	require.Len(t, repo.competitorCalls, 1)
	assert.Equal(t, []string{"Hotel Z"}, repo.competitorCalls[0])

	var all []string
	ok, _ := cache.Get(context.Background(), "competitors:9:"+domain.SourceOTA, &all)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"Hotel Y", "Hotel Z"}, all)
}

func TestRunCompetitorRegistrationFatal(t *testing.T) {
	wb := &fakeWorkbook{
		sheets: []string{"Tarifs"},
		grids: map[string][][]string{
			"Tarifs": {
				{"Date", "Hotel Y"},
				{"16/01/2026", "100"},
			},
		},
	}
	repo := &fakeRepo{hotelID: 9, competitorsErr: fmt.Errorf("reference table locked")}
	svc := app.NewImportService(repo, nil, opener(wb), app.Config{})

	sum, err := svc.Run(context.Background(), app.Job{
		File: "ota.xlsx", Template: domain.TemplateRateShop, HotelCode: "HX",
	})
	require.Error(t, err)
	assert.Equal(t, "failed", sum.Status)
}
