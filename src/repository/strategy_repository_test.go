package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"alphamonitor/src/model"
)

func TestStrategyRepositorySearch(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&StrategyRepository{}).WithDB(mockDB)

	createdAt := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	strategyRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "name", "symbol", "status", "funding_value", "max_total_volume_usdt", "start_time", "end_time", "created_at", "updated_at"}).
			AddRow(2, "beta", "ETHUSDT", "active", "100", "5000", createdAt, createdAt.Add(48*time.Hour), createdAt.Add(time.Hour), createdAt.Add(time.Hour)).
			AddRow(1, "alpha", "BTCUSDT", "active", "50", "1000", createdAt, createdAt.Add(24*time.Hour), createdAt, createdAt)
	}

	t.Run("filters by status newest first", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "strategies" WHERE status = $1 ORDER BY created_at DESC`)).
			WithArgs("active").
			WillReturnRows(strategyRows())

		results, err := repo.Search(context.Background(), StrategyFilters{Status: "active"})
		if err != nil {
			t.Fatalf("unexpected error searching strategies: %v", err)
		}

		if len(results) != 2 {
			t.Fatalf("expected 2 strategies, got %d", len(results))
		}
		if results[0].Name != "beta" || results[1].Name != "alpha" {
			t.Fatalf("strategies not returned newest first: %+v", results)
		}
	})

	t.Run("applies symbol filter and pagination", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "name", "symbol", "status"}).
			AddRow(1, "alpha", "BTCUSDT", "active")
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "strategies" WHERE status = $1 AND symbol = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`)).
			WithArgs("active", "BTCUSDT", 10, 10).
			WillReturnRows(rows)

		results, err := repo.Search(context.Background(), StrategyFilters{
			Status: "active",
			Symbol: "BTCUSDT",
			Limit:  10,
			Offset: 10,
		})
		if err != nil {
			t.Fatalf("unexpected error searching strategies: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("expected 1 strategy, got %d", len(results))
		}
	})

	t.Run("query failure is tagged", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "strategies" ORDER BY created_at DESC`)).
			WillReturnError(gorm.ErrInvalidData)

		_, err := repo.Search(context.Background(), StrategyFilters{})
		if err == nil {
			t.Fatal("expected error")
		}
		var dae *DataAccessError
		if !errors.As(err, &dae) || dae.Op != "strategies.search" {
			t.Fatalf("expected tagged DataAccessError, got %v", err)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStrategyRepositoryCreateAndUpdateStatus(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&StrategyRepository{}).WithDB(mockDB)

	strategy := &model.Strategy{
		Name:               "alpha",
		Symbol:             "BTCUSDT",
		Status:             model.StrategyStatusActive,
		FundingType:        "fixed",
		FundingValue:       decimal.NewFromInt(100),
		MaxTotalVolumeUSDT: decimal.NewFromInt(10000),
		StartTime:          time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		EndTime:            time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "strategies"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	if err := repo.Create(context.Background(), strategy); err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}
	if strategy.ID != 7 {
		t.Fatalf("expected generated id 7, got %d", strategy.ID)
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "strategies" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.UpdateStatus(context.Background(), 7, model.StrategyStatusPaused); err != nil {
		t.Fatalf("expected status update to succeed, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}

func ptrTime(val time.Time) *time.Time {
	return &val
}
