package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumu-tech/digibill/internal/adapters/postgres"
	"github.com/dumu-tech/digibill/internal/core"
)

// setupTestRepo opens an in-memory sqlite database. A single connection is
// forced because each sqlite :memory: connection is its own database.
func setupTestRepo(t *testing.T) *postgres.Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := postgres.NewRepositoryWithDB(db)
	require.NoError(t, repo.AutoMigrate())
	return repo
}

// assertSheetRow checks the header and first data row of an exported workbook
func assertSheetRow(t *testing.T, buf *bytes.Buffer, header []string, firstRow []string) {
	t.Helper()

	workbook, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer workbook.Close()

	rows, err := workbook.GetRows(workbook.GetSheetName(0))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, firstRow, rows[1])
}

// fakeSMS records outbound messages; when failing is set every send errors
type fakeSMS struct {
	mu      sync.Mutex
	failing bool
	sent    []string
	done    chan struct{}
}

func newFakeSMS(failing bool) *fakeSMS {
	return &fakeSMS{failing: failing, done: make(chan struct{}, 16)}
}

func (f *fakeSMS) record(message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.done <- struct{}{} }()
	if f.failing {
		return errors.New("gateway down")
	}
	f.sent = append(f.sent, message)
	return nil
}

func (f *fakeSMS) SendBillLink(_ context.Context, phone, billID string) error {
	return f.record("bill-link:" + phone + ":" + billID)
}

func (f *fakeSMS) SendOTP(_ context.Context, phone, code string) error {
	return f.record("otp:" + phone + ":" + code)
}

func (f *fakeSMS) SendText(_ context.Context, phone, message string) error {
	return f.record("text:" + phone + ":" + message)
}

func (f *fakeSMS) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// fakeOTPStore is an in-memory core.OTPStore
type fakeOTPStore struct {
	mu    sync.Mutex
	codes map[string]string
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{codes: make(map[string]string)}
}

func (s *fakeOTPStore) Put(_ context.Context, phone, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[phone] = code
	return nil
}

func (s *fakeOTPStore) Get(_ context.Context, phone string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[phone]
	if !ok {
		return "", fmt.Errorf("no pending otp for %s: %w", phone, core.ErrNotFound)
	}
	return code, nil
}

func (s *fakeOTPStore) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, phone)
	return nil
}
