package settings

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-tax/internal/meta/propertysetter"
	"github.com/odyssey-erp/odyssey-tax/internal/shared"
)

type mockRepository struct {
	stored   AccountsSettings
	defaults map[string]string
	setters  map[string]propertysetter.Setter
	audits   []shared.AuditLog
	txError  error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		stored:   Defaults(),
		defaults: map[string]string{},
		setters:  map[string]propertysetter.Setter{},
	}
}

func (m *mockRepository) Get(context.Context) (AccountsSettings, error) {
	return m.stored, nil
}

func (m *mockRepository) ListPropertySetters(_ context.Context, doctype string) ([]propertysetter.Setter, error) {
	var out []propertysetter.Setter
	for _, s := range m.setters {
		if s.DocType == doctype {
			out = append(out, s)
		}
	}
	return out, nil
}

// WithTx stages writes and applies them only when fn succeeds.
func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.txError != nil {
		return m.txError
	}
	tx := &mockTx{defaults: map[string]string{}, setters: map[string]propertysetter.Setter{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for k, v := range tx.defaults {
		m.defaults[k] = v
	}
	for k, v := range tx.setters {
		m.setters[k] = v
	}
	if tx.saved != nil {
		m.stored = *tx.saved
	}
	m.audits = append(m.audits, tx.audits...)
	return nil
}

type mockTx struct {
	defaults map[string]string
	setters  map[string]propertysetter.Setter
	saved    *AccountsSettings
	audits   []shared.AuditLog
}

func (t *mockTx) SetDefault(_ context.Context, key, value string) error {
	t.defaults[key] = value
	return nil
}

func (t *mockTx) Make(_ context.Context, s propertysetter.Setter) error {
	s, err := s.Normalize()
	if err != nil {
		return err
	}
	t.setters[s.DocType+"|"+s.FieldName+"|"+s.Property] = s
	return nil
}

func (t *mockTx) SaveSettings(_ context.Context, doc AccountsSettings) error {
	t.saved = &doc
	return nil
}

func (t *mockTx) RecordAudit(_ context.Context, log shared.AuditLog) error {
	t.audits = append(t.audits, log)
	return nil
}

type fakeCache struct {
	bumps int
	err   error
}

func (f *fakeCache) Bump(context.Context) error {
	f.bumps++
	return f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServiceSavePersistsAndBumpsCache(t *testing.T) {
	repo := newMockRepository()
	cache := &fakeCache{}
	svc := NewService(repo, cache, testLogger())

	doc := Defaults()
	doc.EnableDiscountAccounting = true
	doc.StaleDays = 5

	saved, err := svc.Save(context.Background(), 42, doc)
	require.NoError(t, err)
	assert.True(t, saved.EnableDiscountAccounting)
	assert.Equal(t, 5, saved.StaleDays)
	assert.Equal(t, 1, cache.bumps)
	assert.Equal(t, "1", repo.defaults[DefaultAddTaxesFromItemTaxTemplate])
	assert.Equal(t, "0", repo.setters["Item|default_discount_account|hidden"].Value)
	require.Len(t, repo.audits, 1)
	assert.Equal(t, int64(42), repo.audits[0].ActorID)
	assert.Equal(t, "accounts_settings", repo.audits[0].Entity)
}

func TestServiceSaveRollsBackOnValidationFailure(t *testing.T) {
	repo := newMockRepository()
	cache := &fakeCache{}
	svc := NewService(repo, cache, testLogger())

	_, err := svc.Save(context.Background(), 1, AccountsSettings{AllowStale: false, StaleDays: 0})
	require.ErrorIs(t, err, ErrStaleDays)
	assert.Empty(t, repo.defaults)
	assert.Empty(t, repo.setters)
	assert.Empty(t, repo.audits)
	assert.Zero(t, cache.bumps)
}

func TestServiceSaveToleratesCacheFailure(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, &fakeCache{err: errors.New("redis down")}, testLogger())

	_, err := svc.Save(context.Background(), 1, Defaults())
	require.NoError(t, err)
}

func TestServicePropertySettersRequiresDocType(t *testing.T) {
	svc := NewService(newMockRepository(), nil, testLogger())
	_, err := svc.PropertySetters(context.Background(), "")
	require.ErrorIs(t, err, shared.ErrValidation)
}
