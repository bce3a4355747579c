package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/nanogate/imagegate/internal/config"
	"github.com/nanogate/imagegate/internal/dispatch"
	"github.com/nanogate/imagegate/internal/models"
	"github.com/nanogate/imagegate/internal/quota"
	"github.com/nanogate/imagegate/internal/repository"
	"github.com/nanogate/imagegate/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type generationFixture struct {
	db       *storage.Postgres
	service  *GenerationService
	accounts *repository.AccountRepository
	calls    *int
}

func newGenerationFixture(t *testing.T, provider http.HandlerFunc) *generationFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	pg := &storage.Postgres{DB: db}
	require.NoError(t, pg.AutoMigrate())

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		provider(w, r)
	}))
	t.Cleanup(server.Close)

	configPath := filepath.Join(t.TempDir(), "config.json")
	doc := fmt.Sprintf(`{
		"api": {"base_url": %q, "model": "dall-e-3", "timeout": 5},
		"auth": {"api_key": "sk-test"}
	}`, server.URL)
	require.NoError(t, os.WriteFile(configPath, []byte(doc), 0644))

	manager, err := config.NewManager(configPath)
	require.NoError(t, err)

	dispatcher := dispatch.NewDispatcher(manager, dispatch.NewFailover(dispatch.NewHTTPExecutor()))

	accounts := repository.NewAccountRepository(pg)
	logs := repository.NewUsageLogRepository(pg)
	generations := repository.NewGenerationRepository(pg)

	svc := NewGenerationService(
		dispatcher,
		quota.NewLedger(accounts),
		quota.NewRateGate(logs),
		generations,
		func() string { return manager.Snapshot().API.Model },
	)

	return &generationFixture{
		db:       pg,
		service:  svc,
		accounts: accounts,
		calls:    &calls,
	}
}

func okProvider(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, `{"data":[{"url":"https://img.example/out.png"}]}`)
}

func TestGenerateSuccessRecordsUsageOnce(t *testing.T) {
	fx := newGenerationFixture(t, okProvider)

	result, err := fx.service.Generate(context.Background(), Identity{IP: "10.0.0.1"}, "a fox", dispatch.Options{})

	require.NoError(t, err)
	assert.Equal(t, "https://img.example/out.png", result.ImageRef)
	assert.Equal(t, "dall-e-3", result.Model)

	var usageCount, generationCount int64
	require.NoError(t, fx.db.DB.Model(&models.UsageLog{}).Count(&usageCount).Error)
	require.NoError(t, fx.db.DB.Model(&models.Generation{}).Count(&generationCount).Error)
	assert.Equal(t, int64(1), usageCount)
	assert.Equal(t, int64(1), generationCount)
}

func TestGenerateFailureChargesNothing(t *testing.T) {
	fx := newGenerationFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := fx.service.Generate(context.Background(), Identity{IP: "10.0.0.1"}, "a fox", dispatch.Options{})

	require.ErrorIs(t, err, ErrGenerationFailed)

	var usageCount, generationCount int64
	require.NoError(t, fx.db.DB.Model(&models.UsageLog{}).Count(&usageCount).Error)
	require.NoError(t, fx.db.DB.Model(&models.Generation{}).Count(&generationCount).Error)
	assert.Equal(t, int64(0), usageCount)
	assert.Equal(t, int64(0), generationCount)
}

func TestGenerateDeniedSkipsProvider(t *testing.T) {
	fx := newGenerationFixture(t, okProvider)

	account := &models.Account{
		Username:       "maxed-out",
		PasswordHash:   "x",
		QuotaLimit:     models.DefaultQuotaLimit,
		QuotaUsed:      models.DefaultQuotaLimit,
		LastQuotaReset: time.Now(),
	}
	require.NoError(t, fx.db.DB.Create(account).Error)

	_, err := fx.service.Generate(context.Background(), Identity{AccountID: &account.ID}, "a fox", dispatch.Options{})

	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Contains(t, denied.Reason, "Point quota exceeded")
	assert.Equal(t, 0, *fx.calls)
}

func TestGenerateAccountChargesQuotaAndFiresHook(t *testing.T) {
	fx := newGenerationFixture(t, okProvider)

	account := &models.Account{
		Username:       "charged",
		PasswordHash:   "x",
		QuotaLimit:     models.DefaultQuotaLimit,
		LastQuotaReset: time.Now(),
	}
	require.NoError(t, fx.db.DB.Create(account).Error)

	var invalidated []uuid.UUID
	fx.service.OnCharged(func(ctx context.Context, accountID uuid.UUID) {
		invalidated = append(invalidated, accountID)
	})

	result, err := fx.service.Generate(context.Background(), Identity{AccountID: &account.ID, IP: "10.0.0.1"}, "a fox", dispatch.Options{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Cost)

	stored, err := fx.accounts.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.QuotaUsed)
	assert.Equal(t, []uuid.UUID{account.ID}, invalidated)

	// Account charges never touch the anonymous usage log.
	var usageCount int64
	require.NoError(t, fx.db.DB.Model(&models.UsageLog{}).Count(&usageCount).Error)
	assert.Equal(t, int64(0), usageCount)
}

func TestModelClassCost(t *testing.T) {
	fx := newGenerationFixture(t, okProvider)

	assert.Equal(t, 2, fx.service.ModelClassCost("gemini-2.5-flash-image"))
	assert.Equal(t, 2, fx.service.ModelClassCost("nano-banana"))
	assert.Equal(t, 1, fx.service.ModelClassCost("dall-e-3"))
}
