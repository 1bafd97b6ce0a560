package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"fitness-billing-be/internal/entity"
	"fitness-billing-be/internal/model"
	"fitness-billing-be/internal/pkg/logger"
	"fitness-billing-be/internal/repository/unitofwork"
	"fitness-billing-be/internal/service"
	"fitness-billing-be/pkg/billing"
	"fitness-billing-be/pkg/billing/lifecycle"
	"fitness-billing-be/pkg/database"
	"fitness-billing-be/pkg/phone"
	"fitness-billing-be/pkg/webhook"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const integrationSecret = "integration-secret"

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err, "Failed to connect to DB")
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Subscription{},
		&model.SubscriptionAuditEvent{},
		&model.BillingEventReceipt{},
	))
	require.NoError(t, db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_subscriptions_one_active
		 ON subscriptions (user_id) WHERE status = 'active'`).Error)
	return db
}

// uniquePhone keeps runs independent on a shared database.
func uniquePhone() string {
	return fmt.Sprintf("0803%07d", time.Now().UnixNano()%10_000_000)
}

type flow struct {
	t        *testing.T
	svc      service.IWebhookService
	verifier *webhook.Verifier
	uow      unitofwork.RepositoryFactory
	phone    string
}

func newFlow(t *testing.T) *flow {
	db := openDB(t)
	log := logger.NewNopLogger()
	factory := unitofwork.NewRepositoryFactory(db)
	verifier := webhook.NewVerifier(integrationSecret, false)
	svc := service.NewWebhookService(factory, lifecycle.NewManager(log), verifier, phone.NewFormatter("234"), nil, nil, log)
	return &flow{t: t, svc: svc, verifier: verifier, uow: factory, phone: uniquePhone()}
}

func (f *flow) send(eventType, ref string, amount int64) bool {
	f.t.Helper()
	raw := []byte(fmt.Sprintf(`{"type":%q,"telco":"MTN","product":{"id":"fit"},"details":{"phone":%q,"amount":%d,"telco_ref":%q,"telco_status_code":"00"}}`,
		eventType, f.phone, amount, ref))
	sig, err := f.verifier.Sign(raw)
	require.NoError(f.t, err)
	res, err := f.svc.HandleWebhook(context.Background(), raw, sig)
	require.NoError(f.t, err)
	require.True(f.t, res.Success, res.Message)
	return res.Duplicate
}

func (f *flow) user() *entity.User {
	f.t.Helper()
	u, err := f.uow.NewUnitOfWork(context.Background()).UserRepository().FindByPhone(context.Background(), phone.NewFormatter("234").Format(f.phone))
	require.NoError(f.t, err)
	require.NotNil(f.t, u)
	return u
}

func TestWebhookFlow_Postgres(t *testing.T) {
	f := newFlow(t)
	ref := fmt.Sprintf("IT-%d", time.Now().UnixNano())

	assert.False(t, f.send("SYNC_NOTIFICATION", ref+"-1", 50000))
	assert.True(t, f.send("SYNC_NOTIFICATION", ref+"-1", 50000), "replay should be a duplicate")

	u := f.user()
	assert.Equal(t, entity.SubscriptionStatusActive, u.SubscriptionStatus)
	assert.Equal(t, billing.PlanWeekly, u.SubscriptionPlan)

	f.send("INSUFFICIENT_BALANCE", ref+"-2", 0)
	assert.Equal(t, entity.SubscriptionStatusFailed, f.user().SubscriptionStatus)

	f.send("RENEWAL_NOTIFICATION", ref+"-3", 50000)
	assert.Equal(t, entity.SubscriptionStatusActive, f.user().SubscriptionStatus)

	f.send("UNSUBSCRIPTION_NOTIFICATION", ref+"-4", 0)
	u = f.user()
	assert.Equal(t, entity.SubscriptionStatusCancelled, u.SubscriptionStatus)

	rows, total, err := f.uow.NewUnitOfWork(context.Background()).SubscriptionRepository().FindHistory(context.Background(), u.Id, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].RenewalCount)
	assert.False(t, rows[0].AutoRenewal)
}

func TestWebhookFlow_ConcurrentDeliveries(t *testing.T) {
	f := newFlow(t)
	ref := fmt.Sprintf("IT-C-%d", time.Now().UnixNano())

	var wg sync.WaitGroup
	var mu sync.Mutex
	duplicates := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw := []byte(fmt.Sprintf(`{"type":"SYNC_NOTIFICATION","telco":"MTN","details":{"phone":%q,"amount":10000,"telco_ref":%q}}`, f.phone, ref))
			sig, _ := f.verifier.Sign(raw)
			res, err := f.svc.HandleWebhook(context.Background(), raw, sig)
			if err != nil || !res.Success {
				return
			}
			if res.Duplicate {
				mu.Lock()
				duplicates++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, duplicates)
	rows, total, err := f.uow.NewUnitOfWork(context.Background()).SubscriptionRepository().FindHistory(context.Background(), f.user().Id, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, rows, 1)
}
