package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/escrow-marketplace/internal/models"
)

func TestStorage_CreatePayment_IdempotentByProviderID(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	studentID := factory.CreateUser(t, "pi-student-1", "alice", "", "student")
	teacherID := factory.CreateUser(t, "pi-teacher-1", "bob", "wallet-bob", "teacher")

	ctx := context.Background()

	first, err := storage.CreatePayment(ctx, "pi-pay-1", studentID, "escrow-account", teacherID, 10)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, first.Status)
	assert.Equal(t, "escrow-account", first.PayeeID)
	assert.Equal(t, teacherID, first.PayeeTeacherID)

	// Повторный approve того же платежа возвращает ту же строку
	second, err := storage.CreatePayment(ctx, "pi-pay-1", studentID, "escrow-account", teacherID, 10)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int
	err = storage.DB.QueryRow("SELECT COUNT(*) FROM payments WHERE pi_payment_id = 'pi-pay-1'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStorage_MarkPaymentReleased(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	studentID := factory.CreateUser(t, "pi-student-1", "alice", "", "student")
	teacherID := factory.CreateUser(t, "pi-teacher-1", "bob", "wallet-bob", "teacher")
	serviceID := factory.CreateService(t, teacherID, "Algebra lessons", 10)
	subID := factory.CreateSubscription(t, studentID, teacherID, serviceID, "monthly", "pending", 10, time.Now().AddDate(0, 1, 0))
	factory.CreatePayment(t, "pi-pay-1", studentID, "escrow-account", teacherID, "pending", 10)

	ctx := context.Background()

	released, err := storage.MarkPaymentReleased(ctx, "pi-pay-1", subID, "txid-1", "wallet-alice", "wallet-app", teacherID)
	require.NoError(t, err)
	require.NotNil(t, released)
	assert.Equal(t, models.PaymentStatusReleased, released.Status)
	assert.Equal(t, teacherID, released.PayeeID)
	require.NotNil(t, released.Txid)
	assert.Equal(t, "txid-1", *released.Txid)
	require.NotNil(t, released.SubscriptionID)
	assert.Equal(t, subID, *released.SubscriptionID)

	// Условный UPDATE не находит уже released строку
	again, err := storage.MarkPaymentReleased(ctx, "pi-pay-1", subID, "txid-2", "", "", teacherID)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestStorage_ReleaseSubscriptionPayments_Idempotent(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	studentID := factory.CreateUser(t, "pi-student-1", "alice", "", "student")
	teacherID := factory.CreateUser(t, "pi-teacher-1", "bob", "wallet-bob", "teacher")
	serviceID := factory.CreateService(t, teacherID, "Algebra lessons", 10)
	subID := factory.CreateSubscription(t, studentID, teacherID, serviceID, "monthly", "pending", 10, time.Now().AddDate(0, 1, 0))

	p1 := factory.CreatePayment(t, "pi-pay-1", studentID, "escrow-account", teacherID, "pending", 10)
	p2 := factory.CreatePayment(t, "pi-pay-2", studentID, "escrow-account", teacherID, "pending", 10)
	p3 := factory.CreatePayment(t, "pi-pay-3", studentID, teacherID, teacherID, "refunded", 10)
	factory.AttachPaymentToSubscription(t, p1, subID)
	factory.AttachPaymentToSubscription(t, p2, subID)
	factory.AttachPaymentToSubscription(t, p3, subID)

	ctx := context.Background()

	released, err := storage.ReleaseSubscriptionPayments(ctx, subID, teacherID)
	require.NoError(t, err)
	assert.Len(t, released, 2)
	for _, p := range released {
		assert.Equal(t, models.PaymentStatusReleased, p.Status)
		assert.Equal(t, teacherID, p.PayeeID)
	}

	// Возвращённый платёж не трогаем
	refunded, found, err := storage.GetPaymentByProviderID(ctx, "pi-pay-3")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.Status)

	// Повторный релиз ничего не меняет
	again, err := storage.ReleaseSubscriptionPayments(ctx, subID, teacherID)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestStorage_ClaimPayoutKey_WrittenOnce(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	studentID := factory.CreateUser(t, "pi-student-1", "alice", "", "student")
	teacherID := factory.CreateUser(t, "pi-teacher-1", "bob", "wallet-bob", "teacher")
	paymentID := factory.CreatePayment(t, "pi-pay-1", studentID, teacherID, teacherID, "released", 10)

	ctx := context.Background()

	first, err := storage.ClaimPayoutKey(ctx, paymentID, uuid.New().String())
	require.NoError(t, err)
	require.NotEmpty(t, first)

	// Повторная попытка получает тот же ключ, а не новый
	second, err := storage.ClaimPayoutKey(ctx, paymentID, uuid.New().String())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStorage_MarkPaymentCompleted_WinsOnce(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	studentID := factory.CreateUser(t, "pi-student-1", "alice", "", "student")
	teacherID := factory.CreateUser(t, "pi-teacher-1", "bob", "wallet-bob", "teacher")
	paymentID := factory.CreatePayment(t, "pi-pay-1", studentID, teacherID, teacherID, "released", 10)

	ctx := context.Background()

	marked, err := storage.MarkPaymentCompleted(ctx, paymentID)
	require.NoError(t, err)
	assert.True(t, marked)

	// Второй проход свипера проигрывает условному UPDATE
	marked, err = storage.MarkPaymentCompleted(ctx, paymentID)
	require.NoError(t, err)
	assert.False(t, marked)

	payment, found, err := storage.GetPaymentByProviderID(ctx, "pi-pay-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	assert.NotNil(t, payment.PaidAt)
}

func TestStorage_ListUnsettledPayments(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	studentID := factory.CreateUser(t, "pi-student-1", "alice", "", "student")
	teacherID := factory.CreateUser(t, "pi-teacher-1", "bob", "wallet-bob", "teacher")
	factory.CreatePayment(t, "pi-pay-1", studentID, teacherID, teacherID, "released", 10)
	factory.CreatePayment(t, "pi-pay-2", studentID, "escrow-account", teacherID, "pending", 10)
	settled := factory.CreatePayment(t, "pi-pay-3", studentID, teacherID, teacherID, "released", 10)

	ctx := context.Background()

	marked, err := storage.MarkPaymentCompleted(ctx, settled)
	require.NoError(t, err)
	require.True(t, marked)

	unsettled, err := storage.ListUnsettledPayments(ctx)
	require.NoError(t, err)
	require.Len(t, unsettled, 1)
	assert.Equal(t, "pi-pay-1", unsettled[0].PiPaymentID)
}

func TestStorage_MarkPaymentRefunded(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	studentID := factory.CreateUser(t, "pi-student-1", "alice", "", "student")
	teacherID := factory.CreateUser(t, "pi-teacher-1", "bob", "wallet-bob", "teacher")
	factory.CreatePayment(t, "pi-pay-1", studentID, "escrow-account", teacherID, "pending", 10)
	completed := factory.CreatePayment(t, "pi-pay-2", studentID, teacherID, teacherID, "released", 10)

	ctx := context.Background()

	refunded, err := storage.MarkPaymentRefunded(ctx, "pi-pay-1", "refund-txid-1")
	require.NoError(t, err)
	require.NotNil(t, refunded)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.Status)
	require.NotNil(t, refunded.RefundTxid)
	assert.Equal(t, "refund-txid-1", *refunded.RefundTxid)

	// Выплаченный платёж вернуть нельзя
	marked, err := storage.MarkPaymentCompleted(ctx, completed)
	require.NoError(t, err)
	require.True(t, marked)

	again, err := storage.MarkPaymentRefunded(ctx, "pi-pay-2", "refund-txid-2")
	require.NoError(t, err)
	assert.Nil(t, again)

	// Повторный возврат того же платежа тоже не проходит
	again, err = storage.MarkPaymentRefunded(ctx, "pi-pay-1", "refund-txid-3")
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestStorage_CreateUser_NoDuplicatesOnConflict(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()

	first, err := storage.CreateUser(ctx, "pi-uid-1", "alice", "wallet-alice", "student")
	require.NoError(t, err)
	assert.Equal(t, "pi-uid-1", first.PlatformUID)
	assert.Equal(t, "wallet-alice", first.WalletAddress)

	second, err := storage.CreateUser(ctx, "pi-uid-1", "other-name", "", "student")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "alice", second.Username)
}

func TestStorage_UpdateUserWallet(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	userID := factory.CreateUser(t, "pi-uid-1", "alice", "", "student")

	ctx := context.Background()

	require.NoError(t, storage.UpdateUserWallet(ctx, userID, "wallet-alice"))

	user, found, err := storage.GetUserByID(ctx, userID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "wallet-alice", user.WalletAddress)

	// Пустой и неизвестный адрес не затирают уже известный
	require.NoError(t, storage.UpdateUserWallet(ctx, userID, ""))
	require.NoError(t, storage.UpdateUserWallet(ctx, userID, "unknown"))

	user, _, err = storage.GetUserByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "wallet-alice", user.WalletAddress)
}

func TestStorage_SubscriptionLifecycle(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	studentID := factory.CreateUser(t, "pi-student-1", "alice", "", "student")
	teacherID := factory.CreateUser(t, "pi-teacher-1", "bob", "wallet-bob", "teacher")
	serviceID := factory.CreateService(t, teacherID, "Algebra lessons", 10)

	ctx := context.Background()

	sub, err := storage.CreateSubscription(ctx, studentID, teacherID, serviceID, "monthly", 10, time.Now().AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusPending, sub.Status)

	activated, err := storage.ActivateSubscription(ctx, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, activated)
	assert.Equal(t, models.SubscriptionStatusActive, activated.Status)

	// Повторная активация возвращает ту же строку
	again, err := storage.ActivateSubscription(ctx, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, models.SubscriptionStatusActive, again.Status)

	require.NoError(t, storage.CancelSubscription(ctx, sub.ID))

	// Отменённая подписка не реанимируется
	revived, err := storage.ActivateSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Nil(t, revived)

	entries, err := storage.ListSubscriptionsByUser(ctx, studentID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Algebra lessons", entries[0].ServiceName)
	assert.Equal(t, models.SubscriptionStatusCancelled, entries[0].Status)
}

func TestStorage_ActivateSubscription_NotFound(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	sub, err := storage.ActivateSubscription(context.Background(), uuid.New().String())
	require.NoError(t, err)
	assert.Nil(t, sub)
}
