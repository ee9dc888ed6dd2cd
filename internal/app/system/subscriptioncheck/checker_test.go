package subscriptioncheck_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/cache"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/subscriptioncheck"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var now = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

type stubLoader struct {
	subs  map[primitive.ObjectID]models.Subscription
	calls int
}

func (s *stubLoader) GetByOrg(_ context.Context, orgID primitive.ObjectID) (models.Subscription, error) {
	s.calls++
	sub, ok := s.subs[orgID]
	if !ok {
		return models.Subscription{}, mongo.ErrNoDocuments
	}
	return sub, nil
}

func newChecker(t *testing.T, loader *stubLoader) *subscriptioncheck.Checker {
	t.Helper()
	c, err := cache.New(100)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return subscriptioncheck.New(loader, c, time.Minute, nil).WithClock(func() time.Time { return now })
}

func TestStatus_States(t *testing.T) {
	active, expired, missing := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	loader := &stubLoader{subs: map[primitive.ObjectID]models.Subscription{
		active:  {PlanType: models.PlanBasic, Status: models.SubscriptionActive, ExpiresAt: now.AddDate(0, 0, 10), MaxProperties: 10},
		expired: {PlanType: models.PlanBasic, Status: models.SubscriptionActive, ExpiresAt: now.AddDate(0, 0, -1)},
	}}
	c := newChecker(t, loader)
	ctx := context.Background()

	st, err := c.Status(ctx, active)
	require.NoError(t, err)
	assert.Equal(t, subscriptioncheck.StateActive, st.State)
	assert.Equal(t, 10, st.DaysLeft)
	assert.True(t, st.ExpiringSoon())
	assert.Equal(t, 10, st.MaxProperties)

	st, err = c.Status(ctx, expired)
	require.NoError(t, err)
	assert.Equal(t, subscriptioncheck.StateExpired, st.State)
	assert.False(t, st.Active())

	st, err = c.Status(ctx, missing)
	require.NoError(t, err)
	assert.Equal(t, subscriptioncheck.StateMissing, st.State)
}

func TestStatus_CachedUntilInvalidated(t *testing.T) {
	org := primitive.NewObjectID()
	loader := &stubLoader{subs: map[primitive.ObjectID]models.Subscription{
		org: {Status: models.SubscriptionActive, ExpiresAt: now.AddDate(1, 0, 0)},
	}}
	c := newChecker(t, loader)

	for i := 0; i < 3; i++ {
		_, err := c.Status(context.Background(), org)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, loader.calls)

	c.Invalidate(org)
	_, err := c.Status(context.Background(), org)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)
}

func TestRequireActiveSubscription(t *testing.T) {
	good, bad := primitive.NewObjectID(), primitive.NewObjectID()
	loader := &stubLoader{subs: map[primitive.ObjectID]models.Subscription{
		good: {Status: models.SubscriptionActive, ExpiresAt: now.AddDate(1, 0, 0)},
		bad:  {Status: models.SubscriptionExpired, ExpiresAt: now.AddDate(0, -1, 0)},
	}}
	c := newChecker(t, loader)
	sm := testutil.SessionManager(t)

	var sawReadOnly bool
	h := c.RequireActiveSubscription(sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawReadOnly = subscriptioncheck.ReadOnly(r)
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		user       *auth.SessionUser
		method     string
		path       string
		wantStatus int
		readOnly   bool
	}{
		{"active admin writes", testutil.Admin(good), http.MethodPost, "/meters", http.StatusOK, false},
		{"expired manager reads", testutil.Manager(bad), http.MethodGet, "/meters", http.StatusOK, true},
		{"expired manager writes", testutil.Manager(bad), http.MethodPost, "/meters", http.StatusSeeOther, false},
		{"expired manager signs out", testutil.Manager(bad), http.MethodPost, "/logout", http.StatusOK, true},
		{"expired admin changes password", testutil.Admin(bad), http.MethodPost, "/profile/password", http.StatusOK, true},
		{"expired admin lookalike path", testutil.Admin(bad), http.MethodPost, "/profiles", http.StatusSeeOther, false},
		{"superadmin bypasses", testutil.SuperAdmin(), http.MethodPost, "/meters", http.StatusOK, false},
		{"tenant bypasses", testutil.TenantUser(bad, primitive.NewObjectID(), primitive.NewObjectID()), http.MethodPost, "/meters", http.StatusOK, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sawReadOnly = false
			req := auth.WithTestUser(httptest.NewRequest(tt.method, tt.path, nil), tt.user)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.readOnly, sawReadOnly)
			} else {
				assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
			}
		})
	}
}

func TestBanner(t *testing.T) {
	ctx := subscriptioncheck.WithStatus(context.Background(), subscriptioncheck.Status{State: subscriptioncheck.StateExpired})
	assert.NotEmpty(t, subscriptioncheck.Banner(ctx))

	ctx = subscriptioncheck.WithStatus(context.Background(), subscriptioncheck.Status{State: subscriptioncheck.StateActive, DaysLeft: 200})
	assert.Empty(t, subscriptioncheck.Banner(ctx))

	assert.Empty(t, subscriptioncheck.Banner(context.Background()))
}
