package bootstrap

import (
	"testing"

	userstore "github.com/lgsf/teamhub/internal/app/store/users"
	"github.com/lgsf/teamhub/internal/domain/models"
	"github.com/lgsf/teamhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func TestEnsureSuperAdmin_CreatesNew(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{MongoDatabase: db}

	if err := ensureSuperAdmin(ctx, deps, "superadmin@test.com", zap.NewNop()); err != nil {
		t.Fatalf("ensureSuperAdmin failed: %v", err)
	}

	var user models.User
	err := db.Collection("users").FindOne(ctx, bson.M{"email": "superadmin@test.com"}).Decode(&user)
	if err != nil {
		t.Fatalf("failed to find created user: %v", err)
	}

	if user.Role != "superadmin" {
		t.Errorf("expected role 'superadmin', got %q", user.Role)
	}
	if user.Status != "active" {
		t.Errorf("expected status 'active', got %q", user.Status)
	}
}

func TestEnsureSuperAdmin_PromotesExisting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	existing, err := userstore.New(db).Create(ctx, models.User{
		AuthSubject: "google-existing",
		Email:       "existing@test.com",
		FullName:    "Existing User",
		Role:        "user",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	deps := DBDeps{MongoDatabase: db}
	if err := ensureSuperAdmin(ctx, deps, "Existing@Test.com", zap.NewNop()); err != nil {
		t.Fatalf("ensureSuperAdmin failed: %v", err)
	}

	var user models.User
	err = db.Collection("users").FindOne(ctx, bson.M{"_id": existing.ID}).Decode(&user)
	if err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if user.Role != "superadmin" {
		t.Errorf("expected promotion to superadmin, got %q", user.Role)
	}
}

func TestEnsureSuperAdmin_AlreadySuperAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := userstore.New(db).Create(ctx, models.User{
		AuthSubject: "google-root",
		Email:       "root@test.com",
		FullName:    "Root",
		Role:        "superadmin",
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	deps := DBDeps{MongoDatabase: db}
	if err := ensureSuperAdmin(ctx, deps, "root@test.com", zap.NewNop()); err != nil {
		t.Fatalf("ensureSuperAdmin failed: %v", err)
	}

	n, err := db.Collection("users").CountDocuments(ctx, bson.M{"role": "superadmin"})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected exactly 1 superadmin, got %d", n)
	}
}
