package service_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/phs-web/phs-go/internal/auth"
	"github.com/phs-web/phs-go/internal/cache"
	"github.com/phs-web/phs-go/internal/model"
	"github.com/phs-web/phs-go/internal/service"
	"github.com/phs-web/phs-go/internal/store"
	"github.com/phs-web/phs-go/internal/testutil"
)

func TestEffectivePermissions_GroupUnion(t *testing.T) {
	// Teacher with no direct permissions, member of a group granting
	// edit_posts and create_posts.
	db := testutil.TestDB(t)
	ctx := context.Background()

	userID := testutil.CreateUser(t, db, "teacher1", model.RoleTeacher, 0)
	groupID := testutil.CreateGroup(t, db, "writers", auth.NewPermissionSet(auth.PermEditPosts, auth.PermCreatePosts))
	testutil.AddToGroup(t, db, userID, groupID)

	svc := service.NewPermissionService(db, nil, 0)

	got, err := svc.EffectivePermissions(ctx, userID)
	if err != nil {
		t.Fatalf("EffectivePermissions: %v", err)
	}
	want := auth.NewPermissionSet(auth.PermEditPosts, auth.PermCreatePosts)
	if got != want {
		t.Errorf("effective = %q, want %q", got, want)
	}
}

func TestEffectivePermissions_AllSources(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	userID := testutil.CreateUser(t, db, "teacher2", model.RoleTeacher, auth.NewPermissionSet(auth.PermManagePages))
	g1 := testutil.CreateGroup(t, db, "writers", auth.NewPermissionSet(auth.PermEditPosts))
	g2 := testutil.CreateGroup(t, db, "catalogers", auth.NewPermissionSet(auth.PermEditCategories))
	testutil.AddToGroup(t, db, userID, g1)
	testutil.AddToGroup(t, db, userID, g2)

	svc := service.NewPermissionService(db, nil, 0)

	got, err := svc.EffectivePermissions(ctx, userID)
	if err != nil {
		t.Fatalf("EffectivePermissions: %v", err)
	}

	// The effective set is a superset of the direct grants and of every
	// joined group's permissions.
	user, _ := store.New(db).GetUserByID(ctx, userID)
	if !got.ContainsAll(user.Permissions) {
		t.Error("effective set is not a superset of direct permissions")
	}
	groups, _ := store.New(db).GetUserGroups(ctx, userID)
	for _, g := range groups {
		if !got.ContainsAll(g.Permissions) {
			t.Errorf("effective set is not a superset of group %q", g.Name)
		}
	}

	want := auth.NewPermissionSet(auth.PermManagePages, auth.PermEditPosts, auth.PermEditCategories)
	if got != want {
		t.Errorf("effective = %q, want %q", got, want)
	}
}

func TestEffectivePermissions_AdminOverride(t *testing.T) {
	// Admins get the full vocabulary regardless of grants and memberships.
	db := testutil.TestDB(t)
	ctx := context.Background()

	userID := testutil.CreateUser(t, db, "root", model.RoleAdmin, 0)
	svc := service.NewPermissionService(db, nil, 0)

	got, err := svc.EffectivePermissions(ctx, userID)
	if err != nil {
		t.Fatalf("EffectivePermissions: %v", err)
	}
	if got != auth.AllPermissions() {
		t.Errorf("effective = %q, want full enumeration", got)
	}
}

func TestEffectivePermissions_UnknownUser(t *testing.T) {
	db := testutil.TestDB(t)
	svc := service.NewPermissionService(db, nil, 0)

	_, err := svc.EffectivePermissions(context.Background(), 4242)
	if !errors.Is(err, service.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestEffectivePermissions_CachedAndUncachedAgree(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	userID := testutil.CreateUser(t, db, "teacher3", model.RoleTeacher, auth.NewPermissionSet(auth.PermCreatePosts))
	groupID := testutil.CreateGroup(t, db, "editors", auth.NewPermissionSet(auth.PermEditPosts))
	testutil.AddToGroup(t, db, userID, groupID)

	mem := cache.NewMemoryCache(time.Minute, 0)
	defer func() { _ = mem.Close() }()

	cached := service.NewPermissionService(db, mem, 0)
	uncached := service.NewPermissionService(db, nil, 0)

	a, err := cached.EffectivePermissions(ctx, userID)
	if err != nil {
		t.Fatalf("cached: %v", err)
	}
	// Second call hits the cache.
	b, err := cached.EffectivePermissions(ctx, userID)
	if err != nil {
		t.Fatalf("cached (warm): %v", err)
	}
	c, err := uncached.EffectivePermissions(ctx, userID)
	if err != nil {
		t.Fatalf("uncached: %v", err)
	}

	if a != b || b != c {
		t.Errorf("cached/warm/uncached disagree: %q / %q / %q", a, b, c)
	}

	if stats := mem.Stats(); stats.Hits == 0 {
		t.Error("second resolution did not hit the cache")
	}
}

func TestEffectivePermissions_EagerInvalidation(t *testing.T) {
	// A group permission edit followed by InvalidateAll is visible on the
	// next resolution even inside the TTL window.
	db := testutil.TestDB(t)
	ctx := context.Background()
	queries := store.New(db)

	userID := testutil.CreateUser(t, db, "teacher4", model.RoleTeacher, 0)
	groupID := testutil.CreateGroup(t, db, "editors", auth.NewPermissionSet(auth.PermEditPosts))
	testutil.AddToGroup(t, db, userID, groupID)

	mem := cache.NewMemoryCache(time.Hour, 0) // TTL long enough to never expire in-test
	defer func() { _ = mem.Close() }()
	svc := service.NewPermissionService(db, mem, time.Hour)

	before, err := svc.EffectivePermissions(ctx, userID)
	if err != nil {
		t.Fatalf("EffectivePermissions: %v", err)
	}
	if !before.Contains(auth.PermEditPosts) {
		t.Fatalf("precondition: effective = %q", before)
	}

	if _, err := queries.UpdateGroup(ctx, groupID, "editors", auth.NewPermissionSet(auth.PermManagePages)); err != nil {
		t.Fatalf("UpdateGroup: %v", err)
	}
	svc.InvalidateAll(ctx)

	after, err := svc.EffectivePermissions(ctx, userID)
	if err != nil {
		t.Fatalf("EffectivePermissions: %v", err)
	}
	want := auth.NewPermissionSet(auth.PermManagePages)
	if after != want {
		t.Errorf("effective after invalidation = %q, want %q", after, want)
	}
}

func TestEffectivePermissions_SingleUserInvalidation(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()
	queries := store.New(db)

	userID := testutil.CreateUser(t, db, "teacher5", model.RoleTeacher, 0)

	mem := cache.NewMemoryCache(time.Hour, 0)
	defer func() { _ = mem.Close() }()
	svc := service.NewPermissionService(db, mem, time.Hour)

	if _, err := svc.EffectivePermissions(ctx, userID); err != nil {
		t.Fatalf("EffectivePermissions: %v", err)
	}

	if err := queries.UpdateUserPermissions(ctx, userID, auth.NewPermissionSet(auth.PermCreatePosts)); err != nil {
		t.Fatalf("UpdateUserPermissions: %v", err)
	}
	svc.Invalidate(ctx, userID)

	got, err := svc.EffectivePermissions(ctx, userID)
	if err != nil {
		t.Fatalf("EffectivePermissions: %v", err)
	}
	if !got.Contains(auth.PermCreatePosts) {
		t.Errorf("effective = %q, want create_posts after invalidation", got)
	}
}

func TestEffectivePermissions_CorruptCacheEntry(t *testing.T) {
	// A corrupt cache entry is discarded and resolution falls back to the
	// store.
	db := testutil.TestDB(t)
	ctx := context.Background()

	userID := testutil.CreateUser(t, db, "teacher6", model.RoleTeacher, auth.NewPermissionSet(auth.PermEditPosts))

	mem := cache.NewMemoryCache(time.Hour, 0)
	defer func() { _ = mem.Close() }()
	svc := service.NewPermissionService(db, mem, time.Hour)

	key := "perms:" + strconv.FormatInt(userID, 10)
	if err := mem.Set(ctx, key, []byte("not,real,permissions"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := svc.EffectivePermissions(ctx, userID)
	if err != nil {
		t.Fatalf("EffectivePermissions: %v", err)
	}
	want := auth.NewPermissionSet(auth.PermEditPosts)
	if got != want {
		t.Errorf("effective = %q, want %q", got, want)
	}
}
