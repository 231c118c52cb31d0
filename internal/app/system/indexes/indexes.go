// internal/app/system/indexes/indexes.go

// Package indexes creates and reconciles the MongoDB indexes TeamHub
// relies on. EnsureAll runs at startup; every ensure* function is
// idempotent, and errors are aggregated so any problem is visible and
// startup can fail fast.
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// EnsureAll reconciles indexes for every collection the app touches.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	var problems []string

	ensure := func(name string, fn func(context.Context, *mongo.Database, *zap.Logger) error) {
		if err := fn(ctx, db, logger); err != nil {
			problems = append(problems, name+": "+err.Error())
		}
	}

	ensure("users", ensureUsers)
	ensure("organizations", ensureOrganizations)
	ensure("org_memberships", ensureOrgMemberships)
	ensure("groups", ensureGroups)
	ensure("group_members", ensureGroupMembers)
	ensure("channel_members", ensureChannelMembers)
	ensure("notifications", ensureNotifications)
	ensure("oauth_states", ensureOAuthStates)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", k.Key, k.Value))
	}
	return strings.Join(parts, ",")
}

func sameUnique(a, b *bool) bool {
	av := a != nil && *a
	bv := b != nil && *b
	return av == bv
}

// ensureIndexSet reconciles one collection's indexes against the desired
// set. An existing index with the same key pattern and uniqueness is
// reused; a mismatched one is dropped and recreated under the desired
// name. Errors are collected per index so one failure doesn't hide the
// rest.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, logger *zap.Logger, models []mongo.IndexModel) error {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err == nil {
		for cur.Next(ctx) {
			var idx existingIndex
			if decErr := cur.Decode(&idx); decErr != nil {
				logger.Warn("failed to decode existing index",
					zap.String("collection", coll.Name()),
					zap.Error(decErr))
				continue
			}
			existing[keySig(idx.Key)] = idx
		}
		cur.Close(ctx)
	}

	var errs []string
	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			desiredUnique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))

		if ex, ok := existing[sig]; ok {
			if sameUnique(desiredUnique, ex.Unique) && (desiredName == "" || ex.Name == desiredName) {
				continue
			}
			// Uniqueness or name changed: drop and recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			continue
		}
		logger.Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", sig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func ensureUsers(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, logger, []mongo.IndexModel{
		// One account per OAuth principal.
		{
			Keys:    bson.D{{Key: "auth_subject", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_auth_subject"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Targeting queries filter on role+status (system alerts, platform
		// announcements).
		{
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "status", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_users_role_status_id"),
		},
		{
			Keys:    bson.D{{Key: "organization_id", Value: 1}},
			Options: options.Index().SetName("idx_users_org"),
		},
	})
}

func ensureOrganizations(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	c := db.Collection("organizations")
	return ensureIndexSet(ctx, c, logger, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_orgs_name"),
		},
	})
}

func ensureOrgMemberships(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	c := db.Collection("org_memberships")
	return ensureIndexSet(ctx, c, logger, []mongo.IndexModel{
		// Exactly one membership per (org, user); update the doc to change role.
		{
			Keys:    bson.D{{Key: "organization_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_om_org_user"),
		},
		// List an org's members segmented by role.
		{
			Keys: bson.D{
				{Key: "organization_id", Value: 1},
				{Key: "role", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().SetName("idx_om_org_role_user"),
		},
	})
}

func ensureGroups(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	c := db.Collection("groups")
	return ensureIndexSet(ctx, c, logger, []mongo.IndexModel{
		// Multi-group targeting lists active groups by type.
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "is_active", Value: 1}},
			Options: options.Index().SetName("idx_groups_type_active"),
		},
		{
			Keys:    bson.D{{Key: "is_active", Value: 1}, {Key: "organization_id", Value: 1}},
			Options: options.Index().SetName("idx_groups_active_org"),
		},
	})
}

func ensureGroupMembers(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	c := db.Collection("group_members")
	return ensureIndexSet(ctx, c, logger, []mongo.IndexModel{
		// One membership row per (group, user); rejoin reactivates it.
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_gm_group_user"),
		},
		// Fan-out lists active members of a group.
		{
			Keys: bson.D{
				{Key: "group_id", Value: 1},
				{Key: "status", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().SetName("idx_gm_group_status_user"),
		},
		// A user's groups.
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_gm_user_status"),
		},
	})
}

func ensureChannelMembers(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	c := db.Collection("channel_members")
	return ensureIndexSet(ctx, c, logger, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "channel_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_cm_channel_user"),
		},
	})
}

func ensureNotifications(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	c := db.Collection("notifications")
	return ensureIndexSet(ctx, c, logger, []mongo.IndexModel{
		// Keyset pagination: per-user feed newest-first on _id.
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_notifications_user_id_desc"),
		},
		// Unread badge counts.
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "read", Value: 1}},
			Options: options.Index().SetName("idx_notifications_user_read"),
		},
	})
}

func ensureOAuthStates(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	c := db.Collection("oauth_states")
	return ensureIndexSet(ctx, c, logger, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_oauth_state"),
		},
		// Mongo reaps expired states; 0 means expire at the expires_at time.
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_oauth_state_expiry"),
		},
	})
}
