package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/maildeck/maildeck/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailExists       = errors.New("email already exists")
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrWorkspaceExists   = errors.New("workspace already exists")
	ErrListNotFound      = errors.New("list not found")
	ErrListExists        = errors.New("list already exists")
	ErrAlreadyPaid       = errors.New("transaction already recorded")
)

// objectID parses a hex user id. An unparseable id can never match a
// document, so it is reported as not found.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrUserNotFound
	}
	return oid, nil
}

// CreateUser inserts a new user document.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	if user.Workspaces == nil {
		user.Workspaces = []model.Workspace{}
	}
	if user.Transactions == nil {
		user.Transactions = []model.Transaction{}
	}

	res, err := r.users().InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid
	}
	return nil
}

// GetUserByID retrieves a user by their document id.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// GetUserByGoogleID retrieves a user by their provider-issued identifier.
func (r *Repository) GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"google_id": googleID})
}

func (r *Repository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	err := r.users().FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// ListUsers returns all user documents, newest first.
func (r *Repository) ListUsers(ctx context.Context) ([]*model.User, error) {
	cursor, err := r.users().Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*model.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

// UpdateCredentials persists refreshed credential material and profile
// image. Callers only invoke this when at least one field changed.
func (r *Repository) UpdateCredentials(ctx context.Context, id string, profileImage, accessToken, refreshToken string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	set := bson.M{
		"profile_image": profileImage,
		"access_token":  accessToken,
	}
	// An empty refresh token means the provider did not rotate it.
	if refreshToken != "" {
		set["refresh_token"] = refreshToken
	}

	res, err := r.users().UpdateByID(ctx, oid, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update credentials: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AddWorkspace appends a workspace iff no workspace with the same name
// exists. The uniqueness predicate is part of the update filter, so
// concurrent creators cannot both succeed.
func (r *Repository) AddWorkspace(ctx context.Context, userID string, ws model.Workspace) error {
	oid, err := objectID(userID)
	if err != nil {
		return err
	}
	if ws.Lists == nil {
		ws.Lists = []model.List{}
	}

	filter := bson.M{
		"_id":             oid,
		"workspaces.name": bson.M{"$ne": ws.Name},
	}
	res, err := r.users().UpdateOne(ctx, filter, bson.M{"$push": bson.M{"workspaces": ws}})
	if err != nil {
		return fmt.Errorf("failed to add workspace: %w", err)
	}
	if res.MatchedCount == 0 {
		// Filter misses both for an absent user and for a duplicate name.
		if _, err := r.GetUserByID(ctx, userID); err != nil {
			return err
		}
		return ErrWorkspaceExists
	}
	return nil
}

// RemoveWorkspace pulls a workspace out of the user's collection by name.
func (r *Repository) RemoveWorkspace(ctx context.Context, userID, name string) error {
	oid, err := objectID(userID)
	if err != nil {
		return err
	}

	res, err := r.users().UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$pull": bson.M{"workspaces": bson.M{"name": name}}},
	)
	if err != nil {
		return fmt.Errorf("failed to remove workspace: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	if res.ModifiedCount == 0 {
		return ErrWorkspaceNotFound
	}
	return nil
}

// AddList appends a list to the named workspace iff no list with the same
// name exists there. Same filtered-update discipline as AddWorkspace.
func (r *Repository) AddList(ctx context.Context, userID, workspaceName string, list model.List) error {
	oid, err := objectID(userID)
	if err != nil {
		return err
	}

	filter := bson.M{
		"_id": oid,
		"workspaces": bson.M{"$elemMatch": bson.M{
			"name":       workspaceName,
			"lists.name": bson.M{"$ne": list.Name},
		}},
	}
	res, err := r.users().UpdateOne(ctx, filter,
		bson.M{"$push": bson.M{"workspaces.$.lists": list}},
	)
	if err != nil {
		return fmt.Errorf("failed to add list: %w", err)
	}
	if res.MatchedCount == 0 {
		user, err := r.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if user.FindWorkspace(workspaceName) == nil {
			return ErrWorkspaceNotFound
		}
		return ErrListExists
	}
	return nil
}

// RemoveList pulls a list out of the named workspace by name.
func (r *Repository) RemoveList(ctx context.Context, userID, workspaceName, listName string) error {
	oid, err := objectID(userID)
	if err != nil {
		return err
	}

	res, err := r.users().UpdateOne(ctx,
		bson.M{"_id": oid, "workspaces.name": workspaceName},
		bson.M{"$pull": bson.M{"workspaces.$.lists": bson.M{"name": listName}}},
	)
	if err != nil {
		return fmt.Errorf("failed to remove list: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.GetUserByID(ctx, userID); err != nil {
			return err
		}
		return ErrWorkspaceNotFound
	}
	if res.ModifiedCount == 0 {
		return ErrListNotFound
	}
	return nil
}

// AppendTransaction records a completed payment. The filter asserts the
// transaction history is empty, so the one-time-purchase gate holds even
// under concurrent webhook redelivery.
func (r *Repository) AppendTransaction(ctx context.Context, userID string, tx model.Transaction) error {
	oid, err := objectID(userID)
	if err != nil {
		return err
	}

	filter := bson.M{
		"_id":            oid,
		"transactions.0": bson.M{"$exists": false},
	}
	res, err := r.users().UpdateOne(ctx, filter, bson.M{"$push": bson.M{"transactions": tx}})
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.GetUserByID(ctx, userID); err != nil {
			return err
		}
		return ErrAlreadyPaid
	}
	return nil
}
