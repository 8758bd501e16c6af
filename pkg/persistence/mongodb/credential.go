package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hookline/hookline/pkg/models"
	"github.com/hookline/hookline/pkg/persistence"
)

type credentialDocument struct {
	ID        string                     `bson:"_id"`
	UserID    string                     `bson:"user_id"`
	Name      string                     `bson:"name"`
	Kind      models.CredentialKind      `bson:"kind"`
	SMTP      *models.SMTPCredential     `bson:"smtp,omitempty"`
	Telegram  *models.TelegramCredential `bson:"telegram,omitempty"`
	CreatedAt time.Time                  `bson:"created_at"`
}

func toCredentialDocument(credential *models.Credential) *credentialDocument {
	return &credentialDocument{
		ID:        credential.ID,
		UserID:    credential.UserID,
		Name:      credential.Name,
		Kind:      credential.Kind,
		SMTP:      credential.SMTP,
		Telegram:  credential.Telegram,
		CreatedAt: credential.CreatedAt,
	}
}

func (d *credentialDocument) toModel() *models.Credential {
	return &models.Credential{
		ID:        d.ID,
		UserID:    d.UserID,
		Name:      d.Name,
		Kind:      d.Kind,
		SMTP:      d.SMTP,
		Telegram:  d.Telegram,
		CreatedAt: d.CreatedAt,
	}
}

// CredentialRepository stores credentials in a MongoDB collection.
type CredentialRepository struct {
	collection *mongo.Collection
}

func NewCredentialRepository(collection *mongo.Collection) *CredentialRepository {
	return &CredentialRepository{collection: collection}
}

func (r *CredentialRepository) Create(ctx context.Context, credential *models.Credential) error {
	_, err := r.collection.InsertOne(ctx, toCredentialDocument(credential))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return persistence.NewCredentialError("Create", credential.UserID, string(credential.Kind),
				persistence.ErrCredentialAlreadyExists)
		}

		return persistence.NewCredentialError("Create", credential.UserID, string(credential.Kind), err)
	}

	return nil
}

func (r *CredentialRepository) GetByUserAndKind(ctx context.Context, userID string, kind models.CredentialKind) (*models.Credential, error) {
	var document credentialDocument

	filter := bson.M{"user_id": userID, "kind": kind}

	err := r.collection.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})).Decode(&document)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, persistence.NewCredentialError("GetByUserAndKind", userID, string(kind),
				persistence.ErrCredentialNotFound)
		}

		return nil, persistence.NewCredentialError("GetByUserAndKind", userID, string(kind), err)
	}

	return document.toModel(), nil
}

func (r *CredentialRepository) ListByUser(ctx context.Context, userID string) ([]*models.Credential, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}

	defer func() {
		_ = cursor.Close(ctx)
	}()

	credentials := make([]*models.Credential, 0)

	for cursor.Next(ctx) {
		var document credentialDocument
		if err := cursor.Decode(&document); err != nil {
			return nil, fmt.Errorf("failed to decode credential: %w", err)
		}

		credentials = append(credentials, document.toModel())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credentials: %w", err)
	}

	return credentials, nil
}

func (r *CredentialRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return persistence.NewCredentialError("Delete", userID, "", err)
	}

	if result.DeletedCount == 0 {
		return persistence.NewCredentialError("Delete", userID, "", persistence.ErrCredentialNotFound)
	}

	return nil
}
