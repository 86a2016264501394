package mongodb

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/appgrid/platform-connect/domain"
)

// CredentialRepository persists finished credential records. Insert-only: the
// flow hands the record over and never touches it again.
type CredentialRepository struct {
	coll *mongo.Collection
}

func NewCredentialRepository(db *mongo.Database) domain.CredentialRepository {
	return &CredentialRepository{
		coll: db.Collection(CredentialsCollection),
	}
}

func (r *CredentialRepository) Insert(ctx context.Context, cred *domain.Credential) error {
	if _, err := r.coll.InsertOne(ctx, cred); err != nil {
		log.Error().Err(err).Str("org_id", cred.OrgID).Msg("failed to insert credential record")
		return fmt.Errorf("insert credential: %w", err)
	}
	log.Debug().Str("org_id", cred.OrgID).Str("user_id", cred.UserID).Msg("credential record stored")
	return nil
}
