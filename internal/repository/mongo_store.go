package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lexia-auth/internal/domain"
)

// MongoUserStore implementa UserStore sobre una coleccion de MongoDB.
type MongoUserStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{
		coll: db.Collection("users"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

const mongoSocialIndex = "social_identity_key"

// mongoDuplicate distingue la colision de identidad social de la de email por el nombre del indice.
func mongoDuplicate(err error) error {
	if strings.Contains(err.Error(), mongoSocialIndex) {
		return ErrDuplicateSocial
	}
	return ErrDuplicateEmail
}

// EnsureIndexes crea el indice unico de email y el de identidades sociales.
func (s *MongoUserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"email": bson.M{"$gt": ""}}),
		},
		{
			Keys: bson.D{
				{Key: "socialAccounts.provider", Value: 1},
				{Key: "socialAccounts.providerId", Value: 1},
			},
			Options: options.Index().
				SetName(mongoSocialIndex).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"socialAccounts.providerId": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: -1}},
		},
	})
	if err != nil {
		return unavailable("mongo ensure indexes", err)
	}
	return nil
}

func (s *MongoUserStore) FindOne(ctx context.Context, q Query) (domain.User, error) {
	var u domain.User
	err := s.coll.FindOne(ctx, mongoFilter(q)).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, unavailable("mongo find one", err)
	}
	return u, nil
}

func (s *MongoUserStore) FindByID(ctx context.Context, id string) (domain.User, error) {
	return s.FindOne(ctx, Query{domain.FieldID: id})
}

func (s *MongoUserStore) FindBySocial(ctx context.Context, provider, providerID string) (domain.User, error) {
	filter := bson.M{
		"socialAccounts": bson.M{"$elemMatch": bson.M{
			"provider":   provider,
			"providerId": providerID,
		}},
	}
	var u domain.User
	err := s.coll.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, unavailable("mongo find by social", err)
	}
	return u, nil
}

func (s *MongoUserStore) Insert(ctx context.Context, user domain.User) (domain.User, error) {
	now := s.now()
	user.ID = uuid.NewString()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if _, err := s.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.User{}, mongoDuplicate(err)
		}
		return domain.User{}, unavailable("mongo insert", err)
	}
	return user, nil
}

func (s *MongoUserStore) Update(ctx context.Context, id string, upd Update) (domain.User, error) {
	set := bson.M{}
	unset := bson.M{}
	for k, v := range upd {
		if v == nil {
			unset[mongoField(k)] = ""
			continue
		}
		set[mongoField(k)] = v
	}
	set[domain.FieldUpdatedAt] = s.now()
	change := bson.M{"$set": set}
	if len(unset) > 0 {
		change["$unset"] = unset
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u domain.User
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, change, opts).Decode(&u)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.User{}, ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return domain.User{}, mongoDuplicate(err)
	case err != nil:
		return domain.User{}, unavailable("mongo update", err)
	}
	return u, nil
}

func (s *MongoUserStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return unavailable("mongo delete", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoUserStore) List(ctx context.Context, f ListFilter) ([]domain.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cur, err := s.coll.Find(ctx, mongoListFilter(f), opts)
	if err != nil {
		return nil, unavailable("mongo list", err)
	}
	users := []domain.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, unavailable("mongo list decode", err)
	}
	return users, nil
}

func (s *MongoUserStore) Stats(ctx context.Context) (domain.UserStats, error) {
	var stats domain.UserStats
	total, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return stats, unavailable("mongo count", err)
	}
	verified, err := s.coll.CountDocuments(ctx, bson.M{"isEmailVerified": true})
	if err != nil {
		return stats, unavailable("mongo count verified", err)
	}
	active, err := s.coll.CountDocuments(ctx, bson.M{"isActive": true})
	if err != nil {
		return stats, unavailable("mongo count active", err)
	}
	stats.TotalUsers = int(total)
	stats.VerifiedUsers = int(verified)
	stats.ActiveUsers = int(active)

	typePipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":      "$userType",
			"count":    bson.M{"$sum": 1},
			"verified": bson.M{"$sum": bson.M{"$cond": bson.A{"$isEmailVerified", 1, 0}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	var typeRows []struct {
		UserType domain.UserType `bson:"_id"`
		Count    int             `bson:"count"`
		Verified int             `bson:"verified"`
	}
	if err := s.aggregate(ctx, typePipeline, &typeRows); err != nil {
		return stats, err
	}
	for _, row := range typeRows {
		stats.ByType = append(stats.ByType, domain.UserTypeSummary{
			UserType:   row.UserType,
			Count:      row.Count,
			Verified:   row.Verified,
			Unverified: row.Count - row.Verified,
		})
	}

	socialPipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$socialAccounts"}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$socialAccounts.provider",
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	var socialRows []struct {
		Provider string `bson:"_id"`
		Count    int    `bson:"count"`
	}
	if err := s.aggregate(ctx, socialPipeline, &socialRows); err != nil {
		return stats, err
	}
	for _, row := range socialRows {
		stats.BySocial = append(stats.BySocial, domain.ProviderCount{Provider: row.Provider, Count: row.Count})
	}

	recent, err := s.List(ctx, ListFilter{Limit: recentUsersLimit})
	if err != nil {
		return stats, err
	}
	stats.Recent = recent
	return stats, nil
}

func (s *MongoUserStore) aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return unavailable("mongo aggregate", err)
	}
	if err := cur.All(ctx, out); err != nil {
		return unavailable("mongo aggregate decode", err)
	}
	return nil
}

func mongoField(name string) string {
	if name == domain.FieldID {
		return "_id"
	}
	return name
}

func mongoFilter(q Query) bson.M {
	filter := make(bson.M, len(q))
	for k, v := range q {
		filter[mongoField(k)] = v
	}
	return filter
}

func mongoListFilter(f ListFilter) bson.M {
	filter := bson.M{}
	if f.UserType != "" {
		filter["userType"] = f.UserType
	}
	if f.Verified != nil {
		filter["isEmailVerified"] = *f.Verified
	}
	if f.Search != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(f.Search), "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"firstName": pattern},
			bson.M{"lastName": pattern},
			bson.M{"email": pattern},
		}
	}
	return filter
}
