package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"qiming/entity"
	"qiming/internal/config"
)

const (
	collectionCodes     = "authorization_codes"
	collectionUsage     = "usage_records"
	collectionFavorites = "favorites"
)

type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
	return client
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	_ = connection.Disconnect(m.ctx)
}

// EnsureIndexes creates the unique code index the activation compare-and-set
// relies on, plus the lookup indexes for history and favorites.
func (m *MongoDB) EnsureIndexes() error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	db := connection.Database(m.database)

	_, err = db.Collection(collectionCodes).Indexes().CreateOne(m.ctx, mongo.IndexModel{
		Keys:    bson.D{{"code", 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("codes index: %w", err)
	}

	_, err = db.Collection(collectionUsage).Indexes().CreateMany(m.ctx, []mongo.IndexModel{
		{Keys: bson.D{{"record_id", 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{"user_id", 1}, {"created_at", -1}}},
	})
	if err != nil {
		return fmt.Errorf("usage index: %w", err)
	}

	_, err = db.Collection(collectionFavorites).Indexes().CreateMany(m.ctx, []mongo.IndexModel{
		{Keys: bson.D{{"favorite_id", 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{"user_id", 1}, {"name_id", 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("favorites index: %w", err)
	}
	return nil
}

func (m *MongoDB) GetCode(code string) (*entity.AuthorizationCode, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{{"code", code}}
	var record entity.AuthorizationCode
	err = collection.FindOne(m.ctx, filter).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	return &record, nil
}

// ActivateCode flips a code from UNUSED to USED in one conditional update.
// Returns nil when no UNUSED document matched, so two concurrent activations
// can never both succeed.
func (m *MongoDB) ActivateCode(code, deviceId, activatedIp string) (*entity.AuthorizationCode, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{{"code", code}, {"status", entity.CodeUnused}}
	update := bson.D{{"$set", bson.D{
		{"status", entity.CodeUsed},
		{"device_id", deviceId},
		{"activated_at", time.Now().UTC()},
		{"activated_ip", activatedIp},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var record entity.AuthorizationCode
	err = collection.FindOneAndUpdate(m.ctx, filter, update, opts).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb activate: %w", err)
	}
	return &record, nil
}

// CreateCodes bulk-inserts a batch of codes, skipping duplicates.
func (m *MongoDB) CreateCodes(codes []entity.AuthorizationCode) (int64, error) {
	connection, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	docs := make([]interface{}, 0, len(codes))
	for i := range codes {
		docs = append(docs, codes[i])
	}

	collection := connection.Database(m.database).Collection(collectionCodes)
	opts := options.InsertMany().SetOrdered(false)
	result, err := collection.InsertMany(m.ctx, docs, opts)
	inserted := int64(0)
	if result != nil {
		inserted = int64(len(result.InsertedIDs))
	}
	if err != nil {
		var bulkErr mongo.BulkWriteException
		if errors.As(err, &bulkErr) {
			for _, we := range bulkErr.WriteErrors {
				if we.Code != 11000 { // duplicate key
					return inserted, fmt.Errorf("mongodb insert codes: %w", err)
				}
			}
			return inserted, nil
		}
		return inserted, fmt.Errorf("mongodb insert codes: %w", err)
	}
	return inserted, nil
}

func (m *MongoDB) UpdateCodeStatus(code string, status entity.CodeStatus) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{{"code", code}}
	update := bson.D{{"$set", bson.D{{"status", status}}}}
	_, err = collection.UpdateOne(m.ctx, filter, update)
	return err
}

func (m *MongoDB) SaveUsageRecord(record *entity.UsageRecord) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsage)
	_, err = collection.InsertOne(m.ctx, record)
	return err
}

func (m *MongoDB) GetUsageRecords(userId string, limit, offset int64) ([]*entity.UsageRecord, int64, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsage)
	filter := bson.D{{"user_id", userId}}

	total, err := collection.CountDocuments(m.ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("mongodb count: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{"created_at", -1}}).
		SetSkip(offset).
		SetLimit(limit)
	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("mongodb find: %w", err)
	}
	defer cursor.Close(m.ctx)

	var records []*entity.UsageRecord
	if err = cursor.All(m.ctx, &records); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (m *MongoDB) GetUsageRecord(id string) (*entity.UsageRecord, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsage)
	filter := bson.D{{"record_id", id}}
	var record entity.UsageRecord
	err = collection.FindOne(m.ctx, filter).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	return &record, nil
}

func (m *MongoDB) CountUsageRecords(userId string) (int64, error) {
	connection, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsage)
	return collection.CountDocuments(m.ctx, bson.D{{"user_id", userId}})
}

func (m *MongoDB) GetRecentUsageRecords(userId string, limit int64) ([]*entity.UsageRecord, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsage)
	opts := options.Find().
		SetSort(bson.D{{"created_at", -1}}).
		SetLimit(limit)
	cursor, err := collection.Find(m.ctx, bson.D{{"user_id", userId}}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	defer cursor.Close(m.ctx)

	var records []*entity.UsageRecord
	if err = cursor.All(m.ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (m *MongoDB) SaveFavorite(favorite *entity.Favorite) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionFavorites)
	_, err = collection.InsertOne(m.ctx, favorite)
	return err
}

func (m *MongoDB) GetFavorite(id string) (*entity.Favorite, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionFavorites)
	var favorite entity.Favorite
	err = collection.FindOne(m.ctx, bson.D{{"favorite_id", id}}).Decode(&favorite)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	return &favorite, nil
}

func (m *MongoDB) GetFavoriteByNameId(userId, nameId string) (*entity.Favorite, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionFavorites)
	filter := bson.D{{"user_id", userId}, {"name_id", nameId}}
	var favorite entity.Favorite
	err = collection.FindOne(m.ctx, filter).Decode(&favorite)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	return &favorite, nil
}

func (m *MongoDB) GetFavorites(userId string, limit int64) ([]*entity.Favorite, int64, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionFavorites)
	filter := bson.D{{"user_id", userId}}

	total, err := collection.CountDocuments(m.ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("mongodb count: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{"created_at", -1}}).
		SetLimit(limit)
	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("mongodb find: %w", err)
	}
	defer cursor.Close(m.ctx)

	var favorites []*entity.Favorite
	if err = cursor.All(m.ctx, &favorites); err != nil {
		return nil, 0, err
	}
	return favorites, total, nil
}

func (m *MongoDB) DeleteFavorite(id string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionFavorites)
	_, err = collection.DeleteOne(m.ctx, bson.D{{"favorite_id", id}})
	return err
}

func (m *MongoDB) CountFavorites(userId string) (int64, error) {
	connection, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionFavorites)
	return collection.CountDocuments(m.ctx, bson.D{{"user_id", userId}})
}
