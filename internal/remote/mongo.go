// Package remote implements the transaction and category stores on MongoDB,
// the authoritative per-user document store of the multi-user deployment.
// Ids and creation timestamps are assigned here, never by the client.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/store"
)

const (
	transactionsCollection = "transactions"
	categoriesCollection   = "categories"
	usersCollection        = "users"
)

type (
	MongoStores struct {
		client *mongo.Client
		db     *mongo.Database
		txHub  *store.Hub[core.Transaction]
		catHub *store.Hub[core.Category]
		now    func() time.Time
	}

	transactionDoc struct {
		ID          string    `bson:"_id"`
		Date        string    `bson:"date"`
		Type        string    `bson:"type"`
		Category    string    `bson:"category"`
		Description string    `bson:"description"`
		AmountCents int64     `bson:"amountCents"`
		UserID      string    `bson:"userId"`
		CreatedAt   time.Time `bson:"createdAt"`
	}

	categoryDoc struct {
		ID        string    `bson:"_id"`
		Name      string    `bson:"name"`
		NameKey   string    `bson:"nameKey"` // lowercased, for the uniqueness guard
		Kind      string    `bson:"kind"`
		UserID    string    `bson:"userId"`
		CreatedAt time.Time `bson:"createdAt"`
	}

	userDoc struct {
		ID           string    `bson:"_id"`
		Email        string    `bson:"email"`
		PasswordHash string    `bson:"passwordHash"`
		CreatedAt    time.Time `bson:"createdAt"`
	}
)

// Connect establishes and pings a MongoDB connection.
func Connect(ctx context.Context, uri, dbName string) (*MongoStores, error) {
	slog.DebugContext(ctx, "Connecting to MongoDB", "database", dbName)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	slog.InfoContext(ctx, "Connected to MongoDB", "database", dbName)
	return &MongoStores{
		client: client,
		db:     client.Database(dbName),
		txHub:  store.NewHub[core.Transaction](),
		catHub: store.NewHub[core.Category](),
		now:    time.Now,
	}, nil
}

func (m *MongoStores) Disconnect(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Transactions returns the TransactionStore view.
func (m *MongoStores) Transactions() store.TransactionStore { return (*mongoTxStore)(m) }

// Categories returns the CategoryStore view.
func (m *MongoStores) Categories() store.CategoryStore { return (*mongoCatStore)(m) }

type mongoTxStore MongoStores

func (m *mongoTxStore) Subscribe(ctx context.Context, ownerID string) (*store.Subscription[core.Transaction], error) {
	sub := m.txHub.Subscribe(ownerID)
	(*MongoStores)(m).publishTransactions(ctx, ownerID)
	return sub, nil
}

func (m *mongoTxStore) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.ValidateRecord(); err != nil {
		return core.Transaction{}, err
	}
	t.ID = primitive.NewObjectID().Hex()
	t.CreatedAt = m.now()

	doc := transactionDoc{
		ID:          t.ID,
		Date:        t.Date,
		Type:        string(t.Type),
		Category:    t.Category,
		Description: t.Description,
		AmountCents: t.Amount.Cents,
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
	}
	if _, err := m.db.Collection(transactionsCollection).InsertOne(ctx, doc); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	(*MongoStores)(m).publishTransactions(ctx, t.UserID)
	return t, nil
}

func (m *mongoTxStore) Update(ctx context.Context, id string, f store.TransactionFields) error {
	coll := m.db.Collection(transactionsCollection)

	var existing transactionDoc
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find transaction: %w", err)
	}

	update := bson.M{"$set": bson.M{
		"date":        f.Date,
		"type":        string(f.Type),
		"category":    f.Category,
		"description": f.Description,
		"amountCents": f.Amount.Cents,
	}}
	if _, err := coll.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	(*MongoStores)(m).publishTransactions(ctx, existing.UserID)
	return nil
}

func (m *mongoTxStore) Delete(ctx context.Context, id string) error {
	coll := m.db.Collection(transactionsCollection)

	var existing transactionDoc
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find transaction: %w", err)
	}

	if _, err := coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	(*MongoStores)(m).publishTransactions(ctx, existing.UserID)
	return nil
}

// Upsert mirrors a locally captured write, keyed by the locally assigned id.
// Used by the sync worker, not by interactive clients.
func (m *MongoStores) UpsertTransaction(ctx context.Context, t core.Transaction) error {
	doc := transactionDoc{
		ID:          t.ID,
		Date:        t.Date,
		Type:        string(t.Type),
		Category:    t.Category,
		Description: t.Description,
		AmountCents: t.Amount.Cents,
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
	}
	_, err := m.db.Collection(transactionsCollection).UpdateOne(ctx,
		bson.M{"_id": t.ID},
		bson.M{"$set": doc},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert transaction %s: %w", t.ID, err)
	}
	m.publishTransactions(ctx, t.UserID)
	return nil
}

// RemoveTransaction mirrors a local delete. Missing documents are not an
// error here: the record may never have been synced.
func (m *MongoStores) RemoveTransaction(ctx context.Context, id string) error {
	_, err := m.db.Collection(transactionsCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("remove transaction %s: %w", id, err)
	}
	return nil
}

type mongoCatStore MongoStores

func (m *mongoCatStore) Subscribe(ctx context.Context, ownerID string) (*store.Subscription[core.Category], error) {
	sub := m.catHub.Subscribe(ownerID)
	(*MongoStores)(m).publishCategories(ctx, ownerID)
	return sub, nil
}

func (m *mongoCatStore) Create(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	coll := m.db.Collection(categoriesCollection)
	name := strings.TrimSpace(c.Name)

	// Check-then-insert, same contract as the other backends.
	n, err := coll.CountDocuments(ctx, bson.M{
		"userId":  c.UserID,
		"nameKey": strings.ToLower(name),
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("check duplicate category: %w", err)
	}
	if n > 0 {
		return core.Category{}, core.ErrDuplicateCategory
	}

	c.ID = primitive.NewObjectID().Hex()
	c.Name = name
	c.CreatedAt = m.now()
	doc := categoryDoc{
		ID:        c.ID,
		Name:      c.Name,
		NameKey:   strings.ToLower(c.Name),
		Kind:      string(c.Kind),
		UserID:    c.UserID,
		CreatedAt: c.CreatedAt,
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}

	(*MongoStores)(m).publishCategories(ctx, c.UserID)
	return c, nil
}

func (m *mongoCatStore) Update(ctx context.Context, id string, f store.CategoryFields) error {
	coll := m.db.Collection(categoriesCollection)

	var existing categoryDoc
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find category: %w", err)
	}

	set := bson.M{}
	if name := strings.TrimSpace(f.Name); name != "" {
		set["name"] = name
		set["nameKey"] = strings.ToLower(name)
	}
	if f.Kind != "" {
		set["kind"] = string(f.Kind)
	}
	if len(set) > 0 {
		if _, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}); err != nil {
			return fmt.Errorf("update category: %w", err)
		}
	}

	(*MongoStores)(m).publishCategories(ctx, existing.UserID)
	return nil
}

func (m *mongoCatStore) Delete(ctx context.Context, id string) error {
	coll := m.db.Collection(categoriesCollection)

	var existing categoryDoc
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find category: %w", err)
	}

	if _, err := coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	(*MongoStores)(m).publishCategories(ctx, existing.UserID)
	return nil
}

// UpsertCategory mirrors a locally captured category write.
func (m *MongoStores) UpsertCategory(ctx context.Context, c core.Category) error {
	doc := categoryDoc{
		ID:        c.ID,
		Name:      c.Name,
		NameKey:   strings.ToLower(strings.TrimSpace(c.Name)),
		Kind:      string(c.Kind),
		UserID:    c.UserID,
		CreatedAt: c.CreatedAt,
	}
	_, err := m.db.Collection(categoriesCollection).UpdateOne(ctx,
		bson.M{"_id": c.ID},
		bson.M{"$set": doc},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert category %s: %w", c.ID, err)
	}
	m.publishCategories(ctx, c.UserID)
	return nil
}

// RemoveCategory mirrors a local category delete.
func (m *MongoStores) RemoveCategory(ctx context.Context, id string) error {
	_, err := m.db.Collection(categoriesCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("remove category %s: %w", id, err)
	}
	return nil
}

// CreateUser implements auth.UserStore.
func (m *MongoStores) CreateUser(ctx context.Context, email, passwordHash string) (auth.User, error) {
	u := auth.User{
		ID:           primitive.NewObjectID().Hex(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		CreatedAt:    m.now(),
	}
	doc := userDoc{ID: u.ID, Email: u.Email, PasswordHash: u.PasswordHash, CreatedAt: u.CreatedAt}
	if _, err := m.db.Collection(usersCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return auth.User{}, auth.ErrUserExists
		}
		return auth.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// GetUserByEmail implements auth.UserStore.
func (m *MongoStores) GetUserByEmail(ctx context.Context, email string) (auth.User, error) {
	var doc userDoc
	err := m.db.Collection(usersCollection).
		FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return auth.User{}, auth.ErrUserNotFound
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return auth.User{ID: doc.ID, Email: doc.Email, PasswordHash: doc.PasswordHash, CreatedAt: doc.CreatedAt}, nil
}

// ListTransactions loads the owner's records ordered (date desc, createdAt desc).
func (m *MongoStores) ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "createdAt", Value: -1}})
	cur, err := m.db.Collection(transactionsCollection).Find(ctx, bson.M{"userId": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer cur.Close(ctx)

	var out []core.Transaction
	for cur.Next(ctx) {
		var doc transactionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode transaction: %w", err)
		}
		out = append(out, core.Transaction{
			ID:          doc.ID,
			Date:        doc.Date,
			Type:        core.TransactionType(doc.Type),
			Category:    doc.Category,
			Description: doc.Description,
			Amount:      core.Money{Cents: doc.AmountCents},
			UserID:      doc.UserID,
			CreatedAt:   doc.CreatedAt,
		})
	}
	return out, cur.Err()
}

// ListCategories loads the owner's categories ordered by name.
func (m *MongoStores) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "nameKey", Value: 1}})
	cur, err := m.db.Collection(categoriesCollection).Find(ctx, bson.M{"userId": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer cur.Close(ctx)

	var out []core.Category
	for cur.Next(ctx) {
		var doc categoryDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode category: %w", err)
		}
		out = append(out, core.Category{
			ID:        doc.ID,
			Name:      doc.Name,
			Kind:      core.CategoryKind(doc.Kind),
			UserID:    doc.UserID,
			CreatedAt: doc.CreatedAt,
		})
	}
	return out, cur.Err()
}

func (m *MongoStores) publishTransactions(ctx context.Context, ownerID string) {
	list, err := m.ListTransactions(ctx, ownerID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load transaction snapshot", "error", err, "owner", ownerID)
		m.txHub.PublishError(ownerID, err)
		return
	}
	m.txHub.Publish(ownerID, store.Snapshot[core.Transaction]{Records: list})
}

func (m *MongoStores) publishCategories(ctx context.Context, ownerID string) {
	list, err := m.ListCategories(ctx, ownerID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load category snapshot", "error", err, "owner", ownerID)
		m.catHub.PublishError(ownerID, err)
		return
	}
	m.catHub.Publish(ownerID, store.Snapshot[core.Category]{Records: list})
}
