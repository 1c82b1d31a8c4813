// Package mongo is the document-database storage driver.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/hongminglow/taskql/internal/models"
	"github.com/hongminglow/taskql/internal/storage"
)

var _ storage.Store = (*Store)(nil)

const (
	usersCollection = "users"
	tasksCollection = "tasks"
)

// Store persists users and tasks as documents.
type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	tasks  *mongo.Collection
	now    func() time.Time
}

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id"`
	Firstname    string             `bson:"firstname"`
	Lastname     string             `bson:"lastname"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"passwordHash"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

type taskDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Tags        []string           `bson:"tags"`
	Done        bool               `bson:"done"`
	UserID      primitive.ObjectID `bson:"userId"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

// NewStore connects to uri, selects database and ensures indexes exist.
func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client: client,
		users:  db.Collection(usersCollection),
		tasks:  db.Collection(tasksCollection),
		now:    time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create users.email index: %w", err)
	}
	if _, err := s.tasks.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "title", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "done", Value: 1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create tasks indexes: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Disconnect(ctx)
}

// Ping checks connectivity to the primary.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	doc := userDoc{
		ID:           primitive.NewObjectID(),
		Firstname:    user.Firstname,
		Lastname:     user.Lastname,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return doc.toModel(), nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) FindUserByID(ctx context.Context, id string) (models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, storage.ErrNotFound
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (models.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	return doc.toModel(), nil
}

func (s *Store) CreateTask(ctx context.Context, task models.Task) (models.Task, error) {
	owner, err := primitive.ObjectIDFromHex(task.UserID)
	if err != nil {
		return models.Task{}, fmt.Errorf("task owner %q is not an object id: %w", task.UserID, err)
	}
	doc := taskDoc{
		ID:          primitive.NewObjectID(),
		Title:       task.Title,
		Description: task.Description,
		Tags:        nonNilTags(task.Tags),
		Done:        task.Done,
		UserID:      owner,
		CreatedAt:   s.now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.tasks.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Task{}, storage.ErrAlreadyExists
		}
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return doc.toModel(), nil
}

func (s *Store) FindTaskByID(ctx context.Context, id string) (models.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Task{}, storage.ErrNotFound
	}
	var doc taskDoc
	if err := s.tasks.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Task{}, storage.ErrNotFound
		}
		return models.Task{}, fmt.Errorf("find task: %w", err)
	}
	return doc.toModel(), nil
}

func (s *Store) ListTasks(ctx context.Context, filter storage.TaskFilter) ([]models.Task, error) {
	query := bson.M{}
	if filter.UserID != "" {
		owner, err := primitive.ObjectIDFromHex(filter.UserID)
		if err != nil {
			return []models.Task{}, nil
		}
		query["userId"] = owner
	}
	if filter.Done != nil {
		query["done"] = *filter.Done
	}
	if len(filter.Tags) > 0 {
		query["tags"] = bson.M{"$in": filter.Tags}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.tasks.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	var docs []taskDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}

	out := make([]models.Task, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toModel())
	}
	return out, nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, patch storage.TaskPatch) (models.Task, error) {
	if patch.Empty() {
		return s.FindTaskByID(ctx, id)
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Task{}, storage.ErrNotFound
	}

	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Tags != nil {
		set["tags"] = nonNilTags(*patch.Tags)
	}
	if patch.Done != nil {
		set["done"] = *patch.Done
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc taskDoc
	err = s.tasks.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.Task{}, storage.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return models.Task{}, storage.ErrAlreadyExists
	case err != nil:
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	return doc.toModel(), nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) (models.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Task{}, storage.ErrNotFound
	}
	var doc taskDoc
	if err := s.tasks.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Task{}, storage.ErrNotFound
		}
		return models.Task{}, fmt.Errorf("delete task: %w", err)
	}
	return doc.toModel(), nil
}

func (d userDoc) toModel() models.User {
	return models.User{
		ID:           d.ID.Hex(),
		Firstname:    d.Firstname,
		Lastname:     d.Lastname,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

func (d taskDoc) toModel() models.Task {
	return models.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Tags:        nonNilTags(d.Tags),
		Done:        d.Done,
		UserID:      d.UserID.Hex(),
		CreatedAt:   d.CreatedAt,
	}
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
