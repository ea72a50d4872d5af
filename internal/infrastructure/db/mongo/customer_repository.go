package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kathulis/tabkeeper/internal/core/domain"
	"github.com/kathulis/tabkeeper/internal/core/ports"
)

const collectionCustomers = "customers"

// CustomerRepository implements ports.CustomerRepository using MongoDB.
type CustomerRepository struct {
	col *mongo.Collection
}

func NewCustomerRepository(db *mongo.Database) *CustomerRepository {
	return &CustomerRepository{col: db.Collection(collectionCustomers)}
}

var _ ports.CustomerRepository = (*CustomerRepository)(nil)

type mongoCustomer struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	Name         string               `bson:"name"`
	PhoneNumber  string               `bson:"phone_number"`
	Balance      primitive.Decimal128 `bson:"balance"`
	PasswordHash string               `bson:"password_hash"`
	CreatedAt    int64                `bson:"created_at"`
	UpdatedAt    int64                `bson:"updated_at"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("balance %s: %w", d, err)
	}
	return v, nil
}

func (m *mongoCustomer) toDomain() (*domain.Customer, error) {
	balance, err := decimal.NewFromString(m.Balance.String())
	if err != nil {
		return nil, fmt.Errorf("decode balance of %s: %w", m.ID.Hex(), err)
	}
	return &domain.Customer{
		ID:           m.ID.Hex(),
		Name:         m.Name,
		PhoneNumber:  m.PhoneNumber,
		Balance:      balance,
		PasswordHash: m.PasswordHash,
		CreatedAt:    unixToTime(m.CreatedAt),
		UpdatedAt:    unixToTime(m.UpdatedAt),
	}, nil
}

// Create inserts c and sets its ID.
func (r *CustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	balance, err := toDecimal128(c.Balance)
	if err != nil {
		return err
	}
	doc := mongoCustomer{
		ID:           primitive.NewObjectID(),
		Name:         c.Name,
		PhoneNumber:  c.PhoneNumber,
		Balance:      balance,
		PasswordHash: c.PasswordHash,
		CreatedAt:    c.CreatedAt.Unix(),
		UpdatedAt:    c.UpdatedAt.Unix(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrPhoneExists
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	c.ID = doc.ID.Hex()
	return nil
}

// List returns every customer ordered by insertion.
func (r *CustomerRepository) List(ctx context.Context) ([]*domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find customers: %w", err)
	}
	defer cur.Close(ctx)

	out := []*domain.Customer{}
	for cur.Next(ctx) {
		var m mongoCustomer
		if err := cur.Decode(&m); err != nil {
			return nil, fmt.Errorf("decode customer: %w", err)
		}
		c, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return out, nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, id string) (*domain.Customer, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrCustomerNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *CustomerRepository) FindByName(ctx context.Context, name string) (*domain.Customer, error) {
	return r.findOne(ctx, bson.M{"name": name})
}

func (r *CustomerRepository) findOne(ctx context.Context, filter bson.M) (*domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m mongoCustomer
	if err := r.col.FindOne(ctx, filter).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("find customer: %w", err)
	}
	return m.toDomain()
}

// Update overwrites the editable fields and returns the updated record.
func (r *CustomerRepository) Update(ctx context.Context, id string, in ports.CustomerInput) (*domain.Customer, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrCustomerNotFound
	}
	balance, err := toDecimal128(in.Balance)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"name":         in.Name,
		"phone_number": in.PhoneNumber,
		"balance":      balance,
		"updated_at":   time.Now().UTC().Unix(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var m mongoCustomer
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&m); err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, domain.ErrCustomerNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, domain.ErrPhoneExists
		}
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return m.toDomain()
}

func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrCustomerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

// EnsureIndexes creates the unique phone number index and the login lookup
// index on the customers collection.
func (r *CustomerRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "phone_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "name", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
