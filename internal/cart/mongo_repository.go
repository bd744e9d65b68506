package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// cartDocument is the stored shape of a cart. Prices are kept as decimal
// strings.
type cartDocument struct {
	OwnerID   string         `bson:"owner_id"`
	Lines     []lineDocument `bson:"lines"`
	CreatedAt time.Time      `bson:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

type lineDocument struct {
	ProductID     int64                  `bson:"product_id"`
	Name          string                 `bson:"name"`
	Price         string                 `bson:"price"`
	Image         string                 `bson:"image"`
	Quantity      int                    `bson:"quantity"`
	Size          string                 `bson:"size,omitempty"`
	Color         string                 `bson:"color,omitempty"`
	Customization *customizationDocument `bson:"customization,omitempty"`
	AddedAt       time.Time              `bson:"added_at"`
}

type customizationDocument struct {
	Text      string `bson:"text,omitempty"`
	TextColor string `bson:"text_color,omitempty"`
	TextSize  int    `bson:"text_size,omitempty"`
	GoldFoil  bool   `bson:"gold_foil,omitempty"`
	ImageRef  string `bson:"image_ref,omitempty"`
}

func toDocument(c *domain.Cart) cartDocument {
	doc := cartDocument{
		OwnerID:   c.OwnerID,
		Lines:     make([]lineDocument, 0, len(c.Lines)),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	for _, l := range c.Lines {
		ld := lineDocument{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.Price.String(),
			Image:     l.Image,
			Quantity:  l.Quantity,
			Size:      l.Size,
			Color:     l.Color,
			AddedAt:   l.AddedAt,
		}
		if cz := l.Customization; cz != nil {
			ld.Customization = &customizationDocument{
				Text:      cz.Text,
				TextColor: cz.TextColor,
				TextSize:  cz.TextSize,
				GoldFoil:  cz.GoldFoil,
				ImageRef:  cz.ImageRef,
			}
		}
		doc.Lines = append(doc.Lines, ld)
	}
	return doc
}

func (d cartDocument) toDomain() (*domain.Cart, error) {
	c := &domain.Cart{
		OwnerID:   d.OwnerID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, ld := range d.Lines {
		price, err := decimal.NewFromString(ld.Price)
		if err != nil {
			return nil, fmt.Errorf("parse price of product %d: %w", ld.ProductID, err)
		}
		l := domain.CartLine{
			ProductID: ld.ProductID,
			Name:      ld.Name,
			Price:     price,
			Image:     ld.Image,
			Quantity:  ld.Quantity,
			Size:      ld.Size,
			Color:     ld.Color,
			AddedAt:   ld.AddedAt,
		}
		if cz := ld.Customization; cz != nil {
			l.Customization = &domain.Customization{
				Text:      cz.Text,
				TextColor: cz.TextColor,
				TextSize:  cz.TextSize,
				GoldFoil:  cz.GoldFoil,
				ImageRef:  cz.ImageRef,
			}
		}
		c.Lines = append(c.Lines, l)
	}
	return c, nil
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *MongoRepository) GetCart(ctx context.Context, ownerID string) (*domain.Cart, error) {
	var doc cartDocument

	err := m.collection.FindOne(ctx, bson.M{"owner_id": ownerID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return doc.toDomain()
}

func (m *MongoRepository) SaveCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now().UTC()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	filter := bson.M{"owner_id": cart.OwnerID}
	update := bson.M{"$set": toDocument(cart)}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoRepository) DeleteCart(ctx context.Context, ownerID string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

// CreateIndexes enforces one cart per owner and expires carts untouched
// for 90 days.
func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
