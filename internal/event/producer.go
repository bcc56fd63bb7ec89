package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/utafrali/product-catalog/internal/domain"
	pkgkafka "github.com/utafrali/product-catalog/pkg/kafka"
	"github.com/utafrali/product-catalog/pkg/logger"
)

// Kafka topics for product domain events.
var (
	TopicProductCreated = pkgkafka.Topic("product", "created")
	TopicProductUpdated = pkgkafka.Topic("product", "updated")
)

// Aggregate type constant.
const AggregateTypeProduct = "product"

// SourceCatalogService identifies events originating from this service.
const SourceCatalogService = "product-catalog"

// Publisher sends an event to a topic. *pkgkafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// NopPublisher drops every event. It is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

// PriceData is one price row of an event payload.
type PriceData struct {
	ID       string          `json:"id"`
	Variants []string        `json:"product_variant_ids"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
}

// ProductData is the payload of product.created and product.updated.
type ProductData struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	SKU         string      `json:"sku"`
	Description string      `json:"description"`
	Tags        []string    `json:"variant_tags"`
	Prices      []PriceData `json:"prices"`
	Images      []string    `json:"images"`
}

// ProductSnapshot is what the service knows about a product right after a
// committed write.
type ProductSnapshot struct {
	Product  domain.Product
	Variants []domain.ProductVariant
	Prices   []domain.ProductVariantPrice
	Images   []domain.ProductImage
}

func (s ProductSnapshot) data() ProductData {
	d := ProductData{
		ID:          s.Product.ID,
		Title:       s.Product.Title,
		SKU:         s.Product.SKU,
		Description: s.Product.Description,
		Tags:        make([]string, 0, len(s.Variants)),
		Prices:      make([]PriceData, 0, len(s.Prices)),
		Images:      make([]string, 0, len(s.Images)),
	}
	for _, pv := range s.Variants {
		d.Tags = append(d.Tags, pv.VariantTitle)
	}
	for _, p := range s.Prices {
		pd := PriceData{ID: p.ID, Variants: []string{}, Price: p.Price, Stock: p.Stock}
		for _, slot := range p.Slots() {
			if slot != nil {
				pd.Variants = append(pd.Variants, *slot)
			}
		}
		d.Prices = append(d.Prices, pd)
	}
	for _, img := range s.Images {
		d.Images = append(d.Images, img.FilePath)
	}
	return d
}

// Producer publishes product domain events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer for the catalog service.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, s ProductSnapshot) error {
	return p.publish(ctx, TopicProductCreated, s)
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, s ProductSnapshot) error {
	return p.publish(ctx, TopicProductUpdated, s)
}

func (p *Producer) publish(ctx context.Context, topic string, s ProductSnapshot) error {
	event, err := pkgkafka.NewEvent(topic, s.Product.ID, AggregateTypeProduct, SourceCatalogService, s.data())
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published product event",
		slog.String("topic", topic),
		slog.String("product_id", s.Product.ID),
		slog.String("sku", s.Product.SKU),
	)
	return nil
}
