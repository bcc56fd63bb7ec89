package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/product-catalog/internal/cache"
	"github.com/utafrali/product-catalog/internal/domain"
	"github.com/utafrali/product-catalog/internal/event"
	"github.com/utafrali/product-catalog/internal/repository/memory"
	memstorage "github.com/utafrali/product-catalog/internal/storage/memory"
	pkgkafka "github.com/utafrali/product-catalog/pkg/kafka"
	"github.com/utafrali/product-catalog/pkg/logger"
)

// --- Test Doubles ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []*pkgkafka.Event
	topics []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, e *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, e)
	return nil
}

// stepClock hands out strictly increasing times, one minute apart.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(time.Minute)
	return now
}

// seedDay is the day every product created through a testEnv is stamped with.
var seedDay = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

type testEnv struct {
	store     *memory.Store
	files     *memstorage.Storage
	cache     *cache.Memory
	publisher *recordingPublisher
	products  *ProductService
	variants  *VariantService
}

func newTestEnv(t *testing.T, policy domain.PriceRowPolicy) *testEnv {
	t.Helper()
	env := &testEnv{
		store:     memory.NewStore(),
		files:     memstorage.New("http://media.test"),
		cache:     cache.NewMemory(),
		publisher: &recordingPublisher{},
	}
	log := logger.Discard()
	producer := event.NewProducer(env.publisher, log)
	env.products = NewProductService(env.store, env.files, env.cache, producer,
		ProductOptions{Policy: policy, PageSize: 2, CacheTTL: time.Minute, Now: (&stepClock{t: seedDay.Add(9 * time.Hour)}).Now}, log)
	env.variants = NewVariantService(env.store, env.cache, time.Minute, log)
	return env
}

func (e *testEnv) variant(t *testing.T, title string) string {
	t.Helper()
	v, err := e.variants.CreateVariant(context.Background(), &CreateVariantInput{Title: title})
	require.NoError(t, err)
	return v.ID
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(i int) *int { return &i }

func image(name, body string) ImageUpload {
	return ImageUpload{
		Filename:    name,
		ContentType: "image/png",
		Size:        int64(len(body)),
		Data:        strings.NewReader(body),
	}
}
