package cart

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
)

func backends(t *testing.T) map[string]Blob {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Blob{
		"memory": NewMemoryBlob(),
		"file":   NewFileBlob(filepath.Join(t.TempDir(), "nested", "cart.json")),
		"redis":  NewRedisBlob(client, ""),
	}
}

func TestStore_EmptyCart(t *testing.T) {
	for name, blob := range backends(t) {
		t.Run(name, func(t *testing.T) {
			items, err := NewStore(blob).List(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, items)
			assert.Empty(t, items)
		})
	}
}

func TestStore_AddAppendsLines(t *testing.T) {
	for name, blob := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewStore(blob)

			require.NoError(t, s.Add(ctx, domain.NewProductItem(1)))
			require.NoError(t, s.Add(ctx, domain.NewProductItem(2)))

			items, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, 1, items[0].Quantity)
			assert.Equal(t, 2, items[1].Quantity)
			assert.Equal(t, domain.ProductID, items[1].ProductID)
			assert.True(t, decimal.RequireFromString("35").Equal(items[0].UnitPrice))
		})
	}
}

func TestStore_AddRejectsInvalidItem(t *testing.T) {
	ctx := context.Background()
	blob := NewMemoryBlob()
	s := NewStore(blob)

	err := s.Add(ctx, domain.CartItem{ProductID: domain.ProductID, Quantity: 0})
	require.Error(t, err)

	data, _ := blob.Load(ctx)
	assert.Nil(t, data)
}

func TestStore_Remove(t *testing.T) {
	for name, blob := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewStore(blob)
			for q := 1; q <= 3; q++ {
				require.NoError(t, s.Add(ctx, domain.NewProductItem(q)))
			}

			require.NoError(t, s.Remove(ctx, 1))
			items, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, 1, items[0].Quantity)
			assert.Equal(t, 3, items[1].Quantity)

			// out of range is a no-op
			require.NoError(t, s.Remove(ctx, 5))
			require.NoError(t, s.Remove(ctx, -1))
			items, _ = s.List(ctx)
			assert.Len(t, items, 2)

			require.NoError(t, s.Remove(ctx, 0))
			require.NoError(t, s.Remove(ctx, 0))

			data, err := blob.Load(ctx)
			require.NoError(t, err)
			assert.Nil(t, data, "blob should be deleted once the cart is empty")
		})
	}
}

func TestStore_Clear(t *testing.T) {
	for name, blob := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewStore(blob)
			require.NoError(t, s.Add(ctx, domain.NewProductItem(1)))
			require.NoError(t, s.Clear(ctx))
			require.NoError(t, s.Clear(ctx))

			items, err := s.Items(ctx)
			require.NoError(t, err)
			assert.Empty(t, items)
		})
	}
}

func TestStore_CorruptBlob(t *testing.T) {
	ctx := context.Background()
	blob := NewMemoryBlob()
	require.NoError(t, blob.Save(ctx, []byte("{not json")))

	_, err := NewStore(blob).List(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode cart")
}

func TestStore_NullBlobIsEmpty(t *testing.T) {
	ctx := context.Background()
	blob := NewMemoryBlob()
	require.NoError(t, blob.Save(ctx, []byte("null")))

	items, err := NewStore(blob).List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

type failingBlob struct{ err error }

func (b failingBlob) Load(context.Context) ([]byte, error) { return nil, b.err }
func (b failingBlob) Save(context.Context, []byte) error    { return b.err }
func (b failingBlob) Delete(context.Context) error          { return b.err }

func TestStore_BackendErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	s := NewStore(failingBlob{err: boom})

	_, err := s.List(ctx)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.Add(ctx, domain.NewProductItem(1)), boom)
	assert.ErrorIs(t, s.Remove(ctx, 0), boom)
	assert.ErrorIs(t, s.Clear(ctx), boom)
}

func TestStore_BlobFormatMatchesBrowserCart(t *testing.T) {
	ctx := context.Background()
	blob := NewMemoryBlob()
	require.NoError(t, NewStore(blob).Add(ctx, domain.NewProductItem(1)))

	data, err := blob.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"pickup_edge_hangboard","name":"Pickup Edge Hangboard","price":35,"quantity":1}]`, string(data))
}

func TestStore_ReadsBrowserCart(t *testing.T) {
	ctx := context.Background()
	blob := NewMemoryBlob()
	require.NoError(t, blob.Save(ctx, []byte(`[{"id":"pickup_edge_hangboard","name":"Pickup Edge Hangboard","price":35.00,"quantity":2}]`)))

	items, err := NewStore(blob).List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(7000), items[0].LineTotal())
}

func TestSubtotal(t *testing.T) {
	assert.Equal(t, int64(0), Subtotal(nil))
	items := []domain.CartItem{domain.NewProductItem(1), domain.NewProductItem(2)}
	assert.Equal(t, int64(10500), Subtotal(items))
}

func TestRedisBlob_UsesKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, NewStore(NewRedisBlob(client, "")).Add(ctx, domain.NewProductItem(1)))
	assert.True(t, mr.Exists(DefaultKey))

	require.NoError(t, NewStore(NewRedisBlob(client, "cart:alice")).Add(ctx, domain.NewProductItem(1)))
	assert.True(t, mr.Exists("cart:alice"))
}

func TestFileBlob_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	blob := NewFileBlob(filepath.Join(dir, "cart.json"))
	ctx := context.Background()

	require.NoError(t, NewStore(blob).Add(ctx, domain.NewProductItem(1)))
	require.NoError(t, NewStore(blob).Add(ctx, domain.NewProductItem(1)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cart.json", entries[0].Name())
	assert.Equal(t, filepath.Join(dir, "cart.json"), blob.Path())
}
