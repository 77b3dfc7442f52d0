package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aayush8356/Vendora/internal/repository"
)

func TestCartStore_Load(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewCartStore(client)
	ctx := context.Background()

	mock.ExpectGet("cart:s1").SetVal(`{"items":[]}`)
	data, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, string(data))

	mock.ExpectGet("cart:missing").RedisNil()
	_, err = store.Load(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrCartNotFound)

	mock.ExpectGet("cart:broken").SetErr(errors.New("connection reset"))
	_, err = store.Load(ctx, "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrCartNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartStore_SaveAndDelete(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewCartStore(client)
	ctx := context.Background()

	payload := []byte(`{"items":[],"total":9.99}`)
	mock.ExpectSet("cart:s1", payload, 2*time.Hour).SetVal("OK")
	require.NoError(t, store.Save(ctx, "s1", payload, 2*time.Hour))

	mock.ExpectDel("cart:s1").SetVal(1)
	require.NoError(t, store.Delete(ctx, "s1"))

	assert.NoError(t, mock.ExpectationsWereMet())
}
