package cache

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chefmarket/backend/internal/domain"
)

func TestNewCodec(t *testing.T) {
	c, err := NewCodec("")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())

	c, err = NewCodec("msgpack")
	require.NoError(t, err)
	assert.Equal(t, "msgpack", c.Name())

	_, err = NewCodec("xml")
	assert.Error(t, err)
}

func TestCodecs_RoundTripComparison(t *testing.T) {
	scrapedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in := domain.PriceComparison{
		IngredientName: "rice",
		Found:          true,
		MinPrice:       decimal.RequireFromString("10"),
		MaxPrice:       decimal.RequireFromString("20.5"),
		AvgPrice:       decimal.RequireFromString("15.25"),
		TotalSources:   2,
		Sources: []domain.SourcePrice{
			{SourceID: 1, SourceName: "market", ProductName: "Rice 1kg", Price: decimal.RequireFromString("10"), Currency: "USD", ScrapedAt: scrapedAt},
		},
	}

	for _, codec := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			data, err := EncodeValue(codec, in, true)
			require.NoError(t, err)
			assert.False(t, IsNullSentinel(data))

			out, found, err := DecodeValue[domain.PriceComparison](codec, data)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, in.IngredientName, out.IngredientName)
			assert.True(t, in.MaxPrice.Equal(out.MaxPrice))
			assert.True(t, in.AvgPrice.Equal(out.AvgPrice))
			require.Len(t, out.Sources, 1)
			assert.True(t, scrapedAt.Equal(out.Sources[0].ScrapedAt))
		})
	}
}

func TestCodecs_NothingIsSentinel(t *testing.T) {
	for _, codec := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			data, err := EncodeValue(codec, "ignored", false)
			require.NoError(t, err)
			assert.Equal(t, NullSentinel, string(data))

			out, found, err := DecodeValue[string](codec, data)
			require.NoError(t, err)
			assert.False(t, found)
			assert.Empty(t, out, "sentinel must never be returned as data")
		})
	}
}

func TestCodecs_SentinelTextIsOrdinaryData(t *testing.T) {
	// A legitimate string equal to the sentinel text still round-trips as data.
	for _, codec := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			data, err := EncodeValue(codec, NullSentinel, true)
			require.NoError(t, err)

			out, found, err := DecodeValue[string](codec, data)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, NullSentinel, out)
		})
	}
}

func TestDecodeValue_Garbage(t *testing.T) {
	_, found, err := DecodeValue[domain.PriceComparison](JSONCodec{}, []byte("{not json"))
	assert.Error(t, err)
	assert.False(t, found)
}
