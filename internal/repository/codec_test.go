package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaCodec(t *testing.T) {
	t.Parallel()

	raw, err := EncodeQuotas(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", raw)

	q, err := DecodeQuotas("{}")
	require.NoError(t, err)
	assert.Nil(t, q)

	raw, err = EncodeQuotas(map[string]int{"performer": 3})
	require.NoError(t, err)
	q, err = DecodeQuotas(raw)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"performer": 3}, q)

	_, err = DecodeQuotas("{not json")
	assert.Error(t, err)
}

func TestClassifyPgPassesThroughKinds(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, classifyPg(ErrNotFound, "op"), ErrNotFound)
	assert.Nil(t, classifyPg(nil, "op"))
}
