package aws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRegion(t *testing.T) {
	region, err := resolveRegion(context.Background(), &fakeIMDS{Region: "ap-northeast-2"})
	require.NoError(t, err)
	assert.Equal(t, "ap-northeast-2", region)

	_, err = resolveRegion(context.Background(), &fakeIMDS{})
	assert.Error(t, err)

	_, err = resolveRegion(context.Background(), &fakeIMDS{Err: errUnavailable})
	assert.ErrorIs(t, err, errUnavailable)
}
