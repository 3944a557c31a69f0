package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeDynamoDBClient(t *testing.T) {
	client, err := InitializeDynamoDBClient(context.Background(), "eu-central-1")
	require.NoError(t, err)
	assert.NotNil(t, client)
}
