package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"", "   "} {
		client, err := NewClient(context.Background(), key)
		require.ErrorContains(t, err, "API key is required")
		require.Nil(t, client)
	}

	// genai does not call the API until the first request.
	client, err := NewClient(context.Background(), "test-api-key", WithModel("gemini-2.5-pro"))
	require.NoError(t, err)
	require.Equal(t, "gemini-2.5-pro", client.Model())
}

func TestWithModel(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultModel, NewClientWithGenerator(&fakeGenerator{}).Model())
	require.Equal(t, DefaultModel, NewClientWithGenerator(&fakeGenerator{}, WithModel("  ")).Model())

	gen := &fakeGenerator{text: `{"total":"12.00"}`}
	client := NewClientWithGenerator(gen, WithModel("gemini-custom"))
	_, err := client.ParseReceipt(context.Background(), []byte("img"), "image/png")
	require.NoError(t, err)
	require.Equal(t, "gemini-custom", gen.model)
}
