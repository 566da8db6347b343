package embedding

import (
	"fmt"
	"os"

	"github.com/openai/openai-go"
)

// Client wraps the OpenAI client used for embedding generation.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI client for embedding generation. The
// OPENAI_API_KEY environment variable must be set.
func NewClient() (*Client, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	// openai-go reads OPENAI_API_KEY from the environment
	client := openai.NewClient()

	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client so other components (the
// answer generator) can share one connection.
func (c *Client) Client() *openai.Client {
	return c.client
}
