// Package store persists the small amount of state the contribution flow
// keeps between runs: a key/value cache (the last known contribution count)
// and a history of accepted contributions.
//
// Three implementations share the same interfaces. SQLite is the local
// default for the CLI and web server, Dynamo backs the hosted deployment,
// and Memory serves tests and ephemeral runs.
package store

import (
	"context"
	"time"
)

// KV is a string key/value store. Get reports false when the key is absent.
// Put performs full replacement (upsert semantics). Implementations are safe
// for concurrent use.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

// History records accepted contributions. ListReceipts returns the newest
// receipts first; a limit of zero or less returns all of them.
type History interface {
	AddReceipt(ctx context.Context, r *Receipt) error
	ListReceipts(ctx context.Context, limit int) ([]*Receipt, error)
}

// Local is a closable store serving both roles, as the CLI uses it.
type Local interface {
	KV
	History
	Close() error
}

var (
	_ Local = (*SQLite)(nil)
	_ Local = (*Memory)(nil)
)

// Receipt is one accepted contribution as recorded locally.
type Receipt struct {
	Session             string    `json:"session" dynamodbav:"session"`
	CreatedAt           time.Time `json:"createdAt" dynamodbav:"createdAt"`
	Variant             string    `json:"variant" dynamodbav:"variant"`
	Species             string    `json:"species" dynamodbav:"species"`
	Breed               string    `json:"breed" dynamodbav:"breed"`
	Sex                 string    `json:"sex" dynamodbav:"sex"`
	Age                 string    `json:"age" dynamodbav:"age"`
	Name                string    `json:"name,omitempty" dynamodbav:"name,omitempty"`
	CoatColor           string    `json:"coatColor,omitempty" dynamodbav:"coatColor,omitempty"`
	Message             string    `json:"message,omitempty" dynamodbav:"message,omitempty"`
	TransformedImageURL string    `json:"transformedImageUrl,omitempty" dynamodbav:"transformedImageUrl,omitempty"`
	Prompt              string    `json:"prompt,omitempty" dynamodbav:"prompt,omitempty"`
	HumanAge            *float64  `json:"humanAge,omitempty" dynamodbav:"humanAge,omitempty"`
}
