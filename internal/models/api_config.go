package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// RateLimitConfig holds token bucket parameters.
type RateLimitConfig struct {
	BucketSize      int `bson:"bucket_size" json:"bucket_size"`
	TokenRefillRate int `bson:"token_refill_rate" json:"token_refill_rate"` // Tokens per second
}

// EndpointConfig overrides rate limits for one gateway route.
// Stored in the `api_endpoints_config` collection.
type EndpointConfig struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Method        string             `bson:"method" json:"method"`
	Path          string             `bson:"path" json:"path"` // gin FullPath, e.g. /v1/feed/next
	RateLimitSoft *RateLimitConfig   `bson:"rate_limit_soft,omitempty" json:"rate_limit_soft,omitempty"`
	RateLimitHard *RateLimitConfig   `bson:"rate_limit_hard,omitempty" json:"rate_limit_hard,omitempty"`
}

// EndpointKey is the cache key for an endpoint's limits.
func EndpointKey(method, path string) string {
	return method + " " + path
}
