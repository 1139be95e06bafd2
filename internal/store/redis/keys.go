package redis

// StreamKey is the Redis Stream holding every event for symbol.
func StreamKey(symbol string) string { return "events:" + symbol }

// PubSubChannel is the live Pub/Sub channel for symbol.
func PubSubChannel(symbol string) string { return "pub:events:" + symbol }

// LatestKey holds the newest non-empty report for symbol.
func LatestKey(symbol string) string { return "events:latest:" + symbol }
