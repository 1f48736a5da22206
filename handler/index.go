package handler

import (
	"passculture/config"
	"passculture/helper"

	"github.com/redis/go-redis/v9"
)

var (
	appFeatures config.Features
	redisClient *redis.Client
)

// Setup wires the shared clients and the feature flags. Called once from
// main before the routes are registered.
func Setup(features config.Features, rdb *redis.Client) {
	appFeatures = features
	redisClient = rdb
	helper.OnStockUpdate = BroadcastOfferStock
}
