package internal

import (
	"github.com/dealmungchi/freegameworker/logger"
	"github.com/dealmungchi/freegameworker/services/cache"
	"github.com/dealmungchi/freegameworker/services/dedup"
	"github.com/dealmungchi/freegameworker/services/publisher"
)

// Dependencies holds all service dependencies
type Dependencies struct {
	Cache     cache.CacheService
	Store     dedup.Store
	Publisher publisher.Publisher
}

// Cleanup closes the services that hold connections
func (d *Dependencies) Cleanup() {
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			logger.ForPublisher().Warn().Err(err).Msg("Failed to close publisher")
		}
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			logger.ForStore().Warn().Err(err).Msg("Failed to close dedup store")
		}
	}
}
