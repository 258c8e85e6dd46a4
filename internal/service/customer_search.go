package service

import (
	"context"
	"strconv"

	"pos-service/internal/cache"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// MinPhonePrefixDigits is the shortest prefix that triggers a scan
const MinPhonePrefixDigits = 3

// CustomerFinder runs the phone range scan over the sales history
type CustomerFinder interface {
	SearchCustomersByPhoneRange(ctx context.Context, prefix, lower, upper string, limit int) ([]models.CustomerMatch, error)
}

// CustomerSearch answers phone prefix lookups from a bounded TTL cache in
// front of a range scan. Results can lag new sales by up to the TTL.
type CustomerSearch struct {
	finder CustomerFinder
	cache  *cache.TTLCache[string, []models.CustomerMatch]
	logger *zap.Logger
}

// NewCustomerSearch creates a new customer search
func NewCustomerSearch(finder CustomerFinder, c *cache.TTLCache[string, []models.CustomerMatch]) *CustomerSearch {
	return &CustomerSearch{
		finder: finder,
		cache:  c,
		logger: util.GetLogger(),
	}
}

// SearchByPhonePrefix returns up to limit distinct customers whose phone
// starts with prefix, ordered by phone. Prefixes shorter than
// MinPhonePrefixDigits digits yield an empty result.
func (cs *CustomerSearch) SearchByPhonePrefix(ctx context.Context, prefix string, limit int) ([]models.CustomerMatch, error) {
	prefix = NormalizePhone(prefix)
	if len(prefix) < MinPhonePrefixDigits || limit < 1 {
		return []models.CustomerMatch{}, nil
	}

	key := prefix + ":" + strconv.Itoa(limit)
	if matches, ok := cs.cache.Get(key); ok {
		util.SearchCacheHitsTotal.Inc()
		return matches, nil
	}
	util.SearchCacheMissesTotal.Inc()

	ctx, span := util.StartSpan(ctx, "CustomerSearch.RangeScan")
	defer span.End()

	upper, bounded := PrefixSuccessor(prefix)
	if !bounded {
		upper = ""
	}

	matches, err := cs.finder.SearchCustomersByPhoneRange(ctx, prefix, prefix, upper, limit)
	if err != nil {
		cs.logger.Error("Phone prefix scan failed", zap.String("prefix", prefix), zap.Error(err))
		return nil, err
	}

	cs.cache.Set(key, matches)
	return matches, nil
}
