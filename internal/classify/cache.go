package classify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	verdictKeyPrefix = "verdict:"
)

var cacheCtx = context.Background()

// VerdictCache remembers which rule tags matched a message, so repeated
// messages skip the completion round trip.
type VerdictCache interface {
	GetVerdict(message string) ([]string, bool)
	PutVerdict(message string, tags []string)
}

// NewVerdictCache returns a local in-memory cache, or a redis-backed one
// when the agent runs as one of several instances sharing a classifier.
func NewVerdictCache(isMultiInstance bool, expiration time.Duration, log *zap.SugaredLogger, kvStore *redis.Client) VerdictCache {
	if isMultiInstance {
		return &distributedVerdictCache{
			kvStore:    kvStore,
			expiration: expiration,
			log:        log,
		}
	}

	return &localVerdictCache{
		log:        log,
		expiration: expiration,
		lock:       sync.RWMutex{},
		verdicts:   make(map[string]localVerdict),
	}
}

// messageKey collapses a message of any size into a fixed cache key.
func messageKey(message string) string {
	sum := sha256.Sum256([]byte(message))
	return hex.EncodeToString(sum[:])
}

type localVerdict struct {
	tags     []string
	expireAt time.Time
}

// localVerdictCache is the verdict cache for a single instance agent
type localVerdictCache struct {
	verdicts   map[string]localVerdict
	expiration time.Duration
	lock       sync.RWMutex
	log        *zap.SugaredLogger
}

// GetVerdict returns the cached tags for a message. An expired entry is
// cleared out and reported as a miss.
func (c *localVerdictCache) GetVerdict(message string) ([]string, bool) {
	key := messageKey(message)

	c.lock.Lock()
	defer c.lock.Unlock()

	verdict, ok := c.verdicts[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(verdict.expireAt) {
		delete(c.verdicts, key)
		return nil, false
	}
	return verdict.tags, true
}

// PutVerdict stores the tags matched for a message
func (c *localVerdictCache) PutVerdict(message string, tags []string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.verdicts[messageKey(message)] = localVerdict{
		tags:     tags,
		expireAt: time.Now().Add(c.expiration),
	}
}

// distributedVerdictCache is the verdict cache for a multi-instance agent
type distributedVerdictCache struct {
	kvStore    *redis.Client
	expiration time.Duration
	log        *zap.SugaredLogger
}

func (c *distributedVerdictCache) GetVerdict(message string) ([]string, bool) {
	data, err := c.kvStore.Get(cacheCtx, c.getKey(message)).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Errorf("verdict cache: error while retrieving verdict: %v", err)
		}
		return nil, false
	}

	var tags []string
	if err := json.Unmarshal([]byte(data), &tags); err != nil {
		c.log.Debugf("verdict cache: error [%v] while unmarshaling the verdict [%s]", err, data)
		return nil, false
	}
	return tags, true
}

func (c *distributedVerdictCache) PutVerdict(message string, tags []string) {
	data, err := json.Marshal(tags)
	if err != nil {
		c.log.Debugf("verdict cache: error [%v] while marshaling the verdict", err)
		return
	}
	c.kvStore.Set(cacheCtx, c.getKey(message), string(data), c.expiration)
}

func (c *distributedVerdictCache) getKey(message string) string {
	return verdictKeyPrefix + messageKey(message)
}
