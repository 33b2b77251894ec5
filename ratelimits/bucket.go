package ratelimits

import (
	"errors"
	"sync"
	"time"
)

const (
	// How many keys a bucket may contain when created
	BUCKET_INITIAL_FILL = 16

	// How often new keys drip into the buckets
	DROP_INTERVAL = 10 * time.Second

	// How many keys may drop at a time
	DROP_SIZE = 1
)

var ErrNoKeysLeft = errors.New("no keys left")

// Global pointer to a container instance
var Container = NewBucketContainer()

// BucketContainer hands out command keys per user
type BucketContainer struct {
	sync.Mutex

	// Maps discord ids to key-counts
	buckets map[string]int8
	stop    chan struct{}
}

func NewBucketContainer() *BucketContainer {
	return &BucketContainer{buckets: make(map[string]int8)}
}

// Init starts refilling the buckets until Stop is called
func (b *BucketContainer) Init() {
	b.Lock()
	if b.stop != nil {
		b.Unlock()
		return
	}
	b.stop = make(chan struct{})
	stop := b.stop
	b.Unlock()

	go func() {
		ticker := time.NewTicker(DROP_INTERVAL)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.Refill()
			case <-stop:
				return
			}
		}
	}()
}

func (b *BucketContainer) Stop() {
	b.Lock()
	defer b.Unlock()
	if b.stop != nil {
		close(b.stop)
		b.stop = nil
	}
}

// Refill drops DROP_SIZE keys into every bucket, full buckets are forgotten
func (b *BucketContainer) Refill() {
	b.Lock()
	defer b.Unlock()

	for user, keys := range b.buckets {
		keys += DROP_SIZE
		if keys >= BUCKET_INITIAL_FILL {
			delete(b.buckets, user)
			continue
		}
		b.buckets[user] = keys
	}
}

// Drain removes $amount from $user if he has enough keys left
func (b *BucketContainer) Drain(amount int8, user string) error {
	b.Lock()
	defer b.Unlock()

	keys, ok := b.buckets[user]
	if !ok {
		keys = BUCKET_INITIAL_FILL
	}
	if amount > keys {
		return ErrNoKeysLeft
	}

	b.buckets[user] = keys - amount
	return nil
}

// Get returns the keys $user has left
func (b *BucketContainer) Get(user string) int8 {
	b.Lock()
	defer b.Unlock()

	keys, ok := b.buckets[user]
	if !ok {
		return BUCKET_INITIAL_FILL
	}
	return keys
}
