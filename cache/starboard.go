package cache

import (
	"errors"
	"sync"

	"github.com/Seklfreak/starboard/starboard"
	"github.com/Seklfreak/starboard/storage"
)

var (
	store          storage.Store
	configResolver *starboard.ConfigResolver
	reconciler     *starboard.Reconciler
	starboardMutex sync.RWMutex
)

func SetStore(s storage.Store) {
	starboardMutex.Lock()
	store = s
	starboardMutex.Unlock()
}

func GetStore() storage.Store {
	starboardMutex.RLock()
	defer starboardMutex.RUnlock()

	if store == nil {
		panic(errors.New("Tried to get store before cache#SetStore() was called"))
	}

	return store
}

func SetConfigResolver(r *starboard.ConfigResolver) {
	starboardMutex.Lock()
	configResolver = r
	starboardMutex.Unlock()
}

func GetConfigResolver() *starboard.ConfigResolver {
	starboardMutex.RLock()
	defer starboardMutex.RUnlock()

	if configResolver == nil {
		panic(errors.New("Tried to get config resolver before cache#SetConfigResolver() was called"))
	}

	return configResolver
}

func SetReconciler(r *starboard.Reconciler) {
	starboardMutex.Lock()
	reconciler = r
	starboardMutex.Unlock()
}

func GetReconciler() *starboard.Reconciler {
	starboardMutex.RLock()
	defer starboardMutex.RUnlock()

	if reconciler == nil {
		panic(errors.New("Tried to get reconciler before cache#SetReconciler() was called"))
	}

	return reconciler
}
