package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "store",
			Name:      "mutations_total",
			Help:      "Cart and wishlist mutations that changed state.",
		},
		[]string{"store", "operation"},
	)

	persistFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "store",
			Name:      "persist_failures_total",
			Help:      "Writes to the session record store that failed.",
		},
		[]string{"store"},
	)
)

const (
	storeCart     = "cart"
	storeWishlist = "wishlist"
)
