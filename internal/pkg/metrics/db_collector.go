package metrics

import "github.com/jackc/pgx/v5/pgxpool"

// RecordDBPoolMetrics snapshots the pgx pool into the connection gauges.
// The app calls it on a fixed ticker; a bulk send holding connections for a
// long import or recipient query shows up here as sustained in_use.
func RecordDBPoolMetrics(pool *pgxpool.Pool) {
	stats := pool.Stat()

	for state, value := range map[string]float64{
		"in_use": float64(stats.AcquiredConns()),
		"idle":   float64(stats.IdleConns()),
		"max":    float64(stats.MaxConns()),
	} {
		DBPoolConnections.WithLabelValues(state).Set(value)
	}
}
