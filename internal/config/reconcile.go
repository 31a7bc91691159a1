package config

import "time"

// ReconcileConfig tunes the restore engine.
type ReconcileConfig struct {
    CallTimeout  time.Duration // bound on each store / broker call
    LockTTL      time.Duration // lifetime of the per-record Redis lock
    LockPrefix   string        // namespace of lock keys
    StockRetries int           // retries of a version-checked stock update
    Workers      int           // default parallelism of batch restores
}

// LoadReconcileConfig reads RECONCILE_* variables, falling back to defaults.
func LoadReconcileConfig() ReconcileConfig {
    c := ReconcileConfig{
        CallTimeout:  envDur("RECONCILE_CALL_TIMEOUT", 10*time.Second),
        LockTTL:      envDur("RECONCILE_LOCK_TTL", 2*time.Minute),
        LockPrefix:   envStr("RECONCILE_LOCK_PREFIX", "lock"),
        StockRetries: envInt("RECONCILE_STOCK_RETRIES", 3),
        Workers:      envInt("RECONCILE_WORKERS", 4),
    }
    if c.CallTimeout <= 0 { c.CallTimeout = 10 * time.Second }
    if c.LockTTL < c.CallTimeout { c.LockTTL = 12 * c.CallTimeout }
    if c.StockRetries < 1 { c.StockRetries = 1 }
    if c.Workers < 1 { c.Workers = 1 }
    return c
}
