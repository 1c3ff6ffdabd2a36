package database

import (
	"context"
	"database/sql"
	"ecoquest/internal/config"
	"fmt"

	"go.uber.org/zap"
)

// ===============================
// GLOBAL DATABASE ACCESS
// ===============================

var globalManager *Manager

// InitDB initializes the global database manager, runs migrations and
// starts health monitoring.
func InitDB(cfg *config.DatabaseConfig, logger *zap.Logger) error {
	manager, err := NewManager(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	if err := manager.Migrate(cfg.MigrationsPath); err != nil {
		manager.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	manager.StartMonitoring()
	globalManager = manager

	logger.Info("✅ Database initialized")
	return nil
}

// GetManager returns the global database manager
func GetManager() *Manager {
	return globalManager
}

// IsConnected reports whether the database is currently reachable, based on
// the most recent background health check. It performs no I/O itself.
func IsConnected() bool {
	if globalManager == nil {
		return false
	}
	return globalManager.health.IsHealthy()
}

// Health returns the current database health status
func Health(ctx context.Context) *HealthStatus {
	if globalManager == nil {
		return &HealthStatus{Status: "unhealthy", Error: "database not initialized"}
	}
	return globalManager.Health(ctx)
}

// ExecuteTransaction runs fn inside a transaction, rolling back on error or
// panic and committing otherwise.
func ExecuteTransaction(ctx context.Context, manager *Manager, fn func(*sql.Tx) error) error {
	tx, err := manager.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Close shuts down the global database manager
func Close() error {
	if globalManager == nil {
		return nil
	}
	return globalManager.Close()
}
