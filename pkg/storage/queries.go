package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/whispernote/whisperd/pkg/protocol"
)

// TransmissionQuery represents query parameters for retrieving transmissions
type TransmissionQuery struct {
	Limit     int
	Offset    int
	Since     *time.Time
	Until     *time.Time
	NodeID    string
	Direction string // "RX", "TX", or "" for both
	Medium    string // "audio", "rf", or "" for both
	Status    string
}

// TransmissionStats represents database statistics
type TransmissionStats struct {
	TotalTransmissions int       `json:"total_transmissions"`
	TotalRX            int       `json:"total_rx"`
	TotalTX            int       `json:"total_tx"`
	TotalFailed        int       `json:"total_failed"`
	LastCleanup        time.Time `json:"last_cleanup"`
}

// GetTransmissions retrieves transmission records based on query parameters
func (ts *TransmissionStore) GetTransmissions(query TransmissionQuery) ([]protocol.Transmission, error) {
	var args []interface{}
	var conditions []string

	sqlQuery := `
		SELECT id, timestamp, direction, medium, node_id,
			   payload, payload_size, duration_ms, status
		FROM transmissions
		WHERE 1=1
	`

	if query.Since != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, query.Since)
	}

	if query.Until != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, query.Until)
	}

	if query.NodeID != "" {
		conditions = append(conditions, "node_id = ?")
		args = append(args, query.NodeID)
	}

	if query.Direction != "" {
		conditions = append(conditions, "direction = ?")
		args = append(args, query.Direction)
	}

	if query.Medium != "" {
		conditions = append(conditions, "medium = ?")
		args = append(args, query.Medium)
	}

	if query.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, query.Status)
	}

	// Add conditions to query
	for _, condition := range conditions {
		sqlQuery += " AND " + condition
	}

	// Order by timestamp descending (newest first)
	sqlQuery += " ORDER BY timestamp DESC"

	// Add limit and offset
	if query.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, query.Limit)

		if query.Offset > 0 {
			sqlQuery += " OFFSET ?"
			args = append(args, query.Offset)
		}
	}

	rows, err := ts.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transmissions: %w", err)
	}
	defer rows.Close()

	var records []protocol.Transmission
	for rows.Next() {
		var record protocol.Transmission
		err := rows.Scan(
			&record.ID,
			&record.Timestamp,
			&record.Direction,
			&record.Medium,
			&record.NodeID,
			&record.Payload,
			&record.PayloadSize,
			&record.DurationMS,
			&record.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transmission: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// GetRecentTransmissions retrieves the most recent transmission records
func (ts *TransmissionStore) GetRecentTransmissions(limit int) ([]protocol.Transmission, error) {
	query := TransmissionQuery{
		Limit: limit,
	}
	return ts.GetTransmissions(query)
}

// GetTransmissionsByDirection retrieves transmissions filtered by direction
func (ts *TransmissionStore) GetTransmissionsByDirection(direction string, limit int) ([]protocol.Transmission, error) {
	query := TransmissionQuery{
		Direction: direction,
		Limit:     limit,
	}
	return ts.GetTransmissions(query)
}

// GetTransmissionsByMedium retrieves transmissions filtered by medium
func (ts *TransmissionStore) GetTransmissionsByMedium(medium string, limit int) ([]protocol.Transmission, error) {
	query := TransmissionQuery{
		Medium: medium,
		Limit:  limit,
	}
	return ts.GetTransmissions(query)
}

// GetFailedTransmissions retrieves transmissions that did not decode cleanly
func (ts *TransmissionStore) GetFailedTransmissions(limit int) ([]protocol.Transmission, error) {
	var args []interface{}

	sqlQuery := `
		SELECT id, timestamp, direction, medium, node_id,
			   payload, payload_size, duration_ms, status
		FROM transmissions
		WHERE status != 'ok'
		ORDER BY timestamp DESC
	`

	if limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := ts.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed transmissions: %w", err)
	}
	defer rows.Close()

	var records []protocol.Transmission
	for rows.Next() {
		var record protocol.Transmission
		err := rows.Scan(
			&record.ID,
			&record.Timestamp,
			&record.Direction,
			&record.Medium,
			&record.NodeID,
			&record.Payload,
			&record.PayloadSize,
			&record.DurationMS,
			&record.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transmission: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// GetTransmissionStats retrieves database statistics
func (ts *TransmissionStore) GetTransmissionStats() (*TransmissionStats, error) {
	var stats TransmissionStats
	var lastCleanup sql.NullTime

	err := ts.db.QueryRow(`
		SELECT total_transmissions, total_rx, total_tx, total_failed, last_cleanup
		FROM transmission_stats WHERE id = 1
	`).Scan(&stats.TotalTransmissions, &stats.TotalRX, &stats.TotalTX, &stats.TotalFailed, &lastCleanup)

	if err != nil {
		return nil, fmt.Errorf("failed to get transmission stats: %w", err)
	}

	if lastCleanup.Valid {
		stats.LastCleanup = lastCleanup.Time
	}

	return &stats, nil
}

// GetTransmissionCount returns the total number of stored transmissions
func (ts *TransmissionStore) GetTransmissionCount() (int, error) {
	var count int
	err := ts.db.QueryRow("SELECT COUNT(*) FROM transmissions").Scan(&count)
	return count, err
}
