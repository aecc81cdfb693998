package usage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles database operations for usage tracking
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new usage repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// InsertRecord persists one tracked API call.
func (r *Repository) InsertRecord(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO usage_records (
			id, user_id, api_kind, endpoint, method, path, status_code,
			client_ip, user_agent, request_size, response_size,
			request_body, response_body, response_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	userID := nullableUUID(rec.UserID)
	_, err := r.db.Exec(ctx, query,
		rec.ID, userID, rec.APIKind, rec.Endpoint, rec.Method, rec.Path,
		rec.StatusCode, rec.ClientIP, rec.UserAgent, rec.RequestSize,
		rec.ResponseSize, rec.RequestBody, rec.ResponseBody, rec.ResponseMs,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}
	return nil
}

// InsertAnalytics persists the extracted route detail for a record.
func (r *Repository) InsertAnalytics(ctx context.Context, a *Analytics) error {
	query := `
		INSERT INTO usage_analytics (
			id, record_id, user_id, api_kind, route_type,
			start_lat, start_lng, end_lat, end_lng, waypoints_count,
			distance_m, duration_s, polyline, address,
			formatted_address, place_id, location_type, demand_cell,
			raw_request_blob, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.db.Exec(ctx, query,
		a.ID, a.RecordID, a.UserID, a.APIKind, a.RouteType,
		a.StartLat, a.StartLng, a.EndLat, a.EndLng, a.WaypointsCount,
		a.DistanceM, a.DurationS, a.Polyline, a.Address,
		a.FormattedAddr, a.PlaceID, a.LocationType, a.DemandCell,
		a.RawRequest, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage analytics: %w", err)
	}
	return nil
}

// ListRecords returns a user's tracked calls, newest first.
func (r *Repository) ListRecords(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Record, int64, error) {
	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM usage_records WHERE user_id = $1`, userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count usage records: %w", err)
	}

	query := `
		SELECT
			id, user_id, api_kind, endpoint, method, path, status_code,
			client_ip, user_agent, request_size, response_size,
			COALESCE(request_body, ''), COALESCE(response_body, ''),
			response_ms, created_at
		FROM usage_records
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list usage records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.APIKind, &rec.Endpoint, &rec.Method,
			&rec.Path, &rec.StatusCode, &rec.ClientIP, &rec.UserAgent,
			&rec.RequestSize, &rec.ResponseSize, &rec.RequestBody,
			&rec.ResponseBody, &rec.ResponseMs, &rec.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan usage record: %w", err)
		}
		records = append(records, rec)
	}

	return records, total, nil
}

// GetSummary aggregates a user's tracked calls.
func (r *Repository) GetSummary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	summary := &Summary{}

	query1 := `
		SELECT
			COUNT(*) as total_requests,
			COALESCE(AVG(response_ms), 0) as avg_response_ms,
			CASE
				WHEN COUNT(*) > 0 THEN
					(COUNT(*) FILTER (WHERE status_code >= 400)::float / COUNT(*) * 100)
				ELSE 0
			END as error_rate
		FROM usage_records
		WHERE user_id = $1
	`

	err := r.db.QueryRow(ctx, query1, userID).Scan(
		&summary.TotalRequests,
		&summary.AvgResponseMs,
		&summary.ErrorRate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get usage totals: %w", err)
	}

	query2 := `
		SELECT endpoint, api_kind, COUNT(*) as count
		FROM usage_records
		WHERE user_id = $1
		GROUP BY endpoint, api_kind
		ORDER BY count DESC
		LIMIT 20
	`

	rows, err := r.db.Query(ctx, query2, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get endpoint counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ec EndpointCount
		if err := rows.Scan(&ec.Endpoint, &ec.APIKind, &ec.Count); err != nil {
			return nil, fmt.Errorf("failed to scan endpoint count: %w", err)
		}
		summary.ByEndpoint = append(summary.ByEndpoint, ec)
	}
	rows.Close()

	query3 := `
		SELECT demand_cell, COUNT(*) as count
		FROM usage_analytics
		WHERE user_id = $1
		  AND demand_cell <> ''
		GROUP BY demand_cell
		ORDER BY count DESC
		LIMIT 20
	`

	cellRows, err := r.db.Query(ctx, query3, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get demand cells: %w", err)
	}
	defer cellRows.Close()

	for cellRows.Next() {
		var dc DemandCellCount
		if err := cellRows.Scan(&dc.Cell, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan demand cell: %w", err)
		}
		summary.DemandCells = append(summary.DemandCells, dc)
	}

	return summary, nil
}

func nullableUUID(id uuid.UUID) interface{} {
	if id == uuid.Nil {
		return nil
	}
	return id
}
