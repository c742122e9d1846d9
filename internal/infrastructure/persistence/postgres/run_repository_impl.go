package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/dreschagin/bench-history/internal/domain/entity"
	"github.com/dreschagin/bench-history/internal/domain/repository"
	"github.com/dreschagin/bench-history/internal/domain/valueobject"
)

const runColumns = `
	id, suite, commit_id, commit_message, commit_timestamp, commit_url,
	commit_author, commit_committer, cpu_model, cpu_speed_mhz,
	cpu_physical_cores, cpu_logical_cores, extra, recorded_at, created_at
`

// PostgresRunRepository реализует repository.RunRepository для PostgreSQL
type PostgresRunRepository struct {
	db *sql.DB
}

// NewPostgresRunRepository создает новый PostgreSQL repository
func NewPostgresRunRepository(db *sql.DB) *PostgresRunRepository {
	return &PostgresRunRepository{
		db: db,
	}
}

// Save сохраняет один прогон вместе с его измерениями
func (r *PostgresRunRepository) Save(ctx context.Context, record *entity.RunRecord) error {
	return r.SaveBatch(ctx, []*entity.RunRecord{record})
}

// SaveBatch сохраняет несколько прогонов одной транзакцией
func (r *PostgresRunRepository) SaveBatch(ctx context.Context, records []*entity.RunRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	runStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO runs (
			id, suite, commit_id, commit_message, commit_timestamp, commit_url,
			commit_author, commit_committer, cpu_model, cpu_speed_mhz,
			cpu_physical_cores, cpu_logical_cores, extra, recorded_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare run statement: %w", err)
	}
	defer runStmt.Close()

	benchStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_measurements (run_id, position, name, value, unit, value_range, bench_group, extra)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare measurement statement: %w", err)
	}
	defer benchStmt.Close()

	for _, record := range records {
		model, measurements, err := ToDBModel(record)
		if err != nil {
			return fmt.Errorf("failed to convert run to DB model: %w", err)
		}

		_, err = runStmt.ExecContext(ctx,
			model.ID,
			model.Suite,
			model.CommitID,
			model.CommitMessage,
			model.CommitTimestamp,
			model.CommitURL,
			model.CommitAuthor,
			model.CommitCommitter,
			model.CPUModel,
			model.CPUSpeedMHz,
			model.CPUPhysical,
			model.CPULogical,
			model.Extra,
			model.RecordedAt,
			model.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		for _, m := range measurements {
			_, err = benchStmt.ExecContext(ctx,
				m.RunID,
				m.Position,
				m.Name,
				m.Value,
				m.Unit,
				m.Range,
				m.Group,
				m.Extra,
			)
			if err != nil {
				return fmt.Errorf("failed to insert measurement: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindByID находит прогон по идентификатору
func (r *PostgresRunRepository) FindByID(ctx context.Context, id string) (*entity.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	model, err := ScanRunRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run not found: %s", id)
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return r.hydrate(ctx, model)
}

// FindBySuite находит прогоны набора, новые первыми, с ограничением количества
func (r *PostgresRunRepository) FindBySuite(ctx context.Context, suite string, limit int) ([]*entity.RunRecord, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE suite = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, suite, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	return r.scanRuns(ctx, rows)
}

// FindByTimeRange находит прогоны набора в заданном диапазоне
func (r *PostgresRunRepository) FindByTimeRange(
	ctx context.Context,
	suite string,
	timeRange valueobject.TimeRange,
) ([]*entity.RunRecord, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE suite = $1 AND recorded_at BETWEEN $2 AND $3
		ORDER BY recorded_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, suite, timeRange.Start(), timeRange.End())
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	return r.scanRuns(ctx, rows)
}

// FindLatest находит последний прогон каждого набора
func (r *PostgresRunRepository) FindLatest(ctx context.Context) (map[string]*entity.RunRecord, error) {
	query := `
		SELECT DISTINCT ON (suite) ` + runColumns + `
		FROM runs
		ORDER BY suite, recorded_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest runs: %w", err)
	}
	defer rows.Close()

	records, err := r.scanRuns(ctx, rows)
	if err != nil {
		return nil, err
	}

	// Преобразуем в map
	result := make(map[string]*entity.RunRecord, len(records))
	for _, record := range records {
		result[record.Suite()] = record
	}

	return result, nil
}

// FindLatestBySuite находит последний прогон указанного набора
func (r *PostgresRunRepository) FindLatestBySuite(ctx context.Context, suite string) (*entity.RunRecord, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE suite = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`

	row := r.db.QueryRowContext(ctx, query, suite)
	model, err := ScanRunRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no runs found for suite: %s", suite)
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return r.hydrate(ctx, model)
}

// FindPrevious находит ближайший прогон набора строго раньше указанного момента.
// Возвращает (nil, nil), если baseline отсутствует.
func (r *PostgresRunRepository) FindPrevious(ctx context.Context, suite string, before time.Time) (*entity.RunRecord, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE suite = $1 AND recorded_at < $2
		ORDER BY recorded_at DESC
		LIMIT 1
	`

	row := r.db.QueryRowContext(ctx, query, suite, before)
	model, err := ScanRunRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return r.hydrate(ctx, model)
}

// FindMeasurementSeries возвращает тренд одного теста внутри набора
func (r *PostgresRunRepository) FindMeasurementSeries(
	ctx context.Context,
	suite, testName string,
	timeRange valueobject.TimeRange,
) ([]repository.SeriesPoint, error) {
	query := `
		SELECT r.recorded_at, r.commit_id, m.value, m.unit, m.value_range
		FROM run_measurements m
		JOIN runs r ON r.id = m.run_id
		WHERE r.suite = $1 AND m.name = $2 AND r.recorded_at BETWEEN $3 AND $4
		ORDER BY r.recorded_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, suite, testName, timeRange.Start(), timeRange.End())
	if err != nil {
		return nil, fmt.Errorf("failed to query measurement series: %w", err)
	}
	defer rows.Close()

	var points []repository.SeriesPoint
	for rows.Next() {
		var p repository.SeriesPoint
		if err := rows.Scan(&p.RecordedAt, &p.CommitID, &p.Value, &p.Unit, &p.Range); err != nil {
			return nil, fmt.Errorf("failed to scan series point: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return points, nil
}

// ExistsByCommit проверяет наличие прогона с таким же коммитом и временем
func (r *PostgresRunRepository) ExistsByCommit(ctx context.Context, suite, commitID string, recordedAt time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM runs
			WHERE suite = $1 AND commit_id = $2 AND recorded_at = $3
		)
	`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, suite, commitID, recordedAt).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check run existence: %w", err)
	}

	return exists, nil
}

// DeleteOlderThan удаляет прогоны старше указанного момента.
// Измерения каскадно удаляются через FK.
func (r *PostgresRunRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM runs WHERE recorded_at < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old runs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return deleted, nil
}

// TrimSuite оставляет только maxRuns последних прогонов набора
func (r *PostgresRunRepository) TrimSuite(ctx context.Context, suite string, maxRuns int) (int64, error) {
	query := `
		DELETE FROM runs
		WHERE suite = $1 AND id NOT IN (
			SELECT id FROM runs
			WHERE suite = $1
			ORDER BY recorded_at DESC
			LIMIT $2
		)
	`

	result, err := r.db.ExecContext(ctx, query, suite, maxRuns)
	if err != nil {
		return 0, fmt.Errorf("failed to trim suite: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return deleted, nil
}

// Count возвращает количество прогонов набора
func (r *PostgresRunRepository) Count(ctx context.Context, suite string) (int64, error) {
	query := `SELECT COUNT(*) FROM runs WHERE suite = $1`

	var count int64
	err := r.db.QueryRowContext(ctx, query, suite).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}

	return count, nil
}

// Suites возвращает список известных наборов в алфавитном порядке
func (r *PostgresRunRepository) Suites(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT suite FROM runs ORDER BY suite ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query suites: %w", err)
	}
	defer rows.Close()

	var suites []string
	for rows.Next() {
		var suite string
		if err := rows.Scan(&suite); err != nil {
			return nil, fmt.Errorf("failed to scan suite: %w", err)
		}
		suites = append(suites, suite)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return suites, nil
}

// hydrate дозагружает измерения прогона
func (r *PostgresRunRepository) hydrate(ctx context.Context, model *RunDBModel) (*entity.RunRecord, error) {
	measurements, err := r.loadMeasurements(ctx, []string{model.ID})
	if err != nil {
		return nil, err
	}

	return ToEntity(model, measurements[model.ID])
}

// scanRuns сканирует строки в слайс прогонов и дозагружает измерения
func (r *PostgresRunRepository) scanRuns(ctx context.Context, rows *sql.Rows) ([]*entity.RunRecord, error) {
	var models []*RunDBModel
	ids := make([]string, 0)

	for rows.Next() {
		model, err := ScanRunRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		models = append(models, model)
		ids = append(ids, model.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if len(models) == 0 {
		return nil, nil
	}

	measurements, err := r.loadMeasurements(ctx, ids)
	if err != nil {
		return nil, err
	}

	records := make([]*entity.RunRecord, 0, len(models))
	for _, model := range models {
		record, err := ToEntity(model, measurements[model.ID])
		if err != nil {
			return nil, fmt.Errorf("failed to convert to entity: %w", err)
		}
		records = append(records, record)
	}

	return records, nil
}

// loadMeasurements загружает измерения нескольких прогонов одним запросом
func (r *PostgresRunRepository) loadMeasurements(ctx context.Context, runIDs []string) (map[string][]MeasurementDBModel, error) {
	query := `
		SELECT run_id, position, name, value, unit, value_range, bench_group, extra
		FROM run_measurements
		WHERE run_id = ANY($1)
		ORDER BY run_id, position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(runIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]MeasurementDBModel, len(runIDs))
	for rows.Next() {
		var m MeasurementDBModel
		err := rows.Scan(&m.RunID, &m.Position, &m.Name, &m.Value, &m.Unit, &m.Range, &m.Group, &m.Extra)
		if err != nil {
			return nil, fmt.Errorf("failed to scan measurement row: %w", err)
		}
		result[m.RunID] = append(result[m.RunID], m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
