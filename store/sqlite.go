package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/PrincetonUniversity/fishswarm"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("store: run not found")

// A Store is a SQLite database of simulation runs.
type Store struct {
	db *sql.DB
}

// A Run describes a stored simulation run.
type Run struct {
	ID        int64
	Name      string
	Params    fishswarm.Parameters
	Particles int
	Frames    int
	CreatedAt time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores the parameters and every frame of a run in a single
// transaction and returns the ID of the new run.
func (s *Store) SaveRun(ctx context.Context, name string, p fishswarm.Parameters, traj *fishswarm.Trajectory) (int64, error) {
	params, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("failed to encode parameters: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	frames := traj.Len()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (name, params, particles, frames, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		name, string(params), p.Particles, frames, time.Now().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO frames (run_id, step, time, state) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare frame insert: %w", err)
	}
	defer stmt.Close()

	buf := make([]byte, 0, particleSize*p.Particles)
	for k, f := range traj.Frames() {
		if k >= frames {
			break
		}
		buf = encodeState(buf[:0], f.Particles)
		if _, err := stmt.ExecContext(ctx, id, f.Step, f.Time, buf); err != nil {
			return 0, fmt.Errorf("failed to insert frame %d: %w", f.Step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// LoadRun returns a stored run and its trajectory.
func (s *Store) LoadRun(ctx context.Context, id int64) (Run, *fishswarm.Trajectory, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `
		SELECT id, name, params, particles, frames, created_at FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT step, time, state FROM frames WHERE run_id = ? ORDER BY step`, id)
	if err != nil {
		return Run{}, nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	traj := fishswarm.NewTrajectory()
	for rows.Next() {
		var f fishswarm.Frame
		var state []byte
		if err := rows.Scan(&f.Step, &f.Time, &state); err != nil {
			return Run{}, nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		if f.Particles, err = decodeState(state); err != nil {
			return Run{}, nil, fmt.Errorf("frame %d: %w", f.Step, err)
		}
		traj.Append(f)
	}
	if err := rows.Err(); err != nil {
		return Run{}, nil, err
	}
	return run, traj, nil
}

// Runs lists the stored runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, params, particles, frames, created_at FROM runs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its frames.
func (s *Store) DeleteRun(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var params, created string
	if err := row.Scan(&run.ID, &run.Name, &params, &run.Particles, &run.Frames, &created); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(params), &run.Params); err != nil {
		return Run{}, fmt.Errorf("run %d: failed to decode parameters: %w", run.ID, err)
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return run, nil
}

// Each particle is stored as 9 little-endian float64: pos, vel and acc.
const particleSize = 9 * 8

// encodeState appends the packed states of ps to buf.
func encodeState(buf []byte, ps []fishswarm.Particle) []byte {
	for _, p := range ps {
		for _, v := range [...]fishswarm.Vec{p.Pos, p.Vel, p.Acc} {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v.X))
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v.Y))
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v.Z))
		}
	}
	return buf
}

// decodeState unpacks a blob written by encodeState.
func decodeState(buf []byte) ([]fishswarm.Particle, error) {
	if len(buf)%particleSize != 0 {
		return nil, fmt.Errorf("corrupt state of %d bytes", len(buf))
	}
	ps := make([]fishswarm.Particle, len(buf)/particleSize)
	next := func() float64 {
		x := math.Float64frombits(binary.LittleEndian.Uint64(buf))
		buf = buf[8:]
		return x
	}
	for i := range ps {
		ps[i].ID = i
		for _, v := range [...]*fishswarm.Vec{&ps[i].Pos, &ps[i].Vel, &ps[i].Acc} {
			v.X, v.Y, v.Z = next(), next(), next()
		}
	}
	return ps, nil
}
