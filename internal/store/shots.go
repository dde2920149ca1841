package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/phrack/ShootOFF-sub002/internal/shot"
)

// ShotRecord is an accepted shot as stored in the journal.
type ShotRecord struct {
	ID           string    `json:"id"`
	Camera       string    `json:"camera"`
	SessionID    string    `json:"session_id"`
	Color        string    `json:"color"`
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	Frame        int       `json:"frame"`
	MarkerRadius int       `json:"marker_radius"`
	ShotAt       time.Time `json:"shot_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewShotRecord builds a record for a shot seen by camera.
func NewShotRecord(camera, sessionID string, s shot.Shot) *ShotRecord {
	return &ShotRecord{
		Camera:       camera,
		SessionID:    sessionID,
		Color:        s.Color.String(),
		X:            s.X,
		Y:            s.Y,
		Frame:        s.Frame,
		MarkerRadius: s.MarkerRadius,
		ShotAt:       s.Timestamp,
	}
}

// ShotRepository provides access to the shot journal.
type ShotRepository struct {
	db *sql.DB
}

// Shots returns the shot repository for this store.
func (s *Store) Shots() *ShotRepository {
	return &ShotRepository{db: s.db}
}

// Create inserts a shot. An empty ID is filled with a new UUID.
func (r *ShotRepository) Create(rec *ShotRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO shots (id, camera, session_id, color, x, y, frame, marker_radius, shot_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Camera, rec.SessionID, rec.Color, rec.X, rec.Y, rec.Frame,
		rec.MarkerRadius, rec.ShotAt, rec.CreatedAt,
	)
	return err
}

// List returns up to limit shots, newest first. limit <= 0 returns all.
func (r *ShotRepository) List(limit int) ([]*ShotRecord, error) {
	return r.query(
		`SELECT id, camera, session_id, color, x, y, frame, marker_radius, shot_at, created_at
		 FROM shots ORDER BY shot_at DESC, frame DESC LIMIT ?`,
		limitArg(limit),
	)
}

// ListByCamera returns up to limit shots for one camera, newest first.
func (r *ShotRepository) ListByCamera(camera string, limit int) ([]*ShotRecord, error) {
	return r.query(
		`SELECT id, camera, session_id, color, x, y, frame, marker_radius, shot_at, created_at
		 FROM shots WHERE camera = ? ORDER BY shot_at DESC, frame DESC LIMIT ?`,
		camera, limitArg(limit),
	)
}

// Count returns the number of stored shots.
func (r *ShotRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM shots`).Scan(&n)
	return n, err
}

// DeleteAll clears the journal, optionally for one camera only, and returns
// the number of shots removed.
func (r *ShotRepository) DeleteAll(camera string) (int64, error) {
	var (
		result sql.Result
		err    error
	)
	if camera == "" {
		result, err = r.db.Exec(`DELETE FROM shots`)
	} else {
		result, err = r.db.Exec(`DELETE FROM shots WHERE camera = ?`, camera)
	}
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *ShotRepository) query(q string, args ...any) ([]*ShotRecord, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shots []*ShotRecord
	for rows.Next() {
		rec := &ShotRecord{}
		err := rows.Scan(&rec.ID, &rec.Camera, &rec.SessionID, &rec.Color, &rec.X, &rec.Y,
			&rec.Frame, &rec.MarkerRadius, &rec.ShotAt, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}
		shots = append(shots, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return shots, nil
}

// limitArg maps "no limit" onto sqlite's -1.
func limitArg(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
