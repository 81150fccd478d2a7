package database

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/open-sauced/benchtrend/pkg/history"
)

// SaveHistory stores every snapshot of store under repoURL and returns how
// many snapshots were new. A snapshot is identified by the hash of its full
// record and by how many identical records came before it in the series, so
// saving the same feed twice is a no-op while re-runs sharing a commit and
// date are all kept.
func (h *BenchDbHandler) SaveHistory(repoURL string, store *history.Store) (int, error) {
	tx, err := h.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("could not begin transaction: %w", err)
	}
	//nolint:errcheck
	defer tx.Rollback()

	repoID, err := h.ensureRow(tx,
		"INSERT INTO repos(git_url) VALUES($1) ON CONFLICT (git_url) DO NOTHING",
		"SELECT id FROM repos WHERE git_url=$1",
		repoURL)
	if err != nil {
		return 0, fmt.Errorf("could not save repository %s: %w", repoURL, err)
	}

	inserted := 0
	for _, name := range store.SeriesNames() {
		seriesID, err := h.ensureRow(tx,
			"INSERT INTO series(repo_id, name) VALUES($1, $2) ON CONFLICT (repo_id, name) DO NOTHING",
			"SELECT id FROM series WHERE repo_id=$1 AND name=$2",
			repoID, name)
		if err != nil {
			return 0, fmt.Errorf("could not save series %s: %w", name, err)
		}

		occurrences := make(map[string]int)
		for _, rec := range store.Snapshots(name) {
			record, err := rec.MarshalJSON()
			if err != nil {
				return 0, fmt.Errorf("could not encode snapshot %s of %s: %w", rec.Commit.ID, name, err)
			}

			sum := sha256.Sum256(record)
			recordHash := hex.EncodeToString(sum[:])
			occurrence := occurrences[recordHash]
			occurrences[recordHash]++

			ok, err := h.insertSnapshot(tx, seriesID, rec, record, recordHash, occurrence)
			if err != nil {
				return 0, fmt.Errorf("could not save snapshot %s of %s: %w", rec.Commit.ID, name, err)
			}

			if ok {
				inserted++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("could not commit history: %w", err)
	}

	return inserted, nil
}

// ensureRow runs an insert that ignores conflicts and then selects the id of
// the row, whether this call or a concurrent one created it.
func (h *BenchDbHandler) ensureRow(tx *sql.Tx, insert string, lookup string, args ...any) (int64, error) {
	if _, err := tx.Exec(h.rebind(insert), args...); err != nil {
		return 0, err
	}

	var id int64
	err := tx.QueryRow(h.rebind(lookup), args...).Scan(&id)
	return id, err
}

// insertSnapshot returns false when the snapshot was already stored.
func (h *BenchDbHandler) insertSnapshot(tx *sql.Tx, seriesID int64, rec history.SnapshotRecord, record []byte, recordHash string, occurrence int) (bool, error) {
	var id int64

	err := tx.QueryRow(h.rebind(`INSERT INTO snapshots(series_id, commit_id, date, tool, record, record_hash, occurrence)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (series_id, record_hash, occurrence) DO NOTHING
		RETURNING id`),
		seriesID, rec.Commit.ID, rec.Date, rec.Tool, string(record), recordHash, occurrence).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	for _, m := range rec.Benches {
		_, err = tx.Exec(h.rebind("INSERT INTO measurements(snapshot_id, name, value, unit) VALUES($1, $2, $3, $4)"), id, m.Name, m.Value, m.Unit)
		if err != nil {
			return false, err
		}
	}

	return true, nil
}

// LoadSnapshots reads back the snapshots of one series in the order they
// were first saved.
func (h *BenchDbHandler) LoadSnapshots(repoURL string, series string) ([]history.SnapshotRecord, error) {
	rows, err := h.db.Query(h.rebind(`SELECT sn.record FROM snapshots sn
		JOIN series s ON s.id = sn.series_id
		JOIN repos r ON r.id = s.repo_id
		WHERE r.git_url=$1 AND s.name=$2
		ORDER BY sn.id`), repoURL, series)
	if err != nil {
		return nil, fmt.Errorf("could not query snapshots of %s: %w", series, err)
	}
	defer rows.Close()

	var records []history.SnapshotRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("could not scan snapshot: %w", err)
		}

		rec, _, err := history.DecodeRecord([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("could not decode stored snapshot: %w", err)
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

// LoadHistory rebuilds a store holding every series saved for repoURL.
func (h *BenchDbHandler) LoadHistory(repoURL string) (*history.Store, error) {
	names, err := h.ListSeries(repoURL)
	if err != nil {
		return nil, fmt.Errorf("could not list series of %s: %w", repoURL, err)
	}

	feed := history.Feed{
		RepoURL: repoURL,
		Entries: make(map[string][]history.SnapshotRecord, len(names)),
	}

	for _, name := range names {
		records, err := h.LoadSnapshots(repoURL, name)
		if err != nil {
			return nil, err
		}
		feed.Entries[name] = records
	}

	return history.NewStore(feed), nil
}
