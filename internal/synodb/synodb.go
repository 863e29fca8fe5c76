// Package synodb reads album definitions from the Synology Photos
// PostgreSQL database (synofoto) on the NAS.
package synodb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/jackc/pgx/v5/stdlib"

	"synomigrate/internal/config"
)

// Album is a user-created album in Synology Photos.
type Album struct {
	ID        int64
	Name      string
	ItemCount int
}

const (
	// Type 0 filters to user-created albums, excluding the automatic
	// person/place/tag collections Synology Photos maintains.
	albumsQuery = `SELECT id, name, item_count FROM normal_album WHERE type = 0 ORDER BY name`

	albumItemsQuery = `SELECT CONCAT(f.name, '/', u.filename) AS full_path
        FROM many_item_has_many_normal_album ma
        JOIN unit u ON ma.id_item = u.id_item
        JOIN folder f ON u.id_folder = f.id
        WHERE ma.id_normal_album = $1
        ORDER BY full_path`
)

// Fetcher queries album membership from the Synology Photos database.
type Fetcher struct {
	db *sql.DB
}

// Connect opens a connection to the synofoto database described by the
// configuration and verifies it with a ping.
func Connect(ctx context.Context, cfg *config.Config) (*Fetcher, error) {
	if !cfg.HasSynologyDB() {
		return nil, fmt.Errorf("synology database connection is not configured")
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(cfg.Synology.DBUser),
		url.QueryEscape(cfg.Synology.DBPassword),
		cfg.Synology.DBHost,
		cfg.Synology.DBPort,
		url.PathEscape(cfg.Synology.DBName),
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open synology db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping synology db: %w", err)
	}
	return &Fetcher{db: db}, nil
}

// Close releases the database connection.
func (f *Fetcher) Close() error {
	if f == nil || f.db == nil {
		return nil
	}
	return f.db.Close()
}

// Albums returns every user-created album ordered by name.
func (f *Fetcher) Albums(ctx context.Context) ([]Album, error) {
	rows, err := f.db.QueryContext(ctx, albumsQuery)
	if err != nil {
		return nil, fmt.Errorf("query albums: %w", err)
	}
	defer rows.Close()

	var albums []Album
	for rows.Next() {
		var album Album
		if err := rows.Scan(&album.ID, &album.Name, &album.ItemCount); err != nil {
			return nil, fmt.Errorf("scan album: %w", err)
		}
		albums = append(albums, album)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate albums: %w", err)
	}
	return albums, nil
}

// AlbumItemPaths returns the database paths of every item in an album,
// ordered by path. Paths are as the NAS stores them, typically rooted
// at a volume prefix like /volume1/photo.
func (f *Fetcher) AlbumItemPaths(ctx context.Context, albumID int64) ([]string, error) {
	rows, err := f.db.QueryContext(ctx, albumItemsQuery, albumID)
	if err != nil {
		return nil, fmt.Errorf("query album %d items: %w", albumID, err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan album item: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate album items: %w", err)
	}
	return paths, nil
}
