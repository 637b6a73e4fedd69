package mbtiles

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/noisemap/internal/tile"
)

// ErrTileNotFound is returned by ReadTile for tiles absent from the archive.
var ErrTileNotFound = errors.New("tile not found")

// Reader reads tiles from an MBTiles database.
type Reader struct {
	db   *sql.DB
	path string
}

// OpenReader opens an archive read-only.
func OpenReader(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='tiles'").Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("database does not contain tiles table")
	}

	return &Reader{
		db:   db,
		path: path,
	}, nil
}

// ReadTile returns the decompressed PNG for coords.
func (r *Reader) ReadTile(coords tile.Coords) ([]byte, error) {
	var compressed []byte
	err := r.db.QueryRow(
		"SELECT tile_data FROM tiles WHERE zoom_level=? AND tile_column=? AND tile_row=?",
		coords.Z, coords.X, tmsRow(coords.Z, coords.Y),
	).Scan(&compressed)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTileNotFound, coords)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query tile: %w", err)
	}

	data, err := gzipDecompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress tile %s: %w", coords, err)
	}
	return data, nil
}

// TileCount returns the number of stored tiles.
func (r *Reader) TileCount() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM tiles").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tiles: %w", err)
	}
	return n, nil
}

// Metadata reads and parses the metadata table. Unparseable numeric values
// are left at zero.
func (r *Reader) Metadata() (Metadata, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	kv := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		kv[name] = value
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("error iterating metadata: %w", err)
	}

	return parseMetadata(kv), nil
}

func parseMetadata(kv map[string]string) Metadata {
	atoi := func(k string) int {
		i, _ := strconv.Atoi(kv[k])
		return i
	}
	atof := func(k string) float64 {
		f, _ := strconv.ParseFloat(kv[k], 64)
		return f
	}

	meta := Metadata{
		Name:        kv["name"],
		Format:      kv["format"],
		Description: kv["description"],
		Type:        kv["type"],
		Version:     kv["version"],
		Palette:     kv[keyPalette],
		Source:      kv[keySource],
		MinZoom:     atoi("minzoom"),
		MaxZoom:     atoi("maxzoom"),
		BaseSpan:    atof(keyBaseSpan),
		TileSize:    atoi(keyTileSize),
	}
	meta.FBM.Octaves = atoi(keyOctaves)
	meta.FBM.Amplitude = atof(keyAmplitude)
	meta.FBM.Frequency = atof(keyFrequency)
	meta.FBM.Lacunarity = atof(keyLacunarity)
	meta.FBM.Gain = atof(keyGain)

	if parts := strings.Split(kv["bounds"], ","); len(parts) == 4 {
		for i, part := range parts {
			if f, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err == nil {
				meta.Bounds[i] = f
			}
		}
	}

	return meta
}

// Close closes the database connection.
func (r *Reader) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	return io.ReadAll(gr)
}
