package store

import "context"

// ListStickers returns the whole catalog, grouped by pack.
func (s *Store) ListStickers(ctx context.Context) ([]Sticker, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT st.id, st.pack_name, st.label, f.bucket, f.object_key
		FROM stickers st
		JOIN files f ON f.id = st.file_id
		ORDER BY st.pack_name, st.id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []Sticker
	for rows.Next() {
		var st Sticker
		if err := rows.Scan(&st.ID, &st.PackName, &st.Label, &st.Bucket, &st.Key); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, st)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) StickerByID(ctx context.Context, id int64) (*Sticker, error) {
	var st Sticker
	err := s.pool.QueryRow(ctx, `
		SELECT st.id, st.pack_name, st.label, f.bucket, f.object_key
		FROM stickers st
		JOIN files f ON f.id = st.file_id
		WHERE st.id = $1`, id).
		Scan(&st.ID, &st.PackName, &st.Label, &st.Bucket, &st.Key)
	if err != nil {
		return nil, mapErr(err)
	}
	return &st, nil
}
