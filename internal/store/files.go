package store

import "context"

// CreateFile records an uploaded object's metadata after the blob itself is
// already in object storage.
func (s *Store) CreateFile(ctx context.Context, ownerID int64, bucket, key, fileName, contentType string, sizeBytes int64) (*File, error) {
	var f File
	err := s.pool.QueryRow(ctx, `
		INSERT INTO files (owner_id, bucket, object_key, file_name, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, owner_id, bucket, object_key, file_name, content_type, size_bytes, created_at`,
		ownerID, bucket, key, fileName, contentType, sizeBytes).
		Scan(&f.ID, &f.OwnerID, &f.Bucket, &f.ObjectKey, &f.FileName, &f.ContentType, &f.SizeBytes, &f.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &f, nil
}

func (s *Store) FileByID(ctx context.Context, id int64) (*File, error) {
	var f File
	err := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, bucket, object_key, file_name, content_type, size_bytes, created_at
		FROM files WHERE id = $1`, id).
		Scan(&f.ID, &f.OwnerID, &f.Bucket, &f.ObjectKey, &f.FileName, &f.ContentType, &f.SizeBytes, &f.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &f, nil
}
