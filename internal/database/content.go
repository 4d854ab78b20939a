package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rentadesk/internal/models"
)

// CreatePost inserts a blog post.
func (db *DB) CreatePost(ctx context.Context, p *models.Post) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO posts (title, slug, body, cover_image, author, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Slug, p.Body, p.CoverImage, p.Author, p.PublishedAt, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetPostBySlug returns a post by slug.
func (db *DB) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var p models.Post
	var cover, author sql.NullString
	var published sql.NullTime
	err := db.QueryRowContext(ctx, `
		SELECT id, title, slug, body, cover_image, author, published_at, created_at, updated_at
		FROM posts WHERE slug = ?`,
		slug,
	).Scan(&p.ID, &p.Title, &p.Slug, &p.Body, &cover, &author, &published, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.CoverImage = cover.String
	p.Author = author.String
	if published.Valid {
		p.PublishedAt = &published.Time
	}
	return &p, nil
}

// ListPosts returns posts newest first; publishedOnly hides drafts.
func (db *DB) ListPosts(ctx context.Context, publishedOnly bool) ([]models.Post, error) {
	query := `
		SELECT id, title, slug, body, cover_image, author, published_at, created_at, updated_at
		FROM posts`
	if publishedOnly {
		query += " WHERE published_at IS NOT NULL AND published_at <= CURRENT_TIMESTAMP"
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var p models.Post
		var cover, author sql.NullString
		var published sql.NullTime
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Body, &cover, &author, &published, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.CoverImage = cover.String
		p.Author = author.String
		if published.Valid {
			p.PublishedAt = &published.Time
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// UpdatePost updates a post. Returns ErrNotFound for an unknown id.
func (db *DB) UpdatePost(ctx context.Context, p *models.Post) error {
	res, err := db.ExecContext(ctx, `
		UPDATE posts
		SET title = ?, slug = ?, body = ?, cover_image = ?, author = ?, published_at = ?, updated_at = ?
		WHERE id = ?`,
		p.Title, p.Slug, p.Body, p.CoverImage, p.Author, p.PublishedAt, time.Now(), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return requireRow(res)
}

// DeletePost removes a post. Returns ErrNotFound for an unknown id.
func (db *DB) DeletePost(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return requireRow(res)
}

// CreateUnitEvent inserts an announced event.
func (db *DB) CreateUnitEvent(ctx context.Context, e *models.UnitEvent) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO unit_events (title, description, location, starts_at, ends_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Description, e.Location, e.StartsAt, e.EndsAt, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert unit event: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	e.CreatedAt = now
	e.UpdatedAt = now
	return nil
}

// ListUpcomingUnitEvents returns events ending after now, soonest first.
func (db *DB) ListUpcomingUnitEvents(ctx context.Context, now time.Time) ([]models.UnitEvent, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, title, description, location, starts_at, ends_at, created_at, updated_at
		FROM unit_events WHERE ends_at > ? ORDER BY starts_at`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("list unit events: %w", err)
	}
	defer rows.Close()

	var events []models.UnitEvent
	for rows.Next() {
		var e models.UnitEvent
		var desc, loc sql.NullString
		if err := rows.Scan(&e.ID, &e.Title, &desc, &loc, &e.StartsAt, &e.EndsAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Description = desc.String
		e.Location = loc.String
		events = append(events, e)
	}
	return events, rows.Err()
}

// UpdateUnitEvent updates an event. Returns ErrNotFound for an unknown id.
func (db *DB) UpdateUnitEvent(ctx context.Context, e *models.UnitEvent) error {
	res, err := db.ExecContext(ctx, `
		UPDATE unit_events
		SET title = ?, description = ?, location = ?, starts_at = ?, ends_at = ?, updated_at = ?
		WHERE id = ?`,
		e.Title, e.Description, e.Location, e.StartsAt, e.EndsAt, time.Now(), e.ID,
	)
	if err != nil {
		return fmt.Errorf("update unit event: %w", err)
	}
	return requireRow(res)
}

// DeleteUnitEvent removes an event. Returns ErrNotFound for an unknown id.
func (db *DB) DeleteUnitEvent(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, "DELETE FROM unit_events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete unit event: %w", err)
	}
	return requireRow(res)
}

// CreateTeamMember inserts a staff profile.
func (db *DB) CreateTeamMember(ctx context.Context, m *models.TeamMember) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO team_members (name, role, photo, bio, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.Role, m.Photo, m.Bio, m.SortOrder, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert team member: %w", err)
	}
	m.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	return nil
}

// ListTeamMembers returns staff profiles in display order.
func (db *DB) ListTeamMembers(ctx context.Context) ([]models.TeamMember, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, role, photo, bio, sort_order, created_at, updated_at
		FROM team_members ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	var members []models.TeamMember
	for rows.Next() {
		var m models.TeamMember
		var photo, bio sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &m.Role, &photo, &bio, &m.SortOrder, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		m.Photo = photo.String
		m.Bio = bio.String
		members = append(members, m)
	}
	return members, rows.Err()
}

// UpdateTeamMember updates a staff profile. Returns ErrNotFound for an
// unknown id.
func (db *DB) UpdateTeamMember(ctx context.Context, m *models.TeamMember) error {
	res, err := db.ExecContext(ctx, `
		UPDATE team_members SET name = ?, role = ?, photo = ?, bio = ?, sort_order = ?, updated_at = ?
		WHERE id = ?`,
		m.Name, m.Role, m.Photo, m.Bio, m.SortOrder, time.Now(), m.ID,
	)
	if err != nil {
		return fmt.Errorf("update team member: %w", err)
	}
	return requireRow(res)
}

// DeleteTeamMember removes a staff profile. Returns ErrNotFound for an
// unknown id.
func (db *DB) DeleteTeamMember(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, "DELETE FROM team_members WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete team member: %w", err)
	}
	return requireRow(res)
}

// CreatePromotion inserts a promotion.
func (db *DB) CreatePromotion(ctx context.Context, p *models.Promotion) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO promotions (title, details, percent, starts_at, ends_at, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Details, p.Percent, p.StartsAt, p.EndsAt, p.IsActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert promotion: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// ListLivePromotions returns promotions active at instant t.
func (db *DB) ListLivePromotions(ctx context.Context, t time.Time) ([]models.Promotion, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, title, details, percent, starts_at, ends_at, is_active, created_at, updated_at
		FROM promotions
		WHERE is_active = 1 AND starts_at <= ? AND ends_at > ?
		ORDER BY starts_at`,
		t, t,
	)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	defer rows.Close()

	var promos []models.Promotion
	for rows.Next() {
		var p models.Promotion
		var details sql.NullString
		if err := rows.Scan(&p.ID, &p.Title, &details, &p.Percent, &p.StartsAt, &p.EndsAt, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Details = details.String
		promos = append(promos, p)
	}
	return promos, rows.Err()
}

// UpdatePromotion updates a promotion. Returns ErrNotFound for an
// unknown id.
func (db *DB) UpdatePromotion(ctx context.Context, p *models.Promotion) error {
	res, err := db.ExecContext(ctx, `
		UPDATE promotions SET title = ?, details = ?, percent = ?, starts_at = ?, ends_at = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		p.Title, p.Details, p.Percent, p.StartsAt, p.EndsAt, p.IsActive, time.Now(), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update promotion: %w", err)
	}
	return requireRow(res)
}

// DeletePromotion removes a promotion. Returns ErrNotFound for an
// unknown id.
func (db *DB) DeletePromotion(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, "DELETE FROM promotions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete promotion: %w", err)
	}
	return requireRow(res)
}
