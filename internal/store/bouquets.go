package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domainerrors "github.com/foruapp/foru/internal/errors"
	"github.com/foruapp/foru/internal/id"
	"github.com/foruapp/foru/internal/model"
	"github.com/foruapp/foru/internal/reveal"
)

// Listing limits.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// MaxLetterLength bounds the letter body in bytes.
const MaxLetterLength = 10000

const bouquetColumns = `id, kind, items, letter, theme, gift_type, scratch_message,
	secret_hash != '', sender_name, recipient_name, recipient_email,
	scheduled_at, is_sent, created_by, created_at`

// CreateBouquet validates and stores a new share record and returns it.
// The secret code is kept only as a hash.
func CreateBouquet(ctx context.Context, db *sql.DB, nb model.NewBouquet) (*model.Bouquet, error) {
	if err := checkNewBouquet(&nb); err != nil {
		return nil, err
	}

	secretHash, err := reveal.HashSecret(nb.SecretCode)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	items := nb.Items
	if items == nil {
		items = []model.PlacedItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encoding bouquet items: %w", err)
	}

	var scheduledAt any
	if nb.ScheduledAt != nil {
		scheduledAt = nb.ScheduledAt.UTC()
	}

	// Share ids are random; retry the rare collision instead of failing.
	for attempt := 0; attempt < 3; attempt++ {
		shareID, err := id.Share()
		if err != nil {
			return nil, err
		}

		_, err = db.ExecContext(ctx,
			`INSERT INTO bouquets (id, kind, items, letter, theme, gift_type, scratch_message,
				secret_hash, sender_name, recipient_name, recipient_email, scheduled_at, created_by, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			shareID, nb.Kind, string(itemsJSON), nb.Letter, nb.Theme, nb.GiftType, nb.ScratchMessage,
			secretHash, nb.SenderName, nb.RecipientName, nb.RecipientEmail, scheduledAt, nb.CreatedBy,
			time.Now().UTC(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return nil, fmt.Errorf("creating bouquet: %w", err)
		}
		return GetBouquet(ctx, db, shareID)
	}
	return nil, fmt.Errorf("creating bouquet: could not allocate a unique id")
}

// checkNewBouquet fills defaults and rejects malformed records.
func checkNewBouquet(nb *model.NewBouquet) error {
	if nb.Kind == "" {
		nb.Kind = model.KindBouquet
	}
	if nb.GiftType == "" {
		nb.GiftType = model.GiftNone
	}
	nb.SenderName = strings.TrimSpace(nb.SenderName)
	nb.RecipientName = strings.TrimSpace(nb.RecipientName)
	nb.RecipientEmail = strings.ToLower(strings.TrimSpace(nb.RecipientEmail))

	switch {
	case !nb.Kind.Valid():
		return domainerrors.Validationf("unknown type %q", nb.Kind)
	case !nb.Theme.Valid():
		return domainerrors.Validationf("unknown theme %q", nb.Theme)
	case !nb.GiftType.Valid():
		return domainerrors.Validationf("unknown gift type %q", nb.GiftType)
	case nb.Kind == model.KindBouquet && len(nb.Items) == 0:
		return domainerrors.Validation("a bouquet needs at least one flower")
	case nb.Kind == model.KindLetter && strings.TrimSpace(nb.Letter) == "":
		return domainerrors.Validation("a letter cannot be empty")
	case len(nb.Letter) > MaxLetterLength:
		return domainerrors.Validationf("letter is longer than %d characters", MaxLetterLength)
	}

	if nb.Kind == model.KindLetter {
		nb.Items = nil
	}
	if nb.GiftType != model.GiftScratch {
		nb.ScratchMessage = ""
	}
	if nb.GiftType != model.GiftCode {
		nb.SecretCode = ""
	}
	return nil
}

// GetBouquet returns a share record by id, or nil when it does not exist.
func GetBouquet(ctx context.Context, db *sql.DB, id string) (*model.Bouquet, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bouquetColumns+` FROM bouquets WHERE id = ?`, id,
	)
	b, err := scanBouquet(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting bouquet: %w", err)
	}
	return b, nil
}

// GetBouquetSecretHash returns the stored secret hash ("" when the record has
// no secret) and whether the record exists.
func GetBouquetSecretHash(ctx context.Context, db *sql.DB, id string) (string, bool, error) {
	var hash string
	err := db.QueryRowContext(ctx,
		`SELECT secret_hash FROM bouquets WHERE id = ?`, id,
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting bouquet secret: %w", err)
	}
	return hash, true, nil
}

// ListBouquets returns one page of share records, newest first. Page numbers
// start at 1; out-of-range arguments are clamped.
func ListBouquets(ctx context.Context, db *sql.DB, page, pageSize int) (*model.BouquetPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bouquets`).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting bouquets: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+bouquetColumns+` FROM bouquets
		 ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("listing bouquets: %w", err)
	}
	defer rows.Close()

	bouquets := []model.Bouquet{}
	for rows.Next() {
		b, err := scanBouquet(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning bouquet: %w", err)
		}
		bouquets = append(bouquets, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing bouquets: %w", err)
	}

	totalPages := (total + pageSize - 1) / pageSize
	return &model.BouquetPage{
		Bouquets:   bouquets,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	}, nil
}

// MarkBouquetSent sets the sent flag. It is the only mutation a share record
// allows after creation.
func MarkBouquetSent(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE bouquets SET is_sent = 1 WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("marking bouquet sent: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking bouquet sent: %w", err)
	}
	if n == 0 {
		return domainerrors.NotFound("bouquet not found")
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBouquet(s scanner) (*model.Bouquet, error) {
	var (
		b           model.Bouquet
		itemsJSON   string
		scheduledAt sql.NullTime
		createdBy   sql.NullInt64
	)
	err := s.Scan(&b.ID, &b.Kind, &itemsJSON, &b.Letter, &b.Theme, &b.GiftType, &b.ScratchMessage,
		&b.HasSecret, &b.SenderName, &b.RecipientName, &b.RecipientEmail,
		&scheduledAt, &b.IsSent, &createdBy, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(itemsJSON), &b.Items); err != nil {
		return nil, fmt.Errorf("decoding bouquet items: %w", err)
	}
	if b.Items == nil {
		b.Items = []model.PlacedItem{}
	}
	if scheduledAt.Valid {
		t := scheduledAt.Time.UTC()
		b.ScheduledAt = &t
	}
	if createdBy.Valid {
		v := createdBy.Int64
		b.CreatedBy = &v
	}
	return &b, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
