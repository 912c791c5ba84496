package durable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"skillswap/internal/domain"
)

type relationshipRow struct {
	ID           string `gorm:"primaryKey"`
	PairKey      string `gorm:"uniqueIndex;not null"`
	ParticipantA string `gorm:"index;not null"`
	ParticipantB string `gorm:"index;not null"`
	RequesterID  string `gorm:"not null"`
	State        string `gorm:"not null"`
	RequestedAt  time.Time
	UpdatedAt    time.Time
}

func (relationshipRow) TableName() string { return "relationships" }

type messageRow struct {
	ID             string `gorm:"primaryKey"`
	RelationshipID string `gorm:"index;not null"`
	SenderID       string `gorm:"not null"`
	Body           string `gorm:"not null"`
	CreatedAt      time.Time
}

func (messageRow) TableName() string { return "messages" }

// Postgres is the gorm-backed durable adapter.
type Postgres struct {
	db *gorm.DB
}

// OpenPostgres connects to the shared backend database and migrates its schema.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&relationshipRow{}, &messageRow{}); err != nil {
		return nil, fmt.Errorf("migrate durable schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) CreateOrUpdateRelationship(ctx context.Context, rel domain.Relationship) (domain.Relationship, error) {
	row := relationshipRow{
		ID:           rel.ID,
		PairKey:      rel.Key(),
		ParticipantA: rel.ParticipantA,
		ParticipantB: rel.ParticipantB,
		RequesterID:  rel.RequesterID,
		State:        string(rel.State),
		RequestedAt:  rel.RequestedAt,
		UpdatedAt:    time.Now(),
	}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing relationshipRow
		err := tx.Where("pair_key = ?", row.PairKey).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if row.ID == "" {
				row.ID = uuid.New().String()
			}
			return tx.Create(&row).Error
		case err != nil:
			return err
		default:
			// The pair key is the identity: one row per unordered pair.
			row.ID = existing.ID
			return tx.Model(&relationshipRow{}).Where("id = ?", existing.ID).Updates(map[string]any{
				"requester_id": row.RequesterID,
				"state":        row.State,
				"requested_at": row.RequestedAt,
				"updated_at":   row.UpdatedAt,
			}).Error
		}
	})
	if err != nil {
		return domain.Relationship{}, fmt.Errorf("upsert relationship: %w", err)
	}

	rel.ID = row.ID
	rel.UpdatedAt = row.UpdatedAt
	return rel, nil
}

func (p *Postgres) ListRelationshipsFor(ctx context.Context, participant string) ([]domain.Relationship, error) {
	var rows []relationshipRow
	err := p.db.WithContext(ctx).
		Where("participant_a = ? OR participant_b = ?", participant, participant).
		Order("requested_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}

	rels := make([]domain.Relationship, 0, len(rows))
	for _, r := range rows {
		rels = append(rels, domain.Relationship{
			ID:           r.ID,
			ParticipantA: r.ParticipantA,
			ParticipantB: r.ParticipantB,
			RequesterID:  r.RequesterID,
			State:        domain.State(r.State),
			RequestedAt:  r.RequestedAt,
			UpdatedAt:    r.UpdatedAt,
		})
	}
	return rels, nil
}

func (p *Postgres) AppendMessage(ctx context.Context, relationshipID, senderID, body string) (domain.Message, error) {
	row := messageRow{
		ID:             uuid.New().String(),
		RelationshipID: relationshipID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      time.Now(),
	}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Message{}, fmt.Errorf("append message: %w", err)
	}
	return domain.Message{
		ID:             row.ID,
		RelationshipID: row.RelationshipID,
		SenderID:       row.SenderID,
		Body:           row.Body,
		CreatedAt:      row.CreatedAt,
		Delivery:       domain.DeliverySent,
	}, nil
}

func (p *Postgres) ListMessages(ctx context.Context, relationshipID string) ([]domain.Message, error) {
	var rows []messageRow
	err := p.db.WithContext(ctx).
		Where("relationship_id = ?", relationshipID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	msgs := make([]domain.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, domain.Message{
			ID:             r.ID,
			RelationshipID: r.RelationshipID,
			SenderID:       r.SenderID,
			Body:           r.Body,
			CreatedAt:      r.CreatedAt,
			Delivery:       domain.DeliverySent,
		})
	}
	return msgs, nil
}
