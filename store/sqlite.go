package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/roundwise/roundwise/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// conversationRow is the conversations table.
type conversationRow struct {
	ID        string    `gorm:"primaryKey;size:36"`
	CreatedAt time.Time `gorm:"index"`
}

func (conversationRow) TableName() string { return "conversations" }

// messageRow is the messages table. Seq preserves append order; the stage
// payload, when present, is serialized JSON tagged by StageKind.
type messageRow struct {
	Seq            uint      `gorm:"primaryKey;autoIncrement"`
	ConversationID string    `gorm:"index;size:36;not null"`
	Timestamp      time.Time `gorm:"not null"`
	Role           string    `gorm:"size:16;not null"`
	Content        string
	StageKind      string `gorm:"size:8"`
	StagePayload   []byte
}

func (messageRow) TableName() string { return "messages" }

// SQLiteStore is the durable Store backed by GORM over the pure-Go sqlite
// driver.
type SQLiteStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSQLite opens (or creates) the sqlite database at path and migrates
// the schema.
func NewSQLite(path string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if err := db.AutoMigrate(&conversationRow{}, &messageRow{}); err != nil {
		return nil, fmt.Errorf("migrate store schema: %w", err)
	}

	logger.Info("sqlite conversation store ready", zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger.With(zap.String("component", "store"))}, nil
}

func (s *SQLiteStore) Create(ctx context.Context) (string, error) {
	row := conversationRow{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	return row.ID, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*types.Conversation, error) {
	var conv conversationRow
	err := s.db.WithContext(ctx).First(&conv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	var rows []messageRow
	if err := s.db.WithContext(ctx).
		Where("conversation_id = ?", id).
		Order("seq asc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	out := &types.Conversation{ID: conv.ID, CreatedAt: conv.CreatedAt}
	for _, row := range rows {
		msg, err := decodeMessage(row)
		if err != nil {
			return nil, err
		}
		out.Messages = append(out.Messages, msg)
	}
	return out, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]types.ConversationSummary, error) {
	var convs []conversationRow
	if err := s.db.WithContext(ctx).
		Order("created_at desc, id asc").
		Find(&convs).Error; err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	type countRow struct {
		ConversationID string
		N              int
	}
	var counts []countRow
	if err := s.db.WithContext(ctx).
		Model(&messageRow{}).
		Select("conversation_id, count(*) as n").
		Group("conversation_id").
		Find(&counts).Error; err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	byConv := make(map[string]int, len(counts))
	for _, c := range counts {
		byConv[c.ConversationID] = c.N
	}

	out := make([]types.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		out = append(out, types.ConversationSummary{
			ID:           conv.ID,
			CreatedAt:    conv.CreatedAt,
			MessageCount: byConv[conv.ID],
		})
	}
	return out, nil
}

func (s *SQLiteStore) Append(ctx context.Context, id string, msg types.Message) error {
	row, err := encodeMessage(id, msg)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&conversationRow{}).Where("id = ?", id).Count(&exists).Error; err != nil {
			return fmt.Errorf("check conversation: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("append message: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func encodeMessage(convID string, msg types.Message) (messageRow, error) {
	row := messageRow{
		ConversationID: convID,
		Timestamp:      msg.Timestamp,
		Role:           string(msg.Role),
		Content:        msg.Content,
	}

	var payload any
	switch {
	case msg.Stage0 != nil:
		row.StageKind, payload = "stage0", msg.Stage0
	case msg.Stage1 != nil:
		row.StageKind, payload = "stage1", msg.Stage1
	case msg.Stage2 != nil:
		row.StageKind, payload = "stage2", msg.Stage2
	case msg.Stage3 != nil:
		row.StageKind, payload = "stage3", msg.Stage3
	case msg.Stage4 != nil:
		row.StageKind, payload = "stage4", msg.Stage4
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return messageRow{}, fmt.Errorf("encode stage payload: %w", err)
		}
		row.StagePayload = data
	}
	return row, nil
}

func decodeMessage(row messageRow) (types.Message, error) {
	msg := types.Message{
		Timestamp: row.Timestamp,
		Role:      types.Role(row.Role),
		Content:   row.Content,
	}
	if row.StageKind == "" {
		return msg, nil
	}

	var err error
	switch row.StageKind {
	case "stage0":
		msg.Stage0 = &types.Stage0Payload{}
		err = json.Unmarshal(row.StagePayload, msg.Stage0)
	case "stage1":
		msg.Stage1 = &types.Stage1Payload{}
		err = json.Unmarshal(row.StagePayload, msg.Stage1)
	case "stage2":
		msg.Stage2 = &types.Stage2Payload{}
		err = json.Unmarshal(row.StagePayload, msg.Stage2)
	case "stage3":
		msg.Stage3 = &types.Stage3Payload{}
		err = json.Unmarshal(row.StagePayload, msg.Stage3)
	case "stage4":
		msg.Stage4 = &types.Stage4Payload{}
		err = json.Unmarshal(row.StagePayload, msg.Stage4)
	default:
		return msg, fmt.Errorf("unknown stage kind %q", row.StageKind)
	}
	if err != nil {
		return types.Message{}, fmt.Errorf("decode %s payload: %w", row.StageKind, err)
	}
	return msg, nil
}
