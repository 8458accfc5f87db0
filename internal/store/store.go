// Package store keeps processed documents and their answers in SQLite so a
// re-run on the same text and model can reuse earlier answers.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/dgallion1/pdfqa/internal/answer"
	"github.com/dgallion1/pdfqa/internal/document"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// DocumentRecord is a processed document.
type DocumentRecord struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	ContentHash string    `json:"content_hash" gorm:"uniqueIndex"`
	Title       string    `json:"title"`
	Filename    string    `json:"filename"`
	Method      string    `json:"method"`
	Pages       int       `json:"pages"`
	Chunks      int       `json:"chunks"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AnswerRecord is a cached answer keyed by document text, question text and model.
type AnswerRecord struct {
	ID           uint   `gorm:"primaryKey"`
	DocumentHash string `gorm:"uniqueIndex:idx_answer_key;size:64"`
	QuestionKey  string `gorm:"uniqueIndex:idx_answer_key;size:64"`
	Model        string `gorm:"uniqueIndex:idx_answer_key"`
	QuestionID   string
	Text         string
	Status       string `gorm:"index"`
	SourceChunks string
	PageStart    int
	PageEnd      int
	AnsweredAt   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store wraps a gorm connection.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite database at path and migrates it.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&DocumentRecord{}, &AnswerRecord{}); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveDocument records doc, reusing the existing record for the same text.
func (s *Store) SaveDocument(ctx context.Context, doc *document.Document, chunks int) (*DocumentRecord, error) {
	db := s.db.WithContext(ctx)
	var rec DocumentRecord
	err := db.Where("content_hash = ?", doc.ContentHash).First(&rec).Error
	isNew := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !isNew {
		return nil, fmt.Errorf("find document: %w", err)
	}
	if isNew {
		rec = DocumentRecord{ID: uuid.NewString(), ContentHash: doc.ContentHash}
	}

	rec.Title = doc.Title
	rec.Filename = doc.Filename
	rec.Method = doc.Method
	rec.Pages = doc.PageCount()
	rec.Chunks = chunks
	if isNew {
		err = db.Create(&rec).Error
	} else {
		err = db.Save(&rec).Error
	}
	if err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return &rec, nil
}

// GetDocument returns the document with id.
func (s *Store) GetDocument(ctx context.Context, id string) (*DocumentRecord, error) {
	var rec DocumentRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListDocuments returns documents, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]DocumentRecord, error) {
	var list []DocumentRecord
	return list, s.db.WithContext(ctx).Order("updated_at desc, id asc").Find(&list).Error
}

// DeleteDocument removes a document and its cached answers.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec DocumentRecord
		if err := tx.First(&rec, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Where("document_hash = ?", rec.ContentHash).Delete(&AnswerRecord{}).Error; err != nil {
			return fmt.Errorf("delete answers: %w", err)
		}
		return tx.Delete(&rec).Error
	})
}

// LookupAnswer returns a cached answer for questionText in the document with
// docHash, produced by model.
func (s *Store) LookupAnswer(ctx context.Context, docHash, questionText, model string) (answer.Answer, bool, error) {
	var rec AnswerRecord
	err := s.db.WithContext(ctx).
		Where("document_hash = ? AND question_key = ? AND model = ?", docHash, document.HashText(questionText), model).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return answer.Answer{}, false, nil
	}
	if err != nil {
		return answer.Answer{}, false, err
	}
	return answer.Answer{
		QuestionID:   rec.QuestionID,
		QuestionText: questionText,
		Text:         rec.Text,
		Status:       answer.Status(rec.Status),
		SourceChunks: parseInts(rec.SourceChunks),
		PageStart:    rec.PageStart,
		PageEnd:      rec.PageEnd,
		AnsweredAt:   rec.AnsweredAt,
		Cached:       true,
	}, true, nil
}

// SaveAnswer caches a. Failed answers, and answers that carry an error such
// as a malformed reply, are not cached.
func (s *Store) SaveAnswer(ctx context.Context, docHash, model string, a answer.Answer) error {
	if a.Status == answer.StatusFailed || a.Error != "" {
		return nil
	}
	rec := AnswerRecord{
		DocumentHash: docHash,
		QuestionKey:  document.HashText(a.QuestionText),
		Model:        model,
		QuestionID:   a.QuestionID,
		Text:         a.Text,
		Status:       string(a.Status),
		SourceChunks: joinInts(a.SourceChunks),
		PageStart:    a.PageStart,
		PageEnd:      a.PageEnd,
		AnsweredAt:   a.AnsweredAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "document_hash"}, {Name: "question_key"}, {Name: "model"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"question_id", "text", "status", "source_chunks", "page_start", "page_end", "answered_at", "updated_at",
		}),
	}).Create(&rec).Error
}

// CountAnswers returns the number of cached answers for a document.
func (s *Store) CountAnswers(ctx context.Context, docHash string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&AnswerRecord{}).Where("document_hash = ?", docHash).Count(&n).Error
	return n, err
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func parseInts(s string) []int {
	if s == "" {
		return nil
	}
	var out []int
	for _, p := range strings.Split(s, ",") {
		if n, err := strconv.Atoi(p); err == nil {
			out = append(out, n)
		}
	}
	return out
}
